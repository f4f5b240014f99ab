package main

import (
	"encoding/json"
	"io"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/warp/variable-pay/api"
	"github.com/warp/variable-pay/config"
	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/store/memory"
)

var (
	calcRequestPath string
	calcCatalogPath string
	calcRate        string
)

var calculateCmd = &cobra.Command{
	Use:   "calculate",
	Short: "Run one calculation from a JSON request, without a database",
	Long: "Reads a request in the format of POST /api/calculations and prints the breakdown. " +
		"Tiers and KPIs come from --catalog, or from the built-in demo catalog when omitted.",
	RunE: func(cmd *cobra.Command, args []string) error {
		catalog, err := loadCatalog(calcCatalogPath)
		if err != nil {
			return err
		}

		store := memory.New()
		store.AddTiers(catalog.Tiers...)
		store.AddKPIs(catalog.KPIs...)

		svc, err := newService(store)
		if err != nil {
			return err
		}
		if calcRate != "" {
			rate, err := config.CompensationConfig{PerTaskRate: calcRate}.Rate()
			if err != nil {
				return err
			}
			svc.SetPerTaskRate(rate)
		}

		in, err := openInput(cmd, calcRequestPath)
		if err != nil {
			return err
		}
		defer in.Close()

		req, err := api.DecodeCalculationRequest(in)
		if err != nil {
			return err
		}
		for _, u := range catalog.Users {
			if u.ID == req.UserID {
				u.ApplyTo(&req)
				break
			}
		}

		result, err := svc.Calculate(cmd.Context(), req)
		if err != nil {
			return err
		}
		return printJSON(cmd, api.NewCalculationResultDTO(result))
	},
}

// loadCatalog reads a catalog document, or merges the demo presets when
// path is empty.
func loadCatalog(path string) (*factory.Catalog, error) {
	f := factory.NewCatalogFactory()
	if path != "" {
		return f.LoadFile(path)
	}

	docs := []string{factory.WarehouseHelperJSON(), factory.ForkliftOperatorJSON(), factory.CheckerJSON()}
	parts := make([]*factory.Catalog, 0, len(docs))
	for _, doc := range docs {
		c, err := f.ParseJSON([]byte(doc))
		if err != nil {
			return nil, eris.Wrap(err, "demo catalog")
		}
		parts = append(parts, c)
	}
	return factory.Merge(parts...), nil
}

// openInput opens path, or the command's stdin for "-".
func openInput(cmd *cobra.Command, path string) (io.ReadCloser, error) {
	if path == "-" {
		return io.NopCloser(cmd.InOrStdin()), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "open %s", path)
	}
	return f, nil
}

func printJSON(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	calculateCmd.Flags().StringVar(&calcRequestPath, "request", "", "path to the JSON request, - for stdin (required)")
	calculateCmd.Flags().StringVar(&calcCatalogPath, "catalog", "", "catalog document (.json, .yaml)")
	calculateCmd.Flags().StringVar(&calcRate, "rate", "", "per-task rate, overrides the config")
	_ = calculateCmd.MarkFlagRequired("request")
	rootCmd.AddCommand(calculateCmd)
}
