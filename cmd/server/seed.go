package main

import (
	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/factory"
	"github.com/warp/variable-pay/store/sqlite"
)

var (
	seedCatalogPath string
	seedScenario    string
	seedDB          string
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Replace the tier and KPI catalog and register users",
	Long: "Loads a catalog document (--catalog) or a demo scenario (--scenario) into the database. " +
		"The existing tiers and KPI definitions are replaced; users are upserted; launches are kept.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (seedCatalogPath == "") == (seedScenario == "") {
			return eris.New("exactly one of --catalog or --scenario is required")
		}

		catalog, err := seedCatalog()
		if err != nil {
			return err
		}

		dbPath := cfg.DB.Path
		if seedDB != "" {
			dbPath = seedDB
		}
		store, err := sqlite.New(dbPath)
		if err != nil {
			return eris.Wrap(err, "open database")
		}
		defer store.Close()

		ctx := cmd.Context()
		if err := store.ReplaceCatalog(ctx, catalog.Tiers, catalog.KPIs); err != nil {
			return eris.Wrap(err, "replace catalog")
		}
		for _, u := range catalog.Users {
			if err := store.SaveUser(ctx, u); err != nil {
				return eris.Wrapf(err, "save user %s", u.ID)
			}
		}

		zap.L().Info("catalog seeded",
			zap.String("db", dbPath),
			zap.Int("tiers", len(catalog.Tiers)),
			zap.Int("kpis", len(catalog.KPIs)),
			zap.Int("users", len(catalog.Users)),
		)
		return nil
	},
}

func seedCatalog() (*factory.Catalog, error) {
	if seedCatalogPath != "" {
		return factory.NewCatalogFactory().LoadFile(seedCatalogPath)
	}

	var doc string
	switch seedScenario {
	case "warehouse-helper":
		doc = factory.WarehouseHelperJSON()
	case "forklift-operator":
		doc = factory.ForkliftOperatorJSON()
	case "checker":
		doc = factory.CheckerJSON()
	case "full-warehouse":
		return loadCatalog("")
	default:
		return nil, eris.Errorf("unknown scenario %q", seedScenario)
	}
	return factory.NewCatalogFactory().ParseJSON([]byte(doc))
}

func init() {
	seedCmd.Flags().StringVar(&seedCatalogPath, "catalog", "", "catalog document (.json, .yaml)")
	seedCmd.Flags().StringVar(&seedScenario, "scenario", "", "demo scenario: warehouse-helper, forklift-operator, checker, full-warehouse")
	seedCmd.Flags().StringVar(&seedDB, "db", "", "SQLite database path (default from config)")
	rootCmd.AddCommand(seedCmd)
}
