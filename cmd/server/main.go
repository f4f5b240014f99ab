/*
main.go - Command-line entry point

PURPOSE:

	Hosts the variable pay engine: the HTTP API plus offline commands for
	operations staff. Every command loads the configuration and initializes
	the zap logger before it runs.

COMMANDS:

	serve      Start the HTTP API (SQLite store, hot-reloaded per-task rate)
	calculate  Run one calculation from a JSON request file, in memory
	tasks      Count the valid tasks of one operator in an export file
	seed       Load a catalog document or demo scenario into the database

CONFIGURATION:

	--config points at a YAML file; without it ./config.yaml is used when
	present. VARPAY_* environment variables override the file, e.g.
	VARPAY_DB_PATH=":memory:" or VARPAY_COMPENSATION_PER_TASK_RATE=2.50.

EXAMPLES:

	./server serve --port 3000
	./server calculate --request day.json --catalog catalog.yaml
	./server tasks --file export.xlsx --operator joao.silva --date 2025-03-10
	./server seed --scenario full-warehouse

SEE ALSO:
  - config/config.go: Configuration keys and defaults
  - api/server.go: Router configuration
*/
package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/warp/variable-pay/compensation"
	"github.com/warp/variable-pay/config"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "server",
	Short: "Warehouse variable pay engine",
	Long:  "Computes the daily variable pay of warehouse workers from productivity tiers, KPI bonuses and validated task exports.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		c, err := config.Load(configPath)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if err := config.InitLogger(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}

		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file (default ./config.yaml)")
}

// serviceStore is what a Service needs from its backing store.
type serviceStore interface {
	compensation.TierCatalog
	compensation.KPICatalog
	compensation.ClaimCounter
	compensation.LaunchRecorder
}

// newService builds a Service over store using the loaded configuration.
func newService(store serviceStore) (*compensation.Service, error) {
	rate, err := cfg.Compensation.Rate()
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Compensation.Location()
	if err != nil {
		return nil, err
	}

	svc := compensation.NewService(store, rate, loc)
	svc.ClaimLimit = cfg.Compensation.ClaimLimit
	return svc, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
