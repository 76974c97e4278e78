package main

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/ingest"
	"github.com/sitepulse/sitepulse/internal/orchestrator"
	"github.com/sitepulse/sitepulse/internal/storage"
	"github.com/sitepulse/sitepulse/internal/storage/sqlite"
)

var (
	cfgPath string
	dbPath  string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "sitepulse",
	Short: "Hybrid project-health engine for construction portfolios",
	Long: `sitepulse reconciles two versions of the truth about a construction
project: the issue tracker's digital progress and the vision model's
physical progress on site. Each analysis cycle fuses them into the
trustworthy progress figure, a predicted completion date, a cost
performance index, and a variance alert when the views disagree.

Configuration comes from sitepulse.yaml (see 'sitepulse init') plus
SITEPULSE_* environment variables.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if dbPath != "" {
			cfg.StoragePath = dbPath
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to configuration file (default sitepulse.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "", "Path to cycle database (overrides configuration)")
}

// openStore opens the configured cycle store. The caller owns the Close.
func openStore() (storage.Store, error) {
	return sqlite.New(cfg.StoragePath)
}

// newAnalyzer wires the production sources to a fresh analyzer.
func newAnalyzer(store storage.Store) (*orchestrator.Analyzer, error) {
	physical := ingest.NewVerdictDir(cfg.MaxVerdictAge.Std(), cfg.KnownPhases(), nil)
	return orchestrator.New(cfg, ingest.NewDigitalSource(), physical, store, nil)
}

// newWarmAnalyzer additionally replays stored cycles into the velocity
// engines, so one-shot commands see the accumulated velocity state.
func newWarmAnalyzer(ctx context.Context, store storage.Store) (*orchestrator.Analyzer, error) {
	analyzer, err := newAnalyzer(store)
	if err != nil {
		return nil, err
	}
	if err := analyzer.WarmFromStore(ctx); err != nil {
		return nil, err
	}
	return analyzer, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
