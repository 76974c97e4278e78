package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/sitepulse/sitepulse/internal/ingest"
	"github.com/sitepulse/sitepulse/internal/orchestrator"
)

var runVerbose bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the analysis daemon",
	Long: `Analyze the portfolio immediately and then on every poll interval.
Verdict directories are watched, so a freshly dropped vision verdict
triggers an extra cycle for its project without waiting for the next poll.

Runs until interrupted; SIGINT and SIGTERM shut it down cleanly.`,
	Run: func(cmd *cobra.Command, args []string) {
		logCfg := zap.NewProductionConfig()
		if runVerbose {
			logCfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		logger, err := logCfg.Build()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize logger: %v\n", err)
			os.Exit(1)
		}
		defer logger.Sync()

		store, err := openStore()
		if err != nil {
			logger.Fatal("failed to open store", zap.Error(err))
		}
		defer store.Close()

		physical := ingest.NewVerdictDir(cfg.MaxVerdictAge.Std(), cfg.KnownPhases(), logger)
		analyzer, err := orchestrator.New(cfg, ingest.NewDigitalSource(), physical, store, logger)
		if err != nil {
			logger.Fatal("failed to build analyzer", zap.Error(err))
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if err := analyzer.WarmFromStore(ctx); err != nil {
			logger.Warn("failed to warm engines from store", zap.Error(err))
		}

		watcher, err := ingest.NewWatcher(cfg, logger)
		if err != nil {
			logger.Warn("verdict watcher unavailable, polling only", zap.Error(err))
			watcher = nil
		}

		daemon := orchestrator.NewDaemon(analyzer, watcher, cfg.PollInterval.Std(), logger)
		if err := daemon.Run(ctx); err != nil {
			logger.Error("daemon failed", zap.Error(err))
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(runCmd)
	runCmd.Flags().BoolVarP(&runVerbose, "verbose", "v", false, "Enable debug logging")
}
