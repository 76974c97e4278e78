package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/sitepulse/sitepulse/internal/shell"
)

var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Start the interactive console",
	Long: `Start an interactive console against the live store and engines.

Commands inside the shell cover the same ground as the CLI (status,
history, analyze, forecast, velocity, risks, health) without reopening
the database between invocations.

Type 'help' in the shell for available commands.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		analyzer, err := newWarmAnalyzer(ctx, store)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		sh, err := shell.New(&shell.Config{
			Cfg:      cfg,
			Store:    store,
			Analyzer: analyzer,
		})
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to create shell: %v\n", err)
			os.Exit(1)
		}

		if err := sh.Run(ctx); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)
}
