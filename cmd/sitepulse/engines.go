package main

import (
	"context"
	"fmt"
	"os"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var enginesCmd = &cobra.Command{
	Use:   "engines",
	Short: "Show engine health metrics per project",
	Long: `Dump the raw health metrics every engine reports, per project, after
replaying stored cycles. Useful when a fused number looks off and you want
to see what the engines are working from.`,
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

		registry := analyzer.Registry()
		if registry.Len() == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No projects configured.\n\n", yellow("ℹ"))
			return
		}

		report := registry.HealthReport()
		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		bold := color.New(color.Bold).SprintFunc()

		for _, projectID := range registry.Projects() {
			fmt.Printf("\n%s\n", cyan(projectID))
			engines := report[projectID]

			names := make([]string, 0, len(engines))
			for name := range engines {
				names = append(names, name)
			}
			sort.Strings(names)

			for _, name := range names {
				fmt.Printf("  %s\n", bold(name))

				metrics := engines[name]
				keys := make([]string, 0, len(metrics))
				for key := range metrics {
					keys = append(keys, key)
				}
				sort.Strings(keys)

				for _, key := range keys {
					fmt.Printf("    %-22s %10.4f\n", key, metrics[key])
				}
			}
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(enginesCmd)
}
