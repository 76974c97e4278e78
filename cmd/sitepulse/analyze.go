package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var analyzeProject string

var analyzeCmd = &cobra.Command{
	Use:   "analyze",
	Short: "Run one analysis cycle and print the fused report",
	Long: `Fetch the digital and physical progress views for each project, fuse
them, persist the cycle, and print the result. With --project only that
project is analyzed.

Projects whose sources have no usable data this cycle are skipped with a
reason rather than failing the run.`,
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

		if analyzeProject != "" {
			res, err := analyzer.AnalyzeProject(ctx, analyzeProject)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
			fmt.Println()
			printResult(res)
			fmt.Println()
			return
		}

		results, runErr := analyzer.AnalyzeAll(ctx)
		fmt.Println()
		for _, res := range results {
			printResult(res)
			fmt.Println()
		}
		if runErr != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", runErr)
			os.Exit(1)
		}
	},
}

func init() {
	rootCmd.AddCommand(analyzeCmd)
	analyzeCmd.Flags().StringVar(&analyzeProject, "project", "", "Analyze a single project")
}
