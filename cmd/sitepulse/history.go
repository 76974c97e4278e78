package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sitepulse/sitepulse/internal/progress"
)

var (
	historyProject string
	historyLimit   int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recent analysis cycles for a project",
	Long: `List the most recent stored cycles for one project, newest first,
with the per-cycle trend of the reconciled progress figure.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if historyProject == "" {
			fmt.Fprintln(os.Stderr, "Error: --project is required")
			os.Exit(1)
		}
		project, ok := cfg.Project(historyProject)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: project %q is not configured\n", historyProject)
			os.Exit(1)
		}

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		cycles, err := store.ListCycles(ctx, project.ID, historyLimit)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to list cycles: %v\n", err)
			os.Exit(1)
		}

		if len(cycles) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No cycles recorded for %s yet. Run 'sitepulse analyze' first.\n\n",
				yellow("ℹ"), project.DisplayName())
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(project.DisplayName()+" History"))

		for _, c := range cycles {
			paint := statusPaint(c.Fused.VarianceAlert)
			fmt.Printf("  %s  %5.1f%%  %s  cpi %.2f  conf %.2f\n",
				c.RunAt.Format("2006-01-02 15:04"),
				c.Fused.TrueProgressPercent,
				paint(c.Fused.VarianceAlert.String()),
				c.Fused.CostPerformanceIndex,
				c.Fused.ConfidenceScore)
		}

		// Replay oldest first so the tracker sees them in time order
		tracker := progress.NewTrendTracker(len(cycles))
		for i := len(cycles) - 1; i >= 0; i-- {
			tracker.Add(cycles[i].Fused)
		}

		trend := tracker.ProgressTrend()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Println()
		switch {
		case trend > 0:
			green := color.New(color.FgGreen).SprintFunc()
			fmt.Printf("  Trend: %s %+.2f%% per cycle\n", green("▲"), trend)
		case trend < 0:
			red := color.New(color.FgRed).SprintFunc()
			fmt.Printf("  Trend: %s %+.2f%% per cycle\n", red("▼"), trend)
		default:
			fmt.Printf("  Trend: %s flat\n", gray("»"))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().StringVar(&historyProject, "project", "", "Project to show (required)")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 10, "Number of cycles to show")
}
