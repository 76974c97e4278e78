package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var risksProject string

var risksCmd = &cobra.Command{
	Use:   "risks",
	Short: "Delivery risk factors for a project",
	Long: `Score one project's delivery risks against the configured baselines:
velocity instability, completion rate shortfall, and resource
utilization. Each factor ranges 0 (healthy) to 1 (critical).`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if risksProject == "" {
			fmt.Fprintln(os.Stderr, "Error: --project is required")
			os.Exit(1)
		}
		project, ok := cfg.Project(risksProject)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: project %q is not configured\n", risksProject)
			os.Exit(1)
		}

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

		cycle, err := store.LatestCycle(ctx, project.ID)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: no cycles recorded for %s yet; run 'sitepulse analyze' first\n", project.ID)
			os.Exit(1)
		}

		set, ok := analyzer.Registry().Get(project.ID)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: project %q has no engine set\n", project.ID)
			os.Exit(1)
		}

		risks, err := set.Velocity().RiskFactors(cycle.Digital)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(project.DisplayName()+" Risks"))

		riskLine := func(label string, v float64) {
			var painted string
			switch {
			case v >= 0.66:
				painted = color.New(color.FgRed, color.Bold).Sprintf("%.2f", v)
			case v >= 0.33:
				painted = color.New(color.FgYellow).Sprintf("%.2f", v)
			default:
				painted = color.New(color.FgGreen).Sprintf("%.2f", v)
			}
			fmt.Printf("  %-22s %s\n", label, painted)
		}

		riskLine("Velocity instability", risks.VelocityInstability)
		riskLine("Completion rate", risks.CompletionRateRisk)
		riskLine("Resource utilization", risks.ResourceUtilizationRisk)
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(risksCmd)
	risksCmd.Flags().StringVar(&risksProject, "project", "", "Project to inspect (required)")
}
