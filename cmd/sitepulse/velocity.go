package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var velocityProject string

var velocityCmd = &cobra.Command{
	Use:   "velocity",
	Short: "Velocity trends and delivery risks for a project",
	Long: `Show the velocity engine's view of one project: the current tracker
rates, the observed velocity series, its trend, and the scored delivery
risks against the configured baselines.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if velocityProject == "" {
			fmt.Fprintln(os.Stderr, "Error: --project is required")
			os.Exit(1)
		}
		project, ok := cfg.Project(velocityProject)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: project %q is not configured\n", velocityProject)
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

		eng := set.Velocity()
		trends := eng.Trends(cfg.VelocityWindow)
		health := eng.HealthMetrics()
		risks, err := eng.RiskFactors(cycle.Digital)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		yellow := color.New(color.FgYellow).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(project.DisplayName()+" Velocity"))

		fmt.Printf("%s\n", yellow("Tracker rates:"))
		fmt.Printf("  Sprint velocity   %.2f pts/sprint\n", cycle.Digital.SprintVelocity)
		fmt.Printf("  Commit frequency  %.2f/day\n", cycle.Digital.CommitFrequency)
		fmt.Printf("  PR merge rate     %.0f%%\n", cycle.Digital.PRMergeRate*100)
		fmt.Println()

		fmt.Printf("%s\n", yellow("Observed series:"))
		fmt.Printf("  Mean velocity     %.4f\n", health["avg_velocity"])
		fmt.Printf("  Spread            %.4f\n", health["velocity_stability"])
		fmt.Printf("  Samples           %.0f\n", health["data_points"])
		fmt.Printf("  Trend             %+.4f (accel %+.5f, stability %.2f)\n",
			trends.VelocityTrend, trends.Acceleration, trends.StabilityScore)
		fmt.Println()

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

		fmt.Printf("%s\n", yellow("Risk factors:"))
		riskLine("Velocity instability", risks.VelocityInstability)
		riskLine("Completion rate", risks.CompletionRateRisk)
		riskLine("Resource utilization", risks.ResourceUtilizationRisk)
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(velocityCmd)
	velocityCmd.Flags().StringVar(&velocityProject, "project", "", "Project to inspect (required)")
}
