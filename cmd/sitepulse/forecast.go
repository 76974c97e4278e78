package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var (
	forecastProject    string
	forecastConfidence float64
)

var forecastCmd = &cobra.Command{
	Use:   "forecast",
	Short: "Velocity-based completion forecast for a project",
	Long: `Predict when the digital backlog completes from observed velocity
alone, independent of the fusion engine. The confidence level controls how
far the velocity is discounted toward its pessimistic bound.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		if forecastProject == "" {
			fmt.Fprintln(os.Stderr, "Error: --project is required")
			os.Exit(1)
		}
		project, ok := cfg.Project(forecastProject)
		if !ok {
			fmt.Fprintf(os.Stderr, "Error: project %q is not configured\n", forecastProject)
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

		forecast, err := set.Velocity().PredictCompletion(
			cycle.Digital, cycle.Digital.TotalStoryPoints, forecastConfidence)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan(project.DisplayName()+" Forecast"))
		fmt.Printf("  Remaining points    %d\n", forecast.RemainingPoints)

		if forecast.PredictedDate == nil {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("  %s\n", yellow("No velocity observations yet; nothing to extrapolate."))
			fmt.Println()
			return
		}

		fmt.Printf("  Predicted date      %s\n", forecast.PredictedDate.Format("2006-01-02"))
		fmt.Printf("  Adjusted velocity   %.2f pts/day\n", forecast.AdjustedVelocity)
		fmt.Printf("  Forecast confidence %.2f\n", forecast.Confidence)

		if !project.TargetDate.IsZero() {
			slack := project.TargetDate.Sub(*forecast.PredictedDate)
			days := int(slack.Hours() / 24)
			switch {
			case days >= 0:
				green := color.New(color.FgGreen).SprintFunc()
				fmt.Printf("  Against target      %s\n", green(fmt.Sprintf("%d day(s) of slack", days)))
			default:
				red := color.New(color.FgRed, color.Bold).SprintFunc()
				fmt.Printf("  Against target      %s\n", red(fmt.Sprintf("%d day(s) late", -days)))
			}
			fmt.Printf("  %s\n", gray("Target date "+project.TargetDate.Format("2006-01-02")))
		}
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(forecastCmd)
	forecastCmd.Flags().StringVar(&forecastProject, "project", "", "Project to forecast (required)")
	forecastCmd.Flags().Float64Var(&forecastConfidence, "confidence", 0.95, "Confidence level in [0,1]")
}
