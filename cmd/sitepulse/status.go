package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/storage"
)

var statusProject string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest stored health per project",
	Long: `Display the most recent analysis cycle for each configured project
without fetching anything. Use 'sitepulse analyze' to refresh.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		store, err := openStore()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to open store: %v\n", err)
			os.Exit(1)
		}
		defer store.Close()

		projects := cfg.Projects
		if statusProject != "" {
			p, ok := cfg.Project(statusProject)
			if !ok {
				fmt.Fprintf(os.Stderr, "Error: project %q is not configured\n", statusProject)
				os.Exit(1)
			}
			projects = []config.Project{*p}
		}

		if len(projects) == 0 {
			yellow := color.New(color.FgYellow).SprintFunc()
			fmt.Printf("\n%s No projects configured. Run 'sitepulse init' to create a starter config.\n\n", yellow("ℹ"))
			return
		}

		cyan := color.New(color.FgCyan, color.Bold).SprintFunc()
		fmt.Printf("\n%s\n\n", cyan("Portfolio Status"))

		for _, p := range projects {
			cycle, err := store.LatestCycle(ctx, p.ID)
			if errors.Is(err, storage.ErrNotFound) {
				gray := color.New(color.FgHiBlack).SprintFunc()
				fmt.Printf("%s %s\n    %s\n\n", gray("○"), p.DisplayName(), gray("no cycles yet"))
				continue
			}
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error: failed to load cycle for %s: %v\n", p.ID, err)
				os.Exit(1)
			}
			printCycle(p.DisplayName(), cycle)
			fmt.Println()
		}
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
	statusCmd.Flags().StringVar(&statusProject, "project", "", "Show a single project")
}
