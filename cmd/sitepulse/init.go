package main

import (
	"fmt"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/sitepulse/sitepulse/internal/config"
	"github.com/sitepulse/sitepulse/internal/storage/sqlite"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a starter configuration and create the database",
	Long: `Write a commented starter sitepulse.yaml to the configured path and
create the cycle database with its schema.

Refuses to overwrite an existing configuration file.

Example:
  sitepulse init
  sitepulse init --config /etc/sitepulse/sitepulse.yaml`,
	// The root loader requires an explicitly named config file to exist,
	// which is exactly the situation init fixes
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		return nil
	},
	Run: func(cmd *cobra.Command, args []string) {
		path := cfgPath
		if path == "" {
			path = config.DefaultPath
		}

		if err := config.WriteStarter(path); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}

		loaded, err := config.Load(path)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: starter config did not load: %v\n", err)
			os.Exit(1)
		}
		if dbPath != "" {
			loaded.StoragePath = dbPath
		}

		// Create the schema by opening and closing the store
		store, err := sqlite.New(loaded.StoragePath)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: failed to initialize database: %v\n", err)
			os.Exit(1)
		}
		_ = store.Close() // Ignore close error during initialization

		green := color.New(color.FgGreen).SprintFunc()
		cyan := color.New(color.FgCyan).SprintFunc()
		gray := color.New(color.FgHiBlack).SprintFunc()

		fmt.Printf("\n%s Initialized sitepulse\n\n", green("✓"))
		fmt.Printf("  Config:   %s\n", cyan(path))
		fmt.Printf("  Database: %s\n", cyan(loaded.StoragePath))
		fmt.Println()
		fmt.Printf("%s Next steps:\n", gray("→"))
		fmt.Printf("  %s\n", gray("edit "+path+"  # add your projects and tracker endpoints"))
		fmt.Printf("  %s\n", gray("sitepulse analyze"))
		fmt.Printf("  %s\n", gray("sitepulse run"))
		fmt.Println()
	},
}

func init() {
	rootCmd.AddCommand(initCmd)
}
