// scripts/prune-cycles.go - Manual cycle history pruning tool
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/sitepulse/sitepulse/internal/storage/sqlite"
)

func main() {
	ctx := context.Background()

	dbPath := "sitepulse.db"
	if p := os.Getenv("SITEPULSE_DB_PATH"); p != "" {
		dbPath = p
	}

	// Keep 90 days of cycles unless told otherwise
	retention := 90 * 24 * time.Hour
	if r := os.Getenv("SITEPULSE_RETENTION"); r != "" {
		parsed, err := time.ParseDuration(r)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error parsing SITEPULSE_RETENTION: %v\n", err)
			os.Exit(1)
		}
		retention = parsed
	}

	fmt.Printf("Connecting to database: %s\n", dbPath)

	store, err := sqlite.New(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening storage: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	cutoff := time.Now().Add(-retention)

	fmt.Printf("Pruning cycles recorded before %s (retention: %s)...\n",
		cutoff.Format("2006-01-02"), retention)

	pruned, err := store.PruneCycles(ctx, cutoff)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error during pruning: %v\n", err)
		os.Exit(1)
	}

	if pruned > 0 {
		fmt.Printf("✓ Pruned %d old cycle(s)\n", pruned)
	} else {
		fmt.Println("✓ No cycles older than the retention window")
	}
}
