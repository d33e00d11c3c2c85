package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rizkypratama/dlpguard/internal/config"
	"github.com/rizkypratama/dlpguard/internal/store"
)

func init() {
	rootCmd.AddCommand(gcCmd)
}

var gcCmd = &cobra.Command{
	Use:   "gc",
	Short: "Remove expired dispatch ledger records",
	Long:  "Deletes terminal dispatch records older than the retention window. Retention must cover the maximum plausible upstream retry window; records younger than that are kept to keep suppressing duplicates.",
	RunE:  runGC,
}

func runGC(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadWithHash(configPath)
	if err != nil {
		return err
	}
	db, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), cfg.StoreTimeout)
	defer cancel()

	n, err := db.GC(ctx, time.Now().UTC().Add(-cfg.Retention))
	if err != nil {
		return err
	}
	fmt.Printf("removed %d dispatch records\n", n)
	return nil
}
