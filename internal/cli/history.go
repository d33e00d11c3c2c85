package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rizkypratama/dlpguard/internal/config"
	"github.com/rizkypratama/dlpguard/internal/detect"
	"github.com/rizkypratama/dlpguard/internal/store"
)

var (
	historyLimit  int
	historyOffset int
)

func init() {
	rootCmd.AddCommand(historyCmd)
	historyCmd.Flags().IntVarP(&historyLimit, "limit", "n", 50, "Maximum records to show")
	historyCmd.Flags().IntVar(&historyOffset, "offset", 0, "Records to skip")
}

var historyCmd = &cobra.Command{
	Use:   "history [user]",
	Short: "List recorded offenses",
	Long:  "Lists offenses for one user, or the most recent offenses across all users when no user is given. Principal names are masked on output.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runHistory,
}

func runHistory(cmd *cobra.Command, args []string) error {
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

	var offenses []store.Offense
	if len(args) == 1 {
		offenses, err = db.ListForUser(ctx, args[0])
	} else {
		offenses, err = db.ListRecent(ctx, historyLimit, historyOffset)
	}
	if err != nil {
		return err
	}

	type row struct {
		ID          int64  `json:"id"`
		User        string `json:"user"`
		Title       string `json:"title"`
		IncidentKey string `json:"incident_key"`
		Timestamp   string `json:"timestamp"`
	}
	rows := make([]row, len(offenses))
	for i, o := range offenses {
		rows[i] = row{
			ID:          o.ID,
			User:        detect.MaskEmail(o.UserUPN),
			Title:       o.Title,
			IncidentKey: o.IncidentKey,
			Timestamp:   o.Timestamp.Format("2006-01-02T15:04:05Z"),
		}
	}
	out, _ := json.MarshalIndent(rows, "", "  ")
	fmt.Println(string(out))
	return nil
}
