package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rizkypratama/dlpguard/internal/ingest"
	"github.com/rizkypratama/dlpguard/internal/model"
	"github.com/rizkypratama/dlpguard/internal/service"
)

var processSource string

func init() {
	rootCmd.AddCommand(processCmd)
	processCmd.Flags().StringVar(&processSource, "source", "manual", "Upstream source of the payload (sentinel, purview, eventgrid, manual)")
}

var processCmd = &cobra.Command{
	Use:   "process [file]",
	Short: "Run one event payload through the engine",
	Long:  "Normalizes an upstream payload (or stdin) into a violation event and processes it: claim, detect, decide, record, and hand off intents. Duplicate deliveries are reported as such and exit 0.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runProcess,
}

func runProcess(cmd *cobra.Command, args []string) error {
	var data []byte
	var err error
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	source, known := model.NormalizeSource(processSource)
	if !known {
		fmt.Fprintf(os.Stderr, "unknown source %q, treating as manual\n", processSource)
	}

	event, err := ingest.Normalize(source, data)
	if err != nil {
		return err
	}

	svc, err := service.New(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	out, err := svc.Pipeline().Process(context.Background(), event)
	if err != nil {
		return err
	}

	result := map[string]any{
		"status":       string(out.Status),
		"incident_key": event.DedupKey(),
		"delivery_id":  out.DeliveryID,
		"claim":        out.Claim.String(),
	}
	if out.Decision != nil {
		result["decision"] = out.Decision
	}
	if out.EnforceErr != nil {
		result["enforce_error"] = out.EnforceErr.Error()
	}
	enc, _ := json.MarshalIndent(result, "", "  ")
	fmt.Println(string(enc))
	return nil
}
