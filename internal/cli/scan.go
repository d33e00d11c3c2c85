package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/rizkypratama/dlpguard/internal/config"
	"github.com/rizkypratama/dlpguard/internal/detect"
)

var scanJSON bool

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().BoolVar(&scanJSON, "json", false, "Emit findings as JSON")
}

var scanCmd = &cobra.Command{
	Use:   "scan [file]",
	Short: "Scan text for sensitive data and print the masked form",
	Long:  "Runs the detector over a file (or stdin when no file is given) and prints the masked findings. Raw values are never printed.",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScan,
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, _, err := config.LoadWithHash(configPath)
	if err != nil {
		return err
	}
	detector, err := detect.New(&cfg.Detect)
	if err != nil {
		return err
	}

	var data []byte
	if len(args) == 1 {
		data, err = os.ReadFile(args[0])
	} else {
		data, err = io.ReadAll(os.Stdin)
	}
	if err != nil {
		return fmt.Errorf("read input: %w", err)
	}

	text := string(data)
	findings := detector.Scan(text)

	if scanJSON {
		out, _ := json.MarshalIndent(findings, "", "  ")
		fmt.Println(string(out))
		return nil
	}

	if len(findings) == 0 {
		fmt.Println("no sensitive data detected")
		return nil
	}
	for _, f := range findings {
		fmt.Printf("%-12s %s (at %d)\n", f.Kind, f.Masked, f.Start)
	}
	fmt.Println("---")
	fmt.Println(detector.Mask(text))
	return nil
}
