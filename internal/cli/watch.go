package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rizkypratama/dlpguard/internal/service"
)

func init() {
	rootCmd.AddCommand(watchCmd)
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Watch the inbox directory and process event envelopes",
	Long:  "Runs the engine as a long-lived process: transport adapters drop envelope files into the inbox, each is processed once, and the config file is hot-reloaded on change. Stops on SIGINT/SIGTERM.",
	RunE:  runWatch,
}

func runWatch(cmd *cobra.Command, args []string) error {
	svc, err := service.New(configPath)
	if err != nil {
		return err
	}
	defer svc.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "watching %s\n", svc.Config().InboxDir)
	return svc.Run(ctx)
}
