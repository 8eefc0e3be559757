package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/sznuper/linkguard/internal/runner"
)

var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the monitoring daemon",
	Long:  "Runs cycles on the configured trigger (interval cooldown, cron schedule or file watch) until interrupted.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		noRelay, _ := cmd.Flags().GetBool("no-relay")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		logger := setupLogger(cfg.Options.LogLevel)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		return runner.New(cfg, logger).Start(ctx, runner.RunOptions{NoRelay: noRelay})
	},
}

func init() {
	startCmd.Flags().Bool("no-relay", false, "never pulse the relay")
	rootCmd.AddCommand(startCmd)
}
