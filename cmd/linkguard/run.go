package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/sznuper/linkguard/internal/logging"
	"github.com/sznuper/linkguard/internal/runner"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one monitoring cycle",
	Long:  "Rotates the MAC, probes the link, optionally resets the modem and sends the summary. Use --dry-run to skip e-mail and only validate notification services.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		dryRun, _ := cmd.Flags().GetBool("dry-run")
		noRelay, _ := cmd.Flags().GetBool("no-relay")

		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		// The spinner owns the terminal: info logs are raised to warn.
		interactive := logging.IsTerminal(os.Stdout) && cfg.Options.LogLevel != "debug"
		level := cfg.Options.LogLevel
		if interactive && (level == "info" || level == "") {
			level = "warn"
		}
		logger := setupLogger(level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		r := runner.New(cfg, logger)
		opts := runner.RunOptions{DryRun: dryRun, NoRelay: noRelay}

		var res runner.Result
		if interactive {
			res, err = runWithSpinner(ctx, r, opts)
			if err != nil {
				return err
			}
		} else {
			res = r.RunOnce(ctx, opts)
		}

		printResult(res)
		if res.Err != nil {
			os.Exit(1)
		}
		return nil
	},
}

func init() {
	runCmd.Flags().Bool("dry-run", false, "run the probes without sending e-mail; only validate notification services")
	runCmd.Flags().Bool("no-relay", false, "never pulse the relay")
	rootCmd.AddCommand(runCmd)
}

func printResult(r runner.Result) {
	header := fmt.Sprintf("Run %s: %s (%s)", r.RunID, strings.ToUpper(r.Status), r.Duration.Round(time.Millisecond))
	fmt.Println(statusStyle(r.Status).Render(header))

	for _, rep := range r.Reports {
		mark := okStyle.Render("✓")
		if !rep.PingOK {
			mark = errStyle.Render("✗")
		}
		fmt.Printf("%s %s %s\n", mark, labelStyle.Render(string(rep.Label)), dimStyle.Render(rep.Stamp()))
		fmt.Printf("  MAC: %s  IP: %s\n", rep.MAC, rep.IP)
		fmt.Printf("  %s\n", rep.LogResult())
	}

	if r.RelayErr != nil {
		fmt.Println(warnStyle.Render(fmt.Sprintf("  Relay: %s", r.RelayErr)))
	}

	if len(r.Attachments) > 0 {
		names := make([]string, len(r.Attachments))
		for i, a := range r.Attachments {
			names[i] = filepath.Base(a)
		}
		fmt.Printf("  Attachments: %s\n", strings.Join(names, ", "))
	}

	for svc, msg := range r.Rendered {
		fmt.Printf("  Rendered (%s): %q\n", svc, msg)
	}

	if len(r.Notified) > 0 {
		label := "Notified"
		if r.DryRun {
			label = "Would notify"
		}
		fmt.Printf("  %s: %s\n", label, strings.Join(r.Notified, ", "))
	}

	if r.Err != nil {
		fmt.Println(errStyle.Render(fmt.Sprintf("  Error (%s): %s", r.ErrStage, r.Err)))
	}
}
