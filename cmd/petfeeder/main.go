/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/friendsincode/petfeeder/internal/history"
	"github.com/friendsincode/petfeeder/internal/version"
)

// actions are the things the command line can ask the feeder to do.
type actions struct {
	run      func(ctx context.Context) error
	test     func(ctx context.Context, open time.Duration) error
	schedule func(ctx context.Context, out, errOut io.Writer) error
	history  func(ctx context.Context, limit int, out, errOut io.Writer) error
}

func newRootCmd(a actions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "petfeeder [duration-ms]",
		Short: "Scheduled pet feeder controller",
		Long: "petfeeder drives one or two dispenser servos on a weekly feeding schedule.\n" +
			"Without arguments it runs the feeding loop. With a single number it opens every\n" +
			"enabled dispenser once for that many milliseconds and exits.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 0 {
				return a.run(cmd.Context())
			}
			open, err := parseMillis(args[0])
			if err != nil {
				return err
			}
			return a.test(cmd.Context(), open)
		},
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "run",
			Short: "Run the feeding loop",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.run(cmd.Context())
			},
		},
		&cobra.Command{
			Use:   "test <duration-ms>",
			Short: "Open every enabled dispenser once and exit",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				open, err := parseMillis(args[0])
				if err != nil {
					return err
				}
				return a.test(cmd.Context(), open)
			},
		},
		&cobra.Command{
			Use:   "schedule",
			Short: "Print the active feeding schedule as YAML",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				return a.schedule(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr())
			},
		},
		&cobra.Command{
			Use:   "history [count]",
			Short: "List the most recent journaled feedings",
			Args:  cobra.MaximumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				limit := history.DefaultRecentLimit
				if len(args) == 1 {
					n, err := strconv.Atoi(args[0])
					if err != nil || n <= 0 {
						return fmt.Errorf("invalid count %q: expected a positive whole number", args[0])
					}
					limit = n
				}
				return a.history(cmd.Context(), limit, cmd.OutOrStdout(), cmd.ErrOrStderr())
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), version.String())
			},
		},
	)

	return rootCmd
}

// parseMillis parses a positive whole number of milliseconds.
func parseMillis(s string) (time.Duration, error) {
	ms, err := strconv.ParseUint(s, 10, 32)
	if err != nil || ms == 0 {
		return 0, fmt.Errorf("invalid duration %q: expected a positive whole number of milliseconds", s)
	}
	return time.Duration(ms) * time.Millisecond, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(defaultActions()).ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		stop()
		os.Exit(1)
	}
}
