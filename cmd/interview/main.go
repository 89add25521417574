package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	gatewayURL string
	logLevel   string
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "interview",
		Short:         "Run AI mock interviews through an interviewos gateway",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	defaultURL := os.Getenv("INTERVIEWOS_URL")
	if defaultURL == "" {
		defaultURL = "http://localhost:3001"
	}
	cmd.PersistentFlags().StringVar(&opts.gatewayURL, "gateway", defaultURL, "Base URL of the interviewos gateway")
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	cmd.AddCommand(
		newStartCmd(opts),
		newStatusCmd(opts),
		newEndCmd(opts),
		newCaptionsCmd(opts),
		newEventsCmd(opts),
	)
	return cmd
}

func (o *rootOptions) logger(cmd *cobra.Command) *slog.Logger {
	var lvl slog.Level
	switch o.logLevel {
	case "debug":
		lvl = slog.LevelDebug
	case "info":
		lvl = slog.LevelInfo
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelWarn
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: lvl}))
}
