package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/interviewos/internal/events"
)

type eventsCommander struct {
	root      *rootOptions
	natsURL   string
	natsToken string
}

func newEventsCmd(root *rootOptions) *cobra.Command {
	cmder := &eventsCommander{root: root}

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print conversation lifecycle events published by the gateway",
		Long: `Subscribe to the gateway's conversation lifecycle events on NATS and print
one line per event until interrupted.

Examples:
  interview events --nats-url nats://localhost:4222`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.natsURL, "nats-url", os.Getenv("NATS_URL"), "NATS server URL")
	cmd.Flags().StringVar(&cmder.natsToken, "nats-token", os.Getenv("NATS_TOKEN"), "NATS auth token")

	return cmd
}

func (c *eventsCommander) run(ctx context.Context, cmd *cobra.Command) error {
	if c.natsURL == "" {
		return errors.New("no NATS server: set --nats-url or NATS_URL")
	}
	client, err := events.NewClient(c.natsURL, c.natsToken, c.root.logger(cmd))
	if err != nil {
		return err
	}
	defer client.Close()

	var mu sync.Mutex
	out := cmd.OutOrStdout()
	sub, err := client.SubscribeConversations(func(subject string, evt events.ConversationEvent) {
		mu.Lock()
		defer mu.Unlock()
		printEvent(out, subject, evt)
	})
	if err != nil {
		return err
	}
	defer sub.Unsubscribe()

	fmt.Fprintf(out, "Listening for conversation events on %s. Press Ctrl-C to stop.\n", c.natsURL)
	<-ctx.Done()
	return nil
}

func printEvent(out io.Writer, subject string, evt events.ConversationEvent) {
	kind := subject[strings.LastIndex(subject, ".")+1:]
	line := fmt.Sprintf("%s  %-7s %s", evt.Timestamp.UTC().Format(time.TimeOnly), kind, evt.ConversationID)
	if evt.Status != "" && evt.Status != kind {
		line += " (" + evt.Status + ")"
	}
	fmt.Fprintln(out, line)
}
