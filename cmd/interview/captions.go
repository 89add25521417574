package main

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/interviewos/internal/apiclient"
	"github.com/MikeSquared-Agency/interviewos/internal/captions"
)

type captionsCommander struct {
	root     *rootOptions
	follow   bool
	interval time.Duration
}

func newCaptionsCmd(root *rootOptions) *cobra.Command {
	cmder := &captionsCommander{root: root}

	cmd := &cobra.Command{
		Use:   "captions <conversation-id>",
		Short: "Print the rolling caption transcript of a conversation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd.OutOrStdout(), args[0])
		},
	}

	cmd.Flags().BoolVarP(&cmder.follow, "follow", "f", false, "Keep polling until interrupted")
	cmd.Flags().DurationVar(&cmder.interval, "interval", 2*time.Second, "Polling interval with --follow")

	return cmd
}

func (c *captionsCommander) run(ctx context.Context, out io.Writer, id string) error {
	client := apiclient.New(c.root.gatewayURL)
	var last []captions.Entry

	for {
		st, err := client.Captions(ctx, id)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("could not get captions: %w", err)
		}
		if !c.follow {
			printState(out, st)
			return nil
		}
		for _, e := range newEntries(last, st.Entries) {
			fmt.Fprintf(out, "%-9s %s\n", e.Role+":", e.Text)
		}
		last = st.Entries

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(c.interval):
		}
	}
}

func printState(out io.Writer, st *captions.State) {
	for _, e := range st.Entries {
		fmt.Fprintf(out, "%-9s %s\n", e.Role+":", e.Text)
	}
	if st.LiveAssistant != "" {
		fmt.Fprintf(out, "[assistant, live] %s\n", st.LiveAssistant)
	}
	if st.LiveUser != "" {
		fmt.Fprintf(out, "[you, live] %s\n", st.LiveUser)
	}
}

// newEntries returns the suffix of cur not already shown in prev. The buffer
// drops from the front, so the overlap is the longest suffix of prev that
// prefixes cur.
func newEntries(prev, cur []captions.Entry) []captions.Entry {
	for start := 0; start < len(prev); start++ {
		overlap := prev[start:]
		if len(overlap) > len(cur) {
			continue
		}
		match := true
		for i := range overlap {
			if overlap[i] != cur[i] {
				match = false
				break
			}
		}
		if match {
			return cur[len(overlap):]
		}
	}
	return cur
}
