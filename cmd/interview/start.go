package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/interviewos/internal/apiclient"
	"github.com/MikeSquared-Agency/interviewos/internal/session"
)

const startLongDesc = `Start an AI interview and print its meeting URL.

The conversation stays open until you press Ctrl-C, at which point it is
ended on the provider. Failed starts can be retried automatically.

With --captions the rolling transcript is printed as it grows, until the
interview ends.

Examples:
  interview start
  interview start --captions
  interview start --retries 2 --context "Senior Go engineer screen"`

type startCommander struct {
	root     *rootOptions
	context  string
	retries  int
	backoff  time.Duration
	captions bool
	interval time.Duration
}

func newStartCmd(root *rootOptions) *cobra.Command {
	cmder := &startCommander{root: root}

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start an interview and keep it open until interrupted",
		Long:  startLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmder.run(cmd.Context(), cmd)
		},
	}

	cmd.Flags().StringVar(&cmder.context, "context", "", "Conversational context for the interviewer")
	cmd.Flags().IntVar(&cmder.retries, "retries", 0, "Times to retry a failed start")
	cmd.Flags().DurationVar(&cmder.backoff, "retry-wait", 3*time.Second, "Wait between retries")
	cmd.Flags().BoolVar(&cmder.captions, "captions", false, "Follow the caption transcript while the interview runs")
	cmd.Flags().DurationVar(&cmder.interval, "captions-interval", 2*time.Second, "Caption polling interval")

	return cmd
}

func (c *startCommander) run(ctx context.Context, cmd *cobra.Command) error {
	out := &syncWriter{w: cmd.OutOrStdout()}
	logger := c.root.logger(cmd)
	client := apiclient.New(c.root.gatewayURL)
	follower := &captionFollower{}
	ctrl := session.New(client, logger,
		session.WithContext(c.context),
		session.WithOnExit(func() { fmt.Fprintln(out, "Interview ended.") }),
		session.WithCloser(follower.stop),
	)

	fmt.Fprintln(out, "Preparing your AI interview...")
	err := ctrl.Start(ctx)
	for attempt := 0; err != nil && attempt < c.retries; attempt++ {
		fmt.Fprintf(out, "Connection failed: %v\nRetrying in %s...\n", err, c.backoff)
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(c.backoff):
		}
		err = ctrl.Retry(ctx)
	}
	if err != nil {
		return fmt.Errorf("could not start interview: %w", err)
	}

	fmt.Fprintf(out, "Interview ready: %s\nConversation ID: %s\nPress Ctrl-C to end.\n",
		ctrl.MeetingURL(), ctrl.ConversationID())

	if c.captions {
		poller := &captionsCommander{root: c.root, follow: true, interval: c.interval}
		follower.start(ctx, logger, func(ctx context.Context) error {
			return poller.run(ctx, out, ctrl.ConversationID())
		})
	}

	<-ctx.Done()

	// The interrupt cancelled ctx; ending needs a fresh deadline.
	endCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	ctrl.Close(endCtx)
	return nil
}

// captionFollower runs the caption poller for the life of a session. stop
// cancels it and waits, so nothing is printed after it returns.
type captionFollower struct {
	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func (f *captionFollower) start(ctx context.Context, logger *slog.Logger, run func(context.Context) error) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	f.mu.Lock()
	f.cancel, f.done = cancel, done
	f.mu.Unlock()

	go func() {
		defer close(done)
		if err := run(ctx); err != nil {
			logger.Warn("caption follow stopped", "error", err)
		}
	}()
}

func (f *captionFollower) stop() {
	f.mu.Lock()
	cancel, done := f.cancel, f.done
	f.cancel, f.done = nil, nil
	f.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// syncWriter serializes writes from the session and the caption follower.
type syncWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (s *syncWriter) Write(p []byte) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.w.Write(p)
}
