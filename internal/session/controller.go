// Package session drives one interview conversation from the client side:
// create it through the gateway, expose the meeting URL, and end it on
// request or teardown.
package session

import (
	"context"
	"errors"
	"log/slog"
	"sync"

	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

type State string

const (
	StateIdle     State = "idle"
	StateStarting State = "starting"
	StateReady    State = "ready"
	StateFailed   State = "failed"
)

var (
	// ErrSessionActive is returned when Start is called while a conversation
	// is starting or running. Only one conversation exists at a time.
	ErrSessionActive = errors.New("a conversation is already active")
	ErrNotFailed     = errors.New("retry is only allowed after a failed start")
	// ErrSessionEnded means End ran while the conversation was still being created.
	ErrSessionEnded = errors.New("session ended before the conversation was ready")
)

// Gateway is the local gateway as seen by a client.
type Gateway interface {
	CreateConversation(ctx context.Context, conversationalContext string) (*tavus.Conversation, error)
	EndConversation(ctx context.Context, id string) error
}

type Option func(*Controller)

// WithContext sets the conversational context sent on every start.
func WithContext(s string) Option {
	return func(c *Controller) { c.context = s }
}

// WithOnExit registers the callback that returns the user to their previous view.
func WithOnExit(fn func()) Option {
	return func(c *Controller) { c.onExit = fn }
}

// WithCloser attaches a resource stopped on teardown, typically a caption mirror.
func WithCloser(fn func()) Option {
	return func(c *Controller) { c.closers = append(c.closers, fn) }
}

type Controller struct {
	gw      Gateway
	logger  *slog.Logger
	context string
	onExit  func()
	closers []func()

	mu    sync.Mutex
	state State
	conv  *tavus.Conversation
	err   error
	gen   uint64
}

func New(gw Gateway, logger *slog.Logger, opts ...Option) *Controller {
	c := &Controller{gw: gw, logger: logger, state: StateIdle}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Start creates a conversation. It moves idle|failed → starting → ready|failed.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	if c.state == StateStarting || c.state == StateReady {
		c.mu.Unlock()
		return ErrSessionActive
	}
	c.state = StateStarting
	c.err = nil
	gen := c.gen
	c.mu.Unlock()

	conv, err := c.gw.CreateConversation(ctx, c.context)

	c.mu.Lock()
	if gen != c.gen {
		c.mu.Unlock()
		if err == nil {
			c.endBestEffort(ctx, conv.ID)
		}
		return ErrSessionEnded
	}
	if err != nil {
		c.state = StateFailed
		c.err = err
		c.mu.Unlock()
		c.logger.Error("failed to start interview", "error", err)
		return err
	}
	c.state = StateReady
	c.conv = conv
	c.mu.Unlock()

	c.logger.Info("interview ready", "conversation_id", conv.ID)
	return nil
}

// Retry re-enters starting after a failure.
func (c *Controller) Retry(ctx context.Context) error {
	c.mu.Lock()
	failed := c.state == StateFailed
	c.mu.Unlock()
	if !failed {
		return ErrNotFailed
	}
	return c.Start(ctx)
}

// End ends the active conversation, if any, and hands control back via OnExit.
// Provider failures are logged, never returned: the session is over regardless.
func (c *Controller) End(ctx context.Context) {
	c.mu.Lock()
	conv := c.conv
	c.conv = nil
	c.err = nil
	c.state = StateIdle
	c.gen++
	c.mu.Unlock()

	if conv != nil {
		c.endBestEffort(ctx, conv.ID)
	}
	if c.onExit != nil {
		c.onExit()
	}
}

// Close is the teardown path: attached resources are stopped first, then the
// conversation is ended as by End.
func (c *Controller) Close(ctx context.Context) {
	for _, fn := range c.closers {
		fn()
	}
	c.End(ctx)
}

func (c *Controller) endBestEffort(ctx context.Context, id string) {
	if err := c.gw.EndConversation(ctx, id); err != nil {
		c.logger.Warn("failed to end conversation", "conversation_id", id, "error", err)
		return
	}
	c.logger.Info("conversation ended", "conversation_id", id)
}

func (c *Controller) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// MeetingURL is the URL to embed; empty unless ready.
func (c *Controller) MeetingURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil {
		return ""
	}
	return c.conv.URL
}

func (c *Controller) ConversationID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.conv == nil {
		return ""
	}
	return c.conv.ID
}

// Err is the error behind the failed state.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}
