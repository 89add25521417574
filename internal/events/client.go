package events

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

// Client publishes gateway events to NATS.
type Client struct {
	conn   *nats.Conn
	logger *slog.Logger
}

func NewClient(url, token string, logger *slog.Logger) (*Client, error) {
	opts := []nats.Option{
		nats.Name("interviewos"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", "url", nc.ConnectedUrl())
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &Client{conn: nc, logger: logger}, nil
}

// Publish sends data as JSON. Each message carries a unique Nats-Msg-Id so
// JetStream-backed consumers can drop duplicates after reconnects.
func (c *Client) Publish(subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	msg := nats.NewMsg(subject)
	msg.Data = payload
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, uuid.NewString())
	if err := c.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

// SubscribeConversations delivers every conversation lifecycle event until
// the returned subscription is drained.
func (c *Client) SubscribeConversations(handler func(subject string, evt ConversationEvent)) (*nats.Subscription, error) {
	sub, err := c.conn.Subscribe("interview.conversation.>", func(msg *nats.Msg) {
		var evt ConversationEvent
		if err := json.Unmarshal(msg.Data, &evt); err != nil {
			c.logger.Warn("malformed lifecycle event", "subject", msg.Subject, "error", err)
			return
		}
		handler(msg.Subject, evt)
	})
	if err != nil {
		return nil, fmt.Errorf("subscribe lifecycle events: %w", err)
	}
	return sub, nil
}

// Close flushes pending publishes before disconnecting.
func (c *Client) Close() {
	if err := c.conn.Drain(); err != nil {
		c.logger.Warn("nats drain failed", "error", err)
		c.conn.Close()
	}
}
