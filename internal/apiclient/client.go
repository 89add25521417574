// Package apiclient talks to the local interviewos gateway over HTTP.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/MikeSquared-Agency/interviewos/internal/captions"
	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

// APIError is a non-2xx answer from the gateway.
type APIError struct {
	Status  int
	Message string
	Details string
}

func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("HTTP %d: %s (%s)", e.Status, e.Message, e.Details)
	}
	return fmt.Sprintf("HTTP %d: %s", e.Status, e.Message)
}

// Unwrap maps gateway statuses back onto the tavus sentinels.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return tavus.ErrNotFound
	case http.StatusUnauthorized:
		return tavus.ErrUnauthorized
	case http.StatusTooManyRequests:
		return tavus.ErrRateLimited
	}
	return nil
}

type Client struct {
	baseURL string
	client  *http.Client
}

func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 60 * time.Second},
	}
}

// CreateConversation asks the gateway for a new conversation.
func (c *Client) CreateConversation(ctx context.Context, conversationalContext string) (*tavus.Conversation, error) {
	payload := map[string]string{}
	if conversationalContext != "" {
		payload["context"] = conversationalContext
	}
	var conv tavus.Conversation
	if err := c.do(ctx, http.MethodPost, "/api/create-conversation", payload, &conv); err != nil {
		return nil, err
	}
	if conv.URL == "" {
		return nil, errors.New("no conversation URL received")
	}
	return &conv, nil
}

func (c *Client) GetConversation(ctx context.Context, id string) (json.RawMessage, error) {
	var doc json.RawMessage
	if err := c.do(ctx, http.MethodGet, "/api/conversation/"+url.PathEscape(id), nil, &doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func (c *Client) EndConversation(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodPost, "/api/conversation/"+url.PathEscape(id)+"/end", nil, nil)
}

// Captions returns the conversation's rolling transcript.
func (c *Client) Captions(ctx context.Context, id string) (*captions.State, error) {
	var st captions.State
	if err := c.do(ctx, http.MethodGet, "/api/conversation/"+url.PathEscape(id)+"/captions", nil, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("gateway call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var eb struct {
			Error   string `json:"error"`
			Details any    `json:"details"`
		}
		if json.Unmarshal(respBody, &eb) == nil && eb.Error != "" {
			apiErr.Message = eb.Error
			if s, ok := eb.Details.(string); ok {
				apiErr.Details = s
			}
		}
		return apiErr
	}

	if out == nil || len(bytes.TrimSpace(respBody)) == 0 {
		return nil
	}
	if err := json.Unmarshal(respBody, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}
