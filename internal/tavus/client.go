package tavus

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

const (
	DefaultBaseURL = "https://tavusapi.com"

	conversationName       = "AI Interview Experience"
	maxCallDuration        = 1800 // 30 minutes
	participantLeftTimeout = 120  // 2 minutes
)

// DefaultContext is used when the caller supplies no conversational context.
const DefaultContext = "You are a professional AI interviewer. Conduct a friendly but professional interview, " +
	"asking about the candidate's background, experience, and career goals. Keep the conversation natural " +
	"and engaging. Ask follow-up questions based on their responses."

type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
	logger  *slog.Logger

	mu      sync.RWMutex
	secrets []string
}

func NewClient(apiKey, baseURL string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: 30 * time.Second},
		logger:  logger,
		secrets: []string{apiKey},
	}
}

// Redact registers values, such as persona and replica ids, that must never
// leave the client unmasked in logs or errors.
func (c *Client) Redact(values ...string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, v := range values {
		if v != "" {
			c.secrets = append(c.secrets, v)
		}
	}
}

func (c *Client) mask(text string, extra ...string) string {
	c.mu.RLock()
	secrets := append(append([]string(nil), c.secrets...), extra...)
	c.mu.RUnlock()
	// Longest first so a secret containing another is masked whole.
	sort.Slice(secrets, func(i, j int) bool { return len(secrets[i]) > len(secrets[j]) })
	return maskAll(text, secrets...)
}

// Configured reports whether an API key is present.
func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Conversation is a provider-hosted video call session.
type Conversation struct {
	ID     string `json:"conversation_id"`
	URL    string `json:"conversation_url"`
	Status string `json:"status"`
}

type properties struct {
	MaxCallDuration        int    `json:"max_call_duration"`
	ParticipantLeftTimeout int    `json:"participant_left_timeout"`
	EnableRecording        bool   `json:"enable_recording"`
	Language               string `json:"language"`
}

type createRequest struct {
	PersonaID             string     `json:"persona_id"`
	ReplicaID             string     `json:"replica_id"`
	ConversationName      string     `json:"conversation_name"`
	ConversationalContext string     `json:"conversational_context"`
	Properties            properties `json:"properties"`
}

// CreateConversation starts a new conversation for the given persona and replica.
func (c *Client) CreateConversation(ctx context.Context, personaID, replicaID, conversationalContext string) (*Conversation, error) {
	if personaID == "" {
		return nil, &ValidationError{Field: "persona_id", Message: "is required"}
	}
	if replicaID == "" {
		return nil, &ValidationError{Field: "replica_id", Message: "is required"}
	}
	if conversationalContext == "" {
		conversationalContext = DefaultContext
	}

	reqBody := createRequest{
		PersonaID:             personaID,
		ReplicaID:             replicaID,
		ConversationName:      conversationName,
		ConversationalContext: conversationalContext,
		Properties: properties{
			MaxCallDuration:        maxCallDuration,
			ParticipantLeftTimeout: participantLeftTimeout,
			EnableRecording:        false,
			Language:               "English",
		},
	}

	c.logger.Info("creating conversation",
		"persona_id", Mask(personaID),
		"replica_id", Mask(replicaID),
		"conversation_name", reqBody.ConversationName,
		"max_call_duration", reqBody.Properties.MaxCallDuration,
		"participant_left_timeout", reqBody.Properties.ParticipantLeftTimeout,
	)

	status, respBody, err := c.do(ctx, http.MethodPost, "/v2/conversations", reqBody)
	if err != nil {
		return nil, err
	}

	c.logger.Info("tavus create response", "status", status)
	if status < 200 || status > 299 {
		body := c.mask(string(respBody), personaID, replicaID)
		c.logger.Warn("tavus create failed", "status", status, "body", body)
		return nil, &UpstreamError{Status: status, Body: body}
	}

	var conv Conversation
	if err := json.Unmarshal(respBody, &conv); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if conv.URL == "" {
		c.logger.Error("no conversation_url in response", "conversation_id", conv.ID)
		return nil, &UpstreamError{Status: http.StatusBadGateway, Body: "no conversation_url in provider response"}
	}
	if conv.Status == "" {
		conv.Status = "created"
	}
	return &conv, nil
}

// GetConversation returns the provider's document for a conversation.
func (c *Client) GetConversation(ctx context.Context, id string) (json.RawMessage, error) {
	return c.passthrough(ctx, http.MethodGet, id, "")
}

// EndConversation asks the provider to terminate a conversation.
func (c *Client) EndConversation(ctx context.Context, id string) (json.RawMessage, error) {
	return c.passthrough(ctx, http.MethodPost, id, "/end")
}

func (c *Client) passthrough(ctx context.Context, method, id, suffix string) (json.RawMessage, error) {
	if strings.TrimSpace(id) == "" {
		return nil, &ValidationError{Field: "conversation_id", Message: "is required"}
	}

	status, respBody, err := c.do(ctx, method, "/v2/conversations/"+url.PathEscape(id)+suffix, nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status > 299 {
		body := c.mask(string(respBody))
		c.logger.Warn("tavus call failed",
			"method", method,
			"conversation_id", id,
			"status", status,
			"body", body,
		)
		return nil, &UpstreamError{Status: status, Body: body}
	}

	if len(bytes.TrimSpace(respBody)) == 0 {
		return json.RawMessage("{}"), nil
	}
	if !json.Valid(respBody) {
		return nil, fmt.Errorf("unmarshal response: invalid JSON from provider")
	}
	return json.RawMessage(respBody), nil
}

func (c *Client) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("api call: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, respBody, nil
}
