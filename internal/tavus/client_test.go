package tavus

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

const (
	testKey     = "tk-0123456789abcdef"
	testPersona = "p760a9e07b91"
	testReplica = "rb17cf590e15"
)

func newTestClient(url string, logs io.Writer) *Client {
	if logs == nil {
		logs = io.Discard
	}
	return NewClient(testKey, url, slog.New(slog.NewJSONHandler(logs, &slog.HandlerOptions{Level: slog.LevelDebug})))
}

func TestCreateConversation_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v2/conversations" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("x-api-key") != testKey {
			t.Errorf("expected x-api-key %s, got %q", testKey, r.Header.Get("x-api-key"))
		}
		if r.Header.Get("Content-Type") != "application/json" {
			t.Errorf("expected Content-Type application/json, got %q", r.Header.Get("Content-Type"))
		}

		var req createRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if req.PersonaID != testPersona || req.ReplicaID != testReplica {
			t.Errorf("unexpected persona/replica: %q/%q", req.PersonaID, req.ReplicaID)
		}
		if req.ConversationName != "AI Interview Experience" {
			t.Errorf("unexpected conversation name %q", req.ConversationName)
		}
		if req.ConversationalContext != "be nice" {
			t.Errorf("expected context passthrough, got %q", req.ConversationalContext)
		}
		if req.Properties.MaxCallDuration != 1800 {
			t.Errorf("expected max_call_duration 1800, got %d", req.Properties.MaxCallDuration)
		}
		if req.Properties.ParticipantLeftTimeout != 120 {
			t.Errorf("expected participant_left_timeout 120, got %d", req.Properties.ParticipantLeftTimeout)
		}
		if req.Properties.EnableRecording {
			t.Error("expected recording disabled")
		}

		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{
			"conversation_id":  "c123",
			"conversation_url": "https://tavus.daily.co/c123",
			"status":           "active",
		})
	}))
	defer server.Close()

	c := newTestClient(server.URL, nil)

	conv, err := c.CreateConversation(context.Background(), testPersona, testReplica, "be nice")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.ID != "c123" {
		t.Errorf("expected id c123, got %q", conv.ID)
	}
	if conv.URL != "https://tavus.daily.co/c123" {
		t.Errorf("unexpected url %q", conv.URL)
	}
	if conv.Status != "active" {
		t.Errorf("expected status active, got %q", conv.Status)
	}
}

func TestCreateConversation_DefaultsContextAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req createRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.ConversationalContext != DefaultContext {
			t.Errorf("expected default context, got %q", req.ConversationalContext)
		}
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"conversation_id":"c1","conversation_url":"https://example.test/c1"}`))
	}))
	defer server.Close()

	conv, err := newTestClient(server.URL, nil).CreateConversation(context.Background(), testPersona, testReplica, "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if conv.Status != "created" {
		t.Errorf("expected default status created, got %q", conv.Status)
	}
}

func TestCreateConversation_MissingURL(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"conversation_id":"c1"}`))
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).CreateConversation(context.Background(), testPersona, testReplica, "")
	var upErr *UpstreamError
	if !errors.As(err, &upErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if StatusFor(err) != http.StatusInternalServerError {
		t.Errorf("expected 500 mapping, got %d", StatusFor(err))
	}
}

func TestCreateConversation_UpstreamStatuses(t *testing.T) {
	cases := []struct {
		status   int
		sentinel error
		local    int
	}{
		{http.StatusUnauthorized, ErrUnauthorized, http.StatusUnauthorized},
		{http.StatusNotFound, ErrNotFound, http.StatusNotFound},
		{http.StatusTooManyRequests, ErrRateLimited, http.StatusTooManyRequests},
		{http.StatusBadRequest, nil, http.StatusInternalServerError},
		{http.StatusServiceUnavailable, nil, http.StatusInternalServerError},
	}

	for _, tc := range cases {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
			w.Write([]byte(`{"message":"nope"}`))
		}))

		_, err := newTestClient(server.URL, nil).CreateConversation(context.Background(), testPersona, testReplica, "")
		server.Close()

		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("status %d: expected UpstreamError, got %v", tc.status, err)
		}
		if upErr.Status != tc.status {
			t.Errorf("expected upstream status %d, got %d", tc.status, upErr.Status)
		}
		if upErr.Body != `{"message":"nope"}` {
			t.Errorf("expected body forwarded, got %q", upErr.Body)
		}
		if tc.sentinel != nil && !errors.Is(err, tc.sentinel) {
			t.Errorf("status %d: expected errors.Is %v", tc.status, tc.sentinel)
		}
		if got := StatusFor(err); got != tc.local {
			t.Errorf("status %d: expected local status %d, got %d", tc.status, tc.local, got)
		}
	}
}

func TestCreateConversation_ValidatesIDs(t *testing.T) {
	c := newTestClient("http://127.0.0.1:0", nil)

	_, err := c.CreateConversation(context.Background(), "", testReplica, "")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if StatusFor(err) != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", StatusFor(err))
	}
}

func TestGetAndEndConversation_NotFound(t *testing.T) {
	var paths []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		paths = append(paths, r.Method+" "+r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"conversation not found"}`))
	}))
	defer server.Close()

	c := newTestClient(server.URL, nil)

	if _, err := c.GetConversation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("get: expected ErrNotFound, got %v", err)
	}
	if _, err := c.EndConversation(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("end: expected ErrNotFound, got %v", err)
	}

	want := []string{"GET /v2/conversations/missing", "POST /v2/conversations/missing/end"}
	if len(paths) != 2 || paths[0] != want[0] || paths[1] != want[1] {
		t.Errorf("unexpected upstream calls %v", paths)
	}
}

func TestGetConversation_Passthrough(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"conversation_id":"c1","status":"active","extra":{"a":1}}`))
	}))
	defer server.Close()

	doc, err := newTestClient(server.URL, nil).GetConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(doc, &m); err != nil {
		t.Fatalf("invalid doc: %v", err)
	}
	if m["status"] != "active" || m["extra"] == nil {
		t.Errorf("expected passthrough document, got %s", doc)
	}
}

func TestEndConversation_EmptyBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	doc, err := newTestClient(server.URL, nil).EndConversation(context.Background(), "c1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(doc) != "{}" {
		t.Errorf("expected empty object, got %s", doc)
	}
}

func TestPassthrough_EmptyIDMakesNoCall(t *testing.T) {
	called := false
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		called = true
	}))
	defer server.Close()

	_, err := newTestClient(server.URL, nil).EndConversation(context.Background(), " ")
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if called {
		t.Error("expected no upstream call for empty id")
	}
}

func TestLogsNeverContainSecrets(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Echo the request back in an error so the secrets reach the failure log path.
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		w.Write(body)
		w.Write([]byte(r.Header.Get("x-api-key")))
	}))
	defer server.Close()

	var logs bytes.Buffer
	c := newTestClient(server.URL, &logs)

	if _, err := c.CreateConversation(context.Background(), testPersona, testReplica, ""); err == nil {
		t.Fatal("expected error")
	}
	c.GetConversation(context.Background(), "c1")

	out := logs.String()
	for _, secret := range []string{testKey, testPersona, testReplica} {
		if strings.Contains(out, secret) {
			t.Errorf("log output contains unmasked secret %q", secret)
		}
	}
	if !strings.Contains(out, Mask(testPersona)) {
		t.Errorf("expected masked persona id in logs")
	}
}

func TestUpstreamErrorBodyIsMasked(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.WriteHeader(http.StatusBadRequest)
		w.Write(body)
		w.Write([]byte(" key=" + r.Header.Get("x-api-key") + " persona=" + testPersona))
	}))
	defer server.Close()

	c := newTestClient(server.URL, nil)
	c.Redact(testPersona, testReplica)

	_, createErr := c.CreateConversation(context.Background(), testPersona, testReplica, "")
	_, getErr := c.GetConversation(context.Background(), "c1")

	for name, err := range map[string]error{"create": createErr, "get": getErr} {
		var upErr *UpstreamError
		if !errors.As(err, &upErr) {
			t.Fatalf("%s: expected UpstreamError, got %v", name, err)
		}
		for _, secret := range []string{testKey, testPersona, testReplica} {
			if strings.Contains(err.Error(), secret) {
				t.Errorf("%s: error contains unmasked secret %q", name, secret)
			}
		}
		if !strings.Contains(upErr.Body, Mask(testPersona)) {
			t.Errorf("%s: expected masked persona in body %q", name, upErr.Body)
		}
	}
}
