package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/MikeSquared-Agency/interviewos/internal/api"
	"github.com/MikeSquared-Agency/interviewos/internal/captions"
	"github.com/MikeSquared-Agency/interviewos/internal/session"
	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

// upstream fakes the Tavus API so the client can be exercised against the real gateway.
func upstream(t *testing.T, createStatus int) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("POST /v2/conversations", func(w http.ResponseWriter, r *http.Request) {
		if createStatus != http.StatusOK {
			w.WriteHeader(createStatus)
			w.Write([]byte(`{"message":"nope"}`))
			return
		}
		json.NewEncoder(w).Encode(map[string]string{
			"conversation_id":  "c1",
			"conversation_url": "https://tavus.daily.co/c1",
			"status":           "active",
		})
	})
	mux.HandleFunc("GET /v2/conversations/{id}", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "c1" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Write([]byte(`{"conversation_id":"c1","status":"active"}`))
	})
	mux.HandleFunc("POST /v2/conversations/{id}/end", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"ended"}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func gateway(t *testing.T, createStatus int) *httptest.Server {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	up := upstream(t, createStatus)
	srv := api.NewServer(api.Options{PersonaID: "p760a9e07b91", ReplicaID: "rb17cf590e15"},
		tavus.NewClient("tk-test", up.URL, logger),
		captions.NewHub(captions.DefaultCapacity, logger), nil, logger)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func TestClientLifecycle(t *testing.T) {
	c := New(gateway(t, http.StatusOK).URL)
	ctx := context.Background()

	conv, err := c.CreateConversation(ctx, "mock interview")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if conv.ID != "c1" || conv.URL != "https://tavus.daily.co/c1" || conv.Status != "active" {
		t.Errorf("unexpected conversation %+v", conv)
	}

	doc, err := c.GetConversation(ctx, "c1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if string(doc) == "" {
		t.Error("expected document")
	}

	st, err := c.Captions(ctx, "c1")
	if err != nil {
		t.Fatalf("captions: %v", err)
	}
	if len(st.Entries) != 0 {
		t.Errorf("expected empty transcript, got %+v", st)
	}

	if err := c.EndConversation(ctx, "c1"); err != nil {
		t.Fatalf("end: %v", err)
	}
}

func TestClientNotFound(t *testing.T) {
	c := New(gateway(t, http.StatusOK).URL)

	_, err := c.GetConversation(context.Background(), "missing")
	if !errors.Is(err, tavus.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.Message != "Conversation not found" {
		t.Errorf("expected gateway message, got %v", err)
	}
}

func TestSessionAgainstGateway(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	c := New(gateway(t, http.StatusTooManyRequests).URL)
	ctrl := session.New(c, logger)

	err := ctrl.Start(context.Background())
	if !errors.Is(err, tavus.ErrRateLimited) {
		t.Fatalf("expected rate limited, got %v", err)
	}
	if ctrl.State() != session.StateFailed {
		t.Errorf("expected failed state, got %s", ctrl.State())
	}
}
