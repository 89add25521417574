package captions

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
)

var ErrUnknownConversation = errors.New("no captions for conversation")

// ClientFrame is a message a viewer sends over the caption socket.
type ClientFrame struct {
	Type       string `json:"type"` // "speech", "frame" or "unsupported"
	Transcript string `json:"transcript,omitempty"`
	Final      bool   `json:"final,omitempty"`
	Role       string `json:"role,omitempty"`
	Content    string `json:"content,omitempty"`
}

type hubEntry struct {
	mirror      *Mirror
	recognizer  *StreamRecognizer
	pool        *ConnectionPool
	unsubscribe func()
}

// Hub owns one Mirror per conversation and the sockets watching it.
type Hub struct {
	capacity int
	logger   *slog.Logger

	mu      sync.Mutex
	entries map[string]*hubEntry
}

func NewHub(capacity int, logger *slog.Logger) *Hub {
	return &Hub{
		capacity: capacity,
		logger:   logger,
		entries:  make(map[string]*hubEntry),
	}
}

// Open returns the mirror for convID, creating it on first use.
func (h *Hub) Open(convID string) *Mirror {
	h.mu.Lock()
	defer h.mu.Unlock()
	if e, ok := h.entries[convID]; ok {
		return e.mirror
	}

	logger := h.logger.With("conversation_id", convID)
	e := &hubEntry{
		mirror:     NewMirror(h.capacity, logger),
		recognizer: NewStreamRecognizer(0),
		pool:       NewConnectionPool(convID, logger),
	}
	pool := e.pool
	e.unsubscribe = e.mirror.Subscribe(func(s State) {
		data, err := json.Marshal(s)
		if err != nil {
			logger.Warn("failed to marshal caption state", "error", err)
			return
		}
		pool.Broadcast(data)
	})
	if err := e.mirror.Listen(context.Background(), e.recognizer); err != nil {
		logger.Warn("failed to start caption recognizer", "error", err)
	}
	h.entries[convID] = e
	logger.Debug("caption mirror opened")
	return e.mirror
}

func (h *Hub) Get(convID string) (*Mirror, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[convID]
	if !ok {
		return nil, false
	}
	return e.mirror, true
}

func (h *Hub) entry(convID string) (*hubEntry, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	e, ok := h.entries[convID]
	if !ok {
		return nil, ErrUnknownConversation
	}
	return e, nil
}

// HandleClientFrame applies one inbound socket message to the conversation's mirror.
func (h *Hub) HandleClientFrame(convID string, raw []byte) error {
	e, err := h.entry(convID)
	if err != nil {
		return err
	}
	var f ClientFrame
	if err := json.Unmarshal(raw, &f); err != nil {
		return err
	}
	switch f.Type {
	case "speech":
		return e.recognizer.Push(Result{Transcript: f.Transcript, Final: f.Final})
	case "frame":
		e.mirror.Apply(FrameMessage{Role: f.Role, Content: f.Content})
	case "unsupported":
		e.mirror.DisableRecognition()
	default:
		h.logger.Debug("ignoring caption frame", "conversation_id", convID, "type", f.Type)
	}
	return nil
}

// Attach adds a viewer and sends it the current state.
func (h *Hub) Attach(convID string, conn Conn) error {
	e, err := h.entry(convID)
	if err != nil {
		return err
	}
	e.pool.Add(conn)
	data, err := json.Marshal(e.mirror.State())
	if err != nil {
		return err
	}
	e.pool.SendToOne(conn, data)
	return nil
}

func (h *Hub) Detach(convID string, conn Conn) {
	e, err := h.entry(convID)
	if err != nil {
		_ = conn.Close()
		return
	}
	e.pool.Remove(conn)
}

// Close tears down the conversation's mirror and disconnects its viewers.
func (h *Hub) Close(convID string) {
	h.mu.Lock()
	e, ok := h.entries[convID]
	delete(h.entries, convID)
	h.mu.Unlock()
	if !ok {
		return
	}
	e.unsubscribe()
	e.mirror.Close()
	e.pool.CloseAll()
}

func (h *Hub) CloseAll() {
	h.mu.Lock()
	ids := make([]string, 0, len(h.entries))
	for id := range h.entries {
		ids = append(ids, id)
	}
	h.mu.Unlock()
	for _, id := range ids {
		h.Close(id)
	}
}
