package captions

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// UnsupportedMessage replaces the live user caption when no speech engine is available.
const UnsupportedMessage = "Speech recognition is not supported in this browser. Try Chrome or Edge for live captions."

// FrameMessage is what the embedded meeting frame posts for each utterance.
type FrameMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// State is a point-in-time view of the mirror.
type State struct {
	LiveUser      string  `json:"live_user"`
	LiveAssistant string  `json:"live_assistant"`
	Supported     bool    `json:"recognition_supported"`
	Entries       []Entry `json:"entries"`
}

// Mirror merges assistant frame messages and user speech recognition into one
// rolling transcript. Entries are kept in arrival order.
type Mirror struct {
	buf    *Buffer
	logger *slog.Logger

	mu            sync.Mutex
	liveUser      string
	liveAssistant string
	supported     bool
	recognizer    Recognizer
	cancel        context.CancelFunc
	done          chan struct{}
	closed        bool
	subs          map[uuid.UUID]func(State)
}

func NewMirror(capacity int, logger *slog.Logger) *Mirror {
	return &Mirror{
		buf:       NewBuffer(capacity),
		logger:    logger,
		supported: true,
		subs:      make(map[uuid.UUID]func(State)),
	}
}

// Listen starts the user producer. A nil recognizer, or one reporting
// ErrRecognitionUnavailable, leaves the mirror in unsupported mode: the live
// user caption shows UnsupportedMessage and no user entries are appended.
func (m *Mirror) Listen(ctx context.Context, rec Recognizer) error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return ErrRecognizerStopped
	}
	if m.recognizer != nil {
		m.mu.Unlock()
		return ErrAlreadyStarted
	}
	if rec == nil {
		rec = Unavailable()
	}
	m.recognizer = rec

	ctx, cancel := context.WithCancel(ctx)
	results, err := rec.Start(ctx)
	if err != nil {
		cancel()
		m.supported = false
		m.liveUser = UnsupportedMessage
		m.mu.Unlock()
		m.notify()
		if errors.Is(err, ErrRecognitionUnavailable) {
			m.logger.Info("speech recognition unavailable, user captions disabled")
			return nil
		}
		return fmt.Errorf("start recognizer: %w", err)
	}
	m.cancel = cancel
	m.done = make(chan struct{})
	done := m.done
	m.mu.Unlock()

	go func() {
		defer close(done)
		for r := range results {
			m.handleResult(r)
		}
	}()
	return nil
}

func (m *Mirror) handleResult(r Result) {
	text := strings.TrimSpace(r.Transcript)
	m.mu.Lock()
	if !m.supported {
		m.mu.Unlock()
		return
	}
	if r.Final {
		m.liveUser = ""
		if text != "" {
			m.buf.Add(Entry{Role: RoleUser, Text: text})
		}
	} else {
		m.liveUser = text
	}
	m.mu.Unlock()
	m.notify()
}

// HandleFrameMessage applies one message posted by the embedded frame.
// Messages without content are ignored.
func (m *Mirror) HandleFrameMessage(raw []byte) error {
	var msg FrameMessage
	if err := json.Unmarshal(raw, &msg); err != nil {
		return fmt.Errorf("parse frame message: %w", err)
	}
	m.Apply(msg)
	return nil
}

// Apply appends a frame message as a finalized entry. Assistant messages
// also replace the live assistant caption.
func (m *Mirror) Apply(msg FrameMessage) {
	text := strings.TrimSpace(msg.Content)
	if text == "" {
		return
	}
	role := RoleAssistant
	if Role(msg.Role) == RoleUser {
		role = RoleUser
	}

	m.mu.Lock()
	if role == RoleAssistant {
		m.liveAssistant = text
	}
	m.buf.Add(Entry{Role: role, Text: text})
	m.mu.Unlock()
	m.notify()
}

// State returns the live captions and entries as of one instant. m.mu is
// always taken before the buffer lock.
func (m *Mirror) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return State{
		LiveUser:      m.liveUser,
		LiveAssistant: m.liveAssistant,
		Supported:     m.supported,
		Entries:       m.buf.Snapshot(),
	}
}

// Subscribe registers fn for every state change. The returned func removes it.
func (m *Mirror) Subscribe(fn func(State)) func() {
	id := uuid.New()
	m.mu.Lock()
	m.subs[id] = fn
	m.mu.Unlock()
	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

func (m *Mirror) notify() {
	m.mu.Lock()
	fns := make([]func(State), 0, len(m.subs))
	for _, fn := range m.subs {
		fns = append(fns, fn)
	}
	m.mu.Unlock()
	if len(fns) == 0 {
		return
	}
	s := m.State()
	for _, fn := range fns {
		fn(s)
	}
}

// DisableRecognition switches the mirror to unsupported mode after the fact,
// e.g. when the client reports it has no speech engine.
func (m *Mirror) DisableRecognition() {
	m.mu.Lock()
	m.supported = false
	m.liveUser = UnsupportedMessage
	rec := m.recognizer
	m.mu.Unlock()
	if rec != nil {
		rec.Stop()
	}
	m.notify()
}

// Close stops the user producer and waits for it to drain. Safe to call twice.
func (m *Mirror) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.closed = true
	rec, cancel, done := m.recognizer, m.cancel, m.done
	m.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if rec != nil {
		rec.Stop()
	}
	if done != nil {
		<-done
	}
}
