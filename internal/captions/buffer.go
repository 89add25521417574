package captions

import "sync"

// DefaultCapacity is the number of finalized captions kept on screen.
const DefaultCapacity = 9

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Entry is one finalized caption line.
type Entry struct {
	Role Role   `json:"role"`
	Text string `json:"text"`
}

// Buffer keeps the most recent entries in arrival order, dropping the oldest.
type Buffer struct {
	mu      sync.Mutex
	max     int
	entries []Entry
}

func NewBuffer(limit int) *Buffer {
	if limit <= 0 {
		limit = DefaultCapacity
	}
	return &Buffer{max: limit, entries: make([]Entry, 0, limit+1)}
}

func (b *Buffer) Add(e Entry) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	b.entries = append(b.entries, e)
	if len(b.entries) > b.max {
		drop := len(b.entries) - b.max
		b.entries = append(b.entries[:0], b.entries[drop:]...)
	}
}

func (b *Buffer) Snapshot() []Entry {
	if b == nil {
		return nil
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]Entry, len(b.entries))
	copy(out, b.entries)
	return out
}

func (b *Buffer) Len() int {
	if b == nil {
		return 0
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.entries)
}

func (b *Buffer) Cap() int {
	if b == nil {
		return 0
	}
	return b.max
}
