package events

import (
	"log/slog"
	"time"
)

const (
	SubjectConversationCreated = "interview.conversation.created"
	SubjectConversationEnded   = "interview.conversation.ended"
)

// ConversationEvent is published whenever the gateway creates or ends a conversation.
type ConversationEvent struct {
	ConversationID string    `json:"conversation_id"`
	Status         string    `json:"status"`
	Timestamp      time.Time `json:"timestamp"`
}

// Publisher is the subset of Client the lifecycle emitter needs.
type Publisher interface {
	Publish(subject string, data any) error
}

// Lifecycle emits conversation events. A nil publisher turns it into a no-op.
type Lifecycle struct {
	pub    Publisher
	logger *slog.Logger
	now    func() time.Time
}

func NewLifecycle(pub Publisher, logger *slog.Logger) *Lifecycle {
	return &Lifecycle{pub: pub, logger: logger, now: time.Now}
}

func (l *Lifecycle) Created(conversationID, status string) {
	l.emit(SubjectConversationCreated, conversationID, status)
}

func (l *Lifecycle) Ended(conversationID string) {
	l.emit(SubjectConversationEnded, conversationID, "ended")
}

func (l *Lifecycle) emit(subject, conversationID, status string) {
	if l == nil || l.pub == nil {
		return
	}
	evt := ConversationEvent{
		ConversationID: conversationID,
		Status:         status,
		Timestamp:      l.now().UTC(),
	}
	if err := l.pub.Publish(subject, evt); err != nil {
		l.logger.Warn("failed to publish lifecycle event", "subject", subject, "conversation_id", conversationID, "error", err)
	}
}
