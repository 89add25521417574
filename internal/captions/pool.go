package captions

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Conn is the part of *websocket.Conn the pool writes through.
type Conn interface {
	WriteMessage(messageType int, data []byte) error
	SetWriteDeadline(t time.Time) error
	Close() error
}

// DefaultWriteTimeout bounds a single write to one viewer.
const DefaultWriteTimeout = 5 * time.Second

// ConnectionPool fans caption updates out to every viewer of one conversation.
type ConnectionPool struct {
	convID       string
	logger       *slog.Logger
	writeTimeout time.Duration
	mu           sync.Mutex
	conns        map[Conn]struct{}
}

func NewConnectionPool(convID string, logger *slog.Logger) *ConnectionPool {
	return &ConnectionPool{
		convID:       convID,
		logger:       logger,
		writeTimeout: DefaultWriteTimeout,
		conns:        map[Conn]struct{}{},
	}
}

func (cp *ConnectionPool) Add(conn Conn) {
	if cp == nil || conn == nil {
		return
	}
	cp.mu.Lock()
	cp.conns[conn] = struct{}{}
	cp.mu.Unlock()
}

func (cp *ConnectionPool) Remove(conn Conn) {
	if conn == nil {
		return
	}
	if cp != nil {
		cp.mu.Lock()
		delete(cp.conns, conn)
		cp.mu.Unlock()
	}
	_ = conn.Close()
}

func (cp *ConnectionPool) Broadcast(data []byte) {
	if cp == nil || len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	for conn := range cp.conns {
		if err := cp.write(conn, data); err != nil {
			cp.logger.Warn("caption broadcast failed, dropping connection", "conversation_id", cp.convID, "error", err)
			delete(cp.conns, conn)
			_ = conn.Close()
		}
	}
}

func (cp *ConnectionPool) SendToOne(conn Conn, data []byte) {
	if cp == nil || conn == nil || len(data) == 0 {
		return
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	if _, ok := cp.conns[conn]; !ok {
		return
	}
	if err := cp.write(conn, data); err != nil {
		cp.logger.Warn("caption send failed, dropping connection", "conversation_id", cp.convID, "error", err)
		delete(cp.conns, conn)
		_ = conn.Close()
	}
}

// write sends one frame. A viewer that cannot take it within writeTimeout
// fails here instead of stalling the other viewers.
func (cp *ConnectionPool) write(conn Conn, data []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(cp.writeTimeout)); err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, data)
}

func (cp *ConnectionPool) Count() int {
	if cp == nil {
		return 0
	}
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.conns)
}

func (cp *ConnectionPool) CloseAll() {
	if cp == nil {
		return
	}
	cp.mu.Lock()
	for conn := range cp.conns {
		_ = conn.Close()
		delete(cp.conns, conn)
	}
	cp.mu.Unlock()
}
