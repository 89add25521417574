package api

import (
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"

	"github.com/MikeSquared-Agency/interviewos/internal/captions"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

const maxCaptionFrame = 64 << 10

func (s *Server) mirror(w http.ResponseWriter, r *http.Request) (*captions.Mirror, bool) {
	if s.captions == nil {
		writeError(w, http.StatusNotFound, "Captions not enabled", nil)
		return nil, false
	}
	m, ok := s.captions.Get(chi.URLParam(r, "id"))
	if !ok {
		writeError(w, http.StatusNotFound, "Conversation not found", "No captions for this conversation")
		return nil, false
	}
	return m, true
}

// getCaptions handles GET /api/conversation/{id}/captions
func (s *Server) getCaptions(w http.ResponseWriter, r *http.Request) {
	m, ok := s.mirror(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, m.State())
}

// postCaption handles POST /api/conversation/{id}/captions with a relayed frame message.
func (s *Server) postCaption(w http.ResponseWriter, r *http.Request) {
	m, ok := s.mirror(w, r)
	if !ok {
		return
	}
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxCaptionFrame))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid body", err.Error())
		return
	}
	if err := m.HandleFrameMessage(raw); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid caption message", err.Error())
		return
	}
	writeJSON(w, http.StatusAccepted, m.State())
}

// captionSocket handles GET /api/conversation/{id}/captions/ws. Outbound frames
// are caption state snapshots; inbound frames are captions.ClientFrame values.
func (s *Server) captionSocket(w http.ResponseWriter, r *http.Request) {
	if _, ok := s.mirror(w, r); !ok {
		return
	}
	id := chi.URLParam(r, "id")

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("caption socket upgrade failed", "conversation_id", id, "error", err)
		return
	}
	conn.SetReadLimit(maxCaptionFrame)

	if err := s.captions.Attach(id, conn); err != nil {
		_ = conn.Close()
		return
	}
	defer s.captions.Detach(id, conn)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug("caption socket closed", "conversation_id", id, "error", err)
			}
			return
		}
		if err := s.captions.HandleClientFrame(id, data); err != nil {
			if errors.Is(err, captions.ErrUnknownConversation) {
				return
			}
			s.logger.Debug("dropping caption frame", "conversation_id", id, "error", err)
		}
	}
}
