package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/MikeSquared-Agency/interviewos/internal/tavus"
)

type createRequest struct {
	Context json.RawMessage `json:"context"`
}

type createResponse struct {
	ConversationURL string `json:"conversation_url"`
	ConversationID  string `json:"conversation_id"`
	Status          string `json:"status"`
}

// createConversation handles POST /api/create-conversation
func (s *Server) createConversation(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid JSON body", err.Error())
		return
	}

	var conversationalContext string
	if len(req.Context) > 0 && string(req.Context) != "null" {
		if err := json.Unmarshal(req.Context, &conversationalContext); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid context parameter. Must be a string.", nil)
			return
		}
	}

	s.logger.Info("creating conversation", "context_len", len(conversationalContext))
	conv, err := s.gateway.CreateConversation(r.Context(), s.opts.PersonaID, s.opts.ReplicaID, conversationalContext)
	if err != nil {
		s.logger.Error("create conversation failed", "error", err)
		s.writeGatewayError(w, err, gatewayMessages{
			unauthorized: [2]string{"Invalid API key", "Check your Tavus API key"},
			notFound:     [2]string{"Resource not found", "Check your persona_id and replica_id"},
			fallback:     "Failed to create conversation",
		})
		return
	}

	if s.captions != nil {
		s.captions.Open(conv.ID)
	}
	s.lifecycle.Created(conv.ID, conv.Status)

	writeJSON(w, http.StatusOK, createResponse{
		ConversationURL: conv.URL,
		ConversationID:  conv.ID,
		Status:          conv.Status,
	})
}

// getConversation handles GET /api/conversation/{id}
func (s *Server) getConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.gateway.GetConversation(r.Context(), id)
	if err != nil {
		s.logger.Error("get conversation failed", "conversation_id", id, "error", err)
		s.writeGatewayError(w, err, gatewayMessages{
			notFound: [2]string{"Conversation not found", "The specified conversation does not exist"},
			fallback: "Failed to get conversation",
		})
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// endConversation handles POST /api/conversation/{id}/end
func (s *Server) endConversation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	doc, err := s.gateway.EndConversation(r.Context(), id)

	// Captions stop whatever the provider answers.
	if s.captions != nil {
		s.captions.Close(id)
	}

	if err != nil {
		s.logger.Error("end conversation failed", "conversation_id", id, "error", err)
		s.writeGatewayError(w, err, gatewayMessages{
			notFound: [2]string{"Conversation not found", "The specified conversation does not exist or has already ended"},
			fallback: "Failed to end conversation",
		})
		return
	}
	s.lifecycle.Ended(id)
	writeJSON(w, http.StatusOK, doc)
}

type gatewayMessages struct {
	unauthorized [2]string
	notFound     [2]string
	fallback     string
}

func (s *Server) writeGatewayError(w http.ResponseWriter, err error, msgs gatewayMessages) {
	status := tavus.StatusFor(err)
	switch status {
	case http.StatusBadRequest:
		writeError(w, status, err.Error(), nil)
	case http.StatusUnauthorized:
		if msgs.unauthorized[0] == "" {
			msgs.unauthorized = [2]string{"Invalid API key", "Check your Tavus API key"}
		}
		writeError(w, status, msgs.unauthorized[0], msgs.unauthorized[1])
	case http.StatusNotFound:
		writeError(w, status, msgs.notFound[0], msgs.notFound[1])
	case http.StatusTooManyRequests:
		writeError(w, status, "Rate limit exceeded", "Please wait before creating another conversation")
	default:
		writeError(w, status, msgs.fallback, err.Error())
	}
}
