package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sort"

	"github.com/go-chi/chi/v5"

	"github.com/jbranky/site-server/internal/chatbot"
	"github.com/jbranky/site-server/internal/domain"
)

// SessionsHandler exposes the chatbot session REST surface.
type SessionsHandler struct {
	svc *chatbot.Service
}

// NewSessionsHandler creates a handler over the session service.
func NewSessionsHandler(svc *chatbot.Service) *SessionsHandler {
	return &SessionsHandler{svc: svc}
}

// RegisterRoutes registers the chatbot session routes.
func (h *SessionsHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/chatbot-sessions", func(r chi.Router) {
		r.Get("/", h.List)
		r.Post("/", h.Create)
		r.Get("/{id}", h.Get)
		r.Patch("/{id}", h.Update)
		r.Post("/{id}/messages", h.AppendMessage)
	})
}

// List returns all sessions, newest activity first.
func (h *SessionsHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions, err := h.svc.ListSessions(r.Context())
	if err != nil {
		slog.Error("Failed to list chatbot sessions", "error", err)
		Error(w, http.StatusInternalServerError, "failed to list sessions")
		return
	}
	sort.Slice(sessions, func(i, j int) bool {
		return sessions[i].UpdatedAt.After(sessions[j].UpdatedAt)
	})
	JSON(w, http.StatusOK, sessions)
}

// Create starts a new session from a lead-capture payload.
func (h *SessionsHandler) Create(w http.ResponseWriter, r *http.Request) {
	var in chatbot.CreateSessionInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.svc.CreateSession(r.Context(), in)
	if err != nil {
		if domain.IsValidation(err) {
			Error(w, http.StatusBadRequest, "Missing visitor details")
			return
		}
		slog.Error("Failed to create chatbot session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to create session")
		return
	}
	JSON(w, http.StatusCreated, session)
}

// Get returns one session with its full transcript.
func (h *SessionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	session, err := h.svc.GetSession(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Error(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("Failed to get chatbot session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to get session")
		return
	}
	JSON(w, http.StatusOK, session)
}

// Update applies a partial patch to a session.
func (h *SessionsHandler) Update(w http.ResponseWriter, r *http.Request) {
	var patch domain.SessionPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	session, err := h.svc.UpdateSession(r.Context(), chi.URLParam(r, "id"), patch)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			Error(w, http.StatusNotFound, "Session not found")
			return
		}
		slog.Error("Failed to update chatbot session", "error", err)
		Error(w, http.StatusInternalServerError, "failed to update session")
		return
	}
	JSON(w, http.StatusOK, session)
}

// AppendMessage appends one message to a session transcript.
func (h *SessionsHandler) AppendMessage(w http.ResponseWriter, r *http.Request) {
	var payload struct {
		Sender  domain.Sender `json:"sender"`
		Content string        `json:"content"`
		Intent  *string       `json:"intent"`
	}
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if payload.Sender == "" || payload.Content == "" {
		Error(w, http.StatusBadRequest, "Missing message payload")
		return
	}

	msg, err := h.svc.AppendMessage(r.Context(), chi.URLParam(r, "id"), payload.Sender, payload.Content, payload.Intent)
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrNotFound):
			Error(w, http.StatusNotFound, "Session not found")
		case domain.IsValidation(err):
			Error(w, http.StatusBadRequest, "Missing message payload")
		default:
			slog.Error("Failed to append chatbot message", "error", err)
			Error(w, http.StatusInternalServerError, "failed to append message")
		}
		return
	}
	JSON(w, http.StatusCreated, msg)
}
