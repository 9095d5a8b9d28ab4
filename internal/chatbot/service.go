// Package chatbot implements the chatbot session subsystem: the session
// service over the store, the rule-based intent classifier, and the
// three-phase conversation controller.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/jbranky/site-server/internal/domain"
	"github.com/jbranky/site-server/internal/store"
)

// CreateSessionInput carries the lead-capture payload that gates session
// creation. Fields are trimmed before validation.
type CreateSessionInput struct {
	VisitorName  string                `json:"visitorName" validate:"required,min=2"`
	VisitorEmail string                `json:"visitorEmail" validate:"required,email"`
	VisitorPhone string                `json:"visitorPhone" validate:"required,min=7"`
	OriginPath   string                `json:"originPath"`
	Metadata     *domain.MetadataPatch `json:"metadata"`
}

// Service exposes validated operations over the session store. This is the
// boundary the HTTP handlers and the conversation controller talk to.
type Service struct {
	store    store.SessionStore
	validate *validator.Validate
	now      func() time.Time
}

// NewService creates a session service over the given store.
func NewService(st store.SessionStore) *Service {
	return &Service{
		store:    st,
		validate: validator.New(),
		now:      time.Now,
	}
}

// CreateSession validates the lead and inserts a new session with an empty
// transcript. leadCaptured is always true: lead capture is the gate.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (*domain.ChatbotSession, error) {
	in.VisitorName = strings.TrimSpace(in.VisitorName)
	in.VisitorEmail = strings.TrimSpace(in.VisitorEmail)
	in.VisitorPhone = strings.TrimSpace(in.VisitorPhone)

	if err := s.validate.Struct(in); err != nil {
		return nil, leadValidationError(err)
	}

	now := s.now()
	session := &domain.ChatbotSession{
		ID:           uuid.NewString(),
		VisitorName:  in.VisitorName,
		VisitorEmail: in.VisitorEmail,
		VisitorPhone: in.VisitorPhone,
		OriginPath:   in.OriginPath,
		CreatedAt:    now,
		UpdatedAt:    now,
		Metadata: domain.SessionMetadata{
			TutorialCompleted: in.Metadata != nil && in.Metadata.TutorialCompleted != nil && *in.Metadata.TutorialCompleted,
			LeadCaptured:      true,
		},
		Messages: []domain.ChatbotMessage{},
	}

	if err := s.store.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	slog.Info("Chatbot session created", "session_id", session.ID, "origin_path", session.OriginPath)
	return session, nil
}

// AppendMessage appends a message to the session transcript and persists it.
// The session's updatedAt advances, and a non-empty intent becomes the
// session's lastIntent.
func (s *Service) AppendMessage(ctx context.Context, sessionID string, sender domain.Sender, content string, intent *string) (*domain.ChatbotMessage, error) {
	if !sender.Valid() {
		return nil, &domain.ValidationError{Field: "sender", Reason: "must be visitor, bot, or system"}
	}
	if content == "" {
		return nil, &domain.ValidationError{Field: "content", Reason: "must not be empty"}
	}

	msg := domain.ChatbotMessage{
		ID:        uuid.NewString(),
		Sender:    sender,
		Content:   content,
		CreatedAt: s.now(),
		Intent:    intent,
	}

	_, err := s.store.Update(ctx, sessionID, func(session *domain.ChatbotSession) error {
		session.Append(msg)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return &msg, nil
}

// GetSession returns the session with its full transcript.
func (s *Service) GetSession(ctx context.Context, sessionID string) (*domain.ChatbotSession, error) {
	session, err := s.store.GetByID(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("get session: %w", err)
	}
	return session, nil
}

// UpdateSession merges the patch into the session. Unset fields are
// ignored; updatedAt advances regardless.
func (s *Service) UpdateSession(ctx context.Context, sessionID string, patch domain.SessionPatch) (*domain.ChatbotSession, error) {
	session, err := s.store.Update(ctx, sessionID, func(session *domain.ChatbotSession) error {
		patch.Apply(session)
		session.Touch(s.now())
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("update session: %w", err)
	}
	return session, nil
}

// ListSessions returns all sessions with full transcripts for
// administrative review. Order is not guaranteed.
func (s *Service) ListSessions(ctx context.Context) ([]*domain.ChatbotSession, error) {
	sessions, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// leadValidationError converts the first validator failure into a domain
// validation error with a visitor-friendly reason.
func leadValidationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &domain.ValidationError{Field: "lead", Reason: "missing visitor details"}
	}
	switch verrs[0].Field() {
	case "VisitorName":
		return &domain.ValidationError{Field: "visitorName", Reason: "please share your full name"}
	case "VisitorEmail":
		return &domain.ValidationError{Field: "visitorEmail", Reason: "enter a valid email address"}
	case "VisitorPhone":
		return &domain.ValidationError{Field: "visitorPhone", Reason: "add a phone number we can reach you on"}
	}
	return &domain.ValidationError{Field: "lead", Reason: "missing visitor details"}
}
