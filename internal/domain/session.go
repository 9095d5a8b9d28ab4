// Package domain contains core domain types for the JBRANKY site backend.
package domain

import (
	"time"
)

// Sender identifies who produced a chatbot message.
type Sender string

const (
	SenderVisitor Sender = "visitor"
	SenderBot     Sender = "bot"
	SenderSystem  Sender = "system"
)

// Valid reports whether the sender is one of the known values.
func (s Sender) Valid() bool {
	switch s {
	case SenderVisitor, SenderBot, SenderSystem:
		return true
	}
	return false
}

// ChatbotMessage is a single entry in a session transcript.
type ChatbotMessage struct {
	ID        string    `json:"id"`
	Sender    Sender    `json:"sender"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
	Intent    *string   `json:"intent"`
}

// SessionMetadata tracks conversation progress flags.
type SessionMetadata struct {
	TutorialCompleted bool `json:"tutorialCompleted"`
	LeadCaptured      bool `json:"leadCaptured"`
}

// ChatbotSession is a visitor's conversation, from lead capture onward.
// The messages slice is an append-only chronological transcript.
type ChatbotSession struct {
	ID           string           `json:"id"`
	VisitorName  string           `json:"visitorName"`
	VisitorEmail string           `json:"visitorEmail"`
	VisitorPhone string           `json:"visitorPhone"`
	OriginPath   string           `json:"originPath,omitempty"`
	CreatedAt    time.Time        `json:"createdAt"`
	UpdatedAt    time.Time        `json:"updatedAt"`
	Metadata     SessionMetadata  `json:"metadata"`
	LastIntent   *string          `json:"lastIntent"`
	Messages     []ChatbotMessage `json:"messages"`
}

// Touch advances UpdatedAt, keeping it monotonically non-decreasing.
func (s *ChatbotSession) Touch(t time.Time) {
	if t.After(s.UpdatedAt) {
		s.UpdatedAt = t
	}
}

// Append adds a message to the transcript and advances UpdatedAt.
// If the message carries an intent it becomes the session's last intent.
func (s *ChatbotSession) Append(msg ChatbotMessage) {
	s.Messages = append(s.Messages, msg)
	s.Touch(msg.CreatedAt)
	if msg.Intent != nil && *msg.Intent != "" {
		intent := *msg.Intent
		s.LastIntent = &intent
	}
}

// Clone returns a deep copy so callers cannot alias store-held state.
func (s *ChatbotSession) Clone() *ChatbotSession {
	out := *s
	if s.LastIntent != nil {
		intent := *s.LastIntent
		out.LastIntent = &intent
	}
	out.Messages = make([]ChatbotMessage, len(s.Messages))
	for i, m := range s.Messages {
		out.Messages[i] = m
		if m.Intent != nil {
			intent := *m.Intent
			out.Messages[i].Intent = &intent
		}
	}
	return &out
}

// MetadataPatch carries partial updates to session metadata.
type MetadataPatch struct {
	TutorialCompleted *bool `json:"tutorialCompleted"`
	LeadCaptured      *bool `json:"leadCaptured"`
}

// SessionPatch carries partial updates to a session. Unset fields are ignored.
type SessionPatch struct {
	Metadata     *MetadataPatch `json:"metadata"`
	LastIntent   NullableString `json:"lastIntent"`
	VisitorName  *string        `json:"visitorName"`
	VisitorEmail *string        `json:"visitorEmail"`
	VisitorPhone *string        `json:"visitorPhone"`
}

// Apply merges the patch into the session. It does not touch UpdatedAt;
// that is the caller's responsibility.
func (p SessionPatch) Apply(s *ChatbotSession) {
	if p.Metadata != nil {
		if p.Metadata.TutorialCompleted != nil {
			s.Metadata.TutorialCompleted = *p.Metadata.TutorialCompleted
		}
		if p.Metadata.LeadCaptured != nil {
			s.Metadata.LeadCaptured = *p.Metadata.LeadCaptured
		}
	}
	if p.LastIntent.Set {
		s.LastIntent = p.LastIntent.Value
	}
	if p.VisitorName != nil {
		s.VisitorName = *p.VisitorName
	}
	if p.VisitorEmail != nil {
		s.VisitorEmail = *p.VisitorEmail
	}
	if p.VisitorPhone != nil {
		s.VisitorPhone = *p.VisitorPhone
	}
}
