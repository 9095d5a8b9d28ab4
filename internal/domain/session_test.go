package domain

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSessionPatch_AbsentVersusNullLastIntent(t *testing.T) {
	intent := "contact_info"
	session := &ChatbotSession{LastIntent: &intent}

	// Absent field leaves lastIntent alone.
	var patch SessionPatch
	if err := json.Unmarshal([]byte(`{"visitorName":"Jane"}`), &patch); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	patch.Apply(session)
	if session.LastIntent == nil || *session.LastIntent != "contact_info" {
		t.Errorf("Expected lastIntent untouched, got %v", session.LastIntent)
	}
	if session.VisitorName != "Jane" {
		t.Errorf("Expected visitorName patched, got %q", session.VisitorName)
	}

	// Explicit null clears it.
	patch = SessionPatch{}
	if err := json.Unmarshal([]byte(`{"lastIntent":null}`), &patch); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	patch.Apply(session)
	if session.LastIntent != nil {
		t.Errorf("Expected lastIntent cleared, got %v", session.LastIntent)
	}
}

func TestSessionTouch_Monotonic(t *testing.T) {
	now := time.Now()
	session := &ChatbotSession{CreatedAt: now, UpdatedAt: now}

	session.Touch(now.Add(-time.Minute))
	if !session.UpdatedAt.Equal(now) {
		t.Error("Expected Touch to never move updatedAt backwards")
	}

	later := now.Add(time.Minute)
	session.Touch(later)
	if !session.UpdatedAt.Equal(later) {
		t.Error("Expected Touch to advance updatedAt")
	}
}

func TestSessionAppend_SetsLastIntent(t *testing.T) {
	session := &ChatbotSession{}
	intent := "callback_request"

	session.Append(ChatbotMessage{ID: "m1", Sender: SenderVisitor, Content: "call me back", CreatedAt: time.Now(), Intent: &intent})
	if session.LastIntent == nil || *session.LastIntent != "callback_request" {
		t.Errorf("Expected lastIntent from message, got %v", session.LastIntent)
	}

	// A message without intent leaves lastIntent in place.
	session.Append(ChatbotMessage{ID: "m2", Sender: SenderBot, Content: "sure", CreatedAt: time.Now()})
	if session.LastIntent == nil || *session.LastIntent != "callback_request" {
		t.Errorf("Expected lastIntent preserved, got %v", session.LastIntent)
	}
	if len(session.Messages) != 2 {
		t.Errorf("Expected 2 messages, got %d", len(session.Messages))
	}
}
