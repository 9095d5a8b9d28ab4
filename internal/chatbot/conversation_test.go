package chatbot

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/jbranky/site-server/internal/company"
	"github.com/jbranky/site-server/internal/domain"
	"github.com/jbranky/site-server/internal/submissions"
)

type stubSink struct {
	created []submissions.Submission
	err     error
}

func (s *stubSink) Create(_ context.Context, sub submissions.Submission) error {
	if s.err != nil {
		return s.err
	}
	s.created = append(s.created, sub)
	return nil
}

func newTestConversation(sink submissions.Sink) (*Conversation, *Service) {
	svc := newTestService()
	conv := NewConversation(svc, &company.Default, sink, &MemoryRef{}, nil)
	return conv, svc
}

func TestConversation_FullCallbackScenario(t *testing.T) {
	ctx := context.Background()
	sink := &stubSink{}
	conv, svc := newTestConversation(sink)

	conv.Open(ctx)
	if conv.Phase() != PhaseTutorial {
		t.Fatalf("Expected tutorial phase, got %s", conv.Phase())
	}

	// Visitor skips the tutorial straight to lead capture.
	conv.AdvanceTutorial(ctx, true)
	if conv.Phase() != PhaseLead {
		t.Fatalf("Expected lead phase after skip, got %s", conv.Phase())
	}

	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}
	if conv.Phase() != PhaseChat {
		t.Fatalf("Expected chat phase after lead, got %s", conv.Phase())
	}

	session, err := svc.GetSession(ctx, conv.Session().ID)
	if err != nil {
		t.Fatalf("GetSession failed: %v", err)
	}
	if len(session.Messages) != 2 {
		t.Fatalf("Expected two welcome messages, got %d", len(session.Messages))
	}
	if session.Messages[0].Sender != domain.SenderBot || session.Messages[0].Intent == nil ||
		*session.Messages[0].Intent != IntentWelcome.String() {
		t.Error("Expected first welcome message with welcome intent")
	}
	if !session.Metadata.TutorialCompleted {
		t.Error("Expected tutorialCompleted after welcome")
	}

	// Visitor asks for a callback; flow is armed.
	conv.HandleMessage(ctx, "I need a callback")
	if conv.Flow() == nil || conv.Flow().Type != SubmissionCallback {
		t.Fatalf("Expected callback flow, got %+v", conv.Flow())
	}

	session, _ = svc.GetSession(ctx, session.ID)
	if session.LastIntent == nil || *session.LastIntent != IntentCallbackRequest.String() {
		t.Errorf("Expected lastIntent callback_request, got %v", session.LastIntent)
	}

	// Next message is the hand-off.
	conv.HandleMessage(ctx, "Monday morning")
	if conv.Flow() != nil {
		t.Errorf("Expected flow cleared after hand-off, got %+v", conv.Flow())
	}
	if len(sink.created) != 1 {
		t.Fatalf("Expected one submission, got %d", len(sink.created))
	}
	sub := sink.created[0]
	if sub.Name != "Jane Doe" || sub.Email != "jane@x.com" || sub.Phone != "0712345678" {
		t.Errorf("Submission visitor fields wrong: %+v", sub)
	}
	if sub.Type != "Call back chatbot" {
		t.Errorf("Expected callback submission type, got %q", sub.Type)
	}
	if sub.Message != "Monday morning" {
		t.Errorf("Expected hand-off message, got %q", sub.Message)
	}

	session, _ = svc.GetSession(ctx, session.ID)
	last := session.Messages[len(session.Messages)-1]
	if last.Sender != domain.SenderBot || last.Intent == nil || *last.Intent != IntentThankYou.String() {
		t.Errorf("Expected confirmation bot message, got %+v", last)
	}
}

func TestConversation_ResumeFromRef(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	ref := &MemoryRef{}

	first := NewConversation(svc, &company.Default, &stubSink{}, ref, nil)
	first.Open(ctx)
	first.AdvanceTutorial(ctx, true)
	if err := first.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	// A fresh controller with the same ref resumes directly into chat.
	second := NewConversation(svc, &company.Default, &stubSink{}, ref, nil)
	second.Open(ctx)
	if second.Phase() != PhaseChat {
		t.Fatalf("Expected resumed chat phase, got %s", second.Phase())
	}
	if second.Session() == nil || second.Session().ID != first.Session().ID {
		t.Error("Expected the same session after resume")
	}
	if len(second.Transcript()) != 2 {
		t.Errorf("Expected resumed transcript, got %d messages", len(second.Transcript()))
	}
}

func TestConversation_StaleRefFallsBackToTutorial(t *testing.T) {
	ctx := context.Background()
	svc := newTestService()
	ref := &MemoryRef{}
	ref.Set("no-such-session")

	conv := NewConversation(svc, &company.Default, &stubSink{}, ref, nil)
	conv.Open(ctx)
	if conv.Phase() != PhaseTutorial {
		t.Errorf("Expected tutorial phase on stale ref, got %s", conv.Phase())
	}
	if ref.Get() != "" {
		t.Error("Expected stale ref cleared")
	}
}

func TestConversation_ServiceKeywordReply(t *testing.T) {
	ctx := context.Background()
	conv, _ := newTestConversation(&stubSink{})
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleMessage(ctx, "tell me about sollatek protection")

	transcript := conv.Transcript()
	last := transcript[len(transcript)-1]
	if last.Sender != domain.SenderBot || last.Intent == nil || *last.Intent != IntentServiceDetail.String() {
		t.Fatalf("Expected service detail reply, got %+v", last)
	}

	replies := conv.QuickReplies()
	found := false
	for _, reply := range replies {
		if reply.Payload.Kind == PayloadStartSubmission && reply.ID == "service-sollatek-request" {
			found = true
		}
	}
	if !found {
		t.Error("Expected a request quick reply for the matched service")
	}
}

func TestConversation_QuickReplyServiceSelection(t *testing.T) {
	ctx := context.Background()
	sink := &stubSink{}
	conv, _ := newTestConversation(sink)
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleQuickReply(ctx, QuickReply{
		ID:      "service-request",
		Label:   "Request a service",
		Payload: Payload{Kind: PayloadStartSubmission, SubmissionType: SubmissionService},
	})
	if conv.Flow() == nil || conv.Flow().Type != SubmissionService {
		t.Fatalf("Expected service flow, got %+v", conv.Flow())
	}

	// The menu now lists the services for selection.
	replies := conv.QuickReplies()
	if len(replies) != len(company.Default.Services) {
		t.Fatalf("Expected %d service replies, got %d", len(company.Default.Services), len(replies))
	}

	conv.HandleQuickReply(ctx, QuickReply{
		ID:      "select-hydropower",
		Label:   "Hydropower Plant Solutions",
		Payload: Payload{Kind: PayloadSelectService, ServiceID: "hydropower"},
	})
	if conv.Flow() == nil || conv.Flow().ServiceID != "hydropower" {
		t.Fatalf("Expected hydropower selected, got %+v", conv.Flow())
	}

	conv.HandleMessage(ctx, "Need a feasibility study for a 2MW site")
	if len(sink.created) != 1 {
		t.Fatalf("Expected one submission, got %d", len(sink.created))
	}
	if sink.created[0].Type != "Service chatbot" || sink.created[0].Service != "hydropower" {
		t.Errorf("Submission fields wrong: %+v", sink.created[0])
	}
}

func TestConversation_SinkErrorKeepsFlow(t *testing.T) {
	ctx := context.Background()
	sink := &stubSink{err: errors.New("backend down")}
	var notices []string
	svc := newTestService()
	conv := NewConversation(svc, &company.Default, sink, &MemoryRef{}, func(n string) {
		notices = append(notices, n)
	})
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleMessage(ctx, "I want a consultation")
	conv.HandleMessage(ctx, "Next week works")

	if conv.Flow() == nil {
		t.Error("Expected flow kept after sink rejection so the visitor can retry")
	}
	if len(notices) == 0 {
		t.Error("Expected a non-fatal notice for the visitor")
	}
}

func TestConversation_KnowledgeBaseAnswersGeneralQuestion(t *testing.T) {
	ctx := context.Background()
	conv, _ := newTestConversation(&stubSink{})
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleMessage(ctx, "what services do you provide")

	transcript := conv.Transcript()
	last := transcript[len(transcript)-1]
	if last.Sender != domain.SenderBot {
		t.Fatalf("Expected a bot answer, got %+v", last)
	}
	overview := company.Default.KnowledgeBase[0]
	if last.Content != overview.Answer {
		t.Errorf("Expected the overview article answer, got %q", last.Content)
	}
	if len(conv.QuickReplies()) != len(defaultQuickReplies()) {
		t.Errorf("Expected the default menu after an article answer, got %d replies", len(conv.QuickReplies()))
	}
}

func TestConversation_ExploreServicesExpandsMenu(t *testing.T) {
	ctx := context.Background()
	conv, _ := newTestConversation(&stubSink{})
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleQuickReply(ctx, QuickReply{
		ID:      "services",
		Label:   "Explore services",
		Payload: Payload{Kind: PayloadKnowledge, Topic: "services"},
	})

	transcript := conv.Transcript()
	last := transcript[len(transcript)-1]
	if last.Intent == nil || *last.Intent != IntentServicesOverview.String() {
		t.Fatalf("Expected services overview message, got %+v", last)
	}
	for _, service := range company.Default.Services {
		if !strings.Contains(last.Content, service.Title) {
			t.Errorf("Expected overview to mention %q", service.Title)
		}
	}

	byID := map[string]QuickReply{}
	for _, reply := range conv.QuickReplies() {
		byID[reply.ID] = reply
	}
	for _, service := range company.Default.Services {
		reply, ok := byID["detail-"+service.ID]
		if !ok {
			t.Errorf("Expected a detail reply for %s", service.ID)
			continue
		}
		if reply.Payload.Kind != PayloadServiceDetail || reply.Payload.ServiceID != service.ID {
			t.Errorf("Detail reply payload wrong: %+v", reply.Payload)
		}
	}
	if reply, ok := byID["contact-info"]; !ok || reply.Payload.Kind != PayloadKnowledge || reply.Payload.Topic != "contact" {
		t.Error("Expected a contact-info reply in the expanded menu")
	}
	if reply, ok := byID["reset-actions"]; !ok || reply.Payload.Kind != PayloadReset {
		t.Error("Expected a reset-actions reply in the expanded menu")
	}

	// The contact follow-up answers and restores the default menu.
	conv.HandleQuickReply(ctx, byID["contact-info"])
	transcript = conv.Transcript()
	last = transcript[len(transcript)-1]
	if last.Intent == nil || *last.Intent != IntentContactInfo.String() {
		t.Fatalf("Expected contact info message, got %+v", last)
	}
	if !strings.Contains(last.Content, company.Default.Contact.Phone) {
		t.Errorf("Expected contact message to carry the phone number, got %q", last.Content)
	}
	if len(conv.QuickReplies()) != len(defaultQuickReplies()) {
		t.Errorf("Expected default menu after contact answer, got %d replies", len(conv.QuickReplies()))
	}
}

func TestConversation_FallbackHelpWhenNothingMatches(t *testing.T) {
	ctx := context.Background()
	conv, _ := newTestConversation(&stubSink{})
	conv.Open(ctx)
	conv.AdvanceTutorial(ctx, true)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleMessage(ctx, "how do I pay an invoice")

	transcript := conv.Transcript()
	last := transcript[len(transcript)-1]
	if last.Sender != domain.SenderBot || last.Intent == nil || *last.Intent != IntentGeneralInquiry.String() {
		t.Fatalf("Expected fallback bot reply, got %+v", last)
	}
	if !strings.Contains(last.Content, "Here's what I can help with") {
		t.Errorf("Expected the help menu text, got %q", last.Content)
	}
	if len(conv.QuickReplies()) != len(defaultQuickReplies()) {
		t.Errorf("Expected default menu after fallback, got %d replies", len(conv.QuickReplies()))
	}
}

func TestConversation_ServicesOverviewHandlesSparseHighlights(t *testing.T) {
	ctx := context.Background()
	info := company.Info{
		CompanyName: "JBRANKY LTD",
		BotName:     "JBRANKY Bot",
		Contact:     company.Default.Contact,
		Services: []company.Service{
			{
				ID:               "audits",
				Title:            "Compliance Audits",
				ShortDescription: "IEC compliance reviews.",
				Highlights:       []string{"Site walk-downs"},
				Route:            "/services/audits",
			},
		},
		Tutorial: company.Default.Tutorial,
	}
	svc := newTestService()
	conv := NewConversation(svc, &info, &stubSink{}, &MemoryRef{}, nil)
	conv.Open(ctx)
	if err := conv.SubmitLead(ctx, "Jane Doe", "jane@x.com", "0712345678", "/"); err != nil {
		t.Fatalf("SubmitLead failed: %v", err)
	}

	conv.HandleQuickReply(ctx, QuickReply{
		ID:      "services",
		Label:   "Explore services",
		Payload: Payload{Kind: PayloadKnowledge, Topic: "services"},
	})

	transcript := conv.Transcript()
	last := transcript[len(transcript)-1]
	if !strings.Contains(last.Content, "Site walk-downs") {
		t.Errorf("Expected the single highlight in the overview, got %q", last.Content)
	}
}

func TestConversation_MessageBeforeLead(t *testing.T) {
	ctx := context.Background()
	var notices []string
	svc := newTestService()
	conv := NewConversation(svc, &company.Default, &stubSink{}, &MemoryRef{}, func(n string) {
		notices = append(notices, n)
	})
	conv.Open(ctx)

	conv.HandleMessage(ctx, "hello?")
	if len(notices) == 0 {
		t.Error("Expected a notice when messaging before lead capture")
	}
	if len(conv.Transcript()) != 0 {
		t.Error("Expected no transcript before a session exists")
	}
}
