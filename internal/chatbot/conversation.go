package chatbot

import (
	"context"
	"fmt"
	"strings"

	"github.com/jbranky/site-server/internal/company"
	"github.com/jbranky/site-server/internal/domain"
	"github.com/jbranky/site-server/internal/submissions"
)

// Phase is the conversation controller's state. Transitions are linear:
// tutorial -> lead -> chat. Resuming a persisted session skips to chat.
type Phase string

const (
	PhaseTutorial Phase = "tutorial"
	PhaseLead     Phase = "lead"
	PhaseChat     Phase = "chat"
)

// SubmissionType selects which inquiry flow a hand-off belongs to.
type SubmissionType string

const (
	SubmissionService      SubmissionType = "service"
	SubmissionConsultation SubmissionType = "consultation"
	SubmissionCallback     SubmissionType = "callback"
	SubmissionGeneral      SubmissionType = "general"
)

// SubmissionFlow is the pending hand-off state: the next free-text message
// becomes the submission's descriptive text.
type SubmissionFlow struct {
	Type      SubmissionType
	ServiceID string
}

// PayloadKind tags the quick-reply payload union.
type PayloadKind string

const (
	PayloadKnowledge       PayloadKind = "knowledge"
	PayloadServiceDetail   PayloadKind = "service_detail"
	PayloadStartSubmission PayloadKind = "start_submission"
	PayloadSelectService   PayloadKind = "select_service"
	PayloadLink            PayloadKind = "link"
	PayloadReset           PayloadKind = "reset"
)

// Payload is the tagged union behind a quick reply. Only the fields for the
// active kind are meaningful.
type Payload struct {
	Kind           PayloadKind
	Topic          string         // knowledge: "services", "contact", or "faq"
	ServiceID      string         // service_detail, select_service
	SubmissionType SubmissionType // start_submission
	Href           string         // link
}

// QuickReply is a structured action offered to the visitor.
type QuickReply struct {
	ID      string
	Label   string
	Payload Payload
}

// Notifier surfaces non-fatal problems to the visitor-facing UI. The
// conversation continues with local state when persistence fails.
type Notifier func(notice string)

// Conversation drives the three-phase chatbot flow against the session
// service, classifier, and submission sink. It models the visitor's client
// context and is not safe for concurrent use.
type Conversation struct {
	svc        *Service
	classifier *Classifier
	info       *company.Info
	sink       submissions.Sink
	ref        SessionRef
	notify     Notifier

	phase         Phase
	tutorialIndex int
	session       *domain.ChatbotSession
	transcript    []domain.ChatbotMessage
	flow          *SubmissionFlow
	quickReplies  []QuickReply
}

// NewConversation wires a controller. Call Open to resume or start.
func NewConversation(svc *Service, info *company.Info, sink submissions.Sink, ref SessionRef, notify Notifier) *Conversation {
	if notify == nil {
		notify = func(string) {}
	}
	return &Conversation{
		svc:        svc,
		classifier: NewClassifier(info),
		info:       info,
		sink:       sink,
		ref:        ref,
		notify:     notify,
		phase:      PhaseTutorial,
	}
}

// Open resumes a persisted session if the ref holds a valid id, otherwise
// starts at the tutorial. A stale ref is cleared, not an error.
func (c *Conversation) Open(ctx context.Context) {
	storedID := c.ref.Get()
	if storedID == "" {
		c.phase = PhaseTutorial
		return
	}
	session, err := c.svc.GetSession(ctx, storedID)
	if err != nil {
		c.ref.Clear()
		c.phase = PhaseTutorial
		return
	}
	c.session = session
	c.transcript = append([]domain.ChatbotMessage{}, session.Messages...)
	c.phase = PhaseChat
	c.quickReplies = defaultQuickReplies()
}

// Phase returns the controller's current state.
func (c *Conversation) Phase() Phase { return c.phase }

// Session returns the active session, or nil before lead capture.
func (c *Conversation) Session() *domain.ChatbotSession { return c.session }

// Transcript returns the local message log, including messages that failed
// to persist.
func (c *Conversation) Transcript() []domain.ChatbotMessage { return c.transcript }

// Flow returns the pending submission flow, or nil.
func (c *Conversation) Flow() *SubmissionFlow { return c.flow }

// QuickReplies returns the currently offered quick actions.
func (c *Conversation) QuickReplies() []QuickReply { return c.quickReplies }

// TutorialStep returns the current step plus position (1-based) and total.
func (c *Conversation) TutorialStep() (company.TutorialStep, int, int) {
	steps := c.info.Tutorial
	idx := c.tutorialIndex
	if idx >= len(steps) {
		idx = len(steps) - 1
	}
	return steps[idx], idx + 1, len(steps)
}

// AdvanceTutorial moves one step forward, or to lead capture on "skip" or
// when the last step is reached. There is no backward transition.
func (c *Conversation) AdvanceTutorial(ctx context.Context, skip bool) {
	if c.phase != PhaseTutorial {
		return
	}
	last := len(c.info.Tutorial) - 1
	if skip || c.tutorialIndex == last {
		c.phase = PhaseLead
		c.tutorialIndex = last
		if c.session != nil {
			completed := true
			_, err := c.svc.UpdateSession(ctx, c.session.ID, domain.SessionPatch{
				Metadata: &domain.MetadataPatch{TutorialCompleted: &completed},
			})
			if err != nil {
				c.notify("Unable to sync tutorial progress.")
			}
		}
		return
	}
	c.tutorialIndex++
}

// SubmitLead validates the visitor's contact details, creates the session,
// and enters chat with the two scripted welcome messages.
func (c *Conversation) SubmitLead(ctx context.Context, name, email, phone, originPath string) error {
	session, err := c.svc.CreateSession(ctx, CreateSessionInput{
		VisitorName:  name,
		VisitorEmail: email,
		VisitorPhone: phone,
		OriginPath:   originPath,
	})
	if err != nil {
		return err
	}

	c.ref.Set(session.ID)
	c.session = session
	c.phase = PhaseChat
	c.transcript = nil

	c.pushMessage(ctx, domain.SenderBot,
		fmt.Sprintf("Hi %s, I'm %s. I'm here to guide you through %s.\n%s",
			session.VisitorName, c.info.BotName, c.info.CompanyName, c.info.Tagline),
		IntentWelcome)
	c.pushMessage(ctx, domain.SenderBot,
		fmt.Sprintf("You can ask about our services, request a call back, or book a consultation. I can also connect you to our specialists on %s.",
			c.info.Contact.Phone),
		IntentServicesOverview)

	completed := true
	if _, err := c.svc.UpdateSession(ctx, session.ID, domain.SessionPatch{
		Metadata: &domain.MetadataPatch{TutorialCompleted: &completed},
	}); err != nil {
		c.notify("Unable to sync tutorial progress.")
	}

	c.quickReplies = defaultQuickReplies()
	return nil
}

// HandleMessage processes one free-text visitor message: classify, persist,
// then either complete a pending submission or pick a scripted response.
func (c *Conversation) HandleMessage(ctx context.Context, raw string) {
	if c.session == nil {
		c.notify("Please provide your details first.")
		return
	}
	text := strings.TrimSpace(raw)
	if text == "" {
		return
	}

	intent := c.classifier.Classify(text)
	c.pushMessage(ctx, domain.SenderVisitor, text, intent)

	if c.flow != nil {
		c.completeSubmission(ctx, text)
		return
	}

	if service := c.info.ServiceByKeyword(text); service != nil {
		c.pushMessage(ctx, domain.SenderBot, formatServiceDetails(service), IntentServiceDetail)
		c.quickReplies = append(defaultQuickReplies(), QuickReply{
			ID:    "service-" + service.ID + "-request",
			Label: "Request " + service.Title,
			Payload: Payload{
				Kind:           PayloadStartSubmission,
				SubmissionType: SubmissionService,
			},
		})
		return
	}

	switch intent {
	case IntentCallbackRequest:
		c.flow = &SubmissionFlow{Type: SubmissionCallback}
		c.pushMessage(ctx, domain.SenderBot,
			"Absolutely. Tell me the best time or any context so the right engineer calls you back.",
			IntentCallbackRequest)
		return
	case IntentConsultationBooking:
		c.flow = &SubmissionFlow{Type: SubmissionConsultation}
		c.pushMessage(ctx, domain.SenderBot,
			"Happy to schedule a consultation. Let me know the scope or questions you have, and I'll line up the right specialist.",
			IntentConsultationBooking)
		return
	case IntentContactInfo:
		c.pushMessage(ctx, domain.SenderBot,
			fmt.Sprintf("You can reach us directly on %s, email %s, or request a call back here.",
				c.info.Contact.Phone, c.info.Contact.Email),
			IntentContactInfo)
		c.quickReplies = defaultQuickReplies()
		return
	}

	if article := c.info.MatchArticle(text); article != nil {
		c.pushMessage(ctx, domain.SenderBot, article.Answer, IntentGeneralInquiry)
		c.quickReplies = defaultQuickReplies()
		return
	}

	c.pushMessage(ctx, domain.SenderBot,
		"Here's what I can help with:\n"+
			"• Service details for hydropower, medium-voltage, and Sollatek solutions\n"+
			"• Booking consultations or site surveys\n"+
			"• Sharing company contacts and response times\n"+
			"• Capturing project requirements for our engineers.\n"+
			"If you'd like a human to call you, just let me know!",
		IntentGeneralInquiry)
	c.quickReplies = defaultQuickReplies()
}

// HandleQuickReply dispatches a structured quick action. The consumed reply
// is removed from the offered set before the payload takes effect.
func (c *Conversation) HandleQuickReply(ctx context.Context, reply QuickReply) {
	remaining := c.quickReplies[:0:0]
	for _, item := range c.quickReplies {
		if item.ID != reply.ID {
			remaining = append(remaining, item)
		}
	}
	c.quickReplies = remaining

	switch reply.Payload.Kind {
	case PayloadKnowledge:
		c.handleKnowledge(ctx, reply.Payload.Topic)
	case PayloadServiceDetail:
		if service := c.info.ServiceByID(reply.Payload.ServiceID); service != nil {
			c.pushMessage(ctx, domain.SenderBot, formatServiceDetails(service), IntentServiceDetail)
			c.quickReplies = append(defaultQuickReplies(), QuickReply{
				ID:    "request-" + service.ID,
				Label: "Request " + service.Title,
				Payload: Payload{
					Kind:           PayloadStartSubmission,
					SubmissionType: SubmissionService,
				},
			})
		}
	case PayloadStartSubmission:
		c.startSubmission(ctx, reply.Payload.SubmissionType)
	case PayloadSelectService:
		c.flow = &SubmissionFlow{Type: SubmissionService, ServiceID: reply.Payload.ServiceID}
		if service := c.info.ServiceByID(reply.Payload.ServiceID); service != nil {
			c.pushMessage(ctx, domain.SenderBot,
				fmt.Sprintf("Noted: %s. Could you describe your project or needs so we prepare the right response?", service.Title),
				IntentServiceDetail)
		} else {
			c.pushMessage(ctx, domain.SenderBot,
				"Noted. Please describe your project requirements.",
				IntentServiceDetail)
		}
	case PayloadReset:
		c.quickReplies = defaultQuickReplies()
		c.flow = nil
	case PayloadLink:
		// Navigation is the caller's concern; nothing to do here.
	}
}

func (c *Conversation) handleKnowledge(ctx context.Context, topic string) {
	switch topic {
	case "services":
		parts := make([]string, 0, len(c.info.Services))
		for _, service := range c.info.Services {
			summary := service.Title + ": " + service.ShortDescription
			for i, highlight := range service.Highlights {
				if i == 2 {
					break
				}
				summary += "\n• " + highlight
			}
			parts = append(parts, summary)
		}
		c.pushMessage(ctx, domain.SenderBot, strings.Join(parts, "\n\n"), IntentServicesOverview)

		for _, service := range c.info.Services {
			c.quickReplies = append(c.quickReplies, QuickReply{
				ID:      "detail-" + service.ID,
				Label:   service.Title,
				Payload: Payload{Kind: PayloadServiceDetail, ServiceID: service.ID},
			})
		}
		c.quickReplies = append(c.quickReplies,
			QuickReply{
				ID:      "contact-info",
				Label:   "How do I reach you?",
				Payload: Payload{Kind: PayloadKnowledge, Topic: "contact"},
			},
			QuickReply{
				ID:      "reset-actions",
				Label:   "Show quick actions",
				Payload: Payload{Kind: PayloadReset},
			})
	case "contact":
		c.pushMessage(ctx, domain.SenderBot,
			fmt.Sprintf("You can reach us on %s or %s. %s",
				c.info.Contact.Phone, c.info.Contact.Email, c.info.Contact.ResponseTime),
			IntentContactInfo)
		c.quickReplies = defaultQuickReplies()
	}
}

func (c *Conversation) startSubmission(ctx context.Context, subType SubmissionType) {
	c.flow = &SubmissionFlow{Type: subType}
	if subType == SubmissionService {
		c.pushMessage(ctx, domain.SenderBot,
			"Great! Which service are you interested in? Choose one below or type the name.",
			IntentServiceDetail)
		selection := make([]QuickReply, 0, len(c.info.Services))
		for _, service := range c.info.Services {
			selection = append(selection, QuickReply{
				ID:      "select-" + service.ID,
				Label:   service.Title,
				Payload: Payload{Kind: PayloadSelectService, ServiceID: service.ID},
			})
		}
		c.quickReplies = selection
		return
	}

	intent := IntentGeneralInquiry
	if subType == SubmissionCallback {
		intent = IntentCallbackRequest
	}
	c.pushMessage(ctx, domain.SenderBot,
		"Please share a short description so I can alert the right specialist.", intent)
}

// completeSubmission hands the visitor's text off to the sink. A rejection
// keeps the flow pending so the visitor can retry.
func (c *Conversation) completeSubmission(ctx context.Context, details string) {
	flow := c.flow
	sub := submissions.Submission{
		Name:    c.session.VisitorName,
		Email:   c.session.VisitorEmail,
		Phone:   c.session.VisitorPhone,
		Type:    submissionTypeLabel(flow.Type),
		Service: submissionServiceField(flow),
		Message: strings.TrimSpace(details),
	}

	if err := c.sink.Create(ctx, sub); err != nil {
		c.notify("Unable to capture your request. Please try again.")
		return
	}

	c.pushMessage(ctx, domain.SenderBot,
		"Thanks! I've logged this for our team. Expect a response within one business day.",
		IntentThankYou)
	c.flow = nil
	c.quickReplies = defaultQuickReplies()
}

// pushMessage appends to the local transcript first, then persists. A
// persistence failure is surfaced as a notice and the message stays local.
func (c *Conversation) pushMessage(ctx context.Context, sender domain.Sender, content string, intent Intent) {
	if c.session == nil {
		return
	}
	msg, err := c.svc.AppendMessage(ctx, c.session.ID, sender, content, intent.Ptr())
	if err != nil {
		c.notify("Unable to sync chatbot message.")
		c.transcript = append(c.transcript, domain.ChatbotMessage{
			Sender:  sender,
			Content: content,
			Intent:  intent.Ptr(),
		})
		return
	}
	c.transcript = append(c.transcript, *msg)
}

func submissionTypeLabel(t SubmissionType) string {
	switch t {
	case SubmissionService:
		return "Service chatbot"
	case SubmissionConsultation:
		return "Consultation chatbot"
	case SubmissionCallback:
		return "Call back chatbot"
	default:
		return "General chatbot"
	}
}

func submissionServiceField(flow *SubmissionFlow) string {
	switch flow.Type {
	case SubmissionService:
		if flow.ServiceID == "" {
			return "unspecified"
		}
		return flow.ServiceID
	case SubmissionConsultation:
		return "consultation"
	default:
		return ""
	}
}

func formatServiceDetails(service *company.Service) string {
	var b strings.Builder
	b.WriteString(service.Title)
	b.WriteString("\n")
	b.WriteString(service.ShortDescription)
	for _, highlight := range service.Highlights {
		b.WriteString("\n• ")
		b.WriteString(highlight)
	}
	b.WriteString("\n\nExplore more: ")
	b.WriteString(service.Route)
	return b.String()
}

func defaultQuickReplies() []QuickReply {
	return []QuickReply{
		{
			ID:      "services",
			Label:   "Explore services",
			Payload: Payload{Kind: PayloadKnowledge, Topic: "services"},
		},
		{
			ID:      "service-request",
			Label:   "Request a service",
			Payload: Payload{Kind: PayloadStartSubmission, SubmissionType: SubmissionService},
		},
		{
			ID:      "consultation",
			Label:   "Book consultation",
			Payload: Payload{Kind: PayloadStartSubmission, SubmissionType: SubmissionConsultation},
		},
		{
			ID:      "callback",
			Label:   "Request call back",
			Payload: Payload{Kind: PayloadStartSubmission, SubmissionType: SubmissionCallback},
		},
		{
			ID:      "general",
			Label:   "General question",
			Payload: Payload{Kind: PayloadStartSubmission, SubmissionType: SubmissionGeneral},
		},
	}
}
