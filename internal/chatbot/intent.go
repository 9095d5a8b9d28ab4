package chatbot

import (
	"strings"

	"github.com/jbranky/site-server/internal/company"
)

// Intent labels classifying the purpose of a visitor message. The set is
// closed; lastIntent on a session only ever holds one of these.
type Intent string

const (
	IntentServicesOverview    Intent = "services_overview"
	IntentServiceDetail       Intent = "service_detail"
	IntentContactInfo         Intent = "contact_info"
	IntentCallbackRequest     Intent = "callback_request"
	IntentConsultationBooking Intent = "consultation_booking"
	IntentGeneralInquiry      Intent = "general_inquiry"
	IntentTutorial            Intent = "tutorial"
	IntentWelcome             Intent = "welcome"
	IntentThankYou            Intent = "thank_you"
)

// String returns the label as a plain string.
func (i Intent) String() string { return string(i) }

// Ptr returns the label as a *string for message persistence.
func (i Intent) Ptr() *string {
	s := string(i)
	return &s
}

// classifierRule pairs a predicate with the label it yields.
type classifierRule struct {
	match func(lowered string) bool
	label Intent
}

// Classifier maps free text to an intent label via an ordered rule list.
// Rules are evaluated top to bottom; the first match wins. Matching is
// case-insensitive substring containment, no tokenization or scoring.
type Classifier struct {
	rules []classifierRule
}

// NewClassifier builds the rule cascade over the given company knowledge.
func NewClassifier(info *company.Info) *Classifier {
	contains := func(substrs ...string) func(string) bool {
		return func(lowered string) bool {
			for _, sub := range substrs {
				if !strings.Contains(lowered, sub) {
					return false
				}
			}
			return true
		}
	}
	containsAny := func(substrs ...string) func(string) bool {
		return func(lowered string) bool {
			for _, sub := range substrs {
				if strings.Contains(lowered, sub) {
					return true
				}
			}
			return false
		}
	}

	return &Classifier{rules: []classifierRule{
		{contains("call", "back"), IntentCallbackRequest},
		{contains("consult"), IntentConsultationBooking},
		{contains("thank"), IntentThankYou},
		{func(lowered string) bool { return info.ServiceByKeyword(lowered) != nil }, IntentServiceDetail},
		{containsAny("phone", "contact"), IntentContactInfo},
	}}
}

// Classify returns the intent label for the given visitor text.
func (c *Classifier) Classify(text string) Intent {
	lowered := strings.ToLower(text)
	for _, rule := range c.rules {
		if rule.match(lowered) {
			return rule.label
		}
	}
	return IntentGeneralInquiry
}
