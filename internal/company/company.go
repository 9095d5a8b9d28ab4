// Package company holds the JBRANKY LTD knowledge used by the chatbot:
// service catalogue, tutorial steps, knowledge-base articles, and contacts.
package company

import "strings"

// Service describes one service line offered on the site.
type Service struct {
	ID               string
	Title            string
	ShortDescription string
	Highlights       []string
	Route            string
}

// Article is a knowledge-base entry matched by tag against visitor text.
type Article struct {
	Question string
	Answer   string
	Tags     []string
}

// TutorialStep is one step of the chatbot's onboarding walkthrough.
type TutorialStep struct {
	Title       string
	Description string
}

// Contact holds the company's reachable details.
type Contact struct {
	Phone        string
	Email        string
	HQ           string
	ResponseTime string
}

// Info aggregates everything the chatbot knows about the company.
type Info struct {
	CompanyName   string
	BotName       string
	Tagline       string
	Contact       Contact
	Services      []Service
	Tutorial      []TutorialStep
	KnowledgeBase []Article
}

// Default is the production knowledge for JBRANKY LTD.
var Default = Info{
	CompanyName: "JBRANKY LTD",
	BotName:     "JBRANKY Bot",
	Tagline:     "Powering a sustainable future with hydropower, large power systems, and Sollatek protection.",
	Contact: Contact{
		Phone:        "0726502349",
		Email:        "Jbrankyltd8@gmail.com",
		HQ:           "Nairobi, Kenya",
		ResponseTime: "We respond within 1 business day.",
	},
	Services: []Service{
		{
			ID:               "hydropower",
			Title:            "Hydropower Plant Solutions",
			ShortDescription: "Feasibility, EPC delivery, and lifetime O&M support for small to mid-scale plants.",
			Highlights: []string{
				"Hydrological feasibility studies and environmental impact assessments",
				"Engineering, procurement, and construction covering civil and electro-mechanical works",
				"Operations and maintenance with performance optimization and critical spares",
			},
			Route: "/services/hydropower",
		},
		{
			ID:               "medium-voltage",
			Title:            "Large Power & Medium-Voltage",
			ShortDescription: "Design, build, commission, and safeguard substations and grid interconnections from 11kV to 132kV.",
			Highlights: []string{
				"Design and build 11kV–132kV substations, cabling, grounding, and protection schemes",
				"Primary and secondary injection testing, relay programming, FAT/SAT, and commissioning",
				"Arc-flash studies, thermography, IEC compliance audits, and safety upgrades",
			},
			Route: "/services/medium-voltage",
		},
		{
			ID:               "sollatek",
			Title:            "Sollatek Protection & Power Quality",
			ShortDescription: "Authorised Sollatek partner supplying AVS, stabilizers, and surge protection with 5-year warranty.",
			Highlights: []string{
				"AVS 30 automatic voltage switchers and TV Guard surge protection",
				"Single and three-phase automatic voltage regulators and stabilizers",
				"Accessories such as MV cable terminations, testers, and turbine components",
			},
			Route: "/services/sollatek",
		},
	},
	Tutorial: []TutorialStep{
		{
			Title:       "Welcome",
			Description: "Discover our key services, request a call back, or ask anything about JBRANKY LTD.",
		},
		{
			Title:       "Quick actions",
			Description: "Use the quick buttons to request service details, book consultations, or ask for pricing guidance.",
		},
		{
			Title:       "Talk to a human",
			Description: "Share your contact details and we will arrange a call back from the right specialist.",
		},
	},
	KnowledgeBase: []Article{
		{
			Question: "What services does JBRANKY LTD provide?",
			Answer:   "We deliver hydropower plant solutions end-to-end, large power and medium-voltage projects up to 132kV, and we are an authorised Sollatek partner supplying protection and power quality products.",
			Tags:     []string{"service", "overview"},
		},
		{
			Question: "Tell me more about hydropower projects",
			Answer:   "Our hydropower team handles feasibility studies, yield forecasts, environmental assessments, full EPC delivery, and ongoing operations and maintenance to keep your plant performing reliably.",
			Tags:     []string{"service", "hydropower"},
		},
		{
			Question: "Do you handle medium-voltage installations?",
			Answer:   "Yes. We design, build, and commission substations and grid interconnections from 11kV to 132kV, including protection studies, relay programming, and compliance audits.",
			Tags:     []string{"service", "medium-voltage"},
		},
		{
			Question: "Which Sollatek products can I source?",
			Answer:   "We supply the full Sollatek range including AVS 30, TV Guard, SVS stabilizers, three-phase VoltRight AVR, and accessories such as MV cable terminations and ground resistance testers.",
			Tags:     []string{"service", "sollatek"},
		},
		{
			Question: "How can I request a call back?",
			Answer:   "Click the call-back option, share your project context, and our team will reach you on 0726502349 or via email within one business day.",
			Tags:     []string{"contact", "callback"},
		},
		{
			Question: "Where are you located?",
			Answer:   "Our head office is in Nairobi, Kenya, with teams supporting projects across the region.",
			Tags:     []string{"contact", "location"},
		},
		{
			Question: "How fast do you respond?",
			Answer:   "We respond to new inquiries within one business day and provide project-specific timelines after the initial consultation.",
			Tags:     []string{"contact", "sla"},
		},
	},
}

// ServiceByID returns the service with the given id, or nil.
func (i *Info) ServiceByID(id string) *Service {
	for idx := range i.Services {
		if i.Services[idx].ID == id {
			return &i.Services[idx]
		}
	}
	return nil
}

// ServiceByKeyword matches free text against service ids, titles, and the
// domain synonyms visitors actually type. Matching is case-insensitive
// substring containment.
func (i *Info) ServiceByKeyword(text string) *Service {
	lowered := strings.ToLower(text)
	for idx := range i.Services {
		service := &i.Services[idx]
		if strings.Contains(lowered, service.ID) {
			return service
		}
		if strings.Contains(lowered, strings.ToLower(service.Title)) {
			return service
		}
		switch service.ID {
		case "medium-voltage":
			if strings.Contains(lowered, "medium voltage") || strings.Contains(lowered, "medium-voltage") {
				return service
			}
		case "sollatek":
			if strings.Contains(lowered, "sollatek") || strings.Contains(lowered, "protection") {
				return service
			}
		case "hydropower":
			if strings.Contains(lowered, "hydro") || strings.Contains(lowered, "plant") {
				return service
			}
		}
	}
	return nil
}

// MatchArticle returns the first knowledge-base article whose tags appear in
// the text, or nil.
func (i *Info) MatchArticle(text string) *Article {
	lowered := strings.ToLower(text)
	for idx := range i.KnowledgeBase {
		article := &i.KnowledgeBase[idx]
		for _, tag := range article.Tags {
			if strings.Contains(lowered, tag) {
				return article
			}
		}
	}
	return nil
}
