// Package submissions hands structured inquiries off to the admin backend.
// The backend's schema and business rules are not owned here; the sink only
// posts and reports acceptance or rejection.
package submissions

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Submission is the inquiry captured by the chatbot's submission flows.
type Submission struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Type    string `json:"type"`
	Service string `json:"service,omitempty"`
	Message string `json:"message"`
}

// Sink accepts submissions. A rejection fails the conversation turn but is
// surfaced to the visitor as non-fatal.
type Sink interface {
	Create(ctx context.Context, sub Submission) error
}

// HTTPSink posts submissions to the admin backend's requests endpoint,
// authenticating with the service token when one is configured.
type HTTPSink struct {
	target string
	token  string
	client *http.Client
}

// NewHTTPSink creates a sink posting to the given upstream base URL.
func NewHTTPSink(target, token string) *HTTPSink {
	return &HTTPSink{
		target: target,
		token:  strings.TrimSpace(token),
		client: &http.Client{Timeout: 15 * time.Second},
	}
}

// Create posts the submission to {target}/api/requests.
func (s *HTTPSink) Create(ctx context.Context, sub Submission) error {
	if s.target == "" {
		return fmt.Errorf("submission target not configured")
	}

	base, err := url.Parse(s.target)
	if err != nil {
		return fmt.Errorf("parse submission target: %w", err)
	}
	endpoint := &url.URL{Scheme: base.Scheme, Host: base.Host, Path: "/api/requests"}

	body, err := json.Marshal(sub)
	if err != nil {
		return fmt.Errorf("encode submission: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint.String(), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build submission request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if s.token != "" {
		headerValue := s.token
		if !strings.HasPrefix(headerValue, "Token ") {
			headerValue = "Token " + headerValue
		}
		req.Header.Set("Authorization", headerValue)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post submission: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("submission rejected: status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}
