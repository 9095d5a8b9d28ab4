// Package adminproxy forwards requests under a fixed prefix to the external
// admin backend. It is a dumb pipe: upstream business errors pass through
// verbatim, and only transport failures become its own errors.
package adminproxy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// tokenPathPrefix is the upstream sub-path that requires the service token
// when the caller did not supply its own Authorization header.
const tokenPathPrefix = "/api/requests"

// hop-by-hop and origin-bound headers never forwarded upstream.
var droppedRequestHeaders = map[string]bool{
	"host":           true,
	"content-length": true,
	"connection":     true,
}

// Proxy relays requests under Prefix to the configured upstream target.
type Proxy struct {
	target string
	token  string
	prefix string
	client *http.Client
}

// New creates a proxy stripping the given prefix and forwarding to target.
// An empty target is allowed; forwarding then fails with a fixed 500.
func New(target, token, prefix string) *Proxy {
	return &Proxy{
		target: strings.TrimSpace(target),
		token:  strings.TrimSpace(token),
		prefix: prefix,
		client: &http.Client{Timeout: 30 * time.Second},
	}
}

// ServeHTTP forwards the request and relays the upstream response.
func (p *Proxy) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if p.target == "" {
		writeDetail(w, http.StatusInternalServerError, "Admin API proxy target not configured")
		return
	}

	base, err := url.Parse(p.target)
	if err != nil {
		slog.Error("Admin proxy target unparseable", "target", p.target, "error", err)
		writeDetail(w, http.StatusBadGateway, "Failed to reach admin backend")
		return
	}

	upstreamPath := strings.TrimPrefix(r.URL.Path, p.prefix)
	if upstreamPath == "" {
		upstreamPath = "/"
	}
	targetURL := &url.URL{
		Scheme:   base.Scheme,
		Host:     base.Host,
		Path:     upstreamPath,
		RawQuery: r.URL.RawQuery,
	}

	var body io.Reader
	if r.Method != http.MethodGet && r.Method != http.MethodHead {
		body = r.Body
	}

	req, err := http.NewRequestWithContext(r.Context(), r.Method, targetURL.String(), body)
	if err != nil {
		slog.Error("Admin proxy request build failed", "error", err)
		writeDetail(w, http.StatusBadGateway, "Failed to reach admin backend")
		return
	}

	for key, values := range r.Header {
		if droppedRequestHeaders[strings.ToLower(key)] {
			continue
		}
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	if p.token != "" && strings.HasPrefix(upstreamPath, tokenPathPrefix) && req.Header.Get("Authorization") == "" {
		headerValue := p.token
		if !strings.HasPrefix(headerValue, "Token ") {
			headerValue = "Token " + headerValue
		}
		req.Header.Set("Authorization", headerValue)
	}

	resp, err := p.client.Do(req)
	if err != nil {
		slog.Error("Admin proxy upstream unreachable", "url", targetURL.String(), "error", err)
		writeDetail(w, http.StatusBadGateway, "Failed to reach admin backend")
		return
	}
	defer resp.Body.Close()

	for key, values := range resp.Header {
		lower := strings.ToLower(key)
		if lower == "transfer-encoding" {
			continue
		}
		if lower == "set-cookie" {
			// Appended, not overwritten: the ResponseWriter may already
			// carry cookies of its own.
			for _, value := range values {
				w.Header().Add("Set-Cookie", value)
			}
			continue
		}
		for _, value := range values {
			w.Header().Add(key, value)
		}
	}

	w.WriteHeader(resp.StatusCode)
	if resp.StatusCode == http.StatusNoContent {
		return
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		slog.Warn("Admin proxy response copy interrupted", "error", err)
	}
}

func writeDetail(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
