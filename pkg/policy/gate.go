// Package policy implements request admission against an external
// policy decision service.
//
// The gate forwards method, path and headers of every inbound request to
// the decision endpoint and allows or denies based on its verdict. When
// the decision service cannot be reached the gate fails open: the request
// is allowed and a warning is logged. Availability is deliberately chosen
// over strictness here.
package policy

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// DecisionInput is the payload forwarded to the decision service.
type DecisionInput struct {
	Method  string            `json:"method"`
	Path    string            `json:"path"`
	Headers map[string]string `json:"headers"`
}

type decisionRequest struct {
	Input DecisionInput `json:"input"`
}

type decisionResponse struct {
	Result bool `json:"result"`
}

// Gate is an admission-control middleware backed by an external policy
// decision endpoint.
type Gate struct {
	url     string
	client  *http.Client
	exempt  map[string]struct{}
	logger  *slog.Logger
	enabled bool
}

// Option configures a Gate.
type Option func(*Gate)

// WithExemptPaths registers paths that bypass the gate entirely.
func WithExemptPaths(paths ...string) Option {
	return func(g *Gate) {
		for _, p := range paths {
			g.exempt[p] = struct{}{}
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client. Used by tests.
func WithHTTPClient(client *http.Client) Option {
	return func(g *Gate) {
		g.client = client
	}
}

// NewGate creates a Gate that consults the given decision URL with a
// bounded per-request timeout. The liveness probe path is always exempt.
func NewGate(url string, timeout time.Duration, enabled bool, logger *slog.Logger, opts ...Option) *Gate {
	g := &Gate{
		url:     url,
		client:  &http.Client{Timeout: timeout},
		exempt:  map[string]struct{}{"/health": {}},
		logger:  logger.With("component", "policy_gate"),
		enabled: enabled,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Middleware returns the chi-compatible admission middleware.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !g.enabled {
			next.ServeHTTP(w, r)
			return
		}
		if _, ok := g.exempt[r.URL.Path]; ok {
			next.ServeHTTP(w, r)
			return
		}

		allowed, denyMessage, err := g.check(r)
		if err != nil {
			// Decision service unreachable: fail open to avoid blocking
			// legitimate traffic.
			g.logger.WarnContext(r.Context(), "Policy service unreachable, applying fallback policy (allow request)",
				"error", err, "method", r.Method, "path", r.URL.Path)
			next.ServeHTTP(w, r)
			return
		}
		if !allowed {
			g.logger.WarnContext(r.Context(), "Request denied by policy",
				"method", r.Method, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": denyMessage})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// check consults the decision service. A transport-level failure is
// returned as err; a reachable service that does not produce a truthy
// verdict yields allowed=false with a deny message.
func (g *Gate) check(r *http.Request) (allowed bool, denyMessage string, err error) {
	input := decisionRequest{Input: DecisionInput{
		Method:  r.Method,
		Path:    r.URL.Path,
		Headers: flattenHeaders(r.Header),
	}}
	body, err := json.Marshal(input)
	if err != nil {
		return false, "", fmt.Errorf("failed to marshal decision input: %w", err)
	}

	req, err := http.NewRequestWithContext(r.Context(), http.MethodPost, g.url, bytes.NewReader(body))
	if err != nil {
		return false, "", fmt.Errorf("failed to build decision request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return false, "", fmt.Errorf("decision request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		g.logger.Error("Policy service error", "status", resp.StatusCode)
		return false, "Policy check failed", nil
	}

	var decision decisionResponse
	if err := json.NewDecoder(resp.Body).Decode(&decision); err != nil {
		g.logger.Error("Failed to decode policy decision", "error", err)
		return false, "Policy check failed", nil
	}
	if !decision.Result {
		return false, "Request denied by policy", nil
	}
	return true, "", nil
}

// flattenHeaders keeps the first value per header, lower-casing names the
// way the decision service expects them.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	for name, values := range h {
		if len(values) == 0 {
			continue
		}
		out[strings.ToLower(name)] = values[0]
	}
	return out
}
