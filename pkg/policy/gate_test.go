package policy

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// okHandler is the protected endpoint behind the gate in these tests.
var okHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
})

func Test_Gate_AllowsWhenPolicyApproves(t *testing.T) {
	// given: a decision service capturing the forwarded input
	var captured struct {
		Input DecisionInput `json:"input"`
	}
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		_, _ = w.Write([]byte(`{"result":true}`))
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/products/1", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	// the decision service received method, path and lower-cased headers
	assert.Equal(t, http.MethodGet, captured.Input.Method)
	assert.Equal(t, "/products/1", captured.Input.Path)
	assert.Equal(t, "req-42", captured.Input.Headers["x-request-id"])
}

func Test_Gate_DeniesWhenPolicyRejects(t *testing.T) {
	// given
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":false}`))
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Request denied by policy"}`, rec.Body.String())
}

func Test_Gate_DeniesOnPolicyServerError(t *testing.T) {
	// given: the decision service answers but with a server error
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Policy check failed"}`, rec.Body.String())
}

func Test_Gate_DeniesOnMalformedDecision(t *testing.T) {
	// given
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`not json`))
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.JSONEq(t, `{"error":"Policy check failed"}`, rec.Body.String())
}

func Test_Gate_FailsOpenWhenPolicyUnreachable(t *testing.T) {
	// given: a decision service that is already gone
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {}))
	policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/products", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then: the request goes through
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func Test_Gate_HealthBypassesPolicy(t *testing.T) {
	// given: a decision service that would deny everything
	var called bool
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		called = true
		_, _ = w.Write([]byte(`{"result":false}`))
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then: the probe never reaches the decision service
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, called, "Decision service should not be consulted for exempt paths")
}

func Test_Gate_DisabledPassesEverything(t *testing.T) {
	// given: no decision service at all
	gate := NewGate("http://localhost:1", time.Second, false, noopLogger())
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodDelete, "/products/1", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
}

func Test_Gate_ExemptPathsOption(t *testing.T) {
	// given
	policyServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"result":false}`))
	}))
	defer policyServer.Close()

	gate := NewGate(policyServer.URL, time.Second, true, noopLogger(), WithExemptPaths("/metrics"))
	handler := gate.Middleware(okHandler)

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	rec := httptest.NewRecorder()

	// when
	handler.ServeHTTP(rec, req)

	// then
	assert.Equal(t, http.StatusOK, rec.Code)
}
