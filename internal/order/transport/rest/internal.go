package rest

import (
	"log/slog"
	"net/http"
	"runtime"
	"time"

	"github.com/abelikov/storefront/pkg/web"
	"github.com/go-chi/chi/v5"
)

// PoolStats is a snapshot of database pool usage reported on the
// internal status endpoint.
type PoolStats struct {
	TotalConns    int32 `json:"total_conns"`
	IdleConns     int32 `json:"idle_conns"`
	AcquiredConns int32 `json:"acquired_conns"`
	MaxConns      int32 `json:"max_conns"`
}

// InternalHandler serves the /internal namespace, reachable only by
// trusted services identified via the X-Service-Id header.
type InternalHandler struct {
	trusted   map[string]struct{}
	poolStats func() PoolStats
	startedAt time.Time
	logger    *slog.Logger
}

// NewInternalHandler creates a handler for the internal namespace.
// trustedServices is the allow-list of X-Service-Id values.
func NewInternalHandler(trustedServices []string, poolStats func() PoolStats, logger *slog.Logger) *InternalHandler {
	trusted := make(map[string]struct{}, len(trustedServices))
	for _, s := range trustedServices {
		trusted[s] = struct{}{}
	}
	return &InternalHandler{
		trusted:   trusted,
		poolStats: poolStats,
		startedAt: time.Now(),
		logger:    logger.With("component", "internal"),
	}
}

// RegisterRoutes mounts the internal namespace behind the service
// identity check.
func (h *InternalHandler) RegisterRoutes(r *chi.Mux) {
	r.Route("/internal", func(r chi.Router) {
		r.Use(h.requireTrustedService)
		r.Get("/", h.Status)
	})
}

// requireTrustedService rejects requests whose X-Service-Id header is
// missing or not on the allow-list.
func (h *InternalHandler) requireTrustedService(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		serviceID := r.Header.Get("X-Service-Id")
		if _, ok := h.trusted[serviceID]; !ok {
			h.logger.WarnContext(r.Context(), "Rejected internal request from untrusted caller",
				"service_id", serviceID, "path", r.URL.Path)
			web.RespondError(w, h.logger, http.StatusForbidden, "Access denied")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// Status reports service runtime information for trusted callers.
func (h *InternalHandler) Status(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	payload := map[string]any{
		"service":        serviceName,
		"uptime_seconds": int64(time.Since(h.startedAt).Seconds()),
		"goroutines":     runtime.NumGoroutine(),
		"heap_alloc":     m.HeapAlloc,
		"caller":         r.Header.Get("X-Service-Id"),
	}
	if h.poolStats != nil {
		payload["db_pool"] = h.poolStats()
	}
	web.RespondJSON(w, h.logger, http.StatusOK, payload)
}
