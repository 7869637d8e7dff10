// Package app contains the application setup for the Order service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abelikov/storefront/internal/order/config"
	"github.com/abelikov/storefront/internal/order/service"
	"github.com/abelikov/storefront/internal/order/store"
	"github.com/abelikov/storefront/internal/order/transport/rest"
	"github.com/abelikov/storefront/pkg/client/catalog"
	"github.com/abelikov/storefront/pkg/messaging"
	"github.com/abelikov/storefront/pkg/policy"
	"github.com/abelikov/storefront/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	OrderService    service.OrderService
	PolicyGate      *policy.Gate
	TrustedServices []string
	PoolStats       func() rest.PoolStats
	Logger          *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, stockClient catalog.StockClient, publisher messaging.Publisher, gate *policy.Gate, cfg *config.Config, logger *slog.Logger) *Dependencies {
	oService := service.NewService(store.NewPgStore(dbPool), stockClient, publisher, logger)

	return &Dependencies{
		OrderService:    oService,
		PolicyGate:      gate,
		TrustedServices: cfg.Internal.TrustedServices,
		PoolStats: func() rest.PoolStats {
			s := dbPool.Stat()
			return rest.PoolStats{
				TotalConns:    s.TotalConns(),
				IdleConns:     s.IdleConns(),
				AcquiredConns: s.AcquiredConns(),
				MaxConns:      s.MaxConns(),
			}
		},
		Logger: logger,
	}
}

// SetupHttpHandler initializes the HTTP router and routes for the Order service.
// Used by tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	mux.Use(deps.PolicyGate.Middleware)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the Order service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	orderHandler := rest.NewHandler(deps.OrderService, deps.Logger)
	orderHandler.RegisterRoutes(mux)

	internalHandler := rest.NewInternalHandler(deps.TrustedServices, deps.PoolStats, deps.Logger)
	internalHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the Order service.
func SetupHttpServer(deps *Dependencies, cfg *config.Config) *http.Server {
	mux := SetupHttpHandler(deps)

	httpCfg := server.HTTPConfig{
		Port:           cfg.HTTPServer.Port,
		MaxHeaderBytes: cfg.HTTPServer.MaxHeaderBytes,
		ReadTimeout:    cfg.HTTPServer.Timeout.Read,
		WriteTimeout:   cfg.HTTPServer.Timeout.Write,
		IdleTimeout:    cfg.HTTPServer.Timeout.Idle,
		ReadHeader:     cfg.HTTPServer.Timeout.ReadHeader,
	}

	return server.NewHTTPServer(httpCfg, mux)
}
