// Package app contains the application setup for the Product service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/abelikov/storefront/internal/product/config"
	"github.com/abelikov/storefront/internal/product/service"
	"github.com/abelikov/storefront/internal/product/store"
	"github.com/abelikov/storefront/internal/product/transport/rest"
	"github.com/abelikov/storefront/pkg/policy"
	"github.com/abelikov/storefront/pkg/server"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Dependencies struct {
	ProductService service.ProductService
	PolicyGate     *policy.Gate
	Logger         *slog.Logger
}

func SetupDependencies(dbPool *pgxpool.Pool, gate *policy.Gate, logger *slog.Logger) *Dependencies {
	pService := service.NewService(store.NewPgStore(dbPool))

	return &Dependencies{
		ProductService: pService,
		PolicyGate:     gate,
		Logger:         logger,
	}
}

// SetupHttpHandler initializes the HTTP router and routes for the Product service.
// Used by tests to exercise the full middleware chain.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	mux.Use(deps.PolicyGate.Middleware)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the Product service.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	productHandler := rest.NewHandler(deps.ProductService, deps.Logger)
	productHandler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the Product service.
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
