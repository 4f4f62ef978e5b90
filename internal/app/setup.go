// Package app contains the application setup for the storefront service.
package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/trilabs/tri-backend/internal/config"
	"github.com/trilabs/tri-backend/internal/invoice"
	"github.com/trilabs/tri-backend/internal/mailer"
	"github.com/trilabs/tri-backend/internal/payment"
	"github.com/trilabs/tri-backend/internal/service"
	"github.com/trilabs/tri-backend/internal/store"
	"github.com/trilabs/tri-backend/internal/transport/rest"
	"github.com/trilabs/tri-backend/pkg/server"
)

type Dependencies struct {
	OrderService service.OrderService
	Mailer       mailer.Mailer
	Store        *store.PgStore
	DBConfigured bool
	Logger       *slog.Logger
}

// SetupDependencies wires the store, allocator, verifier and service.
// dbPool may be nil; the service then runs in degraded mode.
func SetupDependencies(dbPool *pgxpool.Pool, m mailer.Mailer, dbConfigured bool, logger *slog.Logger) *Dependencies {
	pgStore := store.NewPgStore(dbPool)
	allocator := invoice.NewAllocator(pgStore)
	svc := service.NewService(pgStore, allocator, payment.NewAcceptAll(), logger)

	return &Dependencies{
		OrderService: svc,
		Mailer:       m,
		Store:        pgStore,
		DBConfigured: dbConfigured,
		Logger:       logger,
	}
}

// SetupHttpHandler initializes the HTTP routes for the storefront application.
// Used by E2E tests to set up the HTTP server with the necessary routes and middleware.
func SetupHttpHandler(deps *Dependencies) http.Handler {
	mux := server.NewChiRouter(deps.Logger)
	wireRoutes(mux, deps)
	return mux
}

// wireRoutes sets up the HTTP routes for the storefront application.
func wireRoutes(mux *chi.Mux, deps *Dependencies) {
	handler := rest.NewHandler(deps.OrderService, deps.Mailer, deps.Store, deps.DBConfigured, deps.Logger)
	handler.RegisterRoutes(mux)
}

// SetupHttpServer creates and configures an HTTP server for the storefront application.
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
