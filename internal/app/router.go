package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/tavola-erp/tavola-erp/internal/ledger/accounts"
	"github.com/tavola-erp/tavola-erp/internal/ledger/journals"
	"github.com/tavola-erp/tavola-erp/internal/ledger/statements"
	"github.com/tavola-erp/tavola-erp/internal/observability"
	"github.com/tavola-erp/tavola-erp/internal/posbridge"
	"github.com/tavola-erp/tavola-erp/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger            *slog.Logger
	Config            *Config
	AccountsHandler   *accounts.Handler
	JournalsHandler   *journals.Handler
	StatementsHandler *statements.Handler
	POSBridgeHandler  *posbridge.Handler
	JobsHandler       *jobs.Handler
	Metrics           *observability.Metrics
}

// NewRouter constructs the chi.Router with Tavola defaults.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger:  params.Logger,
		Config:  params.Config,
		Metrics: params.Metrics,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	if params.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", params.Metrics.Handler())
	}
	if params.JobsHandler != nil {
		r.Route("/jobs", params.JobsHandler.MountRoutes)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(IdentityMiddleware(params.Logger))
		r.Route("/accounts", params.AccountsHandler.MountRoutes)
		r.Route("/journal-entries", params.JournalsHandler.MountRoutes)
		r.Route("/statements", params.StatementsHandler.MountRoutes)
		r.Route("/pos", params.POSBridgeHandler.MountRoutes)
	})

	return r
}
