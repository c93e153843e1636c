package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/rogerio-castellano/pos-terminal/internal/auth"
	"github.com/rogerio-castellano/pos-terminal/internal/http/handlers"
	"github.com/rogerio-castellano/pos-terminal/internal/http/rate_limiter"
	"go.uber.org/zap"
)

type RouterConfig struct {
	JWTSecret []byte
	// Limiter is optional; nil disables per-IP rate limiting.
	Limiter *rate_limiter.Limiter
	Log     *zap.Logger
}

func NewRouter(srv *handlers.Server, cfg RouterConfig) http.Handler {
	log := cfg.Log
	if log == nil {
		log = zap.NewNop()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(RequestLogger(log))
	if cfg.Limiter != nil {
		r.Use(cfg.Limiter.Middleware)
	}

	r.Get("/health", srv.HealthHandler)

	r.Group(func(r chi.Router) {
		r.Use(AuthMiddleware(cfg.JWTSecret))

		r.Get("/outlets/{outletID}/products", srv.GetProductsHandler)
		r.Get("/outlets/{outletID}/products/lookup", srv.LookupProductHandler)

		r.Post("/transactions", srv.CreateTransactionHandler)

		r.Get("/offline/transactions", srv.GetOfflineTransactionsHandler)
		r.Get("/offline/transactions/count", srv.GetOfflineTransactionCountHandler)
		r.With(RequireRole(auth.RoleAdmin)).Delete("/offline/transactions", srv.ClearOfflineTransactionsHandler)

		r.Post("/sync", srv.SyncHandler)
		r.Post("/outbox", srv.QueueOperationHandler)
		r.With(RequireRole(auth.RoleAdmin)).Post("/outbox/requeue", srv.RequeueOperationsHandler)

		r.Get("/metrics/dashboard", srv.GetDashboardMetricsHandler)
	})

	return r
}
