package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/robertarktes/order-lifecycle/internal/observability"
	"github.com/robertarktes/order-lifecycle/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Route("/api/orders", func(r chi.Router) {
		r.Get("/", h.ListOrders)
		r.Get("/summary", h.Summary)
		r.Get("/export", h.ExportCSV)
		r.Post("/{id}/pay", h.Pay)
		r.Post("/{id}/cancel", h.Cancel)
		r.Post("/{id}/reopen", h.Reopen)
		r.Post("/{id}/refund", h.Refund)
		r.Post("/{id}/refund/complete", h.RefundComplete)
		r.Post("/{id}/refund/reject", h.RefundReject)
		r.Post("/{id}/resend", h.Resend)
		r.Get("/{id}/logs", h.AuditLogs)
	})

	r.Route("/api/ticket", func(r chi.Router) {
		r.Post("/", h.IssueTicket)
		r.Get("/event/{eventId}/courtesies", h.ListCourtesies)
	})

	r.Get("/healthz", h.Healthz)
	r.Get("/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
