package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/woodlands-thekkady/booking-flow/internal/observability"
	"github.com/woodlands-thekkady/booking-flow/internal/rateLimit"
)

func SetupRouter(h *Handlers, logger observability.Logger, rl *rateLimit.RateLimiter) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(RequestIDMiddleware)
	r.Use(LoggerMiddleware(logger))
	r.Use(TracingMiddleware)
	r.Use(MetricsMiddleware)
	r.Use(RateLimitMiddleware(rl))

	r.Post("/v1/sessions", h.CreateSession)
	r.Get("/v1/sessions/{id}", h.GetSession)
	r.Delete("/v1/sessions/{id}", h.DeleteSession)
	r.Post("/v1/sessions/{id}/availability", h.CheckAvailability)
	r.Post("/v1/sessions/{id}/hold", h.RequestHold)
	r.Post("/v1/sessions/{id}/guest", h.SubmitGuestInfo)
	r.Post("/v1/sessions/{id}/payment", h.BeginPayment)
	r.Get("/v1/sessions/{id}/voucher", h.Voucher)
	r.Post("/v1/payments/callback", h.PaymentCallback)
	r.Get("/v1/healthz", h.Healthz)
	r.Get("/v1/readyz", h.Readyz)
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	return r
}
