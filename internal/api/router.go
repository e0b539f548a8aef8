package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hackgods/barbershop-scheduling/internal/metrics"
)

type RouterConfig struct {
	Booking     BookingService
	Chat        ChatRouter
	Health      *HealthHandler
	Metrics     *metrics.Metrics // optional
	MetricsPath string
	Logger      *slog.Logger
}

func NewRouter(cfg RouterConfig) http.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	health := cfg.Health
	if health == nil {
		health = NewHealthHandler("", "")
	}

	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(logger))
	if cfg.Metrics != nil {
		r.Use(cfg.Metrics.Middleware)
	}

	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)
	if cfg.Metrics != nil {
		path := cfg.MetricsPath
		if path == "" {
			path = "/metrics"
		}
		r.Handle(path, cfg.Metrics.Handler())
	}

	r.Post("/chat", chatHandler(cfg.Chat, logger))

	r.Post("/appointments", createAppointmentHandler(cfg.Booking))
	r.Get("/users/{userID}/appointments", listUserAppointmentsHandler(cfg.Booking))
	r.Post("/users/{userID}/appointments/cancel-latest", cancelLatestHandler(cfg.Booking))

	r.Get("/barbers", listBarbersHandler(cfg.Booking))
	r.Get("/barbers/{id}/next-slot", nextSlotHandler(cfg.Booking))
	r.Get("/barbers/{id}/suggestions", suggestionsHandler(cfg.Booking))
	r.Get("/services", listServicesHandler(cfg.Booking))

	return r
}
