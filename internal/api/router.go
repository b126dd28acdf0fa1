package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/medibook/appointment-booking/internal/booking"
)

type RouterConfig struct {
	Service *booking.Service
	PgPool  *pgxpool.Pool
	Redis   *redis.Client
	Env     string
	Version string
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware)

	// Health endpoints
	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	// Slot availability
	r.Get("/doctors/{doctorID}/slots", listSlotsHandler(cfg.Service))

	// Appointment lifecycle
	r.Post("/appointments", bookAppointmentHandler(cfg.Service))
	r.Get("/appointments", listAppointmentsHandler(cfg.Service))
	r.Get("/appointments/{id}", getAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/pay", payAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/refund", refundAppointmentHandler(cfg.Service))
	r.Post("/appointments/{id}/arrival", arrivalHandler(cfg.Service))

	return r
}
