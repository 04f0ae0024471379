package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/httprate"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/careloop/clinic-scheduling/internal/logging"
)

type RouterConfig struct {
	Service   SchedulingService
	PgPool    *pgxpool.Pool
	Redis     *redis.Client
	Logger    *logging.Logger
	Registry  *prometheus.Registry
	Env       string
	Version   string
	RateLimit int
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}

	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	if cfg.RateLimit > 0 {
		r.Use(httprate.LimitByIP(cfg.RateLimit, time.Minute))
	}

	health := NewHealthHandler(cfg.PgPool, cfg.Redis, cfg.Env, cfg.Version)
	r.Get("/health/live", health.Liveness)
	r.Get("/health/ready", health.Readiness)

	if cfg.Registry != nil {
		r.Handle("/metrics", promhttp.HandlerFor(cfg.Registry, promhttp.HandlerOpts{}))
	}

	h := NewHandler(cfg.Service)

	r.Route("/appointments", func(r chi.Router) {
		r.Post("/", h.requestAppointment)
		r.Get("/{id}", h.getAppointment)
		r.Post("/{id}/confirm", h.confirmAppointment)
		r.Post("/{id}/cancel", h.cancelAppointment)
		r.Post("/{id}/reschedule", h.rescheduleAppointment)
		r.Post("/{id}/complete", h.completeAppointment)
		r.Post("/{id}/no-show", h.markNoShow)
		r.Delete("/{id}", h.removeAppointment)
	})

	r.Get("/doctors/{doctorID}/availability", h.getAvailability)
	r.Get("/doctors/{doctorID}/appointments", h.listDoctorAppointments)
	r.Get("/patients/{patientID}/appointments", h.listPatientAppointments)
	r.Get("/patients/{patientID}/calendar", h.getPatientCalendar)

	return r
}
