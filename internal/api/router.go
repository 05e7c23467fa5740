package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"go.uber.org/zap"

	"github.com/hackgods/clinic-scheduling/internal/availability"
	"github.com/hackgods/clinic-scheduling/internal/booking"
	"github.com/hackgods/clinic-scheduling/internal/identity"
	"github.com/hackgods/clinic-scheduling/internal/metrics"
	"github.com/hackgods/clinic-scheduling/internal/notification"
	"github.com/hackgods/clinic-scheduling/internal/record"
)

type RouterConfig struct {
	Engine        *booking.Engine
	Availability  *availability.Manager
	Notifications *notification.Service
	Records       *record.Service
	Resolver      identity.Resolver
	Metrics       *metrics.Collector
	Logger        *zap.Logger
	Health        *HealthHandler

	RateLimitRPS int
	CORSOrigins  []string
}

func NewRouter(cfg RouterConfig) http.Handler {
	log := cfg.Logger
	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(log))
	r.Use(MetricsMiddleware(cfg.Metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders: []string{"X-Request-ID"},
		MaxAge:         300,
	}))

	// Health endpoints
	if cfg.Health != nil {
		r.Get("/health/live", cfg.Health.Liveness)
		r.Get("/health/ready", cfg.Health.Readiness)
	}
	r.Method(http.MethodGet, "/metrics", cfg.Metrics.Handler())

	r.Group(func(r chi.Router) {
		if cfg.RateLimitRPS > 0 {
			r.Use(httprate.LimitByIP(cfg.RateLimitRPS, time.Second))
		}
		r.Use(AuthMiddleware(cfg.Resolver))

		// Appointment endpoints
		r.Post("/appointments", bookAppointmentHandler(cfg.Engine, log))
		r.Get("/appointments", listAppointmentsHandler(cfg.Engine, log))
		r.Get("/appointments/today", todayAppointmentsHandler(cfg.Engine, log))
		r.Get("/appointments/{id}", getAppointmentHandler(cfg.Engine, log))
		r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(cfg.Engine, log))
		r.Post("/appointments/{id}/reject", rejectAppointmentHandler(cfg.Engine, log))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(cfg.Engine, log))
		r.Post("/appointments/{id}/reschedule", rescheduleAppointmentHandler(cfg.Engine, log))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(cfg.Engine, log))

		// Doctor endpoints
		r.Get("/doctors/me/stats", doctorStatsHandler(cfg.Engine, log))
		r.Get("/doctors/available", availableDoctorsHandler(cfg.Availability, log))
		r.Get("/doctors/{id}/availability", doctorAvailabilityHandler(cfg.Availability, log))

		// Availability endpoints
		r.Get("/availability", listAvailabilityHandler(cfg.Availability, log))
		r.Post("/availability", addAvailabilityHandler(cfg.Availability, log))
		r.Put("/availability/{id}", updateAvailabilityHandler(cfg.Availability, log))
		r.Delete("/availability/{id}", deleteAvailabilityHandler(cfg.Availability, log))
		r.Put("/admin/doctors/{doctorID}/availability/{id}", adminUpdateAvailabilityHandler(cfg.Availability, log))

		// Records and notifications
		r.Get("/records", listRecordsHandler(cfg.Records, log))
		r.Get("/notifications", listNotificationsHandler(cfg.Notifications, log))
		r.Get("/notifications/unread-count", unreadCountHandler(cfg.Notifications, log))
		r.Post("/notifications/read-all", markAllReadHandler(cfg.Notifications, log))
		r.Post("/notifications/{id}/read", markReadHandler(cfg.Notifications, log))
	})

	return r
}
