package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/hackgods/careslot/internal/appointment"
	"github.com/hackgods/careslot/internal/notification"
)

type RouterConfig struct {
	Service        *appointment.Service
	Notifications  notification.Store
	Health         *HealthHandler
	Metrics        http.Handler // served at /metrics when set
	Logger         *zap.Logger
	RequestTimeout time.Duration
	BookingLimiter *RateLimiter // optional
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 15 * time.Second
	}
	if cfg.Health == nil {
		cfg.Health = NewHealthHandler("", "")
	}

	r := chi.NewRouter()

	// Apply middleware
	r.Use(RequestIDMiddleware)
	r.Use(LoggingMiddleware(cfg.Logger))
	r.Use(middleware.Recoverer)

	// Health endpoints
	r.Get("/health/live", cfg.Health.Liveness)
	r.Get("/health/ready", cfg.Health.Readiness)
	if cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", cfg.Metrics)
	}

	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(cfg.RequestTimeout))
		r.Use(IdentityMiddleware)

		svc := cfg.Service

		// Provider schedule and availability
		r.Route("/providers/{providerID}", func(r chi.Router) {
			r.Get("/slots", listAvailableSlotsHandler(svc))
			r.Get("/calendar", dayScheduleHandler(svc))
			r.Get("/schedule/windows", listWindowsHandler(svc))
			r.Post("/schedule/windows", addWindowHandler(svc))
			r.Delete("/schedule/windows/{windowID}", deleteWindowHandler(svc))
			r.Get("/schedule/breaks", listBreaksHandler(svc))
			r.Post("/schedule/breaks", addBreakHandler(svc))
			r.Delete("/schedule/breaks/{breakID}", deleteBreakHandler(svc))
		})

		// Appointment endpoints
		book := http.Handler(bookAppointmentHandler(svc))
		if cfg.BookingLimiter != nil {
			book = cfg.BookingLimiter.Middleware(book)
		}
		r.Method(http.MethodPost, "/appointments", book)
		r.Get("/appointments", listAppointmentsHandler(svc))
		r.Get("/appointments/{id}", getAppointmentHandler(svc))
		r.Post("/appointments/{id}/confirm", confirmAppointmentHandler(svc))
		r.Post("/appointments/{id}/reject", rejectAppointmentHandler(svc))
		r.Post("/appointments/{id}/cancel", cancelAppointmentHandler(svc))
		r.Post("/appointments/{id}/complete", completeAppointmentHandler(svc))

		// Notification inbox
		if cfg.Notifications != nil {
			store := cfg.Notifications
			r.Get("/users/{userID}/notifications", listNotificationsHandler(store))
			r.Get("/users/{userID}/notifications/unread-count", unreadCountHandler(store))
			r.Post("/users/{userID}/notifications/read-all", markAllReadHandler(store))
			r.Post("/notifications/{id}/read", markReadHandler(store))
			r.Post("/notifications/{id}/toggle-read", toggleReadHandler(store))
			r.Delete("/notifications/{id}", deleteNotificationHandler(store))
		}
	})

	return r
}
