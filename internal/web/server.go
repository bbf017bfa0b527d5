package web

import (
	"net/http"

	"studio-admin/internal/models/config"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewRouter собирает маршруты API
func NewRouter(h *Handler, cfg *config.Config, log *zap.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(log.Named("http")))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.HTTP.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		if cfg.Auth.JWTSecret != "" {
			r.Use(authMiddleware(cfg.Auth.JWTSecret))
		}

		r.Route("/asistencia", func(r chi.Router) {
			r.Route("/plantillas", func(r chi.Router) {
				r.Get("/", h.ListTemplates)
				r.Post("/", h.CreateTemplate)
				r.Get("/{id}", h.GetTemplate)
				r.Put("/{id}", h.UpdateTemplate)
				r.Delete("/{id}", h.DeleteTemplate)
				r.Post("/{id}/activar", h.ActivateTemplate)
				r.Post("/{id}/desactivar", h.DeactivateTemplate)
			})

			r.Route("/clases", func(r chi.Router) {
				r.Post("/generar", h.GenerateSessions)
				r.Get("/", h.ListSessions)
				r.Post("/", h.CreateSession)
				r.Get("/{id}", h.GetSession)
				r.Put("/{id}", h.UpdateSession)
				r.Delete("/{id}", h.DeleteSession)
				r.Get("/{id}/alumnos", h.EligibleMembers)
				r.Put("/{id}/asistencias", h.SetAttendance)
				r.Delete("/{id}/asistencias/{memberId}", h.RemoveAttendance)
				r.Get("/{id}/resumen", h.AttendanceSummary)
			})
		})

		r.Route("/suscripciones", func(r chi.Router) {
			r.Get("/", h.ListSubscriptions)
			r.Post("/", h.CreateSubscription)
			r.Get("/por-vencer", h.ExpiringSubscriptions)
			r.Post("/{id}/renovar", h.RenewSubscription)
			r.Delete("/{id}", h.DeleteSubscription)
		})
	})

	return r
}
