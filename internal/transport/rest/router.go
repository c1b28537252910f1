package rest

import (
	"database/sql"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi"

	"github.com/frahmantamala/clinical-records/internal/audit"
	"github.com/frahmantamala/clinical-records/internal/auth"
	"github.com/frahmantamala/clinical-records/internal/records"
	"github.com/frahmantamala/clinical-records/internal/transport/middleware"
)

func RegisterAllRoutes(router *chi.Mux, db *sql.DB, authHandler *auth.Handler, recordsHandler *records.Handler, auditHandler *audit.Handler, metricsHandler http.Handler, logger *slog.Logger) {
	healthHandler := NewHealthHandler(db)

	// Apply global middleware
	router.Use(middleware.RequestID)
	router.Use(middleware.RecoveryMiddleware(logger))
	router.Use(middleware.LoggingMiddleware(logger))

	if metricsHandler != nil {
		router.Handle("/metrics", metricsHandler)
	}

	router.Route("/api/v1", func(r chi.Router) {
		// Health check route
		r.Get("/health", healthHandler.healthCheckHandler)
		r.Get("/ping", healthHandler.pingHandler)

		// Auth routes
		if authHandler != nil {
			r.Route("/auth", func(sr chi.Router) {
				sr.Post("/login", authHandler.Login)
				sr.Post("/logout", authHandler.Logout)
			})
		}

		if authHandler != nil {
			// Protected routes that require a valid session
			r.Group(func(pr chi.Router) {
				pr.Use(authHandler.AuthMiddleware)

				pr.Post("/authorize", authHandler.Authorize)

				// User administration
				pr.Route("/users", func(ur chi.Router) {
					ur.Post("/", authHandler.CreateUser)
					ur.Get("/", authHandler.ListUsers)
					ur.Patch("/{id}/active", authHandler.SetActive)
					ur.Post("/password", authHandler.ChangePassword)
				})

				// Record routes, keyed by kind
				if recordsHandler != nil {
					pr.Route("/records/{kind}", func(rr chi.Router) {
						rr.Post("/", recordsHandler.Write)
						rr.Get("/", recordsHandler.Search)
						rr.Get("/search", recordsHandler.Search)
						rr.Get("/{id}", recordsHandler.Read)
					})
				}

				// Audit trail (permission checked in the service)
				if auditHandler != nil {
					pr.Get("/audit", auditHandler.Query)
				}
			})
		}
	})
}
