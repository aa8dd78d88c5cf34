// Credissuer - Verifiable Credential Issuer Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/credissuer

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/credissuer/internal/middleware"
)

// Login attempts allowed per IP per window.
const (
	loginRateLimit  = 5
	loginRateWindow = 5 * time.Minute
)

// Router builds the chi route tree for a Handler.
type Router struct {
	handler *Handler
}

// NewRouter returns a Router for h.
func NewRouter(h *Handler) *Router {
	return &Router{handler: h}
}

// Routes returns the complete handler.
func (router *Router) Routes() http.Handler {
	h := router.handler
	srv := h.cfg.Server
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   srv.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "Authorization", middleware.RequestIDHeader},
		ExposedHeaders:   []string{middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           86400,
	}))
	r.Use(middleware.PrometheusMetrics)

	// Monitoring endpoints are not rate limited.
	r.Get("/health", h.Health)
	r.Handle("/metrics", promhttp.Handler())

	r.Group(func(r chi.Router) {
		r.Use(httprate.LimitByIP(srv.RateLimitReqs, time.Minute))
		r.Use(middleware.Compression)

		r.Route("/api/v1", func(r chi.Router) {
			r.Get("/health/ready", h.Ready)

			r.Get("/issuer", h.Issuer)
			r.Get("/images/icon", h.Icon)
			r.Post("/images/card/{side}", h.RenderCard)
			r.Get("/proofs/login", h.LoginProof)
			r.Get("/signup", h.SignupInfo)
			r.Post("/users", h.CreateUser)

			r.With(httprate.LimitByIP(loginRateLimit, loginRateWindow)).Post("/auth/login", h.Login)

			r.Route("/admin", func(r chi.Router) {
				r.Use(h.auth.RequireAdmin)
				r.Get("/config", h.AdminConfig)
				r.Get("/connections", h.AdminConnections)
				r.Post("/connections/{id}/accept", h.AdminAcceptConnection)
				r.Get("/users/{email}", h.AdminUser)
				r.Get("/audit", h.AdminAudit)
			})
		})
	})

	return r
}
