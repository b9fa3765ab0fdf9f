// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Owlivion Technologies

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)
	router.Use(cors.Handler(cors.Options{
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", traceIDHeader},
		ExposedHeaders:   []string{traceIDHeader},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/auth/register", h.register)
		r.Post("/api/auth/login", h.login)
		r.Post("/api/auth/refresh", h.refresh)
	})

	// routes behind a valid access token
	router.Group(func(r chi.Router) {
		r.Use(h.auth)
		r.Use(h.rateLimit)

		r.Post("/api/sync/upload", h.upload)
		r.Get("/api/sync/delta", h.delta)
		r.Get("/api/sync/snapshot", h.getSnapshot)
		r.Post("/api/sync/snapshot", h.saveSnapshot)

		r.Get("/api/devices", h.listDevices)
		r.Delete("/api/devices/{deviceID}", h.revokeDevice)
		r.Get("/api/sessions", h.listSessions)
		r.Delete("/api/sessions/{sessionID}", h.revokeSession)

		r.Get("/api/audit", h.history)
		r.Get("/api/audit/export", h.exportHistory)
	})

	return router
}
