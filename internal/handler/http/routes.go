// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Init builds the relay router:
//
//	GET  /ws/{channel}                      websocket relay for one room
//	GET  /api/documents/{key}/snapshot      load a snapshot
//	PUT  /api/documents/{key}/snapshot      overwrite a snapshot
//	POST /api/documents/{key}/snapshot      create a snapshot
//	GET  /api/version                       build info
func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	router.Get("/api/version", h.getServerVersion)

	router.Group(func(r chi.Router) {
		r.Use(h.withPeerKey)

		r.Get("/ws/{channel}", h.serveWebsocket)

		snapshots := r.With(withGZip)
		snapshots.Get("/api/documents/{key}/snapshot", h.loadSnapshot)
		snapshots.Put("/api/documents/{key}/snapshot", h.updateSnapshot)
		snapshots.Post("/api/documents/{key}/snapshot", h.insertSnapshot)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
