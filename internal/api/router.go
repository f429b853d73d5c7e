package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", s.handleHealth)

		r.Route("/devices", func(r chi.Router) {
			r.Get("/", s.handleListDevices)
			r.Get("/{unit}", s.handleGetDevice)
			r.Get("/{unit}/registers", s.handleGetRegisters)
		})
	})

	return r
}
