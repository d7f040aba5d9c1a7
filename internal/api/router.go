package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// buildRouter creates the HTTP router with all routes and middleware.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoveryMiddleware)
	r.Use(s.corsMiddleware)
	r.Use(s.bodySizeLimitMiddleware)

	r.Route("/api/v1", func(r chi.Router) {
		// Unauthenticated monitoring
		r.Get("/health", s.handleHealth)
		if s.metrics != nil {
			r.Handle("/metrics", promhttp.HandlerFor(s.metrics, promhttp.HandlerOpts{}))
		}

		// WebSocket authenticates in the handler (browsers cannot set headers)
		r.Get("/ws", s.handleWebSocket)

		r.Group(func(r chi.Router) {
			r.Use(s.authMiddleware)

			r.Post("/refresh", s.handleRefresh)
			r.Get("/commands", s.handleListCommands)
			r.Post("/media/delete", s.handleDeleteMedia)

			r.Route("/account", func(r chi.Router) {
				r.Get("/options", s.handleAccountOptions)
				r.Get("/notifications", s.handleGetNotifications)
				r.Put("/notifications", s.handleSetNotifications)
			})

			r.Route("/networks", func(r chi.Router) {
				r.Get("/", s.handleListNetworks)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetNetwork)
					r.Put("/armed", s.handleSetArmed)
					r.Delete("/command", s.handleCancelCommand)
					r.Post("/thumbnails/refresh", s.handleRefreshNetworkThumbnails)
					r.Post("/clips/refresh", s.handleRefreshNetworkClips)
					r.Get("/sirens", s.handleListSirens)
					r.Put("/sirens", s.handleSetSirens)
					r.Get("/programs", s.handleListPrograms)
					r.Put("/programs/{programID}/enabled", s.handleSetProgramEnabled)
					r.Delete("/programs/{programID}", s.handleDeleteProgram)
				})
			})

			r.Route("/cameras", func(r chi.Router) {
				r.Get("/", s.handleListCameras)

				r.Route("/{id}", func(r chi.Router) {
					r.Get("/", s.handleGetCamera)
					r.Get("/thumbnail", s.handleGetThumbnail)
					r.Post("/thumbnail/refresh", s.handleRefreshThumbnail)
					r.Post("/clip/refresh", s.handleRefreshClip)
					r.Get("/motion", s.handleGetMotion)
					r.Get("/status", s.handleGetCameraStatus)
					r.Get("/motion-regions", s.handleGetMotionRegions)
					r.Put("/motion-sensor", s.handleSetMotionSensor)
					r.Put("/privacy", s.handleSetPrivacy)
					r.Post("/liveview", s.handleLiveView)
				})
			})
		})
	})

	return r
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"version":  s.version,
		"networks": len(s.registry.Networks()),
		"cameras":  len(s.registry.Cameras()),
	})
}
