package api

import (
	"net/http"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
)

// maxDeleteMedia bounds one delete request.
const maxDeleteMedia = 100

func (s *Server) handleAccountOptions(w http.ResponseWriter, r *http.Request) {
	opts, err := s.fleet.AccountOptions(r.Context())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, opts)
}

func (s *Server) handleGetNotifications(w http.ResponseWriter, r *http.Request) {
	cfg, err := s.fleet.NotificationConfig(r.Context())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

// handleSetNotifications replaces the notification switches.
// Body: {"notifications": {"motion": true, ...}}.
func (s *Server) handleSetNotifications(w http.ResponseWriter, r *http.Request) {
	var cfg cloud.NotificationConfig
	if !decodeBody(w, r, &cfg) {
		return
	}
	if len(cfg.Notifications) == 0 {
		writeBadRequest(w, "notifications is required")
		return
	}
	if err := s.fleet.UpdateNotificationConfig(r.Context(), cfg); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

type deleteMediaRequest struct {
	IDs []int64 `json:"ids"`
}

// handleDeleteMedia deletes media records. Body: {"ids": [1, 2]}.
func (s *Server) handleDeleteMedia(w http.ResponseWriter, r *http.Request) {
	var req deleteMediaRequest
	if !decodeBody(w, r, &req) {
		return
	}
	switch {
	case len(req.IDs) == 0:
		writeBadRequest(w, "ids is required")
		return
	case len(req.IDs) > maxDeleteMedia:
		writeBadRequest(w, "too many ids")
		return
	}
	for _, id := range req.IDs {
		if id <= 0 {
			writeBadRequest(w, "invalid media id")
			return
		}
	}

	if err := s.fleet.DeleteMedia(r.Context(), req.IDs); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"deleted": len(req.IDs)})
}
