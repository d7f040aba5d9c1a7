package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/blink-sync-core/internal/fleet"
)

// handleListCameras lists cameras, optionally filtered by ?network_id=.
func (s *Server) handleListCameras(w http.ResponseWriter, r *http.Request) {
	cameras := s.registry.Cameras()
	if v := r.URL.Query().Get("network_id"); v != "" {
		nid, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			writeBadRequest(w, "invalid network_id")
			return
		}
		cameras = s.registry.CamerasInNetwork(nid)
	}

	out := make([]fleet.CameraState, 0, len(cameras))
	for _, c := range cameras {
		out = append(out, fleet.CameraStateOf(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cameras": out, "count": len(out)})
}

func (s *Server) handleGetCamera(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, fleet.CameraStateOf(c))
}

// handleGetThumbnail serves the camera's current image: the newest capture,
// or a placeholder when the camera is disarmed or disabled.
func (s *Server) handleGetThumbnail(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	img, err := c.Thumbnail(r.Context())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", http.DetectContentType(img))
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Content-Length", strconv.Itoa(len(img)))
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response; connection may be closed
	w.Write(img)
}

// handleGetMotion reports whether the camera is currently triggered.
func (s *Server) handleGetMotion(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	motion, err := c.MotionDetected(r.Context())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"camera_id": c.ID(), "motion": motion})
}

// handleSetMotionSensor enables or disables motion detection. Body: {"enabled": bool}.
func (s *Server) handleSetMotionSensor(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	ctx := intentContext(r)
	if err := s.fleet.SetCameraMotionSensorState(ctx, c.ID(), *req.Enabled); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fleet.CameraStateOf(c))
}

// handleSetPrivacy toggles the local privacy placeholder. No cloud call.
func (s *Server) handleSetPrivacy(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Enabled == nil {
		writeBadRequest(w, "enabled is required")
		return
	}

	c.SetPrivacyMode(*req.Enabled)
	writeJSON(w, http.StatusOK, fleet.CameraStateOf(c))
}

func (s *Server) handleRefreshThumbnail(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	ctx := intentContext(r)
	if err := s.fleet.RequestCameraThumbnail(ctx, c.ID()); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fleet.CameraStateOf(c))
}

func (s *Server) handleRefreshClip(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	ctx := intentContext(r)
	if err := s.fleet.RequestCameraClip(ctx, c.ID()); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fleet.CameraStateOf(c))
}

// handleLiveView starts a live-view session and returns the stream URL.
func (s *Server) handleLiveView(w http.ResponseWriter, r *http.Request) {
	c, ok := s.lookupCamera(w, r)
	if !ok {
		return
	}

	url, err := s.fleet.LiveViewURL(r.Context(), c.ID())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"camera_id": c.ID(), "url": url})
}

// handleGetCameraStatus returns the cloud's raw status document for a full camera.
func (s *Server) handleGetCameraStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	status, err := s.fleet.CameraStatus(r.Context(), id)
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleGetMotionRegions(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	regions, err := s.fleet.MotionRegions(r.Context(), id)
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, regions)
}
