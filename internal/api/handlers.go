package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/blink-sync-core/internal/audit"
	"github.com/nerrad567/blink-sync-core/internal/device"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
)

const intentSource = "api"

// stateResponse is the body of /refresh and of "state" broadcasts.
type stateResponse struct {
	Networks []fleet.NetworkState `json:"networks"`
	Cameras  []fleet.CameraState  `json:"cameras"`
}

func (s *Server) stateSnapshot() stateResponse {
	networks := s.registry.Networks()
	cameras := s.registry.Cameras()

	out := stateResponse{
		Networks: make([]fleet.NetworkState, 0, len(networks)),
		Cameras:  make([]fleet.CameraState, 0, len(cameras)),
	}
	for _, n := range networks {
		out.Networks = append(out.Networks, fleet.NetworkStateOf(n))
	}
	for _, c := range cameras {
		out.Cameras = append(out.Cameras, fleet.CameraStateOf(c))
	}
	return out
}

// handleRefresh pulls a snapshot now. ?force=true bypasses the cache.
func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	force, _ := strconv.ParseBool(r.URL.Query().Get("force")) //nolint:errcheck // absent or malformed means false
	if err := s.fleet.RefreshData(r.Context(), force); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.stateSnapshot())
}

// handleListCommands returns journalled intents, newest first.
//
// Query parameters:
//   - intent, outcome: exact match
//   - network_id, camera_id: numeric filters
//   - limit (default 50, max 200), offset
func (s *Server) handleListCommands(w http.ResponseWriter, r *http.Request) {
	if s.journal == nil {
		writeError(w, http.StatusServiceUnavailable, ErrCodeNotImplemented, "command journal not configured")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Intent:  q.Get("intent"),
		Outcome: q.Get("outcome"),
	}
	ints := []struct {
		key string
		dst *int64
	}{
		{"network_id", &filter.NetworkID},
		{"camera_id", &filter.CameraID},
	}
	for _, p := range ints {
		if v := q.Get(p.key); v != "" {
			n, err := strconv.ParseInt(v, 10, 64)
			if err != nil {
				writeBadRequest(w, "invalid "+p.key)
				return
			}
			*p.dst = n
		}
	}
	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.journal.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list commands", "error", err)
		writeInternalError(w, "failed to list commands")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// intentContext tags the request context for the command journal. The
// source names the token subject when auth is enabled.
func intentContext(r *http.Request) context.Context {
	source := intentSource
	if subject, ok := r.Context().Value(ctxKeySubject).(string); ok && subject != "" {
		source += ":" + subject
	}
	return fleet.WithSource(r.Context(), source)
}

// pathID parses the {id} URL parameter, writing a 400 on failure.
func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	return pathParam(w, r, "id")
}

func pathParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		writeBadRequest(w, "invalid "+name)
		return 0, false
	}
	return id, true
}

// decodeBody decodes a JSON request body, writing a 400 on failure.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return false
	}
	return true
}

// toggleRequest is the body of the boolean PUT endpoints.
type toggleRequest struct {
	Enabled *bool `json:"enabled"`
	Armed   *bool `json:"armed"`
	Active  *bool `json:"active"`
}

func (s *Server) lookupNetwork(w http.ResponseWriter, r *http.Request) (*device.Network, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	n, ok := s.registry.Network(id)
	if !ok {
		writeNotFound(w, "network not found")
		return nil, false
	}
	return n, true
}

func (s *Server) lookupCamera(w http.ResponseWriter, r *http.Request) (*device.Camera, bool) {
	id, ok := pathID(w, r)
	if !ok {
		return nil, false
	}
	c, ok := s.registry.Camera(id)
	if !ok {
		writeNotFound(w, "camera not found")
		return nil, false
	}
	return c, true
}
