package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/blink-sync-core/internal/cloud"
	"github.com/nerrad567/blink-sync-core/internal/fleet"
)

func (s *Server) handleListNetworks(w http.ResponseWriter, _ *http.Request) {
	networks := s.registry.Networks()
	out := make([]fleet.NetworkState, 0, len(networks))
	for _, n := range networks {
		out = append(out, fleet.NetworkStateOf(n))
	}
	writeJSON(w, http.StatusOK, map[string]any{"networks": out, "count": len(out)})
}

// handleGetNetwork returns a network and its cameras.
func (s *Server) handleGetNetwork(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}

	cameras := s.registry.CamerasInNetwork(n.ID())
	cams := make([]fleet.CameraState, 0, len(cameras))
	for _, c := range cameras {
		cams = append(cams, fleet.CameraStateOf(c))
	}

	writeJSON(w, http.StatusOK, struct {
		fleet.NetworkState
		Cameras []fleet.CameraState `json:"cameras"`
	}{fleet.NetworkStateOf(n), cams})
}

// handleSetArmed arms or disarms a network. Body: {"armed": true}. The
// response is sent once the command has finished and state was refreshed.
func (s *Server) handleSetArmed(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Armed == nil {
		writeBadRequest(w, "armed is required")
		return
	}

	ctx := intentContext(r)
	if err := n.SetArmedState(ctx, *req.Armed); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fleet.NetworkStateOf(n))
}

// handleCancelCommand abandons the wait on the network's pending command.
func (s *Server) handleCancelCommand(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	pending := n.ActiveCommand()
	if !s.fleet.CancelCommand(n.ID()) {
		writeNotFound(w, "no pending command")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": pending})
}

// handleRefreshNetworkThumbnails captures new thumbnails on the network's
// cameras whose last one is stale, or on all of them with ?force=true.
func (s *Server) handleRefreshNetworkThumbnails(w http.ResponseWriter, r *http.Request) {
	s.networkCapture(w, r, s.fleet.RefreshCameraThumbnail)
}

// handleRefreshNetworkClips records clips on the network's full cameras.
func (s *Server) handleRefreshNetworkClips(w http.ResponseWriter, r *http.Request) {
	s.networkCapture(w, r, s.fleet.RefreshCameraClip)
}

func (s *Server) networkCapture(w http.ResponseWriter, r *http.Request,
	capture func(ctx context.Context, networkID int64, force bool) error,
) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	force, _ := strconv.ParseBool(r.URL.Query().Get("force")) //nolint:errcheck // absent or malformed means false

	if err := capture(intentContext(r), n.ID(), force); err != nil {
		s.writeFleetError(w, r, err)
		return
	}

	cameras := s.registry.CamerasInNetwork(n.ID())
	out := make([]fleet.CameraState, 0, len(cameras))
	for _, c := range cameras {
		out = append(out, fleet.CameraStateOf(c))
	}
	writeJSON(w, http.StatusOK, map[string]any{"cameras": out, "count": len(out)})
}

func (s *Server) handleListSirens(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	sirens, err := s.fleet.Sirens(r.Context(), n.ID())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	if sirens == nil {
		sirens = []cloud.Siren{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"sirens": sirens, "count": len(sirens)})
}

// handleSetSirens sounds or silences the network's sirens. Body: {"active": bool}.
func (s *Server) handleSetSirens(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	var req toggleRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if req.Active == nil {
		writeBadRequest(w, "active is required")
		return
	}

	if err := s.fleet.SetSirensActive(intentContext(r), n.ID(), *req.Active); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"network_id": n.ID(), "active": *req.Active})
}

func (s *Server) handleListPrograms(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	programs, err := s.fleet.Programs(r.Context(), n.ID())
	if err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	if programs == nil {
		programs = []cloud.Program{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"programs": programs, "count": len(programs)})
}

// handleSetProgramEnabled enables or disables a schedule. Body: {"enabled": bool}.
func (s *Server) handleSetProgramEnabled(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	programID, ok := pathParam(w, r, "programID")
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

	if err := s.fleet.SetProgramEnabled(r.Context(), n.ID(), programID, *req.Enabled); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"program_id": programID, "enabled": *req.Enabled})
}

func (s *Server) handleDeleteProgram(w http.ResponseWriter, r *http.Request) {
	n, ok := s.lookupNetwork(w, r)
	if !ok {
		return
	}
	programID, ok := pathParam(w, r, "programID")
	if !ok {
		return
	}
	if err := s.fleet.DeleteProgram(r.Context(), n.ID(), programID); err != nil {
		s.writeFleetError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
