package api

import (
	"net/http"
	"slices"

	"github.com/go-chi/chi/v5"
)

// handleHealth reports liveness. A node without its remote channel is
// degraded: it is about to reboot.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	connected := s.remote == nil || s.remote.IsConnected()
	st := s.status.Status()

	resp := map[string]any{
		"status":  "ok",
		"version": s.version,
		"remote":  connected,
	}
	code := http.StatusOK
	if !connected || st.Rebooting != "" {
		resp["status"] = "degraded"
		code = http.StatusServiceUnavailable
	}
	if st.Rebooting != "" {
		resp["rebooting"] = st.Rebooting
	}
	writeJSON(w, code, resp)
}

// handleStatus returns the latest controller snapshot.
func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.status.Status())
}

// handleListDevices returns the attached devices in sorted order.
func (s *Server) handleListDevices(w http.ResponseWriter, _ *http.Request) {
	devices := s.status.Status().Devices
	writeJSON(w, http.StatusOK, map[string]any{
		"devices": devices,
		"count":   len(devices),
	})
}

// handleGetDevice reports whether one device is attached.
func (s *Server) handleGetDevice(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	st := s.status.Status()
	if !slices.Contains(st.Devices, id) {
		writeNotFound(w, "device not attached")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"id":       id,
		"attached": true,
		"target":   st.Target,
	})
}
