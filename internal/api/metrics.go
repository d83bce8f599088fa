package api

import (
	"net/http"
	"runtime"
	"time"
)

// SystemMetrics represents the complete system metrics response.
type SystemMetrics struct {
	Timestamp     string          `json:"timestamp"`
	Version       string          `json:"version"`
	UptimeSeconds int64           `json:"uptime_seconds"`
	Runtime       RuntimeMetrics  `json:"runtime"`
	WebSocket     WSMetrics       `json:"websocket"`
	Remote        RemoteMetrics   `json:"remote"`
	Devices       DeviceMetrics   `json:"devices"`
	Watchdog      WatchdogMetrics `json:"watchdog"`
}

// RuntimeMetrics contains Go runtime statistics.
type RuntimeMetrics struct {
	Goroutines    int     `json:"goroutines"`
	MemoryAllocMB float64 `json:"memory_alloc_mb"`
	MemoryTotalMB float64 `json:"memory_total_mb"`
	NumGC         uint32  `json:"num_gc"`
}

// WSMetrics contains WebSocket hub statistics.
type WSMetrics struct {
	ConnectedClients int `json:"connected_clients"`
}

// RemoteMetrics contains remote channel statistics.
type RemoteMetrics struct {
	Connected bool `json:"connected"`
}

// DeviceMetrics contains device registry statistics.
type DeviceMetrics struct {
	Attached int `json:"attached"`
}

// WatchdogMetrics reports target staleness. SecondsSinceChange is -1 until
// the first target arrives.
type WatchdogMetrics struct {
	SecondsSinceChange int64 `json:"seconds_since_change"`
}

// handleMetrics returns comprehensive system metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	var memStats runtime.MemStats
	runtime.ReadMemStats(&memStats)

	st := s.status.Status()
	now := time.Now()

	metrics := SystemMetrics{
		Timestamp:     now.UTC().Format(time.RFC3339),
		Version:       s.version,
		UptimeSeconds: int64(now.Sub(s.startTime).Seconds()),
		Runtime: RuntimeMetrics{
			Goroutines:    runtime.NumGoroutine(),
			MemoryAllocMB: float64(memStats.Alloc) / 1024 / 1024,
			MemoryTotalMB: float64(memStats.TotalAlloc) / 1024 / 1024,
			NumGC:         memStats.NumGC,
		},
		WebSocket: WSMetrics{
			ConnectedClients: s.hub.ClientCount(),
		},
		Remote: RemoteMetrics{
			Connected: st.Connected,
		},
		Devices: DeviceMetrics{
			Attached: len(st.Devices),
		},
		Watchdog: WatchdogMetrics{
			SecondsSinceChange: -1,
		},
	}

	if s.remote != nil {
		metrics.Remote.Connected = s.remote.IsConnected()
	}
	if !st.LastChange.IsZero() {
		metrics.Watchdog.SecondsSinceChange = int64(now.Sub(st.LastChange).Seconds())
	}

	writeJSON(w, http.StatusOK, metrics)
}
