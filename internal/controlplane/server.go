// Package controlplane serves the operator status view: process stats, the
// backend's reachability and version, and a summary of recent bookings.
package controlplane

import (
	"context"
	"net/http"
	"runtime"
	"time"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/frontdoor"
	"github.com/Daytona2026/Warmano-webseite/internal/server"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

// recentWindow is how many journal records the summary looks at.
const recentWindow = 100

// VersionSource reports the backend's version struct.
type VersionSource interface {
	Version(ctx context.Context) (xmlrpc.Value, error)
}

type Server struct {
	startTime time.Time
	backend   VersionSource
	journal   storage.JournalStore
}

// NewServer creates the status server. journal may be nil.
func NewServer(backend VersionSource, journal storage.JournalStore) *Server {
	return &Server{
		startTime: time.Now(),
		backend:   backend,
		journal:   journal,
	}
}

// Registrations returns the admin routes of the control plane.
func (s *Server) Registrations() []frontdoor.HandlerRegistration {
	return []frontdoor.HandlerRegistration{
		{Method: http.MethodGet, Path: "/api/admin/stats", Access: frontdoor.Admin, Handler: s.handleStats},
	}
}

type StatsResponse struct {
	Success      bool          `json:"success"`
	Uptime       string        `json:"uptime"`
	GoVersion    string        `json:"go_version"`
	NumGoroutine int           `json:"num_goroutine"`
	Memory       MemoryStats   `json:"memory"`
	Backend      BackendStatus `json:"backend"`
	Bookings     *BookingStats `json:"bookings,omitempty"`
}

type MemoryStats struct {
	Alloc      uint64 `json:"alloc"`
	TotalAlloc uint64 `json:"total_alloc"`
	Sys        uint64 `json:"sys"`
	NumGC      uint32 `json:"num_gc"`
}

// BackendStatus is the result of asking the backend for its version. The
// version call needs no credentials, so it separates network problems from
// credential problems.
type BackendStatus struct {
	Reachable     bool   `json:"reachable"`
	ServerVersion string `json:"server_version,omitempty"`
	Error         string `json:"error,omitempty"`
}

// BookingStats summarises the most recent journal records. Window is the
// number of records looked at, at most 100.
type BookingStats struct {
	Window    int `json:"window"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Degraded  int `json:"degraded"`
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	stats := StatsResponse{
		Success:      true,
		Uptime:       time.Since(s.startTime).Round(time.Second).String(),
		GoVersion:    runtime.Version(),
		NumGoroutine: runtime.NumGoroutine(),
		Memory: MemoryStats{
			Alloc:      m.Alloc,
			TotalAlloc: m.TotalAlloc,
			Sys:        m.Sys,
			NumGC:      m.NumGC,
		},
		Backend: s.backendStatus(ctx),
	}

	if s.journal != nil {
		records, err := s.journal.ListBookings(ctx, storage.ListOptions{Limit: recentWindow})
		if err != nil {
			server.AddError(ctx, err)
		} else {
			stats.Bookings = summarize(records)
		}
	}

	server.WriteJSON(w, http.StatusOK, stats)
}

func (s *Server) backendStatus(ctx context.Context) BackendStatus {
	if s.backend == nil {
		return BackendStatus{}
	}
	v, err := s.backend.Version(ctx)
	if err != nil {
		server.AddError(ctx, err)
		return BackendStatus{Error: "backend unreachable"}
	}
	version, _ := v.Member("server_version").Text()
	return BackendStatus{Reachable: true, ServerVersion: version}
}

func summarize(records []*storage.BookingRecord) *BookingStats {
	out := &BookingStats{Window: len(records)}
	for _, rec := range records {
		switch {
		case !rec.Success:
			out.Failed++
		case len(rec.Degradations) > 0:
			out.Degraded++
			out.Succeeded++
		default:
			out.Succeeded++
		}
	}
	return out
}
