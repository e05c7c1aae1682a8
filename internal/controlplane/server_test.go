package controlplane

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/frontdoor"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
	"github.com/Daytona2026/Warmano-webseite/internal/storage/memory"
)

type stubVersion struct {
	v   xmlrpc.Value
	err error
}

func (s stubVersion) Version(context.Context) (xmlrpc.Value, error) { return s.v, s.err }

func getStats(t *testing.T, s *Server) StatsResponse {
	t.Helper()
	r := chi.NewRouter()
	frontdoor.Mount(r, s.Registrations(), nil, nil)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var out StatsResponse
	if err := json.NewDecoder(rec.Body).Decode(&out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	return out
}

func TestStats(t *testing.T) {
	journal := memory.New(0)
	ctx := context.Background()
	for _, rec := range []*storage.BookingRecord{
		{RunID: "a", Success: true},
		{RunID: "b", Success: true, Degradations: []storage.Degradation{{Step: "provision_portal", Reason: "x"}}},
		{RunID: "c", Success: false, Error: "boom"},
	} {
		if err := journal.RecordBooking(ctx, rec); err != nil {
			t.Fatalf("RecordBooking() error = %v", err)
		}
	}

	version := xmlrpc.Struct(map[string]xmlrpc.Value{"server_version": xmlrpc.Text("17.0")})
	out := getStats(t, NewServer(stubVersion{v: version}, journal))

	if !out.Success || out.GoVersion == "" || out.NumGoroutine == 0 {
		t.Errorf("stats = %+v", out)
	}
	if !out.Backend.Reachable || out.Backend.ServerVersion != "17.0" {
		t.Errorf("Backend = %+v, want reachable 17.0", out.Backend)
	}
	want := BookingStats{Window: 3, Succeeded: 2, Failed: 1, Degraded: 1}
	if out.Bookings == nil || *out.Bookings != want {
		t.Errorf("Bookings = %+v, want %+v", out.Bookings, want)
	}
}

func TestStats_BackendDown(t *testing.T) {
	out := getStats(t, NewServer(stubVersion{err: errors.New("dial tcp: refused")}, nil))

	if out.Backend.Reachable || out.Backend.Error != "backend unreachable" {
		t.Errorf("Backend = %+v", out.Backend)
	}
	if out.Bookings != nil {
		t.Errorf("Bookings = %+v, want nil without a journal", out.Bookings)
	}
}

func TestSummarize_WindowIsRecordCount(t *testing.T) {
	tests := []struct {
		name    string
		records []*storage.BookingRecord
		want    BookingStats
	}{
		{"empty journal", nil, BookingStats{}},
		{"one failure", []*storage.BookingRecord{{Success: false}}, BookingStats{Window: 1, Failed: 1}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := summarize(tt.records); *got != tt.want {
				t.Errorf("summarize() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}
