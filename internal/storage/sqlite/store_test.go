package sqlite

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

func newStore(t *testing.T, name string) *Store {
	t.Helper()
	store, err := New("file:" + name + "?mode=memory&cache=shared")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func TestSQLiteStore_RecordBooking(t *testing.T) {
	store := newStore(t, "journal1")
	ctx := context.Background()

	created := time.Date(2026, 10, 1, 9, 30, 0, 0, time.UTC)
	rec := &storage.BookingRecord{
		RunID:         "run-1",
		CustomerRef:   "c0ffee",
		Package:       "premium",
		Success:       true,
		CustomerID:    42,
		OpportunityID: 7,
		OrderName:     "S00012",
		Signed:        true,
		Degradations: []storage.Degradation{
			{Step: "provision_portal", Reason: "AccessError"},
		},
		Duration:  1500 * time.Millisecond,
		CreatedAt: created,
	}
	if err := store.RecordBooking(ctx, rec); err != nil {
		t.Fatalf("RecordBooking() error = %v", err)
	}

	got, err := store.GetBooking(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.CustomerID != 42 || got.OpportunityID != 7 || got.OrderName != "S00012" || !got.Signed || !got.Success {
		t.Errorf("GetBooking() = %+v", got)
	}
	if len(got.Degradations) != 1 || got.Degradations[0].Step != "provision_portal" {
		t.Errorf("Degradations = %v", got.Degradations)
	}
	if got.Duration != rec.Duration {
		t.Errorf("Duration = %v, want %v", got.Duration, rec.Duration)
	}
	if !got.CreatedAt.Equal(created) {
		t.Errorf("CreatedAt = %v, want %v", got.CreatedAt, created)
	}

	if err := store.RecordBooking(ctx, &storage.BookingRecord{RunID: "run-1"}); err == nil {
		t.Error("RecordBooking() duplicate expected error")
	}
}

func TestSQLiteStore_GetBookingNotFound(t *testing.T) {
	store := newStore(t, "journal2")
	_, err := store.GetBooking(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBooking() error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteStore_ListBookings(t *testing.T) {
	store := newStore(t, "journal3")
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	for i := 1; i <= 4; i++ {
		rec := &storage.BookingRecord{
			RunID:     fmt.Sprintf("run-%d", i),
			Success:   i%2 == 0,
			Error:     "",
			CreatedAt: base.Add(time.Duration(i) * time.Minute),
		}
		if !rec.Success {
			rec.Error = "customer create failed"
		}
		if err := store.RecordBooking(ctx, rec); err != nil {
			t.Fatalf("RecordBooking() error = %v", err)
		}
	}

	tests := []struct {
		name string
		opts storage.ListOptions
		want []string
	}{
		{"all newest first", storage.ListOptions{}, []string{"run-4", "run-3", "run-2", "run-1"}},
		{"limit", storage.ListOptions{Limit: 2}, []string{"run-4", "run-3"}},
		{"limit and offset", storage.ListOptions{Limit: 2, Offset: 3}, []string{"run-1"}},
		{"offset only", storage.ListOptions{Offset: 2}, []string{"run-2", "run-1"}},
		{"failed only", storage.ListOptions{FailedOnly: true}, []string{"run-3", "run-1"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListBookings(ctx, tt.opts)
			if err != nil {
				t.Fatalf("ListBookings() error = %v", err)
			}
			if len(got) != len(tt.want) {
				t.Fatalf("ListBookings() returned %d records, want %d", len(got), len(tt.want))
			}
			for i, rec := range got {
				if rec.RunID != tt.want[i] {
					t.Errorf("ListBookings()[%d] = %v, want %v", i, rec.RunID, tt.want[i])
				}
			}
		})
	}
}

func TestSQLiteStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal.db")
	ctx := context.Background()

	store, err := New(path)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if err := store.RecordBooking(ctx, &storage.BookingRecord{RunID: "run-1", Package: "basic"}); err != nil {
		t.Fatalf("RecordBooking() error = %v", err)
	}
	store.Close()

	reopened, err := New(path)
	if err != nil {
		t.Fatalf("New() reopen error = %v", err)
	}
	defer reopened.Close()
	got, err := reopened.GetBooking(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.Package != "basic" || got.Degradations == nil {
		t.Errorf("GetBooking() = %+v", got)
	}
}
