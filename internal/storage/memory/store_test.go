package memory

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

func TestMemoryStore_RecordBooking(t *testing.T) {
	store := New(0)
	ctx := context.Background()

	rec := &storage.BookingRecord{
		RunID:        "run-1",
		CustomerRef:  "c0ffee",
		Package:      "standard",
		Success:      true,
		CustomerID:   42,
		Degradations: []storage.Degradation{{Step: "provision_portal", Reason: "AccessError"}},
	}
	if err := store.RecordBooking(ctx, rec); err != nil {
		t.Fatalf("RecordBooking() error = %v", err)
	}
	if rec.CreatedAt.IsZero() {
		t.Error("CreatedAt was not set")
	}

	got, err := store.GetBooking(ctx, "run-1")
	if err != nil {
		t.Fatalf("GetBooking() error = %v", err)
	}
	if got.CustomerID != 42 || len(got.Degradations) != 1 {
		t.Errorf("GetBooking() = %+v", got)
	}

	rec.Degradations[0].Reason = "changed"
	got, _ = store.GetBooking(ctx, "run-1")
	if got.Degradations[0].Reason != "AccessError" {
		t.Errorf("stored record aliases caller slice: %v", got.Degradations)
	}

	if err := store.RecordBooking(ctx, &storage.BookingRecord{RunID: "run-1"}); err == nil {
		t.Error("RecordBooking() duplicate expected error")
	}
}

func TestMemoryStore_GetBookingNotFound(t *testing.T) {
	store := New(0)
	_, err := store.GetBooking(context.Background(), "missing")
	if !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("GetBooking() error = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_ListBookings(t *testing.T) {
	store := New(3)
	ctx := context.Background()
	for i := 1; i <= 4; i++ {
		rec := &storage.BookingRecord{RunID: fmt.Sprintf("run-%d", i), Success: i%2 == 0}
		if err := store.RecordBooking(ctx, rec); err != nil {
			t.Fatalf("RecordBooking() error = %v", err)
		}
	}

	tests := []struct {
		name string
		opts storage.ListOptions
		want []string
	}{
		{"all newest first", storage.ListOptions{}, []string{"run-4", "run-3", "run-2"}},
		{"limit", storage.ListOptions{Limit: 2}, []string{"run-4", "run-3"}},
		{"offset", storage.ListOptions{Limit: 2, Offset: 2}, []string{"run-2"}},
		{"offset past end", storage.ListOptions{Offset: 5}, []string{}},
		{"failed only", storage.ListOptions{FailedOnly: true}, []string{"run-3"}},
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

	if _, err := store.GetBooking(ctx, "run-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Errorf("evicted record still present: %v", err)
	}
}
