package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

// DefaultCapacity bounds how many records the store keeps.
const DefaultCapacity = 1000

// Store is an in-memory JournalStore. Once full, the oldest record is
// dropped for every new one.
type Store struct {
	mu       sync.RWMutex
	records  []*storage.BookingRecord
	byID     map[string]*storage.BookingRecord
	capacity int
}

var _ storage.JournalStore = (*Store)(nil)

// New creates a store holding up to capacity records; capacity <= 0 uses
// DefaultCapacity.
func New(capacity int) *Store {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		byID:     make(map[string]*storage.BookingRecord),
		capacity: capacity,
	}
}

func (s *Store) RecordBooking(ctx context.Context, rec *storage.BookingRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byID[rec.RunID]; exists {
		return fmt.Errorf("booking %s already recorded", rec.RunID)
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}

	stored := *rec
	stored.Degradations = append([]storage.Degradation(nil), rec.Degradations...)
	if len(s.records) == s.capacity {
		delete(s.byID, s.records[0].RunID)
		s.records = s.records[1:]
	}
	s.records = append(s.records, &stored)
	s.byID[stored.RunID] = &stored
	return nil
}

func (s *Store) GetBooking(ctx context.Context, runID string) (*storage.BookingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, exists := s.byID[runID]
	if !exists {
		return nil, fmt.Errorf("booking %s: %w", runID, storage.ErrNotFound)
	}
	out := *rec
	return &out, nil
}

func (s *Store) ListBookings(ctx context.Context, opts storage.ListOptions) ([]*storage.BookingRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*storage.BookingRecord
	for i := len(s.records) - 1; i >= 0; i-- {
		rec := s.records[i]
		if opts.FailedOnly && rec.Success {
			continue
		}
		out := *rec
		result = append(result, &out)
	}

	start := opts.Offset
	if start >= len(result) {
		return []*storage.BookingRecord{}, nil
	}
	end := start + opts.Limit
	if opts.Limit == 0 || end > len(result) {
		end = len(result)
	}
	return result[start:end], nil
}

func (s *Store) Close() error {
	return nil
}
