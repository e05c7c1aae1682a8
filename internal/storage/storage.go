// Package storage defines the booking journal: one record per booking run,
// kept for operators to review what happened to a request after the fact.
package storage

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("storage: record not found")

// Degradation names a best-effort step that failed and why.
type Degradation struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// BookingRecord is the journal entry for one booking run. Contact data is
// not stored; CustomerRef is a fingerprint of the customer's email.
type BookingRecord struct {
	RunID         string        `json:"runId"`
	CustomerRef   string        `json:"customerRef"`
	Package       string        `json:"package"`
	Success       bool          `json:"success"`
	CustomerID    int64         `json:"customerId,omitempty"`
	OpportunityID int64         `json:"opportunityId,omitempty"`
	OrderName     string        `json:"orderName,omitempty"`
	Signed        bool          `json:"signed"`
	Error         string        `json:"error,omitempty"`
	Degradations  []Degradation `json:"degradations"`
	Duration      time.Duration `json:"durationNs"`
	CreatedAt     time.Time     `json:"createdAt"`
}

// ListOptions selects a page of records, newest first.
type ListOptions struct {
	Limit      int
	Offset     int
	FailedOnly bool
}

// JournalStore persists booking records.
type JournalStore interface {
	RecordBooking(ctx context.Context, rec *BookingRecord) error
	GetBooking(ctx context.Context, runID string) (*BookingRecord, error)
	ListBookings(ctx context.Context, opts ListOptions) ([]*BookingRecord, error)
	Close() error
}
