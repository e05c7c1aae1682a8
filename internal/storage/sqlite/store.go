package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

// Store is a SQLite implementation of JournalStore.
type Store struct {
	db *sqlx.DB
}

var _ storage.JournalStore = (*Store)(nil)

// bookingRow is the column layout of the bookings table.
type bookingRow struct {
	RunID         string `db:"run_id"`
	CustomerRef   string `db:"customer_ref"`
	Package       string `db:"package"`
	Success       bool   `db:"success"`
	CustomerID    int64  `db:"customer_id"`
	OpportunityID int64  `db:"opportunity_id"`
	OrderName     string `db:"order_name"`
	Signed        bool   `db:"signed"`
	Error         string `db:"error"`
	Degradations  string `db:"degradations"`
	DurationNS    int64  `db:"duration_ns"`
	CreatedAt     int64  `db:"created_at"`
}

// New opens (or creates) the SQLite database at dsn.
func New(dsn string) (*Store, error) {
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL; PRAGMA synchronous=NORMAL;"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	store := &Store{db: db}
	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}
	return store, nil
}

func (s *Store) initSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS bookings (
			run_id TEXT PRIMARY KEY,
			customer_ref TEXT NOT NULL,
			package TEXT NOT NULL,
			success INTEGER NOT NULL,
			customer_id INTEGER NOT NULL DEFAULT 0,
			opportunity_id INTEGER NOT NULL DEFAULT 0,
			order_name TEXT NOT NULL DEFAULT '',
			signed INTEGER NOT NULL DEFAULT 0,
			error TEXT NOT NULL DEFAULT '',
			degradations TEXT NOT NULL DEFAULT '[]',
			duration_ns INTEGER NOT NULL DEFAULT 0,
			created_at INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_created ON bookings(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_bookings_success ON bookings(success)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("failed to execute schema statement: %w", err)
		}
	}
	return nil
}

func (s *Store) RecordBooking(ctx context.Context, rec *storage.BookingRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	degradations := rec.Degradations
	if degradations == nil {
		degradations = []storage.Degradation{}
	}
	encoded, err := json.Marshal(degradations)
	if err != nil {
		return fmt.Errorf("failed to marshal degradations: %w", err)
	}

	row := bookingRow{
		RunID:         rec.RunID,
		CustomerRef:   rec.CustomerRef,
		Package:       rec.Package,
		Success:       rec.Success,
		CustomerID:    rec.CustomerID,
		OpportunityID: rec.OpportunityID,
		OrderName:     rec.OrderName,
		Signed:        rec.Signed,
		Error:         rec.Error,
		Degradations:  string(encoded),
		DurationNS:    int64(rec.Duration),
		CreatedAt:     rec.CreatedAt.UnixNano(),
	}

	query := `INSERT INTO bookings (run_id, customer_ref, package, success, customer_id, opportunity_id,
		order_name, signed, error, degradations, duration_ns, created_at)
		VALUES (:run_id, :customer_ref, :package, :success, :customer_id, :opportunity_id,
		:order_name, :signed, :error, :degradations, :duration_ns, :created_at)`
	if _, err := s.db.NamedExecContext(ctx, query, row); err != nil {
		return fmt.Errorf("failed to insert booking: %w", err)
	}
	return nil
}

func (s *Store) GetBooking(ctx context.Context, runID string) (*storage.BookingRecord, error) {
	var row bookingRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM bookings WHERE run_id = ?`, runID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("booking %s: %w", runID, storage.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get booking: %w", err)
	}
	return row.record()
}

func (s *Store) ListBookings(ctx context.Context, opts storage.ListOptions) ([]*storage.BookingRecord, error) {
	query := `SELECT * FROM bookings`
	var args []any
	if opts.FailedOnly {
		query += ` WHERE success = 0`
	}
	query += ` ORDER BY created_at DESC, rowid DESC`
	if opts.Limit > 0 {
		query += ` LIMIT ? OFFSET ?`
		args = append(args, opts.Limit, opts.Offset)
	} else if opts.Offset > 0 {
		query += ` LIMIT -1 OFFSET ?`
		args = append(args, opts.Offset)
	}

	var rows []bookingRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("failed to list bookings: %w", err)
	}

	out := make([]*storage.BookingRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.record()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (r bookingRow) record() (*storage.BookingRecord, error) {
	var degradations []storage.Degradation
	if err := json.Unmarshal([]byte(r.Degradations), &degradations); err != nil {
		return nil, fmt.Errorf("failed to unmarshal degradations of %s: %w", r.RunID, err)
	}
	return &storage.BookingRecord{
		RunID:         r.RunID,
		CustomerRef:   r.CustomerRef,
		Package:       r.Package,
		Success:       r.Success,
		CustomerID:    r.CustomerID,
		OpportunityID: r.OpportunityID,
		OrderName:     r.OrderName,
		Signed:        r.Signed,
		Error:         r.Error,
		Degradations:  degradations,
		Duration:      time.Duration(r.DurationNS),
		CreatedAt:     time.Unix(0, r.CreatedAt),
	}, nil
}
