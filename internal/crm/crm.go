// Package crm implements the business operations the website performs
// against Odoo: customers, opportunities, portal accounts, e-signature
// requests, subscription orders, helpdesk tickets, invoices, referrals and a
// read-only diagnostics surface.
//
// Every operation is expressed as execute_kw calls through an Executor, so
// the same code runs against the real gateway and an in-memory fake.
package crm

import (
	"context"
	"errors"
	"log/slog"

	"github.com/Daytona2026/Warmano-webseite/internal/codec/xmlrpc"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

// ErrNotFound is returned when a lookup yields no record. It is a valid
// result, not a failure of the remote system.
var ErrNotFound = errors.New("crm: not found")

// Executor runs one execute_kw call. *odoo.Client implements it.
type Executor interface {
	Execute(ctx context.Context, model, method string, args []any, kwargs map[string]any) (xmlrpc.Value, error)
}

// Config carries the backend-specific ids and URLs the operations need.
type Config struct {
	// BaseURL is used to build portal, signing and invoice links.
	BaseURL string
	// CountryID is set on newly created customers.
	CountryID int64
	// PortalGroupID is used when the portal group cannot be looked up.
	// Zero means no fallback.
	PortalGroupID int64
	// FallbackRoleID is used when a signing template exposes no roles.
	// Zero means no fallback.
	FallbackRoleID int64
	// ReferralSourceID is the lead source for referral leads.
	ReferralSourceID int64
}

// DefaultConfig returns the ids used by the production database.
func DefaultConfig() Config {
	return Config{
		CountryID:        57,
		PortalGroupID:    10,
		FallbackRoleID:   7,
		ReferralSourceID: 1,
	}
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

// WithMetrics records lookup fallbacks on m.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithRoleResolver replaces the default per-item role resolver.
func WithRoleResolver(r RoleResolver) Option {
	return func(s *Service) {
		s.roles = r
	}
}

// Service implements the domain operations.
type Service struct {
	exec    Executor
	cfg     Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	roles   RoleResolver
}

// NewService creates a Service on top of exec.
func NewService(exec Executor, cfg Config, opts ...Option) *Service {
	s := &Service{
		exec:   exec,
		cfg:    cfg,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.roles == nil {
		s.roles = FanOutRoleResolver{Logger: s.logger}
	}
	return s
}

// PortalURL is the customer portal entry page.
func (s *Service) PortalURL() string {
	return s.cfg.BaseURL + "/my"
}

// lookupFallback emits the signal for a configured id standing in for a
// lookup that failed.
func (s *Service) lookupFallback(ctx context.Context, lookup string, id int64, cause error) {
	attrs := []any{
		slog.String("lookup", lookup),
		slog.Int64("fallback_id", id),
	}
	if cause != nil {
		attrs = append(attrs, slog.String("error", cause.Error()))
	}
	s.logger.WarnContext(ctx, "remote lookup failed, using configured fallback id", attrs...)
	s.metrics.LookupFallback(lookup)
}
