// Package booking turns a validated booking request into the sequence of
// remote operations that records it: customer, opportunity, portal access,
// subscription order and e-signature request.
//
// The first two steps are critical. Everything after them is best effort:
// a failure there is logged, reported as a degradation and the booking still
// succeeds.
package booking

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Daytona2026/Warmano-webseite/internal/crm"
	"github.com/Daytona2026/Warmano-webseite/internal/logging"
	"github.com/Daytona2026/Warmano-webseite/internal/storage"
	"github.com/Daytona2026/Warmano-webseite/internal/telemetry"
)

// Step names, also used as degradation and metric labels.
const (
	StepResolveCustomer      = "resolve_customer"
	StepCreateOpportunity    = "create_opportunity"
	StepProvisionPortal      = "provision_portal"
	StepCreateSubscription   = "create_subscription"
	StepResolveSignTemplate  = "resolve_sign_template"
	StepCreateSigningRequest = "create_signing_request"

	// Not steps of their own: reported when a configured id replaced a
	// failed lookup.
	PortalGroupFallback = "portal_group_fallback"
	SignRoleFallback    = "sign_role_fallback"
)

const journalTimeout = 5 * time.Second

// Operations are the remote operations a booking needs. *crm.Service
// implements it.
type Operations interface {
	FindOrCreateCustomer(ctx context.Context, identity crm.Identity) (int64, error)
	CreateOpportunity(ctx context.Context, in crm.OpportunityInput) (int64, error)
	ProvisionPortalAccount(ctx context.Context, customerID int64) (crm.PortalAccount, error)
	CreateSubscriptionOrder(ctx context.Context, customerID int64, tier crm.Tier, duration crm.Duration, frequency crm.Frequency) (crm.SubscriptionOrder, error)
	ResolveSignTemplate(ctx context.Context, name string) (int64, error)
	ResolveTemplateRoles(ctx context.Context, templateID int64) []int64
	CreateSigningRequest(ctx context.Context, in crm.SigningInput) (crm.SigningRequest, error)
	PortalURL() string
}

// Config holds the booking settings.
type Config struct {
	// AppointmentURL is the scheduling page the customer continues to.
	AppointmentURL string
	// TemplateName is matched against sign template names.
	TemplateName string
	// Deadline bounds a whole run; zero means no bound.
	Deadline time.Duration
}

// DefaultConfig returns the production settings.
func DefaultConfig() Config {
	return Config{
		AppointmentURL: "https://warmano.odoo.com/book/warmano-wartungstermin",
		TemplateName:   "WARMANO Wartungsvertrag.pdf",
		Deadline:       60 * time.Second,
	}
}

// Outcome is the result of one booking run. Optional fields are only set
// when the step producing them succeeded.
type Outcome struct {
	RunID          string        `json:"runId"`
	Success        bool          `json:"success"`
	CustomerID     int64         `json:"partnerId,omitempty"`
	OpportunityID  int64         `json:"leadId,omitempty"`
	SigningURL     string        `json:"signUrl,omitempty"`
	AppointmentURL string        `json:"appointmentUrl,omitempty"`
	PortalURL      string        `json:"portalUrl,omitempty"`
	OrderName      string        `json:"orderName,omitempty"`
	Error          string        `json:"error,omitempty"`
	Degradations   []Degradation `json:"degradations,omitempty"`
	// Err is the critical step's error, kept for mapping at the boundary.
	Err error `json:"-"`
}

// Message is the text shown to the customer after a successful booking.
func (o Outcome) Message() string {
	if o.SigningURL != "" {
		return "Bitte unterschreiben Sie nun Ihren Vertrag"
	}
	return "Buchung erfolgreich - Sie können nun Ihren Termin buchen"
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *telemetry.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

// WithJournal records every run in store.
func WithJournal(store storage.JournalStore) Option {
	return func(o *Orchestrator) { o.journal = store }
}

func WithTracer(t trace.Tracer) Option {
	return func(o *Orchestrator) { o.tracer = t }
}

// Orchestrator runs bookings. It is safe for concurrent use.
type Orchestrator struct {
	ops     Operations
	cfg     Config
	logger  *slog.Logger
	metrics *telemetry.Metrics
	journal storage.JournalStore
	tracer  trace.Tracer
	runner  *Runner[run]
	now     func() time.Time
}

// run is the state threaded through the steps of one booking.
type run struct {
	req        Validated
	customerID int64
	leadID     int64
	order      crm.SubscriptionOrder
	templateID int64
	roleIDs    []int64
	signing    crm.SigningRequest
	fallbacks  []Degradation
}

func (r *run) fallback(name, reason string) {
	r.fallbacks = append(r.fallbacks, Degradation{Step: name, Reason: reason})
}

// NewOrchestrator creates an Orchestrator on top of ops.
func NewOrchestrator(ops Operations, cfg Config, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		ops:    ops,
		cfg:    cfg,
		logger: slog.Default(),
		tracer: noop.NewTracerProvider().Tracer("booking"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(o)
	}
	o.runner = NewRunner(o.steps(),
		WithStepTracer[run](o.tracer),
		OnDegrade[run](o.degraded),
	)
	return o
}

func (o *Orchestrator) steps() []Step[run] {
	return []Step[run]{
		{Name: StepResolveCustomer, Policy: Critical, Run: o.resolveCustomer},
		{Name: StepCreateOpportunity, Policy: Critical, Run: o.createOpportunity},
		{Name: StepProvisionPortal, Policy: BestEffort, Run: o.provisionPortal},
		{Name: StepCreateSubscription, Policy: BestEffort, Run: o.createSubscription},
		{Name: StepResolveSignTemplate, Policy: BestEffort, Run: o.resolveSignTemplate},
		{Name: StepCreateSigningRequest, Policy: BestEffort, Run: o.createSigningRequest},
	}
}

// Process runs the booking workflow for req.
func (o *Orchestrator) Process(ctx context.Context, req Validated) Outcome {
	start := o.now()
	runID := uuid.NewString()

	if o.cfg.Deadline > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, o.cfg.Deadline)
		defer cancel()
	}
	ctx, span := o.tracer.Start(ctx, "booking.process", trace.WithAttributes(
		attribute.String("booking.run_id", runID),
		attribute.String("booking.package", string(req.Tier)),
	))
	defer span.End()

	logger := o.logger.With(slog.String("run_id", runID))
	state := &run{req: req}
	report, err := o.runner.Run(ctx, state)

	out := Outcome{RunID: runID}
	if err != nil {
		out.Error = err.Error()
		out.Err = err
		span.RecordError(err)
		span.SetStatus(codes.Error, "booking failed")
		logger.ErrorContext(ctx, "booking failed",
			slog.String("email", req.Email),
			slog.String("error", err.Error()),
		)
		o.metrics.BookingOutcome("failure")
	} else {
		out.Success = true
		out.CustomerID = state.customerID
		out.OpportunityID = state.leadID
		out.OrderName = state.order.Name
		out.SigningURL = state.signing.URL
		out.AppointmentURL = fmt.Sprintf("%s?partner_id=%d", o.cfg.AppointmentURL, state.customerID)
		out.PortalURL = o.ops.PortalURL()
	}
	out.Degradations = append(report.Degradations, state.fallbacks...)

	if out.Success {
		outcome := "success"
		if len(out.Degradations) > 0 {
			outcome = "degraded"
		}
		o.metrics.BookingOutcome(outcome)
		logger.InfoContext(ctx, "booking completed",
			slog.Int64("partner_id", out.CustomerID),
			slog.Int64("lead_id", out.OpportunityID),
			slog.Bool("signed", out.SigningURL != ""),
			slog.Int("degradations", len(out.Degradations)),
			slog.String("halted_at", report.HaltedAt),
		)
	}

	o.record(ctx, req, out, o.now().Sub(start))
	return out
}

func (o *Orchestrator) record(ctx context.Context, req Validated, out Outcome, d time.Duration) {
	if o.journal == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), journalTimeout)
	defer cancel()

	rec := &storage.BookingRecord{
		RunID:         out.RunID,
		CustomerRef:   logging.FingerprintEmail(req.Email),
		Package:       string(req.Tier),
		Success:       out.Success,
		CustomerID:    out.CustomerID,
		OpportunityID: out.OpportunityID,
		OrderName:     out.OrderName,
		Signed:        out.SigningURL != "",
		Error:         out.Error,
		Degradations:  out.Degradations,
		Duration:      d,
	}
	if err := o.journal.RecordBooking(ctx, rec); err != nil {
		o.logger.WarnContext(ctx, "could not record booking",
			slog.String("run_id", out.RunID),
			slog.String("error", err.Error()),
		)
	}
}

func (o *Orchestrator) degraded(ctx context.Context, step string, err error) {
	o.logger.WarnContext(ctx, "best-effort booking step failed",
		slog.String("step", step),
		slog.String("error", err.Error()),
	)
	o.metrics.Degradation(step)
}

func (o *Orchestrator) resolveCustomer(ctx context.Context, r *run) error {
	id, err := o.ops.FindOrCreateCustomer(ctx, r.req.identity())
	if err != nil {
		return err
	}
	r.customerID = id
	return nil
}

func (o *Orchestrator) createOpportunity(ctx context.Context, r *run) error {
	id, err := o.ops.CreateOpportunity(ctx, r.req.opportunity())
	if err != nil {
		return err
	}
	r.leadID = id
	return nil
}

func (o *Orchestrator) provisionPortal(ctx context.Context, r *run) error {
	acct, err := o.ops.ProvisionPortalAccount(ctx, r.customerID)
	if err != nil {
		return err
	}
	if acct.GroupFallback {
		r.fallback(PortalGroupFallback, "portal group lookup failed, configured group id used")
		o.metrics.Degradation(PortalGroupFallback)
	}
	return nil
}

func (o *Orchestrator) createSubscription(ctx context.Context, r *run) error {
	order, err := o.ops.CreateSubscriptionOrder(ctx, r.customerID, r.req.Tier, r.req.Duration, r.req.Frequency)
	if err != nil {
		return err
	}
	r.order = order
	return nil
}

func (o *Orchestrator) resolveSignTemplate(ctx context.Context, r *run) error {
	id, err := o.ops.ResolveSignTemplate(ctx, o.cfg.TemplateName)
	if errors.Is(err, crm.ErrNotFound) {
		o.logger.WarnContext(ctx, "sign template not found, skipping signature step",
			slog.String("template", o.cfg.TemplateName),
		)
		return ErrSkipRemaining
	}
	if err != nil {
		return err
	}
	r.templateID = id
	r.roleIDs = o.ops.ResolveTemplateRoles(ctx, id)
	return nil
}

func (o *Orchestrator) createSigningRequest(ctx context.Context, r *run) error {
	if r.templateID == 0 {
		return ErrSkipRemaining
	}
	req, err := o.ops.CreateSigningRequest(ctx, crm.SigningInput{
		CustomerID:   r.customerID,
		CustomerName: r.req.fullName(),
		TemplateID:   r.templateID,
		RoleIDs:      r.roleIDs,
	})
	if err != nil {
		return err
	}
	if req.RoleFallback {
		r.fallback(SignRoleFallback, "sign template exposes no roles, configured role id used")
		o.metrics.Degradation(SignRoleFallback)
	}
	r.signing = req
	return nil
}
