package booking

import (
	"context"
	"errors"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Daytona2026/Warmano-webseite/internal/storage"
)

// ErrSkipRemaining ends a run early without failing it.
var ErrSkipRemaining = errors.New("booking: skip remaining steps")

// Policy decides what a step failure does to the run.
type Policy int

const (
	// Critical failures abort the run.
	Critical Policy = iota
	// BestEffort failures are recorded as degradations and the run goes on.
	BestEffort
)

func (p Policy) String() string {
	if p == Critical {
		return "critical"
	}
	return "best_effort"
}

// Step is one unit of a workflow operating on the run state S.
type Step[S any] struct {
	Name   string
	Policy Policy
	Run    func(ctx context.Context, state *S) error
}

// Degradation names a best-effort step that failed and why.
type Degradation = storage.Degradation

// StepError is returned when a critical step fails.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Report summarises a run.
type Report struct {
	Completed    []string
	Degradations []Degradation
	// HaltedAt is the step that returned ErrSkipRemaining, if any.
	HaltedAt string
}

// Runner executes steps in order.
type Runner[S any] struct {
	steps     []Step[S]
	tracer    trace.Tracer
	onDegrade func(ctx context.Context, step string, err error)
}

// RunnerOption configures a Runner.
type RunnerOption[S any] func(*Runner[S])

// WithStepTracer opens a span per step on t.
func WithStepTracer[S any](t trace.Tracer) RunnerOption[S] {
	return func(r *Runner[S]) {
		r.tracer = t
	}
}

// OnDegrade is called for every failed best-effort step.
func OnDegrade[S any](fn func(ctx context.Context, step string, err error)) RunnerOption[S] {
	return func(r *Runner[S]) {
		r.onDegrade = fn
	}
}

// NewRunner creates a runner for steps.
func NewRunner[S any](steps []Step[S], opts ...RunnerOption[S]) *Runner[S] {
	r := &Runner[S]{
		steps:  steps,
		tracer: noop.NewTracerProvider().Tracer("booking"),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes the steps against state. A critical failure stops the run
// and is returned as a *StepError together with the report so far.
func (r *Runner[S]) Run(ctx context.Context, state *S) (Report, error) {
	var report Report
	for _, step := range r.steps {
		err := r.runStep(ctx, step, state)
		switch {
		case err == nil:
			report.Completed = append(report.Completed, step.Name)
		case errors.Is(err, ErrSkipRemaining):
			report.Completed = append(report.Completed, step.Name)
			report.HaltedAt = step.Name
			return report, nil
		case step.Policy == Critical:
			return report, &StepError{Step: step.Name, Err: err}
		default:
			report.Degradations = append(report.Degradations, Degradation{Step: step.Name, Reason: err.Error()})
			if r.onDegrade != nil {
				r.onDegrade(ctx, step.Name, err)
			}
		}
	}
	return report, nil
}

func (r *Runner[S]) runStep(ctx context.Context, step Step[S], state *S) error {
	ctx, span := r.tracer.Start(ctx, "booking."+step.Name, trace.WithAttributes(
		attribute.String("booking.step", step.Name),
		attribute.String("booking.policy", step.Policy.String()),
	))
	defer span.End()

	err := step.Run(ctx, state)
	if err != nil && !errors.Is(err, ErrSkipRemaining) {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	return err
}
