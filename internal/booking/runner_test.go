package booking

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

type counter struct {
	visited []string
}

func visit(name string, err error) func(context.Context, *counter) error {
	return func(_ context.Context, c *counter) error {
		c.visited = append(c.visited, name)
		return err
	}
}

func TestRunner_Run(t *testing.T) {
	boom := errors.New("boom")

	tests := []struct {
		name        string
		steps       []Step[counter]
		wantVisited []string
		wantErrStep string
		wantDegrade []string
		wantHalted  string
	}{
		{
			name: "all succeed",
			steps: []Step[counter]{
				{Name: "a", Policy: Critical, Run: visit("a", nil)},
				{Name: "b", Policy: BestEffort, Run: visit("b", nil)},
			},
			wantVisited: []string{"a", "b"},
		},
		{
			name: "critical failure stops",
			steps: []Step[counter]{
				{Name: "a", Policy: Critical, Run: visit("a", boom)},
				{Name: "b", Policy: BestEffort, Run: visit("b", nil)},
			},
			wantVisited: []string{"a"},
			wantErrStep: "a",
		},
		{
			name: "best effort failure continues",
			steps: []Step[counter]{
				{Name: "a", Policy: BestEffort, Run: visit("a", boom)},
				{Name: "b", Policy: Critical, Run: visit("b", nil)},
			},
			wantVisited: []string{"a", "b"},
			wantDegrade: []string{"a"},
		},
		{
			name: "skip remaining",
			steps: []Step[counter]{
				{Name: "a", Policy: Critical, Run: visit("a", nil)},
				{Name: "b", Policy: BestEffort, Run: visit("b", ErrSkipRemaining)},
				{Name: "c", Policy: Critical, Run: visit("c", boom)},
			},
			wantVisited: []string{"a", "b"},
			wantHalted:  "b",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var degraded []string
			r := NewRunner(tt.steps, OnDegrade[counter](func(_ context.Context, step string, _ error) {
				degraded = append(degraded, step)
			}))

			var state counter
			report, err := r.Run(context.Background(), &state)

			if !equalStrings(state.visited, tt.wantVisited) {
				t.Errorf("visited = %v, want %v", state.visited, tt.wantVisited)
			}
			if tt.wantErrStep == "" && err != nil {
				t.Fatalf("Run() error = %v", err)
			}
			if tt.wantErrStep != "" {
				var stepErr *StepError
				if !errors.As(err, &stepErr) || stepErr.Step != tt.wantErrStep || !errors.Is(err, boom) {
					t.Fatalf("Run() error = %v, want StepError for %s", err, tt.wantErrStep)
				}
			}
			if !equalStrings(degraded, tt.wantDegrade) {
				t.Errorf("degraded = %v, want %v", degraded, tt.wantDegrade)
			}
			if len(report.Degradations) != len(tt.wantDegrade) {
				t.Errorf("report degradations = %v, want %v", report.Degradations, tt.wantDegrade)
			}
			if report.HaltedAt != tt.wantHalted {
				t.Errorf("HaltedAt = %v, want %v", report.HaltedAt, tt.wantHalted)
			}
		})
	}
}

func TestRunner_SpanPerStep(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := trace.NewTracerProvider(trace.WithSpanProcessor(recorder))

	r := NewRunner([]Step[counter]{
		{Name: "a", Policy: Critical, Run: visit("a", nil)},
		{Name: "b", Policy: BestEffort, Run: visit("b", errors.New("boom"))},
	}, WithStepTracer[counter](provider.Tracer("test")))

	if _, err := r.Run(context.Background(), &counter{}); err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	spans := recorder.Ended()
	if len(spans) != 2 {
		t.Fatalf("ended spans = %d, want 2", len(spans))
	}
	if spans[0].Name() != "booking.a" || spans[1].Name() != "booking.b" {
		t.Errorf("span names = %v, %v", spans[0].Name(), spans[1].Name())
	}
	if len(spans[1].Events()) == 0 {
		t.Error("failed step span has no error event")
	}
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
