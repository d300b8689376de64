// Package saga runs an ordered list of side-effecting steps.
//
// Each step runs only after the previous step's attempt has finished.
// A failed critical step stops the run and skips the remaining steps; a
// failed non-critical step is recorded and the run continues. Nothing is
// compensated: completed steps stay completed.
package saga

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/evervibe/evs-next-basic-web/internal/infrastructure"
)

// ErrSkip may be returned by a step that decided it has nothing to do
var ErrSkip = errors.New("step skipped")

// StepStatus represents the current status of a step
type StepStatus string

const (
	StepStatusPending   StepStatus = "pending"
	StepStatusActive    StepStatus = "active"
	StepStatusCompleted StepStatus = "completed"
	StepStatusFailed    StepStatus = "failed"
	StepStatusSkipped   StepStatus = "skipped"
)

// Status is the overall outcome of a run
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Step is one unit of work
type Step struct {
	Name     string
	Critical bool
	Run      func(ctx context.Context) error
}

// StepState is the runtime state of a step
type StepState struct {
	Name      string     `json:"name"`
	Critical  bool       `json:"critical"`
	Status    StepStatus `json:"status"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Error     string     `json:"error,omitempty"`
}

// State is the record of one run
type State struct {
	ID        string       `json:"id"`
	Status    Status       `json:"status"`
	StartTime time.Time    `json:"start_time"`
	EndTime   time.Time    `json:"end_time"`
	Steps     []*StepState `json:"steps"`
}

// Step returns the state of the named step, or nil
func (s *State) Step(name string) *StepState {
	for _, st := range s.Steps {
		if st.Name == name {
			return st
		}
	}
	return nil
}

// Failed lists the steps that failed, critical or not
func (s *State) Failed() []string {
	var names []string
	for _, st := range s.Steps {
		if st.Status == StepStatusFailed {
			names = append(names, st.Name)
		}
	}
	return names
}

// StepError reports the critical step that stopped a run
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Runner executes steps sequentially
type Runner struct {
	name    string
	metrics *infrastructure.BusinessMetrics
	now     func() time.Time
	logger  *slog.Logger
}

// NewRunner creates a runner. name labels logs.
func NewRunner(name string, metrics *infrastructure.BusinessMetrics, logger *slog.Logger) *Runner {
	return &Runner{
		name:    name,
		metrics: metrics,
		now:     time.Now,
		logger:  logger.With(slog.String("component", "saga"), slog.String("saga", name)),
	}
}

// WithClock replaces the time source, for tests
func (r *Runner) WithClock(now func() time.Time) *Runner {
	r.now = now
	return r
}

// Run executes steps in order. The returned error is a *StepError when a
// critical step failed; the state is returned in every case.
func (r *Runner) Run(ctx context.Context, id string, steps []Step) (*State, error) {
	state := &State{
		ID:        id,
		Status:    StatusRunning,
		StartTime: r.now(),
		Steps:     make([]*StepState, len(steps)),
	}
	for i, step := range steps {
		state.Steps[i] = &StepState{Name: step.Name, Critical: step.Critical, Status: StepStatusPending}
	}

	var runErr error
	for i, step := range steps {
		st := state.Steps[i]
		if runErr != nil {
			st.Status = StepStatusSkipped
			continue
		}

		start := r.now()
		st.StartTime = &start
		st.Status = StepStatusActive

		err := step.Run(ctx)

		end := r.now()
		st.EndTime = &end

		switch {
		case err == nil:
			st.Status = StepStatusCompleted
			r.logger.DebugContext(ctx, "step completed",
				slog.String("saga_id", id),
				slog.String("step", step.Name),
				slog.Duration("duration", end.Sub(start)))
		case errors.Is(err, ErrSkip):
			st.Status = StepStatusSkipped
			r.logger.InfoContext(ctx, "step skipped",
				slog.String("saga_id", id),
				slog.String("step", step.Name))
		default:
			st.Status = StepStatusFailed
			st.Error = err.Error()
			r.metrics.RecordSagaStepFailure(ctx, step.Name, step.Critical)
			if step.Critical {
				r.logger.ErrorContext(ctx, "critical step failed",
					slog.String("saga_id", id),
					slog.String("step", step.Name),
					slog.String("error", err.Error()))
				runErr = &StepError{Step: step.Name, Err: err}
				continue
			}
			r.logger.WarnContext(ctx, "step failed, continuing",
				slog.String("saga_id", id),
				slog.String("step", step.Name),
				slog.String("error", err.Error()))
		}
	}

	state.EndTime = r.now()
	state.Status = StatusCompleted
	if runErr != nil {
		state.Status = StatusFailed
	}
	r.metrics.RecordSaga(ctx, state.EndTime.Sub(state.StartTime), runErr == nil)

	return state, runErr
}
