// Package saga runs an ordered list of forward steps with optional
// compensations. Nothing here is atomic: a failed run leaves the effects of
// every completed step that had no compensation.
package saga

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/01moynul/modelshop/internal/logging"
)

type Status string

const (
	StatusRunning      Status = "RUNNING"
	StatusCompensating Status = "COMPENSATING"
	StatusCompleted    Status = "COMPLETED"
	StatusAborted      Status = "ABORTED"
)

// Step is one forward action. Compensate may be nil, in which case the
// step's effect survives a later failure.
type Step struct {
	Name       string
	Do         func(ctx context.Context) error
	Compensate func(ctx context.Context) error
}

// StepError reports the step that stopped a run. Compensation holds the
// joined errors of compensations that themselves failed.
type StepError struct {
	Step         string
	Err          error
	Completed    []string
	Compensation error
}

func (e *StepError) Error() string {
	if e.Compensation != nil {
		return fmt.Sprintf("saga step %q: %v (compensation: %v)", e.Step, e.Err, e.Compensation)
	}
	return fmt.Sprintf("saga step %q: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Saga is a named run of steps.
type Saga struct {
	Name  string
	Steps []Step
	Log   *logging.Logger
	// OrderID is copied into every log line.
	OrderID string
}

// Run executes the steps in order. On the first failure it runs the
// compensations of the completed steps in reverse and returns a *StepError.
func (s *Saga) Run(ctx context.Context) error {
	log := s.Log
	if log == nil {
		log = logging.Nop()
	}

	done := make([]Step, 0, len(s.Steps))
	for _, step := range s.Steps {
		start := time.Now()
		if err := step.Do(ctx); err != nil {
			log.Error(logging.Fields{OrderID: s.OrderID, Step: step.Name, Status: string(StatusCompensating), DurationMS: logging.Since(start), Message: s.Name}, err)
			return &StepError{
				Step:         step.Name,
				Err:          err,
				Completed:    names(done),
				Compensation: s.compensate(ctx, log, done),
			}
		}
		log.Info(logging.Fields{OrderID: s.OrderID, Step: step.Name, Status: string(StatusRunning), DurationMS: logging.Since(start), Message: s.Name})
		done = append(done, step)
	}
	return nil
}

func (s *Saga) compensate(ctx context.Context, log *logging.Logger, done []Step) error {
	var errs []error
	for i := len(done) - 1; i >= 0; i-- {
		step := done[i]
		if step.Compensate == nil {
			continue
		}
		if err := step.Compensate(ctx); err != nil {
			log.Error(logging.Fields{OrderID: s.OrderID, Step: step.Name, Status: string(StatusAborted), Message: "compensation failed"}, err)
			errs = append(errs, fmt.Errorf("%s: %w", step.Name, err))
			continue
		}
		log.Info(logging.Fields{OrderID: s.OrderID, Step: step.Name, Status: string(StatusAborted), Message: "compensated"})
	}
	return errors.Join(errs...)
}

func names(steps []Step) []string {
	out := make([]string, len(steps))
	for i, s := range steps {
		out[i] = s.Name
	}
	return out
}
