package database

// Multi-step provisioning
//
// Provisioning a test database takes several steps that each acquire
// something: a cloned database, an open handle, a second pool. If a later step
// fails the earlier acquisitions have to be released again, in reverse order,
// so the caller is left with nothing half-built.
//
//	steps := database.NewSteps(logger)
//	steps.Add("clone", cloneFn, dropFn)
//	steps.Add("open", openFn, closeFn)
//	steps.Add("migrate", migrateFn, nil)
//	err := steps.Run(ctx) // on failure: closeFn, then dropFn
//
// Undo errors are logged and never replace the error of the failed step.

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// StepFunc performs or undoes one provisioning step.
type StepFunc func(ctx context.Context) error

// Steps executes a series of operations with automatic undo on failure.
type Steps struct {
	logger *zap.Logger
	steps  []step
}

type step struct {
	name string
	run  StepFunc
	undo StepFunc
}

// NewSteps creates an empty step list.
func NewSteps(logger *zap.Logger) *Steps {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Steps{logger: logger}
}

// Add appends a step. undo may be nil.
func (s *Steps) Add(name string, run, undo StepFunc) *Steps {
	s.steps = append(s.steps, step{name: name, run: run, undo: undo})
	return s
}

// Len returns the number of steps.
func (s *Steps) Len() int {
	return len(s.steps)
}

// Run executes all steps in order. When one fails, the undo functions of the
// steps that completed run in reverse order and the failure is returned.
func (s *Steps) Run(ctx context.Context) error {
	completed := make([]int, 0, len(s.steps))

	for i, st := range s.steps {
		if err := st.run(ctx); err != nil {
			s.undo(ctx, completed)
			return fmt.Errorf("step %s failed: %w", st.name, err)
		}
		completed = append(completed, i)
	}

	return nil
}

func (s *Steps) undo(ctx context.Context, completed []int) {
	ctx = context.WithoutCancel(ctx)
	for j := len(completed) - 1; j >= 0; j-- {
		st := s.steps[completed[j]]
		if st.undo == nil {
			continue
		}
		if err := st.undo(ctx); err != nil {
			s.logger.Warn("undo failed",
				zap.String("step", st.name),
				zap.Error(err))
		}
	}
}
