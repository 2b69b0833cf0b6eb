// Package filtering narrows an evaluated cohort through ordered steps.
package filtering

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/metrics"
	"github.com/spigell/placement-readiness/internal/student"
)

// Filter represents a single filtering step applied to evaluations.
type Filter interface {
	Name() string
	Disable(reason string)
	IsEnabled() bool

	Validate() error
	Apply(ctx context.Context, deps Deps, evaluated []*student.Evaluation) ([]*student.Evaluation, Step, error)
}

// Deps aggregates dependencies shared across all filtering steps.
type Deps struct {
	Logger  *zap.Logger
	Metrics metrics.Recorder
}

// Step describes the result of executing a filtering step.
type Step struct {
	Initial int
	Dropped int
	Left    int
}

// Status represents runtime information about a filter.
type Status struct {
	Name    string
	Enabled bool
	Reason  string
	Details map[string]string
}

type statusProvider interface {
	Status() Status
}

// DisableByName marks a filter with the provided name as disabled while keeping it in the list.
func DisableByName(steps []Filter, name, reason string) {
	for _, step := range steps {
		if step.Name() == name {
			step.Disable(reason)
		}
	}
}

// Run validates every enabled step and then applies them in order. The input
// slice is never modified and the relative order of evaluations is kept.
func Run(ctx context.Context, deps Deps, steps []Filter, evaluated []*student.Evaluation) ([]*student.Evaluation, error) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	deps.Metrics = metrics.OrNop(deps.Metrics)

	for _, step := range steps {
		if !step.IsEnabled() {
			continue
		}
		if err := step.Validate(); err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}
	}

	current := append([]*student.Evaluation(nil), evaluated...)
	for _, step := range steps {
		if !step.IsEnabled() {
			deps.Logger.Debug("filter disabled", zap.String("name", step.Name()))
			continue
		}

		next, info, err := step.Apply(ctx, deps, current)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", step.Name(), err)
		}

		deps.Logger.Info("filter step",
			zap.String("name", step.Name()),
			zap.Int("initial", info.Initial),
			zap.Int("dropped", info.Dropped),
			zap.Int("left", info.Left),
		)
		deps.Metrics.FilterStep(step.Name(), info.Dropped)

		current = next
	}

	return current, nil
}

// Describe returns status entries for the provided filters.
func Describe(steps []Filter) []Status {
	statuses := make([]Status, 0, len(steps))
	for _, step := range steps {
		if reporter, ok := step.(statusProvider); ok {
			statuses = append(statuses, reporter.Status())
			continue
		}

		statuses = append(statuses, Status{
			Name:    step.Name(),
			Enabled: step.IsEnabled(),
		})
	}
	return statuses
}

// keep returns the evaluations accepted by pred in their original order.
func keep(evaluated []*student.Evaluation, pred func(*student.Evaluation) bool) ([]*student.Evaluation, Step) {
	out := make([]*student.Evaluation, 0, len(evaluated))
	for _, e := range evaluated {
		if e != nil && pred(e) {
			out = append(out, e)
		}
	}
	return out, Step{Initial: len(evaluated), Dropped: len(evaluated) - len(out), Left: len(out)}
}
