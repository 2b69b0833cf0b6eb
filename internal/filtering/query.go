package filtering

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/agents"
	"github.com/spigell/placement-readiness/internal/student"
)

// Selector picks the roster names a question is about.
type Selector interface {
	Analyze(ctx context.Context, query string, roster []agents.RosterEntry) []string
}

type queryFilter struct {
	selector Selector
	query    string
	disabled bool
	reason   string
}

// NewQuery keeps the students the selector names for query. It is disabled
// when query is blank.
func NewQuery(selector Selector, query string) Filter {
	f := &queryFilter{selector: selector, query: strings.TrimSpace(query)}
	if f.query == "" {
		f.Disable("empty query")
	}
	return f
}

func (f *queryFilter) Name() string { return "query" }

func (f *queryFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *queryFilter) IsEnabled() bool { return !f.disabled }

func (f *queryFilter) Validate() error { return nil }

func (f *queryFilter) Apply(ctx context.Context, deps Deps, evaluated []*student.Evaluation) ([]*student.Evaluation, Step, error) {
	if f.selector == nil {
		if deps.Logger != nil {
			deps.Logger.Info("query analyzer is not configured; skipping query filter")
		}
		return evaluated, Step{Initial: len(evaluated), Left: len(evaluated)}, nil
	}

	names := f.selector.Analyze(ctx, f.query, agents.RosterFrom(evaluated))
	wanted := make(map[string]struct{}, len(names))
	for _, name := range names {
		wanted[name] = struct{}{}
	}

	out, step := keep(evaluated, func(e *student.Evaluation) bool {
		_, ok := wanted[e.Name]
		return ok
	})

	if deps.Logger != nil && step.Dropped > 0 {
		deps.Logger.Info("keeping students named by query analysis",
			zap.String("query", f.query),
			zap.Strings("selected", student.Names(out)),
		)
	}
	return out, step, nil
}

func (f *queryFilter) Status() Status {
	details := map[string]string{}
	if f.query != "" {
		details["query"] = f.query
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}
