package agents

import (
	"context"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/scoring"
	"github.com/spigell/placement-readiness/internal/student"
)

const (
	AgentAcademic = "academic"

	defaultAcademicReasoning = "Academic performance calculated based on multiple factors."
)

// Assessment is a score with its reasoning. Fallback is set when the
// deterministic path produced it.
type Assessment struct {
	Score     float64
	Reasoning string
	Fallback  bool
}

type Academic struct {
	base
}

func NewAcademic(completer ai.Completer, opts Options) *Academic {
	return &Academic{base: newBase(AgentAcademic, completer, opts)}
}

func (a *Academic) Evaluate(ctx context.Context, rec student.Record) (float64, string) {
	res := a.Assess(ctx, rec)
	return res.Score, res.Reasoning
}

func (a *Academic) Assess(ctx context.Context, rec student.Record) Assessment {
	prompt := render(academicPrompt, map[string]string{
		"ATTENDANCE":            pct(rec.Attendance),
		"TEST_SCORE":            pct(rec.TestScore),
		"ASSIGNMENT_PERCENTAGE": pct(rec.AssignmentPercentage),
		"EVENT_PARTICIPATION":   rec.EventParticipation,
	})

	raw, ok := a.complete(ctx, rec.Name, prompt)
	if ok {
		verdict, parsed := ai.ParseVerdict(raw)
		if parsed {
			reasoning := verdict.Reasoning
			if reasoning == "" {
				reasoning = defaultAcademicReasoning
			}
			return Assessment{Score: scoring.Clamp(verdict.Score), Reasoning: reasoning}
		}
		a.logger.Warn("unparsable academic score", logger.Student(rec.Name), zap.String("response", raw))
	}

	a.fallback(rec.Name, "formula")
	score, reason := scoring.AcademicFallback(rec)
	return Assessment{Score: score, Reasoning: reason, Fallback: true}
}
