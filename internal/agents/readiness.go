package agents

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/scoring"
	"github.com/spigell/placement-readiness/internal/student"
)

const (
	AgentReadiness = "readiness"

	defaultReadinessAnalysis = "Placement readiness calculated based on academic and communication scores."
)

type Readiness struct {
	Overall  int
	Tech     int
	Comm     int
	Analysis string
	Tier     student.Tier
	Fallback bool
}

type ReadinessAnalyzer struct {
	base
}

func NewReadiness(completer ai.Completer, opts Options) *ReadinessAnalyzer {
	return &ReadinessAnalyzer{base: newBase(AgentReadiness, completer, opts)}
}

// Analyze combines the two scores into readiness figures. A model supplied
// OVERALL_SCORE within [0, 100] is kept as is even when it disagrees with
// the weighted formula; the disagreement is only logged and counted.
func (r *ReadinessAnalyzer) Analyze(ctx context.Context, name string, academic, communication float64) Readiness {
	prompt := render(readinessPrompt, map[string]string{
		"STUDENT_NAME":        name,
		"ACADEMIC_SCORE":      pct(academic),
		"COMMUNICATION_SCORE": pct(communication),
	})

	formulaOverall, tech, comm := scoring.ReadinessAggregate(academic, communication)

	raw, ok := r.complete(ctx, name, prompt)
	if ok {
		if res, parsed := r.parse(raw, tech, comm); parsed {
			if res.Overall != formulaOverall {
				r.logger.Warn("readiness diverges from formula, keeping model value",
					logger.Student(name),
					zap.Int("model_overall", res.Overall),
					zap.Int("formula_overall", formulaOverall),
				)
				r.metrics.ParseAmbiguity(r.name)
			}
			return res
		}
		r.logger.Warn("unparsable readiness analysis", logger.Student(name), zap.String("response", raw))
	}

	r.fallback(name, "weighted formula")
	return Readiness{
		Overall:  formulaOverall,
		Tech:     tech,
		Comm:     comm,
		Analysis: fmt.Sprintf("Overall readiness: %d%%. Technical: %d%%, Communication: %d%%", formulaOverall, tech, comm),
		Tier:     scoring.TierFor(formulaOverall),
		Fallback: true,
	}
}

func (r *ReadinessAnalyzer) parse(raw string, tech, comm int) (Readiness, bool) {
	overall, ok := ai.ParseLabeledNumber(raw, "OVERALL_SCORE")
	if !ok || overall > 100 {
		return Readiness{}, false
	}

	res := Readiness{
		Overall:  int(overall),
		Tech:     tech,
		Comm:     comm,
		Analysis: defaultReadinessAnalysis,
	}
	if v, ok := ai.ParseLabeledNumber(raw, "TECH_READINESS"); ok && v <= 100 {
		res.Tech = int(v)
	}
	if v, ok := ai.ParseLabeledNumber(raw, "COMM_READINESS"); ok && v <= 100 {
		res.Comm = int(v)
	}
	if text, ok := ai.ParseLabeledText(raw, "ANALYSIS"); ok {
		res.Analysis = text
	}
	res.Tier = scoring.TierFor(res.Overall)
	return res, true
}
