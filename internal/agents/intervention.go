package agents

import (
	"context"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/scoring"
)

const AgentIntervention = "intervention"

// Advice is a recommendation list. Fallback is set when the rule table produced it.
type Advice struct {
	Items    []string
	Fallback bool
}

type Intervention struct {
	base
}

func NewIntervention(completer ai.Completer, opts Options) *Intervention {
	return &Intervention{base: newBase(AgentIntervention, completer, opts)}
}

func (i *Intervention) Recommend(ctx context.Context, name string, overall, tech, comm int) []string {
	return i.Advise(ctx, name, overall, tech, comm).Items
}

func (i *Intervention) Advise(ctx context.Context, name string, overall, tech, comm int) Advice {
	prompt := render(interventionPrompt, map[string]string{
		"STUDENT_NAME":  name,
		"OVERALL_SCORE": pct(float64(overall)),
		"TECH_SCORE":    pct(float64(tech)),
		"COMM_SCORE":    pct(float64(comm)),
	})

	if raw, ok := i.complete(ctx, name, prompt); ok {
		if recs := ai.ParseRecommendations(raw); len(recs) > 0 {
			return Advice{Items: recs}
		}
		i.logger.Warn("no recommendations in response", logger.Student(name))
	}

	i.fallback(name, "rules")
	return Advice{Items: scoring.InterventionRules(overall, tech, comm), Fallback: true}
}
