package agents

import (
	"context"
	"fmt"
	"strings"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/student"
)

const (
	AgentResponder = "responder"

	ApologyMessage = "I apologize, but I encountered an error while processing your request. Please try again."
	NoDataMessage  = "No student data matched your question, so there is nothing to analyze yet."
)

type Responder struct {
	base
}

func NewResponder(completer ai.Completer, opts Options) *Responder {
	return &Responder{base: newBase(AgentResponder, completer, opts)}
}

// Respond answers query from the evaluations given.
func (r *Responder) Respond(ctx context.Context, evaluated []*student.Evaluation, query string) string {
	block := Context(evaluated)
	if block == "" {
		return NoDataMessage
	}

	prompt := render(responsePrompt, map[string]string{
		"CONTEXT":  block,
		"QUESTION": strings.TrimSpace(query),
	})

	raw, ok := r.complete(ctx, "", prompt)
	if !ok {
		r.fallback("", "apology")
		return ApologyMessage
	}
	return strings.TrimSpace(raw)
}

// Context renders the per-student blocks the responder grounds its answer on.
func Context(evaluated []*student.Evaluation) string {
	parts := make([]string, 0, len(evaluated))
	for _, e := range evaluated {
		if e == nil {
			continue
		}
		parts = append(parts, fmt.Sprintf(
			"Student: %s\n- Overall Score: %d%%\n- Academic Score: %.1f%%\n- Communication Score: %s%%\n- Technical Readiness: %d%%\n- Communication Readiness: %d%%\n- Analysis: %s\n- Recommendations: %s",
			e.Name, e.OverallScore, e.AcademicScore, pct(e.CommunicationScore),
			e.TechReadiness, e.CommReadiness, e.Analysis, strings.Join(e.Recommendations, "; "),
		))
	}
	return strings.Join(parts, "\n\n")
}
