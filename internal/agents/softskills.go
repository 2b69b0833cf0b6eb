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
	AgentSoftSkills = "softskills"

	SeedReasoning     = "Score based on provided soft skills assessment."
	FallbackReasoning = "Score based on provided assessment."

	defaultSoftSkillsReasoning = "Communication skills evaluated from professional profile."
)

type SoftSkills struct {
	base
}

func NewSoftSkills(completer ai.Completer, opts Options) *SoftSkills {
	return &SoftSkills{base: newBase(AgentSoftSkills, completer, opts)}
}

func (s *SoftSkills) Evaluate(ctx context.Context, rec student.Record) (float64, string) {
	res := s.Assess(ctx, rec)
	return res.Score, res.Reasoning
}

// Assess scores communication from the bio and resume. Without any profile
// text the seed score is returned and the backend is not called.
func (s *SoftSkills) Assess(ctx context.Context, rec student.Record) Assessment {
	if !rec.HasProfileText() {
		return Assessment{Score: rec.SoftSkillScore, Reasoning: SeedReasoning}
	}

	prompt := render(softSkillsPrompt, map[string]string{
		"LINKEDIN_BIO": student.OrNotProvided(rec.LinkedInBio),
		"RESUME_TEXT":  student.OrNotProvided(rec.ResumeText),
	})

	raw, ok := s.complete(ctx, rec.Name, prompt)
	if ok {
		verdict, parsed := ai.ParseVerdict(raw)
		if parsed {
			reasoning := verdict.Reasoning
			if reasoning == "" {
				reasoning = defaultSoftSkillsReasoning
			}
			return Assessment{Score: scoring.Clamp(verdict.Score), Reasoning: reasoning}
		}
		s.logger.Warn("unparsable soft skills score", logger.Student(rec.Name), zap.String("response", raw))
	}

	s.fallback(rec.Name, "seed score")
	return Assessment{Score: rec.SoftSkillScore, Reasoning: FallbackReasoning, Fallback: true}
}
