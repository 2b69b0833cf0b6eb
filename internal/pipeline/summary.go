package pipeline

import "github.com/spigell/placement-readiness/internal/student"

// Summary holds cohort level statistics.
type Summary struct {
	Students             int                  `json:"students" yaml:"students"`
	AverageOverall       float64              `json:"average_overall" yaml:"average_overall"`
	AverageAcademic      float64              `json:"average_academic" yaml:"average_academic"`
	AverageCommunication float64              `json:"average_communication" yaml:"average_communication"`
	Tiers                map[student.Tier]int `json:"tiers" yaml:"tiers"`
	Fallbacks            map[string]int       `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	Degraded             int                  `json:"degraded" yaml:"degraded"`
}

func Summarize(evaluated []*student.Evaluation) Summary {
	s := Summary{
		Tiers: map[student.Tier]int{
			student.TierExcellent:        0,
			student.TierGood:             0,
			student.TierNeedsImprovement: 0,
		},
		Fallbacks: map[string]int{},
	}

	var overall, academic, communication float64
	for _, e := range evaluated {
		if e == nil {
			continue
		}
		s.Students++
		overall += float64(e.OverallScore)
		academic += e.AcademicScore
		communication += e.CommunicationScore
		s.Tiers[e.Tier]++
		for _, stage := range e.Fallbacks {
			s.Fallbacks[stage]++
		}
		if e.Degraded() {
			s.Degraded++
		}
	}

	if s.Students > 0 {
		n := float64(s.Students)
		s.AverageOverall = overall / n
		s.AverageAcademic = academic / n
		s.AverageCommunication = communication / n
	}
	return s
}
