package student

type Tier string

const (
	TierExcellent        Tier = "Excellent"
	TierGood             Tier = "Good"
	TierNeedsImprovement Tier = "Needs Improvement"
)

// Stage names recorded in Evaluation.Fallbacks.
const (
	StageAcademic     = "academic"
	StageSoftSkills   = "softskills"
	StageReadiness    = "readiness"
	StageIntervention = "intervention"
)

// Evaluation is the pipeline output for exactly one Record.
type Evaluation struct {
	Name                   string   `json:"name" yaml:"name"`
	AcademicScore          float64  `json:"academic_score" yaml:"academic_score"`
	AcademicReasoning      string   `json:"academic_reasoning" yaml:"academic_reasoning"`
	CommunicationScore     float64  `json:"communication_score" yaml:"communication_score"`
	CommunicationReasoning string   `json:"communication_reasoning" yaml:"communication_reasoning"`
	OverallScore           int      `json:"overall_score" yaml:"overall_score"`
	TechReadiness          int      `json:"tech_readiness" yaml:"tech_readiness"`
	CommReadiness          int      `json:"comm_readiness" yaml:"comm_readiness"`
	Analysis               string   `json:"analysis" yaml:"analysis"`
	Recommendations        []string `json:"recommendations" yaml:"recommendations"`
	Tier                   Tier     `json:"tier" yaml:"tier"`
	Fallbacks              []string `json:"fallbacks,omitempty" yaml:"fallbacks,omitempty"`
	Record                 Record   `json:"record" yaml:"record"`
}

// Degraded reports whether any stage used its deterministic path.
func (e *Evaluation) Degraded() bool {
	return len(e.Fallbacks) > 0
}

// Names returns evaluation names in order.
func Names(evaluated []*Evaluation) []string {
	names := make([]string, 0, len(evaluated))
	for _, e := range evaluated {
		names = append(names, e.Name)
	}
	return names
}
