// Package scoring holds the deterministic formulas every agent falls back to.
package scoring

import (
	"math"

	"github.com/spigell/placement-readiness/internal/student"
)

const (
	AcademicFallbackReason = "Calculated from attendance, tests, assignments, and events."

	BootcampRecommendation      = "Join a comprehensive placement bootcamp to improve overall readiness."
	CommunicationRecommendation = "Attend resume writing and communication workshops."
	TechnicalRecommendation     = "Practice coding problems on platforms like LeetCode and HackerRank."
	OnTrackRecommendation       = "You're on track! Focus on mock interviews and company-specific preparation."

	eventBonus = 10

	overallThreshold       = 70
	communicationThreshold = 65
	technicalThreshold     = 65

	excellentThreshold = 80
	goodThreshold      = 70
)

// Clamp bounds a score to [0, 100]. NaN is treated as 0.
func Clamp(score float64) float64 {
	switch {
	case math.IsNaN(score):
		return 0
	case score < 0:
		return 0
	case score > 100:
		return 100
	}
	return score
}

// AcademicFallback weighs attendance, tests and assignments equally and adds a
// bonus for event participation.
func AcademicFallback(rec student.Record) (float64, string) {
	score := float64(0.3*rec.Attendance) + float64(0.3*rec.TestScore) + float64(0.3*rec.AssignmentPercentage)
	if rec.Participated() {
		score += eventBonus
	}
	return Clamp(score), AcademicFallbackReason
}

// ReadinessAggregate truncates both inputs, then floors the weighted sum.
func ReadinessAggregate(academic, communication float64) (overall, tech, comm int) {
	tech = int(academic)
	comm = int(communication)
	// Explicit conversions keep the compiler from fusing multiply and add.
	weighted := float64(0.6*float64(tech)) + float64(0.4*float64(comm))
	overall = int(math.Floor(weighted))
	return overall, tech, comm
}

// InterventionRules returns rule-based recommendations in a fixed order. The
// result is never empty.
func InterventionRules(overall, tech, comm int) []string {
	var recs []string
	if overall < overallThreshold {
		recs = append(recs, BootcampRecommendation)
	}
	if comm < communicationThreshold {
		recs = append(recs, CommunicationRecommendation)
	}
	if tech < technicalThreshold {
		recs = append(recs, TechnicalRecommendation)
	}
	if len(recs) == 0 {
		recs = append(recs, OnTrackRecommendation)
	}
	return recs
}

func TierFor(overall int) student.Tier {
	switch {
	case overall >= excellentThreshold:
		return student.TierExcellent
	case overall >= goodThreshold:
		return student.TierGood
	default:
		return student.TierNeedsImprovement
	}
}
