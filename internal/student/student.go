package student

import (
	"errors"
	"fmt"
	"strings"
)

const (
	DefaultSoftSkillScore     = 50
	DefaultEventParticipation = "No"

	// notProvided is how missing profile text is rendered in documents and
	// how older exports stored it.
	notProvided = "Not provided"
)

var (
	ErrMissingName = errors.New("student name is required")
	ErrOutOfRange  = errors.New("value must be within [0, 100]")
)

// Record is a single student row as ingested from a tabular or form source.
type Record struct {
	Name                 string  `mapstructure:"name" json:"name" yaml:"name"`
	Attendance           float64 `mapstructure:"attendance" json:"attendance" yaml:"attendance"`
	TestScore            float64 `mapstructure:"test_score" json:"test_score" yaml:"test_score"`
	AssignmentPercentage float64 `mapstructure:"assignment_percentage" json:"assignment_percentage" yaml:"assignment_percentage"`
	EventParticipation   string  `mapstructure:"event_participation" json:"event_participation" yaml:"event_participation"`
	SoftSkillScore       float64 `mapstructure:"softskill_score" json:"softskill_score" yaml:"softskill_score"`
	LinkedInBio          string  `mapstructure:"linkedin_bio" json:"linkedin_bio,omitempty" yaml:"linkedin_bio,omitempty"`
	ResumeText           string  `mapstructure:"resume_text" json:"resume_text,omitempty" yaml:"resume_text,omitempty"`
}

// Validate reports the problems that must reach the caller instead of being defaulted.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return ErrMissingName
	}

	fields := []struct {
		name  string
		value float64
	}{
		{"attendance", r.Attendance},
		{"test_score", r.TestScore},
		{"assignment_percentage", r.AssignmentPercentage},
		{"softskill_score", r.SoftSkillScore},
	}
	for _, f := range fields {
		if f.value < 0 || f.value > 100 {
			return fmt.Errorf("%s: %s=%v: %w", r.Name, f.name, f.value, ErrOutOfRange)
		}
	}

	return nil
}

// Participated reports whether the student took part in placement events.
func (r *Record) Participated() bool {
	return strings.EqualFold(strings.TrimSpace(r.EventParticipation), "yes")
}

// HasProfileText reports whether there is any bio or resume text worth evaluating.
func (r *Record) HasProfileText() bool {
	return IsProvided(r.LinkedInBio) || IsProvided(r.ResumeText)
}

// IsProvided treats blank text and the "Not provided" placeholder as absent.
func IsProvided(text string) bool {
	text = strings.TrimSpace(text)
	return text != "" && !strings.EqualFold(text, notProvided)
}

// OrNotProvided returns the text or the placeholder used in prompts and documents.
func OrNotProvided(text string) string {
	if !IsProvided(text) {
		return notProvided
	}
	return strings.TrimSpace(text)
}

// ApplyDefaults fills optional fields left empty by the source.
func (r *Record) ApplyDefaults(hasSoftSkill bool) {
	r.Name = strings.TrimSpace(r.Name)
	if strings.TrimSpace(r.EventParticipation) == "" {
		r.EventParticipation = DefaultEventParticipation
	}
	if !hasSoftSkill {
		r.SoftSkillScore = DefaultSoftSkillScore
	}
}
