package retrieval

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"

	"github.com/spigell/placement-readiness/internal/student"
)

// Metadata keys stored with every document.
const (
	KeyName                 = "name"
	KeyAttendance           = "attendance"
	KeyTestScore            = "test_score"
	KeyAssignmentPercentage = "assignment_percentage"
	KeyEventParticipation   = "event_participation"
	KeySoftSkillScore       = "softskill_score"
	KeyLinkedInBio          = "linkedin_bio"
	KeyResumeText           = "resume_text"
	KeyIndexedAt            = "indexed_at"
)

// namespace scopes name-derived document IDs.
var namespace = uuid.NewSHA1(uuid.NameSpaceOID, []byte("placement-readiness/student"))

// Document is the indexed form of one student.
type Document struct {
	ID       string
	Text     string
	Metadata map[string]any
}

// Match is a search hit. Higher scores are better.
type Match struct {
	Document Document
	Score    float64
}

// DocumentID derives the ID from the student name, so two records with the
// same name map to the same document.
func DocumentID(name string) string {
	return uuid.NewSHA1(namespace, []byte(strings.TrimSpace(name))).String()
}

func NewDocument(rec student.Record, indexedAt time.Time) Document {
	return Document{
		ID:   DocumentID(rec.Name),
		Text: RenderText(rec),
		Metadata: map[string]any{
			KeyName:                 rec.Name,
			KeyAttendance:           rec.Attendance,
			KeyTestScore:            rec.TestScore,
			KeyAssignmentPercentage: rec.AssignmentPercentage,
			KeyEventParticipation:   rec.EventParticipation,
			KeySoftSkillScore:       rec.SoftSkillScore,
			KeyLinkedInBio:          rec.LinkedInBio,
			KeyResumeText:           rec.ResumeText,
			KeyIndexedAt:            indexedAt.UTC().Format(time.RFC3339),
		},
	}
}

// RecordFromMetadata decodes document metadata back into a record. Numbers
// stored as strings or integers are accepted.
func RecordFromMetadata(md map[string]any) (student.Record, error) {
	var rec student.Record

	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		Result:           &rec,
	})
	if err != nil {
		return student.Record{}, fmt.Errorf("create metadata decoder: %w", err)
	}
	if err := decoder.Decode(md); err != nil {
		return student.Record{}, fmt.Errorf("decode metadata: %w", err)
	}
	return rec, nil
}

// RenderText produces the searchable text of a student document.
func RenderText(rec student.Record) string {
	strongAcademics := rec.Attendance > 80 && rec.TestScore > 75
	goodCommunication := rec.SoftSkillScore > 70

	academicStatus := "Needs Improvement"
	if strongAcademics {
		academicStatus = "Strong"
	}
	communication := "Needs Development"
	if goodCommunication {
		communication = "Good"
	}
	readiness := "Moderate"
	if strongAcademics && goodCommunication {
		readiness = "High"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Student Name: %s\n", rec.Name)
	b.WriteString("Academic Performance:\n")
	fmt.Fprintf(&b, "- Attendance: %s%%\n", num(rec.Attendance))
	fmt.Fprintf(&b, "- Test Score: %s%%\n", num(rec.TestScore))
	fmt.Fprintf(&b, "- Assignment Completion: %s%%\n", num(rec.AssignmentPercentage))
	fmt.Fprintf(&b, "- Event Participation: %s\n\n", rec.EventParticipation)
	b.WriteString("Soft Skills Assessment:\n")
	fmt.Fprintf(&b, "- Initial Soft Skills Score: %s%%\n\n", num(rec.SoftSkillScore))
	b.WriteString("Professional Profile:\n")
	fmt.Fprintf(&b, "- LinkedIn Bio: %s\n", student.OrNotProvided(rec.LinkedInBio))
	fmt.Fprintf(&b, "- Resume Summary: %s\n\n", student.OrNotProvided(rec.ResumeText))
	fmt.Fprintf(&b, "Academic Status: %s\n", academicStatus)
	fmt.Fprintf(&b, "Communication Skills: %s\n", communication)
	fmt.Fprintf(&b, "Overall Readiness: %s", readiness)
	return b.String()
}

func num(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
