package student

import (
	"errors"
	"testing"
)

func TestRecordValidate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		record Record
		want   error
	}{
		{
			name:   "valid",
			record: Record{Name: "Neha Sharma", Attendance: 85, TestScore: 75, AssignmentPercentage: 80, SoftSkillScore: 50},
		},
		{
			name:   "missing name",
			record: Record{Name: "   ", Attendance: 85},
			want:   ErrMissingName,
		},
		{
			name:   "attendance above range",
			record: Record{Name: "A", Attendance: 101},
			want:   ErrOutOfRange,
		},
		{
			name:   "negative softskill",
			record: Record{Name: "A", SoftSkillScore: -1},
			want:   ErrOutOfRange,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			err := tt.record.Validate()
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

func TestParticipatedIsCaseAndWhitespaceInsensitive(t *testing.T) {
	t.Parallel()

	for _, value := range []string{"Yes", "yes", " YES ", "yEs\t"} {
		r := Record{EventParticipation: value}
		if !r.Participated() {
			t.Fatalf("expected %q to count as participation", value)
		}
	}

	for _, value := range []string{"No", "", "y", "yes please"} {
		r := Record{EventParticipation: value}
		if r.Participated() {
			t.Fatalf("did not expect %q to count as participation", value)
		}
	}
}

func TestHasProfileText(t *testing.T) {
	t.Parallel()

	if (&Record{}).HasProfileText() {
		t.Fatalf("empty record must not have profile text")
	}
	if (&Record{LinkedInBio: "  ", ResumeText: "Not provided"}).HasProfileText() {
		t.Fatalf("blank bio and placeholder resume must not count as profile text")
	}
	if !(&Record{ResumeText: "Built a compiler"}).HasProfileText() {
		t.Fatalf("resume text must count as profile text")
	}
}

func TestApplyDefaults(t *testing.T) {
	t.Parallel()

	r := Record{Name: "  Avni Mehta "}
	r.ApplyDefaults(false)

	if r.Name != "Avni Mehta" {
		t.Fatalf("expected trimmed name, got %q", r.Name)
	}
	if r.EventParticipation != DefaultEventParticipation {
		t.Fatalf("expected default participation, got %q", r.EventParticipation)
	}
	if r.SoftSkillScore != DefaultSoftSkillScore {
		t.Fatalf("expected default softskill score, got %v", r.SoftSkillScore)
	}

	r = Record{Name: "B", SoftSkillScore: 0, EventParticipation: "Yes"}
	r.ApplyDefaults(true)
	if r.SoftSkillScore != 0 {
		t.Fatalf("explicit zero softskill score must be kept, got %v", r.SoftSkillScore)
	}
}

func TestEvaluationFallbackHelpers(t *testing.T) {
	t.Parallel()

	e := &Evaluation{Name: "A", Fallbacks: []string{StageAcademic}}
	if !e.Degraded() {
		t.Fatalf("expected evaluation to be degraded")
	}

	if got := Names([]*Evaluation{{Name: "A"}, {Name: "B"}}); len(got) != 2 || got[0] != "A" || got[1] != "B" {
		t.Fatalf("unexpected names: %v", got)
	}
}
