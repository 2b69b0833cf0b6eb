package ai

import (
	"context"
	"errors"
	"reflect"
	"testing"
)

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		raw       string
		ok        bool
		score     float64
		reasoning string
	}{
		{
			name:      "score and reasoning",
			raw:       "SCORE: 82\nREASONING: Strong attendance and tests.",
			ok:        true,
			score:     82,
			reasoning: "Strong attendance and tests.",
		},
		{
			name:      "decimal score and multiline reasoning",
			raw:       "Here you go\nSCORE:   77.5\nREASONING:\nGood bio.\nClear resume.\n",
			ok:        true,
			score:     77.5,
			reasoning: "Good bio.\nClear resume.",
		},
		{
			name:  "score without reasoning",
			raw:   "SCORE: 64",
			ok:    true,
			score: 64,
		},
		{
			name:      "fenced response",
			raw:       "```text\nSCORE: 90\nREASONING: Excellent.\n```",
			ok:        true,
			score:     90,
			reasoning: "Excellent.",
		},
		{
			name:  "first score wins",
			raw:   "SCORE: 40\nSCORE: 99",
			ok:    true,
			score: 40,
		},
		{
			name:      "bold labels",
			raw:       "**SCORE:** 71\n**REASONING:** Consistent attendance.",
			ok:        true,
			score:     71,
			reasoning: "Consistent attendance.",
		},
		{
			name: "no score label",
			raw:  "The student looks fine. REASONING: n/a",
		},
		{
			name: "non numeric score",
			raw:  "SCORE: high\nREASONING: n/a",
		},
		{
			name: "empty",
			raw:  "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			v, ok := ParseVerdict(tt.raw)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if !ok {
				return
			}
			if v.Score != tt.score {
				t.Fatalf("expected score %v, got %v", tt.score, v.Score)
			}
			if v.Reasoning != tt.reasoning {
				t.Fatalf("expected reasoning %q, got %q", tt.reasoning, v.Reasoning)
			}
		})
	}
}

func TestParseLabeledFields(t *testing.T) {
	t.Parallel()

	raw := "OVERALL_SCORE: 76.4\nTECH_READINESS: 82\nCOMM_READINESS: 65\nANALYSIS: Ready for most roles.\nKeep practicing."

	if v, ok := ParseLabeledNumber(raw, "OVERALL_SCORE"); !ok || v != 76.4 {
		t.Fatalf("unexpected overall: %v %v", v, ok)
	}
	if v, ok := ParseLabeledNumber(raw, "TECH_READINESS"); !ok || v != 82 {
		t.Fatalf("unexpected tech: %v %v", v, ok)
	}
	if _, ok := ParseLabeledNumber(raw, "MISSING"); ok {
		t.Fatalf("expected missing label to be unparsable")
	}
	if text, ok := ParseLabeledText(raw, "ANALYSIS"); !ok || text != "Ready for most roles.\nKeep practicing." {
		t.Fatalf("unexpected analysis: %q %v", text, ok)
	}
	if _, ok := ParseLabeledText("ANALYSIS:   ", "ANALYSIS"); ok {
		t.Fatalf("expected blank analysis to be unparsable")
	}

	bold := "**OVERALL_SCORE:** 81\n**ANALYSIS:** Ready for product roles."
	if v, ok := ParseLabeledNumber(bold, "OVERALL_SCORE"); !ok || v != 81 {
		t.Fatalf("unexpected bold overall: %v %v", v, ok)
	}
	if text, ok := ParseLabeledText(bold, "ANALYSIS"); !ok || text != "Ready for product roles." {
		t.Fatalf("unexpected bold analysis: %q %v", text, ok)
	}
	if _, ok := ParseLabeledText("**ANALYSIS:**", "ANALYSIS"); ok {
		t.Fatalf("expected emphasis-only analysis to be unparsable")
	}
}

func TestParseRecommendations(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		raw  string
		want []string
	}{
		{
			name: "numbered list",
			raw:  "Some preface\nRECOMMENDATIONS:\n1. Practice DSA daily.\n2) Join a debate club.\n\n3. Build two projects.",
			want: []string{"Practice DSA daily.", "Join a debate club.", "Build two projects."},
		},
		{
			name: "bullets",
			raw:  "RECOMMENDATIONS:\n- Mock interviews\n* Update resume\n• Network on LinkedIn",
			want: []string{"Mock interviews", "Update resume", "Network on LinkedIn"},
		},
		{
			name: "inline first item",
			raw:  "RECOMMENDATIONS: 1. Attend workshops\n2. Read more",
			want: []string{"Attend workshops", "Read more"},
		},
		{
			name: "bold marker",
			raw:  "**RECOMMENDATIONS:**\n1. Practice mock interviews.\n2. Join a toastmasters club.",
			want: []string{"Practice mock interviews.", "Join a toastmasters club."},
		},
		{
			name: "bold marker with inline item",
			raw:  "__RECOMMENDATIONS:__ 1. Attend workshops\n2. Read more",
			want: []string{"Attend workshops", "Read more"},
		},
		{
			name: "no marker",
			raw:  "1. Practice\n2. Study",
		},
		{
			name: "empty block",
			raw:  "RECOMMENDATIONS:\n\n   \n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			got := ParseRecommendations(tt.raw)
			if !reflect.DeepEqual(got, tt.want) {
				t.Fatalf("expected %#v, got %#v", tt.want, got)
			}
		})
	}
}

func TestParseNameList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		raw   string
		all   bool
		names []string
	}{
		{name: "all", raw: "ALL", all: true},
		{name: "quoted lowercase all", raw: ` "all" `, all: true},
		{name: "names", raw: "Avni Mehta, Rohan Gupta ,, ", names: []string{"Avni Mehta", "Rohan Gupta"}},
		{name: "quoted names", raw: `"Avni Mehta", 'Rohan'`, names: []string{"Avni Mehta", "Rohan"}},
		{name: "response label", raw: "Response: Neha", names: []string{"Neha"}},
		{name: "empty", raw: "   "},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			names, all := ParseNameList(tt.raw)
			if all != tt.all {
				t.Fatalf("expected all=%v, got %v", tt.all, all)
			}
			if !reflect.DeepEqual(names, tt.names) {
				t.Fatalf("expected %#v, got %#v", tt.names, names)
			}
		})
	}
}

func TestOfflineIsUnavailable(t *testing.T) {
	t.Parallel()

	out, err := Offline{}.Complete(context.Background(), "prompt")
	if !errors.Is(err, ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
	if out != "" {
		t.Fatalf("expected empty output, got %q", out)
	}

	provider, model := Describe(Offline{})
	if provider != "offline" || model != "" {
		t.Fatalf("unexpected description: %q %q", provider, model)
	}

	provider, _ = Describe(CompleterFunc(func(context.Context, string) (string, error) { return "", nil }))
	if provider != "" {
		t.Fatalf("expected no provider for plain completer, got %q", provider)
	}
}
