package ai

import (
	"regexp"
	"strconv"
	"strings"
)

const recommendationsMarker = "RECOMMENDATIONS:"

var (
	scorePattern     = regexp.MustCompile(`SCORE:[*_\s]*(\d+(?:\.\d+)?)`)
	reasoningPattern = regexp.MustCompile(`(?s)REASONING:\s*(.+)`)
	listPrefix       = regexp.MustCompile(`^(?:\d+[.)]\s*|[-*•]\s+)`)
)

// Verdict is a score with the model's explanation.
type Verdict struct {
	Score     float64
	Reasoning string
}

// ParseVerdict reads the first number after a SCORE: label and everything
// after REASONING:. The bool is false when no score could be found.
func ParseVerdict(raw string) (Verdict, bool) {
	raw = stripFences(raw)

	score, ok := firstNumber(scorePattern, raw)
	if !ok {
		return Verdict{}, false
	}

	v := Verdict{Score: score}
	if m := reasoningPattern.FindStringSubmatch(raw); m != nil {
		v.Reasoning = trimEmphasis(m[1])
	}
	return v, true
}

// ParseLabeledNumber finds the first number after "<label>:".
func ParseLabeledNumber(raw, label string) (float64, bool) {
	pattern, err := regexp.Compile(regexp.QuoteMeta(label) + `:[*_\s]*(\d+(?:\.\d+)?)`)
	if err != nil {
		return 0, false
	}
	return firstNumber(pattern, stripFences(raw))
}

// ParseLabeledText returns the trimmed text after "<label>:" up to the end of
// the response.
func ParseLabeledText(raw, label string) (string, bool) {
	pattern, err := regexp.Compile(`(?s)` + regexp.QuoteMeta(label) + `:\s*(.+)`)
	if err != nil {
		return "", false
	}
	m := pattern.FindStringSubmatch(stripFences(raw))
	if m == nil {
		return "", false
	}
	text := trimEmphasis(m[1])
	return text, text != ""
}

// ParseRecommendations collects the lines after the RECOMMENDATIONS: marker
// with numbering and bullets removed. Blank lines are skipped.
func ParseRecommendations(raw string) []string {
	var (
		recs   []string
		inside bool
	)
	for _, line := range strings.Split(stripFences(raw), "\n") {
		line = strings.TrimSpace(line)
		if !inside {
			if idx := strings.Index(line, recommendationsMarker); idx >= 0 {
				inside = true
				line = trimEmphasis(line[idx+len(recommendationsMarker):])
			} else {
				continue
			}
		}
		line = strings.TrimSpace(listPrefix.ReplaceAllString(line, ""))
		if line == "" {
			continue
		}
		recs = append(recs, line)
	}
	return recs
}

// ParseNameList reads a comma separated list of names. all is true when the
// model answered ALL in any casing, optionally quoted.
func ParseNameList(raw string) (names []string, all bool) {
	cleaned := strings.TrimSpace(stripFences(raw))
	cleaned = strings.TrimPrefix(cleaned, "Response:")
	cleaned = trimQuotes(strings.TrimSpace(cleaned))
	if strings.EqualFold(cleaned, "all") {
		return nil, true
	}

	for _, part := range strings.Split(cleaned, ",") {
		name := trimQuotes(strings.TrimSpace(part))
		if name == "" {
			continue
		}
		names = append(names, name)
	}
	return names, false
}

func firstNumber(pattern *regexp.Regexp, raw string) (float64, bool) {
	m := pattern.FindStringSubmatch(raw)
	if m == nil {
		return 0, false
	}
	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return 0, false
	}
	return value, true
}

// trimEmphasis drops markdown bold or italic markers left around a label.
func trimEmphasis(s string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(s), "*_ "))
}

func trimQuotes(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\"'`"))
}

func stripFences(raw string) string {
	raw = strings.TrimSpace(raw)
	if strings.HasPrefix(raw, "```") {
		if nl := strings.Index(raw, "\n"); nl != -1 {
			raw = raw[nl+1:]
		} else {
			raw = strings.TrimPrefix(raw, "```")
		}
		if idx := strings.LastIndex(raw, "```"); idx != -1 {
			raw = raw[:idx]
		}
	}
	return strings.TrimSpace(raw)
}
