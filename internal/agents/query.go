package agents

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/student"
)

const AgentQuery = "query"

// RosterEntry is the per-student summary the query analyzer reasons over.
type RosterEntry struct {
	Name          string
	Overall       int
	Academic      float64
	Communication float64
}

func (e RosterEntry) line() string {
	return fmt.Sprintf("- %s: Overall %d%%, Academic %.1f%%, Communication %s%%",
		e.Name, e.Overall, e.Academic, pct(e.Communication))
}

// RosterFrom summarises evaluations in the order given.
func RosterFrom(evaluated []*student.Evaluation) []RosterEntry {
	roster := make([]RosterEntry, 0, len(evaluated))
	for _, e := range evaluated {
		if e == nil {
			continue
		}
		roster = append(roster, RosterEntry{
			Name:          e.Name,
			Overall:       e.OverallScore,
			Academic:      e.AcademicScore,
			Communication: e.CommunicationScore,
		})
	}
	return roster
}

type QueryAnalyzer struct {
	base
}

func NewQueryAnalyzer(completer ai.Completer, opts Options) *QueryAnalyzer {
	return &QueryAnalyzer{base: newBase(AgentQuery, completer, opts)}
}

// Analyze returns the canonical roster names the query refers to. Names the
// model invents are dropped. When nothing usable remains the whole roster
// is returned.
func (q *QueryAnalyzer) Analyze(ctx context.Context, query string, roster []RosterEntry) []string {
	if len(roster) == 0 {
		return []string{}
	}

	all := make([]string, 0, len(roster))
	canonical := make(map[string]string, len(roster))
	lines := make([]string, 0, len(roster))
	for _, entry := range roster {
		all = append(all, entry.Name)
		key := strings.ToLower(strings.TrimSpace(entry.Name))
		if _, seen := canonical[key]; !seen {
			canonical[key] = entry.Name
		}
		lines = append(lines, entry.line())
	}

	if strings.TrimSpace(query) == "" {
		return all
	}

	prompt := render(queryPrompt, map[string]string{
		"AVAILABLE_STUDENTS": strings.Join(lines, "\n"),
		"USER_QUERY":         strings.TrimSpace(query),
	})

	raw, ok := q.complete(ctx, "", prompt)
	if !ok {
		q.fallback("", "full roster")
		return all
	}

	names, everyone := ai.ParseNameList(raw)
	if everyone {
		return all
	}

	selected := make([]string, 0, len(names))
	picked := make(map[string]struct{}, len(names))
	for _, name := range names {
		key := strings.ToLower(name)
		match, known := canonical[key]
		if !known {
			q.logger.Info("dropping unknown student name from query analysis", zap.String("name", name))
			continue
		}
		if _, dup := picked[key]; dup {
			continue
		}
		picked[key] = struct{}{}
		selected = append(selected, match)
	}

	if len(selected) == 0 {
		q.logger.Warn("query analysis matched no students, returning full roster", zap.String("response", raw))
		q.fallback("", "full roster")
		return all
	}
	return selected
}
