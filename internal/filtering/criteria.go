package filtering

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/student"
)

// Fields that criteria can bound.
const (
	FieldOverall       = "overall"
	FieldAcademic      = "academic"
	FieldCommunication = "communication"
	FieldTech          = "tech"
	FieldComm          = "comm"
)

var fieldValues = map[string]func(*student.Evaluation) float64{
	FieldOverall:       func(e *student.Evaluation) float64 { return float64(e.OverallScore) },
	FieldAcademic:      func(e *student.Evaluation) float64 { return e.AcademicScore },
	FieldCommunication: func(e *student.Evaluation) float64 { return e.CommunicationScore },
	FieldTech:          func(e *student.Evaluation) float64 { return float64(e.TechReadiness) },
	FieldComm:          func(e *student.Evaluation) float64 { return float64(e.CommReadiness) },
}

// Range bounds a field inclusively. A nil bound is open.
type Range struct {
	Min *float64 `mapstructure:"min" yaml:"min,omitempty"`
	Max *float64 `mapstructure:"max" yaml:"max,omitempty"`
}

func (r Range) set() bool { return r.Min != nil || r.Max != nil }

func (r Range) contains(v float64) bool {
	if r.Min != nil && v < *r.Min {
		return false
	}
	if r.Max != nil && v > *r.Max {
		return false
	}
	return true
}

func (r Range) String() string {
	lo, hi := "-inf", "+inf"
	if r.Min != nil {
		lo = strconv.FormatFloat(*r.Min, 'f', -1, 64)
	}
	if r.Max != nil {
		hi = strconv.FormatFloat(*r.Max, 'f', -1, 64)
	}
	return "[" + lo + ", " + hi + "]"
}

// Criteria maps field names to ranges.
type Criteria map[string]Range

// Bound returns a pointer for use as a Range limit.
func Bound(v float64) *float64 { return &v }

type criteriaFilter struct {
	criteria Criteria
	disabled bool
	reason   string
}

// NewCriteria keeps evaluations whose fields fall inside every range. It is
// disabled when no range has a bound.
func NewCriteria(criteria Criteria) Filter {
	f := &criteriaFilter{criteria: Criteria{}}
	for field, r := range criteria {
		if r.set() {
			f.criteria[field] = r
		}
	}
	if len(f.criteria) == 0 {
		f.Disable("no criteria configured")
	}
	return f
}

func (f *criteriaFilter) Name() string { return "criteria" }

func (f *criteriaFilter) Disable(reason string) {
	f.disabled = true
	f.reason = reason
}

func (f *criteriaFilter) IsEnabled() bool { return !f.disabled }

func (f *criteriaFilter) Validate() error {
	for _, field := range f.fields() {
		if _, ok := fieldValues[field]; !ok {
			return fmt.Errorf("unknown field %q", field)
		}
		r := f.criteria[field]
		if r.Min != nil && r.Max != nil && *r.Min > *r.Max {
			return fmt.Errorf("%s: min %v is above max %v", field, *r.Min, *r.Max)
		}
	}
	return nil
}

func (f *criteriaFilter) Apply(_ context.Context, deps Deps, evaluated []*student.Evaluation) ([]*student.Evaluation, Step, error) {
	out, step := keep(evaluated, func(e *student.Evaluation) bool {
		for field, r := range f.criteria {
			if !r.contains(fieldValues[field](e)) {
				return false
			}
		}
		return true
	})

	if deps.Logger != nil && step.Dropped > 0 {
		deps.Logger.Info("excluding students outside criteria",
			zap.Strings("kept", student.Names(out)),
			zap.Int("students_left", step.Left),
		)
	}
	return out, step, nil
}

func (f *criteriaFilter) Status() Status {
	details := map[string]string{}
	for _, field := range f.fields() {
		details[field] = f.criteria[field].String()
	}
	return Status{Name: f.Name(), Enabled: f.IsEnabled(), Reason: f.reason, Details: details}
}

func (f *criteriaFilter) fields() []string {
	fields := make([]string, 0, len(f.criteria))
	for field := range f.criteria {
		fields = append(fields, field)
	}
	sort.Strings(fields)
	return fields
}

// ParseField normalises a user supplied field name.
func ParseField(name string) (string, error) {
	field := strings.ToLower(strings.TrimSpace(name))
	if _, ok := fieldValues[field]; !ok {
		return "", fmt.Errorf("unknown field %q", name)
	}
	return field, nil
}
