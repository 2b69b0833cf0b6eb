package filtering

import (
	"context"
	"errors"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/spigell/placement-readiness/internal/agents"
	"github.com/spigell/placement-readiness/internal/student"
)

type stepRecorder struct {
	dropped map[string]int
}

func (r *stepRecorder) GenerativeFailure(string)             {}
func (r *stepRecorder) Fallback(string)                      {}
func (r *stepRecorder) ParseAmbiguity(string)                {}
func (r *stepRecorder) RetrievalFailure(string)              {}
func (r *stepRecorder) StudentProcessed(time.Duration, bool) {}
func (r *stepRecorder) ValidationFailure()                   {}
func (r *stepRecorder) FilterStep(step string, dropped int)  { r.dropped[step] += dropped }

type fixedSelector struct {
	names  []string
	roster []agents.RosterEntry
	calls  int
}

func (s *fixedSelector) Analyze(_ context.Context, _ string, roster []agents.RosterEntry) []string {
	s.calls++
	s.roster = roster
	return s.names
}

type failingFilter struct{ validateErr, applyErr error }

func (f failingFilter) Name() string    { return "failing" }
func (f failingFilter) Disable(string)  {}
func (f failingFilter) IsEnabled() bool { return true }
func (f failingFilter) Validate() error { return f.validateErr }
func (f failingFilter) Apply(_ context.Context, _ Deps, e []*student.Evaluation) ([]*student.Evaluation, Step, error) {
	return e, Step{}, f.applyErr
}

func cohort() []*student.Evaluation {
	return []*student.Evaluation{
		{Name: "Avni Mehta", OverallScore: 88, AcademicScore: 90, CommunicationScore: 85, TechReadiness: 90, CommReadiness: 85},
		{Name: "Neha Sharma", OverallScore: 74, AcademicScore: 78.5, CommunicationScore: 68, TechReadiness: 78, CommReadiness: 68},
		{Name: "Rohan Gupta", OverallScore: 58, AcademicScore: 60.3, CommunicationScore: 55, TechReadiness: 60, CommReadiness: 55},
		{Name: "Kabir Rao", OverallScore: 71, AcademicScore: 66, CommunicationScore: 79, TechReadiness: 66, CommReadiness: 79},
	}
}

func TestCriteriaFilter(t *testing.T) {
	Convey("Given an evaluated cohort", t, func() {
		evaluated := cohort()
		rec := &stepRecorder{dropped: map[string]int{}}
		deps := Deps{Logger: zap.NewNop(), Metrics: rec}

		Convey("An empty criteria set disables the step", func() {
			f := NewCriteria(Criteria{FieldOverall: {}})
			So(f.IsEnabled(), ShouldBeFalse)

			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, student.Names(evaluated))
			So(rec.dropped, ShouldBeEmpty)
		})

		Convey("Bounds are inclusive and order is preserved", func() {
			f := NewCriteria(Criteria{FieldOverall: {Min: Bound(71), Max: Bound(88)}})
			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, []string{"Avni Mehta", "Neha Sharma", "Kabir Rao"})
			So(rec.dropped["criteria"], ShouldEqual, 1)
		})

		Convey("Every range must hold", func() {
			f := NewCriteria(Criteria{
				FieldAcademic: {Min: Bound(65)},
				FieldComm:     {Max: Bound(80)},
			})
			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, []string{"Neha Sharma", "Kabir Rao"})
		})

		Convey("Fractional scores are compared exactly", func() {
			f := NewCriteria(Criteria{FieldAcademic: {Max: Bound(60.3)}})
			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, []string{"Rohan Gupta"})
		})

		Convey("The input slice is not modified", func() {
			f := NewCriteria(Criteria{FieldTech: {Min: Bound(95)}})
			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
			So(len(evaluated), ShouldEqual, 4)
			So(evaluated[0].Name, ShouldEqual, "Avni Mehta")
		})

		Convey("Invalid criteria fail validation", func() {
			_, err := Run(context.Background(), deps, []Filter{NewCriteria(Criteria{"gpa": {Min: Bound(1)}})}, evaluated)
			So(err, ShouldNotBeNil)
			So(err.Error(), ShouldContainSubstring, `criteria: unknown field "gpa"`)

			_, err = Run(context.Background(), deps, []Filter{NewCriteria(Criteria{FieldOverall: {Min: Bound(90), Max: Bound(10)}})}, evaluated)
			So(err, ShouldNotBeNil)
		})

		Convey("Status describes the configured ranges", func() {
			statuses := Describe([]Filter{NewCriteria(Criteria{FieldOverall: {Min: Bound(70)}})})
			So(statuses, ShouldHaveLength, 1)
			So(statuses[0].Details[FieldOverall], ShouldEqual, "[70, +inf]")
			So(statuses[0].Enabled, ShouldBeTrue)
		})
	})
}

func TestQueryFilter(t *testing.T) {
	Convey("Given a query step", t, func() {
		evaluated := cohort()
		deps := Deps{Logger: zap.NewNop()}

		Convey("Selected names are kept in cohort order", func() {
			sel := &fixedSelector{names: []string{"Kabir Rao", "Avni Mehta"}}
			out, err := Run(context.Background(), deps, []Filter{NewQuery(sel, "who is strongest?")}, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, []string{"Avni Mehta", "Kabir Rao"})
			So(sel.roster, ShouldHaveLength, 4)
			So(sel.roster[1], ShouldResemble, agents.RosterEntry{Name: "Neha Sharma", Overall: 74, Academic: 78.5, Communication: 68})
		})

		Convey("A blank query disables the step and never calls the selector", func() {
			sel := &fixedSelector{}
			f := NewQuery(sel, "   ")
			So(f.IsEnabled(), ShouldBeFalse)

			out, err := Run(context.Background(), deps, []Filter{f}, evaluated)
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 4)
			So(sel.calls, ShouldEqual, 0)
		})

		Convey("A missing selector keeps everyone", func() {
			out, err := Run(context.Background(), deps, []Filter{NewQuery(nil, "anyone")}, evaluated)
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 4)
		})

		Convey("Steps compose in order", func() {
			sel := &fixedSelector{names: []string{"Avni Mehta", "Neha Sharma", "Kabir Rao", "Rohan Gupta"}}
			steps := []Filter{
				NewCriteria(Criteria{FieldOverall: {Min: Bound(70)}}),
				NewQuery(sel, "everyone placed"),
			}
			out, err := Run(context.Background(), deps, steps, evaluated)
			So(err, ShouldBeNil)
			So(student.Names(out), ShouldResemble, []string{"Avni Mehta", "Neha Sharma", "Kabir Rao"})
			So(sel.roster, ShouldHaveLength, 3)
		})
	})
}

func TestRun(t *testing.T) {
	Convey("Run reports step results and errors", t, func() {
		core, logs := observer.New(zapcore.InfoLevel)
		deps := Deps{Logger: zap.New(core)}

		Convey("Each applied step is logged", func() {
			_, err := Run(context.Background(), deps, []Filter{NewCriteria(Criteria{FieldOverall: {Min: Bound(80)}})}, cohort())
			So(err, ShouldBeNil)

			entries := logs.FilterMessage("filter step").All()
			So(entries, ShouldHaveLength, 1)
			fields := entries[0].ContextMap()
			So(fields["name"], ShouldEqual, "criteria")
			So(fields["dropped"], ShouldEqual, int64(3))
			So(fields["left"], ShouldEqual, int64(1))
		})

		Convey("Validation errors stop the run before any step applies", func() {
			boom := errors.New("bad config")
			steps := []Filter{NewCriteria(Criteria{FieldOverall: {Min: Bound(80)}}), failingFilter{validateErr: boom}}
			_, err := Run(context.Background(), deps, steps, cohort())
			So(errors.Is(err, boom), ShouldBeTrue)
			So(logs.FilterMessage("filter step").Len(), ShouldEqual, 0)
		})

		Convey("Apply errors are wrapped with the step name", func() {
			boom := errors.New("apply failed")
			_, err := Run(context.Background(), deps, []Filter{failingFilter{applyErr: boom}}, cohort())
			So(errors.Is(err, boom), ShouldBeTrue)
			So(err.Error(), ShouldStartWith, "failing: ")
		})

		Convey("DisableByName turns a step off", func() {
			steps := []Filter{NewCriteria(Criteria{FieldOverall: {Min: Bound(80)}})}
			DisableByName(steps, "criteria", "flag")
			out, err := Run(context.Background(), deps, steps, cohort())
			So(err, ShouldBeNil)
			So(out, ShouldHaveLength, 4)
			So(Describe(steps)[0].Reason, ShouldEqual, "flag")
		})
	})
}

func TestParseField(t *testing.T) {
	Convey("Field names are normalised", t, func() {
		field, err := ParseField(" Overall ")
		So(err, ShouldBeNil)
		So(field, ShouldEqual, FieldOverall)

		_, err = ParseField("height")
		So(err, ShouldNotBeNil)
	})
}
