// Package pipeline runs the evaluation agents over a cohort and answers
// questions about the result.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/spigell/placement-readiness/internal/agents"
	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/filtering"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/metrics"
	"github.com/spigell/placement-readiness/internal/retrieval"
	"github.com/spigell/placement-readiness/internal/scoring"
	"github.com/spigell/placement-readiness/internal/student"
)

const defaultSearchResults = 5

var (
	ErrNoIndex         = errors.New("no index configured")
	ErrStudentNotFound = errors.New("student not found")
)

type Config struct {
	// Workers bounds how many students are evaluated at once. Values below 1 mean 1.
	Workers       int                `mapstructure:"workers" yaml:"workers"`
	MaxLogLength  int                `mapstructure:"max-log-length" yaml:"max-log-length"`
	SearchResults int                `mapstructure:"search-results" yaml:"search-results"`
	Criteria      filtering.Criteria `mapstructure:"criteria" yaml:"criteria,omitempty"`
	// DisabledFilters names filter steps that are kept in the list but skipped.
	DisabledFilters []string `mapstructure:"disabled-filters" yaml:"disabled-filters,omitempty"`
}

type Deps struct {
	Completer ai.Completer
	Index     *retrieval.Index
	Logger    *zap.Logger
	Metrics   metrics.Recorder
}

type Pipeline struct {
	cfg     Config
	index   *retrieval.Index
	logger  *zap.Logger
	metrics metrics.Recorder
	runID   string

	academic     *agents.Academic
	softSkills   *agents.SoftSkills
	readiness    *agents.ReadinessAnalyzer
	intervention *agents.Intervention
	query        *agents.QueryAnalyzer
	responder    *agents.Responder
}

func New(cfg Config, deps Deps) (*Pipeline, error) {
	if cfg.Workers < 1 {
		cfg.Workers = 1
	}
	if cfg.SearchResults < 1 {
		cfg.SearchResults = defaultSearchResults
	}
	if criteria := filtering.NewCriteria(cfg.Criteria); criteria.IsEnabled() {
		if err := criteria.Validate(); err != nil {
			return nil, fmt.Errorf("criteria: %w", err)
		}
	}

	runID := uuid.NewString()
	log := logger.WithFields(deps.Logger, zap.String("run_id", runID))
	rec := metrics.OrNop(deps.Metrics)
	opts := agents.Options{Logger: log, Metrics: rec, MaxLogLength: cfg.MaxLogLength}

	return &Pipeline{
		cfg:          cfg,
		index:        deps.Index,
		logger:       log,
		metrics:      rec,
		runID:        runID,
		academic:     agents.NewAcademic(deps.Completer, opts),
		softSkills:   agents.NewSoftSkills(deps.Completer, opts),
		readiness:    agents.NewReadiness(deps.Completer, opts),
		intervention: agents.NewIntervention(deps.Completer, opts),
		query:        agents.NewQueryAnalyzer(deps.Completer, opts),
		responder:    agents.NewResponder(deps.Completer, opts),
	}, nil
}

// RunID identifies this pipeline in logs.
func (p *Pipeline) RunID() string { return p.runID }

// ProcessStudent runs every agent for rec in order. Only validation errors
// are returned; backend trouble is absorbed by the agents' fallbacks.
func (p *Pipeline) ProcessStudent(ctx context.Context, rec student.Record) (*student.Evaluation, error) {
	if err := rec.Validate(); err != nil {
		p.metrics.ValidationFailure()
		p.logger.Warn("invalid student record", logger.Student(rec.Name), zap.Error(err))
		return nil, err
	}

	start := time.Now()
	eval := &student.Evaluation{Name: rec.Name, Record: rec}

	academic := p.academic.Assess(ctx, rec)
	eval.AcademicScore, eval.AcademicReasoning = academic.Score, academic.Reasoning
	if academic.Fallback {
		eval.Fallbacks = append(eval.Fallbacks, student.StageAcademic)
	}

	soft := p.softSkills.Assess(ctx, rec)
	eval.CommunicationScore, eval.CommunicationReasoning = soft.Score, soft.Reasoning
	if soft.Fallback {
		eval.Fallbacks = append(eval.Fallbacks, student.StageSoftSkills)
	}

	ready := p.readiness.Analyze(ctx, rec.Name, eval.AcademicScore, eval.CommunicationScore)
	eval.OverallScore, eval.TechReadiness, eval.CommReadiness = ready.Overall, ready.Tech, ready.Comm
	eval.Analysis = ready.Analysis
	eval.Tier = scoring.TierFor(ready.Overall)
	if ready.Fallback {
		eval.Fallbacks = append(eval.Fallbacks, student.StageReadiness)
	}

	advice := p.intervention.Advise(ctx, rec.Name, eval.OverallScore, eval.TechReadiness, eval.CommReadiness)
	eval.Recommendations = advice.Items
	if advice.Fallback {
		eval.Fallbacks = append(eval.Fallbacks, student.StageIntervention)
	}

	elapsed := time.Since(start)
	p.metrics.StudentProcessed(elapsed, eval.Degraded())
	p.logger.Debug("student evaluated",
		logger.Student(rec.Name),
		zap.Int("overall", eval.OverallScore),
		zap.Strings("fallbacks", eval.Fallbacks),
		zap.Duration("elapsed", elapsed),
	)
	return eval, nil
}

// ProcessAll evaluates recs on the worker pool and returns them ranked by
// overall score, highest first. Equal scores keep input order. Invalid
// records are left out and their errors joined.
func (p *Pipeline) ProcessAll(ctx context.Context, recs []student.Record) ([]*student.Evaluation, error) {
	evaluated, err := p.process(ctx, recs)
	sort.SliceStable(evaluated, func(i, j int) bool {
		return evaluated[i].OverallScore > evaluated[j].OverallScore
	})

	p.logger.Info("cohort evaluated",
		zap.Int("students", len(recs)),
		zap.Int("evaluated", len(evaluated)),
		zap.Int("workers", p.cfg.Workers),
	)
	return evaluated, err
}

// process evaluates recs concurrently and returns the valid results in input order.
func (p *Pipeline) process(ctx context.Context, recs []student.Record) ([]*student.Evaluation, error) {
	results := make([]*student.Evaluation, len(recs))
	errs := make([]error, len(recs))

	var g errgroup.Group
	g.SetLimit(p.cfg.Workers)
	for i := range recs {
		g.Go(func() error {
			results[i], errs[i] = p.ProcessStudent(ctx, recs[i])
			return nil
		})
	}
	_ = g.Wait()

	evaluated := make([]*student.Evaluation, 0, len(recs))
	for _, e := range results {
		if e != nil {
			evaluated = append(evaluated, e)
		}
	}
	return evaluated, errors.Join(errs...)
}

// FilterByQuery narrows evaluated to the configured criteria and then to the
// students the question is about. Input order is kept. A broken filter
// configuration leaves the cohort unfiltered.
func (p *Pipeline) FilterByQuery(ctx context.Context, query string, evaluated []*student.Evaluation) []*student.Evaluation {
	steps := p.Filters(query)

	out, err := filtering.Run(ctx, filtering.Deps{Logger: p.logger, Metrics: p.metrics}, steps, evaluated)
	if err != nil {
		p.logger.Error("filtering failed, keeping every student", zap.Error(err))
		return append([]*student.Evaluation(nil), evaluated...)
	}
	return out
}

// Filters returns the ordered filter steps for query with the configured
// disables applied.
func (p *Pipeline) Filters(query string) []filtering.Filter {
	steps := []filtering.Filter{
		filtering.NewCriteria(p.cfg.Criteria),
		filtering.NewQuery(p.query, query),
	}
	for _, name := range p.cfg.DisabledFilters {
		filtering.DisableByName(steps, strings.TrimSpace(name), "disabled by configuration")
	}
	return steps
}

// AnswerQuery writes a natural language answer grounded on subset.
func (p *Pipeline) AnswerQuery(ctx context.Context, subset []*student.Evaluation, query string) string {
	return p.responder.Respond(ctx, subset, query)
}

// Load replaces the index with the valid records of recs.
func (p *Pipeline) Load(ctx context.Context, recs []student.Record) error {
	if p.index == nil {
		return ErrNoIndex
	}

	valid := make([]student.Record, 0, len(recs))
	var errs []error
	for _, rec := range recs {
		if err := rec.Validate(); err != nil {
			p.metrics.ValidationFailure()
			errs = append(errs, err)
			continue
		}
		valid = append(valid, rec)
	}

	if err := p.index.UpsertAll(ctx, valid); err != nil {
		return fmt.Errorf("load index: %w", err)
	}
	return errors.Join(errs...)
}

// EvaluateIndexed ranks every student currently in the index.
func (p *Pipeline) EvaluateIndexed(ctx context.Context) ([]*student.Evaluation, error) {
	if p.index == nil {
		return nil, ErrNoIndex
	}
	return p.ProcessAll(ctx, p.index.GetAll(ctx))
}

// Search evaluates the k students most similar to query, in relevance order.
func (p *Pipeline) Search(ctx context.Context, query string, k int) ([]*student.Evaluation, error) {
	if p.index == nil {
		return nil, ErrNoIndex
	}
	if k <= 0 {
		k = p.cfg.SearchResults
	}
	return p.process(ctx, p.index.Records(p.index.SimilaritySearch(ctx, query, k)))
}

// Lookup evaluates the student stored under name.
func (p *Pipeline) Lookup(ctx context.Context, name string) (*student.Evaluation, error) {
	if p.index == nil {
		return nil, ErrNoIndex
	}
	rec, ok := p.index.GetByName(ctx, strings.TrimSpace(name))
	if !ok {
		return nil, fmt.Errorf("%q: %w", name, ErrStudentNotFound)
	}
	return p.ProcessStudent(ctx, rec)
}
