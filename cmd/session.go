package cmd

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/ai/gemini"
	"github.com/spigell/placement-readiness/internal/embedding"
	"github.com/spigell/placement-readiness/internal/embedding/tfidf"
	"github.com/spigell/placement-readiness/internal/filtering"
	"github.com/spigell/placement-readiness/internal/ingest"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/metrics"
	"github.com/spigell/placement-readiness/internal/pipeline"
	"github.com/spigell/placement-readiness/internal/retrieval"
	"github.com/spigell/placement-readiness/internal/retrieval/memory"
	"github.com/spigell/placement-readiness/internal/retrieval/sqlite"
	"github.com/spigell/placement-readiness/internal/secrets"
	"github.com/spigell/placement-readiness/internal/student"
)

// session is everything a command needs, built once from config and flags.
type session struct {
	config   *Config
	logger   *zap.Logger
	metrics  *metrics.Manager
	index    *retrieval.Index
	pipeline *pipeline.Pipeline

	closers []func() error
}

func newSession(ctx context.Context, cmd *cobra.Command) (*session, error) {
	log, err := logger.New(viper.GetBool("json"), viper.GetBool("debug"))
	if err != nil {
		return nil, fmt.Errorf("creating a logger: %w", err)
	}

	config, err := getConfig()
	if err != nil {
		return nil, fmt.Errorf("getting a config: %w", err)
	}
	if err := applyFilterFlags(cmd, config); err != nil {
		return nil, err
	}

	log.Info("starting the placement-readiness", zap.String("version", version), zap.String("command", cmd.Name()))

	s := &session{config: config, logger: log, metrics: metrics.NewManager(metrics.WithHistogramBuckets(config.MetricsBuckets))}

	if addr := strings.TrimSpace(config.MetricsAddr); addr != "" {
		go func() {
			if err := s.metrics.Serve(ctx, addr, log); err != nil {
				log.Error("metrics server failed", zap.Error(err))
			}
		}()
	}

	client := s.genaiClient(ctx)

	completer, err := s.completer(client)
	if err != nil {
		return nil, err
	}

	store, err := s.store(client)
	if err != nil {
		return nil, err
	}
	s.index = retrieval.NewIndex(store, log, s.metrics)

	s.pipeline, err = pipeline.New(config.Pipeline, pipeline.Deps{
		Completer: completer,
		Index:     s.index,
		Logger:    log,
		Metrics:   s.metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("building pipeline: %w", err)
	}

	provider, model := ai.Describe(completer)
	log.Info("pipeline ready",
		zap.String("run_id", s.pipeline.RunID()),
		zap.String("index", store.Name()),
		zap.Int("workers", config.Pipeline.Workers),
		zap.String(logger.FieldProvider, provider),
		zap.String(logger.FieldModel, model),
	)
	return s, nil
}

func (s *session) Close() {
	for _, closer := range s.closers {
		if err := closer(); err != nil {
			s.logger.Warn("closing resources", zap.Error(err))
		}
	}
	_ = s.logger.Sync()
}

// genaiClient returns nil when generative features are off or no key is
// configured, which puts every agent on its deterministic path.
func (s *session) genaiClient(ctx context.Context) *genai.Client {
	cfg := s.config.AI
	if s.config.Offline || !cfg.Enabled {
		s.logger.Info("generative backend disabled, using deterministic scoring")
		return nil
	}

	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))
	if provider != "" && provider != gemini.Provider {
		s.logger.Warn("unsupported ai provider, using deterministic scoring", zap.String("provider", cfg.Provider))
		return nil
	}

	apiKey, err := secrets.Load(secrets.Source{
		Name:  "gemini api key",
		Value: cfg.Gemini.APIKey,
		File:  cfg.Gemini.APIKeyFile,
		Env:   []string{"GOOGLE_API_KEY"},
	})
	if err != nil {
		level := s.logger.Error
		if errors.Is(err, secrets.ErrNotConfigured) {
			level = s.logger.Warn
		}
		level("gemini api key unavailable, using deterministic scoring",
			zap.Error(err),
			zap.String("hint", "set GEMINI_API_KEY, GEMINI_API_KEY_FILE or ai.gemini.api-key-file"),
		)
		return nil
	}

	client, err := gemini.NewClient(ctx, apiKey)
	if err != nil {
		s.logger.Error("creating gemini client, using deterministic scoring", zap.Error(err))
		return nil
	}
	return client
}

func (s *session) completer(client *genai.Client) (ai.Completer, error) {
	if client == nil {
		return ai.Offline{}, nil
	}

	g := s.config.AI.Gemini
	generator, err := gemini.NewGenerator(client, gemini.Config{
		Model:       g.Model,
		Timeout:     g.Timeout,
		MaxRetries:  g.MaxRetries,
		Temperature: g.Temperature,
		MaxLogLen:   g.MaxLogLength,
	}, s.logger)
	if err != nil {
		return nil, fmt.Errorf("building gemini generator: %w", err)
	}
	return generator, nil
}

func (s *session) store(client *genai.Client) (retrieval.Store, error) {
	cfg := s.config.Store

	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", "memory":
		return memory.New(s.embedder(client)), nil
	case "sqlite":
		store, err := sqlite.New(cfg.Path)
		if err != nil {
			return nil, err
		}
		s.closers = append(s.closers, store.Close)
		return store, nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", cfg.Backend)
	}
}

func (s *session) embedder(client *genai.Client) embedding.Embedder {
	name := strings.ToLower(strings.TrimSpace(s.config.Store.Embedder))
	if name != gemini.Provider {
		return tfidf.New()
	}
	if client == nil {
		s.logger.Warn("gemini embeddings need the generative backend, falling back to tfidf")
		return tfidf.New()
	}

	embedder, err := gemini.NewEmbedder(client, s.config.AI.Gemini.EmbeddingModel)
	if err != nil {
		s.logger.Warn("building gemini embedder, falling back to tfidf", zap.Error(err))
		return tfidf.New()
	}
	return embedder
}

// loadAndEvaluate ingests path into the index and ranks everyone in it.
// Invalid rows are reported and skipped.
func (s *session) loadAndEvaluate(ctx context.Context, path string) ([]*student.Evaluation, error) {
	reader := ingest.Reader{Extractor: ingest.PlainText{}, Logger: s.logger}
	recs, err := reader.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading students: %w", err)
	}
	s.logger.Info("students read", zap.String("input", path), zap.Int("count", len(recs)))

	if err := s.pipeline.Load(ctx, recs); err != nil {
		if !isValidation(err) {
			return nil, err
		}
		s.logger.Warn("skipping invalid students", zap.Error(err))
	}

	evaluated, err := s.pipeline.EvaluateIndexed(ctx)
	if err != nil && !isValidation(err) {
		return nil, err
	}

	stats := s.index.Stats(ctx)
	s.logger.Info("index ready", zap.Int("documents", stats.Documents), zap.String("backend", stats.Backend))
	return evaluated, nil
}

func isValidation(err error) bool {
	return errors.Is(err, student.ErrMissingName) || errors.Is(err, student.ErrOutOfRange)
}

// applyFilterFlags merges --criteria, --min-*, --max-* and --no-query-filter
// into the configured filters. Per-bound flags win over --criteria.
func applyFilterFlags(cmd *cobra.Command, config *Config) error {
	if flag := cmd.Flags().Lookup("criteria"); flag != nil && flag.Changed {
		values, err := cmd.Flags().GetStringSlice("criteria")
		if err != nil {
			return fmt.Errorf("reading --criteria: %w", err)
		}
		for _, value := range values {
			field, r, err := parseCriterion(value)
			if err != nil {
				return fmt.Errorf("--criteria %q: %w", value, err)
			}
			if config.Pipeline.Criteria == nil {
				config.Pipeline.Criteria = filtering.Criteria{}
			}
			config.Pipeline.Criteria[field] = r
		}
	}

	if skip, _ := cmd.Flags().GetBool("no-query-filter"); skip {
		config.Pipeline.DisabledFilters = append(config.Pipeline.DisabledFilters, "query")
	}

	for _, field := range []string{filtering.FieldOverall, filtering.FieldAcademic, filtering.FieldCommunication} {
		for _, bound := range []string{"min", "max"} {
			flag := cmd.Flags().Lookup(bound + "-" + field)
			if flag == nil || !flag.Changed {
				continue
			}
			value, err := cmd.Flags().GetFloat64(flag.Name)
			if err != nil {
				return fmt.Errorf("reading --%s: %w", flag.Name, err)
			}

			if config.Pipeline.Criteria == nil {
				config.Pipeline.Criteria = filtering.Criteria{}
			}
			r := config.Pipeline.Criteria[field]
			if bound == "min" {
				r.Min = filtering.Bound(value)
			} else {
				r.Max = filtering.Bound(value)
			}
			config.Pipeline.Criteria[field] = r
		}
	}
	return nil
}

// parseCriterion reads "field=min:max". Either bound may be left empty.
func parseCriterion(value string) (string, filtering.Range, error) {
	name, bounds, ok := strings.Cut(value, "=")
	if !ok {
		return "", filtering.Range{}, errors.New("expected field=min:max")
	}
	field, err := filtering.ParseField(name)
	if err != nil {
		return "", filtering.Range{}, err
	}

	low, high, ok := strings.Cut(bounds, ":")
	if !ok {
		return "", filtering.Range{}, errors.New("expected min:max after =")
	}

	var r filtering.Range
	if r.Min, err = parseBound(low); err != nil {
		return "", filtering.Range{}, fmt.Errorf("min: %w", err)
	}
	if r.Max, err = parseBound(high); err != nil {
		return "", filtering.Range{}, fmt.Errorf("max: %w", err)
	}
	return field, r, nil
}

func parseBound(s string) (*float64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return filtering.Bound(v), nil
}
