// Package agents holds the evaluators that turn student records into scores,
// readiness figures, recommendations and answers. Every agent recovers from
// backend failures on its own and never returns an error.
package agents

import (
	"context"
	"strconv"
	"strings"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/spigell/placement-readiness/internal/ai"
	"github.com/spigell/placement-readiness/internal/logger"
	"github.com/spigell/placement-readiness/internal/metrics"
	"github.com/spigell/placement-readiness/internal/utils"
)

const defaultMaxLogLength = 200

// Options carries the ambient dependencies shared by all agents.
type Options struct {
	Logger       *zap.Logger
	Metrics      metrics.Recorder
	MaxLogLength int
}

type base struct {
	name      string
	completer ai.Completer
	logger    *zap.Logger
	metrics   metrics.Recorder
	maxLogLen int
}

func newBase(name string, completer ai.Completer, opts Options) base {
	if completer == nil {
		completer = ai.Offline{}
	}
	if opts.MaxLogLength <= 0 {
		opts.MaxLogLength = defaultMaxLogLength
	}
	provider, model := ai.Describe(completer)

	return base{
		name:      name,
		completer: completer,
		logger:    logger.WithAgentFields(opts.Logger, name, provider, model),
		metrics:   metrics.OrNop(opts.Metrics),
		maxLogLen: opts.MaxLogLength,
	}
}

// complete asks the backend and reports whether a usable answer came back.
// Failures are logged and counted here so callers only pick a fallback.
func (b *base) complete(ctx context.Context, subject, prompt string) (string, bool) {
	b.logger.Debug("generate request",
		logger.Student(subject),
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, b.maxLogLen)),
	)

	raw, err := b.completer.Complete(ctx, prompt)
	if err != nil {
		b.logger.Warn("generative backend failed, using fallback", logger.Student(subject), zap.Error(err))
		b.metrics.GenerativeFailure(b.name)
		return "", false
	}
	if strings.TrimSpace(raw) == "" {
		b.logger.Warn("generative backend returned empty output, using fallback", logger.Student(subject))
		b.metrics.GenerativeFailure(b.name)
		return "", false
	}

	b.logger.Debug("generate response",
		logger.Student(subject),
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, b.maxLogLen)),
	)
	return raw, true
}

func (b *base) fallback(subject, reason string) {
	b.logger.Info("deterministic fallback", logger.Student(subject), zap.String("reason", reason))
	b.metrics.Fallback(b.name)
}

// pct renders a percentage the shortest way that round-trips.
func pct(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
