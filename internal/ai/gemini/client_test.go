package gemini

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

type fakeResponse struct {
	resp *genai.GenerateContentResponse
	err  error
}

type fakeModels struct {
	mu      sync.Mutex
	queue   []fakeResponse
	prompts []string
	models  []string
	configs []*genai.GenerateContentConfig
}

func (f *fakeModels) enqueue(resp *genai.GenerateContentResponse, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queue = append(f.queue, fakeResponse{resp: resp, err: err})
}

func (f *fakeModels) GenerateContent(_ context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.queue) == 0 {
		return nil, errors.New("unexpected call")
	}
	res := f.queue[0]
	f.queue = f.queue[1:]

	f.models = append(f.models, model)
	f.configs = append(f.configs, config)
	for _, c := range contents {
		for _, p := range c.Parts {
			f.prompts = append(f.prompts, p.Text)
		}
	}
	return res.resp, res.err
}

func (f *fakeModels) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.models)
}

func textResponse(parts ...string) *genai.GenerateContentResponse {
	content := &genai.Content{}
	for _, p := range parts {
		content.Parts = append(content.Parts, &genai.Part{Text: p})
	}
	return &genai.GenerateContentResponse{Candidates: []*genai.Candidate{{Content: content}}}
}

func noWait(t *testing.T) *[]time.Duration {
	t.Helper()
	var delays []time.Duration
	original := wait
	wait = func(_ context.Context, d time.Duration) error {
		delays = append(delays, d)
		return nil
	}
	t.Cleanup(func() { wait = original })
	return &delays
}

func TestGeneratorCompleteJoinsParts(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("  SCORE: 80 ", "", "REASONING: fine"), nil)

	g := newGenerator(models, Config{Model: "gemini-test"}, zap.NewNop())

	output, err := g.Complete(context.Background(), "  evaluate  ")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if output != "SCORE: 80\nREASONING: fine" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.models[0] != "gemini-test" {
		t.Fatalf("unexpected model: %q", models.models[0])
	}
	if models.prompts[0] != "evaluate" {
		t.Fatalf("expected trimmed prompt, got %q", models.prompts[0])
	}
	if cfg := models.configs[0]; cfg == nil || cfg.Temperature == nil || *cfg.Temperature != defaultTemperature {
		t.Fatalf("expected default temperature in config")
	}
}

func TestGeneratorEmptyResponseIsError(t *testing.T) {
	models := &fakeModels{}
	models.enqueue(textResponse("   "), nil)

	g := newGenerator(models, Config{MaxRetries: 1}, zap.NewNop())
	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Fatalf("expected error for empty response")
	}
}

func TestGeneratorRejectsEmptyPrompt(t *testing.T) {
	g := newGenerator(&fakeModels{}, Config{}, zap.NewNop())
	if _, err := g.Complete(context.Background(), "   "); err == nil {
		t.Fatalf("expected error for empty prompt")
	}
}

func TestGeneratorRetriesOnTemporaryError(t *testing.T) {
	delays := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError, Status: "INTERNAL"})
	models.enqueue(textResponse("retry ok"), nil)

	g := newGenerator(models, Config{MaxRetries: 2}, zap.NewNop())

	output, err := g.Complete(context.Background(), "prompt")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if output != "retry ok" {
		t.Fatalf("unexpected output: %q", output)
	}
	if models.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls())
	}
	if len(*delays) != 1 || (*delays)[0] != baseBackoff {
		t.Fatalf("unexpected backoff delays: %v", *delays)
	}
}

func TestGeneratorStopsAfterRetriesExhausted(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	tempErr := genai.APIError{Code: http.StatusServiceUnavailable, Status: "UNAVAILABLE"}
	models.enqueue(nil, tempErr)
	models.enqueue(nil, tempErr)

	g := newGenerator(models, Config{MaxRetries: 2}, zap.NewNop())

	_, err := g.Complete(context.Background(), "prompt")
	if err == nil {
		t.Fatal("expected error after retries exhausted")
	}

	var apiErr genai.APIError
	if !errors.As(err, &apiErr) || apiErr.Code != http.StatusServiceUnavailable {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
	if models.calls() != 2 {
		t.Fatalf("expected 2 calls, got %d", models.calls())
	}
}

func TestGeneratorDoesNotRetryClientErrors(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusBadRequest, Status: "INVALID_ARGUMENT"})

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())
	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error")
	}
	if models.calls() != 1 {
		t.Fatalf("expected single call, got %d", models.calls())
	}
}

func TestGeneratorDoesNotRetryOnLongQuotaDelay(t *testing.T) {
	noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "quota exhausted, retry after 60 seconds",
	})

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())
	if _, err := g.Complete(context.Background(), "prompt"); err == nil {
		t.Fatal("expected error when quota delay too long")
	}
	if models.calls() != 1 {
		t.Fatalf("expected single call, got %d", models.calls())
	}
}

func TestGeneratorHonoursShortQuotaDelay(t *testing.T) {
	delays := noWait(t)

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{
		Code:    http.StatusTooManyRequests,
		Status:  "RESOURCE_EXHAUSTED",
		Message: "Please retry in 5.5s.",
	})
	models.enqueue(textResponse("ok"), nil)

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())
	if _, err := g.Complete(context.Background(), "prompt"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(*delays) != 1 || (*delays)[0] != 5500*time.Millisecond {
		t.Fatalf("unexpected delays: %v", *delays)
	}
}

func TestGeneratorStopsWhenContextCanceledDuringBackoff(t *testing.T) {
	original := wait
	wait = func(ctx context.Context, _ time.Duration) error { return context.Canceled }
	t.Cleanup(func() { wait = original })

	models := &fakeModels{}
	models.enqueue(nil, genai.APIError{Code: http.StatusInternalServerError})

	g := newGenerator(models, Config{MaxRetries: 3}, zap.NewNop())
	_, err := g.Complete(context.Background(), "prompt")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestGeneratorDescribesItself(t *testing.T) {
	g := newGenerator(&fakeModels{}, Config{}, nil)
	if g.Provider() != Provider || g.Model() != defaultModel {
		t.Fatalf("unexpected description: %s %s", g.Provider(), g.Model())
	}
}
