package embeddings

import (
	"context"
	"testing"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/devkaluri/rag-chat/backoff"
	"github.com/devkaluri/rag-chat/config"
	"github.com/devkaluri/rag-chat/errs"
)

func TestNewEmbedderUnknownProvider(t *testing.T) {
	cfg := config.Config{Embeddings: config.EmbeddingConfig{Provider: "cohere"}}
	if _, err := NewEmbedder(cfg); !errs.IsConfig(err) {
		t.Fatalf("expected config error for unknown provider, got %v", err)
	}
}

func TestNewEmbedderOpenAIRequiresKey(t *testing.T) {
	cfg := config.Config{Embeddings: config.EmbeddingConfig{Provider: config.ProviderOpenAI, Model: "text-embedding-3-small"}}
	if _, err := NewEmbedder(cfg); !errs.IsConfig(err) {
		t.Fatalf("expected config error without OPENAI_API_KEY, got %v", err)
	}

	cfg.OpenAIAPIKey = "sk-test"
	if _, err := NewEmbedder(cfg); err != nil {
		t.Fatalf("unexpected error with key set: %v", err)
	}
}

func TestNewEmbedderOllama(t *testing.T) {
	cfg := config.Config{
		Embeddings: config.EmbeddingConfig{Provider: config.ProviderOllama, Model: "nomic-embed-text"},
		OllamaHost: "http://localhost:11434",
	}
	if _, err := NewEmbedder(cfg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateTexts(t *testing.T) {
	if err := validateTexts([]string{"fine", "also fine"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := validateTexts([]string{"fine", ""}); !errs.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for empty text, got %v", err)
	}
	if err := validateTexts([]string{"  \n\t "}); !errs.IsInvalidInput(err) {
		t.Fatalf("expected invalid input for whitespace-only text, got %v", err)
	}
	if err := validateTexts(nil); err != nil {
		t.Fatalf("no texts should validate, got %v", err)
	}
}

type flakyEmbedder struct {
	calls   int
	failFor int
	err     error
}

func (f *flakyEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	if f.calls <= f.failFor {
		return nil, f.err
	}
	vectors := make([][]float32, len(texts))
	for i := range vectors {
		vectors[i] = []float32{1}
	}
	return vectors, nil
}

var _ Embedder = (*flakyEmbedder)(nil)

func TestResilientRetriesTransientFailures(t *testing.T) {
	inner := &flakyEmbedder{failFor: 2, err: &errs.StatusError{Code: 503}}
	embedder := &resilient{
		inner:  inner,
		sem:    semaphore.NewWeighted(4),
		policy: backoff.Policy{Attempts: 3, Base: time.Millisecond, Max: 2 * time.Millisecond},
	}

	vectors, err := embedder.Embed(context.Background(), []string{"some text"})
	if err != nil {
		t.Fatalf("expected recovery after retries: %v", err)
	}
	if len(vectors) != 1 {
		t.Fatalf("expected 1 vector, got %d", len(vectors))
	}
	if inner.calls != 3 {
		t.Fatalf("expected 3 calls, got %d", inner.calls)
	}
}

func TestResilientDoesNotRetryInvalidInput(t *testing.T) {
	inner := &flakyEmbedder{failFor: 10, err: errs.InvalidInputf("text 0 is empty")}
	embedder := &resilient{
		inner:  inner,
		sem:    semaphore.NewWeighted(4),
		policy: backoff.Policy{Attempts: 5, Base: time.Millisecond},
	}

	if _, err := embedder.Embed(context.Background(), []string{""}); !errs.IsInvalidInput(err) {
		t.Fatalf("expected invalid input error, got %v", err)
	}
	if inner.calls != 1 {
		t.Fatalf("invalid input must not be retried, got %d calls", inner.calls)
	}
}
