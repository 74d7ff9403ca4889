// Package embeddings maps text to fixed-length vectors via a hosted
// embedding model.
package embeddings

import (
	"context"
	"strings"

	"github.com/devkaluri/rag-chat/config"
	"github.com/devkaluri/rag-chat/errs"
)

// Embedder produces one vector per input text, preserving input order.
// For a fixed model version the output is deterministic. Empty or
// whitespace-only inputs are rejected with errs.ErrInvalidInput rather
// than embedded as a sentinel vector.
type Embedder interface {
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

type Options struct {
	Provider  string
	Model     string
	Dimension int

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string
}

func NewEmbedder(cfg config.Config) (Embedder, error) {
	opts := Options{
		Provider:      cfg.Embeddings.Provider,
		Model:         cfg.Embeddings.Model,
		Dimension:     cfg.Embeddings.Dimension,
		OllamaHost:    cfg.OllamaHost,
		OpenAIAPIKey:  cfg.OpenAIAPIKey,
		OpenAIBaseURL: cfg.OpenAIBaseURL,
	}

	switch opts.Provider {
	case config.ProviderOllama:
		return NewOllamaEmbedder(opts), nil
	case config.ProviderOpenAI:
		if opts.OpenAIAPIKey == "" {
			return nil, errs.Configf("openai provider selected but OPENAI_API_KEY not set")
		}
		return NewOpenAIEmbedder(opts), nil
	default:
		return nil, errs.Configf("unknown embedding provider: %s", opts.Provider)
	}
}

func validateTexts(texts []string) error {
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return errs.InvalidInputf("text %d is empty", i)
		}
	}
	return nil
}
