// Package config loads runtime configuration from environment variables,
// with a .env file picked up when present.
package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/devkaluri/rag-chat/errs"
)

const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"

	BackendPostgres = "postgres"
	BackendMemory   = "memory"
)

type LLMConfig struct {
	Provider string
	Model    string
}

type EmbeddingConfig struct {
	Provider  string
	Model     string
	Dimension int
}

type Config struct {
	LLM        LLMConfig
	Embeddings EmbeddingConfig

	OllamaHost    string
	OpenAIAPIKey  string
	OpenAIBaseURL string

	IndexBackend string
	PostgresDSN  string

	DataDir      string
	ChunkSize    int
	ChunkOverlap int

	TopK           int
	HistoryLimit   int
	MaxPromptChars int
	Reformulate    bool

	MaxConcurrentCalls int
	CallTimeout        time.Duration
	MaxAttempts        int

	HTTPAddr string
}

func Load() Config {
	_ = godotenv.Load()

	return Config{
		LLM: LLMConfig{
			Provider: getEnv("LLM_PROVIDER", ProviderOpenAI),
			Model:    getEnv("LLM_MODEL", "gpt-4o-mini"),
		},
		Embeddings: EmbeddingConfig{
			Provider:  getEnv("EMBEDDINGS_PROVIDER", ProviderOpenAI),
			Model:     getEnv("EMBEDDINGS_MODEL", "text-embedding-3-small"),
			Dimension: getEnvInt("EMBEDDINGS_DIMENSION", 1536),
		},
		OllamaHost:    getEnv("OLLAMA_HOST", "http://localhost:11434"),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),

		IndexBackend: getEnv("INDEX_BACKEND", BackendPostgres),
		PostgresDSN:  getEnv("POSTGRES_DSN", "postgres://localhost:5432/rag-chat?sslmode=disable"),

		DataDir:      getEnv("DATA_DIR", "data_sources"),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 300),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 100),

		TopK:           getEnvInt("TOP_K", 4),
		HistoryLimit:   getEnvInt("HISTORY_LIMIT", 10),
		MaxPromptChars: getEnvInt("MAX_PROMPT_CHARS", 12000),
		Reformulate:    getEnvBool("REFORMULATE_QUESTIONS", true),

		MaxConcurrentCalls: getEnvInt("MAX_CONCURRENT_CALLS", 4),
		CallTimeout:        time.Duration(getEnvInt("CALL_TIMEOUT_SECONDS", 60)) * time.Second,
		MaxAttempts:        getEnvInt("MAX_ATTEMPTS", 3),

		HTTPAddr: httpAddr(),
	}
}

// Validate fails fast on configuration the pipeline cannot run with.
func (c Config) Validate() error {
	if c.ChunkSize <= 0 {
		return errs.Configf("chunk size must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 {
		return errs.Configf("chunk overlap must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkSize {
		return errs.Configf("chunk overlap %d must be smaller than chunk size %d", c.ChunkOverlap, c.ChunkSize)
	}
	if c.Embeddings.Dimension <= 0 {
		return errs.Configf("embedding dimension must be positive, got %d", c.Embeddings.Dimension)
	}
	if c.TopK <= 0 {
		return errs.Configf("top-k must be positive, got %d", c.TopK)
	}
	if c.HistoryLimit <= 0 {
		return errs.Configf("history limit must be positive, got %d", c.HistoryLimit)
	}
	switch c.IndexBackend {
	case BackendPostgres, BackendMemory:
	default:
		return errs.Configf("unknown index backend: %s", c.IndexBackend)
	}
	switch c.LLM.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return errs.Configf("unknown llm provider: %s", c.LLM.Provider)
	}
	switch c.Embeddings.Provider {
	case ProviderOllama, ProviderOpenAI:
	default:
		return errs.Configf("unknown embedding provider: %s", c.Embeddings.Provider)
	}
	return nil
}

// httpAddr prefers HTTP_ADDR, falling back to the PORT variable used by
// deployment platforms.
func httpAddr() string {
	if addr := getEnv("HTTP_ADDR", ""); addr != "" {
		return addr
	}
	return ":" + getEnv("PORT", "8057")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
