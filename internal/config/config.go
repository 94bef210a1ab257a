// Package config loads all environment variables for the shariah-qa service.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all configuration for the question-answering service.
type Config struct {
	// Server
	APIHost string
	APIPort string

	// Vector store backend: "qdrant" or "pgvector"
	VectorBackend string
	QdrantURL     string
	QdrantAPIKey  string
	DatabaseURL   string

	// Collections configured at deploy time; used as the fallback when the
	// store's collection listing is unavailable.
	Collections []string

	// Retrieval tuning
	InitialRetrievalCount int
	FinalRetrievalCount   int
	MinSimilarityScore    float64
	DiversityWeight       float64

	// Context budget in characters, not tokens.
	MaxContextLength int

	// Embedder
	EmbedProvider    string // "sidecar" or "openai"
	EmbedEndpoint    string
	OpenAIEmbedModel string

	// LLM
	LLMProvider  string // "ollama" or "openai"
	OllamaURL    string
	OllamaModel  string
	OpenAIAPIKey string
	OpenAIModel  string
	LLMMaxTokens int
	LLMTimeoutMS int

	// Timeouts
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Load reads configuration from environment variables with sensible defaults.
func Load() (*Config, error) {
	cfg := &Config{
		APIHost: envOr("API_HOST", "0.0.0.0"),
		APIPort: envOr("API_PORT", "8000"),

		VectorBackend: envOr("VECTOR_BACKEND", "qdrant"),
		QdrantURL:     envOr("QDRANT_URL", "http://localhost:6334"),
		QdrantAPIKey:  os.Getenv("QDRANT_API_KEY"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),

		Collections: envList("COLLECTIONS", []string{"bnm_pdfs", "iifa_resolutions", "sc_resolutions"}),

		InitialRetrievalCount: envInt("INITIAL_RETRIEVAL_COUNT", 20),
		FinalRetrievalCount:   envInt("FINAL_RETRIEVAL_COUNT", 5),
		MinSimilarityScore:    envFloat("MIN_SIMILARITY_SCORE", 0.5),
		DiversityWeight:       envFloat("DIVERSITY_WEIGHT", 0.7),

		MaxContextLength: envInt("MAX_CONTEXT_LENGTH", 4000),

		EmbedProvider:    envOr("EMBED_PROVIDER", "sidecar"),
		EmbedEndpoint:    envOr("EMBED_ENDPOINT", "http://embed:8001/embed"),
		OpenAIEmbedModel: envOr("OPENAI_EMBED_MODEL", "text-embedding-3-small"),

		LLMProvider:  envOr("LLM_PROVIDER", "ollama"),
		OllamaURL:    envOr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:  envOr("OLLAMA_MODEL", "phi4:14b"),
		OpenAIAPIKey: os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:  envOr("OPENAI_MODEL", "gpt-4o-mini"),
		LLMMaxTokens: envInt("LLM_MAX_TOKENS", 1024),
		LLMTimeoutMS: envInt("LLM_TIMEOUT_MS", 60000),

		ReadTimeout:  10 * time.Second,
		WriteTimeout: 120 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	switch cfg.VectorBackend {
	case "qdrant":
		if cfg.QdrantURL == "" {
			return nil, fmt.Errorf("QDRANT_URL is required for the qdrant backend")
		}
	case "pgvector":
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required for the pgvector backend")
		}
	default:
		return nil, fmt.Errorf("unknown VECTOR_BACKEND %q", cfg.VectorBackend)
	}

	if cfg.FinalRetrievalCount <= 0 {
		return nil, fmt.Errorf("FINAL_RETRIEVAL_COUNT must be positive, got %d", cfg.FinalRetrievalCount)
	}
	if cfg.InitialRetrievalCount <= cfg.FinalRetrievalCount {
		return nil, fmt.Errorf("INITIAL_RETRIEVAL_COUNT (%d) must exceed FINAL_RETRIEVAL_COUNT (%d)",
			cfg.InitialRetrievalCount, cfg.FinalRetrievalCount)
	}
	if cfg.DiversityWeight < 0 || cfg.DiversityWeight > 1 {
		return nil, fmt.Errorf("DIVERSITY_WEIGHT must be in [0,1], got %g", cfg.DiversityWeight)
	}
	if cfg.MaxContextLength <= 0 {
		return nil, fmt.Errorf("MAX_CONTEXT_LENGTH must be positive, got %d", cfg.MaxContextLength)
	}

	return cfg, nil
}

// Addr returns the listen address as "host:port".
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%s", c.APIHost, c.APIPort)
}

// LLMTimeout returns the LLM call timeout as a time.Duration.
func (c *Config) LLMTimeout() time.Duration {
	return time.Duration(c.LLMTimeoutMS) * time.Millisecond
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func envFloat(key string, fallback float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return fallback
	}
	return f
}

func envList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
