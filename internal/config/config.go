// Package config reads service settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Vector store backends.
const (
	StoreQdrant = "qdrant"
	StoreMemory = "memory"
)

// Embedding providers. Auto picks OpenAI when an API key is set.
const (
	EmbedderAuto   = "auto"
	EmbedderOpenAI = "openai"
	EmbedderHash   = "hash"
)

// Config holds every setting of the server and CLI.
type Config struct {
	// HTTP
	Port               string
	ServerMode         bool
	CORSAllowedOrigins string
	MaxUploadMB        int

	// Vector store
	VectorStore  string
	QdrantHost   string
	QdrantPort   int
	QdrantAPIKey string

	// Embeddings
	EmbeddingProvider  string
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	EmbeddingModel     string
	EmbeddingDimension int
	EmbeddingBatchSize int

	// Answer generation
	LLMAPIKey  string
	LLMBaseURL string
	LLMModel   string
	LLMTimeout time.Duration

	// Pipeline
	UploadDir    string
	PDFTool      string
	ChunkSize    int
	ChunkOverlap int
	TopK         int
	MinScore     float64

	GitHubToken   string
	GitHubBaseURL string
	LogLevel      slog.Level
}

// LoadDotEnv loads .env from the working directory if present.
// Returns false when no file was loaded.
func LoadDotEnv() bool {
	return godotenv.Load() == nil
}

// Load reads the configuration from the environment and validates it.
func Load() (*Config, error) {
	cfg := &Config{
		Port:               getEnv("PORT", "8080"),
		ServerMode:         getEnvBool("SERVER_MODE", true),
		CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "*"),
		MaxUploadMB:        getEnvInt("MAX_UPLOAD_MB", 50),

		VectorStore:  strings.ToLower(getEnv("VECTOR_STORE", StoreQdrant)),
		QdrantHost:   getEnv("QDRANT_HOST", "localhost"),
		QdrantPort:   getEnvInt("QDRANT_PORT", 6334),
		QdrantAPIKey: os.Getenv("QDRANT_API_KEY"),

		EmbeddingProvider:  strings.ToLower(getEnv("EMBEDDING_PROVIDER", EmbedderAuto)),
		OpenAIAPIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:      os.Getenv("OPENAI_BASE_URL"),
		EmbeddingModel:     getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		EmbeddingDimension: getEnvInt("EMBEDDING_DIMENSION", 1536),
		EmbeddingBatchSize: getEnvInt("EMBEDDING_BATCH_SIZE", 500),

		LLMModel:   getEnv("LLM_MODEL", "gpt-4o-mini"),
		LLMTimeout: getEnvDuration("LLM_TIMEOUT", 60*time.Second),

		UploadDir:    getEnv("UPLOAD_DIR", "./uploads"),
		PDFTool:      getEnv("PDFTOTEXT_PATH", "pdftotext"),
		ChunkSize:    getEnvInt("CHUNK_SIZE", 2000),
		ChunkOverlap: getEnvInt("CHUNK_OVERLAP", 400),
		TopK:         getEnvInt("TOP_K", 8),
		MinScore:     getEnvFloat("MIN_SCORE", 0),

		GitHubToken:   os.Getenv("GITHUB_TOKEN"),
		GitHubBaseURL: os.Getenv("GITHUB_API_URL"),
		LogLevel:      parseLevel(getEnv("LOG_LEVEL", "info")),
	}

	// The generator shares the OpenAI credentials unless given its own
	cfg.LLMAPIKey = getEnv("LLM_API_KEY", cfg.OpenAIAPIKey)
	cfg.LLMBaseURL = getEnv("LLM_BASE_URL", cfg.OpenAIBaseURL)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks for settings that cannot work together.
func (c *Config) Validate() error {
	switch c.VectorStore {
	case StoreQdrant, StoreMemory:
	default:
		return fmt.Errorf("VECTOR_STORE must be %q or %q, got %q", StoreQdrant, StoreMemory, c.VectorStore)
	}

	switch c.EmbeddingProvider {
	case EmbedderAuto, EmbedderHash:
	case EmbedderOpenAI:
		if c.OpenAIAPIKey == "" {
			return fmt.Errorf("EMBEDDING_PROVIDER=openai requires OPENAI_API_KEY")
		}
	default:
		return fmt.Errorf("EMBEDDING_PROVIDER must be auto, openai or hash, got %q", c.EmbeddingProvider)
	}

	if c.ChunkSize <= 0 {
		return fmt.Errorf("CHUNK_SIZE must be positive, got %d", c.ChunkSize)
	}
	if c.ChunkOverlap < 0 || c.ChunkOverlap >= c.ChunkSize {
		return fmt.Errorf("CHUNK_OVERLAP must be in [0, CHUNK_SIZE), got %d", c.ChunkOverlap)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("TOP_K must be positive, got %d", c.TopK)
	}
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("MIN_SCORE must be in [0, 1], got %g", c.MinScore)
	}
	if c.MaxUploadMB <= 0 {
		return fmt.Errorf("MAX_UPLOAD_MB must be positive, got %d", c.MaxUploadMB)
	}
	return nil
}

// UseOpenAIEmbeddings reports whether embeddings come from the OpenAI API.
func (c *Config) UseOpenAIEmbeddings() bool {
	switch c.EmbeddingProvider {
	case EmbedderOpenAI:
		return true
	case EmbedderAuto:
		return c.OpenAIAPIKey != ""
	}
	return false
}

// LLMConfigured reports whether answer generation is available.
func (c *Config) LLMConfigured() bool {
	return c.LLMAPIKey != ""
}

// MaxUploadBytes returns the upload limit in bytes.
func (c *Config) MaxUploadBytes() int64 {
	return int64(c.MaxUploadMB) << 20
}

// AllowedOrigins splits CORSAllowedOrigins into trimmed entries.
func (c *Config) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSAllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return defaultValue
}

// getEnvDuration accepts Go durations ("90s") or plain seconds ("90").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	return defaultValue
}

func parseLevel(s string) slog.Level {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return slog.LevelInfo
	}
	return level
}
