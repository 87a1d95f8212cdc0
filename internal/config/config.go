// Package config loads the orchestrator's deployment configuration from
// environment variables, matching the knobs enumerated in spec.md §6.
package config

import (
	"os"
	"strconv"
	"time"
)

// Config is the process-wide, read-once configuration handle. It is
// loaded at startup and threaded through constructors; no component
// re-reads the environment after Load returns.
type Config struct {
	// HTTP server.
	HTTPAddr string

	// Relational store (Conversation Store + optional Postgres checkpoint backend).
	PostgresDSN string
	PoolMinConns int32
	PoolMaxConns int32
	PoolMaxIdleTime time.Duration

	// Checkpoint backend selection: "postgres", "sqlite", "redis", "memory".
	CheckpointBackend string
	SQLitePath        string

	// Redis (Session Gate + optional Redis checkpoint backend).
	RedisAddr string
	RedisDB   int

	// Session Gate.
	JWTSecret        string
	JWTIssuer        string
	JWTExpireMinutes int
	MaxLoginNum      int

	// Retrieval Layer.
	EmbeddingProvider   string // "local" | "openai-compatible"
	EmbeddingDimension  int
	RAGTopK             int
	RAGSimilarityThreshold float64
	DeepSearchMaxRounds int
	MaxSearchWords      int

	// Provider Adapter.
	ProviderKind     string // "openai-compatible" | "gemini" | "responses-bridge"
	ProviderAPIKey   string
	ProviderBaseURL  string
	ProviderModelCode string
	Temperature float64
	TopP        float64
	TopK        int
	MaxTokens   int
	ProviderTimeout time.Duration

	// History trimming.
	MaxHistoryMessages int
	MaxHistoryTokens   int

	// Web search tool.
	BraveAPIKey string

	// Logging.
	LogLevel   string
	LogBackend string // "default" | "golog"
}

func Load() Config {
	return Config{
		HTTPAddr: getenv("HTTP_ADDR", ":8080"),

		PostgresDSN:     getenv("DATABASE_URL", "postgres://localhost:5432/agentcore"),
		PoolMinConns:    int32(getenvInt("DB_POOL_MIN_CONNS", 2)),
		PoolMaxConns:    int32(getenvInt("DB_POOL_MAX_CONNS", 10)),
		PoolMaxIdleTime: getenvDuration("DB_POOL_MAX_IDLE", 5*time.Minute),

		CheckpointBackend: getenv("CHECKPOINT_BACKEND", "postgres"),
		SQLitePath:        getenv("SQLITE_PATH", "./orchestrator.db"),

		RedisAddr: getenv("REDIS_ADDR", "localhost:6379"),
		RedisDB:   getenvInt("REDIS_DB", 0),

		JWTSecret:        getenv("JWT_SECRET", ""),
		JWTIssuer:        getenv("JWT_ISSUER", "agentcore"),
		JWTExpireMinutes: getenvInt("JWT_EXPIRE_MINUTES", 120),
		MaxLoginNum:      getenvInt("MAX_LOGIN_NUM", 3),

		EmbeddingProvider:      getenv("EMBEDDING_PROVIDER", "openai-compatible"),
		EmbeddingDimension:     getenvInt("EMBEDDING_DIMENSION", 1536),
		RAGTopK:                getenvInt("RAG_TOP_K", 5),
		RAGSimilarityThreshold: getenvFloat("RAG_SIMILARITY_THRESHOLD", 0.2),
		DeepSearchMaxRounds:    getenvInt("DEEP_SEARCH_MAX_ROUNDS", 3),
		MaxSearchWords:         getenvInt("MAX_SEARCH_WORDS", 3),

		ProviderKind:      getenv("PROVIDER_KIND", "openai-compatible"),
		ProviderAPIKey:    getenv("PROVIDER_API_KEY", ""),
		ProviderBaseURL:   getenv("PROVIDER_BASE_URL", "https://api.deepseek.com/v1"),
		ProviderModelCode: getenv("PROVIDER_MODEL_CODE", "deepseek-chat"),
		Temperature:       getenvFloat("PROVIDER_TEMPERATURE", 0.7),
		TopP:              getenvFloat("PROVIDER_TOP_P", 1.0),
		TopK:              getenvInt("PROVIDER_TOP_K", 0),
		MaxTokens:         getenvInt("PROVIDER_MAX_TOKENS", 2048),
		ProviderTimeout:   getenvDuration("PROVIDER_TIMEOUT", 60*time.Second),

		MaxHistoryMessages: getenvInt("MAX_HISTORY_MESSAGES", 40),
		MaxHistoryTokens:   getenvInt("MAX_HISTORY_TOKENS", 8000),

		BraveAPIKey: getenv("BRAVE_API_KEY", ""),

		LogLevel:   getenv("LOG_LEVEL", "info"),
		LogBackend: getenv("LOG_BACKEND", "default"),
	}
}

func getenv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getenvFloat(key string, def float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
