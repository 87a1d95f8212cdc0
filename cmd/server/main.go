// Command server runs the orchestrator's HTTP surface: the streaming
// chat entry point plus its auxiliary read endpoints, wired to whichever
// checkpoint backend and provider the environment configures.
package main

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/kataras/golog"

	"github.com/agentcore/orchestrator/internal/asyncrunner"
	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/internal/conversation"
	"github.com/agentcore/orchestrator/internal/executor"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/retrieval"
	"github.com/agentcore/orchestrator/internal/session"
	"github.com/agentcore/orchestrator/internal/storebackend"
	"github.com/agentcore/orchestrator/internal/transport"
	"github.com/agentcore/orchestrator/log"
	"github.com/agentcore/orchestrator/tool"
)

func main() {
	cfg := config.Load()
	logger := newLogger(cfg)

	ctx := context.Background()

	convStore, err := conversation.New(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to conversation store: %v", err)
		os.Exit(1)
	}
	defer convStore.Close()
	if err := convStore.InitSchema(ctx); err != nil {
		logger.Error("failed to initialize conversation schema: %v", err)
		os.Exit(1)
	}

	checkpoints, err := storebackend.Open(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize checkpoint store: %v", err)
		os.Exit(1)
	}

	chatProvider, err := newProvider(ctx, cfg)
	if err != nil {
		logger.Error("failed to initialize provider: %v", err)
		os.Exit(1)
	}

	embedder := retrieval.NewOpenAICompatibleEmbedder(cfg.ProviderAPIKey, cfg.ProviderBaseURL, cfg.ProviderModelCode, cfg.EmbeddingDimension)
	retriever := retrieval.NewHybridRetriever(embedder, convStore, convStore)

	braveSearch, err := tool.NewBraveSearch(cfg.BraveAPIKey)
	if err != nil {
		logger.Warn("web search tool disabled: %v", err)
	}

	deps := executor.Deps{
		Provider:  chatProvider,
		Retriever: retriever,
		History:   convStore,
		Params: provider.Params{
			Temperature: cfg.Temperature,
			TopP:        cfg.TopP,
			TopK:        cfg.TopK,
			MaxTokens:   cfg.MaxTokens,
		},
		RAGTopK:                cfg.RAGTopK,
		RAGSimilarityThreshold: cfg.RAGSimilarityThreshold,
		MaxSearchWords:         cfg.MaxSearchWords,
		DeepSearchMaxRounds:    cfg.DeepSearchMaxRounds,
		MaxHistoryMessages:     cfg.MaxHistoryMessages,
		MaxHistoryTokens:       cfg.MaxHistoryTokens,
		ToolTimeout:            cfg.ProviderTimeout,
	}
	if braveSearch != nil {
		deps.WebSearch = braveSearch
		deps.Tools = executor.NewRegistry(executor.NewWebSearchTool(braveSearch))
	}

	exec, err := executor.New(deps, checkpoints)
	if err != nil {
		logger.Error("failed to compile graph: %v", err)
		os.Exit(1)
	}

	gate := session.New(session.Options{
		RedisAddr:   cfg.RedisAddr,
		RedisDB:     cfg.RedisDB,
		JWTSecret:   cfg.JWTSecret,
		JWTIssuer:   cfg.JWTIssuer,
		JWTExpire:   time.Duration(cfg.JWTExpireMinutes) * time.Minute,
		MaxLoginNum: cfg.MaxLoginNum,
	})

	asyncRunner := asyncrunner.New(asyncrunner.Options{Logger: logger})
	defer asyncRunner.Stop()

	handler := &transport.Handler{
		Conversations:  convStore,
		Sessions:       gate,
		Graph:          exec,
		Titler:         chatProvider,
		Async:          asyncRunner,
		Embedder:       embedder,
		MaxTitleLength: 20,
		Logger:         logger,
	}

	logger.Info("orchestrator listening on %s", cfg.HTTPAddr)
	if err := http.ListenAndServe(cfg.HTTPAddr, handler.NewMux()); err != nil {
		logger.Error("server exited: %v", err)
		os.Exit(1)
	}
}

func newLogger(cfg config.Config) log.Logger {
	if cfg.LogBackend == "golog" {
		l := log.NewGologLogger(golog.New())
		return l
	}
	level := log.LogLevelInfo
	switch cfg.LogLevel {
	case "debug":
		level = log.LogLevelDebug
	case "warn":
		level = log.LogLevelWarn
	case "error":
		level = log.LogLevelError
	}
	return log.NewDefaultLogger(level)
}

func newProvider(ctx context.Context, cfg config.Config) (provider.Provider, error) {
	switch cfg.ProviderKind {
	case "gemini":
		return provider.NewGemini(ctx, cfg.ProviderAPIKey, cfg.ProviderModelCode)
	case "openai-compatible":
		return provider.NewOpenAICompatible(cfg.ProviderAPIKey, cfg.ProviderBaseURL, cfg.ProviderModelCode)
	default:
		return provider.NewOpenAICompatible(cfg.ProviderAPIKey, cfg.ProviderBaseURL, cfg.ProviderModelCode)
	}
}
