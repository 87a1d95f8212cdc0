package executor

import (
	"context"
	"time"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/retrieval"
)

// HistoryLookup resolves message ids back to their stored content, used
// by context_retrieval to turn SemanticSearchHistory's embedding hits
// into readable text.
type HistoryLookup interface {
	MessagesByIDs(ctx context.Context, ids []string) (map[string]*model.Message, error)
}

// WebSearcher is the subset of tool.BraveSearch the search node drives
// directly (structured references, not the chatbot tool-call string form
// WebSearchTool wraps).
type WebSearcher interface {
	SearchStructured(ctx context.Context, query string, limit int) ([]model.Reference, error)
}

// Deps bundles everything the graph's node functions close over: the
// chat provider, the retrieval layer, history/search lookups, the
// chatbot's bound tools, and the tunables SPEC_FULL's retrieval and
// deep-search sections name.
type Deps struct {
	Provider  provider.Provider
	Retriever *retrieval.HybridRetriever
	History   HistoryLookup
	WebSearch WebSearcher
	Tools     *Registry

	SystemPrompt string
	Params       provider.Params

	RAGTopK                int
	RAGSimilarityThreshold float64
	MaxSearchWords         int
	DeepSearchMaxRounds    int
	MaxHistoryMessages     int
	MaxHistoryTokens       int

	// ToolTimeout bounds a single "tools" node execution. Zero uses
	// defaultToolTimeout.
	ToolTimeout time.Duration
	// SearchMaxRetries bounds retry attempts of the "search" node. Zero
	// uses defaultSearchRetryAttempts.
	SearchMaxRetries int
}
