package retrieval

import (
	"context"
	"fmt"

	"github.com/agentcore/orchestrator/internal/model"
)

// candidateFactor is how many more candidates each ranker pulls than the
// final top-K, per spec.md §4.5 step 1/2 ("top-2K").
const candidateFactor = 2

// ChunkSource supplies the document-chunk candidates a hybrid search draws
// from, scoped to a set of knowledge bases.
type ChunkSource interface {
	ChunksForKnowledgeBases(ctx context.Context, knowledgeBaseIDs []string) ([]model.DocumentChunk, error)
}

// MessageSource supplies the message-embedding candidates a conversation's
// semantic search draws from.
type MessageSource interface {
	EmbeddingsForConversation(ctx context.Context, conversationID string) ([]model.MessageEmbedding, error)
}

// HybridRetriever implements C5: embedding, semantic search over
// conversation history, and hybrid (vector + BM25, RRF-fused) search over
// knowledge-base document chunks.
type HybridRetriever struct {
	Embedder Embedder
	Chunks   ChunkSource
	Messages MessageSource
}

func NewHybridRetriever(embedder Embedder, chunks ChunkSource, messages MessageSource) *HybridRetriever {
	return &HybridRetriever{Embedder: embedder, Chunks: chunks, Messages: messages}
}

// SemanticSearchHistory returns up to topK prior messages from
// conversationID whose embedding similarity to query is at least
// threshold, descending by similarity.
func (r *HybridRetriever) SemanticSearchHistory(ctx context.Context, conversationID, query string, topK int, threshold float64) ([]model.MessageEmbedding, error) {
	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	candidates, err := r.Messages.EmbeddingsForConversation(ctx, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message embeddings: %w", err)
	}
	return SemanticSearchMessages(queryVec, candidates, topK, threshold), nil
}

// HybridSearchKnowledgeBases implements spec.md §4.5's five-step hybrid
// search: vector top-2K (threshold-filtered) and BM25 top-2K independently
// ranked, RRF-fused per mode, truncated to topK.
func (r *HybridRetriever) HybridSearchKnowledgeBases(ctx context.Context, query string, knowledgeBaseIDs []string, topK int, threshold float64, mode model.FusionMode) ([]FusedResult, error) {
	candidates, err := r.Chunks.ChunksForKnowledgeBases(ctx, knowledgeBaseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load document chunks: %w", err)
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	queryVec, err := r.Embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}

	wideK := topK * candidateFactor
	vecResults := SemanticSearchChunks(queryVec, candidates, wideK, threshold)
	bm25Results := BM25Search(query, candidates, wideK)

	fused := FuseRRF(vecResults, bm25Results, mode)
	if topK > 0 && len(fused) > topK {
		fused = fused[:topK]
	}
	return fused, nil
}

// ReferencesFromFused renders fused hybrid-search results as model.Reference
// entries, the shape context_retrieval/kb_precheck inject into graph state.
func ReferencesFromFused(queryKey string, fused []FusedResult) []model.Reference {
	refs := make([]model.Reference, len(fused))
	for i, f := range fused {
		refs[i] = model.Reference{
			Source:     f.Chunk.Source,
			Snippet:    f.Chunk.Content,
			Score:      f.RRFScore,
			ChunkIndex: f.Chunk.ChunkIndex,
			QueryKey:   queryKey,
		}
	}
	return refs
}
