// Package retrieval implements the Retrieval Layer (C5): embedding,
// semantic search, and hybrid (vector + BM25, RRF-fused) search over
// conversation history and knowledge-base document chunks.
package retrieval

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// Embedder turns text into fixed-dimension vectors, grounded on teacher
// prebuilt/rag.go's Embedder interface (EmbedDocuments/EmbedQuery),
// narrowed to float32 to match model.MessageEmbedding/model.DocumentChunk's
// vector field type.
type Embedder interface {
	// Embed returns a single query embedding.
	Embed(ctx context.Context, text string) ([]float32, error)
	// EmbedBatch returns one embedding per input text, same order.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// OpenAICompatibleEmbedder calls an OpenAI-compatible embeddings endpoint.
// Many self-hosted embedding servers (and the "local" provider config in
// practice) speak this wire format, so one client covers both
// EMBEDDING_PROVIDER settings the config recognises.
type OpenAICompatibleEmbedder struct {
	client *openai.Client
	model  string
	dim    int
}

func NewOpenAICompatibleEmbedder(apiKey, baseURL, model string, dim int) *OpenAICompatibleEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	return &OpenAICompatibleEmbedder{client: openai.NewClientWithConfig(cfg), model: model, dim: dim}
}

func (e *OpenAICompatibleEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

func (e *OpenAICompatibleEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Input: texts,
		Model: openai.EmbeddingModel(e.model),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create embeddings: %w", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: requested %d, got %d", len(texts), len(resp.Data))
	}

	out := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if e.dim > 0 && len(d.Embedding) != e.dim {
			return nil, fmt.Errorf("embedding dimension mismatch: expected %d, got %d", e.dim, len(d.Embedding))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}
