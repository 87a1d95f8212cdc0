package retrieval

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/internal/model"
)

type fakeEmbedder struct {
	vectors map[string][]float32
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	if v, ok := f.vectors[text]; ok {
		return v, nil
	}
	return []float32{0, 0}, nil
}

func (f *fakeEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i], _ = f.Embed(ctx, t)
	}
	return out, nil
}

type fakeChunkSource struct {
	chunks []model.DocumentChunk
}

func (f *fakeChunkSource) ChunksForKnowledgeBases(_ context.Context, _ []string) ([]model.DocumentChunk, error) {
	return f.chunks, nil
}

type fakeMessageSource struct {
	embeddings []model.MessageEmbedding
}

func (f *fakeMessageSource) EmbeddingsForConversation(_ context.Context, _ string) ([]model.MessageEmbedding, error) {
	return f.embeddings, nil
}

func TestHybridRetriever_SemanticSearchHistory(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{"what did we discuss": {1, 0}}}
	messages := &fakeMessageSource{embeddings: []model.MessageEmbedding{
		{MessageID: "m1", Vector: []float32{1, 0}},
		{MessageID: "m2", Vector: []float32{0, 1}},
	}}
	r := NewHybridRetriever(embedder, nil, messages)

	got, err := r.SemanticSearchHistory(context.Background(), "conv-1", "what did we discuss", 5, 0.5)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].MessageID != "m1" {
		t.Fatalf("expected only m1 above threshold, got %+v", got)
	}
}

func TestHybridRetriever_HybridSearchKnowledgeBases_EmptyCorpus(t *testing.T) {
	embedder := &fakeEmbedder{vectors: map[string][]float32{}}
	chunks := &fakeChunkSource{chunks: nil}
	r := NewHybridRetriever(embedder, chunks, nil)

	got, err := r.HybridSearchKnowledgeBases(context.Background(), "anything", []string{"kb-1"}, 5, 0.2, model.FusionUnion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != nil {
		t.Fatalf("expected nil results for empty corpus, got %+v", got)
	}
}

func TestHybridRetriever_HybridSearchKnowledgeBases_CombinesBothRankers(t *testing.T) {
	query := "golang context cancellation"
	embedder := &fakeEmbedder{vectors: map[string][]float32{query: {1, 0}}}
	chunks := &fakeChunkSource{chunks: []model.DocumentChunk{
		{ID: "d1", Content: "golang context cancellation patterns", Vector: []float32{1, 0}},
		{ID: "d2", Content: "unrelated cooking recipe content", Vector: []float32{0, 1}},
	}}
	r := NewHybridRetriever(embedder, chunks, nil)

	got, err := r.HybridSearchKnowledgeBases(context.Background(), query, []string{"kb-1"}, 5, 0.0, model.FusionUnion)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) == 0 {
		t.Fatal("expected at least one fused result")
	}
	if got[0].Chunk.ID != "d1" {
		t.Errorf("expected the matching document to rank first, got %q", got[0].Chunk.ID)
	}
}

func TestReferencesFromFused_CarriesQueryKey(t *testing.T) {
	fused := []FusedResult{{Chunk: model.DocumentChunk{Source: "doc.md", Content: "snippet", ChunkIndex: 2}, RRFScore: 0.1}}
	refs := ReferencesFromFused("q1", fused)
	if len(refs) != 1 || refs[0].QueryKey != "q1" || refs[0].ChunkIndex != 2 {
		t.Fatalf("unexpected reference shape: %+v", refs)
	}
}
