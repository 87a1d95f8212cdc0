package retrieval

import (
	"math"
	"sort"

	"github.com/agentcore/orchestrator/internal/model"
)

// scoredMessage pairs a stored message embedding with its similarity to
// the current query.
type scoredMessage struct {
	embedding model.MessageEmbedding
	score     float64
}

// SemanticSearchMessages computes cosine similarity between queryVec and
// every candidate's vector, returning up to topK whose score is at least
// threshold, descending by score. Generalizes teacher rag/store/vector.go's
// InMemoryVectorStore.Search: same cosine-similarity metric, but sort.Slice
// instead of the teacher's O(n^2) bubble sort, plus the threshold cutoff
// this spec requires and the teacher's version doesn't have.
func SemanticSearchMessages(queryVec []float32, candidates []model.MessageEmbedding, topK int, threshold float64) []model.MessageEmbedding {
	scored := make([]scoredMessage, 0, len(candidates))
	for _, c := range candidates {
		s := cosineSimilarity(queryVec, c.Vector)
		if s >= threshold {
			scored = append(scored, scoredMessage{embedding: c, score: s})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	out := make([]model.MessageEmbedding, len(scored))
	for i, s := range scored {
		out[i] = s.embedding
	}
	return out
}

// scoredChunk pairs a document chunk with a relevance score (cosine
// similarity for vector candidates, BM25 for lexical candidates).
type scoredChunk struct {
	chunk model.DocumentChunk
	score float64
}

// SemanticSearchChunks is SemanticSearchMessages' counterpart over
// knowledge-base document chunks, used as the vector half of hybrid search.
func SemanticSearchChunks(queryVec []float32, candidates []model.DocumentChunk, topK int, threshold float64) []scoredChunk {
	scored := make([]scoredChunk, 0, len(candidates))
	for _, c := range candidates {
		s := cosineSimilarity(queryVec, c.Vector)
		if s >= threshold {
			scored = append(scored, scoredChunk{chunk: c, score: s})
		}
	}
	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
