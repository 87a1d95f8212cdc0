package retrieval

import (
	"sort"

	"github.com/agentcore/orchestrator/internal/model"
)

// rrfK is Reciprocal Rank Fusion's rank-damping constant. 60 is a widely
// used default, robust to score-scale differences between rankers and
// requiring no training — the same constant the teacher pack's own RRF
// implementation defaults to.
const rrfK = 60

// FusedResult is one document chunk after RRF, carrying both ranks it
// contributed from (0 if absent from that ranker).
type FusedResult struct {
	Chunk    model.DocumentChunk
	RRFScore float64
	VecRank  int
	BM25Rank int
}

// FuseRRF combines vector and BM25 rankings via Reciprocal Rank Fusion:
// rrf(d) = sum 1/(k+rank_r(d)) over every ranker d appears in. Grounded on
// intelligencedev-manifold/internal/rag/retrieve/fusion.go's FuseRRF —
// same union-of-IDs approach, 1-based rank lookup, and deterministic
// tie-break by id — adapted to this package's scoredChunk/DocumentChunk
// shapes and plain (unweighted) RRF rather than that file's alpha-weighted
// variant, since spec.md's fusion rule has no query-type weighting.
func FuseRRF(vec, bm25 []scoredChunk, mode model.FusionMode) []FusedResult {
	vecRank := make(map[string]int, len(vec))
	byID := make(map[string]model.DocumentChunk, len(vec)+len(bm25))
	for i, c := range vec {
		vecRank[c.chunk.ID] = i + 1
		byID[c.chunk.ID] = c.chunk
	}
	bm25Rank := make(map[string]int, len(bm25))
	for i, c := range bm25 {
		bm25Rank[c.chunk.ID] = i + 1
		byID[c.chunk.ID] = c.chunk
	}

	seen := make(map[string]bool, len(byID))
	var ids []string
	addID := func(id string) {
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}
	for _, c := range vec {
		addID(c.chunk.ID)
	}
	for _, c := range bm25 {
		addID(c.chunk.ID)
	}

	out := make([]FusedResult, 0, len(ids))
	for _, id := range ids {
		vr := vecRank[id]
		br := bm25Rank[id]

		switch mode {
		case model.FusionIntersection:
			if vr == 0 || br == 0 {
				continue
			}
		default: // FusionUnion and any unrecognised mode default to union
		}

		var score float64
		if vr > 0 {
			score += 1.0 / float64(rrfK+vr)
		}
		if br > 0 {
			score += 1.0 / float64(rrfK+br)
		}
		out = append(out, FusedResult{Chunk: byID[id], RRFScore: score, VecRank: vr, BM25Rank: br})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].RRFScore != out[j].RRFScore {
			return out[i].RRFScore > out[j].RRFScore
		}
		return out[i].Chunk.ID < out[j].Chunk.ID
	})
	return out
}
