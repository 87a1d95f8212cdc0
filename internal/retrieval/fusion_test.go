package retrieval

import (
	"testing"

	"github.com/agentcore/orchestrator/internal/model"
)

func chunk(id string) model.DocumentChunk { return model.DocumentChunk{ID: id} }

func TestFuseRRF_UnionKeepsEitherSource(t *testing.T) {
	vec := []scoredChunk{{chunk: chunk("a"), score: 0.9}, {chunk: chunk("b"), score: 0.8}}
	bm25 := []scoredChunk{{chunk: chunk("c"), score: 5}}

	fused := FuseRRF(vec, bm25, model.FusionUnion)
	if len(fused) != 3 {
		t.Fatalf("expected 3 results in union mode, got %d", len(fused))
	}
}

func TestFuseRRF_IntersectionKeepsOnlyShared(t *testing.T) {
	vec := []scoredChunk{{chunk: chunk("a"), score: 0.9}, {chunk: chunk("b"), score: 0.8}}
	bm25 := []scoredChunk{{chunk: chunk("b"), score: 5}, {chunk: chunk("c"), score: 4}}

	fused := FuseRRF(vec, bm25, model.FusionIntersection)
	if len(fused) != 1 || fused[0].Chunk.ID != "b" {
		t.Fatalf("expected only %q in intersection mode, got %+v", "b", fused)
	}
}

func TestFuseRRF_DocumentInBothRankersScoresHigherThanOneRankerAlone(t *testing.T) {
	vec := []scoredChunk{{chunk: chunk("a"), score: 0.9}, {chunk: chunk("b"), score: 0.8}}
	bm25 := []scoredChunk{{chunk: chunk("b"), score: 5}, {chunk: chunk("c"), score: 4}}

	fused := FuseRRF(vec, bm25, model.FusionUnion)
	var aScore, bScore float64
	for _, f := range fused {
		switch f.Chunk.ID {
		case "a":
			aScore = f.RRFScore
		case "b":
			bScore = f.RRFScore
		}
	}
	if bScore <= aScore {
		t.Errorf("b appears in both rankers and should outscore a (vec-only): a=%f b=%f", aScore, bScore)
	}
}

func TestFuseRRF_DeterministicTieBreakByID(t *testing.T) {
	vec := []scoredChunk{{chunk: chunk("z"), score: 1}, {chunk: chunk("a"), score: 1}}
	fused := FuseRRF(vec, nil, model.FusionUnion)
	if len(fused) != 2 || fused[0].Chunk.ID != "a" {
		t.Fatalf("expected tie broken by ascending id, got %+v", fused)
	}
}
