package retrieval

import (
	"testing"

	"github.com/agentcore/orchestrator/internal/model"
)

func TestBM25Search_RanksExactTermMatchHighest(t *testing.T) {
	docs := []model.DocumentChunk{
		{ID: "d1", Content: "the quick brown fox jumps over the lazy dog"},
		{ID: "d2", Content: "golang context cancellation propagates through channels"},
		{ID: "d3", Content: "context cancellation and timeouts in concurrent golang programs"},
	}

	results := BM25Search("golang context cancellation", docs, 10)
	if len(results) == 0 {
		t.Fatal("expected at least one scored result")
	}
	if results[0].chunk.ID != "d3" && results[0].chunk.ID != "d2" {
		t.Errorf("expected a golang/context/cancellation doc to rank first, got %q", results[0].chunk.ID)
	}
	for _, r := range results {
		if r.chunk.ID == "d1" {
			t.Errorf("unrelated document %q should not score above zero for this query", r.chunk.ID)
		}
	}
}

func TestBM25Search_EmptyQueryOrCorpusReturnsNil(t *testing.T) {
	docs := []model.DocumentChunk{{ID: "d1", Content: "hello world"}}
	if got := BM25Search("", docs, 10); got != nil {
		t.Errorf("expected nil for empty query, got %+v", got)
	}
	if got := BM25Search("hello", nil, 10); got != nil {
		t.Errorf("expected nil for empty corpus, got %+v", got)
	}
}

func TestTokenize_SegmentsCJKPerCharacter(t *testing.T) {
	tokens := tokenize("你好世界 hello")
	want := []string{"你", "好", "世", "界", "hello"}
	if len(tokens) != len(want) {
		t.Fatalf("expected %d tokens, got %d: %v", len(want), len(tokens), tokens)
	}
	for i, w := range want {
		if tokens[i] != w {
			t.Errorf("token %d: expected %q, got %q", i, w, tokens[i])
		}
	}
}

func TestBM25Search_RespectsTopK(t *testing.T) {
	docs := []model.DocumentChunk{
		{ID: "d1", Content: "apple apple apple"},
		{ID: "d2", Content: "apple banana"},
		{ID: "d3", Content: "apple"},
	}
	got := BM25Search("apple", docs, 2)
	if len(got) != 2 {
		t.Fatalf("expected topK=2 results, got %d", len(got))
	}
}
