package tool

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func braveFixture(t *testing.T, body string) *BraveSearch {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Subscription-Token") != "test-key" {
			t.Fatalf("expected subscription token header, got %q", r.Header.Get("X-Subscription-Token"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)

	b, err := NewBraveSearch("test-key", WithBraveBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewBraveSearch: %v", err)
	}
	return b
}

const braveFixtureBody = `{
	"web": {
		"results": [
			{"title": "Go Concurrency Patterns", "url": "https://example.com/a", "description": "goroutines and channels"},
			{"title": "Effective Go", "url": "https://example.com/b", "description": "idiomatic style guide"}
		]
	}
}`

func TestNewBraveSearch_RequiresAPIKey(t *testing.T) {
	t.Setenv("BRAVE_API_KEY", "")
	if _, err := NewBraveSearch(""); err == nil {
		t.Fatal("expected error for missing api key")
	}
}

func TestCall_RendersResultsAsText(t *testing.T) {
	b := braveFixture(t, braveFixtureBody)

	out, err := b.Call(context.Background(), "golang concurrency")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if !strings.Contains(out, "Go Concurrency Patterns") || !strings.Contains(out, "https://example.com/a") {
		t.Fatalf("expected rendered results, got %q", out)
	}
}

func TestCall_NoResults(t *testing.T) {
	b := braveFixture(t, `{"web": {"results": []}}`)

	out, err := b.Call(context.Background(), "no matches")
	if err != nil {
		t.Fatalf("Call: %v", err)
	}
	if out != "No results found" {
		t.Fatalf("expected no-results message, got %q", out)
	}
}

func TestSearchStructured_ReturnsReferencesWithQueryKey(t *testing.T) {
	b := braveFixture(t, braveFixtureBody)

	refs, err := b.SearchStructured(context.Background(), "golang concurrency", 5)
	if err != nil {
		t.Fatalf("SearchStructured: %v", err)
	}
	if len(refs) != 2 {
		t.Fatalf("expected both fixture results, got %d", len(refs))
	}
	if refs[0].Source != "https://example.com/a" || refs[0].QueryKey != "golang concurrency" {
		t.Fatalf("unexpected reference: %+v", refs[0])
	}
	if refs[0].ChunkIndex != 0 || refs[1].ChunkIndex != 1 {
		t.Fatalf("expected sequential chunk indices, got %d, %d", refs[0].ChunkIndex, refs[1].ChunkIndex)
	}
}

func TestSearchStructured_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	b, err := NewBraveSearch("test-key", WithBraveBaseURL(srv.URL))
	if err != nil {
		t.Fatalf("NewBraveSearch: %v", err)
	}

	if _, err := b.SearchStructured(context.Background(), "q", 5); err == nil {
		t.Fatal("expected error on non-200 response")
	}
}
