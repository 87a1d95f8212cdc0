package tool

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"

	"github.com/agentcore/orchestrator/internal/model"
)

// BraveSearch is a tool that uses the Brave Search API to search the web.
type BraveSearch struct {
	APIKey  string
	BaseURL string
	Count   int
	Country string
	Lang    string
}

type BraveOption func(*BraveSearch)

// WithBraveBaseURL sets the base URL for the Brave Search API.
func WithBraveBaseURL(baseURL string) BraveOption {
	return func(b *BraveSearch) {
		b.BaseURL = baseURL
	}
}

// WithBraveCount sets the number of results to return (1-20).
func WithBraveCount(count int) BraveOption {
	return func(b *BraveSearch) {
		if count < 1 {
			count = 1
		}
		if count > 20 {
			count = 20
		}
		b.Count = count
	}
}

// WithBraveCountry sets the country code for search results (e.g., "US", "CN").
func WithBraveCountry(country string) BraveOption {
	return func(b *BraveSearch) {
		b.Country = country
	}
}

// WithBraveLang sets the language code for search results (e.g., "en", "zh").
func WithBraveLang(lang string) BraveOption {
	return func(b *BraveSearch) {
		b.Lang = lang
	}
}

// NewBraveSearch creates a new BraveSearch tool.
// If apiKey is empty, it tries to read from BRAVE_API_KEY environment variable.
func NewBraveSearch(apiKey string, opts ...BraveOption) (*BraveSearch, error) {
	if apiKey == "" {
		apiKey = os.Getenv("BRAVE_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("BRAVE_API_KEY not set")
	}

	b := &BraveSearch{
		APIKey:  apiKey,
		BaseURL: "https://api.search.brave.com/res/v1/web/search",
		Count:   10,
		Country: "US",
		Lang:    "en",
	}

	for _, opt := range opts {
		opt(b)
	}

	return b, nil
}

// Name returns the name of the tool.
func (b *BraveSearch) Name() string {
	return "Brave_Search"
}

// Description returns the description of the tool.
func (b *BraveSearch) Description() string {
	return "A privacy-focused search engine powered by Brave. " +
		"Useful for finding current information and answering questions. " +
		"Input should be a search query."
}

// braveResult is one parsed "web.results[]" entry from the Brave API.
type braveResult struct {
	Title       string
	URL         string
	Description string
}

// search issues the Brave Search API request and returns parsed web
// results, shared by Call (string output) and SearchStructured
// ([]model.Reference output).
func (b *BraveSearch) search(ctx context.Context, query string, count int) ([]braveResult, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("count", fmt.Sprintf("%d", count))
	if b.Country != "" {
		params.Set("country", b.Country)
	}
	if b.Lang != "" {
		params.Set("search_lang", b.Lang)
	}

	reqURL := fmt.Sprintf("%s?%s", b.BaseURL, params.Encode())

	req, err := http.NewRequestWithContext(ctx, "GET", reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", b.APIKey)

	client := &http.Client{}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("brave api returned status: %d", resp.StatusCode)
	}

	var result map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	var out []braveResult
	if web, ok := result["web"].(map[string]interface{}); ok {
		if results, ok := web["results"].([]interface{}); ok {
			for _, r := range results {
				item, ok := r.(map[string]interface{})
				if !ok {
					continue
				}
				title, _ := item["title"].(string)
				itemURL, _ := item["url"].(string)
				description, _ := item["description"].(string)
				out = append(out, braveResult{Title: title, URL: itemURL, Description: description})
			}
		}
	}
	return out, nil
}

// Call executes the search and renders the results as plain text for a
// tool-calling LLM loop.
func (b *BraveSearch) Call(ctx context.Context, input string) (string, error) {
	results, err := b.search(ctx, input, b.Count)
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	for i, r := range results {
		sb.WriteString(fmt.Sprintf("%d. Title: %s\nURL: %s\nDescription: %s\n\n",
			i+1, r.Title, r.URL, r.Description))
	}

	if sb.Len() == 0 {
		return "No results found", nil
	}
	return sb.String(), nil
}

// SearchStructured runs the same search as Call but returns results as
// []model.Reference, for nodes that need citation metadata (source URL,
// snippet) rather than a pre-formatted string.
func (b *BraveSearch) SearchStructured(ctx context.Context, query string, limit int) ([]model.Reference, error) {
	if limit <= 0 {
		limit = b.Count
	}
	results, err := b.search(ctx, query, limit)
	if err != nil {
		return nil, err
	}

	refs := make([]model.Reference, 0, len(results))
	for i, r := range results {
		refs = append(refs, model.Reference{
			Source:     r.URL,
			Snippet:    r.Description,
			FileName:   r.Title,
			ChunkIndex: i,
			QueryKey:   query,
		})
	}
	return refs, nil
}
