package retrieval

import (
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/agentcore/orchestrator/internal/model"
)

// bm25K1 and bm25B are the classic Okapi BM25 tuning constants.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// tokenize splits text into lowercase terms. Latin-script runs split on
// whitespace/punctuation as whole words; CJK runs (no word-boundary
// whitespace of their own) split one character at a time, a simple but
// workable language-aware segmentation given no dependency in the pack
// does real CJK word-breaking.
func tokenize(text string) []string {
	var tokens []string
	var word strings.Builder

	flush := func() {
		if word.Len() > 0 {
			tokens = append(tokens, strings.ToLower(word.String()))
			word.Reset()
		}
	}

	for _, r := range text {
		switch {
		case isCJK(r):
			flush()
			tokens = append(tokens, string(unicode.ToLower(r)))
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			word.WriteRune(r)
		default:
			flush()
		}
	}
	flush()
	return tokens
}

func isCJK(r rune) bool {
	return unicode.Is(unicode.Han, r) || unicode.Is(unicode.Hiragana, r) ||
		unicode.Is(unicode.Katakana, r) || unicode.Is(unicode.Hangul, r)
}

// BM25Search scores candidates against query using Okapi BM25 and returns
// up to topK, descending by score. Fresh implementation: the pack has no
// first-class BM25 grounding file (see DESIGN.md), built directly against
// the ranking formula.
func BM25Search(query string, candidates []model.DocumentChunk, topK int) []scoredChunk {
	queryTerms := tokenize(query)
	if len(queryTerms) == 0 || len(candidates) == 0 {
		return nil
	}

	docTerms := make([][]string, len(candidates))
	docFreq := make(map[string]int)
	var totalLen int
	for i, c := range candidates {
		terms := tokenize(c.Content)
		docTerms[i] = terms
		totalLen += len(terms)
		seen := make(map[string]bool, len(terms))
		for _, t := range terms {
			if !seen[t] {
				seen[t] = true
				docFreq[t]++
			}
		}
	}
	n := float64(len(candidates))
	avgDocLen := float64(totalLen) / n

	scored := make([]scoredChunk, 0, len(candidates))
	for i, c := range candidates {
		termFreq := make(map[string]int, len(docTerms[i]))
		for _, t := range docTerms[i] {
			termFreq[t]++
		}
		docLen := float64(len(docTerms[i]))

		var score float64
		for _, qt := range queryTerms {
			tf := float64(termFreq[qt])
			if tf == 0 {
				continue
			}
			df := float64(docFreq[qt])
			idf := math.Log((n-df+0.5)/(df+0.5) + 1)
			numerator := tf * (bm25K1 + 1)
			denominator := tf + bm25K1*(1-bm25B+bm25B*(docLen/avgDocLen))
			score += idf * (numerator / denominator)
		}
		if score > 0 {
			scored = append(scored, scoredChunk{chunk: c, score: score})
		}
	}

	sort.Slice(scored, func(i, j int) bool { return scored[i].score > scored[j].score })
	if topK > 0 && len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
