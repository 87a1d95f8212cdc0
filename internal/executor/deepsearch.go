package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/retrieval"
)

// precheckStrongMatchThreshold is the RRF score above which kb_precheck
// considers the knowledge base to already answer the question, skipping
// the planning/search loop entirely.
const precheckStrongMatchThreshold = 0.9

// kbPrecheck runs one hybrid search against the bound knowledge bases
// before committing to the planning/search loop — if the existing
// knowledge base already has a strong hit, deep search goes straight to
// summary instead of spending rounds planning web searches.
func (e *Executor) kbPrecheck(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	if idx := lastUserMessageIndex(next.Messages); idx >= 0 && next.Question == "" {
		next.Question = next.Messages[idx].Content
	}
	if next.References == nil {
		next.References = map[string][]model.Reference{}
	}
	if e.deps.Retriever == nil || len(next.KnowledgeBaseIDs) == 0 || next.Question == "" {
		return next, nil
	}

	fused, err := e.deps.Retriever.HybridSearchKnowledgeBases(ctx, next.Question, next.KnowledgeBaseIDs, e.deps.RAGTopK, e.deps.RAGSimilarityThreshold, model.FusionUnion)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalError, "executor.kb_precheck_failed", "knowledge base precheck failed", err)
	}
	if len(fused) > 0 {
		next.References["kb"] = retrieval.ReferencesFromFused("kb", fused)
	}
	return next, nil
}

func routeAfterPrecheck(ctx context.Context, state *model.GraphState) string {
	if refs := state.References["kb"]; len(refs) > 0 && refs[0].Score >= precheckStrongMatchThreshold {
		return "summary"
	}
	return "planning"
}

// planningResponse is the structured shape the planning node asks the
// model to return: the next round of search queries, or none when it
// judges the gathered references already sufficient.
type planningResponse struct {
	Queries []string `json:"queries"`
}

// planning proposes the next round of search queries given the question
// and references gathered so far. Its output is never streamed — only
// chatbot and summary are output nodes.
func (e *Executor) planning(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	next.PlanningRounds++

	prompt := []model.ChatMessage{
		{Role: model.RoleSystem, Content: `You are planning a web research task. Given the question and what has already been found, reply with a JSON object {"queries": ["..."]} naming up to 3 additional search queries still needed. Reply {"queries": []} if the gathered references already answer the question.`},
		{Role: model.RoleUser, Content: fmt.Sprintf("Question: %s\n\nReferences so far:\n%s", next.Question, formatReferencesWithCitations(next.References))},
	}

	reply, err := e.deps.Provider.Invoke(ctx, prompt, nil, e.deps.Params)
	if err != nil {
		return nil, apperr.Wrap(apperr.ProviderError, "executor.planning_failed", "planning call failed", err)
	}

	var parsed planningResponse
	_ = json.Unmarshal([]byte(extractJSONObject(reply.Content)), &parsed)

	existing := make(map[string]bool, len(next.SearchQueries))
	for _, q := range next.SearchQueries {
		existing[q] = true
	}
	for _, q := range parsed.Queries {
		q = truncateWords(strings.TrimSpace(q), e.deps.MaxSearchWords)
		if q == "" || existing[q] {
			continue
		}
		existing[q] = true
		next.SearchQueries = append(next.SearchQueries, q)
	}

	return next, nil
}

func routeAfterPlanningRounds(deepSearchMaxRounds int) func(ctx context.Context, state *model.GraphState) string {
	return func(ctx context.Context, state *model.GraphState) string {
		if state.PlanningRounds >= deepSearchMaxRounds {
			return "summary"
		}
		if hasAllQueriesSearched(state) {
			// planning proposed nothing new this round: nothing left to search.
			return "summary"
		}
		return "search"
	}
}

func hasAllQueriesSearched(state *model.GraphState) bool {
	for _, q := range state.SearchQueries {
		if _, ok := state.References[q]; !ok {
			return false
		}
	}
	return true
}

// search fans the pending (not-yet-searched) queries out across bounded
// goroutines, one web search per query, same shared-completion shape as
// the tools node's concurrent tool-call execution.
func (e *Executor) search(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	if next.References == nil {
		next.References = map[string][]model.Reference{}
	}

	var pending []string
	for _, q := range next.SearchQueries {
		if _, done := next.References[q]; !done {
			pending = append(pending, q)
		}
	}
	if len(pending) == 0 || e.deps.WebSearch == nil {
		return next, nil
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	results := make(map[string][]model.Reference, len(pending))

	for _, q := range pending {
		q := q
		graph.SafeGo(&wg, func() {
			emitToolStart(SinkFromContext(ctx), "web_search")
			defer emitToolEnd(SinkFromContext(ctx), "web_search")

			refs, err := e.deps.WebSearch.SearchStructured(ctx, q, e.deps.RAGTopK)
			if err != nil {
				// a failed query is recorded as searched-but-empty rather than
				// aborting the whole round — one bad query shouldn't sink the
				// others already in flight.
				refs = nil
			}
			mu.Lock()
			results[q] = refs
			mu.Unlock()
		}, func(r any) {
			mu.Lock()
			results[q] = nil
			mu.Unlock()
		})
	}
	wg.Wait()

	for q, refs := range results {
		next.References[q] = refs
	}
	return next, nil
}

// summary is the deep-search sub-graph's output node: it streams the
// final cited answer from the accumulated references.
func (e *Executor) summary(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()

	citations := formatReferencesWithCitations(next.References)
	sysPrompt := "Answer the user's question using the numbered references below. Cite sources inline as [n]. If the references are insufficient, say so plainly.\n\n" + citations

	messages := []model.ChatMessage{
		{Role: model.RoleSystem, Content: sysPrompt},
		{Role: model.RoleUser, Content: next.Question},
	}

	final, err := streamAssistantReply(ctx, e.deps, "summary", messages, nil, SinkFromContext(ctx))
	if err != nil {
		return nil, err
	}

	next.Messages = append(next.Messages, *final)
	return next, nil
}
