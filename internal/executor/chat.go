package executor

import (
	"context"
	"fmt"
	"sync"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/retrieval"
)

// rewriteWindow is how many trailing messages the rewrite node shows the
// model when resolving a pronoun-bearing follow-up into a standalone
// question — enough surrounding turns without re-sending the full history.
const rewriteWindow = 6

func (e *Executor) router(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	if next.Mode == "" {
		next.Mode = model.ModeChat
	}
	if idx := lastUserMessageIndex(next.Messages); idx >= 0 {
		next.Question = next.Messages[idx].Content
	}
	return next, nil
}

func routeByMode(ctx context.Context, state *model.GraphState) string {
	if state.Mode == model.ModeDeepSearch {
		return "kb_precheck"
	}
	return "rewrite"
}

// rewrite resolves a pronoun-bearing follow-up into a standalone question
// using a short window of recent turns. Its output feeds retrieval only —
// it is never streamed to the client (chatbot/summary are the only
// output nodes).
func (e *Executor) rewrite(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()

	idx := lastUserMessageIndex(next.Messages)
	if idx < 0 || !needsRewrite(next.Messages) {
		return next, nil
	}

	window := lastNMessages(next.Messages, idx, rewriteWindow)
	prompt := []model.ChatMessage{
		{Role: model.RoleSystem, Content: "Rewrite the final user message as a standalone question that does not depend on the preceding conversation. Reply with only the rewritten question."},
	}
	prompt = append(prompt, window...)

	reply, err := e.deps.Provider.Invoke(ctx, prompt, nil, e.deps.Params)
	if err != nil {
		return nil, apperr.Wrap(apperr.ProviderError, "executor.rewrite_failed", "failed to rewrite follow-up question", err)
	}
	if reply.Content != "" {
		next.Question = reply.Content
	}
	return next, nil
}

// contextRetrieval fans out the two independent lookups SPEC_FULL's
// concurrency model names for this node — semantic search over
// conversation history and hybrid search over the bound knowledge bases —
// using graph.ParallelNode rather than a hand-rolled WaitGroup/mutex: each
// lookup is its own graph.Node, and ParallelNode.Execute already collects
// results by index and turns a lookup panic into an error.
func (e *Executor) contextRetrieval(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	if next.Question == "" {
		return next, nil
	}

	const historySearchNode = "history_search"
	const kbSearchNode = "kb_search"

	var nodes []graph.Node
	if e.deps.Retriever != nil && next.ConversationID != "" {
		nodes = append(nodes, graph.Node{Name: historySearchNode, Function: func(ctx context.Context, _ any) (any, error) {
			hits, err := e.deps.Retriever.SemanticSearchHistory(ctx, next.ConversationID, next.Question, e.deps.RAGTopK, e.deps.RAGSimilarityThreshold)
			if err != nil {
				return nil, fmt.Errorf("history search: %w", err)
			}
			if len(hits) == 0 || e.deps.History == nil {
				return nil, nil
			}
			ids := make([]string, len(hits))
			for i, h := range hits {
				ids[i] = h.MessageID
			}
			msgs, err := e.deps.History.MessagesByIDs(ctx, ids)
			if err != nil {
				return nil, fmt.Errorf("history lookup: %w", err)
			}
			snippets := make([]string, 0, len(hits))
			for _, h := range hits {
				if m, ok := msgs[h.MessageID]; ok {
					snippets = append(snippets, m.Content)
				}
			}
			return snippets, nil
		}})
	}
	if e.deps.Retriever != nil && len(next.KnowledgeBaseIDs) > 0 {
		nodes = append(nodes, graph.Node{Name: kbSearchNode, Function: func(ctx context.Context, _ any) (any, error) {
			fused, err := e.deps.Retriever.HybridSearchKnowledgeBases(ctx, next.Question, next.KnowledgeBaseIDs, e.deps.RAGTopK, e.deps.RAGSimilarityThreshold, model.FusionUnion)
			if err != nil {
				return nil, fmt.Errorf("kb search: %w", err)
			}
			return retrieval.ReferencesFromFused("kb", fused), nil
		}})
	}
	if len(nodes) == 0 {
		return next, nil
	}

	raw, err := graph.NewParallelNode("context_retrieval", nodes...).Execute(ctx, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.RetrievalError, "executor.context_retrieval_failed", "context retrieval failed", err)
	}
	outputs := raw.([]any)

	var historySnippets []string
	var kbRefs []model.Reference
	for i, n := range nodes {
		switch n.Name {
		case historySearchNode:
			if v, ok := outputs[i].([]string); ok {
				historySnippets = v
			}
		case kbSearchNode:
			if v, ok := outputs[i].([]model.Reference); ok {
				kbRefs = v
			}
		}
	}

	next.HistoryContext = formatHistoryContext(historySnippets)
	if len(kbRefs) > 0 {
		if next.References == nil {
			next.References = map[string][]model.Reference{}
		}
		next.References["kb"] = kbRefs
		next.KBContext = formatReferencesWithCitations(map[string][]model.Reference{"kb": kbRefs})
	}
	return next, nil
}

// chatbot is one of the two output nodes: its streamed tokens are the
// only model output SPEC_FULL's event contract allows onto the client
// mid-turn.
func (e *Executor) chatbot(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()

	messages := next.Messages
	if e.deps.SystemPrompt != "" && (len(messages) == 0 || messages[0].Role != model.RoleSystem) {
		messages = append([]model.ChatMessage{{Role: model.RoleSystem, Content: e.deps.SystemPrompt}}, messages...)
	}
	messages = injectSysContext(messages, next.KBContext, next.HistoryContext)
	messages = trimHistory(messages, e.deps.MaxHistoryMessages, e.deps.MaxHistoryTokens)

	var schemas []provider.ToolSchema
	if e.deps.Tools != nil {
		schemas = e.deps.Tools.Schemas()
	}

	final, err := streamAssistantReply(ctx, e.deps, "chatbot", messages, schemas, SinkFromContext(ctx))
	if err != nil {
		return nil, err
	}

	next.Messages = append(next.Messages, *final)
	return next, nil
}

func routeAfterChatbot(ctx context.Context, state *model.GraphState) string {
	if len(state.Messages) == 0 {
		return graph.END
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Role == model.RoleAssistant && len(last.ToolCalls) > 0 {
		return "tools"
	}
	return graph.END
}

// tools generalizes teacher prebuilt/react_agent.go's sequential
// tool-execution loop to a bounded concurrent fan-out: every tool call
// requested by chatbot's last message runs in its own goroutine, and the
// node waits for all of them before returning.
func (e *Executor) tools(ctx context.Context, state *model.GraphState) (*model.GraphState, error) {
	next := state.Clone()
	if len(next.Messages) == 0 {
		return next, nil
	}
	last := next.Messages[len(next.Messages)-1]
	calls := last.ToolCalls
	if len(calls) == 0 {
		return next, nil
	}

	sink := SinkFromContext(ctx)
	results := make([]model.ChatMessage, len(calls))
	var wg sync.WaitGroup

	for i, call := range calls {
		i, call := i, call
		graph.SafeGo(&wg, func() {
			emitToolStart(sink, call.Name)
			defer emitToolEnd(sink, call.Name)

			result := model.ChatMessage{Role: model.RoleTool, ToolCallID: call.ID, Name: call.Name}
			tool, ok := e.deps.Tools.Get(call.Name)
			if !ok {
				result.Content = fmt.Sprintf("tool %q is not registered", call.Name)
				result.IsError = true
				results[i] = result
				return
			}
			out, err := tool.Invoke(ctx, call.Arguments)
			if err != nil {
				result.Content = apperr.Wrap(apperr.ToolError, "executor.tool_failed", "tool call failed", err).Error()
				result.IsError = true
			} else {
				result.Content = out
			}
			results[i] = result
		}, func(r any) {
			results[i] = model.ChatMessage{
				Role:       model.RoleTool,
				ToolCallID: call.ID,
				Name:       call.Name,
				Content:    fmt.Sprintf("tool panicked: %v", r),
				IsError:    true,
			}
		})
	}
	wg.Wait()

	next.Messages = append(next.Messages, results...)
	return next, nil
}
