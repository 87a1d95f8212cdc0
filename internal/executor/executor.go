// Package executor implements the Graph Executor (C4): the Chat and
// DeepSearch sub-graphs, sharing one router entry point, compiled atop
// graph.CheckpointableStateGraph so every super-step is checkpointed.
package executor

import (
	"context"
	"time"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
)

// defaultToolTimeout bounds a single "tools" node execution when
// Deps.ToolTimeout isn't set: external tool calls (web search, future
// tools) must not hang a turn indefinitely.
const defaultToolTimeout = 30 * time.Second

// defaultSearchRetryAttempts bounds retries of the deep-search "search"
// node when Deps.SearchMaxRetries isn't set.
const defaultSearchRetryAttempts = 3

// Executor owns the compiled graph and the dependencies its nodes close
// over.
type Executor struct {
	deps     Deps
	topology *graph.StateGraphTyped[*model.GraphState]
	runnable *graph.CheckpointableRunnable
}

// New builds and compiles the Chat/DeepSearch graph described by
// SPEC_FULL's Graph Executor section: one router entry point dispatching
// by Mode, the Chat sub-graph (rewrite -> context_retrieval -> chatbot
// <-> tools) and the DeepSearch sub-graph (kb_precheck -> planning <->
// search -> summary).
func New(deps Deps, checkpoints graph.CheckpointStore) (*Executor, error) {
	g := graph.NewCheckpointableStateGraphWithConfig(graph.CheckpointConfig{Store: checkpoints, AutoSave: true})

	e := &Executor{deps: deps}

	g.AddNode("router", "dispatch by mode", e.router)
	g.AddNode("rewrite", "resolve follow-up question", e.rewrite)
	g.AddNode("context_retrieval", "fetch history + kb context", e.contextRetrieval)
	g.AddNode("chatbot", "generate the chat reply", e.chatbot)

	// tools and search call out to external services (the bound tool's
	// API, the web search backend) and neither ever streams a raw delta
	// to the sink, so they're the safe, non-streaming nodes to wrap with
	// a timeout and retry rather than risk duplicating partial output.
	toolTimeout := deps.ToolTimeout
	if toolTimeout <= 0 {
		toolTimeout = defaultToolTimeout
	}
	graph.AddNodeWithTimeout(g.ListenableStateGraphTyped, "tools", "execute requested tool calls", e.tools, toolTimeout)

	g.AddNode("kb_precheck", "check existing knowledge base coverage", e.kbPrecheck)
	g.AddNode("planning", "propose next search queries", e.planning)

	searchRetries := deps.SearchMaxRetries
	if searchRetries <= 0 {
		searchRetries = defaultSearchRetryAttempts
	}
	graph.AddNodeWithRetry(g.ListenableStateGraphTyped, "search", "run pending search queries", e.search, &graph.RetryConfig{
		MaxAttempts:     searchRetries,
		InitialDelay:    200 * time.Millisecond,
		MaxDelay:        2 * time.Second,
		BackoffFactor:   2.0,
		RetryableErrors: func(error) bool { return true },
	})

	g.AddNode("summary", "generate the cited final answer", e.summary)

	g.SetEntryPoint("router")
	g.AddConditionalEdge("router", routeByMode)
	g.AddEdge("rewrite", "context_retrieval")
	g.AddEdge("context_retrieval", "chatbot")
	g.AddConditionalEdge("chatbot", routeAfterChatbot)
	g.AddEdge("tools", "chatbot")
	g.AddConditionalEdge("kb_precheck", routeAfterPrecheck)
	g.AddConditionalEdge("planning", routeAfterPlanningRounds(deps.DeepSearchMaxRounds))
	g.AddEdge("search", "planning")
	g.AddEdge("summary", graph.END)

	// Registered after every AddNode call: AddGlobalListener only attaches
	// to the nodes present in listenableNodes at call time.
	g.AddGlobalListener(graph.NodeListenerTypedFunc[*model.GraphState](nodeEventListener))

	e.topology = g.StateGraphTyped

	runnable, err := g.CompileCheckpointable()
	if err != nil {
		return nil, err
	}
	e.runnable = runnable
	return e, nil
}

// Mermaid renders the compiled graph's topology as a Mermaid flowchart,
// for operators inspecting the router/sub-graph wiring outside a debugger
// (orchestratorctl's "graph" subcommand).
func (e *Executor) Mermaid() string {
	return graph.NewExporter(e.topology).DrawMermaid()
}

func nodeEventListener(ctx context.Context, event graph.NodeEvent, nodeName string, state *model.GraphState, err error) {
	sink := SinkFromContext(ctx)
	if sink == nil {
		return
	}
	switch event {
	case graph.NodeEventStart:
		_ = sink.Emit(Event{Kind: EventNodeStart, Node: nodeName})
	case graph.NodeEventComplete, graph.NodeEventError:
		_ = sink.Emit(Event{Kind: EventNodeEnd, Node: nodeName})
	}
}

// InvokeRequest is one turn's input: the thread to run on, an optional
// parent checkpoint to fork/resume from (regenerate), and the patch to
// apply to that starting state (typically a new user message).
type InvokeRequest struct {
	ThreadID           string
	ParentCheckpointID string
	Patch              *model.GraphState
	Sink               Sink
}

// Invoke runs one turn of the graph for req.ThreadID, starting from
// req.ParentCheckpointID's state if given (fork/regenerate), or the
// thread's latest checkpoint, or a fresh state if the thread has none.
func (e *Executor) Invoke(ctx context.Context, req InvokeRequest) (*model.GraphState, error) {
	base, err := e.loadBase(ctx, req.ThreadID, req.ParentCheckpointID)
	if err != nil {
		return nil, err
	}
	merged := applyPatch(base, req.Patch)

	ctx = WithSink(ctx, req.Sink)
	result, err := e.runnable.InvokeWithConfig(ctx, req.ThreadID, merged, nil)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "executor.invoke_failed", "graph execution failed", err)
	}
	return result, nil
}

// LatestCheckpoint returns a thread's most recent checkpoint, the value
// the streaming transport persists as a just-finished turn's
// checkpoint_id.
func (e *Executor) LatestCheckpoint(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	cp, err := e.runnable.GetLatestCheckpoint(ctx, threadID)
	if err != nil {
		return nil, apperr.Wrap(apperr.CheckpointError, "executor.no_checkpoint", "no checkpoint found for thread", err)
	}
	return cp, nil
}

func (e *Executor) loadBase(ctx context.Context, threadID, parentCheckpointID string) (*model.GraphState, error) {
	if parentCheckpointID != "" {
		cp, err := e.runnable.GetCheckpoint(ctx, threadID, parentCheckpointID)
		if err != nil {
			return nil, apperr.Wrap(apperr.CheckpointError, "executor.checkpoint_not_found", "checkpoint not found", err)
		}
		return cp.State.Clone(), nil
	}

	cp, err := e.runnable.GetLatestCheckpoint(ctx, threadID)
	if err != nil {
		// A thread with no checkpoints yet (its first turn) is the common
		// case this error covers; start from a fresh state.
		return (*model.GraphState)(nil).Clone(), nil
	}
	return cp.State.Clone(), nil
}

// applyPatch layers a turn's input onto a loaded base state, resetting
// the per-turn scratch fields so a fresh pass through the graph doesn't
// inherit the prior turn's planning/search bookkeeping.
func applyPatch(base *model.GraphState, patch *model.GraphState) *model.GraphState {
	base.PlanningRounds = 0
	base.SearchQueries = nil
	base.References = map[string][]model.Reference{}
	base.HistoryContext = ""
	base.KBContext = ""

	if patch == nil {
		return base
	}
	if len(patch.Messages) > 0 {
		base.Messages = append(base.Messages, patch.Messages...)
	}
	if patch.Mode != "" {
		base.Mode = patch.Mode
	}
	if patch.ConversationID != "" {
		base.ConversationID = patch.ConversationID
	}
	if len(patch.KnowledgeBaseIDs) > 0 {
		base.KnowledgeBaseIDs = patch.KnowledgeBaseIDs
	}
	if patch.Question != "" {
		base.Question = patch.Question
	}
	return base
}
