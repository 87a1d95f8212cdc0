package executor

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
)

// fakeProvider scripts a sequence of replies, one per Invoke/Stream call,
// so tests can drive multi-turn node sequences (e.g. a tool call followed
// by a plain reply) deterministically.
type fakeProvider struct {
	replies []model.ChatMessage
	calls   int
}

func (f *fakeProvider) next() model.ChatMessage {
	if f.calls >= len(f.replies) {
		return model.ChatMessage{Role: model.RoleAssistant, Content: ""}
	}
	r := f.replies[f.calls]
	f.calls++
	return r
}

func (f *fakeProvider) Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []provider.ToolSchema, params provider.Params) (*model.ChatMessage, error) {
	msg := f.next()
	return &msg, nil
}

func (f *fakeProvider) Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []provider.ToolSchema, params provider.Params, ch chan<- provider.StreamChunk) error {
	defer close(ch)
	msg := f.next()
	if msg.Content != "" {
		ch <- provider.StreamChunk{ContentDelta: msg.Content}
	}
	ch <- provider.StreamChunk{Done: true, Final: &msg}
	return nil
}

type collectingSink struct {
	events []Event
}

func (s *collectingSink) Emit(e Event) error { s.events = append(s.events, e); return nil }

func (s *collectingSink) deltasForNode(node string) string {
	var out string
	for _, e := range s.events {
		if e.Kind == EventChatModelStream && e.Node == node {
			out += e.Delta
		}
	}
	return out
}

func (s *collectingSink) has(kind EventKind) bool {
	for _, e := range s.events {
		if e.Kind == kind {
			return true
		}
	}
	return false
}

func newTestExecutor(t *testing.T, fp *fakeProvider) *Executor {
	t.Helper()
	deps := Deps{
		Provider:            fp,
		Tools:               NewRegistry(),
		SystemPrompt:        "be helpful",
		MaxHistoryMessages:  40,
		MaxHistoryTokens:    8000,
		DeepSearchMaxRounds: 2,
	}
	ex, err := New(deps, graph.NewMemoryCheckpointStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	return ex
}

func TestExecutor_Chat_SimpleReply(t *testing.T) {
	fp := &fakeProvider{replies: []model.ChatMessage{
		{Role: model.RoleAssistant, Content: "hi there"},
	}}
	ex := newTestExecutor(t, fp)
	sink := &collectingSink{}

	result, err := ex.Invoke(context.Background(), InvokeRequest{
		ThreadID: "thread-1",
		Patch: &model.GraphState{
			Mode:     model.ModeChat,
			Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "hello"}},
		},
		Sink: sink,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	last := result.Messages[len(result.Messages)-1]
	if last.Role != model.RoleAssistant || last.Content != "hi there" {
		t.Fatalf("unexpected final message: %+v", last)
	}
	if sink.deltasForNode("chatbot") != "hi there" {
		t.Errorf("expected chatbot's reply streamed to the sink, got %q", sink.deltasForNode("chatbot"))
	}
	if !sink.has(EventNodeStart) || !sink.has(EventNodeEnd) {
		t.Error("expected node start/end events to be emitted")
	}
}

func TestExecutor_Chat_ToolCallLoop(t *testing.T) {
	fp := &fakeProvider{replies: []model.ChatMessage{
		{Role: model.RoleAssistant, ToolCalls: []model.ToolCall{{ID: "call-1", Name: "web_search", Arguments: `{"query":"go"}`}}},
		{Role: model.RoleAssistant, Content: "final answer"},
	}}
	deps := Deps{
		Provider:            fp,
		Tools:               NewRegistry(NewWebSearchTool(stubSearcher{})),
		MaxHistoryMessages:  40,
		MaxHistoryTokens:    8000,
		DeepSearchMaxRounds: 2,
	}
	ex, err := New(deps, graph.NewMemoryCheckpointStore())
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	sink := &collectingSink{}

	result, err := ex.Invoke(context.Background(), InvokeRequest{
		ThreadID: "thread-2",
		Patch: &model.GraphState{
			Mode:     model.ModeChat,
			Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "search something"}},
		},
		Sink: sink,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	var sawToolResult, sawFinal bool
	for _, m := range result.Messages {
		if m.Role == model.RoleTool && m.ToolCallID == "call-1" {
			sawToolResult = true
		}
		if m.Role == model.RoleAssistant && m.Content == "final answer" {
			sawFinal = true
		}
	}
	if !sawToolResult {
		t.Error("expected a tool-result message for call-1")
	}
	if !sawFinal {
		t.Error("expected the final assistant reply after the tool loop")
	}
	if !sink.has(EventToolStart) || !sink.has(EventToolEnd) {
		t.Error("expected tool_start/tool_end events")
	}
}

type stubSearcher struct{}

func (stubSearcher) Call(ctx context.Context, input string) (string, error) {
	return "stub search result for: " + input, nil
}

func TestExecutor_DeepSearch_NoKnowledgeBaseEmptyPlanGoesToSummary(t *testing.T) {
	fp := &fakeProvider{replies: []model.ChatMessage{
		{Role: model.RoleAssistant, Content: `{"queries": []}`}, // planning
		{Role: model.RoleAssistant, Content: "cited answer"},    // summary
	}}
	ex := newTestExecutor(t, fp)
	sink := &collectingSink{}

	result, err := ex.Invoke(context.Background(), InvokeRequest{
		ThreadID: "thread-3",
		Patch: &model.GraphState{
			Mode:     model.ModeDeepSearch,
			Messages: []model.ChatMessage{{Role: model.RoleUser, Content: "what happened today"}},
		},
		Sink: sink,
	})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	last := result.Messages[len(result.Messages)-1]
	if last.Content != "cited answer" {
		t.Fatalf("expected summary's reply as the final message, got %+v", last)
	}
	if sink.deltasForNode("summary") != "cited answer" {
		t.Errorf("expected summary's reply streamed, got %q", sink.deltasForNode("summary"))
	}
	if sink.deltasForNode("planning") != "" {
		t.Error("planning must never stream to the client")
	}
}
