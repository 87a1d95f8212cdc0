package provider

import (
	"context"
	"testing"

	"github.com/tmc/langchaingo/llms"

	"github.com/agentcore/orchestrator/internal/model"
)

// mockStreamingModel mirrors prebuilt/chat_agent_test.go's MockModel: it only
// emits chunks through WithStreamingFunc, with no non-streaming shortcut —
// the exact shape ResponsesBridge exists to wrap.
type mockStreamingModel struct {
	chunks []string
}

func (m *mockStreamingModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	opts := llms.CallOptions{}
	for _, opt := range options {
		opt(&opts)
	}
	var full string
	if opts.StreamingFunc != nil {
		for _, c := range m.chunks {
			full += c
			if err := opts.StreamingFunc(ctx, []byte(c)); err != nil {
				return nil, err
			}
		}
	}
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: full}}}, nil
}

func (m *mockStreamingModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return "", nil
}

func TestResponsesBridge_Stream_ForwardsChunksAndFinal(t *testing.T) {
	bridge := NewResponsesBridge(&mockStreamingModel{chunks: []string{"Hel", "lo"}})
	ch := make(chan StreamChunk, 10)

	err := bridge.Stream(context.Background(), []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}}, nil, Params{}, ch)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var deltas []string
	var final *model.ChatMessage
	for chunk := range ch {
		if chunk.Done {
			final = chunk.Final
			continue
		}
		deltas = append(deltas, chunk.ContentDelta)
	}

	if len(deltas) != 2 || deltas[0] != "Hel" || deltas[1] != "lo" {
		t.Fatalf("unexpected deltas: %+v", deltas)
	}
	if final == nil || final.Content != "Hello" {
		t.Fatalf("expected assembled final content %q, got %+v", "Hello", final)
	}
}

func TestResponsesBridge_Invoke_AssemblesFromStream(t *testing.T) {
	bridge := NewResponsesBridge(&mockStreamingModel{chunks: []string{"a", "b", "c"}})

	msg, err := bridge.Invoke(context.Background(), []model.ChatMessage{{Role: model.RoleUser, Content: "hi"}}, nil, Params{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if msg.Content != "abc" {
		t.Fatalf("expected %q, got %q", "abc", msg.Content)
	}
	if msg.Role != model.RoleAssistant {
		t.Fatalf("expected assistant role, got %v", msg.Role)
	}
}
