package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
)

// ctxAwareProvider streams a fixed sequence of deltas, stopping the
// moment ctx is cancelled — mirroring the real provider adapters'
// select-on-ctx.Done streaming loops (openai_compatible.go, gemini.go).
type ctxAwareProvider struct {
	deltas []string
}

func (p *ctxAwareProvider) Invoke(ctx context.Context, messages []model.ChatMessage, toolSchemas []provider.ToolSchema, params provider.Params) (*model.ChatMessage, error) {
	return &model.ChatMessage{Role: model.RoleAssistant}, nil
}

func (p *ctxAwareProvider) Stream(ctx context.Context, messages []model.ChatMessage, toolSchemas []provider.ToolSchema, params provider.Params, ch chan<- provider.StreamChunk) error {
	defer close(ch)
	var full string
	for _, d := range p.deltas {
		full += d
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ch <- provider.StreamChunk{ContentDelta: d}:
		}
	}
	ch <- provider.StreamChunk{Done: true, Final: &model.ChatMessage{Role: model.RoleAssistant, Content: full}}
	return nil
}

// failAfterSink fails starting from its n'th Emit call (1-indexed),
// standing in for a ChanSink whose channel buffer has filled up.
type failAfterSink struct {
	n     int
	calls int
}

func (s *failAfterSink) Emit(e Event) error {
	s.calls++
	if s.calls >= s.n {
		return errors.New("buffer full")
	}
	return nil
}

func TestStreamAssistantReply_AbortsOnSinkBackPressure(t *testing.T) {
	deps := Deps{Provider: &ctxAwareProvider{deltas: []string{"a", "b", "c", "d"}}}
	sink := &failAfterSink{n: 2}

	_, err := streamAssistantReply(context.Background(), deps, "chatbot", nil, nil, sink)
	if err == nil {
		t.Fatal("expected persistent sink back-pressure to abort the turn with an error")
	}
}

func TestStreamAssistantReply_SucceedsWithoutBackPressure(t *testing.T) {
	deps := Deps{Provider: &ctxAwareProvider{deltas: []string{"a", "b"}}}
	sink := &collectingSink{}

	final, err := streamAssistantReply(context.Background(), deps, "chatbot", nil, nil, sink)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if final.Content != "ab" {
		t.Fatalf("expected assembled content %q, got %q", "ab", final.Content)
	}
	if got := sink.deltasForNode("chatbot"); got != "ab" {
		t.Fatalf("expected sink to receive every delta, got %q", got)
	}
}
