package executor

import (
	"context"

	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
)

// streamAssistantReply drives deps.Provider.Stream, forwarding every
// content delta to sink under node's name (subject to the output-node
// whitelist in emitChunk) and returning the assembled final message. If
// the sink reports persistent back-pressure mid-stream, the provider call
// is cancelled and the turn fails outright rather than silently losing a
// delta the persisted assistant content would no longer match.
// Shared by chatbot and summary — the graph's two output nodes.
func streamAssistantReply(ctx context.Context, deps Deps, node string, messages []model.ChatMessage, schemas []provider.ToolSchema, sink Sink) (*model.ChatMessage, error) {
	streamCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan provider.StreamChunk, 32)
	errCh := make(chan error, 1)
	go func() { errCh <- deps.Provider.Stream(streamCtx, messages, schemas, deps.Params, ch) }()

	var final *model.ChatMessage
	var sinkErr error
	for chunk := range ch {
		if chunk.Done {
			final = chunk.Final
			continue
		}
		if sinkErr != nil {
			continue
		}
		if err := emitChunk(sink, node, chunk.ContentDelta); err != nil {
			sinkErr = err
			cancel()
		}
	}
	streamErr := <-errCh
	if sinkErr != nil {
		return nil, apperr.Wrap(apperr.Internal, "executor."+node+"_backpressure", "event sink overflowed mid-stream", sinkErr)
	}
	if streamErr != nil {
		return nil, apperr.Wrap(apperr.ProviderError, "executor."+node+"_failed", "chat model call failed", streamErr)
	}
	if final == nil {
		return nil, apperr.New(apperr.ProviderError, "executor."+node+"_empty", "chat model returned no reply")
	}
	return final, nil
}
