package transport

import (
	"context"

	"github.com/agentcore/orchestrator/internal/model"
)

// queueEmbeddingWriteback schedules the Async Task Runner's best-effort
// write of both turn messages' embeddings. It never blocks or affects
// the response: a dropped or failed write just means context_retrieval's
// semantic search over history misses this turn, which it already
// tolerates.
func (h *Handler) queueEmbeddingWriteback(conversationID string, messages ...*model.Message) {
	if h.Async == nil || h.Embedder == nil {
		return
	}
	for _, msg := range messages {
		msg := msg
		h.Async.Submit(func(ctx context.Context) error {
			vec, err := h.Embedder.Embed(ctx, msg.Content)
			if err != nil {
				return err
			}
			return h.Conversations.SaveMessageEmbedding(ctx, model.MessageEmbedding{
				MessageID:      msg.ID,
				ConversationID: conversationID,
				Vector:         vec,
			})
		})
	}
}
