package transport

import (
	"context"
	"strings"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
)

const titleSystemPrompt = "Write a short title (a few words, no punctuation) summarising the user's message below. Respond with the title only."

// generateTitle produces a conversation's title on its first turn. A nil
// Titler (no provider configured for this) falls back to truncating the
// turn's own content, so cold conversations always get some title.
func (h *Handler) generateTitle(ctx context.Context, content string) string {
	if h.Titler == nil {
		return truncateTitle(content, h.MaxTitleLength)
	}

	reply, err := h.Titler.Invoke(ctx, []model.ChatMessage{
		{Role: model.RoleSystem, Content: titleSystemPrompt},
		{Role: model.RoleUser, Content: content},
	}, nil, provider.Params{MaxTokens: 32})
	if err != nil || reply == nil || reply.Content == "" {
		h.Logger.Warn("title generation failed, falling back to truncated content: %v", err)
		return truncateTitle(content, h.MaxTitleLength)
	}
	return truncateTitle(reply.Content, h.MaxTitleLength)
}

// truncateTitle bounds a title to max runes, trimming surrounding
// whitespace/quotes a chat model commonly wraps a short title in.
func truncateTitle(s string, max int) string {
	s = strings.Trim(strings.TrimSpace(s), `"'`)
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}
