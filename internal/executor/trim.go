package executor

import "github.com/agentcore/orchestrator/internal/model"

// estimateTokens approximates token count as a char/2 proxy (two runes per
// token). No tokenizer dependency is wired for this (see DESIGN.md); it
// only needs to be a stable, monotonic proxy, and it's also the value
// reported to callers as a message's persisted token count, so it must
// match that contract exactly rather than just trim consistently.
const charsPerToken = 2

func estimateTokens(s string) int {
	n := len([]rune(s)) / charsPerToken
	if n == 0 && s != "" {
		n = 1
	}
	return n
}

// EstimateTokens exposes the same rune-length proxy for callers outside
// the package (the streaming transport's persisted message token_count).
func EstimateTokens(s string) int { return estimateTokens(s) }

// trimHistory keeps at most maxMessages messages and at most maxTokens
// estimated tokens, always keeping the most recent messages and always
// keeping a leading system message (the instruction prompt) if present.
func trimHistory(messages []model.ChatMessage, maxMessages, maxTokens int) []model.ChatMessage {
	if len(messages) == 0 {
		return messages
	}

	var lead *model.ChatMessage
	rest := messages
	if messages[0].Role == model.RoleSystem {
		lead = &messages[0]
		rest = messages[1:]
	}

	if maxMessages > 0 && len(rest) > maxMessages {
		rest = rest[len(rest)-maxMessages:]
	}

	if maxTokens > 0 {
		total := 0
		start := len(rest)
		for i := len(rest) - 1; i >= 0; i-- {
			total += estimateTokens(rest[i].Content)
			if total > maxTokens {
				break
			}
			start = i
		}
		rest = rest[start:]
	}

	if lead == nil {
		return rest
	}
	out := make([]model.ChatMessage, 0, len(rest)+1)
	out = append(out, *lead)
	out = append(out, rest...)
	return out
}
