package executor

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agentcore/orchestrator/internal/model"
)

const sysContextTag = "sys_context"

// pronouns is a small, deliberately non-exhaustive list covering the
// common English and Chinese third-person/demonstrative pronouns the
// rewrite node's ambiguity check looks for.
var pronouns = []string{
	"it", "this", "that", "these", "those", "he", "she", "they", "him", "her", "them",
	"它", "这个", "那个", "这些", "那些", "他", "她", "他们", "她们",
}

func lastUserMessageIndex(messages []model.ChatMessage) int {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].Role == model.RoleUser {
			return i
		}
	}
	return -1
}

func containsPronoun(text string) bool {
	lower := strings.ToLower(text)
	for _, p := range pronouns {
		if strings.Contains(lower, p) {
			return true
		}
	}
	return false
}

// needsRewrite reports whether the last user message is a pronoun-bearing
// follow-up with at least one prior message to resolve it against.
func needsRewrite(messages []model.ChatMessage) bool {
	idx := lastUserMessageIndex(messages)
	if idx <= 0 {
		return false
	}
	return containsPronoun(messages[idx].Content)
}

// lastNMessages returns up to n messages ending at (and including) idx.
func lastNMessages(messages []model.ChatMessage, idx, n int) []model.ChatMessage {
	start := idx - n + 1
	if start < 0 {
		start = 0
	}
	return messages[start : idx+1]
}

// injectSysContext inserts (or replaces, if already present) a single
// system message carrying kbContext/historyContext, tagged via Name so
// repeated chatbot turns in one invocation don't duplicate it. It is
// inserted immediately after the leading instruction system message, or
// at the front if there is none.
func injectSysContext(messages []model.ChatMessage, kbContext, historyContext string) []model.ChatMessage {
	content := formatSysContext(kbContext, historyContext)
	if content == "" {
		return messages
	}

	for i, m := range messages {
		if m.Role == model.RoleSystem && m.Name == sysContextTag {
			out := append([]model.ChatMessage(nil), messages...)
			out[i].Content = content
			return out
		}
	}

	insertAt := 0
	if len(messages) > 0 && messages[0].Role == model.RoleSystem {
		insertAt = 1
	}

	out := make([]model.ChatMessage, 0, len(messages)+1)
	out = append(out, messages[:insertAt]...)
	out = append(out, model.ChatMessage{Role: model.RoleSystem, Name: sysContextTag, Content: content})
	out = append(out, messages[insertAt:]...)
	return out
}

func formatSysContext(kbContext, historyContext string) string {
	var sb strings.Builder
	if historyContext != "" {
		sb.WriteString("Relevant prior conversation:\n")
		sb.WriteString(historyContext)
		sb.WriteString("\n\n")
	}
	if kbContext != "" {
		sb.WriteString("Relevant knowledge base content:\n")
		sb.WriteString(kbContext)
	}
	return strings.TrimSpace(sb.String())
}

// formatHistoryContext renders semantic-search hits over prior messages
// as a plain, unnumbered block — this is read-only grounding text, not
// citeable the way knowledge-base/search references are.
func formatHistoryContext(snippets []string) string {
	if len(snippets) == 0 {
		return ""
	}
	return strings.Join(snippets, "\n---\n")
}

// formatReferencesWithCitations renders every reference across all keys
// in references with a single, stable numbering [1]..[N], used both by
// kb_precheck/search's context text and summary's final citation prompt.
func formatReferencesWithCitations(references map[string][]model.Reference) string {
	keys := make([]string, 0, len(references))
	for k := range references {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var sb strings.Builder
	n := 0
	for _, key := range keys {
		for _, ref := range references[key] {
			n++
			fmt.Fprintf(&sb, "[%d] (%s) %s: %s\n", n, key, ref.FileName, ref.Snippet)
		}
	}
	return sb.String()
}
