package transport

import (
	"encoding/json"
	"net/http"

	"github.com/agentcore/orchestrator/internal/apperr"
)

// The five NDJSON record shapes SPEC_FULL's Streaming Transport section
// names. Every record carries its own "type" discriminator since the
// wire format is one bare JSON object per line, not SSE event/data
// framing.
type chunkEvent struct {
	Type           string `json:"type"`
	Content        string `json:"content"`
	ConversationID string `json:"conversationId"`
	MessageID      string `json:"messageId"`
}

type toolEvent struct {
	Type           string `json:"type"`
	Tool           string `json:"tool"`
	ConversationID string `json:"conversationId"`
}

type doneEvent struct {
	Type           string `json:"type"`
	MessageID      string `json:"messageId"`
	ConversationID string `json:"conversationId"`
	ParentID       string `json:"parentId"`
	UserMessageID  string `json:"userMessageId"`
	TokenCount     int    `json:"tokenCount"`
	Title          string `json:"title,omitempty"`
}

type errorEvent struct {
	Type    string `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

// writeEvent marshals one NDJSON record and flushes it immediately, the
// same synchronous write-then-flush discipline the teacher's sseEvent
// helper uses.
func writeEvent(w http.ResponseWriter, flusher http.Flusher, v any) {
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	b = append(b, '\n')
	_, _ = w.Write(b)
	flusher.Flush()
}

func errorCode(err error) string {
	if ae, ok := err.(*apperr.Error); ok {
		return string(ae.Kind)
	}
	return string(apperr.Internal)
}
