// Package transport implements the Streaming Transport (C7): the
// NDJSON-over-HTTP push that carries one chat turn's chunk/tool/done
// events, grounded on teacher showcases/ai-pdf-chatbot/backend/server.go's
// http.Flusher + synchronous-write-per-event pattern, adapted from SSE
// framing to one-JSON-object-per-line records.
package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/asyncrunner"
	"github.com/agentcore/orchestrator/internal/conversation"
	"github.com/agentcore/orchestrator/internal/executor"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/internal/provider"
	"github.com/agentcore/orchestrator/internal/retrieval"
	"github.com/agentcore/orchestrator/log"
)

// ConversationStore is the subset of conversation.Store the transport
// drives directly.
type ConversationStore interface {
	CreateConversation(ctx context.Context, userID, modelCode string) (*model.Conversation, error)
	EnsureOwner(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
	PersistMessage(ctx context.Context, in conversation.PersistMessageInput) (*model.Message, error)
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	SetCurrentMessage(ctx context.Context, conversationID, messageID string) error
	SetTitle(ctx context.Context, conversationID, title string) error
	GetSiblingMessages(ctx context.Context, messageID string) (*conversation.SiblingResult, error)
	History(ctx context.Context, userID, conversationID string) (*conversation.HistoryResult, error)
	SaveMessageEmbedding(ctx context.Context, emb model.MessageEmbedding) error
}

// Authenticator validates the bearer token on every request, backed by
// internal/session.Gate.
type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.Session, error)
}

// GraphInvoker is the subset of internal/executor.Executor the transport
// drives: run one turn, then read back the checkpoint it produced.
type GraphInvoker interface {
	Invoke(ctx context.Context, req executor.InvokeRequest) (*model.GraphState, error)
	LatestCheckpoint(ctx context.Context, threadID string) (*graph.Checkpoint, error)
}

// Handler wires the Streaming Transport's HTTP surface to the rest of the
// orchestrator. Titler and Async/Embedder are optional: a nil Titler
// skips title generation, a nil Async or Embedder skips the embedding
// writeback.
type Handler struct {
	Conversations  ConversationStore
	Sessions       Authenticator
	Graph          GraphInvoker
	Titler         provider.Provider
	Async          *asyncrunner.Runner
	Embedder       retrieval.Embedder
	MaxTitleLength int
	Logger         log.Logger
}

// NewMux registers the orchestrator's entire HTTP surface: the one
// streaming entry point plus the three auxiliary read endpoints.
func (h *Handler) NewMux() *http.ServeMux {
	if h.MaxTitleLength <= 0 {
		h.MaxTitleLength = 20
	}
	if h.Logger == nil {
		h.Logger = log.NewDefaultLogger(log.LogLevelInfo)
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /chat/stream", h.withAuth(h.handleChatStream))
	mux.HandleFunc("GET /conversations/{id}/messages/{messageId}/siblings", h.withAuth(h.handleSiblings))
	mux.HandleFunc("GET /conversations/{id}/history", h.withAuth(h.handleHistory))
	mux.HandleFunc("POST /conversations/{id}/current-message", h.withAuth(h.handleSetCurrentMessage))
	return mux
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	status, env := apperr.ToEnvelope(err)
	writeJSON(w, status, env)
}

func writeSuccess(w http.ResponseWriter, data any) {
	writeJSON(w, http.StatusOK, apperr.Envelope{Success: true, Data: data})
}

// resolveConversation implements spec.md's "conversation created on first
// turn": an empty conversationId starts a new conversation for the
// caller; a populated one must already belong to them.
func (h *Handler) resolveConversation(ctx context.Context, userID, conversationID, modelCode string) (*model.Conversation, error) {
	if conversationID == "" {
		return h.Conversations.CreateConversation(ctx, userID, modelCode)
	}
	return h.Conversations.EnsureOwner(ctx, conversationID, userID)
}
