package transport

import (
	"bufio"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/conversation"
	"github.com/agentcore/orchestrator/internal/executor"
	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/log"
)

type fakeStore struct {
	conv     *model.Conversation
	messages map[string]*model.Message
	titled   string
	current  string
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		conv:     &model.Conversation{ID: "conv-1", UserID: "user-1"},
		messages: map[string]*model.Message{},
	}
}

func (f *fakeStore) CreateConversation(ctx context.Context, userID, modelCode string) (*model.Conversation, error) {
	return f.conv, nil
}

func (f *fakeStore) EnsureOwner(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	if conversationID != f.conv.ID || userID != f.conv.UserID {
		return nil, apperr.New(apperr.Forbidden, "x", "not yours")
	}
	return f.conv, nil
}

func (f *fakeStore) PersistMessage(ctx context.Context, in conversation.PersistMessageInput) (*model.Message, error) {
	msg := &model.Message{
		ID:             "msg-" + string(in.Role) + "-" + in.Content,
		ConversationID: in.ConversationID,
		ParentID:       in.ParentID,
		CheckpointID:   in.CheckpointID,
		Role:           in.Role,
		Content:        in.Content,
		ContentType:    in.ContentType,
		TokenCount:     in.TokenCount,
		ModelCode:      in.ModelCode,
	}
	f.messages[msg.ID] = msg
	return msg, nil
}

func (f *fakeStore) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	m, ok := f.messages[id]
	if !ok {
		return nil, apperr.New(apperr.NotFound, "x", "not found")
	}
	return m, nil
}

func (f *fakeStore) SetCurrentMessage(ctx context.Context, conversationID, messageID string) error {
	f.current = messageID
	return nil
}

func (f *fakeStore) SetTitle(ctx context.Context, conversationID, title string) error {
	f.titled = title
	return nil
}

func (f *fakeStore) GetSiblingMessages(ctx context.Context, messageID string) (*conversation.SiblingResult, error) {
	return &conversation.SiblingResult{Siblings: []*model.Message{f.messages[messageID]}, Current: 0}, nil
}

func (f *fakeStore) History(ctx context.Context, userID, conversationID string) (*conversation.HistoryResult, error) {
	return &conversation.HistoryResult{CurrentMessageID: f.current}, nil
}

func (f *fakeStore) SaveMessageEmbedding(ctx context.Context, emb model.MessageEmbedding) error {
	return nil
}

type fakeAuth struct{}

func (fakeAuth) Authenticate(ctx context.Context, token string) (*model.Session, error) {
	if token != "good-token" {
		return nil, apperr.New(apperr.Unauthorized, "x", "bad token")
	}
	return &model.Session{UserID: "user-1", Token: token}, nil
}

type fakeGraph struct{}

func (fakeGraph) Invoke(ctx context.Context, req executor.InvokeRequest) (*model.GraphState, error) {
	emitChunkForTest(req.Sink)
	return &model.GraphState{
		Messages: append(append([]model.ChatMessage{}, req.Patch.Messages...), model.ChatMessage{
			Role: model.RoleAssistant, Content: "a reply",
		}),
	}, nil
}

func emitChunkForTest(sink executor.Sink) {
	if sink == nil {
		return
	}
	sink.Emit(executor.Event{Kind: executor.EventChatModelStream, Node: "chatbot", Delta: "a reply"})
}

func (fakeGraph) LatestCheckpoint(ctx context.Context, threadID string) (*graph.Checkpoint, error) {
	return &graph.Checkpoint{ID: "ckpt-1", ThreadID: threadID}, nil
}

func newTestHandler(store *fakeStore) *Handler {
	return &Handler{
		Conversations:  store,
		Sessions:       fakeAuth{},
		Graph:          fakeGraph{},
		MaxTitleLength: 20,
		Logger:         log.NewDefaultLogger(log.LogLevelError),
	}
}

func TestHandleChatStream_RejectsMissingToken(t *testing.T) {
	h := newTestHandler(newFakeStore())
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"content":"hi"}`))
	w := httptest.NewRecorder()

	h.NewMux().ServeHTTP(w, req)

	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", w.Code)
	}
}

func TestHandleChatStream_StreamsChunksAndDone(t *testing.T) {
	h := newTestHandler(newFakeStore())
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"conversationId":"conv-1","content":"hello"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	h.NewMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); ct != "application/x-ndjson" {
		t.Fatalf("expected ndjson content type, got %q", ct)
	}

	var sawChunk, sawDone bool
	scanner := bufio.NewScanner(w.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.Contains(line, `"type":"chunk"`) {
			sawChunk = true
		}
		if strings.Contains(line, `"type":"done"`) {
			sawDone = true
		}
	}
	if !sawChunk {
		t.Fatal("expected a chunk event")
	}
	if !sawDone {
		t.Fatal("expected a done event")
	}
}

func TestHandleChatStream_RegenerateForksDirectlyFromParentMessageID(t *testing.T) {
	store := newFakeStore()
	// The root user message of the conversation (ParentID empty) — exactly
	// the shape that previously made the extra assistant-parent hop fail.
	store.messages["msg-user"] = &model.Message{ID: "msg-user", ConversationID: "conv-1", Content: "original", CheckpointID: "ckpt-0"}
	store.messages["msg-assistant"] = &model.Message{ID: "msg-assistant", ConversationID: "conv-1", ParentID: "msg-user", Content: "old reply"}

	h := newTestHandler(store)
	req := httptest.NewRequest(http.MethodPost, "/chat/stream", strings.NewReader(`{"conversationId":"conv-1","regenerate":true,"parentMessageId":"msg-user"}`))
	req.Header.Set("Authorization", "Bearer good-token")
	w := httptest.NewRecorder()

	h.NewMux().ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"userMessageId":"msg-user"`) {
		t.Fatalf("expected done event to reference the named parent message, got %s", w.Body.String())
	}
	if !strings.Contains(w.Body.String(), `"parentId":"msg-user"`) {
		t.Fatalf("expected the new assistant reply to be parented directly off parentMessageId, got %s", w.Body.String())
	}
}
