package transport

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/conversation"
	"github.com/agentcore/orchestrator/internal/executor"
	"github.com/agentcore/orchestrator/internal/model"
)

type chatRequest struct {
	ConversationID   string   `json:"conversationId"`
	Content          string   `json:"content"`
	ModelCode        string   `json:"modelCode"`
	ModelID          string   `json:"modelId"`
	ParentMessageID  string   `json:"parentMessageId"`
	Regenerate       bool     `json:"regenerate"`
	Mode             string   `json:"mode"`
	KnowledgeBaseIDs []string `json:"knowledgeBaseIds"`
}

type invokeResult struct {
	state *model.GraphState
	err   error
}

// handleChatStream is the orchestrator's one entry point: resolve or
// create the conversation, persist the user's turn, run the graph while
// forwarding its events as NDJSON records, then persist the assistant's
// reply and emit done. Errors discovered before the stream starts return
// the JSON envelope; errors after become a terminal error event.
func (h *Handler) handleChatStream(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	ctx := r.Context()

	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.Validation, "transport.bad_request", "invalid request body"))
		return
	}
	if req.Content == "" && !req.Regenerate {
		writeError(w, apperr.New(apperr.Validation, "transport.empty_content", "content is required"))
		return
	}

	mode := model.ModeChat
	if req.Mode == string(model.ModeDeepSearch) {
		mode = model.ModeDeepSearch
	}

	conv, err := h.resolveConversation(ctx, sess.UserID, req.ConversationID, req.ModelCode)
	if err != nil {
		writeError(w, err)
		return
	}

	userMsg, parentCheckpointID, turnContent, err := h.resolveTurn(ctx, conv, req)
	if err != nil {
		writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, apperr.New(apperr.Internal, "transport.no_flush", "streaming not supported"))
		return
	}
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := make(chan executor.Event, 64)
	sink := executor.NewChanSink(events)
	patch := &model.GraphState{
		Messages:         []model.ChatMessage{{Role: model.RoleUser, Content: turnContent}},
		Mode:             mode,
		ConversationID:   conv.ID,
		KnowledgeBaseIDs: req.KnowledgeBaseIDs,
	}

	resultCh := make(chan invokeResult, 1)
	go func() {
		state, err := h.Graph.Invoke(ctx, executor.InvokeRequest{
			ThreadID:           conv.ID,
			ParentCheckpointID: parentCheckpointID,
			Patch:              patch,
			Sink:               sink,
		})
		close(events)
		resultCh <- invokeResult{state: state, err: err}
	}()

	for ev := range events {
		switch ev.Kind {
		case executor.EventChatModelStream:
			writeEvent(w, flusher, chunkEvent{Type: "chunk", Content: ev.Delta, ConversationID: conv.ID, MessageID: "pending"})
		case executor.EventToolStart:
			writeEvent(w, flusher, toolEvent{Type: "tool_start", Tool: ev.Tool, ConversationID: conv.ID})
		case executor.EventToolEnd:
			writeEvent(w, flusher, toolEvent{Type: "tool_end", Tool: ev.Tool, ConversationID: conv.ID})
		}
	}

	result := <-resultCh
	if result.err != nil {
		writeEvent(w, flusher, errorEvent{Type: "error", Message: result.err.Error(), Code: errorCode(result.err)})
		return
	}

	assistantContent := ""
	if n := len(result.state.Messages); n > 0 {
		assistantContent = result.state.Messages[n-1].Content
	}

	checkpointID := ""
	if cp, err := h.Graph.LatestCheckpoint(ctx, conv.ID); err == nil && cp != nil {
		checkpointID = cp.ID
	}

	assistantMsg, err := h.Conversations.PersistMessage(ctx, conversation.PersistMessageInput{
		ConversationID: conv.ID,
		ParentID:       userMsg.ID,
		CheckpointID:   checkpointID,
		Role:           model.RoleAssistant,
		Content:        assistantContent,
		ContentType:    "text",
		TokenCount:     executor.EstimateTokens(assistantContent),
		ModelCode:      req.ModelCode,
	})
	if err != nil {
		writeEvent(w, flusher, errorEvent{Type: "error", Message: err.Error(), Code: errorCode(err)})
		return
	}

	var title string
	if conv.Title == "" {
		title = h.generateTitle(ctx, turnContent)
		if title != "" {
			if err := h.Conversations.SetTitle(ctx, conv.ID, title); err != nil {
				h.Logger.Warn("failed to persist generated title: %v", err)
			}
		}
	}

	if err := h.Conversations.SetCurrentMessage(ctx, conv.ID, assistantMsg.ID); err != nil {
		h.Logger.Warn("failed to advance current message pointer: %v", err)
	}

	h.queueEmbeddingWriteback(conv.ID, userMsg, assistantMsg)

	writeEvent(w, flusher, doneEvent{
		Type:           "done",
		MessageID:      assistantMsg.ID,
		ConversationID: conv.ID,
		ParentID:       userMsg.ID,
		UserMessageID:  userMsg.ID,
		TokenCount:     assistantMsg.TokenCount,
		Title:          title,
	})
}

// resolveTurn implements fork/regenerate resolution: a regenerate request's
// parentMessageId names the message to fork a new reply from directly —
// the new assistant message becomes that message's child, forked at its
// CheckpointID — matching "从父消息分叉生成新回复" (fork a new reply as a
// child of the named parent message). A normal turn persists a brand new
// user message, parented off the caller's chosen branch point (or the
// conversation's current leaf).
func (h *Handler) resolveTurn(ctx context.Context, conv *model.Conversation, req chatRequest) (userMsg *model.Message, parentCheckpointID, turnContent string, err error) {
	if req.Regenerate {
		parentMsg, err := h.Conversations.GetMessage(ctx, req.ParentMessageID)
		if err != nil {
			return nil, "", "", err
		}
		return parentMsg, parentMsg.CheckpointID, parentMsg.Content, nil
	}

	parentMessageID := req.ParentMessageID
	if parentMessageID == "" {
		parentMessageID = conv.CurrentMessageID
	}
	if parentMessageID != "" {
		parentMsg, err := h.Conversations.GetMessage(ctx, parentMessageID)
		if err != nil {
			return nil, "", "", err
		}
		parentCheckpointID = parentMsg.CheckpointID
	}

	userMsg, err = h.Conversations.PersistMessage(ctx, conversation.PersistMessageInput{
		ConversationID: conv.ID,
		ParentID:       parentMessageID,
		CheckpointID:   parentCheckpointID,
		Role:           model.RoleUser,
		Content:        req.Content,
		ContentType:    "text",
		ModelCode:      req.ModelCode,
	})
	if err != nil {
		return nil, "", "", err
	}
	return userMsg, parentCheckpointID, req.Content, nil
}
