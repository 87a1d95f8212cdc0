package transport

import (
	"encoding/json"
	"net/http"

	"github.com/agentcore/orchestrator/internal/apperr"
)

// handleSiblings serves GET /conversations/{id}/messages/{messageId}/siblings:
// a thin projection of the message tree's branch-sibling lookup.
func (h *Handler) handleSiblings(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	conversationID := r.PathValue("id")
	messageID := r.PathValue("messageId")

	if _, err := h.Conversations.EnsureOwner(r.Context(), conversationID, sess.UserID); err != nil {
		writeError(w, err)
		return
	}

	res, err := h.Conversations.GetSiblingMessages(r.Context(), messageID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, res)
}

// handleHistory serves GET /conversations/{id}/history: the full message
// set plus the conversation's current branch pointer, left for the
// caller to linearise.
func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	conversationID := r.PathValue("id")

	res, err := h.Conversations.History(r.Context(), sess.UserID, conversationID)
	if err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, res)
}

type setCurrentMessageRequest struct {
	MessageID string `json:"messageId"`
}

// handleSetCurrentMessage serves POST /conversations/{id}/current-message:
// moves the conversation's branch pointer, e.g. after the UI navigates
// between regenerated siblings.
func (h *Handler) handleSetCurrentMessage(w http.ResponseWriter, r *http.Request) {
	sess := sessionFromContext(r.Context())
	conversationID := r.PathValue("id")

	var req setCurrentMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.MessageID == "" {
		writeError(w, apperr.New(apperr.Validation, "transport.bad_request", "messageId is required"))
		return
	}

	if _, err := h.Conversations.EnsureOwner(r.Context(), conversationID, sess.UserID); err != nil {
		writeError(w, err)
		return
	}

	if err := h.Conversations.SetCurrentMessage(r.Context(), conversationID, req.MessageID); err != nil {
		writeError(w, err)
		return
	}
	writeSuccess(w, nil)
}
