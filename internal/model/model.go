// Package model defines the data types shared across the orchestrator:
// conversations, the message tree, checkpoints, graph state and the
// ephemeral retrieval types that flow between components.
package model

import "time"

// Role identifies the speaker of a Message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Mode selects which sub-graph the Graph Executor runs for a turn.
type Mode string

const (
	ModeChat       Mode = "chat"
	ModeDeepSearch Mode = "deep_search"
)

// FusionMode selects how hybrid retrieval combines vector and lexical hits.
type FusionMode string

const (
	FusionUnion        FusionMode = "union"
	FusionIntersection FusionMode = "intersection"
)

// Conversation is owned by a user and roots a message tree plus a
// checkpoint thread (thread id == conversation id).
type Conversation struct {
	ID               string
	UserID           string
	Title            string
	ModelCode        string
	LastMessageID    string
	LastMessageAt    time.Time
	CurrentMessageID string
	CreatedAt        time.Time
}

// Message is a node in a conversation's message tree. Siblings (same
// ParentID) represent alternative regenerations of the same turn.
type Message struct {
	ID           string
	ConversationID string
	ParentID     string // empty for the root message
	CheckpointID string // weak reference into the checkpoint store; empty if unset
	Role         Role
	Content      string
	ContentType  string
	TokenCount   int
	ModelCode    string
	CreatedAt    time.Time
}

// Checkpoint is a node in a per-thread append-only linked list of graph
// states. Thread identity equals the owning conversation's id.
type Checkpoint struct {
	ID                 string
	ThreadID           string
	ParentCheckpointID string // empty for the thread's root checkpoint
	MessageCount       int
	State              *GraphState
	CreatedAt          time.Time
}

// Reference is an ephemeral retrieved snippet grounding an answer.
type Reference struct {
	Source     string
	Snippet    string
	Score      float64
	FileName   string
	ChunkIndex int
	QueryKey   string
}

// GraphState is the per-invocation state threaded through the graph
// executor. The Messages channel uses an append-merge reducer; every
// other channel is replace-on-patch.
type GraphState struct {
	Messages       []ChatMessage
	Mode           Mode
	Question       string
	SearchQueries  []string
	References     map[string][]Reference // query/source key -> references
	PlanningRounds int
	KnowledgeBaseIDs []string
	ConversationID string

	// HistoryContext and KBContext hold the formatted strings produced by
	// context_retrieval, injected into a single "sys_context" system
	// message by chatbot. Neither is persisted past the turn.
	HistoryContext string
	KBContext      string
}

// Clone returns a deep-enough copy of the state so that a forked
// invocation can mutate it without aliasing the ancestor's slices/maps.
func (s *GraphState) Clone() *GraphState {
	if s == nil {
		return &GraphState{References: map[string][]Reference{}}
	}
	out := &GraphState{
		Mode:             s.Mode,
		Question:         s.Question,
		PlanningRounds:   s.PlanningRounds,
		ConversationID:   s.ConversationID,
		HistoryContext:   s.HistoryContext,
		KBContext:        s.KBContext,
		Messages:         append([]ChatMessage(nil), s.Messages...),
		SearchQueries:    append([]string(nil), s.SearchQueries...),
		KnowledgeBaseIDs: append([]string(nil), s.KnowledgeBaseIDs...),
		References:       make(map[string][]Reference, len(s.References)),
	}
	for k, v := range s.References {
		out.References[k] = append([]Reference(nil), v...)
	}
	return out
}

// ChatMessage is the serializable message shape stored inside GraphState
// and persisted as part of a Checkpoint. It intentionally mirrors the
// provider-neutral shape expected by internal/provider rather than any
// single upstream SDK's message type.
type ChatMessage struct {
	Role      Role
	Content   string
	ToolCalls []ToolCall
	ToolCallID string // set on RoleTool messages: which call this answers
	Name       string // tool name on RoleTool messages; tag marker (e.g. "sys_context") on injected RoleSystem messages
	IsError    bool
}

// ToolCall is the normalised shape of a model-requested tool invocation,
// regardless of how the upstream provider encoded it.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // raw JSON object
}

// Session is the Redis-resident record bound to one (user, token) pair.
type Session struct {
	UserID    string
	Token     string
	UserView  map[string]any
	CreatedAt time.Time
}

// MessageEmbedding carries a fixed-dimension vector for a persisted
// conversation message, used by semantic search over history.
type MessageEmbedding struct {
	MessageID      string
	ConversationID string
	Vector         []float32
}

// DocumentChunk carries a fixed-dimension vector and identifying
// metadata for a chunk of a knowledge-base document.
type DocumentChunk struct {
	ID            string
	KnowledgeBaseID string
	Content       string
	Source        string
	ChunkIndex    int
	Vector        []float32
	Metadata      map[string]any
}
