// Package conversation implements the Conversation Store (C2): the
// conversation row and its message tree, backed by pgxpool.
package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/google/uuid"

	"github.com/agentcore/orchestrator/internal/apperr"
	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/internal/model"
)

// DBPool is the subset of pgxpool.Pool this store needs; mocked by pgxmock
// in tests, matching store/postgres's own narrowing of the pool interface.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Close()
}

// Store owns conversations and their message trees.
type Store struct {
	pool DBPool
}

func New(ctx context.Context, cfg config.Config) (*Store, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.PostgresDSN)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}
	poolCfg.MinConns = cfg.PoolMinConns
	poolCfg.MaxConns = cfg.PoolMaxConns
	poolCfg.MaxConnIdleTime = cfg.PoolMaxIdleTime

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}
	return &Store{pool: pool}, nil
}

// NewWithPool wires an existing pool (or a pgxmock.PgxPoolIface in tests).
func NewWithPool(pool DBPool) *Store {
	return &Store{pool: pool}
}

func (s *Store) Close() { s.pool.Close() }

func (s *Store) InitSchema(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS conversations (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL DEFAULT '',
			model_code TEXT NOT NULL DEFAULT '',
			last_message_id TEXT,
			last_message_at TIMESTAMPTZ,
			current_message_id TEXT,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_conversations_user_id ON conversations (user_id);

		CREATE TABLE IF NOT EXISTS messages (
			id TEXT PRIMARY KEY,
			conversation_id TEXT NOT NULL REFERENCES conversations(id),
			parent_id TEXT,
			checkpoint_id TEXT,
			role TEXT NOT NULL,
			content TEXT NOT NULL,
			content_type TEXT NOT NULL DEFAULT 'text',
			token_count INTEGER NOT NULL DEFAULT 0,
			model_code TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_messages_parent_id ON messages (parent_id, created_at, id);
		CREATE INDEX IF NOT EXISTS idx_messages_conversation_id ON messages (conversation_id);

		CREATE TABLE IF NOT EXISTS message_embeddings (
			message_id TEXT PRIMARY KEY REFERENCES messages(id),
			conversation_id TEXT NOT NULL,
			vector REAL[] NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_message_embeddings_conversation_id ON message_embeddings (conversation_id);

		CREATE TABLE IF NOT EXISTS document_chunks (
			id TEXT PRIMARY KEY,
			knowledge_base_id TEXT NOT NULL,
			content TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			chunk_index INTEGER NOT NULL DEFAULT 0,
			vector REAL[] NOT NULL,
			metadata JSONB NOT NULL DEFAULT '{}'
		);
		CREATE INDEX IF NOT EXISTS idx_document_chunks_kb_id ON document_chunks (knowledge_base_id);
	`)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

// CreateConversation inserts a new, empty conversation row owned by userID.
func (s *Store) CreateConversation(ctx context.Context, userID, modelCode string) (*model.Conversation, error) {
	conv := &model.Conversation{
		ID:        uuid.NewString(),
		UserID:    userID,
		ModelCode: modelCode,
		CreatedAt: time.Now(),
	}
	_, err := s.pool.Exec(ctx, `
		INSERT INTO conversations (id, user_id, title, model_code, created_at)
		VALUES ($1, $2, '', $3, $4)
	`, conv.ID, conv.UserID, conv.ModelCode, conv.CreatedAt)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "conversation.create_failed", "failed to create conversation", err)
	}
	return conv, nil
}

// EnsureOwner returns the conversation if userID owns it, else Forbidden.
// Every orchestrator entry point calls this first.
func (s *Store) EnsureOwner(ctx context.Context, conversationID, userID string) (*model.Conversation, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, user_id, title, model_code, last_message_id, last_message_at, current_message_id, created_at
		FROM conversations WHERE id = $1
	`, conversationID)

	conv, err := scanConversation(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "conversation.not_found", "conversation not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "conversation.query_failed", "failed to load conversation", err)
	}
	if conv.UserID != userID {
		return nil, apperr.New(apperr.Forbidden, "conversation.not_owner", "conversation is not owned by this user")
	}
	return conv, nil
}

// PersistMessageInput is the shape persist_message accepts.
type PersistMessageInput struct {
	ConversationID string
	ParentID       string
	CheckpointID   string
	Role           model.Role
	Content        string
	ContentType    string
	TokenCount     int
	ModelCode      string
}

// PersistMessage inserts a message and, in the same transaction, advances
// the owning conversation's last_message_id/last_message_at/
// current_message_id to the new row. Foreign-key violations on ParentID
// are a programming error and fail fast rather than being wrapped as a
// user-facing error kind.
func (s *Store) PersistMessage(ctx context.Context, in PersistMessageInput) (*model.Message, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, apperr.Wrap(apperr.Internal, "conversation.tx_begin_failed", "failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	msg := &model.Message{
		ID:             uuid.NewString(),
		ConversationID: in.ConversationID,
		ParentID:       in.ParentID,
		CheckpointID:   in.CheckpointID,
		Role:           in.Role,
		Content:        in.Content,
		ContentType:    in.ContentType,
		TokenCount:     in.TokenCount,
		ModelCode:      in.ModelCode,
		CreatedAt:      time.Now(),
	}
	if msg.ContentType == "" {
		msg.ContentType = "text"
	}

	if _, err := tx.Exec(ctx, `
		INSERT INTO messages (id, conversation_id, parent_id, checkpoint_id, role, content, content_type, token_count, model_code, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`, msg.ID, msg.ConversationID, nullableString(msg.ParentID), nullableString(msg.CheckpointID),
		string(msg.Role), msg.Content, msg.ContentType, msg.TokenCount, msg.ModelCode, msg.CreatedAt); err != nil {
		return nil, fmt.Errorf("failed to insert message: %w", err)
	}

	cmd, err := tx.Exec(ctx, `
		UPDATE conversations
		SET last_message_id = $2, last_message_at = $3, current_message_id = $2
		WHERE id = $1
	`, msg.ConversationID, msg.ID, msg.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to update conversation pointer: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return nil, apperr.New(apperr.NotFound, "conversation.not_found", "conversation not found")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, apperr.Wrap(apperr.Internal, "conversation.tx_commit_failed", "failed to commit message", err)
	}
	return msg, nil
}

// SiblingResult is get_sibling_messages's return shape.
type SiblingResult struct {
	Siblings []*model.Message
	Current  int // 0-based index of the queried message within Siblings
}

// GetMessage loads a single message by id.
func (s *Store) GetMessage(ctx context.Context, messageID string) (*model.Message, error) {
	row := s.pool.QueryRow(ctx, `
		SELECT id, conversation_id, parent_id, checkpoint_id, role, content, content_type, token_count, model_code, created_at
		FROM messages WHERE id = $1
	`, messageID)
	m, err := scanMessage(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperr.New(apperr.NotFound, "conversation.message_not_found", "message not found")
		}
		return nil, apperr.Wrap(apperr.Internal, "conversation.query_failed", "failed to load message", err)
	}
	return m, nil
}

// GetSiblingMessages returns every message sharing messageID's parent,
// ordered by (create_time, id), plus the 0-based index of messageID. A
// message with a null parent returns itself as the sole sibling.
func (s *Store) GetSiblingMessages(ctx context.Context, messageID string) (*SiblingResult, error) {
	target, err := s.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}

	if target.ParentID == "" {
		return &SiblingResult{Siblings: []*model.Message{target}, Current: 0}, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, parent_id, checkpoint_id, role, content, content_type, token_count, model_code, created_at
		FROM messages WHERE parent_id = $1
		ORDER BY created_at ASC, id ASC
	`, target.ParentID)
	if err != nil {
		return nil, fmt.Errorf("failed to list sibling messages: %w", err)
	}
	defer rows.Close()

	var siblings []*model.Message
	current := -1
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		if m.ID == messageID {
			current = len(siblings)
		}
		siblings = append(siblings, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating sibling rows: %w", err)
	}
	return &SiblingResult{Siblings: siblings, Current: current}, nil
}

// MessagesByIDs loads message content for a set of ids, used by semantic
// history search to turn scored MessageEmbedding hits back into readable
// text. Missing ids are silently omitted rather than erroring, since an
// embedding can outlive a pruned or since-edited message row.
func (s *Store) MessagesByIDs(ctx context.Context, ids []string) (map[string]*model.Message, error) {
	out := make(map[string]*model.Message, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, parent_id, checkpoint_id, role, content, content_type, token_count, model_code, created_at
		FROM messages WHERE id = ANY($1)
	`, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages by id: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out[m.ID] = m
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return out, nil
}

// SaveMessageEmbedding upserts a message's embedding vector. Called by the
// Async Task Runner's writeback after a message is persisted; a failed
// write is logged and dropped by the caller rather than retried forever,
// since context_retrieval tolerates absent embeddings.
func (s *Store) SaveMessageEmbedding(ctx context.Context, emb model.MessageEmbedding) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO message_embeddings (message_id, conversation_id, vector)
		VALUES ($1, $2, $3)
		ON CONFLICT (message_id) DO UPDATE SET vector = EXCLUDED.vector
	`, emb.MessageID, emb.ConversationID, emb.Vector)
	if err != nil {
		return fmt.Errorf("failed to save message embedding: %w", err)
	}
	return nil
}

// EmbeddingsForConversation implements retrieval.MessageSource: it returns
// every message embedding recorded for a conversation, leaving scoring
// and top-K selection to the retrieval package rather than the store.
func (s *Store) EmbeddingsForConversation(ctx context.Context, conversationID string) ([]model.MessageEmbedding, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT message_id, conversation_id, vector FROM message_embeddings WHERE conversation_id = $1
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to load message embeddings: %w", err)
	}
	defer rows.Close()

	var out []model.MessageEmbedding
	for rows.Next() {
		var e model.MessageEmbedding
		if err := rows.Scan(&e.MessageID, &e.ConversationID, &e.Vector); err != nil {
			return nil, fmt.Errorf("failed to scan message embedding: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message embedding rows: %w", err)
	}
	return out, nil
}

// ChunksForKnowledgeBases implements retrieval.ChunkSource: it returns every
// document chunk belonging to the given knowledge bases. Chunk ingestion
// itself is an external collaborator's responsibility (document parsing
// and the knowledge-base CRUD surface are explicitly out of scope); this
// store only reads what that pipeline already wrote.
func (s *Store) ChunksForKnowledgeBases(ctx context.Context, knowledgeBaseIDs []string) ([]model.DocumentChunk, error) {
	if len(knowledgeBaseIDs) == 0 {
		return nil, nil
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, knowledge_base_id, content, source, chunk_index, vector, metadata
		FROM document_chunks WHERE knowledge_base_id = ANY($1)
	`, knowledgeBaseIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to load document chunks: %w", err)
	}
	defer rows.Close()

	var out []model.DocumentChunk
	for rows.Next() {
		var c model.DocumentChunk
		var metadata []byte
		if err := rows.Scan(&c.ID, &c.KnowledgeBaseID, &c.Content, &c.Source, &c.ChunkIndex, &c.Vector, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan document chunk: %w", err)
		}
		if len(metadata) > 0 {
			if err := json.Unmarshal(metadata, &c.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode chunk metadata: %w", err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating document chunk rows: %w", err)
	}
	return out, nil
}

// SetCurrentMessage records the user's branch choice.
func (s *Store) SetCurrentMessage(ctx context.Context, conversationID, messageID string) error {
	cmd, err := s.pool.Exec(ctx, `
		UPDATE conversations SET current_message_id = $2 WHERE id = $1
	`, conversationID, messageID)
	if err != nil {
		return fmt.Errorf("failed to set current message: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "conversation.not_found", "conversation not found")
	}
	return nil
}

// SetTitle persists a conversation's generated title. Called once, after the
// first turn's title-generation call completes.
func (s *Store) SetTitle(ctx context.Context, conversationID, title string) error {
	cmd, err := s.pool.Exec(ctx, `
		UPDATE conversations SET title = $2 WHERE id = $1
	`, conversationID, title)
	if err != nil {
		return fmt.Errorf("failed to set conversation title: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return apperr.New(apperr.NotFound, "conversation.not_found", "conversation not found")
	}
	return nil
}

// HistoryResult is history's return shape: the full message set plus the
// conversation's current branch pointer. The caller linearises on demand.
type HistoryResult struct {
	Messages         []*model.Message
	CurrentMessageID string
}

// History returns the full message set for a conversation the user owns,
// plus the current branch pointer.
func (s *Store) History(ctx context.Context, userID, conversationID string) (*HistoryResult, error) {
	conv, err := s.EnsureOwner(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}

	rows, err := s.pool.Query(ctx, `
		SELECT id, conversation_id, parent_id, checkpoint_id, role, content, content_type, token_count, model_code, created_at
		FROM messages WHERE conversation_id = $1
		ORDER BY created_at ASC, id ASC
	`, conversationID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversation messages: %w", err)
	}
	defer rows.Close()

	var messages []*model.Message
	for rows.Next() {
		m, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating message rows: %w", err)
	}
	return &HistoryResult{Messages: messages, CurrentMessageID: conv.CurrentMessageID}, nil
}

// Linearize retraces from currentMessageID up through ParentID to the
// root, then reverses, giving the chat history in chronological order.
// When currentMessageID is empty or unknown, the default leaf is the most
// recently created message that has no children.
func Linearize(messages []*model.Message, currentMessageID string) []*model.Message {
	byID := make(map[string]*model.Message, len(messages))
	for _, m := range messages {
		byID[m.ID] = m
	}

	leaf := byID[currentMessageID]
	if leaf == nil {
		leaf = newestLeaf(messages)
	}
	if leaf == nil {
		return nil
	}

	var chain []*model.Message
	for cur := leaf; cur != nil; cur = byID[cur.ParentID] {
		chain = append(chain, cur)
		if cur.ParentID == "" {
			break
		}
	}
	for i, j := 0, len(chain)-1; i < j; i, j = i+1, j-1 {
		chain[i], chain[j] = chain[j], chain[i]
	}
	return chain
}

func newestLeaf(messages []*model.Message) *model.Message {
	hasChild := make(map[string]bool, len(messages))
	for _, m := range messages {
		if m.ParentID != "" {
			hasChild[m.ParentID] = true
		}
	}
	var newest *model.Message
	for _, m := range messages {
		if hasChild[m.ID] {
			continue
		}
		if newest == nil || m.CreatedAt.After(newest.CreatedAt) {
			newest = m
		}
	}
	return newest
}

type scannable interface {
	Scan(dest ...any) error
}

func scanConversation(row scannable) (*model.Conversation, error) {
	var c model.Conversation
	var lastMessageID, currentMessageID *string
	var lastMessageAt *time.Time
	if err := row.Scan(&c.ID, &c.UserID, &c.Title, &c.ModelCode, &lastMessageID, &lastMessageAt, &currentMessageID, &c.CreatedAt); err != nil {
		return nil, err
	}
	if lastMessageID != nil {
		c.LastMessageID = *lastMessageID
	}
	if lastMessageAt != nil {
		c.LastMessageAt = *lastMessageAt
	}
	if currentMessageID != nil {
		c.CurrentMessageID = *currentMessageID
	}
	return &c, nil
}

func scanMessage(row scannable) (*model.Message, error) {
	var m model.Message
	var parentID, checkpointID *string
	if err := row.Scan(&m.ID, &m.ConversationID, &parentID, &checkpointID, &m.Role, &m.Content, &m.ContentType, &m.TokenCount, &m.ModelCode, &m.CreatedAt); err != nil {
		return nil, err
	}
	if parentID != nil {
		m.ParentID = *parentID
	}
	if checkpointID != nil {
		m.CheckpointID = *checkpointID
	}
	return &m, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
