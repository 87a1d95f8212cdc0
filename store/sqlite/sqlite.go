package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"github.com/agentcore/orchestrator/internal/model"
)

// CheckpointStore implements store.CheckpointStore using SQLite. Writes are
// INSERT-only: Put never updates an existing row.
type CheckpointStore struct {
	db        *sql.DB
	tableName string
}

type Options struct {
	Path      string
	TableName string // default "checkpoints"
}

func New(opts Options) (*CheckpointStore, error) {
	db, err := sql.Open("sqlite3", opts.Path)
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	s := &CheckpointStore{db: db, tableName: tableName}
	if err := s.InitSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			parent_checkpoint_id TEXT,
			message_count INTEGER NOT NULL,
			state TEXT NOT NULL,
			created_at DATETIME NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_thread_id ON %s (thread_id, created_at DESC);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.db.ExecContext(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Close() error {
	return s.db.Close()
}

func (s *CheckpointStore) Put(ctx context.Context, cp *model.Checkpoint) error {
	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, parent_checkpoint_id, message_count, state, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, s.tableName)

	_, err = s.db.ExecContext(ctx, query,
		cp.ID, cp.ThreadID, nullableString(cp.ParentCheckpointID), cp.MessageCount, string(stateJSON), cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = ? AND id = ?
	`, s.tableName)

	cp, err := scanRow(s.db.QueryRowContext(ctx, query, threadID, checkpointID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
		}
		return nil, err
	}
	return cp, nil
}

func (s *CheckpointStore) GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = ?
		ORDER BY created_at DESC LIMIT 1
	`, s.tableName)

	cp, err := scanRow(s.db.QueryRowContext(ctx, query, threadID))
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("no checkpoints for thread: %s", threadID)
		}
		return nil, err
	}
	return cp, nil
}

func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = ?
		ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.db.QueryContext(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*model.Checkpoint
	for rows.Next() {
		cp, err := scanRow(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan checkpoint row: %w", err)
		}
		out = append(out, cp)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating checkpoint rows: %w", err)
	}
	return out, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRow(row scannable) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var parentID sql.NullString
	var stateJSON string

	if err := row.Scan(&cp.ID, &cp.ThreadID, &parentID, &cp.MessageCount, &stateJSON, &cp.CreatedAt); err != nil {
		return nil, err
	}
	if parentID.Valid {
		cp.ParentCheckpointID = parentID.String
	}
	var state model.GraphState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}
	cp.State = &state
	return &cp, nil
}

func nullableString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
