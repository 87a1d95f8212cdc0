package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/internal/model"
)

// DBPool is the subset of pgxpool.Pool this store needs; mocked by pgxmock in tests.
type DBPool interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// CheckpointStore implements store.CheckpointStore over PostgreSQL. Writes
// are INSERT-only: no method ever updates or deletes an existing row.
type CheckpointStore struct {
	pool      DBPool
	tableName string
}

type Options struct {
	ConnString string
	TableName  string // default "checkpoints"
}

func New(ctx context.Context, cfg config.Config, opts Options) (*CheckpointStore, error) {
	poolCfg, err := pgxpool.ParseConfig(opts.ConnString)
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

	tableName := opts.TableName
	if tableName == "" {
		tableName = "checkpoints"
	}

	return &CheckpointStore{pool: pool, tableName: tableName}, nil
}

// NewWithPool wires an existing pool (or a pgxmock.PgxPoolIface in tests).
func NewWithPool(pool DBPool, tableName string) *CheckpointStore {
	if tableName == "" {
		tableName = "checkpoints"
	}
	return &CheckpointStore{pool: pool, tableName: tableName}
}

func (s *CheckpointStore) InitSchema(ctx context.Context) error {
	query := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id TEXT PRIMARY KEY,
			thread_id TEXT NOT NULL,
			parent_checkpoint_id TEXT,
			message_count INTEGER NOT NULL,
			state JSONB NOT NULL,
			created_at TIMESTAMPTZ NOT NULL
		);
		CREATE INDEX IF NOT EXISTS idx_%s_thread_id ON %s (thread_id, created_at DESC);
	`, s.tableName, s.tableName, s.tableName)

	_, err := s.pool.Exec(ctx, query)
	if err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Close() {
	s.pool.Close()
}

func (s *CheckpointStore) Put(ctx context.Context, cp *model.Checkpoint) error {
	stateJSON, err := json.Marshal(cp.State)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint state: %w", err)
	}

	query := fmt.Sprintf(`
		INSERT INTO %s (id, thread_id, parent_checkpoint_id, message_count, state, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, s.tableName)

	_, err = s.pool.Exec(ctx, query,
		cp.ID, cp.ThreadID, nullableString(cp.ParentCheckpointID), cp.MessageCount, stateJSON, cp.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert checkpoint: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = $1 AND id = $2
	`, s.tableName)

	return s.scanOne(s.pool.QueryRow(ctx, query, threadID, checkpointID), checkpointID)
}

func (s *CheckpointStore) GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = $1
		ORDER BY created_at DESC LIMIT 1
	`, s.tableName)

	return s.scanOne(s.pool.QueryRow(ctx, query, threadID), threadID)
}

func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	query := fmt.Sprintf(`
		SELECT id, thread_id, parent_checkpoint_id, message_count, state, created_at
		FROM %s WHERE thread_id = $1
		ORDER BY created_at ASC
	`, s.tableName)

	rows, err := s.pool.Query(ctx, query, threadID)
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints: %w", err)
	}
	defer rows.Close()

	var out []*model.Checkpoint
	for rows.Next() {
		cp, err := scanRow(rows)
		if err != nil {
			return nil, err
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

func (s *CheckpointStore) scanOne(row scannable, key string) (*model.Checkpoint, error) {
	cp, err := scanRow(row)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("checkpoint not found: %s", key)
		}
		return nil, err
	}
	return cp, nil
}

func scanRow(row scannable) (*model.Checkpoint, error) {
	var cp model.Checkpoint
	var parentID *string
	var stateJSON []byte

	if err := row.Scan(&cp.ID, &cp.ThreadID, &parentID, &cp.MessageCount, &stateJSON, &cp.CreatedAt); err != nil {
		return nil, err
	}
	if parentID != nil {
		cp.ParentCheckpointID = *parentID
	}
	var state model.GraphState
	if err := json.Unmarshal(stateJSON, &state); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint state: %w", err)
	}
	cp.State = &state
	return &cp, nil
}

func nullableString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
