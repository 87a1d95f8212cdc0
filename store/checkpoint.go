package store

import (
	"context"

	"github.com/agentcore/orchestrator/internal/model"
)

// CheckpointStore persists append-only graph checkpoints. Implementations
// never update or delete an existing row: forking a thread writes a new
// checkpoint whose ParentCheckpointID points at an ancestor, it never
// rewrites the ancestor.
type CheckpointStore interface {
	// Put inserts a new checkpoint. Callers assign cp.ID before calling.
	Put(ctx context.Context, cp *model.Checkpoint) error

	// Get retrieves one checkpoint by ID, scoped to its thread.
	Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error)

	// GetLatest returns the most recently written checkpoint for a thread,
	// i.e. the tip of whichever branch was written to last.
	GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error)

	// List returns every checkpoint for a thread, oldest first, for
	// fork/sibling enumeration.
	List(ctx context.Context, threadID string) ([]*model.Checkpoint, error)
}
