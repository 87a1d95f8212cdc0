// Package store defines the checkpoint persistence contract shared by the
// postgres, sqlite, redis, and memory backends, and the Graph Executor's
// fork/resume machinery in internal/checkpoint.
//
// # Append-only checkpoints
//
// Unlike a conventional key-value checkpoint store, writes here are
// INSERT-only: a checkpoint's ID is generated by the writer, never reused,
// and no backend ever updates or overwrites an existing row. A thread's
// history is the set of checkpoints sharing a ThreadID, linked by
// ParentCheckpointID into a tree (a conversation that has been forked has
// more than one leaf). MessageCount lets internal/checkpoint locate a true
// fork point without walking message content.
//
// # Store interface
//
//	type CheckpointStore interface {
//	    Put(ctx context.Context, cp *model.Checkpoint) error
//	    Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error)
//	    GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error)
//	    List(ctx context.Context, threadID string) ([]*model.Checkpoint, error)
//	}
//
// GetLatest is its own method, not List-then-scan: the postgres and sqlite
// backends satisfy it with an indexed "ORDER BY created_at DESC LIMIT 1"
// query, and the redis backend with a sorted-set ZREVRANGE.
//
// # Backends
//
//   - store/postgres: pgxpool-backed, for production deployments.
//   - store/sqlite: mattn/go-sqlite3-backed, for single-process/dev use.
//   - store/redis: redis/go-redis/v9-backed, for ephemeral/low-latency threads.
//   - store/memory: in-process map, for tests.
package store
