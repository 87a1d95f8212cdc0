// Package postgres implements store.CheckpointStore over PostgreSQL via
// jackc/pgx/v5, for production deployments of the Conversation Store and
// (when CHECKPOINT_BACKEND=postgres) the Graph Executor's checkpoint tree.
//
//	pool, err := postgres.New(ctx, cfg, postgres.Options{ConnString: cfg.PostgresDSN})
//	if err != nil {
//		return err
//	}
//	defer pool.Close()
//	if err := pool.InitSchema(ctx); err != nil {
//		return err
//	}
//
// Writes are append-only: Put never updates an existing row, and callers
// generate a fresh checkpoint ID (google/uuid) per write. InitSchema is
// idempotent and safe to call on every startup.
package postgres
