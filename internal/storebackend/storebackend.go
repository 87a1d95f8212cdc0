// Package storebackend selects a store.CheckpointStore implementation by
// config.Config.CheckpointBackend, shared by cmd/server and
// cmd/orchestratorctl so both talk to the same checkpoint data without
// duplicating the backend switch.
package storebackend

import (
	"context"
	"fmt"

	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/store"
	"github.com/agentcore/orchestrator/store/memory"
	"github.com/agentcore/orchestrator/store/postgres"
	"github.com/agentcore/orchestrator/store/redis"
	"github.com/agentcore/orchestrator/store/sqlite"
)

// Open constructs the checkpoint backend named by cfg.CheckpointBackend:
// "postgres", "sqlite", "redis", or "memory".
func Open(ctx context.Context, cfg config.Config) (store.CheckpointStore, error) {
	switch cfg.CheckpointBackend {
	case "postgres":
		return postgres.New(ctx, cfg, postgres.Options{ConnString: cfg.PostgresDSN})
	case "sqlite":
		return sqlite.New(sqlite.Options{Path: cfg.SQLitePath})
	case "redis":
		return redis.New(redis.Options{Addr: cfg.RedisAddr, DB: cfg.RedisDB}), nil
	case "memory":
		return memory.NewCheckpointStore(), nil
	default:
		return nil, fmt.Errorf("unknown checkpoint backend %q", cfg.CheckpointBackend)
	}
}
