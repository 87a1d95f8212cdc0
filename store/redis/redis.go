package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/agentcore/orchestrator/internal/model"
)

// CheckpointStore implements store.CheckpointStore using Redis. Each
// checkpoint is stored as its own key; a per-thread sorted set, scored by
// creation time, gives List its ordering and GetLatest its O(log n) tip
// lookup without a full scan.
type CheckpointStore struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

type Options struct {
	Addr     string
	Password string
	DB       int
	Prefix   string        // key prefix, default "orchestrator:"
	TTL      time.Duration // expiration for checkpoint keys, default 0 (no expiration)
}

func New(opts Options) *CheckpointStore {
	client := redis.NewClient(&redis.Options{
		Addr:     opts.Addr,
		Password: opts.Password,
		DB:       opts.DB,
	})

	prefix := opts.Prefix
	if prefix == "" {
		prefix = "orchestrator:"
	}

	return &CheckpointStore{client: client, prefix: prefix, ttl: opts.TTL}
}

func (s *CheckpointStore) checkpointKey(id string) string {
	return fmt.Sprintf("%scheckpoint:%s", s.prefix, id)
}

func (s *CheckpointStore) threadKey(threadID string) string {
	return fmt.Sprintf("%sthread:%s:checkpoints", s.prefix, threadID)
}

func (s *CheckpointStore) Put(ctx context.Context, cp *model.Checkpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}

	threadKey := s.threadKey(cp.ThreadID)
	pipe := s.client.Pipeline()
	pipe.Set(ctx, s.checkpointKey(cp.ID), data, s.ttl)
	pipe.ZAdd(ctx, threadKey, redis.Z{Score: float64(cp.CreatedAt.UnixNano()), Member: cp.ID})
	if s.ttl > 0 {
		pipe.Expire(ctx, threadKey, s.ttl)
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to save checkpoint to redis: %w", err)
	}
	return nil
}

func (s *CheckpointStore) Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error) {
	cp, err := s.load(ctx, checkpointID)
	if err != nil {
		return nil, err
	}
	if cp.ThreadID != threadID {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	return cp, nil
}

func (s *CheckpointStore) GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	ids, err := s.client.ZRevRange(ctx, s.threadKey(threadID), 0, 0).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to find latest checkpoint for thread %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no checkpoints for thread: %s", threadID)
	}
	return s.load(ctx, ids[0])
}

func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	ids, err := s.client.ZRange(ctx, s.threadKey(threadID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to list checkpoints for thread %s: %w", threadID, err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = s.checkpointKey(id)
	}

	results, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch checkpoints: %w", err)
	}

	out := make([]*model.Checkpoint, 0, len(results))
	for _, result := range results {
		strData, ok := result.(string)
		if !ok {
			continue // expired between ZRANGE and MGET
		}
		var cp model.Checkpoint
		if err := json.Unmarshal([]byte(strData), &cp); err != nil {
			return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
		}
		out = append(out, &cp)
	}
	return out, nil
}

func (s *CheckpointStore) load(ctx context.Context, checkpointID string) (*model.Checkpoint, error) {
	data, err := s.client.Get(ctx, s.checkpointKey(checkpointID)).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
		}
		return nil, fmt.Errorf("failed to load checkpoint from redis: %w", err)
	}
	var cp model.Checkpoint
	if err := json.Unmarshal(data, &cp); err != nil {
		return nil, fmt.Errorf("failed to unmarshal checkpoint: %w", err)
	}
	return &cp, nil
}
