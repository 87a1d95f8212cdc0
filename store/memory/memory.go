// Package memory provides an in-process CheckpointStore backed by a guarded
// map, for tests and for the "memory" CHECKPOINT_BACKEND.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/agentcore/orchestrator/internal/model"
)

// CheckpointStore implements store.CheckpointStore with no persistence
// beyond process lifetime. Writes are append-only like every other backend:
// Put never mutates an existing entry.
type CheckpointStore struct {
	mu       sync.RWMutex
	byID     map[string]*model.Checkpoint
	byThread map[string][]string // threadID -> checkpoint IDs, insertion order
}

func NewCheckpointStore() *CheckpointStore {
	return &CheckpointStore{
		byID:     make(map[string]*model.Checkpoint),
		byThread: make(map[string][]string),
	}
}

func (s *CheckpointStore) Put(ctx context.Context, cp *model.Checkpoint) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cpCopy := *cp
	s.byID[cp.ID] = &cpCopy
	s.byThread[cp.ThreadID] = append(s.byThread[cp.ThreadID], cp.ID)
	return nil
}

func (s *CheckpointStore) Get(ctx context.Context, threadID, checkpointID string) (*model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	cp, ok := s.byID[checkpointID]
	if !ok || cp.ThreadID != threadID {
		return nil, fmt.Errorf("checkpoint not found: %s", checkpointID)
	}
	return cp, nil
}

func (s *CheckpointStore) GetLatest(ctx context.Context, threadID string) (*model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byThread[threadID]
	if len(ids) == 0 {
		return nil, fmt.Errorf("no checkpoints for thread: %s", threadID)
	}

	latest := s.byID[ids[0]]
	for _, id := range ids[1:] {
		cp := s.byID[id]
		if cp.CreatedAt.After(latest.CreatedAt) {
			latest = cp
		}
	}
	return latest, nil
}

func (s *CheckpointStore) List(ctx context.Context, threadID string) ([]*model.Checkpoint, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byThread[threadID]
	out := make([]*model.Checkpoint, 0, len(ids))
	for _, id := range ids {
		out = append(out, s.byID[id])
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}
