package memory

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/store"
)

func checkpoint(id, threadID, parentID string, count int, at time.Time) *model.Checkpoint {
	return &model.Checkpoint{
		ID:                 id,
		ThreadID:           threadID,
		ParentCheckpointID: parentID,
		MessageCount:       count,
		State:              &model.GraphState{ConversationID: threadID},
		CreatedAt:          at,
	}
}

func TestCheckpointStore_ImplementsInterface(t *testing.T) {
	t.Parallel()
	var _ store.CheckpointStore = NewCheckpointStore()
}

func TestCheckpointStore_PutGet(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	cp := checkpoint("cp-1", "thread-1", "", 1, time.Now())

	if err := s.Put(ctx, cp); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	got, err := s.Get(ctx, "thread-1", "cp-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if got.ID != cp.ID || got.MessageCount != cp.MessageCount {
		t.Errorf("Get returned mismatched checkpoint: %+v", got)
	}
}

func TestCheckpointStore_GetWrongThread(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	_ = s.Put(ctx, checkpoint("cp-1", "thread-1", "", 1, time.Now()))

	if _, err := s.Get(ctx, "thread-2", "cp-1"); err == nil {
		t.Error("expected error fetching a checkpoint under the wrong thread")
	}
}

func TestCheckpointStore_GetMissing(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	if _, err := s.Get(context.Background(), "thread-1", "does-not-exist"); err == nil {
		t.Error("expected error for missing checkpoint")
	}
}

func TestCheckpointStore_GetLatest(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	base := time.Now()

	_ = s.Put(ctx, checkpoint("cp-1", "thread-1", "", 1, base))
	_ = s.Put(ctx, checkpoint("cp-2", "thread-1", "cp-1", 2, base.Add(time.Minute)))
	_ = s.Put(ctx, checkpoint("cp-3", "thread-1", "cp-2", 3, base.Add(2*time.Minute)))

	latest, err := s.GetLatest(ctx, "thread-1")
	if err != nil {
		t.Fatalf("GetLatest failed: %v", err)
	}
	if latest.ID != "cp-3" {
		t.Errorf("expected cp-3 as latest, got %s", latest.ID)
	}
}

func TestCheckpointStore_GetLatestEmpty(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	if _, err := s.GetLatest(context.Background(), "ghost-thread"); err == nil {
		t.Error("expected error for thread with no checkpoints")
	}
}

func TestCheckpointStore_ListOrderedByCreation(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	base := time.Now()

	// Insert out of chronological order to prove List sorts, not returns insertion order.
	_ = s.Put(ctx, checkpoint("cp-3", "thread-1", "cp-2", 3, base.Add(2*time.Minute)))
	_ = s.Put(ctx, checkpoint("cp-1", "thread-1", "", 1, base))
	_ = s.Put(ctx, checkpoint("cp-2", "thread-1", "cp-1", 2, base.Add(time.Minute)))

	list, err := s.List(ctx, "thread-1")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 checkpoints, got %d", len(list))
	}
	for i, want := range []string{"cp-1", "cp-2", "cp-3"} {
		if list[i].ID != want {
			t.Errorf("position %d: got %s, want %s", i, list[i].ID, want)
		}
	}
}

func TestCheckpointStore_ListEmptyForUnknownThread(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	list, err := s.List(context.Background(), "ghost-thread")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(list) != 0 {
		t.Errorf("expected 0 checkpoints, got %d", len(list))
	}
}

func TestCheckpointStore_PutNeverMutatesPriorCheckpoint(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	cp := checkpoint("cp-1", "thread-1", "", 1, time.Now())
	_ = s.Put(ctx, cp)

	// Mutate the caller's struct after Put; the store must hold its own copy.
	cp.MessageCount = 99

	got, _ := s.Get(ctx, "thread-1", "cp-1")
	if got.MessageCount != 1 {
		t.Errorf("store aliased the caller's checkpoint: got MessageCount=%d", got.MessageCount)
	}
}

func TestCheckpointStore_ThreadSafety(t *testing.T) {
	t.Parallel()

	s := NewCheckpointStore()
	ctx := context.Background()
	const workers = 10
	const perWorker = 5

	done := make(chan struct{}, workers)
	for w := range workers {
		go func(workerID int) {
			defer func() { done <- struct{}{} }()
			for i := range perWorker {
				id := fmt.Sprintf("worker-%d-cp-%d", workerID, i)
				thread := fmt.Sprintf("worker-%d-thread", workerID)
				_ = s.Put(ctx, checkpoint(id, thread, "", i+1, time.Now()))
			}
		}(w)
	}

	for range workers {
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			t.Fatal("test timed out")
		}
	}

	for w := range workers {
		thread := fmt.Sprintf("worker-%d-thread", w)
		list, err := s.List(ctx, thread)
		if err != nil {
			t.Fatalf("List failed for %s: %v", thread, err)
		}
		if len(list) != perWorker {
			t.Errorf("thread %s: expected %d checkpoints, got %d", thread, perWorker, len(list))
		}
	}
}
