package checkpoint

import (
	"context"
	"testing"
	"time"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/store/memory"
)

func cp(id, parent string, count int, at time.Time) *model.Checkpoint {
	return &model.Checkpoint{
		ID:                 id,
		ThreadID:           "thread-1",
		ParentCheckpointID: parent,
		MessageCount:       count,
		State:              &model.GraphState{ConversationID: "thread-1"},
		CreatedAt:          at,
	}
}

// buildBranchingThread builds:
//
//	root(2) -> tool(2) -> turn1(4)
//	                   \-> regenA(6)
//	                   \-> regenB(6)
//
// root and its tool-call child share MessageCount 2, and turn1, regenA and
// regenB all branch from "tool". The fork point for any of the three is
// "tool", so the expected siblings of each are {turn1, regenA, regenB}.
func buildBranchingThread(t *testing.T) *memory.CheckpointStore {
	t.Helper()
	s := memory.NewCheckpointStore()
	ctx := context.Background()
	base := time.Now()

	checkpoints := []*model.Checkpoint{
		cp("root", "", 2, base),
		cp("tool", "root", 2, base.Add(time.Second)),
		cp("turn1", "tool", 4, base.Add(2*time.Second)),
		cp("regenA", "tool", 6, base.Add(3*time.Second)),
		cp("regenB", "tool", 6, base.Add(4*time.Second)),
	}
	for _, c := range checkpoints {
		if err := s.Put(ctx, c); err != nil {
			t.Fatalf("Put(%s) failed: %v", c.ID, err)
		}
	}
	return s
}

func TestFindSiblings_ReturnsLeafRegenerations(t *testing.T) {
	s := buildBranchingThread(t)
	f := NewFinder(s)

	siblings, err := f.FindSiblings(context.Background(), "thread-1", "regenA")
	if err != nil {
		t.Fatalf("FindSiblings failed: %v", err)
	}

	if len(siblings) != 3 {
		t.Fatalf("expected 3 siblings (turn1, regenA, regenB), got %d: %+v", len(siblings), siblings)
	}

	ids := map[string]bool{}
	for _, c := range siblings {
		ids[c.ID] = true
	}
	for _, want := range []string{"turn1", "regenA", "regenB"} {
		if !ids[want] {
			t.Errorf("expected sibling set to contain %q, got %+v", want, ids)
		}
	}
}

func TestFindSiblings_SymmetricAcrossSiblingPair(t *testing.T) {
	s := buildBranchingThread(t)
	f := NewFinder(s)
	ctx := context.Background()

	fromA, err := f.FindSiblings(ctx, "thread-1", "regenA")
	if err != nil {
		t.Fatalf("FindSiblings(regenA) failed: %v", err)
	}
	fromB, err := f.FindSiblings(ctx, "thread-1", "regenB")
	if err != nil {
		t.Fatalf("FindSiblings(regenB) failed: %v", err)
	}

	if len(fromA) != len(fromB) {
		t.Fatalf("sibling search should be symmetric, got %d vs %d", len(fromA), len(fromB))
	}
}

func TestFindSiblings_IntermediateToolCheckpointNeverSurfaces(t *testing.T) {
	s := buildBranchingThread(t)
	f := NewFinder(s)

	siblings, err := f.FindSiblings(context.Background(), "thread-1", "regenA")
	if err != nil {
		t.Fatalf("FindSiblings failed: %v", err)
	}
	for _, c := range siblings {
		if c.ID == "tool" {
			t.Error("intermediate tool-call checkpoint must not surface as a sibling branch")
		}
	}
}

func TestFindSiblings_RootCheckpointReturnsLeafDescendants(t *testing.T) {
	s := buildBranchingThread(t)
	f := NewFinder(s)

	siblings, err := f.FindSiblings(context.Background(), "thread-1", "root")
	if err != nil {
		t.Fatalf("FindSiblings failed: %v", err)
	}
	if len(siblings) != 3 {
		t.Fatalf("expected root's fork point to itself with 3 leaf descendants, got %d: %+v", len(siblings), siblings)
	}
}

func TestFindSiblings_UnknownCheckpointErrors(t *testing.T) {
	s := buildBranchingThread(t)
	f := NewFinder(s)

	if _, err := f.FindSiblings(context.Background(), "thread-1", "does-not-exist"); err == nil {
		t.Error("expected an error for an unknown checkpoint id")
	}
}
