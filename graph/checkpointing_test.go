package graph_test

import (
	"context"
	"testing"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/model"
)

func buildCheckpointableGraph(t *testing.T) *graph.CheckpointableStateGraph {
	t.Helper()

	g := graph.NewCheckpointableStateGraph()
	g.AddNode("ask", "record the question", func(_ context.Context, s *model.GraphState) (*model.GraphState, error) {
		s.Messages = append(s.Messages, model.ChatMessage{Role: model.RoleUser, Content: s.Question})
		return s, nil
	})
	g.AddNode("answer", "produce a reply", func(_ context.Context, s *model.GraphState) (*model.GraphState, error) {
		s.Messages = append(s.Messages, model.ChatMessage{Role: model.RoleAssistant, Content: "ok: " + s.Question})
		return s, nil
	})
	g.SetEntryPoint("ask")
	g.AddEdge("ask", "answer")
	g.AddEdge("answer", graph.END)

	return g
}

func TestCheckpointableStateGraph_CompileAndInvoke(t *testing.T) {
	t.Parallel()

	g := buildCheckpointableGraph(t)
	runnable, err := g.CompileCheckpointable()
	if err != nil {
		t.Fatalf("CompileCheckpointable failed: %v", err)
	}

	ctx := context.Background()
	final, err := runnable.Invoke(ctx, "thread-1", &model.GraphState{Question: "what time is it"})
	if err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	if len(final.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d: %+v", len(final.Messages), final.Messages)
	}
	if final.Messages[1].Content != "ok: what time is it" {
		t.Errorf("unexpected answer content: %q", final.Messages[1].Content)
	}
}

func TestCheckpointableStateGraph_AutoSaveWritesCheckpoints(t *testing.T) {
	t.Parallel()

	g := buildCheckpointableGraph(t)
	runnable, err := g.CompileCheckpointable()
	if err != nil {
		t.Fatalf("CompileCheckpointable failed: %v", err)
	}

	ctx := context.Background()
	if _, err := runnable.Invoke(ctx, "thread-2", &model.GraphState{Question: "hello"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	checkpoints, err := runnable.ListCheckpoints(ctx, "thread-2")
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	// One checkpoint per super-step: "ask" then "answer".
	if len(checkpoints) != 2 {
		t.Fatalf("expected 2 checkpoints, got %d", len(checkpoints))
	}
	if checkpoints[0].ParentCheckpointID != "" {
		t.Errorf("expected the first checkpoint to be the thread root, got parent %q", checkpoints[0].ParentCheckpointID)
	}
	if checkpoints[1].ParentCheckpointID != checkpoints[0].ID {
		t.Errorf("expected second checkpoint's parent to be the first checkpoint's ID")
	}

	latest, err := runnable.GetLatestCheckpoint(ctx, "thread-2")
	if err != nil {
		t.Fatalf("GetLatestCheckpoint failed: %v", err)
	}
	if latest.ID != checkpoints[len(checkpoints)-1].ID {
		t.Errorf("GetLatestCheckpoint did not return the last-written checkpoint")
	}
}

func TestCheckpointableStateGraph_NoAutoSave(t *testing.T) {
	t.Parallel()

	g := graph.NewCheckpointableStateGraphWithConfig(graph.CheckpointConfig{
		Store:    graph.NewMemoryCheckpointStore(),
		AutoSave: false,
	})
	g.AddNode("noop", "does nothing", func(_ context.Context, s *model.GraphState) (*model.GraphState, error) {
		return s, nil
	})
	g.SetEntryPoint("noop")
	g.AddEdge("noop", graph.END)

	runnable, err := g.CompileCheckpointable()
	if err != nil {
		t.Fatalf("CompileCheckpointable failed: %v", err)
	}

	ctx := context.Background()
	if _, err := runnable.Invoke(ctx, "thread-3", &model.GraphState{Question: "quiet"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	checkpoints, err := runnable.ListCheckpoints(ctx, "thread-3")
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(checkpoints) != 0 {
		t.Errorf("expected no checkpoints with AutoSave disabled, got %d", len(checkpoints))
	}
}

func TestCheckpointableRunnable_ResumeFromCheckpoint(t *testing.T) {
	t.Parallel()

	g := buildCheckpointableGraph(t)
	runnable, err := g.CompileCheckpointable()
	if err != nil {
		t.Fatalf("CompileCheckpointable failed: %v", err)
	}

	ctx := context.Background()
	if _, err := runnable.Invoke(ctx, "thread-4", &model.GraphState{Question: "first"}); err != nil {
		t.Fatalf("Invoke failed: %v", err)
	}

	checkpoints, err := runnable.ListCheckpoints(ctx, "thread-4")
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	rootID := checkpoints[0].ID

	resumed, err := runnable.ResumeFromCheckpoint(ctx, "thread-4", rootID)
	if err != nil {
		t.Fatalf("ResumeFromCheckpoint failed: %v", err)
	}
	// Resuming re-runs the whole graph on the checkpointed state (Clone): the
	// first checkpoint holds the one message "ask" wrote, then "ask" and
	// "answer" each append once more.
	if len(resumed.Messages) != 3 {
		t.Fatalf("expected 3 messages after resuming from the first checkpoint, got %d", len(resumed.Messages))
	}

	after, err := runnable.ListCheckpoints(ctx, "thread-4")
	if err != nil {
		t.Fatalf("ListCheckpoints failed: %v", err)
	}
	if len(after) <= len(checkpoints) {
		t.Errorf("expected resuming to append further checkpoints, had %d now have %d", len(checkpoints), len(after))
	}
}

func TestCheckpointableRunnable_GetCheckpointUnknownID(t *testing.T) {
	t.Parallel()

	g := buildCheckpointableGraph(t)
	runnable, err := g.CompileCheckpointable()
	if err != nil {
		t.Fatalf("CompileCheckpointable failed: %v", err)
	}

	ctx := context.Background()
	if _, err := runnable.GetCheckpoint(ctx, "thread-5", "does-not-exist"); err == nil {
		t.Error("expected an error fetching an unknown checkpoint")
	}
}

func TestNewCheckpointableStateGraph_DefaultsToAutoSave(t *testing.T) {
	t.Parallel()

	g := graph.NewCheckpointableStateGraph()
	cfg := g.GetCheckpointConfig()
	if !cfg.AutoSave {
		t.Error("expected default checkpoint config to have AutoSave enabled")
	}
	if cfg.Store == nil {
		t.Error("expected default checkpoint config to carry an in-memory store")
	}
}
