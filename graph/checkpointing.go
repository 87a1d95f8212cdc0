package graph

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/agentcore/orchestrator/internal/model"
	"github.com/agentcore/orchestrator/store"
	"github.com/agentcore/orchestrator/store/memory"
)

// Checkpoint is a node in a thread's append-only checkpoint history.
type Checkpoint = model.Checkpoint

// CheckpointStore persists and retrieves checkpoints by thread.
type CheckpointStore = store.CheckpointStore

// NewMemoryCheckpointStore creates an in-process checkpoint store, used
// in tests and for the "memory" CHECKPOINT_BACKEND.
func NewMemoryCheckpointStore() CheckpointStore {
	return memory.NewCheckpointStore()
}

// CheckpointConfig configures checkpointing behavior for a compiled graph.
type CheckpointConfig struct {
	// Store is the checkpoint storage backend.
	Store CheckpointStore

	// AutoSave checkpoints after every super-step. When false, the
	// checkpoint listener writes no checkpoints.
	AutoSave bool
}

// DefaultCheckpointConfig returns a default checkpoint configuration
// backed by an in-memory store.
func DefaultCheckpointConfig() CheckpointConfig {
	return CheckpointConfig{
		Store:    NewMemoryCheckpointStore(),
		AutoSave: true,
	}
}

// CheckpointListener writes a checkpoint after each super-step of a
// *model.GraphState-typed graph. It tracks the last-written checkpoint ID
// so each new checkpoint correctly links to its parent.
type CheckpointListener struct {
	NoOpCallbackHandler

	store    CheckpointStore
	threadID string
	autoSave bool

	mu     sync.Mutex
	lastID string
}

// OnGraphStep implements GraphCallbackHandler.
func (cl *CheckpointListener) OnGraphStep(ctx context.Context, stepNode string, state any) {
	if !cl.autoSave || cl.threadID == "" {
		return
	}
	gs, ok := state.(*model.GraphState)
	if !ok {
		return
	}

	cl.mu.Lock()
	parent := cl.lastID
	cp := &Checkpoint{
		ID:                 uuid.New().String(),
		ThreadID:           cl.threadID,
		ParentCheckpointID: parent,
		MessageCount:       len(gs.Messages),
		State:              gs.Clone(),
		CreatedAt:          time.Now(),
	}
	cl.lastID = cp.ID
	cl.mu.Unlock()

	if err := cl.store.Put(ctx, cp); err != nil {
		_ = err // best-effort: a failed checkpoint write must not abort the run
	}
}

// CheckpointableRunnable wraps a *model.GraphState-typed runnable with
// automatic per-step checkpointing and checkpoint-history access.
type CheckpointableRunnable struct {
	runnable *ListenableRunnableTyped[*model.GraphState]
	config   CheckpointConfig
	listener *CheckpointListener
}

// NewCheckpointableRunnable wraps runnable with checkpointing config.
func NewCheckpointableRunnable(runnable *ListenableRunnableTyped[*model.GraphState], config CheckpointConfig) *CheckpointableRunnable {
	return &CheckpointableRunnable{
		runnable: runnable,
		config:   config,
		listener: &CheckpointListener{store: config.Store, autoSave: config.AutoSave},
	}
}

// Invoke executes the graph for threadID, checkpointing after each step.
func (cr *CheckpointableRunnable) Invoke(ctx context.Context, threadID string, initialState *model.GraphState) (*model.GraphState, error) {
	return cr.InvokeWithConfig(ctx, threadID, initialState, nil)
}

// InvokeWithConfig executes the graph with additional run configuration
// (interrupts, resume, callbacks) layered on top of checkpointing.
func (cr *CheckpointableRunnable) InvokeWithConfig(ctx context.Context, threadID string, initialState *model.GraphState, config *Config) (*model.GraphState, error) {
	cr.listener.threadID = threadID
	cr.listener.autoSave = cr.config.AutoSave

	if config == nil {
		config = &Config{}
	}
	config.Callbacks = append(config.Callbacks, cr.listener)
	if config.Configurable == nil {
		config.Configurable = map[string]any{}
	}
	config.Configurable["thread_id"] = threadID

	return cr.runnable.InvokeWithConfig(ctx, initialState, config)
}

// GetCheckpoint loads a specific checkpoint from the thread's history.
func (cr *CheckpointableRunnable) GetCheckpoint(ctx context.Context, threadID, checkpointID string) (*Checkpoint, error) {
	return cr.config.Store.Get(ctx, threadID, checkpointID)
}

// GetLatestCheckpoint loads the most recent checkpoint for the thread.
func (cr *CheckpointableRunnable) GetLatestCheckpoint(ctx context.Context, threadID string) (*Checkpoint, error) {
	return cr.config.Store.GetLatest(ctx, threadID)
}

// ListCheckpoints returns the full checkpoint history for the thread,
// oldest first.
func (cr *CheckpointableRunnable) ListCheckpoints(ctx context.Context, threadID string) ([]*Checkpoint, error) {
	return cr.config.Store.List(ctx, threadID)
}

// ResumeFromCheckpoint re-invokes the graph starting from the state
// stored in checkpointID, continuing the same thread.
func (cr *CheckpointableRunnable) ResumeFromCheckpoint(ctx context.Context, threadID, checkpointID string) (*model.GraphState, error) {
	cp, err := cr.GetCheckpoint(ctx, threadID, checkpointID)
	if err != nil {
		return nil, fmt.Errorf("failed to load checkpoint: %w", err)
	}

	cr.listener.mu.Lock()
	cr.listener.lastID = cp.ID
	cr.listener.mu.Unlock()

	return cr.InvokeWithConfig(ctx, threadID, cp.State.Clone(), nil)
}

// CheckpointableStateGraph builds a *model.GraphState-typed graph
// compiled with checkpointing.
type CheckpointableStateGraph struct {
	*ListenableStateGraphTyped[*model.GraphState]
	config CheckpointConfig
}

// NewCheckpointableStateGraph creates a checkpointable graph with the
// default, in-memory configuration.
func NewCheckpointableStateGraph() *CheckpointableStateGraph {
	return &CheckpointableStateGraph{
		ListenableStateGraphTyped: NewListenableStateGraphTyped[*model.GraphState](),
		config:                    DefaultCheckpointConfig(),
	}
}

// NewCheckpointableStateGraphWithConfig creates a checkpointable graph
// with a custom checkpoint configuration.
func NewCheckpointableStateGraphWithConfig(config CheckpointConfig) *CheckpointableStateGraph {
	return &CheckpointableStateGraph{
		ListenableStateGraphTyped: NewListenableStateGraphTyped[*model.GraphState](),
		config:                    config,
	}
}

// CompileCheckpointable compiles the graph into a checkpointable runnable.
func (g *CheckpointableStateGraph) CompileCheckpointable() (*CheckpointableRunnable, error) {
	listenableRunnable, err := g.CompileListenable()
	if err != nil {
		return nil, err
	}
	return NewCheckpointableRunnable(listenableRunnable, g.config), nil
}

// SetCheckpointConfig updates the checkpointing configuration.
func (g *CheckpointableStateGraph) SetCheckpointConfig(config CheckpointConfig) {
	g.config = config
}

// GetCheckpointConfig returns the current checkpointing configuration.
func (g *CheckpointableStateGraph) GetCheckpointConfig() CheckpointConfig {
	return g.config
}
