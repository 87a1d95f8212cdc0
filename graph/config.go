package graph

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// Config carries per-invocation settings: thread/checkpoint identity,
// interrupt points, resume state, tracing tags/metadata and callbacks.
// It is threaded through InvokeWithConfig and the context (via WithConfig)
// so nodes and checkpoint listeners can recover it mid-execution.
type Config struct {
	// Configurable holds caller-supplied values keyed by convention, e.g.
	// "thread_id" and "checkpoint_id".
	Configurable map[string]any

	// Tags and Metadata are forwarded to CallbackHandler calls.
	Tags     []string
	Metadata map[string]any

	// Callbacks are notified of chain/tool/graph-step events during
	// execution.
	Callbacks []CallbackHandler

	// InterruptBefore/InterruptAfter pause execution immediately before
	// or after the named nodes run, returning a *GraphInterrupt.
	InterruptBefore []string
	InterruptAfter  []string

	// ResumeFrom overrides the entry point(s) for this invocation, used
	// to continue past a prior interrupt.
	ResumeFrom []string

	// ResumeValue is surfaced to a node via GetResumeValue/Interrupt when
	// resuming past a dynamic interrupt.
	ResumeValue any
}

// CallbackHandler receives chain- and tool-level execution events.
// Implementations that also care about per-step graph state should
// additionally implement GraphCallbackHandler.
type CallbackHandler interface {
	OnChainStart(ctx context.Context, serialized, inputs map[string]any, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnChainEnd(ctx context.Context, outputs map[string]any, runID string)
	OnChainError(ctx context.Context, err error, runID string)
	OnToolStart(ctx context.Context, serialized map[string]any, input string, runID string, parentRunID *string, tags []string, metadata map[string]any)
	OnToolEnd(ctx context.Context, output string, runID string)
}

// GraphCallbackHandler is an optional extension of CallbackHandler for
// handlers that want the full state after each super-step.
type GraphCallbackHandler interface {
	OnGraphStep(ctx context.Context, stepNode string, state any)
}

// NoOpCallbackHandler implements CallbackHandler with no-ops, so
// listeners that only care about some events can embed it rather than
// stub out the rest.
type NoOpCallbackHandler struct{}

func (NoOpCallbackHandler) OnChainStart(context.Context, map[string]any, map[string]any, string, *string, []string, map[string]any) {
}
func (NoOpCallbackHandler) OnChainEnd(context.Context, map[string]any, string)  {}
func (NoOpCallbackHandler) OnChainError(context.Context, error, string)         {}
func (NoOpCallbackHandler) OnToolStart(context.Context, map[string]any, string, string, *string, []string, map[string]any) {
}
func (NoOpCallbackHandler) OnToolEnd(context.Context, string, string) {}

type configKey struct{}

// WithConfig attaches a Config to ctx so deeply nested nodes can recover
// it (e.g. to read Configurable) without it being passed explicitly.
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// GetConfig retrieves the Config previously attached with WithConfig, or
// nil if none was set.
func GetConfig(ctx context.Context) *Config {
	cfg, _ := ctx.Value(configKey{}).(*Config)
	return cfg
}

// generateRunID returns a fresh identifier for a callback run span.
func generateRunID() string {
	return uuid.New().String()
}

// convertStateToMap renders arbitrary graph state as a map for callback
// serialization. Maps pass through; everything else round-trips through
// JSON and falls back to a single "state" key if that fails.
func convertStateToMap(state any) map[string]any {
	if m, ok := state.(map[string]any); ok {
		return m
	}
	b, err := json.Marshal(state)
	if err != nil {
		return map[string]any{"state": fmt.Sprintf("%v", state)}
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return map[string]any{"state": string(b)}
	}
	return m
}

// convertStateToString renders arbitrary graph state as a string for
// callback display, preferring JSON over fmt's default verb.
func convertStateToString(state any) string {
	b, err := json.Marshal(state)
	if err != nil {
		return fmt.Sprintf("%v", state)
	}
	return string(b)
}
