// Package langgraphgo is the root of the orchestrator module: a chat
// service that answers requests by running stateful graphs of nodes over
// a shared, checkpointed state. The root package holds no code; the
// functionality lives in the sub-packages described below.
//
// # Graph Structure
//
// The graph engine uses a directed graph structure where:
//   - Nodes represent processing units (model calls, tools, functions)
//   - Edges define the flow of execution
//   - State flows through the graph and evolves at each node
//
// State is either untyped (map[string]any, optionally merged through a
// MapSchema) or typed through Go generics (StateGraphTyped[S]).
//
// # Package Structure
//
// # Core Packages
//
// graph/
// The core graph construction and execution engine
//
//	// Create a state graph
//	g := graph.NewStateGraph[map[string]any]()
//
//	// Add nodes
//	g.AddNode("process", "Mark the state as processed", func(ctx context.Context, state map[string]any) (map[string]any, error) {
//		state["processed"] = true
//		return state, nil
//	})
//
//	// Define execution flow
//	g.SetEntryPoint("process")
//	g.AddEdge("process", graph.END)
//
//	// Compile and run
//	runnable, _ := g.Compile()
//	result, _ := runnable.Invoke(ctx, initialState)
//
// # Storage Packages
//
// store/
// The append-only CheckpointStore interface and its implementations:
//   - store/memory: in-process map, for tests and the default backend
//   - store/sqlite: file-based storage
//   - store/postgres: PostgreSQL
//   - store/redis: Redis
//
// # Tool and Adapter Packages
//
// tool/
// The Brave web search tool.
//
// adapter/goskills
// Wraps smallnest/goskills skill packages and a few local operations
// (shell and Python execution, file read/write, DuckDuckGo search) as
// tmc/langchaingo tools.
//
// log/
// Simple logging utilities
//
//	logger := log.NewDefaultLogger(log.LogLevelInfo)
//
// # Service
//
// cmd/server runs the chat service; cmd/orchestratorctl inspects a
// thread's checkpoint chain from the terminal. The service's components
// live under internal/: session (token gate), conversation (message
// store), checkpoint (sibling search over the checkpoint chain), executor
// (the chat and deep-search graphs), retrieval (vector search, BM25 and
// rank fusion), provider (model backends), transport (HTTP handlers and
// streaming) and config.
//
// # Example: Typed Graph with Custom State
//
//	package main
//
//	import (
//		"context"
//		"fmt"
//		"strings"
//
//		"github.com/agentcore/orchestrator/graph"
//	)
//
//	type WorkflowState struct {
//		Input     string `json:"input"`
//	Processed  string `json:"processed"`
//	Validated  bool   `json:"validated"`
//	Output     string `json:"output"`
//	StepCount  int    `json:"step_count"`
//	}
//
//	func main() {
//		// Create typed graph
//		g := graph.NewStateGraph[WorkflowState]()
//
//		// Add typed nodes
//		g.AddNode("process", "Process the input", func(ctx context.Context, state WorkflowState) (WorkflowState, error) {
//			state.Processed = strings.ToUpper(state.Input)
//			state.StepCount++
//			return state, nil
//		})
//
//		g.AddNode("validate", "Validate the output", func(ctx context.Context, state WorkflowState) (WorkflowState, error) {
//			state.Validated = len(state.Processed) > 0
//			state.StepCount++
//			return state, nil
//		})
//
//		g.AddNode("output", "Generate final output", func(ctx context.Context, state WorkflowState) (WorkflowState, error) {
//			state.Output = fmt.Sprintf("Processed: %s, Validated: %v", state.Processed, state.Validated)
//			state.StepCount++
//			return state, nil
//		})
//
//		// Define flow
//		g.SetEntryPoint("process")
//		g.AddEdge("process", "validate")
//		g.AddConditionalEdge("validate", func(ctx context.Context, state WorkflowState) string {
//			if state.Validated {
//				return "output"
//			}
//			return "process" // Retry
//		})
//		g.AddEdge("output", graph.END)
//
//		// Compile and run
//		runnable, _ := g.Compile()
//
//		result, _ := runnable.Invoke(context.Background(), WorkflowState{
//			Input: "hello world",
//		})
//
//		fmt.Printf("Result: %+v\n", result)
//		fmt.Printf("Steps: %d\n", result.StepCount)
//	}
//
// # Best Practices
//
//  1. Use typed graphs when possible for better type safety
//
//  2. Implement proper error handling in all node functions
//
//  3. Add checkpoints for long-running or critical workflows
//
//  4. Monitor execution with listeners and logging
//
// # Configuration
//
// The service reads its settings from environment variables; see
// internal/config.
package langgraphgo // import "github.com/agentcore/orchestrator"
