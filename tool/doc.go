// Package tool provides the orchestrator's network-facing agent tools.
//
// Tools implement the tmc/langchaingo tools.Tool interface (Name,
// Description, Call) so they can be handed directly to a graph node that
// drives a tool-calling loop over an internal/provider.Provider.
//
// # Web search
//
// NewBraveSearch wraps the Brave Search API. Its SearchStructured method
// additionally returns []model.Reference for nodes that need citation
// metadata rather than a pre-formatted string:
//
//	search := tool.NewBraveSearch(cfg.BraveAPIKey)
//	text, err := search.Call(ctx, `{"query": "golang context cancellation"}`)
//	refs, err := search.SearchStructured(ctx, "golang context cancellation", 5)
//
// # Other tools
//
// Deterministic, non-network operations (shell/python execution, file
// read/write, goskills-package dispatch) live in adapter/goskills, which
// exposes the same tools.Tool interface so they compose with the search
// tools in a single tool-node tool list.
//
// # Error handling
//
// Call implementations return a descriptive error rather than a structured
// error type; callers wrap failures with internal/apperr.Wrap(apperr.ToolError, ...)
// at the executor boundary.
package tool
