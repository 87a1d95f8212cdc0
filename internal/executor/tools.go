package executor

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/agentcore/orchestrator/internal/provider"
)

// Tool is a chatbot-bindable function, adapting whatever concrete tool
// implementation (tool.BraveSearch, future additions) to the JSON-object
// argument shape provider.Provider normalises tool_calls into.
type Tool interface {
	Schema() provider.ToolSchema
	Invoke(ctx context.Context, argumentsJSON string) (string, error)
}

// WebSearchTool adapts tool.BraveSearch's string-in/string-out Call to
// the Tool interface's JSON-object argument convention.
type WebSearchTool struct {
	search interface {
		Call(ctx context.Context, input string) (string, error)
	}
}

func NewWebSearchTool(search interface {
	Call(ctx context.Context, input string) (string, error)
}) *WebSearchTool {
	return &WebSearchTool{search: search}
}

func (t *WebSearchTool) Schema() provider.ToolSchema {
	return provider.ToolSchema{
		Name:        "web_search",
		Description: "Search the public web for current information and return the top results.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "The search query.",
				},
			},
			"required":             []string{"query"},
			"additionalProperties": false,
		},
	}
}

func (t *WebSearchTool) Invoke(ctx context.Context, argumentsJSON string) (string, error) {
	var args struct {
		Query string `json:"query"`
	}
	if argumentsJSON != "" {
		if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
			return "", fmt.Errorf("invalid tool arguments: %w", err)
		}
	}
	if args.Query == "" {
		return "", fmt.Errorf("web_search requires a query argument")
	}
	return t.search.Call(ctx, args.Query)
}

// Registry resolves tool calls by name for the tools node, grounded on
// teacher prebuilt/react_agent.go's ToolExecutor lookup-by-name shape.
type Registry struct {
	tools map[string]Tool
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		r.tools[t.Schema().Name] = t
	}
	return r
}

func (r *Registry) Schemas() []provider.ToolSchema {
	schemas := make([]provider.ToolSchema, 0, len(r.tools))
	for _, t := range r.tools {
		schemas = append(schemas, t.Schema())
	}
	return schemas
}

func (r *Registry) Get(name string) (Tool, bool) {
	t, ok := r.tools[name]
	return t, ok
}
