// Command orchestratorctl is a small terminal tool for inspecting a
// thread's checkpoint chain outside the request path: useful for
// debugging the branch/fork machinery the Graph Executor relies on.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/charmbracelet/lipgloss"

	"github.com/agentcore/orchestrator/graph"
	"github.com/agentcore/orchestrator/internal/checkpoint"
	"github.com/agentcore/orchestrator/internal/config"
	"github.com/agentcore/orchestrator/internal/executor"
	"github.com/agentcore/orchestrator/internal/storebackend"
)

var (
	rootStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("8")).Bold(true)
	chainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#2D7FFF"))
	branchStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F6C34E")).Bold(true)
	errorStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9")).Bold(true)
)

func main() {
	if len(os.Args) >= 2 && os.Args[1] == "graph" {
		printGraph()
		return
	}
	if len(os.Args) < 3 || os.Args[1] != "checkpoints" {
		fmt.Fprintln(os.Stderr, "usage: orchestratorctl checkpoints <thread-id>\n       orchestratorctl graph")
		os.Exit(1)
	}
	threadID := os.Args[2]

	cfg := config.Load()
	ctx := context.Background()

	store, err := storebackend.Open(ctx, cfg)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("failed to open checkpoint store: "+err.Error()))
		os.Exit(1)
	}

	all, err := store.List(ctx, threadID)
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("failed to list checkpoints: "+err.Error()))
		os.Exit(1)
	}
	if len(all) == 0 {
		fmt.Println(rootStyle.Render(fmt.Sprintf("no checkpoints for thread %s", threadID)))
		return
	}

	finder := checkpoint.NewFinder(store)
	fmt.Println(rootStyle.Render(fmt.Sprintf("thread %s (%d checkpoints)", threadID, len(all))))

	for _, cp := range all {
		line := chainStyle.Render(fmt.Sprintf("%s  parent=%s  messages=%d  %s",
			cp.ID, displayParent(cp.ParentCheckpointID), cp.MessageCount, cp.CreatedAt.Format("15:04:05")))
		fmt.Println(line)

		siblings, err := finder.FindSiblings(ctx, threadID, cp.ID)
		if err != nil || len(siblings) < 2 {
			continue
		}
		fmt.Println(branchStyle.Render(fmt.Sprintf("  %d branches from this point:", len(siblings))))
		for _, sib := range siblings {
			fmt.Println(branchStyle.Render("    -> " + sib.ID))
		}
	}
}

// printGraph builds the same router/sub-graph wiring the server compiles,
// against an in-memory checkpoint store since only the topology matters,
// and prints it as a Mermaid flowchart.
func printGraph() {
	e, err := executor.New(executor.Deps{}, graph.NewMemoryCheckpointStore())
	if err != nil {
		fmt.Fprintln(os.Stderr, errorStyle.Render("failed to build graph: "+err.Error()))
		os.Exit(1)
	}
	fmt.Println(e.Mermaid())
}

func displayParent(id string) string {
	if id == "" {
		return "(root)"
	}
	return id
}
