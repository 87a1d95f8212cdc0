// Package goskills adapts github.com/smallnest/goskills skill packages and
// a small set of deterministic local operations into langchaingo tools.Tool
// implementations, for use in the Chat sub-graph's tools node alongside the
// network-calling search tools.
package goskills

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/smallnest/goskills"
	"github.com/tmc/langchaingo/tools"
)

// SkillTool wraps one named operation as a langchaingo tool. name selects
// the behavior; scriptMap/skillPath customize run_shell_code and
// custom_script resolution.
type SkillTool struct {
	name        string
	description string
	skillPath   string
	scriptMap   map[string]string
}

func NewSkillTool(name, description string) *SkillTool {
	return &SkillTool{name: name, description: description}
}

func (t *SkillTool) Name() string { return t.name }

func (t *SkillTool) Description() string {
	if t.description != "" {
		return t.description
	}
	return fmt.Sprintf("Executes the %s local operation", t.name)
}

func (t *SkillTool) Call(ctx context.Context, input string) (string, error) {
	switch t.name {
	case "run_shell_code":
		return t.runShellCode(ctx, input)
	case "run_python_code":
		return t.runPythonCode(ctx, input)
	case "read_file":
		return t.readFile(input)
	case "write_file":
		return t.writeFile(input)
	case "duckduckgo_search":
		return t.duckDuckGoSearch(ctx, input)
	case "custom_script":
		return t.runCustomScript(ctx, input)
	default:
		if script, ok := t.scriptMap[t.name]; ok {
			return runScript(ctx, script, nil)
		}
		return "", fmt.Errorf("unknown tool: %s", t.name)
	}
}

func (t *SkillTool) runShellCode(ctx context.Context, input string) (string, error) {
	var params struct {
		Code string         `json:"code"`
		Args map[string]any `json:"args"`
	}
	if input == "" {
		return "", fmt.Errorf("failed to unmarshal run_shell_code input: empty input")
	}
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to unmarshal run_shell_code input: %w", err)
	}
	if strings.TrimSpace(params.Code) == "" {
		return "", nil
	}
	cmd := exec.CommandContext(ctx, "bash", "-c", params.Code)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("shell execution failed: %w", err)
	}
	return string(out), nil
}

func (t *SkillTool) runPythonCode(ctx context.Context, input string) (string, error) {
	var params struct {
		Code string `json:"code"`
	}
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to unmarshal run_python_code input: %w", err)
	}
	interpreter := "python3"
	if _, err := exec.LookPath(interpreter); err != nil {
		interpreter = "python"
	}
	cmd := exec.CommandContext(ctx, interpreter, "-c", params.Code)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("python execution failed: %w", err)
	}
	return string(out), nil
}

func (t *SkillTool) readFile(input string) (string, error) {
	var params struct {
		FilePath string `json:"filePath"`
	}
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to unmarshal read_file input: %w", err)
	}
	if params.FilePath == "" {
		return "", fmt.Errorf("filePath is required")
	}
	path := params.FilePath
	if !filepath.IsAbs(path) && t.skillPath != "" {
		path = filepath.Join(t.skillPath, path)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("failed to read file: %w", err)
	}
	return string(content), nil
}

func (t *SkillTool) writeFile(input string) (string, error) {
	var params struct {
		FilePath string `json:"filePath"`
		Content  string `json:"content"`
	}
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to unmarshal write_file input: %w", err)
	}
	if params.FilePath == "" {
		return "", fmt.Errorf("filePath is required")
	}
	if err := os.WriteFile(params.FilePath, []byte(params.Content), 0o644); err != nil {
		return "", fmt.Errorf("failed to write file: %w", err)
	}
	return fmt.Sprintf("Successfully wrote to file %s", params.FilePath), nil
}

func (t *SkillTool) duckDuckGoSearch(ctx context.Context, input string) (string, error) {
	var params struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal([]byte(input), &params); err != nil {
		return "", fmt.Errorf("failed to unmarshal duckduckgo_search input: %w", err)
	}
	if params.Query == "" {
		return "", nil
	}
	reqURL := "https://html.duckduckgo.com/html/?q=" + params.Query
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return "", err
	}
	client := &http.Client{Timeout: 10 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("duckduckgo search failed: %w", err)
	}
	defer resp.Body.Close()
	return fmt.Sprintf("duckduckgo search for %q returned status %d", params.Query, resp.StatusCode), nil
}

func (t *SkillTool) runCustomScript(ctx context.Context, input string) (string, error) {
	var params struct {
		Args []string `json:"args"`
	}
	_ = json.Unmarshal([]byte(input), &params)
	script, ok := t.scriptMap[t.name]
	if !ok {
		return "", fmt.Errorf("no script registered for %s", t.name)
	}
	return runScript(ctx, script, params.Args)
}

func runScript(ctx context.Context, script string, args []string) (string, error) {
	cmd := exec.CommandContext(ctx, "bash", append([]string{script}, args...)...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return string(out), fmt.Errorf("script execution failed: %w", err)
	}
	return string(out), nil
}

// SkillsToTools converts a goskills.SkillPackage into a single descriptive
// tool named after the package and rooted at the package's path. No scripts
// are registered in its scriptMap, so Call on it returns "unknown tool".
func SkillsToTools(pkg goskills.SkillPackage) ([]tools.Tool, error) {
	if pkg == nil {
		return nil, fmt.Errorf("nil skill package")
	}
	tool := &SkillTool{
		name:        pkg.GetName(),
		description: pkg.GetDescription(),
		skillPath:   pkg.GetPath(),
	}
	return []tools.Tool{tool}, nil
}
