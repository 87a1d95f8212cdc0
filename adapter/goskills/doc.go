// Package goskills adapts github.com/smallnest/goskills skill packages, plus
// a handful of deterministic local operations (shell/python execution, file
// read/write, a DuckDuckGo HTML search), into tmc/langchaingo tools.Tool
// implementations for use in the Chat sub-graph's tools node.
//
// # SkillTool
//
// SkillTool dispatches on its configured name:
//
//	shell := goskills.NewSkillTool("run_shell_code", "runs a bash snippet and returns combined output")
//	result, err := shell.Call(ctx, `{"code": "echo hello"}`)
//
// Supported built-in names: run_shell_code, run_python_code, read_file,
// write_file, duckduckgo_search, custom_script. Any other name is looked up
// in the tool's scriptMap; an unrecognized name returns an "unknown tool"
// error.
//
// # SkillsToTools
//
// SkillsToTools converts a loaded goskills.SkillPackage into a one-element
// tools.Tool slice: a SkillTool named after the package and carrying its
// description and path. It registers no scripts, so calling that tool by
// the package's name returns the "unknown tool" error:
//
//	pkg, err := goskills.LoadPackage("./skills/data-analysis")
//	tools, err := goskills.SkillsToTools(pkg)
package goskills
