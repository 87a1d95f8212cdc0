// Package adapter holds integration adapters that convert third-party tool
// and skill representations into the tmc/langchaingo tools.Tool interface
// consumed by the Chat sub-graph's tools node.
//
// # goskills (adapter/goskills)
//
// Wraps github.com/smallnest/goskills skill packages, plus a small set of
// deterministic local operations (shell/python execution, file read/write),
// as tools.Tool implementations.
package adapter
