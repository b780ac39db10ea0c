// Package toolkit implements the concrete ToolDescriptor set (file, shell,
// search, web, todo, and sub-agent tools) and the ToolRegistry that dispatches
// among them, grounded on internal/agent/tool_registry.go's RWMutex-guarded
// map and resource-limit checks.
package toolkit

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/serialx/vibecore/internal/core"
)

// Tool parameter limits to prevent resource exhaustion, mirroring
// ToolRegistry.Execute's guards in the teacher.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// Registry manages available tools with thread-safe registration and lookup.
type Registry struct {
	mu    sync.RWMutex
	tools map[string]core.ToolDescriptor
}

// NewRegistry creates a new empty tool registry.
func NewRegistry() *Registry {
	return &Registry{tools: make(map[string]core.ToolDescriptor)}
}

// Register adds a tool to the registry, replacing any existing tool with
// the same name.
func (r *Registry) Register(tool core.ToolDescriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tools[tool.Name] = tool
}

// Unregister removes a tool from the registry by name.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
}

// Get returns a tool by name and whether it was found.
func (r *Registry) Get(name string) (core.ToolDescriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// Descriptors returns every registered tool, for passing to the ModelAdapter
// as the request's tool list.
func (r *Registry) Descriptors() []core.ToolDescriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]core.ToolDescriptor, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute runs a tool by name with the given JSON arguments. A tool that is
// missing, oversized, or schema-invalid produces a textual ToolOutput error
// rather than a Go error, per SPEC_FULL.md §4.6 ("schema-rejected arguments
// produce a ToolFailure-style textual error passed back as the ToolOutput
// rather than a crash").
func (r *Registry) Execute(tc core.ToolContext, name string, args json.RawMessage) string {
	if len(name) > MaxToolNameLength {
		return fmt.Sprintf("tool name exceeds maximum length of %d characters", MaxToolNameLength)
	}
	if len(args) > MaxToolParamsSize {
		return fmt.Sprintf("tool arguments exceed maximum size of %d bytes", MaxToolParamsSize)
	}

	tool, ok := r.Get(name)
	if !ok {
		return "tool not found: " + name
	}

	if err := validateArguments(tool.Schema, args); err != nil {
		return err.Error()
	}

	out, err := tool.Handler(tc, args)
	if err != nil {
		return err.Error()
	}
	return out
}

// mangleSeparator joins an MCP server name and tool name into the model-
// facing name mcp__S__T, per SPEC_FULL.md §4.6.
const mangleSeparator = "__"

// MangleMCPName builds the model-facing name for a tool T served by an
// external MCP server S.
func MangleMCPName(server, tool string) string {
	return "mcp" + mangleSeparator + server + mangleSeparator + tool
}

// DemangleMCPName reverses MangleMCPName, returning the server and tool
// names and whether name was actually MCP-mangled.
func DemangleMCPName(name string) (server, tool string, ok bool) {
	const prefix = "mcp" + mangleSeparator
	if !strings.HasPrefix(name, prefix) {
		return "", "", false
	}
	rest := strings.TrimPrefix(name, prefix)
	parts := strings.SplitN(rest, mangleSeparator, 2)
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", false
	}
	return parts[0], parts[1], true
}
