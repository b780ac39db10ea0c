package core

import (
	"context"
	"encoding/json"
)

// ToolEventSink receives events emitted by a tool handler while it runs
// (used by the task tool to forward sub-agent events upward).
type ToolEventSink interface {
	Emit(Event)
}

// ToolEventSinkFunc adapts a plain function to ToolEventSink.
type ToolEventSinkFunc func(Event)

// Emit implements ToolEventSink.
func (f ToolEventSinkFunc) Emit(e Event) { f(e) }

// PathValidator confines filesystem- and shell-touching tools to a set of
// allowed directories. Defined here (rather than imported from
// internal/pathvalidator) so core has no dependency on that package;
// internal/pathvalidator.Validator satisfies this interface structurally.
type PathValidator interface {
	ValidatePath(path string) (string, error)
	ValidateCommand(command string) error
}

// SubAgentSupervisor dispatches a task-tool invocation to a nested
// AgentRunner. internal/subagent.Supervisor satisfies this structurally.
type SubAgentSupervisor interface {
	Dispatch(ctx context.Context, prompt string, parentCallID string, sink ToolEventSink) (string, error)
}

// ToolContext is passed to every tool handler invocation.
type ToolContext struct {
	Context    context.Context
	CallID     string
	Sink       ToolEventSink
	Validator  PathValidator
	SubAgents  SubAgentSupervisor
}

// ToolHandler executes a tool call and returns its textual result.
type ToolHandler func(ToolContext, json.RawMessage) (string, error)

// ToolDescriptor names an invokable tool, its JSON-schema, and its handler.
type ToolDescriptor struct {
	Name        string
	Description string
	Schema      json.RawMessage
	Handler     ToolHandler
}

// AllowedDirectory is an absolute, symlink-resolved path under which file
// and shell operations are permitted.
type AllowedDirectory string
