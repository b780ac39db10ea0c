// Package modeladapter translates the engine's abstract per-turn request
// into a provider chat-completion call and normalizes the streamed reply
// into core.Event values, grounded on
// internal/agent/providers/anthropic.go and SPEC_FULL.md §4.5/§4.7.
package modeladapter

import (
	"context"

	"github.com/serialx/vibecore/internal/core"
)

// Role distinguishes the two conversational roles the engine ever emits;
// tool results travel inside a user-role message, matching Anthropic's wire
// format (there is no separate "tool" role on the Messages API).
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// ContentBlock is one piece of a Message's content, in the engine's own
// provider-agnostic shape. Exactly one of Text/ToolUse/ToolResult is set.
type ContentBlock struct {
	Text string

	ToolUseID   string
	ToolName    string
	ToolInput   string // JSON-encoded

	ToolResultID      string
	ToolResultContent string
	ToolResultIsError bool

	// Cached marks this block as a prompt-cache breakpoint; set by
	// AnnotateCache, read by the provider-specific adapter.
	Cached bool
}

// IsEmptyText reports whether this is a text block with no content — such
// blocks are never eligible for a cache breakpoint, per §4.5.
func (b ContentBlock) IsEmptyText() bool {
	return b.ToolUseID == "" && b.ToolResultID == "" && b.Text == ""
}

// Message is one turn of conversation in the engine's abstract format.
type Message struct {
	Role    Role
	Content []ContentBlock
}

// Request is everything ModelAdapter needs to start a streamed turn.
type Request struct {
	Model        string
	SystemPrompt string
	Messages     []Message
	Tools        []core.ToolDescriptor
	MaxTokens    int64

	// EnableThinking requests a reasoning summary via extended thinking,
	// per §4.7's ReasoningStarted/ReasoningCompleted events.
	EnableThinking       bool
	ThinkingBudgetTokens int64
}

// RawEvent is a decoder-agnostic wrapper so StreamDecoder can be tested
// without constructing real SDK stream types.
type RawEvent struct {
	core.Event
}

// ModelAdapter sends a Request and returns a channel of normalized events.
// The channel is closed when the stream ends (success, error, or
// cancellation); a terminal core.Event (MessageCompleted or Error) is
// always the last value sent before close, unless ctx is cancelled first.
type ModelAdapter interface {
	Send(ctx context.Context, req Request) (<-chan core.Event, error)
}
