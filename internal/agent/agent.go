// Package agent implements AgentRunner, the per-turn state machine that
// drives one conversational turn from a ModelAdapter request through
// streamed events, tool dispatch, and SessionStore persistence, grounded on
// internal/agent/loop.go's AgenticLoop.Run and SPEC_FULL.md §4.8.
package agent

import (
	"github.com/serialx/vibecore/internal/modeladapter"
	"github.com/serialx/vibecore/internal/toolkit"
)

// Agent is a named bundle of instructions, tools, and model settings, the
// unit an AgentHandoff switches between mid-turn. Tools are held in a
// toolkit.Registry rather than a bare slice so dispatch reuses the
// registry's schema-validation and size-guard behavior (§4.6) instead of
// duplicating it here.
type Agent struct {
	Name         string
	Instructions string
	Tools        *toolkit.Registry
	Model        string
	MaxTokens    int64

	// EnableThinking requests a reasoning summary from the model, forwarded
	// into every Request this Agent builds.
	EnableThinking       bool
	ThinkingBudgetTokens int64
}

// buildRequest assembles a modeladapter.Request from this Agent's
// configuration and the given message history, per SPEC_FULL.md §4.8 step 1.
func (a *Agent) buildRequest(messages []modeladapter.Message) modeladapter.Request {
	return modeladapter.Request{
		Model:                a.Model,
		SystemPrompt:         a.Instructions,
		Messages:             modeladapter.AnnotateCache(messages),
		Tools:                a.Tools.Descriptors(),
		MaxTokens:            a.MaxTokens,
		EnableThinking:       a.EnableThinking,
		ThinkingBudgetTokens: a.ThinkingBudgetTokens,
	}
}
