// Package subagent implements the task tool's backing dispatcher: a fresh,
// isolated AgentRunner turn whose final output becomes the parent tool
// call's return value, grounded on
// internal/multiagent/supervisor.go's delegation idiom and SPEC_FULL.md
// §4.9.
package subagent

import (
	"context"
	"sync"

	"github.com/serialx/vibecore/internal/agent"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
)

// ephemeralStore is an in-memory agent.SessionStore that a child turn
// writes to, and which is discarded once Dispatch returns — the child's
// history is never written through the parent's SessionStore handle (§4.9
// Design Notes: concurrent agents sharing a session).
type ephemeralStore struct {
	mu    sync.Mutex
	items []core.Item
}

func (s *ephemeralStore) GetItems(_ context.Context, limit int) ([]core.Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 || limit >= len(s.items) {
		out := make([]core.Item, len(s.items))
		copy(out, s.items)
		return out, nil
	}
	out := make([]core.Item, limit)
	copy(out, s.items[len(s.items)-limit:])
	return out, nil
}

func (s *ephemeralStore) AddItems(_ context.Context, items []core.Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = append(s.items, items...)
	return nil
}

// Supervisor dispatches task-tool invocations to a nested AgentRunner
// driven by TaskAgent, which must not itself carry the task tool (its
// registry is built without one to prevent infinite recursion).
// internal/core.SubAgentSupervisor is satisfied structurally.
type Supervisor struct {
	Adapter       modeladapter.ModelAdapter
	TaskAgent     *agent.Agent
	Validator     core.PathValidator
	MaxModelCalls int
	Concurrency   int
}

// NewSupervisor builds a Supervisor. adapter is the same ModelAdapter the
// parent AgentRunner uses; taskAgent must be configured without the task
// tool in its registry.
func NewSupervisor(adapter modeladapter.ModelAdapter, taskAgent *agent.Agent, validator core.PathValidator) *Supervisor {
	return &Supervisor{
		Adapter:   adapter,
		TaskAgent: taskAgent,
		Validator: validator,
	}
}

// Dispatch runs prompt through a fresh, ephemeral AgentRunner turn and
// returns the child's final assistant text. Events the child emits are
// forwarded to sink tagged with parentCallID via core.SubAgentEvent so the
// UI can nest them under the parent task tool call. Cancelling ctx cancels
// the child transitively, since the same context drives both runners.
func (s *Supervisor) Dispatch(ctx context.Context, prompt string, parentCallID string, sink core.ToolEventSink) (string, error) {
	store := &ephemeralStore{}

	var forwarding core.ToolEventSink
	if sink != nil {
		forwarding = core.ToolEventSinkFunc(func(e core.Event) {
			sink.Emit(core.SubAgentEvent(parentCallID, e))
		})
	}

	runner := agent.New(s.Adapter, store,
		agent.WithPathValidator(s.Validator),
		agent.WithMaxModelCalls(s.MaxModelCalls),
		agent.WithConcurrency(s.Concurrency),
	)

	result := runner.Run(ctx, s.TaskAgent, prompt, forwarding)
	if result.Cancelled {
		return "", core.NewError(core.KindCancelled, "sub-agent task cancelled")
	}
	if result.Err != nil {
		return "", result.Err
	}
	return result.Output, nil
}
