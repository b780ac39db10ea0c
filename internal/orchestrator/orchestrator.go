// Package orchestrator implements the top-level loop described in
// SPEC_FULL.md §4.10: it accepts user input lines, special-cases /clear,
// queues input behind an in-flight AgentRunner turn, and fans events out
// to a UI sink that is a pure consumer. Grounded on
// internal/agent/steering.go's SteeringQueue (the FIFO follow-up-message
// idiom this package's pending queue generalizes to the top level) and
// internal/agent/runtime.go's Process/run split (a non-blocking front door
// over a goroutine-driven turn).
package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/serialx/vibecore/internal/agent"
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
	"github.com/serialx/vibecore/internal/sessionstore"
	"github.com/serialx/vibecore/internal/toolkit"
)

// Status is the Orchestrator's idle/busy state.
type Status string

const (
	StatusIdle Status = "idle"
	StatusBusy Status = "busy"
)

// Orchestrator drives the top-level loop over a single project/session
// pair. A fresh agent.Runner is built per turn from the fields below rather
// than reused, so swapping the current Store on /clear never races with an
// in-flight turn holding its own snapshot.
type Orchestrator struct {
	Adapter     modeladapter.ModelAdapter
	RootAgent   *agent.Agent
	RunnerOpts  []agent.Option
	Sink        core.ToolEventSink
	Todos       *toolkit.TodoList
	ProjectPath string
	BaseDir     string

	mu      sync.Mutex
	status  Status
	store   *sessionstore.Store
	pending []string
}

// New builds an Orchestrator. store is the session the first turn appends
// to (a brand-new session, or one resumed via Replay).
func New(adapter modeladapter.ModelAdapter, rootAgent *agent.Agent, sink core.ToolEventSink, todos *toolkit.TodoList, store *sessionstore.Store, projectPath, baseDir string, opts ...agent.Option) *Orchestrator {
	return &Orchestrator{
		Adapter:     adapter,
		RootAgent:   rootAgent,
		RunnerOpts:  opts,
		Sink:        sink,
		Todos:       todos,
		ProjectPath: projectPath,
		BaseDir:     baseDir,
		status:      StatusIdle,
		store:       store,
	}
}

// CurrentSessionID returns the session the next turn will append to.
func (o *Orchestrator) CurrentSessionID() string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.store.SessionID()
}

// Replay loads the current session's full history and emits the Events
// itemToEvents reconstructs for each item (none for an Unknown item, two
// for an assistant message with text) so the UI can display prior turns,
// per §4.10. It fails with
// KindUnpairedTool (via sessionstore.Loader) if replay finds a ToolCall
// with no matching ToolOutput.
func (o *Orchestrator) Replay(ctx context.Context) error {
	o.mu.Lock()
	store := o.store
	o.mu.Unlock()

	items, err := sessionstore.NewLoader(store).Load(ctx)
	if err != nil {
		return err
	}
	for _, item := range items {
		for _, ev := range itemToEvents(item) {
			o.Sink.Emit(ev)
		}
	}
	return nil
}

// itemToEvents reconstructs the Event(s) a live turn would have emitted for
// a single persisted Item, per §4.10's replay contract. Unknown items carry
// no interpretable shape and are skipped, matching §6.1's "not interpreted
// for replay."
func itemToEvents(item core.Item) []core.Event {
	switch item.Kind {
	case core.ItemUserText:
		return []core.Event{core.UserMessageEvent(item.UserText.Content)}
	case core.ItemAssistantMsg:
		text := item.Assistant.Text()
		if text == "" {
			return []core.Event{core.MessageCompletedEvent()}
		}
		return []core.Event{core.TextDeltaEvent(text), core.MessageCompletedEvent()}
	case core.ItemToolCall:
		return []core.Event{core.ToolCallStartedEvent(item.ToolCall.CallID, item.ToolCall.Name, item.ToolCall.Arguments)}
	case core.ItemToolOutput:
		return []core.Event{core.ToolCallCompletedEvent(item.ToolOutput.CallID, item.ToolOutput.Output)}
	case core.ItemReasoning:
		return []core.Event{core.ReasoningCompletedEvent(item.Reasoning.Text)}
	default:
		return nil
	}
}

// Submit accepts one line of user input. A line that trims to exactly
// "/clear" resets session and per-process state without starting a model
// call. Otherwise, if the orchestrator is idle, a new turn starts
// immediately; if busy, the line is queued FIFO and a SystemEvent reports
// the new queue depth.
func (o *Orchestrator) Submit(ctx context.Context, line string) {
	if strings.TrimSpace(line) == "/clear" {
		o.clear()
		return
	}

	o.mu.Lock()
	if o.status == StatusBusy {
		o.pending = append(o.pending, line)
		n := len(o.pending)
		o.mu.Unlock()
		o.Sink.Emit(core.SystemEvent(fmt.Sprintf("%d message(s) queued", n)))
		return
	}
	o.status = StatusBusy
	o.mu.Unlock()

	o.startTurn(ctx, line)
}

// clear creates a fresh Session, resets the todo list, drops anything
// queued, and emits a SystemEvent — no tokens consumed, no model call,
// per §4.10.
func (o *Orchestrator) clear() {
	store, err := sessionstore.New(uuid.NewString(), o.ProjectPath, o.BaseDir)
	if err != nil {
		o.Sink.Emit(core.ErrorEvent(core.KindInvalidInput, fmt.Sprintf("failed to start a new session: %v", err)))
		return
	}

	o.mu.Lock()
	o.store = store
	o.pending = nil
	o.mu.Unlock()

	o.Todos.Reset()
	o.Sink.Emit(core.SystemEvent("session cleared"))
}

// startTurn runs one AgentRunner turn in its own goroutine against a
// snapshot of the current Store, then dequeues the next pending message (if
// any) or returns to idle.
func (o *Orchestrator) startTurn(ctx context.Context, input string) {
	o.mu.Lock()
	store := o.store
	o.mu.Unlock()

	runner := agent.New(o.Adapter, store, o.RunnerOpts...)

	go func() {
		result := runner.Run(ctx, o.RootAgent, input, o.Sink)
		o.Sink.Emit(core.TurnFinishedEvent(result.Output))
		o.onTurnFinished(ctx)
	}()
}

// onTurnFinished dequeues the next pending message and starts it, or marks
// the orchestrator idle if nothing is queued.
func (o *Orchestrator) onTurnFinished(ctx context.Context) {
	o.mu.Lock()
	if len(o.pending) == 0 {
		o.status = StatusIdle
		o.mu.Unlock()
		return
	}
	next := o.pending[0]
	o.pending = o.pending[1:]
	remaining := len(o.pending)
	o.mu.Unlock()

	if remaining > 0 {
		o.Sink.Emit(core.SystemEvent(fmt.Sprintf("%d message(s) queued", remaining)))
	}
	o.startTurn(ctx, next)
}

// Status reports whether a turn is currently in flight.
func (o *Orchestrator) Status() Status {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.status
}

// PendingCount reports how many messages are queued behind an in-flight turn.
func (o *Orchestrator) PendingCount() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}
