package agent

import (
	"context"
	"encoding/json"
	"time"

	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
)

// defaultMaxModelCalls is the per-turn cap on model calls ("max-turns" in
// SPEC_FULL.md §4.8, default 200).
const defaultMaxModelCalls = 200

// defaultConcurrency bounds parallel tool-handler execution within a model
// call, matching the teacher's ExecutorConfig.MaxConcurrency default of 5.
const defaultConcurrency = 5

// SessionStore is the subset of sessionstore.Store the runner needs,
// narrowed to an interface so tests can supply an in-memory fake.
type SessionStore interface {
	GetItems(ctx context.Context, limit int) ([]core.Item, error)
	AddItems(ctx context.Context, items []core.Item) error
}

// Result is the outcome of one AgentRunner.Run call.
type Result struct {
	// Output is the final assistant message text, set only on a successful
	// (non-tool-calling) completion.
	Output    string
	Err       error
	Cancelled bool
}

// Runner drives AgentRunner's per-turn state machine (§4.8): it builds
// requests from Agent instructions and SessionStore history, streams a
// ModelAdapter reply, dispatches tool calls with bounded parallelism, and
// loops until the assistant produces a tool-free message or a cap/error
// ends the turn.
type Runner struct {
	Adapter   modeladapter.ModelAdapter
	Sessions  SessionStore
	Validator core.PathValidator
	SubAgents core.SubAgentSupervisor

	// Agents resolves an AgentHandoff's target name to the Agent whose
	// instructions and tools govern the next model call. A handoff to an
	// unknown name is forwarded to the sink but otherwise ignored (the
	// current agent keeps driving the turn).
	Agents map[string]*Agent

	MaxModelCalls int
	Concurrency   int
}

// Option configures a Runner at construction.
type Option func(*Runner)

// WithMaxModelCalls overrides the default 200-model-call turn cap.
func WithMaxModelCalls(n int) Option { return func(r *Runner) { r.MaxModelCalls = n } }

// WithConcurrency overrides the default tool-dispatch parallelism of 5.
func WithConcurrency(n int) Option { return func(r *Runner) { r.Concurrency = n } }

// WithPathValidator attaches the PathValidator every ToolContext carries.
func WithPathValidator(v core.PathValidator) Option { return func(r *Runner) { r.Validator = v } }

// WithSubAgentSupervisor attaches the SubAgentSupervisor every ToolContext
// carries (used by the task tool).
func WithSubAgentSupervisor(s core.SubAgentSupervisor) Option {
	return func(r *Runner) { r.SubAgents = s }
}

// WithAgents registers the Agent set AgentHandoff may switch among.
func WithAgents(agents map[string]*Agent) Option { return func(r *Runner) { r.Agents = agents } }

// New builds a Runner. adapter and sessions are required; everything else
// falls back to its documented default.
func New(adapter modeladapter.ModelAdapter, sessions SessionStore, opts ...Option) *Runner {
	r := &Runner{
		Adapter:       adapter,
		Sessions:      sessions,
		MaxModelCalls: defaultMaxModelCalls,
		Concurrency:   defaultConcurrency,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.MaxModelCalls <= 0 {
		r.MaxModelCalls = defaultMaxModelCalls
	}
	if r.Concurrency <= 0 {
		r.Concurrency = defaultConcurrency
	}
	return r
}

// Run executes one conversational turn: persists userInput, then repeatedly
// calls the model and dispatches any requested tools until a tool-free
// assistant message, a cancellation, or an error ends the turn.
func (r *Runner) Run(ctx context.Context, agent *Agent, userInput string, sink core.ToolEventSink) Result {
	if sink == nil {
		sink = core.ToolEventSinkFunc(func(core.Event) {})
	}

	state := &TurnState{Phase: PhaseIdle, CurrentAgent: agent}

	if err := r.Sessions.AddItems(ctx, []core.Item{core.NewUserTextItem(userInput)}); err != nil {
		return r.fail(state, sink, core.WrapError(core.KindCorruptSession, err, "persisting user input"))
	}

	for state.ModelCallCount < r.MaxModelCalls {
		select {
		case <-ctx.Done():
			state.Phase = PhaseCancelled
			sink.Emit(core.ErrorEvent(core.KindCancelled, ctx.Err().Error()))
			return Result{Cancelled: true}
		default:
		}

		state.ModelCallCount++
		state.resetModelCall()

		finished, result := r.runOneModelCall(ctx, state, sink)
		if result != nil {
			return *result
		}
		if finished {
			state.Phase = PhaseCompleted
			return Result{Output: state.text()}
		}
	}

	err := core.NewError(core.KindTurnCapExceeded, "exceeded max model calls (%d) for this turn", r.MaxModelCalls)
	state.Phase = PhaseFailed
	sink.Emit(core.ErrorEvent(err.Kind, err.Detail))
	return Result{Err: err}
}

// runOneModelCall performs steps 1-3 of the turn algorithm for a single
// model call: build the request, stream it, and (if the assistant requested
// tools) dispatch them and persist their outputs. finished reports whether
// the turn is over: the assistant message requested no tools and did not
// hand off to another agent. An empty tool-free message also ends the turn;
// no further model call is made for it. A non-nil *Result short-circuits
// Run with a terminal outcome (error or cancel).
func (r *Runner) runOneModelCall(ctx context.Context, state *TurnState, sink core.ToolEventSink) (finished bool, result *Result) {
	history, err := r.Sessions.GetItems(ctx, 0)
	if err != nil {
		res := r.fail(state, sink, core.WrapError(core.KindCorruptSession, err, "loading session history"))
		return false, &res
	}

	req := state.CurrentAgent.buildRequest(itemsToMessages(history))

	state.Phase = PhaseRequesting
	events, err := r.Adapter.Send(ctx, req)
	if err != nil {
		res := r.fail(state, sink, asEngineError(err, core.KindModelTransient, "sending model request"))
		return false, &res
	}

	state.Phase = PhaseStreaming
	handedOff := false
	for ev := range events {
		switch ev.Kind {
		case core.EventTextDelta:
			state.appendText(ev.Delta)
			sink.Emit(ev)
		case core.EventReasoningStarted:
			sink.Emit(ev)
		case core.EventReasoningDone:
			// A reasoning summary is persisted only when it carries text.
			if ev.ReasoningSummary != "" {
				item := core.NewReasoningItem(ev.ReasoningSummary)
				if err := r.Sessions.AddItems(ctx, []core.Item{item}); err != nil {
					res := r.fail(state, sink, core.WrapError(core.KindCorruptSession, err, "persisting reasoning summary"))
					return false, &res
				}
			}
			sink.Emit(ev)
		case core.EventToolCallStarted:
			state.addPendingToolCall(ev.CallID, ev.ToolName, ev.ArgumentsJSON)
			sink.Emit(ev)
		case core.EventAgentHandoff:
			sink.Emit(ev)
			if next, ok := r.Agents[ev.NewAgentName]; ok {
				state.CurrentAgent = next
				handedOff = true
			}
		case core.EventMessageCompleted:
			// A round that requested tools has no AssistantMessage of its own
			// (§8 scenario S2): any text is just the model's lead-in to the
			// tool calls, and the ToolCall/ToolOutput items persisted by
			// dispatchPendingTools are what represents this round in the
			// session. Only a tool-free round actually ends the turn and is
			// worth persisting as an AssistantMessage.
			if len(state.pending) == 0 {
				item := core.NewAssistantItem(state.text())
				if err := r.Sessions.AddItems(ctx, []core.Item{item}); err != nil {
					res := r.fail(state, sink, core.WrapError(core.KindCorruptSession, err, "persisting assistant message"))
					return false, &res
				}
			}
			sink.Emit(ev)
		case core.EventError:
			res := r.fail(state, sink, &core.EngineError{Kind: ev.ErrorKind, Detail: ev.ErrorDetail})
			return false, &res
		default:
			// Forward-compatible: unknown event kinds are passed through
			// untouched rather than dropped, since the sink (not the
			// runner) decides what to do with them.
			sink.Emit(ev)
		}
	}

	if len(state.pending) == 0 {
		if handedOff {
			// The new agent makes the next model call instead of the turn
			// ending on the round that switched to it.
			return false, nil
		}
		// A tool-free message ends the turn (§4.8 step 4) even when empty,
		// rather than looping forever on a degenerate empty reply.
		return true, nil
	}

	select {
	case <-ctx.Done():
		state.Phase = PhaseCancelled
		sink.Emit(core.ErrorEvent(core.KindCancelled, ctx.Err().Error()))
		return false, &Result{Cancelled: true}
	default:
	}

	state.Phase = PhaseDispatchingTool
	if res := r.dispatchPendingTools(ctx, state, sink); res != nil {
		return false, res
	}

	state.Phase = PhaseStreaming
	return false, nil
}

// cancelGracePeriod bounds how long dispatchPendingTools waits for in-flight
// handlers to return after ctx is cancelled before abandoning them, per
// §4.8's Cancellation clause ("they must return within a grace period,
// otherwise they are abandoned and their outputs discarded").
const cancelGracePeriod = 5 * time.Second

// dispatchPendingTools runs state.pending's handlers with bounded
// parallelism and appends each ToolCall/ToolOutput pair to SessionStore in
// emission order once every call has a result, per §4.8's ordering
// guarantee ("tool outputs are appended in the order their ToolCalls were
// emitted, regardless of handler completion order"). Handlers still running
// when the cancellation grace period expires are abandoned: their output is
// never persisted.
func (r *Runner) dispatchPendingTools(ctx context.Context, state *TurnState, sink core.ToolEventSink) *Result {
	calls := state.pending
	outputs := make([]string, len(calls))
	isErrors := make([]bool, len(calls))
	completed := make([]bool, len(calls))

	state.Phase = PhaseAwaitingToolOutput

	sem := make(chan struct{}, r.Concurrency)
	done := make(chan int, len(calls))
	for i, call := range calls {
		go func(idx int, tc pendingToolCall) {
			select {
			case sem <- struct{}{}:
				defer func() { <-sem }()
			case <-ctx.Done():
				done <- idx
				return
			}
			outputs[idx] = r.executeTool(ctx, state.CurrentAgent, tc, sink)
			done <- idx
		}(i, call)
	}

	remaining := len(calls)
	var grace <-chan time.Time
waitLoop:
	for remaining > 0 {
		select {
		case idx := <-done:
			if !completed[idx] {
				completed[idx] = true
				remaining--
			}
		case <-ctx.Done():
			if grace == nil {
				timer := time.NewTimer(cancelGracePeriod)
				defer timer.Stop()
				grace = timer.C
			}
		case <-grace:
			break waitLoop
		}
	}

	for i, call := range calls {
		if !completed[i] {
			continue // abandoned: output discarded, never persisted
		}
		sink.Emit(core.ToolCallCompletedEvent(call.CallID, outputs[i]))
		items := []core.Item{
			core.NewToolCallItem(call.CallID, call.Name, call.ArgsJSON),
			core.NewToolOutputItem(call.CallID, outputs[i], isErrors[i]),
		}
		if err := r.Sessions.AddItems(ctx, items); err != nil {
			res := r.fail(state, sink, core.WrapError(core.KindCorruptSession, err, "persisting tool call %s", call.CallID))
			return &res
		}
	}
	return nil
}

// executeTool looks up call.Name in agent's registry and runs its handler,
// returning a textual result in every case (missing tool, schema failure,
// or handler error) rather than ever propagating a Go error up the turn —
// a failed tool is feedback to the model, not a reason to end the turn.
func (r *Runner) executeTool(ctx context.Context, agent *Agent, call pendingToolCall, sink core.ToolEventSink) string {
	tc := core.ToolContext{
		Context:   ctx,
		CallID:    call.CallID,
		Sink:      sink,
		Validator: r.Validator,
		SubAgents: r.SubAgents,
	}
	if agent.Tools == nil {
		return "tool not found: " + call.Name
	}
	args := json.RawMessage(call.ArgsJSON)
	if len(call.ArgsJSON) == 0 {
		args = json.RawMessage(`{}`)
	}
	return agent.Tools.Execute(tc, call.Name, args)
}

// fail transitions state to Failed, emits a terminal Error event, and
// builds the Result Run should return. Per §4.8, a failed model call is
// never partially persisted: the caller is responsible for not having
// written an incomplete assistant message before calling fail.
func (r *Runner) fail(state *TurnState, sink core.ToolEventSink, err *core.EngineError) Result {
	state.Phase = PhaseFailed
	sink.Emit(core.ErrorEvent(err.Kind, err.Detail))
	return Result{Err: err}
}

// asEngineError wraps a plain error as an EngineError with fallback, unless
// it already is one (in which case its own Kind is preserved).
func asEngineError(err error, fallback core.ErrorKind, detail string) *core.EngineError {
	if ee, ok := err.(*core.EngineError); ok {
		return ee
	}
	return core.WrapError(fallback, err, "%s", detail)
}
