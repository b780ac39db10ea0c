package agent

import "strings"

// Phase names one state of the AgentRunner state machine (§4.8).
type Phase string

const (
	PhaseIdle               Phase = "idle"
	PhaseRequesting         Phase = "requesting"
	PhaseStreaming          Phase = "streaming"
	PhaseDispatchingTool    Phase = "dispatching_tool"
	PhaseAwaitingToolOutput Phase = "awaiting_tool_output"
	PhaseCompleted          Phase = "completed"
	PhaseCancelled          Phase = "cancelled"
	PhaseFailed             Phase = "failed"
)

// pendingToolCall is one ToolCallStarted event's payload, held until its
// handler returns.
type pendingToolCall struct {
	CallID   string
	Name     string
	ArgsJSON string
}

// TurnState tracks one in-flight turn: the current model-call phase, the
// agent driving the next request (may change mid-turn on AgentHandoff), the
// in-progress assistant text buffer, and tool calls awaiting dispatch.
type TurnState struct {
	Phase          Phase
	CurrentAgent   *Agent
	ModelCallCount int

	currentText strings.Builder
	pending     []pendingToolCall
}

// appendText accumulates a TextDelta into the in-progress assistant message.
func (s *TurnState) appendText(delta string) { s.currentText.WriteString(delta) }

// text returns the accumulated assistant message text for the current
// model call.
func (s *TurnState) text() string { return s.currentText.String() }

// resetModelCall clears per-model-call accumulators ahead of the next
// model call, leaving Phase/CurrentAgent/ModelCallCount untouched.
func (s *TurnState) resetModelCall() {
	s.currentText.Reset()
	s.pending = nil
}

// addPendingToolCall records a ToolCallStarted event in emission order,
// which is also the order its output must be appended to SessionStore and
// fed back into the next model call (§4.8 "Concurrency within a turn").
func (s *TurnState) addPendingToolCall(callID, name, argsJSON string) {
	s.pending = append(s.pending, pendingToolCall{CallID: callID, Name: name, ArgsJSON: argsJSON})
}
