package core

// EventKind tags the variant of an Event.
type EventKind string

const (
	EventTextDelta         EventKind = "text_delta"
	EventToolCallStarted   EventKind = "tool_call_started"
	EventToolCallCompleted EventKind = "tool_call_completed"
	EventReasoningStarted  EventKind = "reasoning_started"
	EventReasoningDone     EventKind = "reasoning_completed"
	EventMessageCompleted  EventKind = "message_completed"
	EventAgentHandoff      EventKind = "agent_handoff"
	EventSubAgent          EventKind = "sub_agent_event"
	EventError             EventKind = "error"
	EventTurnFinished      EventKind = "turn_finished"
	EventSystem            EventKind = "system"
	EventUserMessage       EventKind = "user_message"
)

// Event is the engine's only output channel to the UI consumer.
type Event struct {
	Kind EventKind

	Delta             string
	CallID            string
	ToolName          string
	ArgumentsJSON     string
	Output            string
	ReasoningSummary  string
	NewAgentName      string
	ParentCallID      string
	Nested            *Event
	ErrorKind         ErrorKind
	ErrorDetail       string
	FinalOutput       string
	SystemMessage     string
}

// TextDeltaEvent builds a TextDelta event.
func TextDeltaEvent(delta string) Event { return Event{Kind: EventTextDelta, Delta: delta} }

// ToolCallStartedEvent builds a ToolCallStarted event.
func ToolCallStartedEvent(callID, name, argsJSON string) Event {
	return Event{Kind: EventToolCallStarted, CallID: callID, ToolName: name, ArgumentsJSON: argsJSON}
}

// ToolCallCompletedEvent builds a ToolCallCompleted event.
func ToolCallCompletedEvent(callID, output string) Event {
	return Event{Kind: EventToolCallCompleted, CallID: callID, Output: output}
}

// MessageCompletedEvent builds a MessageCompleted event.
func MessageCompletedEvent() Event { return Event{Kind: EventMessageCompleted} }

// AgentHandoffEvent builds an AgentHandoff event.
func AgentHandoffEvent(newAgent string) Event {
	return Event{Kind: EventAgentHandoff, NewAgentName: newAgent}
}

// ErrorEvent builds a terminal Error event.
func ErrorEvent(kind ErrorKind, detail string) Event {
	return Event{Kind: EventError, ErrorKind: kind, ErrorDetail: detail}
}

// TurnFinishedEvent builds the final success event for a turn.
func TurnFinishedEvent(output string) Event {
	return Event{Kind: EventTurnFinished, FinalOutput: output}
}

// SubAgentEvent wraps a nested event with its parent tool-call-id, per
// SPEC_FULL.md §4.9.
func SubAgentEvent(parentCallID string, nested Event) Event {
	return Event{Kind: EventSubAgent, ParentCallID: parentCallID, Nested: &nested}
}

// ReasoningStartedEvent marks the beginning of a thinking block.
func ReasoningStartedEvent() Event { return Event{Kind: EventReasoningStarted} }

// ReasoningCompletedEvent carries a finished reasoning summary.
func ReasoningCompletedEvent(summary string) Event {
	return Event{Kind: EventReasoningDone, ReasoningSummary: summary}
}

// SystemEvent builds a SystemEvent (e.g. emitted on /clear), per §4.10.
func SystemEvent(message string) Event { return Event{Kind: EventSystem, SystemMessage: message} }

// UserMessageEvent replays a previously persisted UserText item during
// session replay (§4.10), reusing Delta as the payload field since it is
// otherwise just echoed text rather than an incremental stream chunk.
func UserMessageEvent(text string) Event { return Event{Kind: EventUserMessage, Delta: text} }
