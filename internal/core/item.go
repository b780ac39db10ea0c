package core

import "encoding/json"

// ItemKind tags the concrete type of an Item for serialization and
// pattern-matching without relying on type assertions everywhere.
type ItemKind string

const (
	ItemUserText     ItemKind = "user_text"
	ItemAssistantMsg ItemKind = "assistant_message"
	ItemReasoning    ItemKind = "reasoning_summary"
	ItemToolCall     ItemKind = "tool_call"
	ItemToolOutput   ItemKind = "tool_output"
	ItemUnknown      ItemKind = "unknown"
)

// Item is one entry in a session's append-only log. It is a closed tagged
// variant: Kind identifies which of the typed fields is populated.
type Item struct {
	Kind ItemKind

	UserText     *UserText
	Assistant    *AssistantMessage
	Reasoning    *ReasoningSummary
	ToolCall     *ToolCall
	ToolOutput   *ToolOutput
	Unknown      json.RawMessage
}

// UserText is raw text typed by the human.
type UserText struct {
	Content string `json:"content"`
}

// TextSegment is one piece of assistant output text.
type TextSegment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// AssistantMessage is a completed (or, transiently, in-progress) model reply.
type AssistantMessage struct {
	Content []TextSegment `json:"content"`
	Status  string        `json:"status"`
}

// Text concatenates the message's text segments.
func (m *AssistantMessage) Text() string {
	out := ""
	for _, seg := range m.Content {
		out += seg.Text
	}
	return out
}

// ReasoningSummary carries a model's thinking-block summary, if the
// provider exposes one and it is non-empty (see DESIGN.md Open Question 2).
type ReasoningSummary struct {
	Text string `json:"text"`
}

// ToolCall is the model's request to invoke a named tool.
type ToolCall struct {
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON-encoded argument object
}

// ToolOutput is the engine-produced result of executing a ToolCall.
type ToolOutput struct {
	CallID  string `json:"call_id"`
	Output  string `json:"output"`
	IsError bool   `json:"is_error,omitempty"`
}

// NewUserTextItem builds a UserText Item.
func NewUserTextItem(content string) Item {
	return Item{Kind: ItemUserText, UserText: &UserText{Content: content}}
}

// NewAssistantItem builds a completed AssistantMessage Item.
func NewAssistantItem(text string) Item {
	return Item{Kind: ItemAssistantMsg, Assistant: &AssistantMessage{
		Content: []TextSegment{{Type: "output_text", Text: text}},
		Status:  "completed",
	}}
}

// NewToolCallItem builds a ToolCall Item.
func NewToolCallItem(callID, name, argumentsJSON string) Item {
	return Item{Kind: ItemToolCall, ToolCall: &ToolCall{CallID: callID, Name: name, Arguments: argumentsJSON}}
}

// NewToolOutputItem builds a ToolOutput Item.
func NewToolOutputItem(callID, output string, isError bool) Item {
	return Item{Kind: ItemToolOutput, ToolOutput: &ToolOutput{CallID: callID, Output: output, IsError: isError}}
}

// NewReasoningItem builds a ReasoningSummary Item. Callers must only persist
// this when text is non-empty (§9 Open Question 2).
func NewReasoningItem(text string) Item {
	return Item{Kind: ItemReasoning, Reasoning: &ReasoningSummary{Text: text}}
}
