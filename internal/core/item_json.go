package core

import "encoding/json"

// userTextWire, assistantWire, etc. mirror the recognized item shapes from
// SPEC_FULL.md §6.1. Unknown top-level shapes round-trip through the
// Unknown variant untouched.

type assistantWire struct {
	Role    string        `json:"role"`
	Type    string        `json:"type"`
	Content []TextSegment `json:"content"`
	Status  string        `json:"status"`
}

type functionCallWire struct {
	Type      string `json:"type"`
	CallID    string `json:"call_id"`
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type functionOutputWire struct {
	Type   string `json:"type"`
	CallID string `json:"call_id"`
	Output string `json:"output"`
}

type reasoningWire struct {
	Type    string        `json:"type"`
	Summary []TextSegment `json:"summary"`
}

type userWire struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// MarshalJSON renders the Item in the wire shapes SessionStore persists.
func (it Item) MarshalJSON() ([]byte, error) {
	switch it.Kind {
	case ItemUserText:
		return json.Marshal(userWire{Role: "user", Content: it.UserText.Content})
	case ItemAssistantMsg:
		return json.Marshal(assistantWire{
			Role: "assistant", Type: "message",
			Content: it.Assistant.Content, Status: it.Assistant.Status,
		})
	case ItemToolCall:
		return json.Marshal(functionCallWire{
			Type: "function_call", CallID: it.ToolCall.CallID,
			Name: it.ToolCall.Name, Arguments: it.ToolCall.Arguments,
		})
	case ItemToolOutput:
		return json.Marshal(functionOutputWire{
			Type: "function_call_output", CallID: it.ToolOutput.CallID, Output: it.ToolOutput.Output,
		})
	case ItemReasoning:
		return json.Marshal(reasoningWire{
			Type:    "reasoning",
			Summary: []TextSegment{{Type: "text", Text: it.Reasoning.Text}},
		})
	case ItemUnknown:
		return it.Unknown, nil
	default:
		return nil, NewError(KindInvalidInput, "unknown item kind %q", it.Kind)
	}
}

// ParseItem decodes one raw JSON-line payload into an Item, preserving
// anything unrecognized as the Unknown variant (never erroring on read).
func ParseItem(raw []byte) (Item, error) {
	var probe struct {
		Role string `json:"role"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &probe); err != nil {
		return Item{}, err
	}

	switch {
	case probe.Role == "user" && probe.Type == "":
		var w userWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Item{}, err
		}
		return NewUserTextItem(w.Content), nil
	case probe.Role == "assistant":
		var w assistantWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Item{}, err
		}
		return Item{Kind: ItemAssistantMsg, Assistant: &AssistantMessage{Content: w.Content, Status: w.Status}}, nil
	case probe.Type == "function_call":
		var w functionCallWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Item{}, err
		}
		return NewToolCallItem(w.CallID, w.Name, w.Arguments), nil
	case probe.Type == "function_call_output":
		var w functionOutputWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Item{}, err
		}
		return NewToolOutputItem(w.CallID, w.Output, false), nil
	case probe.Type == "reasoning":
		var w reasoningWire
		if err := json.Unmarshal(raw, &w); err != nil {
			return Item{}, err
		}
		text := ""
		for _, seg := range w.Summary {
			text += seg.Text
		}
		return NewReasoningItem(text), nil
	default:
		cp := make(json.RawMessage, len(raw))
		copy(cp, raw)
		return Item{Kind: ItemUnknown, Unknown: cp}, nil
	}
}
