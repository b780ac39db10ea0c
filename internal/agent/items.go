package agent

import (
	"github.com/serialx/vibecore/internal/core"
	"github.com/serialx/vibecore/internal/modeladapter"
)

// itemsToMessages reconstructs the Anthropic-shaped message history (text,
// tool_use, and tool_result content blocks) from the flat, OpenAI-Responses-
// style items SessionStore persists (§6.1). Adjacent ToolCall items attach
// to the preceding AssistantMsg as tool_use blocks; adjacent ToolOutput
// items form the following user-role message's tool_result blocks. A
// ReasoningSummary item is replay-only and carries no model-facing content.
func itemsToMessages(items []core.Item) []modeladapter.Message {
	var out []modeladapter.Message
	var curAssistant *modeladapter.Message
	var curResults *modeladapter.Message

	flush := func() {
		if curAssistant != nil {
			out = append(out, *curAssistant)
			curAssistant = nil
		}
		if curResults != nil {
			out = append(out, *curResults)
			curResults = nil
		}
	}

	for _, it := range items {
		switch it.Kind {
		case core.ItemUserText:
			flush()
			out = append(out, modeladapter.Message{
				Role:    modeladapter.RoleUser,
				Content: []modeladapter.ContentBlock{{Text: it.UserText.Content}},
			})
		case core.ItemAssistantMsg:
			flush()
			curAssistant = &modeladapter.Message{Role: modeladapter.RoleAssistant}
			if text := it.Assistant.Text(); text != "" {
				curAssistant.Content = append(curAssistant.Content, modeladapter.ContentBlock{Text: text})
			}
		case core.ItemToolCall:
			if curAssistant == nil {
				curAssistant = &modeladapter.Message{Role: modeladapter.RoleAssistant}
			}
			curAssistant.Content = append(curAssistant.Content, modeladapter.ContentBlock{
				ToolUseID: it.ToolCall.CallID,
				ToolName:  it.ToolCall.Name,
				ToolInput: it.ToolCall.Arguments,
			})
		case core.ItemToolOutput:
			if curResults == nil {
				curResults = &modeladapter.Message{Role: modeladapter.RoleUser}
			}
			curResults.Content = append(curResults.Content, modeladapter.ContentBlock{
				ToolResultID:      it.ToolOutput.CallID,
				ToolResultContent: it.ToolOutput.Output,
				ToolResultIsError: it.ToolOutput.IsError,
			})
		case core.ItemReasoning, core.ItemUnknown:
			// Neither carries model-facing content; reasoning is replay-only
			// (§9 Open Question 2) and Unknown items are opaque by definition.
		}
	}
	flush()
	return out
}
