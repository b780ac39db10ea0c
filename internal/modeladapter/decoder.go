package modeladapter

import (
	"strings"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/serialx/vibecore/internal/core"
)

// maxEmptyStreamEvents bounds how many consecutive no-op raw events the
// decoder tolerates before treating the stream as malformed, matching
// AnthropicProvider.processStream's guard in internal/agent/providers/anthropic.go.
const maxEmptyStreamEvents = 300

// StreamDecoder turns the Anthropic SDK's raw SSE event union into the
// engine's typed core.Event vocabulary (§4.7), accumulating the
// partial-JSON fragments of an in-progress tool_use block across deltas.
type StreamDecoder struct {
	inThinking   bool
	thinkingBuf  strings.Builder
	toolCallID   string
	toolCallName string
	toolInputBuf strings.Builder
	emptyStreak  int
}

// NewStreamDecoder builds a decoder with fresh accumulator state. One
// decoder instance must be used for exactly one stream.
func NewStreamDecoder() *StreamDecoder {
	return &StreamDecoder{}
}

// Decode consumes one raw SDK event and returns zero or more core.Event
// values, in emission order. A malformed-stream guard returns a terminal
// Error event once too many consecutive events produce nothing.
func (d *StreamDecoder) Decode(raw anthropic.MessageStreamEventUnion) []core.Event {
	var out []core.Event
	produced := false

	switch raw.Type {
	case "content_block_start":
		block := raw.AsContentBlockStart().ContentBlock
		switch block.Type {
		case "thinking":
			d.inThinking = true
			d.thinkingBuf.Reset()
			out = append(out, core.ReasoningStartedEvent())
			produced = true
		case "tool_use":
			toolUse := block.AsToolUse()
			d.toolCallID = toolUse.ID
			d.toolCallName = toolUse.Name
			d.toolInputBuf.Reset()
			produced = true
		}

	case "content_block_delta":
		delta := raw.AsContentBlockDelta().Delta
		switch delta.Type {
		case "text_delta":
			if delta.Text != "" {
				out = append(out, core.TextDeltaEvent(delta.Text))
				produced = true
			}
		case "thinking_delta":
			if delta.Thinking != "" {
				d.thinkingBuf.WriteString(delta.Thinking)
				produced = true
			}
		case "input_json_delta":
			if delta.PartialJSON != "" {
				d.toolInputBuf.WriteString(delta.PartialJSON)
				produced = true
			}
		}

	case "content_block_stop":
		if d.inThinking {
			out = append(out, core.ReasoningCompletedEvent(d.thinkingBuf.String()))
			d.thinkingBuf.Reset()
			d.inThinking = false
			produced = true
		} else if d.toolCallID != "" {
			out = append(out, core.ToolCallStartedEvent(d.toolCallID, d.toolCallName, d.toolInputBuf.String()))
			d.toolCallID = ""
			d.toolCallName = ""
			d.toolInputBuf.Reset()
			produced = true
		}

	case "message_delta":
		produced = true // usage-only; no event of our own

	case "message_start":
		produced = true

	case "message_stop":
		out = append(out, core.MessageCompletedEvent())
		return out // terminal for this message; don't run the malformed-stream guard past it

	case "error":
		out = append(out, core.ErrorEvent(core.KindModelTransient, "anthropic stream error"))
		return out
	}

	if produced {
		d.emptyStreak = 0
	} else {
		d.emptyStreak++
		if d.emptyStreak >= maxEmptyStreamEvents {
			out = append(out, core.ErrorEvent(core.KindModelFatal, "stream appears malformed: too many consecutive empty events"))
		}
	}
	return out
}
