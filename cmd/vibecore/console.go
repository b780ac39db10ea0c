package main

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"

	"github.com/serialx/vibecore/internal/core"
)

// consoleSink renders engine Events to a terminal. When stdout is a real
// TTY it streams text deltas inline as they arrive; when it is redirected
// (a pipe, a file) it buffers each message and writes it whole, since a
// non-interactive consumer gains nothing from partial lines and loses the
// ability to grep complete output. Grounded on the inline-vs-buffered
// distinction kadirpekel-hector's approval prompt draws with
// term.IsTerminal.
type consoleSink struct {
	out    io.Writer
	inline bool
	buf    []byte
	depth  int
}

func newConsoleSink(out *os.File) *consoleSink {
	inline := term.IsTerminal(int(out.Fd()))
	return &consoleSink{out: out, inline: inline}
}

// Emit implements core.ToolEventSink.
func (c *consoleSink) Emit(e core.Event) {
	prefix := ""
	if c.depth > 0 {
		prefix = "  "
	}

	switch e.Kind {
	case core.EventTextDelta:
		if c.inline {
			fmt.Fprint(c.out, e.Delta)
		} else {
			c.buf = append(c.buf, e.Delta...)
		}
	case core.EventUserMessage:
		fmt.Fprintf(c.out, "%s> %s\n", prefix, e.Delta)
	case core.EventReasoningStarted:
		fmt.Fprintf(c.out, "%s[thinking]\n", prefix)
	case core.EventReasoningDone:
		if e.ReasoningSummary != "" {
			fmt.Fprintf(c.out, "%s[thinking] %s\n", prefix, e.ReasoningSummary)
		}
	case core.EventToolCallStarted:
		fmt.Fprintf(c.out, "%s→ %s(%s)\n", prefix, e.ToolName, e.ArgumentsJSON)
	case core.EventToolCallCompleted:
		fmt.Fprintf(c.out, "%s← %s\n", prefix, e.Output)
	case core.EventAgentHandoff:
		fmt.Fprintf(c.out, "%s[handoff -> %s]\n", prefix, e.NewAgentName)
	case core.EventSubAgent:
		if e.Nested == nil {
			return
		}
		c.depth++
		c.Emit(*e.Nested)
		c.depth--
	case core.EventMessageCompleted:
		if !c.inline && len(c.buf) > 0 {
			fmt.Fprintln(c.out, string(c.buf))
			c.buf = c.buf[:0]
		} else if c.inline {
			fmt.Fprintln(c.out)
		}
	case core.EventTurnFinished:
		// Content already flushed by EventMessageCompleted; nothing more to
		// print here, the orchestrator's caller just needs the turn to be
		// known-done to prompt for the next line.
	case core.EventError:
		fmt.Fprintf(c.out, "%serror (%s): %s\n", prefix, e.ErrorKind, e.ErrorDetail)
	case core.EventSystem:
		fmt.Fprintf(c.out, "%s* %s\n", prefix, e.SystemMessage)
	}
}
