package toolkit

import (
	"encoding/json"
	"fmt"

	"github.com/serialx/vibecore/internal/core"
)

type taskParams struct {
	Prompt string `json:"prompt" jsonschema:"required,description=The task to delegate to a fresh sub-agent"`
}

// TaskTool returns the `task` ToolDescriptor: the SubAgentSupervisor front
// door described in SPEC_FULL.md §4.9. It is omitted from the tool set
// handed to the sub-agent it spawns (the supervisor's own Agent
// construction excludes "task" to prevent infinite recursion; this
// descriptor itself has no opinion about that — it only dispatches).
func TaskTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "task",
		Description: "Delegate a self-contained task to a fresh sub-agent and return its final answer. The sub-agent has no access to this conversation's history beyond the prompt given here.",
		Schema:      mustSchema(&taskParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p taskParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Prompt == "" {
				return "", fmt.Errorf("prompt is required")
			}
			if tc.SubAgents == nil {
				return "", fmt.Errorf("sub-agent dispatch is not available in this context")
			}
			return tc.SubAgents.Dispatch(tc.Context, p.Prompt, tc.CallID, tc.Sink)
		},
	}
}
