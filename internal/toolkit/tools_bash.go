package toolkit

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"time"

	"github.com/serialx/vibecore/internal/core"
)

const (
	defaultBashTimeoutSeconds = 30
	maxBashTimeoutSeconds     = 120
)

type bashParams struct {
	Command string `json:"command" jsonschema:"required,description=Shell command to execute"`
	Timeout int    `json:"timeout,omitempty" jsonschema:"description=Timeout in seconds (default: 30, max: 120)"`
}

// BashTool returns the `bash` ToolDescriptor: runs a shell command under
// `sh -c`, bounded by a timeout and, when the context carries a
// PathValidator, by command-path confinement (SPEC_FULL.md §4.6). Grounded
// on batalabs-muxd's bashTool (timeout clamping, combined stdout/stderr
// capture, 50KB output truncation).
func BashTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "bash",
		Description: "Run a shell command and return stdout+stderr. Use for git, build commands, installers, and other CLI tools. Prefer read/write/edit/grep for file operations.",
		Schema:      mustSchema(&bashParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p bashParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Command == "" {
				return "", fmt.Errorf("command is required")
			}

			if tc.Validator != nil {
				if err := tc.Validator.ValidateCommand(p.Command); err != nil {
					return "", err
				}
			}

			timeout := defaultBashTimeoutSeconds
			if p.Timeout > 0 {
				timeout = p.Timeout
				if timeout > maxBashTimeoutSeconds {
					timeout = maxBashTimeoutSeconds
				}
			}

			parent := tc.Context
			if parent == nil {
				parent = context.Background()
			}
			cmdCtx, cancel := context.WithTimeout(parent, time.Duration(timeout)*time.Second)
			defer cancel()

			cmd := exec.CommandContext(cmdCtx, "sh", "-c", p.Command)
			out, err := cmd.CombinedOutput()
			result := truncate(string(out))

			if err != nil {
				if cmdCtx.Err() == context.DeadlineExceeded {
					return result + fmt.Sprintf("\n(command timed out after %ds)", timeout), nil
				}
				return result + fmt.Sprintf("\n(exit error: %v)", err), nil
			}
			return result, nil
		},
	}
}
