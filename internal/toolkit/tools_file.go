package toolkit

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

const maxFileToolOutput = 50 * 1024 // 50KB, matching the pack's file-tool truncation convention

type readParams struct {
	Path   string `json:"path" jsonschema:"required,description=Absolute or relative file path to read"`
	Offset int    `json:"offset,omitempty" jsonschema:"description=Line number to start reading from (1-based, default: 1)"`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read (default: all)"`
}

// ReadTool returns the `read` ToolDescriptor: line-numbered file reads with
// offset/limit, confined to allowed directories via the tool context's
// PathValidator. Grounded on batalabs-muxd's file_read tool.
func ReadTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "read",
		Description: "Read a file's contents with line numbers. Use offset and limit for large files. Read before editing to get exact text.",
		Schema:      mustSchema(&readParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p readParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Path == "" {
				return "", fmt.Errorf("path is required")
			}

			resolved, err := validatePath(tc, p.Path)
			if err != nil {
				return "", err
			}

			data, err := os.ReadFile(resolved)
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", p.Path, err)
			}

			text := strings.ReplaceAll(string(data), "\r\n", "\n")
			lines := strings.Split(text, "\n")

			offset := 1
			if p.Offset > 0 {
				offset = p.Offset
			}
			limit := len(lines)
			if p.Limit > 0 {
				limit = p.Limit
			}

			start := clamp(offset-1, 0, len(lines))
			end := clamp(start+limit, 0, len(lines))

			var b strings.Builder
			for i := start; i < end; i++ {
				fmt.Fprintf(&b, "%6d\t%s\n", i+1, lines[i])
			}

			return truncate(b.String()), nil
		},
	}
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func truncate(s string) string {
	if len(s) <= maxFileToolOutput {
		return s
	}
	return s[:maxFileToolOutput] + fmt.Sprintf("\n... (truncated at %dKB)", maxFileToolOutput/1024)
}

type writeParams struct {
	Path    string `json:"path" jsonschema:"required,description=File path to write to"`
	Content string `json:"content" jsonschema:"required,description=Content to write to the file"`
}

// WriteTool returns the `write` ToolDescriptor: create-or-overwrite, with
// parent directories created automatically.
func WriteTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "write",
		Description: "Create or overwrite a file. Parent directories are created automatically. Prefer edit for modifying existing files.",
		Schema:      mustSchema(&writeParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p writeParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Path == "" {
				return "", fmt.Errorf("path is required")
			}

			resolved, err := validatePath(tc, p.Path)
			if err != nil {
				return "", err
			}

			if err := os.MkdirAll(filepath.Dir(resolved), 0o755); err != nil {
				return "", fmt.Errorf("creating directories: %w", err)
			}
			if err := os.WriteFile(resolved, []byte(p.Content), 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", p.Path, err)
			}

			lines := strings.Count(p.Content, "\n") + 1
			return fmt.Sprintf("Wrote %d bytes (%d lines) to %s", len(p.Content), lines, p.Path), nil
		},
	}
}

type editParams struct {
	Path       string `json:"path" jsonschema:"required,description=File path"`
	OldString  string `json:"old_string" jsonschema:"required,description=Exact text to find"`
	NewString  string `json:"new_string" jsonschema:"description=Text to replace it with"`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences instead of requiring exactly one (default: false)"`
}

// EditTool returns the `edit` ToolDescriptor: exact-text replacement,
// requiring old_string to match exactly once unless replace_all is set.
func EditTool() core.ToolDescriptor {
	return core.ToolDescriptor{
		Name:        "edit",
		Description: "Replace exact text in a file. old_string must match exactly once (or set replace_all for bulk changes). Always read the file first to get the exact text to match.",
		Schema:      mustSchema(&editParams{}),
		Handler: func(tc core.ToolContext, raw json.RawMessage) (string, error) {
			var p editParams
			if err := json.Unmarshal(raw, &p); err != nil {
				return "", fmt.Errorf("invalid arguments: %w", err)
			}
			if p.Path == "" {
				return "", fmt.Errorf("path is required")
			}
			if p.OldString == "" {
				return "", fmt.Errorf("old_string is required")
			}

			resolved, err := validatePath(tc, p.Path)
			if err != nil {
				return "", err
			}

			data, err := os.ReadFile(resolved)
			if err != nil {
				return "", fmt.Errorf("reading %s: %w", p.Path, err)
			}
			content := string(data)
			count := strings.Count(content, p.OldString)
			if count == 0 {
				return "", fmt.Errorf("old_string not found in %s", p.Path)
			}

			var newContent string
			if p.ReplaceAll {
				newContent = strings.ReplaceAll(content, p.OldString, p.NewString)
			} else {
				if count > 1 {
					return "", fmt.Errorf("old_string found %d times in %s (must match exactly once, or set replace_all)", count, p.Path)
				}
				newContent = strings.Replace(content, p.OldString, p.NewString, 1)
			}

			if err := os.WriteFile(resolved, []byte(newContent), 0o644); err != nil {
				return "", fmt.Errorf("writing %s: %w", p.Path, err)
			}

			return fmt.Sprintf("Edited %s: replaced %d occurrence(s)", p.Path, count), nil
		},
	}
}

// validatePath routes a tool-supplied path through the context's
// PathValidator, per SPEC_FULL.md §4.6's path-confinement rule. A nil
// Validator (e.g. in a test harness with no confinement configured) passes
// the path through as given.
func validatePath(tc core.ToolContext, path string) (string, error) {
	if tc.Validator == nil {
		return path, nil
	}
	return tc.Validator.ValidatePath(path)
}
