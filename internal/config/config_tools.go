package config

import "time"

// ToolsConfig controls the filesystem sandbox and runtime limits applied to
// built-in tool handlers.
type ToolsConfig struct {
	// AllowedDirs is the path validator's allow-list. A relative entry is
	// resolved against the current working directory at startup. Empty
	// means "the current project directory only."
	AllowedDirs []string `yaml:"allowed_dirs"`

	// BashTimeout is defaulted here (30s) but not read by the bash tool,
	// which bounds each command by its own per-call timeout argument
	// (default 30s, capped at 120s).
	BashTimeout time.Duration `yaml:"bash_timeout"`

	// MaxOutputBytes is defaulted here (1 MiB) but not read by the built-in
	// tools: bash output, file reads and web fetches are truncated at a
	// fixed 50KB.
	MaxOutputBytes int `yaml:"max_output_bytes"`
}
