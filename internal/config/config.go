// Package config loads vibecore's layered configuration into an immutable
// struct: `~/.vibecore/config.yaml` as the base layer, optionally overridden
// by a project-local `.vibecore.json5`, with environment variables applied
// on top of both. Grounded on the teacher's internal/config package
// (loader.go's $include/merge machinery is kept verbatim; config.go's
// domain-specific schema is replaced with vibecore's own).
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config is vibecore's root configuration structure. A zero Config is not
// valid; use Load or Default.
type Config struct {
	Version int `yaml:"version"`

	Session SessionConfig `yaml:"session"`
	Model   ModelConfig   `yaml:"model"`
	Auth    AuthConfig    `yaml:"auth"`
	Tools   ToolsConfig   `yaml:"tools"`
	Log     LogConfig     `yaml:"log"`
}

// Default returns a Config populated entirely from defaults, used when no
// config.yaml exists on disk yet.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// Load reads configPath (the base layer) and, if projectOverridePath is
// non-empty and exists, merges it on top before decoding. Either path may
// be missing entirely, in which case that layer contributes nothing and
// Load proceeds with defaults. Env var overrides are applied after both
// layers are merged, and defaults fill anything still unset.
func Load(configPath, projectOverridePath string) (*Config, error) {
	merged := map[string]any{}

	if configPath != "" {
		if raw, err := loadRawIfExists(configPath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", configPath, err)
		} else if raw != nil {
			merged = mergeMaps(merged, raw)
		}
	}

	if projectOverridePath != "" {
		if raw, err := loadRawIfExists(projectOverridePath); err != nil {
			return nil, fmt.Errorf("loading %s: %w", projectOverridePath, err)
		} else if raw != nil {
			merged = mergeMaps(merged, raw)
		}
	}

	cfg, err := decodeRawConfig(merged)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	if err := ValidateVersion(cfg.Version); err != nil {
		return nil, err
	}
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// loadRawIfExists is LoadRaw, except a missing file is not an error — it
// yields (nil, nil) so the caller treats it as an absent layer.
func loadRawIfExists(path string) (map[string]any, error) {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	return LoadRaw(path)
}

// DefaultConfigPath returns ~/.vibecore/config.yaml.
func DefaultConfigPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolving home directory: %w", err)
	}
	return filepath.Join(home, ".vibecore", "config.yaml"), nil
}

// ProjectOverridePath returns {projectPath}/.vibecore.json5.
func ProjectOverridePath(projectPath string) string {
	return filepath.Join(projectPath, ".vibecore.json5")
}

func applyDefaults(cfg *Config) {
	if cfg.Version == 0 {
		cfg.Version = CurrentVersion
	}
	applySessionDefaults(&cfg.Session)
	applyModelDefaults(&cfg.Model)
	applyAuthDefaults(&cfg.Auth)
	applyToolsDefaults(&cfg.Tools)
	applyLogDefaults(&cfg.Log)
}

func applySessionDefaults(cfg *SessionConfig) {
	if cfg.BaseDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.BaseDir = filepath.Join(home, ".vibecore")
		}
	}
	if cfg.LockTimeout == 0 {
		cfg.LockTimeout = 30 * time.Second
	}
}

func applyModelDefaults(cfg *ModelConfig) {
	if cfg.Default == "" {
		cfg.Default = "claude-sonnet-4-5"
	}
	if cfg.MaxTokens == 0 {
		cfg.MaxTokens = 8192
	}
	if cfg.MaxModelCalls == 0 {
		cfg.MaxModelCalls = 200
	}
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 5
	}
}

func applyAuthDefaults(cfg *AuthConfig) {
	if cfg.Mode == "" {
		cfg.Mode = "max"
	}
}

func applyToolsDefaults(cfg *ToolsConfig) {
	if cfg.BashTimeout == 0 {
		cfg.BashTimeout = 30 * time.Second
	}
	if cfg.MaxOutputBytes == 0 {
		cfg.MaxOutputBytes = 1 << 20 // 1 MiB
	}
}

func applyLogDefaults(cfg *LogConfig) {
	if cfg.Level == "" {
		cfg.Level = "info"
	}
	if cfg.Format == "" {
		cfg.Format = "text"
	}
}

// applyEnvOverrides lets deployment environments override a handful of
// fields without editing config.yaml, matching the teacher's
// VIBECORE_*/NEXUS_* override convention.
func applyEnvOverrides(cfg *Config) {
	if cfg == nil {
		return
	}

	if value := strings.TrimSpace(os.Getenv("VIBECORE_SESSION_BASE_DIR")); value != "" {
		cfg.Session.BaseDir = value
	}
	if value := strings.TrimSpace(os.Getenv("VIBECORE_MODEL")); value != "" {
		cfg.Model.Default = value
	}
	if value := strings.TrimSpace(os.Getenv("VIBECORE_LOG_LEVEL")); value != "" {
		cfg.Log.Level = value
	}
	if value := strings.TrimSpace(os.Getenv("VIBECORE_AUTH_MODE")); value != "" {
		cfg.Auth.Mode = value
	}
	if value := strings.TrimSpace(os.Getenv("VIBECORE_MAX_MODEL_CALLS")); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			cfg.Model.MaxModelCalls = parsed
		}
	}
}

// ConfigValidationError collects every validation failure found in one pass,
// so a user fixing config.yaml sees all the problems at once rather than one
// at a time.
type ConfigValidationError struct {
	Issues []string
}

func (e *ConfigValidationError) Error() string {
	return "config validation failed:\n- " + strings.Join(e.Issues, "\n- ")
}

func validateConfig(cfg *Config) error {
	if cfg == nil {
		return nil
	}
	var issues []string

	switch cfg.Auth.Mode {
	case "max", "console":
	default:
		issues = append(issues, fmt.Sprintf("auth.mode: must be \"max\" or \"console\", got %q", cfg.Auth.Mode))
	}

	switch cfg.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		issues = append(issues, fmt.Sprintf("log.level: must be one of debug/info/warn/error, got %q", cfg.Log.Level))
	}

	switch cfg.Log.Format {
	case "text", "json":
	default:
		issues = append(issues, fmt.Sprintf("log.format: must be \"text\" or \"json\", got %q", cfg.Log.Format))
	}

	if cfg.Model.MaxModelCalls <= 0 {
		issues = append(issues, "model.max_model_calls: must be positive")
	}
	if cfg.Model.Concurrency <= 0 {
		issues = append(issues, "model.concurrency: must be positive")
	}
	if cfg.Session.LockTimeout <= 0 {
		issues = append(issues, "session.lock_timeout: must be positive")
	}

	if len(issues) > 0 {
		return &ConfigValidationError{Issues: issues}
	}
	return nil
}
