package config

import "time"

// SessionConfig controls where session transcripts live on disk and how
// long a turn waits to acquire a session's file lock before giving up.
type SessionConfig struct {
	// BaseDir is the root directory session files are written under, as
	// {base_dir}/projects/{encoded project path}/{session_id}.jsonl.
	BaseDir string `yaml:"base_dir"`

	// LockTimeout is defaulted and validated here. The session stores that
	// cmd/vibecore opens do not read it: they wait up to
	// sessionstore.DefaultLockTimeout (30s) for the session's lock file
	// before failing with a lock_timeout error.
	LockTimeout time.Duration `yaml:"lock_timeout"`
}
