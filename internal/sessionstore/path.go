// Package sessionstore implements the append-only, file-locked JSONL
// session log described in SPEC_FULL.md §4.1, grounded on
// original_source/src/vibecore/session/{jsonl_session,path_utils,file_lock}.py.
package sessionstore

import (
	"path/filepath"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

// Canonicalize implements the exact path_utils.py algorithm: replace "/"
// then "\" with "-", drop ":", strip leading/trailing "-", default "root".
func Canonicalize(path string) string {
	s := strings.ReplaceAll(path, "/", "-")
	s = strings.ReplaceAll(s, "\\", "-")
	s = strings.ReplaceAll(s, ":", "")
	s = strings.Trim(s, "-")
	if s == "" {
		return "root"
	}
	return s
}

// ValidateSessionID rejects directory-traversal session ids per §4.1.
func ValidateSessionID(id string) error {
	if strings.Contains(id, "/") || strings.Contains(id, "\\") || strings.Contains(id, "..") {
		return core.NewError(core.KindInvalidInput, "invalid session id %q", id)
	}
	if id == "" {
		return core.NewError(core.KindInvalidInput, "session id must not be empty")
	}
	return nil
}

// FilePath computes {baseDir}/projects/{canonicalized(projectPath)}/{sessionID}.jsonl.
func FilePath(sessionID, projectPath, baseDir string) (string, error) {
	if err := ValidateSessionID(sessionID); err != nil {
		return "", err
	}
	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	canon := Canonicalize(absProject)
	return filepath.Join(baseDir, "projects", canon, sessionID+".jsonl"), nil
}
