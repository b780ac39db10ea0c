// Package pathvalidator confines filesystem- and shell-command-touching
// tools to a configurable set of allowed directories, grounded on
// original_source/src/vibecore/tools/path_validator.py.
package pathvalidator

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

// Validator checks paths against a resolved allow-list, satisfying
// core.PathValidator.
type Validator struct {
	allowed []string // resolved, absolute, no trailing slash
}

// New builds a Validator. An empty allowed list defaults to the current
// working directory, per PathValidator.__init__.
func New(allowed []core.AllowedDirectory) (*Validator, error) {
	if len(allowed) == 0 {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		resolved, err := resolveSymlinks(cwd)
		if err != nil {
			return nil, err
		}
		return &Validator{allowed: []string{resolved}}, nil
	}

	v := &Validator{}
	for _, dir := range allowed {
		resolved, err := resolveSymlinks(string(dir))
		if err != nil {
			return nil, fmt.Errorf("resolving allowed directory %q: %w", dir, err)
		}
		v.allowed = append(v.allowed, resolved)
	}
	return v, nil
}

func resolveSymlinks(path string) (string, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	resolved, err := filepath.EvalSymlinks(abs)
	if err != nil {
		if os.IsNotExist(err) {
			// A non-existent path (e.g. a file about to be created) resolves
			// through its nearest existing ancestor, so a symlinked parent
			// directory is still followed.
			parent := filepath.Dir(abs)
			if parent == abs {
				return abs, nil
			}
			resolvedParent, perr := resolveSymlinks(parent)
			if perr != nil {
				return "", perr
			}
			return filepath.Join(resolvedParent, filepath.Base(abs)), nil
		}
		return "", err
	}
	return resolved, nil
}

// ValidatePath resolves path (following symlinks) and confirms it falls
// under an allowed directory, returning the resolved absolute path.
func (v *Validator) ValidatePath(path string) (string, error) {
	resolved, err := resolveSymlinks(path)
	if err != nil {
		return "", core.NewError(core.KindPathValidation, "cannot resolve path %q: %v", path, err)
	}
	if !v.isAllowed(resolved) {
		return "", core.NewError(core.KindPathValidation,
			"path %q is outside the allowed directories (%s)", resolved, strings.Join(v.allowed, ", "))
	}
	return resolved, nil
}

func (v *Validator) isAllowed(resolved string) bool {
	for _, dir := range v.allowed {
		if resolved == dir || strings.HasPrefix(resolved, dir+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// AllowedDirectories returns a copy of the configured allow-list.
func (v *Validator) AllowedDirectories() []string {
	out := make([]string, len(v.allowed))
	copy(out, v.allowed)
	return out
}
