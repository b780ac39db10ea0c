package sessionstore

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/serialx/vibecore/internal/core"
)

// Loader replays a session's items in order, pairing ToolCalls to their
// ToolOutputs by call-id, grounded on
// original_source/src/vibecore/session/loader.py.
type Loader struct {
	store *Store
}

// NewLoader wraps a Store for replay.
func NewLoader(store *Store) *Loader {
	return &Loader{store: store}
}

// Load reads the full item history and verifies every ToolCall is paired
// with a ToolOutput. It fails with UnpairedToolCall if not (§4.1, §4.10).
func (l *Loader) Load(ctx context.Context) ([]core.Item, error) {
	items, err := l.store.GetItems(ctx, 0)
	if err != nil {
		return nil, err
	}

	pending := map[string]string{} // call-id -> tool name
	for _, item := range items {
		switch item.Kind {
		case core.ItemToolCall:
			pending[item.ToolCall.CallID] = item.ToolCall.Name
		case core.ItemToolOutput:
			delete(pending, item.ToolOutput.CallID)
		}
	}
	if len(pending) > 0 {
		ids := make([]string, 0, len(pending))
		for id := range pending {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		return nil, core.NewError(core.KindUnpairedTool, "unpaired tool calls: %s", strings.Join(ids, ", "))
	}

	return items, nil
}

// MostRecentSessionID finds the most recently modified session file under
// {baseDir}/projects/{canonicalized(projectPath)}, for `run --continue`.
func MostRecentSessionID(projectPath, baseDir string) (string, error) {
	absProject, err := filepath.Abs(projectPath)
	if err != nil {
		return "", err
	}
	dir := filepath.Join(baseDir, "projects", Canonicalize(absProject))

	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return "", core.NewError(core.KindInvalidInput, "no sessions found for this project")
	}
	if err != nil {
		return "", err
	}

	var bestID string
	var bestMod int64
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".jsonl") {
			continue
		}
		info, ierr := e.Info()
		if ierr != nil {
			continue
		}
		if bestID == "" || info.ModTime().UnixNano() > bestMod {
			bestID = strings.TrimSuffix(e.Name(), ".jsonl")
			bestMod = info.ModTime().UnixNano()
		}
	}
	if bestID == "" {
		return "", core.NewError(core.KindInvalidInput, "no sessions found for this project")
	}
	return bestID, nil
}

// Exists reports whether a session file already exists for the given id.
func Exists(sessionID, projectPath, baseDir string) (bool, error) {
	fp, err := FilePath(sessionID, projectPath, baseDir)
	if err != nil {
		return false, err
	}
	_, err = os.Stat(fp)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
