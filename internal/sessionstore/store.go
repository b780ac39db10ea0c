package sessionstore

import (
	"bufio"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/serialx/vibecore/internal/core"
)

// Store is a JSONL-backed Session as described in SPEC_FULL.md §4.1,
// grounded directly on original_source/src/vibecore/session/jsonl_session.py.
type Store struct {
	sessionID   string
	projectPath string
	baseDir     string
	filePath    string

	locker *fileLocker
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLockTimeout overrides the default 30s lock-acquisition timeout.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Store) { s.locker = newFileLocker(d) }
}

// WithLogger attaches a structured logger; defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// New constructs a Store for sessionID, rooted at projectPath (defaults to
// the process cwd) under baseDir (defaults to ~/.vibecore).
func New(sessionID, projectPath, baseDir string, opts ...Option) (*Store, error) {
	if projectPath == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, err
		}
		projectPath = cwd
	}
	if baseDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		baseDir = filepath.Join(home, ".vibecore")
	}

	fp, err := FilePath(sessionID, projectPath, baseDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(fp), 0o755); err != nil {
		return nil, err
	}

	s := &Store{
		sessionID:   sessionID,
		projectPath: projectPath,
		baseDir:     baseDir,
		filePath:    fp,
		locker:      newFileLocker(DefaultLockTimeout),
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// SessionID returns the session's identifier.
func (s *Store) SessionID() string { return s.sessionID }

// FilePath returns the backing JSONL file's absolute path.
func (s *Store) FilePath() string { return s.filePath }

// GetItems returns up to limit most-recent items in chronological order,
// or all items when limit <= 0. Missing file is not an error (§4.1).
func (s *Store) GetItems(ctx context.Context, limit int) ([]core.Item, error) {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil, nil
	}

	release, err := s.locker.lock(ctx, s.filePath)
	if err != nil {
		return nil, err
	}
	defer release()

	f, err := os.Open(s.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var all []core.Item
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		item, perr := core.ParseItem([]byte(line))
		if perr != nil {
			s.logger.Warn("skipping invalid JSON line in session file", "path", s.filePath, "error", perr)
			continue
		}
		all = append(all, item)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit <= 0 || limit >= len(all) {
		return all, nil
	}
	return all[len(all)-limit:], nil
}

// AddItems appends items to the session log, each as one JSON line.
func (s *Store) AddItems(ctx context.Context, items []core.Item) error {
	if len(items) == 0 {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.filePath), 0o755); err != nil {
		return err
	}

	release, err := s.locker.lock(ctx, s.filePath)
	if err != nil {
		return err
	}
	defer release()

	f, err := os.OpenFile(s.filePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	for _, item := range items {
		b, merr := item.MarshalJSON()
		if merr != nil {
			return merr
		}
		if _, werr := w.Write(b); werr != nil {
			return werr
		}
		if werr := w.WriteByte('\n'); werr != nil {
			return werr
		}
	}
	if err := w.Flush(); err != nil {
		return err
	}
	return f.Sync()
}

// PopItem removes and returns the last valid item, or nil if the log is
// empty/missing. Implemented as an atomic temp-file-then-rename, per §4.1.
func (s *Store) PopItem(ctx context.Context) (*core.Item, error) {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil, nil
	}

	release, err := s.locker.lock(ctx, s.filePath)
	if err != nil {
		return nil, err
	}
	defer release()

	data, err := os.ReadFile(s.filePath)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	lines := strings.Split(string(data), "\n")
	// Split leaves a trailing "" after the final newline; drop it.
	if len(lines) > 0 && lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	if len(lines) == 0 {
		return nil, nil
	}

	lastIdx := -1
	var lastItem core.Item
	for i := len(lines) - 1; i >= 0; i-- {
		trimmed := strings.TrimSpace(lines[i])
		if trimmed == "" {
			continue
		}
		item, perr := core.ParseItem([]byte(trimmed))
		if perr != nil {
			s.logger.Warn("skipping invalid JSON line in session file", "path", s.filePath, "error", perr)
			continue
		}
		lastItem = item
		lastIdx = i
		break
	}
	if lastIdx == -1 {
		return nil, nil
	}

	remaining := lines[:lastIdx]
	tmpPath := s.filePath + ".tmp"
	content := ""
	if len(remaining) > 0 {
		content = strings.Join(remaining, "\n") + "\n"
	}
	if err := os.WriteFile(tmpPath, []byte(content), 0o644); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	if err := os.Rename(tmpPath, s.filePath); err != nil {
		os.Remove(tmpPath)
		return nil, err
	}
	return &lastItem, nil
}

// Clear deletes the session file. Missing file is a no-op.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := os.Stat(s.filePath); os.IsNotExist(err) {
		return nil
	}
	release, err := s.locker.lock(ctx, s.filePath)
	if err != nil {
		return err
	}
	defer release()

	if err := os.Remove(s.filePath); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
