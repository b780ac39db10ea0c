package config

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
)

// LiveFields holds the subset of Config that may change between turns
// without restarting the process: log level and default model. Everything
// else (session base dir, lock timeout, tool sandbox) is read once at
// startup and baked into the objects constructed from it, so changing it
// mid-run would leave those objects inconsistent with the file.
type LiveFields struct {
	LogLevel     string
	DefaultModel string
}

// Watcher reloads LiveFields from configPath whenever the file changes,
// replacing the teacher's global settings singleton with an explicit,
// narrowly-scoped reload target (SPEC_FULL.md's Singletons re-architecture
// note). Callers read the current value with Current(); nothing here blocks
// a caller that doesn't poll.
type Watcher struct {
	configPath string
	logger     *slog.Logger

	mu      sync.Mutex
	current atomic.Pointer[LiveFields]

	fsWatcher *fsnotify.Watcher
	done      chan struct{}
}

// NewWatcher builds a Watcher seeded with initial and begins watching
// configPath for writes. Call Close to stop watching.
func NewWatcher(configPath string, initial LiveFields, logger *slog.Logger) (*Watcher, error) {
	if logger == nil {
		logger = slog.Default()
	}
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	w := &Watcher{
		configPath: configPath,
		logger:     logger,
		fsWatcher:  fsWatcher,
		done:       make(chan struct{}),
	}
	w.current.Store(&initial)

	if err := fsWatcher.Add(configPath); err != nil {
		fsWatcher.Close()
		return nil, err
	}

	go w.run()
	return w, nil
}

// Current returns the most recently observed LiveFields.
func (w *Watcher) Current() LiveFields {
	return *w.current.Load()
}

// Close stops the underlying fsnotify watch.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fsWatcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.fsWatcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			w.reload()
		case err, ok := <-w.fsWatcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watch error", "error", err)
		}
	}
}

func (w *Watcher) reload() {
	w.mu.Lock()
	defer w.mu.Unlock()

	raw, err := loadRawIfExists(w.configPath)
	if err != nil || raw == nil {
		if err != nil {
			w.logger.Warn("config reload failed, keeping previous values", "error", err)
		}
		return
	}
	cfg, err := decodeRawConfig(raw)
	if err != nil {
		w.logger.Warn("config reload failed to decode, keeping previous values", "error", err)
		return
	}
	applyDefaults(cfg)

	next := LiveFields{LogLevel: cfg.Log.Level, DefaultModel: cfg.Model.Default}
	w.current.Store(&next)
	w.logger.Info("config reloaded", "log_level", next.LogLevel, "default_model", next.DefaultModel)
}
