package sessionstore

import (
	"context"
	"os"
	"sync"
	"time"

	"github.com/serialx/vibecore/internal/core"
)

// DefaultLockTimeout matches original_source/session/file_lock.py's
// default acquire_file_lock(timeout=30.0).
const DefaultLockTimeout = 30 * time.Second

// fileLocker hands out per-path exclusive sections. It is adapted from the
// teacher's internal/sessions/locker.go lease-lock idiom: an in-process
// mutex fronts a filesystem-level advisory lock (a sidecar ".lock" file
// created with O_EXCL) so the same process never contends on its own I/O,
// while distinct processes still serialize through the sidecar file.
type fileLocker struct {
	mu      sync.Mutex
	inFlock map[string]*sync.Mutex
	timeout time.Duration
	poll    time.Duration
}

func newFileLocker(timeout time.Duration) *fileLocker {
	if timeout <= 0 {
		timeout = DefaultLockTimeout
	}
	return &fileLocker{inFlock: map[string]*sync.Mutex{}, timeout: timeout, poll: 10 * time.Millisecond}
}

func (l *fileLocker) localMutex(path string) *sync.Mutex {
	l.mu.Lock()
	defer l.mu.Unlock()
	m, ok := l.inFlock[path]
	if !ok {
		m = &sync.Mutex{}
		l.inFlock[path] = m
	}
	return m
}

// lock acquires the exclusive lock for path. Reads and writes take the same
// lock; there is no shared-read mode. Returns a release function.
func (l *fileLocker) lock(ctx context.Context, path string) (func(), error) {
	local := l.localMutex(path)
	local.Lock()

	lockPath := path + ".lock"
	deadline := time.Now().Add(l.timeout)
	for {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o600)
		if err == nil {
			f.Close()
			return func() {
				os.Remove(lockPath)
				local.Unlock()
			}, nil
		}
		if !os.IsExist(err) {
			local.Unlock()
			return nil, core.WrapError(core.KindLockTimeout, err, "acquiring lock for %s", path)
		}
		if time.Now().After(deadline) {
			local.Unlock()
			return nil, core.NewError(core.KindLockTimeout, "timed out acquiring lock for %s", path)
		}
		select {
		case <-ctx.Done():
			local.Unlock()
			return nil, core.WrapError(core.KindLockTimeout, ctx.Err(), "cancelled acquiring lock for %s", path)
		case <-time.After(l.poll):
		}
	}
}
