package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
)

// LockFileName is the well-known lock file inside every store directory.
// Only its OS-level lock state matters; its content is never read.
const LockFileName = ".store.lock"

// lockPollInterval is how often a contended acquisition retries. Polling
// instead of blocking on the kernel wait queue lets a timeout be enforced
// between attempts.
const lockPollInterval = 500 * time.Millisecond

// ErrLockTimeout is returned when lock contention outlasts the caller's
// timeout. The caller may retry.
var ErrLockTimeout = errors.New("timed out waiting for store lock")

// LockError reports a filesystem or OS failure while acquiring or releasing
// the store lock. Unlike ErrLockTimeout it is not retryable.
type LockError struct {
	Op  string
	Err error
}

func (e *LockError) Error() string {
	return fmt.Sprintf("store lock %s: %v", e.Op, e.Err)
}

func (e *LockError) Unwrap() error {
	return e.Err
}

// Lock is an advisory cross-process exclusive lock on a store directory.
// It only protects cooperating processes that go through the same
// acquisition path; it cannot stop an outside process from touching the
// store. A held Lock is the capability proving exclusive store access.
type Lock struct {
	path    string
	fl      *flock.Flock
	held    bool
	notify  func()
	waited  bool
}

// NewLock creates a lock for the given store directory. The lock file is
// created on first acquisition if absent.
func NewLock(dir string) *Lock {
	path := filepath.Join(dir, LockFileName)
	return &Lock{path: path, fl: flock.New(path)}
}

// SetWaitNotify registers a callback invoked once per acquisition, on the
// first contended attempt only, so long waits are observable without
// flooding output.
func (l *Lock) SetWaitNotify(fn func()) {
	l.notify = fn
}

// Acquire takes the exclusive lock, polling on contention. timeout <= 0
// waits indefinitely. Returns ErrLockTimeout when contention outlasts
// timeout and *LockError on filesystem failure.
func (l *Lock) Acquire(timeout time.Duration) error {
	return l.AcquireContext(context.Background(), timeout)
}

// AcquireContext is Acquire with cancellation: between polls the wait also
// watches ctx, so a caller shutting down does not sit out the remainder of
// an unbounded wait. Returns ctx.Err() when the context ends first.
func (l *Lock) AcquireContext(ctx context.Context, timeout time.Duration) error {
	if l.held {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return &LockError{Op: "acquire", Err: err}
	}

	start := time.Now()
	l.waited = false

	for {
		acquired, err := l.fl.TryLock()
		if err != nil {
			return &LockError{Op: "acquire", Err: err}
		}
		if acquired {
			if l.waited {
				slog.Debug("store lock acquired after wait",
					slog.String("path", l.path),
					slog.Duration("waited", time.Since(start)))
			}
			l.held = true
			return nil
		}

		if !l.waited {
			l.waited = true
			slog.Info("waiting for store lock, another process is using the store",
				slog.String("path", l.path))
			if l.notify != nil {
				l.notify()
			}
		}

		if timeout > 0 && time.Since(start) >= timeout {
			return ErrLockTimeout
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(lockPollInterval):
		}
	}
}

// Release unlocks and closes the lock file handle. It is idempotent:
// releasing an unheld or already-released lock is a no-op. The lock file
// itself is never deleted, so its permissions survive across runs.
func (l *Lock) Release() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := l.fl.Unlock(); err != nil {
		return &LockError{Op: "release", Err: err}
	}
	return nil
}

// Held reports whether this process currently holds the lock.
func (l *Lock) Held() bool {
	return l.held
}

// Path returns the lock file path.
func (l *Lock) Path() string {
	return l.path
}
