// Package lock enforces at most one active writer per vault directory
// across processes. The lock is the existence of a lock file inside the
// vault directory: atomic create-exclusive acquires it, deletion
// releases it.
package lock

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// FileName is the name of the lock file within a vault directory.
const FileName = "lock"

// ErrAlreadyLocked is returned by TryLock when another holder has the
// vault. It signals contention, not failure; callers may wait and
// retry.
var ErrAlreadyLocked = errors.New("vault already locked")

// DirectoryLock serializes writers of one vault directory.
type DirectoryLock struct {
	dir  string
	path string
	held bool
}

// New returns an unacquired lock for vaultDir.
func New(vaultDir string) *DirectoryLock {
	return &DirectoryLock{
		dir:  vaultDir,
		path: filepath.Join(vaultDir, FileName),
	}
}

// Path returns the lock file's path.
func (l *DirectoryLock) Path() string {
	return l.path
}

// TryLock attempts to create the lock file in must-not-exist mode.
// It returns ErrAlreadyLocked if another holder has the vault, and a
// plain error for any other I/O failure.
func (l *DirectoryLock) TryLock() error {
	f, err := os.OpenFile(l.path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if err != nil {
		if errors.Is(err, fs.ErrExist) {
			return ErrAlreadyLocked
		}
		return fmt.Errorf("creating lock file %s: %w", l.path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing lock file %s: %w", l.path, err)
	}
	l.held = true
	return nil
}

// Lock blocks until the lock is acquired, an I/O error occurs, or ctx
// is done. While the vault is held elsewhere it waits for filesystem
// notifications on the vault directory instead of polling; every wakeup
// re-attempts the create regardless of which event fired, so a missed
// notification delays acquisition but never corrupts it.
func (l *DirectoryLock) Lock(ctx context.Context) error {
	for {
		err := l.TryLock()
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrAlreadyLocked) {
			return err
		}
		if err := l.waitForRelease(ctx); err != nil {
			return err
		}
	}
}

// waitForRelease blocks until the lock file is deleted or ctx is done.
func (l *DirectoryLock) waitForRelease(ctx context.Context) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory rather than the lock file itself: watching the
	// file races with its deletion.
	if err := w.Add(l.dir); err != nil {
		return fmt.Errorf("watching %s: %w", l.dir, err)
	}

	// The holder may have released between TryLock and Add.
	if _, err := os.Lstat(l.path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return fmt.Errorf("vault still locked after waiting: %w", ctx.Err())
		case ev, ok := <-w.Events:
			if !ok {
				return errors.New("lock watcher closed")
			}
			if ev.Name == l.path && (ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename)) {
				return nil
			}
		case err, ok := <-w.Errors:
			if !ok {
				return errors.New("lock watcher closed")
			}
			return fmt.Errorf("watching %s: %w", l.dir, err)
		}
	}
}

// Unlock deletes the lock file. Calling Unlock on a lock that is not
// held is a no-op, so deferred release on every exit path is safe.
func (l *DirectoryLock) Unlock() error {
	if !l.held {
		return nil
	}
	l.held = false
	if err := os.Remove(l.path); err != nil {
		return fmt.Errorf("removing lock file %s: %w", l.path, err)
	}
	return nil
}
