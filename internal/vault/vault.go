// Package vault ties together the pieces of one on-disk vault: its
// database, its content store, and the directory lock that serializes
// access to both. A vault directory contains the database document, the
// data subtree, and, while open, the lock file.
package vault

import (
	"context"
	"errors"
	"fmt"

	"github.com/erer1243/sharedfileholder/internal/database"
	"github.com/erer1243/sharedfileholder/internal/lock"
	"github.com/erer1243/sharedfileholder/internal/store"
)

// Vault is an open vault directory. The directory lock is held from
// Open until Close; the database and store must never be touched
// without it.
type Vault struct {
	Dir      string
	Database *database.Database
	Store    *store.Store

	lock *lock.DirectoryLock
}

// Open acquires the vault's directory lock, loads its database, and
// binds its content store. ctx bounds the wait for the lock; pass a
// context with a deadline to fail with a "still locked" diagnosis
// instead of blocking forever. The caller must Close the vault on every
// exit path.
func Open(ctx context.Context, dir string) (*Vault, error) {
	l := lock.New(dir)
	if err := l.Lock(ctx); err != nil {
		return nil, fmt.Errorf("locking vault %s: %w", dir, err)
	}
	return open(dir, l)
}

// TryOpen is the non-blocking variant of Open. If another process holds
// the vault it fails with lock.ErrAlreadyLocked.
func TryOpen(dir string) (*Vault, error) {
	l := lock.New(dir)
	if err := l.TryLock(); err != nil {
		if errors.Is(err, lock.ErrAlreadyLocked) {
			return nil, fmt.Errorf("vault %s: %w", dir, err)
		}
		return nil, fmt.Errorf("locking vault %s: %w", dir, err)
	}
	return open(dir, l)
}

func open(dir string, l *lock.DirectoryLock) (*Vault, error) {
	db, err := database.Load(dir)
	if err != nil {
		err = fmt.Errorf("loading vault %s: %w", dir, err)
		if unlockErr := l.Unlock(); unlockErr != nil {
			err = errors.Join(err, unlockErr)
		}
		return nil, err
	}

	return &Vault{
		Dir:      dir,
		Database: db,
		Store:    store.New(dir),
		lock:     l,
	}, nil
}

// Close releases the vault's directory lock. It is safe to call more
// than once; only the first call deletes the lock file.
func (v *Vault) Close() error {
	return v.lock.Unlock()
}
