package lock

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"
)

func TestDirectoryLock_TryLock(t *testing.T) {
	t.Run("acquires then excludes a second attempt", func(t *testing.T) {
		dir := t.TempDir()
		first := New(dir)
		second := New(dir)

		if err := first.TryLock(); err != nil {
			t.Fatalf("first TryLock() error = %v", err)
		}
		if err := second.TryLock(); !errors.Is(err, ErrAlreadyLocked) {
			t.Fatalf("second TryLock() error = %v, want ErrAlreadyLocked", err)
		}

		if err := first.Unlock(); err != nil {
			t.Fatalf("Unlock() error = %v", err)
		}
		if err := second.TryLock(); err != nil {
			t.Errorf("TryLock() after release error = %v", err)
		}
	})

	t.Run("creates the lock file", func(t *testing.T) {
		dir := t.TempDir()
		l := New(dir)
		if err := l.TryLock(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(l.Path()); err != nil {
			t.Errorf("lock file missing: %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Fatal(err)
		}
		if _, err := os.Stat(l.Path()); !os.IsNotExist(err) {
			t.Errorf("lock file still present after unlock: %v", err)
		}
	})

	t.Run("missing vault directory is an I/O error", func(t *testing.T) {
		l := New("/nonexistent/vault/dir")
		err := l.TryLock()
		if err == nil {
			t.Fatal("TryLock() succeeded on missing directory")
		}
		if errors.Is(err, ErrAlreadyLocked) {
			t.Errorf("TryLock() error = %v, want a plain I/O error", err)
		}
	})
}

func TestDirectoryLock_Lock(t *testing.T) {
	t.Run("returns after the holder releases", func(t *testing.T) {
		dir := t.TempDir()
		holder := New(dir)
		waiter := New(dir)

		if err := holder.TryLock(); err != nil {
			t.Fatal(err)
		}

		acquired := make(chan error, 1)
		go func() {
			acquired <- waiter.Lock(context.Background())
		}()

		// Give the waiter time to park on the watcher, then release.
		time.Sleep(50 * time.Millisecond)
		select {
		case err := <-acquired:
			t.Fatalf("Lock() returned %v before release", err)
		default:
		}

		if err := holder.Unlock(); err != nil {
			t.Fatal(err)
		}

		select {
		case err := <-acquired:
			if err != nil {
				t.Fatalf("Lock() error = %v", err)
			}
		case <-time.After(5 * time.Second):
			t.Fatal("Lock() did not return after release")
		}

		if err := waiter.Unlock(); err != nil {
			t.Fatal(err)
		}
	})

	t.Run("respects context deadline while locked", func(t *testing.T) {
		dir := t.TempDir()
		holder := New(dir)
		if err := holder.TryLock(); err != nil {
			t.Fatal(err)
		}
		defer holder.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
		defer cancel()

		err := New(dir).Lock(ctx)
		if err == nil {
			t.Fatal("Lock() succeeded while vault held")
		}
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Errorf("Lock() error = %v, want deadline exceeded", err)
		}
	})

	t.Run("acquires immediately when unlocked", func(t *testing.T) {
		l := New(t.TempDir())
		if err := l.Lock(context.Background()); err != nil {
			t.Fatalf("Lock() error = %v", err)
		}
		if err := l.Unlock(); err != nil {
			t.Fatal(err)
		}
	})
}

func TestDirectoryLock_UnlockIdempotent(t *testing.T) {
	l := New(t.TempDir())
	if err := l.Unlock(); err != nil {
		t.Errorf("Unlock() on unheld lock error = %v", err)
	}

	if err := l.TryLock(); err != nil {
		t.Fatal(err)
	}
	if err := l.Unlock(); err != nil {
		t.Fatal(err)
	}
	if err := l.Unlock(); err != nil {
		t.Errorf("second Unlock() error = %v", err)
	}
}
