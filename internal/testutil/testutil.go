// Package testutil provides helpers for building source trees and
// vaults on the real filesystem in tests.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/erer1243/sharedfileholder/internal/engine"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// WriteFile writes content at path, creating parent directories as
// needed.
func WriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("WriteFile %s: %v", path, err)
	}
}

// Mkdir creates a directory (and parents) at path.
func Mkdir(t *testing.T, path string) {
	t.Helper()
	if err := os.MkdirAll(path, 0755); err != nil {
		t.Fatalf("MkdirAll %s: %v", path, err)
	}
}

// Symlink creates a symlink at path pointing at target.
func Symlink(t *testing.T, target, path string) {
	t.Helper()
	if err := os.Symlink(target, path); err != nil {
		t.Fatalf("Symlink %s -> %s: %v", path, target, err)
	}
}

// SetMTime sets the modification time of path.
func SetMTime(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	if err := os.Chtimes(path, mtime, mtime); err != nil {
		t.Fatalf("Chtimes %s: %v", path, err)
	}
}

// MTime returns the current modification time of path.
func MTime(t *testing.T, path string) time.Time {
	t.Helper()
	info, err := os.Stat(path)
	if err != nil {
		t.Fatalf("Stat %s: %v", path, err)
	}
	return info.ModTime()
}

// NewVault initializes a fresh vault in a temp directory, opens it,
// and registers cleanup to release the lock.
func NewVault(t *testing.T) *vault.Vault {
	t.Helper()
	dir := t.TempDir()
	if err := engine.Init(dir); err != nil {
		t.Fatalf("Init: %v", err)
	}
	v, err := vault.TryOpen(dir)
	if err != nil {
		t.Fatalf("TryOpen: %v", err)
	}
	t.Cleanup(func() { _ = v.Close() })
	return v
}
