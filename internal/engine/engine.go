// Package engine implements the operations performed against a vault:
// initializing one, backing up a source tree into it, listing and
// mounting snapshots, and verifying or garbage-collecting stored
// content.
package engine

import (
	"fmt"
	"os"

	"github.com/erer1243/sharedfileholder/internal/database"
	"github.com/erer1243/sharedfileholder/internal/store"
)

// Logger provides structured logging for engine operations.
// The args follow slog conventions: alternating key/value pairs.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// NopLogger is a Logger that discards all output. Use in tests.
type NopLogger struct{}

func NewNopLogger() *NopLogger { return &NopLogger{} }

func (*NopLogger) Debug(string, ...any) {}
func (*NopLogger) Info(string, ...any)  {}
func (*NopLogger) Warn(string, ...any)  {}
func (*NopLogger) Error(string, ...any) {}

// EnsureEmptyDir verifies that path is an existing, empty directory.
func EnsureEmptyDir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	if len(entries) > 0 {
		return fmt.Errorf("%s is not empty", path)
	}
	return nil
}

// Init creates a new vault inside dir: the content store's data
// directory and an empty database document. dir must exist and be
// empty.
func Init(dir string) error {
	if err := EnsureEmptyDir(dir); err != nil {
		return err
	}

	dataDir := store.New(dir).DataDir()
	if err := os.Mkdir(dataDir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dataDir, err)
	}
	return database.New().Save(dir)
}
