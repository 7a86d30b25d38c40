// Package store implements the hash-addressed content store of a vault.
//
// Stored files live under the vault's data directory in a two-level
// layout that bounds per-directory fanout:
//
//	<vault>/data/
//	  <first two hex chars>/
//	    <full 64-char hex hash>
//
// Existence of the file at a hash's path is the single source of truth
// for "this content is already stored".
package store

import (
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/renameio"

	"github.com/erer1243/sharedfileholder/internal/content"
)

// DataDirName is the name of the content store subtree within a vault
// directory.
const DataDirName = "data"

// Store is a content-addressed blob store rooted at a vault's data
// directory. Access must be serialized by the vault's directory lock.
type Store struct {
	dataDir string
}

// New binds a Store to the data directory inside vaultDir.
func New(vaultDir string) *Store {
	return &Store{dataDir: filepath.Join(vaultDir, DataDirName)}
}

// DataDir returns the store's root directory.
func (s *Store) DataDir() string {
	return s.dataDir
}

// PathOf returns the path at which content with the given hash is (or
// would be) stored.
func (s *Store) PathOf(h content.Hash) string {
	hex := h.Hex()
	return filepath.Join(s.dataDir, hex[:2], hex)
}

// Insert copies the file at source into the store under h's address.
// If the content is already stored the call returns immediately without
// reading source: inserting the same hash twice is a no-op, which is
// what makes storage deduplicating. The copy goes through a temporary
// file in the destination directory and is renamed into place, so a
// failed insert never leaves a partial file at the hash's address.
func (s *Store) Insert(source string, h content.Hash) error {
	dest := s.PathOf(h)
	if _, err := os.Stat(dest); err == nil {
		return nil
	} else if !os.IsNotExist(err) {
		return fmt.Errorf("stat %s: %w", dest, err)
	}

	destDir := filepath.Dir(dest)
	if err := os.MkdirAll(destDir, 0755); err != nil {
		return fmt.Errorf("creating shard directory %s: %w", destDir, err)
	}

	src, err := os.Open(source)
	if err != nil {
		return fmt.Errorf("opening %s: %w", source, err)
	}
	defer src.Close()

	t, err := renameio.TempFile(destDir, dest)
	if err != nil {
		return fmt.Errorf("creating temp file in %s: %w", destDir, err)
	}
	defer t.Cleanup()

	if _, err := io.Copy(t, src); err != nil {
		return fmt.Errorf("copying %s to %s: %w", source, dest, err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("finalizing %s: %w", dest, err)
	}
	return nil
}

// Delete removes the stored content with the given hash. It exists for
// garbage collection of unreferenced content; nothing in the backup
// path deletes stored data.
func (s *Store) Delete(h content.Hash) error {
	path := s.PathOf(h)
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("removing %s: %w", path, err)
	}
	return nil
}

// Walk calls fn with the path of every stored content file, skipping
// the store root and any non-file entries. Walking an uninitialized
// store (missing data directory) is an error.
func (s *Store) Walk(fn func(path string) error) error {
	return filepath.WalkDir(s.dataDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("walking %s: %w", path, err)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return fn(path)
	})
}
