// Package snapshot defines the versioned record of one named backup:
// file entries keyed by source inode, the directory set, and recorded
// symlinks, along with the builder that accumulates a snapshot during a
// scan and the read-only views that join it with the vault-wide block
// table.
package snapshot

import (
	"cmp"
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"slices"
	"time"

	"github.com/erer1243/sharedfileholder/internal/content"
	"github.com/erer1243/sharedfileholder/internal/fieldmap"
)

// BackupFile is one file entry in a snapshot: the source inode it was
// scanned from, its path relative to the backup root, its content hash,
// and the modification time observed when the content was hashed.
type BackupFile struct {
	Ino   uint64       `json:"ino"`
	Path  string       `json:"path"`
	Hash  content.Hash `json:"hash"`
	MTime time.Time    `json:"mtime"`
}

// Block is the vault-wide metadata recorded for one content hash. It is
// shared by every snapshot that references the hash and is fixed once
// written.
type Block struct {
	Size int64 `json:"size"`
}

// Blocks is the vault-wide table mapping content hash to its metadata.
type Blocks = map[content.Hash]Block

// files indexes a snapshot's entries by source inode and snapshot path.
type files = fieldmap.Map[BackupFile, uint64, string]

func newFiles() *files {
	return fieldmap.New(
		func(f BackupFile) uint64 { return f.Ino },
		func(f BackupFile) string { return f.Path },
	)
}

// Backup is one named, point-in-time record of a source tree. It is
// immutable once finished by a Builder.
type Backup struct {
	files       *files
	directories map[string]struct{}
	symlinks    map[string]string
}

func newBackup() *Backup {
	return &Backup{
		files:       newFiles(),
		directories: make(map[string]struct{}),
		symlinks:    make(map[string]string),
	}
}

// File returns the entry recorded for the given source inode.
func (b *Backup) File(ino uint64) (BackupFile, bool) {
	return b.files.GetByKey1(ino)
}

// FileByPath returns the entry recorded at the given snapshot path.
func (b *Backup) FileByPath(path string) (BackupFile, bool) {
	return b.files.GetByKey2(path)
}

// Files iterates over the snapshot's file entries.
func (b *Backup) Files() iter.Seq[BackupFile] {
	return b.files.All()
}

// NumFiles returns the number of file entries.
func (b *Backup) NumFiles() int {
	return b.files.Len()
}

// Directories returns the recorded directory paths, sorted.
func (b *Backup) Directories() []string {
	return slices.Sorted(maps.Keys(b.directories))
}

// NumDirectories returns the number of recorded directories.
func (b *Backup) NumDirectories() int {
	return len(b.directories)
}

// Symlinks iterates over recorded (link path, target) pairs in path
// order. Targets are stored verbatim, never resolved.
func (b *Backup) Symlinks() iter.Seq2[string, string] {
	return func(yield func(string, string) bool) {
		for _, path := range slices.Sorted(maps.Keys(b.symlinks)) {
			if !yield(path, b.symlinks[path]) {
				return
			}
		}
	}
}

// NumSymlinks returns the number of recorded symlinks.
func (b *Backup) NumSymlinks() int {
	return len(b.symlinks)
}

// backupJSON is the serialized form of a Backup.
type backupJSON struct {
	Files       []BackupFile      `json:"files"`
	Directories []string          `json:"directories"`
	Symlinks    map[string]string `json:"symlinks"`
}

func (b *Backup) MarshalJSON() ([]byte, error) {
	out := backupJSON{
		Files:       make([]BackupFile, 0, b.files.Len()),
		Directories: b.Directories(),
		Symlinks:    b.symlinks,
	}
	for f := range b.files.All() {
		out.Files = append(out.Files, f)
	}
	slices.SortFunc(out.Files, func(a, c BackupFile) int {
		return cmp.Compare(a.Ino, c.Ino)
	})
	return json.Marshal(out)
}

func (b *Backup) UnmarshalJSON(data []byte) error {
	var in backupJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	*b = *newBackup()
	for _, f := range in.Files {
		if err := b.files.Insert(f); err != nil {
			return fmt.Errorf("file table entry %s: %w", f.Path, err)
		}
	}
	for _, dir := range in.Directories {
		b.directories[dir] = struct{}{}
	}
	maps.Copy(b.symlinks, in.Symlinks)
	return nil
}
