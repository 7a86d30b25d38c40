package snapshot

import (
	"fmt"
	"time"

	"github.com/erer1243/sharedfileholder/internal/content"
)

// QueuedFile is a file recorded via Builder.InsertNewFile whose bytes
// still need to be ingested into the content store.
type QueuedFile struct {
	Source string
	Path   string
	Ino    uint64
	Hash   content.Hash
	MTime  time.Time
	Size   int64
}

// Builder accumulates a snapshot incrementally during a scan. Files
// whose content is not yet stored are recorded and queued for physical
// ingestion; files already backed by stored content are recorded only.
// Keeping the queue separate from the snapshot lets ingestion failures
// surface before anything is committed to the database, so a committed
// snapshot's files are always backed by stored content.
type Builder struct {
	backup *Backup
	queued []QueuedFile
}

// NewBuilder returns an empty Builder.
func NewBuilder() *Builder {
	return &Builder{backup: newBackup()}
}

// InsertDirectory records a directory path in the snapshot.
func (b *Builder) InsertDirectory(path string) {
	b.backup.directories[path] = struct{}{}
}

// InsertSymlink records a symlink and its target verbatim.
func (b *Builder) InsertSymlink(path, target string) {
	b.backup.symlinks[path] = target
}

// InsertNewFile records a file whose content must be ingested into the
// store. If the inode is already recorded, the new path is a hard link
// to an entry we have already seen and the file collapses into it.
func (b *Builder) InsertNewFile(source, path string, h content.Hash, ino uint64, mtime time.Time, size int64) error {
	if _, ok := b.backup.files.GetByKey1(ino); ok {
		return nil
	}
	f := BackupFile{Ino: ino, Path: path, Hash: h, MTime: mtime}
	if err := b.backup.files.Insert(f); err != nil {
		return fmt.Errorf("recording %s: %w", path, err)
	}
	b.queued = append(b.queued, QueuedFile{
		Source: source,
		Path:   path,
		Ino:    ino,
		Hash:   h,
		MTime:  mtime,
		Size:   size,
	})
	return nil
}

// InsertUnchangedFile records a file whose content is already present
// in the store, so no ingestion is queued. Hard links collapse as in
// InsertNewFile.
func (b *Builder) InsertUnchangedFile(path string, h content.Hash, ino uint64, mtime time.Time) error {
	if _, ok := b.backup.files.GetByKey1(ino); ok {
		return nil
	}
	f := BackupFile{Ino: ino, Path: path, Hash: h, MTime: mtime}
	if err := b.backup.files.Insert(f); err != nil {
		return fmt.Errorf("recording %s: %w", path, err)
	}
	return nil
}

// Queued returns the files recorded so far that still need ingestion.
func (b *Builder) Queued() []QueuedFile {
	return b.queued
}

// Finish yields the accumulated snapshot. The Builder must not be used
// afterwards.
func (b *Builder) Finish() *Backup {
	bk := b.backup
	b.backup = nil
	return bk
}
