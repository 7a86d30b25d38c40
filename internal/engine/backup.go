package engine

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/erer1243/sharedfileholder/internal/content"
	"github.com/erer1243/sharedfileholder/internal/snapshot"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// ErrSpecialFile marks a scan that encountered an entry that is neither
// a regular file, directory, nor symlink. The whole backup aborts; no
// partial snapshot is committed.
var ErrSpecialFile = errors.New("special file")

// Summary reports what a backup operation recorded.
type Summary struct {
	Files       int
	NewFiles    int
	Directories int
	Symlinks    int
	NewBytes    int64
}

// Backup scans the source tree rooted at root and commits it to the
// vault as the named snapshot, replacing any prior snapshot of that
// name. Content hashes recorded by the prior snapshot are reused
// without re-reading files whose inode, mtime, and size are unchanged.
//
// Nothing is committed until every newly discovered file has been
// ingested into the content store: a failure mid-ingestion leaves the
// database exactly as it was.
func Backup(v *vault.Vault, name, root string, logger Logger) (*Summary, error) {
	root = filepath.Clean(root)

	var old *snapshot.View
	if view, ok := v.Database.Backup(name); ok {
		old = view
		logger.Debug("diffing against prior snapshot", "name", name)
	}

	b := snapshot.NewBuilder()
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("scanning %s: %w", path, err)
		}
		if path == root {
			if !d.IsDir() {
				return fmt.Errorf("backup source %s is not a directory", root)
			}
			return nil
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", path, err)
		}

		switch {
		case d.Type().IsRegular():
			return backupFile(b, old, path, rel, d, logger)
		case d.IsDir():
			b.InsertDirectory(rel)
		case d.Type()&fs.ModeSymlink != 0:
			target, err := os.Readlink(path)
			if err != nil {
				return fmt.Errorf("readlink %s: %w", path, err)
			}
			b.InsertSymlink(rel, target)
		default:
			return fmt.Errorf("%s (%v): %w", path, d.Type(), ErrSpecialFile)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Ingest queued content before committing anything.
	queued := b.Queued()
	var newBytes int64
	for _, q := range queued {
		if err := v.Store.Insert(q.Source, q.Hash); err != nil {
			return nil, fmt.Errorf("ingesting %s: %w", q.Source, err)
		}
		newBytes += q.Size
	}

	if err := v.Database.CommitBuilder(name, b); err != nil {
		return nil, err
	}
	if err := v.Database.Save(v.Dir); err != nil {
		return nil, err
	}

	view, _ := v.Database.Backup(name)
	bk := view.Backup()
	s := &Summary{
		Files:       bk.NumFiles(),
		NewFiles:    len(queued),
		Directories: bk.NumDirectories(),
		Symlinks:    bk.NumSymlinks(),
		NewBytes:    newBytes,
	}
	logger.Info("backup committed",
		"name", name,
		"files", s.Files,
		"new_files", s.NewFiles,
		"directories", s.Directories,
		"symlinks", s.Symlinks,
		"new_bytes", s.NewBytes,
	)
	return s, nil
}

// backupFile classifies one regular file against the prior snapshot.
// Hashing reads every byte of the file, so it is skipped whenever the
// prior record for the same inode has mtime >= the current mtime and a
// matching size.
func backupFile(b *snapshot.Builder, old *snapshot.View, path, rel string, d fs.DirEntry, logger Logger) error {
	info, err := d.Info()
	if err != nil {
		return fmt.Errorf("stat %s: %w", path, err)
	}
	ino, err := inodeOf(info)
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}
	mtime := info.ModTime()
	size := info.Size()

	var oldFile *snapshot.FileView
	if old != nil {
		oldFile, err = old.File(ino)
		if err != nil {
			return err
		}
	}

	switch {
	case oldFile == nil:
		// No prior record for this inode: hash unconditionally.
		h, n, err := content.HashFile(path)
		if err != nil {
			return err
		}
		logger.Debug("new file", "path", rel, "hash", h)
		return b.InsertNewFile(path, rel, h, ino, mtime, n)

	case !mtime.After(oldFile.MTime) && size == oldFile.Size:
		// Not modified since it was last hashed, and the same size:
		// reuse the recorded hash without reading the file.
		logger.Debug("unchanged file", "path", rel)
		return b.InsertUnchangedFile(rel, oldFile.Hash, ino, oldFile.MTime)

	default:
		h, n, err := content.HashFile(path)
		if err != nil {
			return err
		}
		if h == oldFile.Hash {
			// A content-preserving touch.
			logger.Debug("touched but unchanged", "path", rel)
			return b.InsertUnchangedFile(rel, h, ino, mtime)
		}
		logger.Debug("changed file", "path", rel, "hash", h)
		return b.InsertNewFile(path, rel, h, ino, mtime, n)
	}
}
