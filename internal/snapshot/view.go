package snapshot

import (
	"fmt"

	"github.com/erer1243/sharedfileholder/internal/content"
)

// IntegrityError reports corruption of the invariant that every hash
// referenced by a snapshot has an entry in the vault-wide block table.
// There is no principled way to reconstruct lost metadata, so callers
// abort rather than attempt repair.
type IntegrityError struct {
	Hash   content.Hash
	Reason string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("vault integrity violation for content %s: %s", e.Hash, e.Reason)
}

// View is a read-only composite of one named snapshot and the vault's
// block table, constructed on demand by the database. It borrows both
// collections and must not outlive them.
type View struct {
	name   string
	backup *Backup
	blocks Blocks
}

// NewView joins a named snapshot with the vault-wide block table.
func NewView(name string, backup *Backup, blocks Blocks) *View {
	return &View{name: name, backup: backup, blocks: blocks}
}

// Name returns the snapshot's name.
func (v *View) Name() string {
	return v.name
}

// Backup returns the underlying snapshot.
func (v *View) Backup() *Backup {
	return v.backup
}

// File returns the joined view of the entry recorded for ino, or nil if
// the snapshot has no such entry. A recorded entry whose hash is absent
// from the block table is an IntegrityError.
func (v *View) File(ino uint64) (*FileView, error) {
	f, ok := v.backup.File(ino)
	if !ok {
		return nil, nil
	}
	return v.join(f)
}

// EachFile calls fn for every file entry joined with its block
// metadata, stopping at the first error.
func (v *View) EachFile(fn func(FileView) error) error {
	for f := range v.backup.Files() {
		fv, err := v.join(f)
		if err != nil {
			return err
		}
		if err := fn(*fv); err != nil {
			return err
		}
	}
	return nil
}

func (v *View) join(f BackupFile) (*FileView, error) {
	blk, ok := v.blocks[f.Hash]
	if !ok {
		return nil, &IntegrityError{
			Hash:   f.Hash,
			Reason: fmt.Sprintf("inode %d in backup %q has no block table entry", f.Ino, v.name),
		}
	}
	return &FileView{BackupFile: f, Size: blk.Size}, nil
}

// FileView joins one file entry with its block metadata.
type FileView struct {
	BackupFile
	Size int64
}
