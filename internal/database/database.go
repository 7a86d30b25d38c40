// Package database persists a vault's snapshots. The whole database is
// one JSON document inside the vault directory: a name-to-snapshot map
// plus the block table shared by all snapshots. Load and save are
// whole-file operations; there are no partial updates.
package database

import (
	"encoding/json"
	"fmt"
	"iter"
	"maps"
	"os"
	"path/filepath"
	"slices"

	"github.com/google/renameio"

	"github.com/erer1243/sharedfileholder/internal/content"
	"github.com/erer1243/sharedfileholder/internal/snapshot"
)

// FileName is the name of the database document within a vault
// directory.
const FileName = "database.json"

// Database is the persisted collection of named snapshots plus the
// vault-wide block table. Access must be serialized by the vault's
// directory lock.
type Database struct {
	backups map[string]*snapshot.Backup
	blocks  snapshot.Blocks
}

// New returns an empty database.
func New() *Database {
	return &Database{
		backups: make(map[string]*snapshot.Backup),
		blocks:  make(snapshot.Blocks),
	}
}

// Path returns the database document's path inside vaultDir.
func Path(vaultDir string) string {
	return filepath.Join(vaultDir, FileName)
}

// dbJSON is the serialized form of a Database.
type dbJSON struct {
	Backups map[string]*snapshot.Backup `json:"backups"`
	Blocks  snapshot.Blocks             `json:"blocks"`
}

// Load reads the database document from vaultDir.
func Load(vaultDir string) (*Database, error) {
	path := Path(vaultDir)
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening database %s: %w", path, err)
	}
	defer f.Close()

	var in dbJSON
	if err := json.NewDecoder(f).Decode(&in); err != nil {
		return nil, fmt.Errorf("decoding database %s: %w", path, err)
	}

	db := New()
	maps.Copy(db.backups, in.Backups)
	maps.Copy(db.blocks, in.Blocks)
	return db, nil
}

// Save writes the whole database document into vaultDir. The document
// is written to a temporary file, synced, and renamed into place, so a
// crash mid-save leaves the previous document intact.
func (d *Database) Save(vaultDir string) error {
	path := Path(vaultDir)
	t, err := renameio.TempFile(vaultDir, path)
	if err != nil {
		return fmt.Errorf("creating temp database file: %w", err)
	}
	defer t.Cleanup()

	enc := json.NewEncoder(t)
	enc.SetIndent("", "  ")
	if err := enc.Encode(dbJSON{Backups: d.backups, Blocks: d.blocks}); err != nil {
		return fmt.Errorf("encoding database: %w", err)
	}
	if err := t.CloseAtomicallyReplace(); err != nil {
		return fmt.Errorf("writing database %s: %w", path, err)
	}
	return nil
}

// Backup returns a read-only view of the named snapshot joined with the
// shared block table, or false if no snapshot has that name.
func (d *Database) Backup(name string) (*snapshot.View, bool) {
	b, ok := d.backups[name]
	if !ok {
		return nil, false
	}
	return snapshot.NewView(name, b, d.blocks), true
}

// Names returns all snapshot names, sorted.
func (d *Database) Names() []string {
	return slices.Sorted(maps.Keys(d.backups))
}

// Block returns the metadata recorded for h.
func (d *Database) Block(h content.Hash) (snapshot.Block, bool) {
	blk, ok := d.blocks[h]
	return blk, ok
}

// NumBlocks returns the number of block table entries.
func (d *Database) NumBlocks() int {
	return len(d.blocks)
}

// EachFile iterates over the raw file entries of every snapshot,
// without joining block metadata, in sorted snapshot-name order.
func (d *Database) EachFile() iter.Seq2[string, snapshot.BackupFile] {
	return func(yield func(string, snapshot.BackupFile) bool) {
		for _, name := range d.Names() {
			for f := range d.backups[name].Files() {
				if !yield(name, f) {
					return
				}
			}
		}
	}
}

// ReferencedHashes returns the set of hashes referenced by any
// snapshot.
func (d *Database) ReferencedHashes() map[content.Hash]bool {
	refs := make(map[content.Hash]bool)
	for _, f := range d.EachFile() {
		refs[f.Hash] = true
	}
	return refs
}

// DropUnreferencedBlocks removes block table entries whose hash no
// snapshot references and returns the dropped hashes.
func (d *Database) DropUnreferencedBlocks() []content.Hash {
	refs := d.ReferencedHashes()
	var dropped []content.Hash
	for h := range d.blocks {
		if !refs[h] {
			dropped = append(dropped, h)
			delete(d.blocks, h)
		}
	}
	return dropped
}

// CommitBuilder merges the builder's newly observed block metadata into
// the shared table, then installs the finished snapshot under name,
// replacing any snapshot previously committed under it. Block metadata
// is append-only: a hash whose recorded size disagrees with the newly
// observed size is data corruption, and the commit fails with an
// IntegrityError before any state changes.
func (d *Database) CommitBuilder(name string, b *snapshot.Builder) error {
	queued := b.Queued()
	for _, q := range queued {
		if blk, ok := d.blocks[q.Hash]; ok && blk.Size != q.Size {
			return &snapshot.IntegrityError{
				Hash:   q.Hash,
				Reason: fmt.Sprintf("recorded size %d disagrees with observed size %d", blk.Size, q.Size),
			}
		}
	}
	for _, q := range queued {
		d.blocks[q.Hash] = snapshot.Block{Size: q.Size}
	}
	d.backups[name] = b.Finish()
	return nil
}
