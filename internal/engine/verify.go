package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erer1243/sharedfileholder/internal/content"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// VerifyReport summarizes a referential-integrity check of a vault.
type VerifyReport struct {
	Snapshots   int
	Blocks      int
	StoredFiles int
	Problems    []string
}

// OK reports whether the check found no problems.
func (r *VerifyReport) OK() bool {
	return len(r.Problems) == 0
}

// Verify checks the invariant that every hash referenced by any
// snapshot has both a block table entry and a stored content file, and
// flags stored files that no snapshot references. Problems are
// collected rather than aborting on the first, so a damaged vault can
// be surveyed in one pass.
func Verify(v *vault.Vault) (*VerifyReport, error) {
	r := &VerifyReport{
		Snapshots: len(v.Database.Names()),
		Blocks:    v.Database.NumBlocks(),
	}

	for name, f := range v.Database.EachFile() {
		if _, ok := v.Database.Block(f.Hash); !ok {
			r.Problems = append(r.Problems,
				fmt.Sprintf("backup %q: %s: no block metadata for %s", name, f.Path, f.Hash))
		}
		if _, err := os.Stat(v.Store.PathOf(f.Hash)); err != nil {
			r.Problems = append(r.Problems,
				fmt.Sprintf("backup %q: %s: content %s missing from store", name, f.Path, f.Hash))
		}
	}

	referenced := v.Database.ReferencedHashes()
	err := v.Store.Walk(func(path string) error {
		r.StoredFiles++
		h, err := content.ParseHex(filepath.Base(path))
		if err != nil {
			r.Problems = append(r.Problems, fmt.Sprintf("%s: not a content file", path))
			return nil
		}
		if !referenced[h] {
			r.Problems = append(r.Problems, fmt.Sprintf("%s: stored content is unreferenced", path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GC removes stored content and block metadata that no snapshot
// references, then persists the pruned database. Unreferenced content
// arises from backups that ingested data but failed before commit, and
// from snapshots replaced under the same name.
func GC(v *vault.Vault, logger Logger) (removed int, freed int64, err error) {
	referenced := v.Database.ReferencedHashes()

	err = v.Store.Walk(func(path string) error {
		h, err := content.ParseHex(filepath.Base(path))
		if err != nil {
			return fmt.Errorf("%s: unexpected file in content store", path)
		}
		if referenced[h] {
			return nil
		}
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}
		if err := v.Store.Delete(h); err != nil {
			return err
		}
		logger.Debug("removed unreferenced content", "hash", h, "bytes", info.Size())
		removed++
		freed += info.Size()
		return nil
	})
	if err != nil {
		return removed, freed, err
	}

	if dropped := v.Database.DropUnreferencedBlocks(); len(dropped) > 0 {
		if err := v.Database.Save(v.Dir); err != nil {
			return removed, freed, err
		}
	}

	logger.Info("gc complete", "removed", removed, "freed_bytes", freed)
	return removed, freed, nil
}
