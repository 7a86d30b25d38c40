package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/erer1243/sharedfileholder/internal/snapshot"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// Mount materializes the named snapshot inside target, which must
// exist and be empty. Directories are recreated for real; every
// backed-up file becomes a relative symlink to its content-addressed
// location in the store, and every recorded symlink is recreated with
// its recorded target. The vault is not modified.
func Mount(v *vault.Vault, name, target string) error {
	if err := EnsureEmptyDir(target); err != nil {
		return err
	}

	view, ok := v.Database.Backup(name)
	if !ok {
		return fmt.Errorf("backup %q does not exist", name)
	}
	bk := view.Backup()

	for _, dir := range bk.Directories() {
		dest := filepath.Join(target, dir)
		if err := os.MkdirAll(dest, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dest, err)
		}
	}

	err := view.EachFile(func(f snapshot.FileView) error {
		dest := filepath.Join(target, f.Path)
		destAbs, err := filepath.Abs(dest)
		if err != nil {
			return fmt.Errorf("absolutizing %s: %w", dest, err)
		}
		srcAbs, err := filepath.Abs(v.Store.PathOf(f.Hash))
		if err != nil {
			return fmt.Errorf("absolutizing store path for %s: %w", f.Hash, err)
		}
		rel, err := filepath.Rel(filepath.Dir(destAbs), srcAbs)
		if err != nil {
			return fmt.Errorf("relativizing %s: %w", srcAbs, err)
		}
		if err := os.Symlink(rel, dest); err != nil {
			return fmt.Errorf("symlinking %s -> %s: %w", dest, rel, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	for path, linkTarget := range bk.Symlinks() {
		dest := filepath.Join(target, path)
		if err := os.Symlink(linkTarget, dest); err != nil {
			return fmt.Errorf("symlinking %s -> %s: %w", dest, linkTarget, err)
		}
	}
	return nil
}
