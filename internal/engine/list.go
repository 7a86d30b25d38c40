package engine

import (
	"fmt"
	"slices"
	"strings"

	"github.com/erer1243/sharedfileholder/internal/snapshot"
	"github.com/erer1243/sharedfileholder/internal/vault"
)

// BackupSummary describes one snapshot for listing.
type BackupSummary struct {
	Name        string
	Files       int
	Directories int
	Symlinks    int
	TotalSize   int64
}

// Summaries returns a summary of every snapshot in the vault, sorted by
// name.
func Summaries(v *vault.Vault) ([]BackupSummary, error) {
	var out []BackupSummary
	for _, name := range v.Database.Names() {
		view, ok := v.Database.Backup(name)
		if !ok {
			return nil, fmt.Errorf("backup %q disappeared while listing", name)
		}
		bk := view.Backup()
		s := BackupSummary{
			Name:        name,
			Directories: bk.NumDirectories(),
			Symlinks:    bk.NumSymlinks(),
		}
		err := view.EachFile(func(f snapshot.FileView) error {
			s.Files++
			s.TotalSize += f.Size
			return nil
		})
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

// Files returns the joined file entries of the named snapshot, sorted
// by snapshot path.
func Files(v *vault.Vault, name string) ([]snapshot.FileView, error) {
	view, ok := v.Database.Backup(name)
	if !ok {
		return nil, fmt.Errorf("backup %q does not exist", name)
	}

	var out []snapshot.FileView
	err := view.EachFile(func(f snapshot.FileView) error {
		out = append(out, f)
		return nil
	})
	if err != nil {
		return nil, err
	}
	slices.SortFunc(out, func(a, b snapshot.FileView) int {
		return strings.Compare(a.Path, b.Path)
	})
	return out, nil
}
