package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/erer1243/sharedfileholder/internal/content"
)

func writeSource(t *testing.T, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "source")
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestStore_PathOf(t *testing.T) {
	s := New("/vault")
	h := content.HashBytes([]byte("x"))
	hex := h.Hex()

	want := filepath.Join("/vault", DataDirName, hex[:2], hex)
	if got := s.PathOf(h); got != want {
		t.Errorf("PathOf() = %s, want %s", got, want)
	}
}

func TestStore_Insert(t *testing.T) {
	t.Run("stores content at the hash-derived path", func(t *testing.T) {
		s := New(t.TempDir())
		src := writeSource(t, "hello")
		h := content.HashBytes([]byte("hello"))

		if err := s.Insert(src, h); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		data, err := os.ReadFile(s.PathOf(h))
		if err != nil {
			t.Fatalf("reading stored file: %v", err)
		}
		if string(data) != "hello" {
			t.Errorf("stored content = %q, want %q", data, "hello")
		}
	})

	t.Run("second insert performs no copy", func(t *testing.T) {
		s := New(t.TempDir())
		src := writeSource(t, "hello")
		h := content.HashBytes([]byte("hello"))

		if err := s.Insert(src, h); err != nil {
			t.Fatal(err)
		}

		// Change the source bytes out from under the hash. If the second
		// insert copied anything, the stored content would change.
		if err := os.WriteFile(src, []byte("DIFFERENT"), 0644); err != nil {
			t.Fatal(err)
		}
		if err := s.Insert(src, h); err != nil {
			t.Fatalf("second Insert() error = %v", err)
		}

		data, err := os.ReadFile(s.PathOf(h))
		if err != nil {
			t.Fatal(err)
		}
		if string(data) != "hello" {
			t.Errorf("stored content = %q after dedup insert, want %q", data, "hello")
		}
	})

	t.Run("unreadable source", func(t *testing.T) {
		s := New(t.TempDir())
		h := content.HashBytes([]byte("ghost"))

		err := s.Insert(filepath.Join(t.TempDir(), "missing"), h)
		if err == nil {
			t.Fatal("Insert() with missing source succeeded")
		}
		// A failed insert must not leave anything at the hash's path.
		if _, err := os.Stat(s.PathOf(h)); !os.IsNotExist(err) {
			t.Errorf("stat after failed insert = %v, want not-exist", err)
		}
	})
}

func TestStore_Delete(t *testing.T) {
	s := New(t.TempDir())
	src := writeSource(t, "doomed")
	h := content.HashBytes([]byte("doomed"))

	if err := s.Insert(src, h); err != nil {
		t.Fatal(err)
	}
	if err := s.Delete(h); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, err := os.Stat(s.PathOf(h)); !os.IsNotExist(err) {
		t.Errorf("stat after delete = %v, want not-exist", err)
	}

	if err := s.Delete(h); err == nil {
		t.Error("deleting absent content succeeded")
	}
}

func TestStore_Walk(t *testing.T) {
	vaultDir := t.TempDir()
	s := New(vaultDir)

	contents := []string{"one", "two", "three"}
	want := map[string]bool{}
	for _, c := range contents {
		h := content.HashBytes([]byte(c))
		if err := s.Insert(writeSource(t, c), h); err != nil {
			t.Fatal(err)
		}
		want[s.PathOf(h)] = true
	}

	got := map[string]bool{}
	err := s.Walk(func(path string) error {
		got[path] = true
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}

	if len(got) != len(want) {
		t.Fatalf("walked %d files, want %d", len(got), len(want))
	}
	for path := range want {
		if !got[path] {
			t.Errorf("Walk() missed %s", path)
		}
	}
}
