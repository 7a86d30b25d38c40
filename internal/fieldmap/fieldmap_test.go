package fieldmap

import (
	"errors"
	"fmt"
	"testing"
)

type record struct {
	ID   uint64
	Name string
	Data int
}

func newTestMap() *Map[record, uint64, string] {
	return New(
		func(r record) uint64 { return r.ID },
		func(r record) string { return r.Name },
	)
}

func TestMap_Insert(t *testing.T) {
	t.Run("records retrievable by both keys", func(t *testing.T) {
		m := newTestMap()
		if err := m.Insert(record{1, "one", 100}); err != nil {
			t.Fatalf("Insert() error = %v", err)
		}

		got, ok := m.GetByKey1(1)
		if !ok || got.Data != 100 {
			t.Errorf("GetByKey1(1) = %+v, %v", got, ok)
		}
		got, ok = m.GetByKey2("one")
		if !ok || got.Data != 100 {
			t.Errorf("GetByKey2(one) = %+v, %v", got, ok)
		}
	})

	t.Run("duplicate first key fails without mutation", func(t *testing.T) {
		m := newTestMap()
		if err := m.Insert(record{1, "one", 100}); err != nil {
			t.Fatal(err)
		}

		err := m.Insert(record{1, "other", 200})
		var dup *DuplicateKeyError
		if !errors.As(err, &dup) {
			t.Fatalf("Insert() error = %v, want DuplicateKeyError", err)
		}
		if m.Len() != 1 {
			t.Errorf("Len() = %d after failed insert, want 1", m.Len())
		}
		if _, ok := m.GetByKey2("other"); ok {
			t.Error("rejected record is reachable by its second key")
		}
	})

	t.Run("duplicate second key fails without mutation", func(t *testing.T) {
		m := newTestMap()
		if err := m.Insert(record{1, "one", 100}); err != nil {
			t.Fatal(err)
		}

		err := m.Insert(record{2, "one", 200})
		var dup *DuplicateKeyError
		if !errors.As(err, &dup) {
			t.Fatalf("Insert() error = %v, want DuplicateKeyError", err)
		}
		if m.Len() != 1 {
			t.Errorf("Len() = %d after failed insert, want 1", m.Len())
		}
		if _, ok := m.GetByKey1(2); ok {
			t.Error("rejected record is reachable by its first key")
		}
	})

	t.Run("re-inserting the same record is a no-op", func(t *testing.T) {
		m := newTestMap()
		if err := m.Insert(record{1, "one", 100}); err != nil {
			t.Fatal(err)
		}
		if err := m.Insert(record{1, "one", 100}); err != nil {
			t.Errorf("re-insert error = %v, want nil", err)
		}
		if m.Len() != 1 {
			t.Errorf("Len() = %d, want 1", m.Len())
		}
	})
}

func TestMap_GetMissing(t *testing.T) {
	m := newTestMap()
	if _, ok := m.GetByKey1(42); ok {
		t.Error("GetByKey1 on empty map reported a record")
	}
	if _, ok := m.GetByKey2("nope"); ok {
		t.Error("GetByKey2 on empty map reported a record")
	}
}

func TestMap_GrowthRebuild(t *testing.T) {
	// Insert enough records to force several backing-array growths, then
	// verify every record is still reachable by both keys.
	m := newTestMap()
	const n = 1000
	for i := range n {
		rec := record{uint64(i), fmt.Sprintf("rec-%d", i), i * 2}
		if err := m.Insert(rec); err != nil {
			t.Fatalf("Insert(%d) error = %v", i, err)
		}
	}

	if m.Len() != n {
		t.Fatalf("Len() = %d, want %d", m.Len(), n)
	}
	for i := range n {
		got, ok := m.GetByKey1(uint64(i))
		if !ok || got.Data != i*2 {
			t.Fatalf("GetByKey1(%d) = %+v, %v", i, got, ok)
		}
		got, ok = m.GetByKey2(fmt.Sprintf("rec-%d", i))
		if !ok || got.ID != uint64(i) {
			t.Fatalf("GetByKey2(rec-%d) = %+v, %v", i, got, ok)
		}
	}
}

func TestMap_All(t *testing.T) {
	m := newTestMap()
	for i := range 5 {
		if err := m.Insert(record{uint64(i), fmt.Sprintf("r%d", i), i}); err != nil {
			t.Fatal(err)
		}
	}

	t.Run("yields all records in insertion order", func(t *testing.T) {
		var ids []uint64
		for rec := range m.All() {
			ids = append(ids, rec.ID)
		}
		if len(ids) != 5 {
			t.Fatalf("iterated %d records, want 5", len(ids))
		}
		for i, id := range ids {
			if id != uint64(i) {
				t.Errorf("ids[%d] = %d, want %d", i, id, i)
			}
		}
	})

	t.Run("is restartable", func(t *testing.T) {
		first, second := 0, 0
		for range m.All() {
			first++
		}
		for range m.All() {
			second++
		}
		if first != second {
			t.Errorf("first pass %d records, second pass %d", first, second)
		}
	})

	t.Run("stops early when yield returns false", func(t *testing.T) {
		count := 0
		for range m.All() {
			count++
			if count == 2 {
				break
			}
		}
		if count != 2 {
			t.Errorf("iterated %d records, want 2", count)
		}
	})
}
