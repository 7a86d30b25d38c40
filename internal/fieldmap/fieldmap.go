// Package fieldmap provides a collection of records indexed by two of
// their fields, with each field value globally unique across the
// collection. A snapshot's file table uses it to resolve entries by
// source inode or by path in constant expected time.
package fieldmap

import (
	"fmt"
	"iter"
)

// KeyFunc extracts an index key from a record.
type KeyFunc[T any, K comparable] func(T) K

// DuplicateKeyError reports an insert whose key is already bound to a
// different record.
type DuplicateKeyError struct {
	Key any
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("fieldmap: key %v already bound to a different record", e.Key)
}

// Map stores records in an append-only arena and maintains a hash index
// over each of two record fields. Index entries refer to arena slots by
// position, never by address. When an insert grows the arena's backing
// array both indices are dropped and rebuilt on the next lookup, so
// lookups and inserts are O(1) amortized.
//
// Map is not safe for concurrent use. Callers serialize access; for
// vault state the directory lock provides that discipline.
type Map[T any, K1 comparable, K2 comparable] struct {
	key1 KeyFunc[T, K1]
	key2 KeyFunc[T, K2]

	recs   []T
	byKey1 map[K1]int
	byKey2 map[K2]int
	valid  bool
}

// New returns an empty Map whose indices are computed by key1 and key2.
func New[T any, K1 comparable, K2 comparable](key1 KeyFunc[T, K1], key2 KeyFunc[T, K2]) *Map[T, K1, K2] {
	return &Map[T, K1, K2]{key1: key1, key2: key2}
}

// Len returns the number of stored records.
func (m *Map[T, K1, K2]) Len() int {
	return len(m.recs)
}

// Insert adds rec to the collection. If either of rec's keys is already
// bound to a different record, Insert fails without mutating the
// collection. Re-inserting a record whose keys both resolve to the same
// existing slot is a no-op.
func (m *Map[T, K1, K2]) Insert(rec T) error {
	k1 := m.key1(rec)
	k2 := m.key2(rec)
	i1, ok1 := m.lookup1(k1)
	i2, ok2 := m.lookup2(k2)

	if ok1 || ok2 {
		if ok1 && ok2 && i1 == i2 {
			// Self-collision on both keys: the record is already here.
			return nil
		}
		if ok1 {
			return &DuplicateKeyError{Key: k1}
		}
		return &DuplicateKeyError{Key: k2}
	}

	// Appending at capacity reallocates the arena; the indices refer to
	// slots, not addresses, so they stay correct, but rebuilding them
	// lazily keeps sequential under-capacity inserts O(1).
	grew := len(m.recs) == cap(m.recs)
	m.recs = append(m.recs, rec)
	if grew {
		m.valid = false
	} else {
		m.byKey1[k1] = len(m.recs) - 1
		m.byKey2[k2] = len(m.recs) - 1
	}
	return nil
}

// GetByKey1 returns the record whose first key equals k.
func (m *Map[T, K1, K2]) GetByKey1(k K1) (T, bool) {
	if i, ok := m.lookup1(k); ok {
		return m.recs[i], true
	}
	var zero T
	return zero, false
}

// GetByKey2 returns the record whose second key equals k.
func (m *Map[T, K1, K2]) GetByKey2(k K2) (T, bool) {
	if i, ok := m.lookup2(k); ok {
		return m.recs[i], true
	}
	var zero T
	return zero, false
}

// All iterates over the stored records in insertion order.
func (m *Map[T, K1, K2]) All() iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, rec := range m.recs {
			if !yield(rec) {
				return
			}
		}
	}
}

func (m *Map[T, K1, K2]) lookup1(k K1) (int, bool) {
	if !m.valid {
		m.rebuild()
	}
	i, ok := m.byKey1[k]
	return i, ok
}

func (m *Map[T, K1, K2]) lookup2(k K2) (int, bool) {
	if !m.valid {
		m.rebuild()
	}
	i, ok := m.byKey2[k]
	return i, ok
}

// rebuild rescans the arena and reconstructs both indices.
func (m *Map[T, K1, K2]) rebuild() {
	m.byKey1 = make(map[K1]int, len(m.recs))
	m.byKey2 = make(map[K2]int, len(m.recs))
	for i, rec := range m.recs {
		m.byKey1[m.key1(rec)] = i
		m.byKey2[m.key2(rec)] = i
	}
	m.valid = true
}
