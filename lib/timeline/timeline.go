// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "github.com/google/btree"

// degree is the B-tree branching factor. Entries are small (a float
// key and a value), so a moderately wide node keeps the tree shallow.
const degree = 16

// Entry is one timestamped value.
type Entry[V any] struct {
	Time  float64 `cbor:"time" json:"time"`
	Value V       `cbor:"value" json:"value"`
}

// Timeline is one entity's ordered log.
type Timeline[V any] struct {
	tree *btree.BTreeG[Entry[V]]
}

// New returns an empty timeline.
func New[V any]() *Timeline[V] {
	return &Timeline[V]{
		tree: btree.NewG(degree, func(a, b Entry[V]) bool {
			return a.Time < b.Time
		}),
	}
}

// Insert records value at time, replacing any entry with the same
// time. It reports whether an entry was replaced.
func (t *Timeline[V]) Insert(time float64, value V) bool {
	_, replaced := t.tree.ReplaceOrInsert(Entry[V]{Time: time, Value: value})
	return replaced
}

// Latest returns the entry with the greatest time.
func (t *Timeline[V]) Latest() (Entry[V], bool) {
	return t.tree.Max()
}

// Earliest returns the entry with the smallest time.
func (t *Timeline[V]) Earliest() (Entry[V], bool) {
	return t.tree.Min()
}

// AsOf returns the entry at time if one exists, otherwise the entry
// with the greatest time strictly less than time.
func (t *Timeline[V]) AsOf(time float64) (Entry[V], bool) {
	var (
		found Entry[V]
		ok    bool
	)
	t.tree.DescendLessOrEqual(Entry[V]{Time: time}, func(entry Entry[V]) bool {
		found, ok = entry, true
		return false
	})
	return found, ok
}

// Range calls visit for each entry with from <= Time <= to in
// ascending time order, stopping early if visit returns false.
func (t *Timeline[V]) Range(from, to float64, visit func(Entry[V]) bool) {
	t.tree.AscendGreaterOrEqual(Entry[V]{Time: from}, func(entry Entry[V]) bool {
		if entry.Time > to {
			return false
		}
		return visit(entry)
	})
}

// Len returns the number of entries.
func (t *Timeline[V]) Len() int {
	return t.tree.Len()
}
