// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package timeline

import "sort"

// Store holds one Timeline per entity id, created on first insert.
type Store[V any] struct {
	timelines map[int64]*Timeline[V]
}

// NewStore returns an empty store.
func NewStore[V any]() *Store[V] {
	return &Store[V]{timelines: make(map[int64]*Timeline[V])}
}

// Insert records value for entity at time, overwriting an existing
// entry at exactly that time. It reports whether an entry was
// replaced.
func (s *Store[V]) Insert(entity int64, time float64, value V) bool {
	timeline, exists := s.timelines[entity]
	if !exists {
		timeline = New[V]()
		s.timelines[entity] = timeline
	}
	return timeline.Insert(time, value)
}

// Latest returns entity's most recent entry.
func (s *Store[V]) Latest(entity int64) (Entry[V], bool) {
	timeline, exists := s.timelines[entity]
	if !exists {
		return Entry[V]{}, false
	}
	return timeline.Latest()
}

// AsOf returns entity's entry at time, or the latest one before it.
func (s *Store[V]) AsOf(entity int64, time float64) (Entry[V], bool) {
	timeline, exists := s.timelines[entity]
	if !exists {
		return Entry[V]{}, false
	}
	return timeline.AsOf(time)
}

// Get is Latest when at is nil and AsOf(*at) otherwise.
func (s *Store[V]) Get(entity int64, at *float64) (Entry[V], bool) {
	if at == nil {
		return s.Latest(entity)
	}
	return s.AsOf(entity, *at)
}

// Range iterates entity's entries with from <= Time <= to.
func (s *Store[V]) Range(entity int64, from, to float64, visit func(Entry[V]) bool) {
	if timeline, exists := s.timelines[entity]; exists {
		timeline.Range(from, to, visit)
	}
}

// Len returns the number of entries recorded for entity.
func (s *Store[V]) Len(entity int64) int {
	if timeline, exists := s.timelines[entity]; exists {
		return timeline.Len()
	}
	return 0
}

// Entities returns every entity with a timeline, ascending.
func (s *Store[V]) Entities() []int64 {
	entities := make([]int64, 0, len(s.timelines))
	for entity := range s.timelines {
		entities = append(entities, entity)
	}
	sort.Slice(entities, func(i, j int) bool { return entities[i] < entities[j] })
	return entities
}

// Count returns the number of entities with a timeline.
func (s *Store[V]) Count() int {
	return len(s.timelines)
}

// Reset discards every timeline.
func (s *Store[V]) Reset() {
	s.timelines = make(map[int64]*Timeline[V])
}
