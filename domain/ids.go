package domain

import "sort"

// DealID identifies a CRM deal.
type DealID string

// LineItemID identifies a CRM line item.
type LineItemID string

// IDSet is an unordered set of opaque identifiers compared by exact string match.
type IDSet[T ~string] struct {
	items map[T]struct{}
}

// DealSet holds the open deals found by a search.
type DealSet = IDSet[DealID]

// LineItemSet holds deduplicated line item ids.
type LineItemSet = IDSet[LineItemID]

// NewIDSet builds a set from ids, dropping duplicates.
func NewIDSet[T ~string](ids ...T) IDSet[T] {
	s := IDSet[T]{items: make(map[T]struct{}, len(ids))}
	for _, id := range ids {
		s.Add(id)
	}
	return s
}

// Add inserts id and reports whether it was new. Empty ids are ignored.
func (s *IDSet[T]) Add(id T) bool {
	if id == "" {
		return false
	}
	if s.items == nil {
		s.items = make(map[T]struct{})
	}
	if _, ok := s.items[id]; ok {
		return false
	}
	s.items[id] = struct{}{}
	return true
}

func (s IDSet[T]) Contains(id T) bool {
	_, ok := s.items[id]
	return ok
}

func (s IDSet[T]) Len() int {
	return len(s.items)
}

func (s IDSet[T]) Empty() bool {
	return len(s.items) == 0
}

// Sorted returns the members in ascending order so callers get a stable view.
func (s IDSet[T]) Sorted() []T {
	out := make([]T, 0, len(s.items))
	for id := range s.items {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Union adds every member of other to s.
func (s *IDSet[T]) Union(other IDSet[T]) {
	for id := range other.items {
		s.Add(id)
	}
}

// Equal reports whether both sets hold the same members.
func (s IDSet[T]) Equal(other IDSet[T]) bool {
	if s.Len() != other.Len() {
		return false
	}
	for id := range s.items {
		if !other.Contains(id) {
			return false
		}
	}
	return true
}

// Chunk splits the sorted members into slices of at most size elements.
func (s IDSet[T]) Chunk(size int) [][]T {
	all := s.Sorted()
	if size <= 0 || len(all) <= size {
		if len(all) == 0 {
			return nil
		}
		return [][]T{all}
	}
	chunks := make([][]T, 0, (len(all)+size-1)/size)
	for start := 0; start < len(all); start += size {
		end := start + size
		if end > len(all) {
			end = len(all)
		}
		chunks = append(chunks, all[start:end])
	}
	return chunks
}
