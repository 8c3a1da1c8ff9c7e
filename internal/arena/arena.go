// Package arena provides an id-indexed, grow-on-demand container used for
// node and posting storage.
//
// Records arrive keyed by sparse, possibly out-of-order integer ids. A
// language-level map would work, but the hot path here is a single forward
// pass over a serialized record stream, and the container must guarantee
// amortized O(1) placement per record regardless of id order. A slice indexed
// by id with geometric growth gives that guarantee explicitly, plus the cache
// locality a map cannot.
package arena

// Slice is a random-access container indexed by uint32 ids.
//
// Ids need not be contiguous or arrive in any particular order. Slots between
// the defined ids exist but report as unset. Growth is geometric: placing a
// record whose id exceeds the current capacity at most doubles the backing
// array (or extends it to fit the id, whichever is larger), so a stream of n
// records costs O(n) placements total even when ids arrive in increasing
// order with large gaps.
//
// Slice is not safe for concurrent mutation.
type Slice[T any] struct {
	items []T
	set   []bool
	count int
}

// New creates a Slice with capacity for ids [0, hint). A hint of zero is
// valid; the first Put allocates.
func New[T any](hint int) *Slice[T] {
	if hint < 0 {
		hint = 0
	}
	return &Slice[T]{
		items: make([]T, hint),
		set:   make([]bool, hint),
	}
}

// Put places v at id, growing the backing storage if needed.
func (s *Slice[T]) Put(id uint32, v T) {
	s.grow(int(id) + 1)
	if !s.set[id] {
		s.count++
	}
	s.items[id] = v
	s.set[id] = true
}

// Get returns the value at id and whether it was ever set.
func (s *Slice[T]) Get(id uint32) (T, bool) {
	if int(id) >= len(s.items) || !s.set[id] {
		var zero T
		return zero, false
	}
	return s.items[id], true
}

// Ref returns a pointer to the slot at id, or nil if it was never set.
// The pointer is invalidated by the next Put that grows the storage.
func (s *Slice[T]) Ref(id uint32) *T {
	if int(id) >= len(s.items) || !s.set[id] {
		return nil
	}
	return &s.items[id]
}

// Has reports whether id was ever set.
func (s *Slice[T]) Has(id uint32) bool {
	return int(id) < len(s.set) && s.set[id]
}

// Len returns the number of set slots.
func (s *Slice[T]) Len() int { return s.count }

// Bound returns one past the highest id that storage currently covers.
// Defined slots all have ids < Bound().
func (s *Slice[T]) Bound() uint32 { return uint32(len(s.items)) }

// Range calls fn for every set slot in ascending id order. It stops early
// if fn returns false.
func (s *Slice[T]) Range(fn func(id uint32, v T) bool) {
	for i := range s.items {
		if s.set[i] && !fn(uint32(i), s.items[i]) {
			return
		}
	}
}

func (s *Slice[T]) grow(n int) {
	if n <= len(s.items) {
		return
	}
	capacity := len(s.items) * 2
	if capacity < n {
		capacity = n
	}
	items := make([]T, capacity)
	copy(items, s.items)
	s.items = items

	set := make([]bool, capacity)
	copy(set, s.set)
	s.set = set
}
