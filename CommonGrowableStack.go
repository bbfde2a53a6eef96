package rigid2d

// growableStack is a LIFO backed by a slice that keeps its capacity across
// resets, so tree queries and island searches stop allocating once warm.
type growableStack[T any] struct {
	items []T
}

func newGrowableStack[T any](capacity int) *growableStack[T] {
	return &growableStack[T]{items: make([]T, 0, capacity)}
}

func (s *growableStack[T]) Count() int {
	return len(s.items)
}

func (s *growableStack[T]) Push(value T) {
	s.items = append(s.items, value)
}

// Pop removes the top element. Popping an empty stack returns the zero value.
func (s *growableStack[T]) Pop() T {
	var zero T
	n := len(s.items)
	if n == 0 {
		return zero
	}
	value := s.items[n-1]
	s.items[n-1] = zero
	s.items = s.items[:n-1]
	return value
}

// Reset empties the stack without releasing its storage.
func (s *growableStack[T]) Reset() {
	var zero T
	for i := range s.items {
		s.items[i] = zero
	}
	s.items = s.items[:0]
}
