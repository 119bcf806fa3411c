package containr

// Stack is a LIFO collection. The zero value is ready to use.
// Stack is not safe for concurrent use.
type Stack[T any] struct {
	items []T
}

// NewStack creates an empty stack.
func NewStack[T any]() *Stack[T] {
	return &Stack[T]{}
}

// Push adds an item to the top of the stack.
func (s *Stack[T]) Push(item T) {
	s.items = append(s.items, item)
}

// Pop removes and returns the top item. ok is false when the stack is empty.
func (s *Stack[T]) Pop() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}

	last := len(s.items) - 1
	item = s.items[last]

	var zero T
	s.items[last] = zero
	s.items = s.items[:last]

	return item, true
}

// Peek returns the top item without removing it.
func (s *Stack[T]) Peek() (item T, ok bool) {
	if len(s.items) == 0 {
		return item, false
	}

	return s.items[len(s.items)-1], true
}

// Size returns the number of items on the stack.
func (s *Stack[T]) Size() int {
	return len(s.items)
}

// Clear removes every item.
func (s *Stack[T]) Clear() {
	clear(s.items)
	s.items = s.items[:0]
}

// Items returns a copy of the stack contents, bottom first.
func (s *Stack[T]) Items() []T {
	items := make([]T, len(s.items))
	copy(items, s.items)
	return items
}
