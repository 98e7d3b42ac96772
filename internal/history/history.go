// Package history keeps a bounded list of snapshots with a cursor.
//
// Committing while the cursor is behind the newest entry throws away the
// redo branch. When the list is full the oldest entry is dropped.
package history

// DefaultCapacity is used when New is given a capacity below 1.
const DefaultCapacity = 50

// Stack holds snapshots of type T. The zero value is not usable; call New.
type Stack[T any] struct {
	entries  []T
	cursor   int
	capacity int
	clone    func(T) T
}

// New returns an empty stack. clone, when non-nil, copies every snapshot on
// the way in and out so callers cannot mutate stored history.
func New[T any](capacity int, clone func(T) T) *Stack[T] {
	if capacity < 1 {
		capacity = DefaultCapacity
	}
	if clone == nil {
		clone = func(v T) T { return v }
	}
	return &Stack[T]{capacity: capacity, clone: clone, cursor: -1}
}

// Reset discards all entries and starts over with initial as the base.
func (s *Stack[T]) Reset(initial T) {
	s.entries = []T{s.clone(initial)}
	s.cursor = 0
}

// Commit records snapshot as the newest entry.
func (s *Stack[T]) Commit(snapshot T) {
	if s.cursor < len(s.entries)-1 {
		s.entries = s.entries[:s.cursor+1]
	}
	s.entries = append(s.entries, s.clone(snapshot))
	if over := len(s.entries) - s.capacity; over > 0 {
		clear(s.entries[:over])
		s.entries = s.entries[over:]
	}
	s.cursor = len(s.entries) - 1
}

// Undo moves the cursor back one entry and returns that entry.
func (s *Stack[T]) Undo() (T, bool) {
	if !s.CanUndo() {
		var zero T
		return zero, false
	}
	s.cursor--
	return s.clone(s.entries[s.cursor]), true
}

// Redo moves the cursor forward one entry and returns that entry.
func (s *Stack[T]) Redo() (T, bool) {
	if !s.CanRedo() {
		var zero T
		return zero, false
	}
	s.cursor++
	return s.clone(s.entries[s.cursor]), true
}

// Current returns the entry under the cursor.
func (s *Stack[T]) Current() (T, bool) {
	if s.cursor < 0 {
		var zero T
		return zero, false
	}
	return s.clone(s.entries[s.cursor]), true
}

func (s *Stack[T]) CanUndo() bool { return s.cursor > 0 }

func (s *Stack[T]) CanRedo() bool { return s.cursor >= 0 && s.cursor < len(s.entries)-1 }

func (s *Stack[T]) Len() int { return len(s.entries) }

func (s *Stack[T]) Cursor() int { return s.cursor }

func (s *Stack[T]) Capacity() int { return s.capacity }
