package history

import (
	"slices"
	"testing"
)

func TestCapacityBound(t *testing.T) {
	s := New[int](50, nil)
	s.Reset(0)
	for i := 1; i <= 100; i++ {
		s.Commit(i)
	}
	if s.Len() != 50 {
		t.Fatalf("len = %d, want 50", s.Len())
	}
	if s.Cursor() != 49 {
		t.Fatalf("cursor = %d, want 49", s.Cursor())
	}

	var last int
	for i := 0; i < 49; i++ {
		v, ok := s.Undo()
		if !ok {
			t.Fatalf("undo %d failed", i+1)
		}
		last = v
	}
	if last != 51 {
		t.Fatalf("earliest retained = %d, want 51", last)
	}
	if _, ok := s.Undo(); ok {
		t.Fatal("undo past the earliest entry should fail")
	}
}

func TestBranchTruncation(t *testing.T) {
	s := New[string](10, nil)
	s.Reset("base")
	s.Commit("a")
	s.Commit("b")
	s.Commit("c")

	s.Undo()
	s.Undo()
	s.Commit("x")

	if s.Len() != 3 {
		t.Fatalf("len = %d, want 3", s.Len())
	}
	if s.CanRedo() {
		t.Fatal("redo branch should be gone")
	}
	if v, _ := s.Undo(); v != "a" {
		t.Fatalf("undo = %q, want a", v)
	}
	if v, _ := s.Redo(); v != "x" {
		t.Fatalf("redo = %q, want x", v)
	}
}

func TestCursorInvariant(t *testing.T) {
	s := New[int](3, nil)
	if _, ok := s.Current(); ok {
		t.Fatal("empty stack has no current entry")
	}
	if s.CanUndo() || s.CanRedo() {
		t.Fatal("empty stack cannot move")
	}
	s.Reset(0)
	ops := []func(){
		func() { s.Commit(1) },
		func() { s.Undo() },
		func() { s.Redo() },
		func() { s.Redo() },
		func() { s.Commit(2) },
		func() { s.Commit(3) },
		func() { s.Commit(4) },
		func() { s.Undo() },
		func() { s.Undo() },
		func() { s.Undo() },
	}
	for i, op := range ops {
		op()
		if c := s.Cursor(); c < 0 || c >= s.Len() {
			t.Fatalf("step %d: cursor %d outside [0,%d)", i, c, s.Len())
		}
		if s.Len() > s.Capacity() {
			t.Fatalf("step %d: len %d above capacity", i, s.Len())
		}
	}
	if v, _ := s.Current(); v != 2 {
		t.Fatalf("current = %d, want 2", v)
	}
}

func TestCloneIsolatesSnapshots(t *testing.T) {
	s := New(5, slices.Clone[[]int])
	base := []int{1, 2}
	s.Reset(base)
	base[0] = 99
	got, _ := s.Current()
	if got[0] != 1 {
		t.Fatalf("stored snapshot mutated: %v", got)
	}
	got[1] = 42
	again, _ := s.Current()
	if again[1] != 2 {
		t.Fatalf("returned snapshot aliases storage: %v", again)
	}
}

func TestDefaultCapacity(t *testing.T) {
	if got := New[int](0, nil).Capacity(); got != DefaultCapacity {
		t.Fatalf("capacity = %d, want %d", got, DefaultCapacity)
	}
}
