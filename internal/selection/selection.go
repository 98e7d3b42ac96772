// Package selection resolves which annotations are selected and where the
// transformer handles sit.
package selection

import (
	"slices"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
)

// Selection is an ordered set of annotation ids. The primary id is the most
// recently added member; it is derived, never stored.
type Selection struct {
	ids []string
}

func (s *Selection) IDs() []string {
	return slices.Clone(s.ids)
}

func (s *Selection) Len() int { return len(s.ids) }

func (s *Selection) Empty() bool { return len(s.ids) == 0 }

func (s *Selection) Contains(id string) bool {
	return slices.Contains(s.ids, id)
}

// Primary returns the most recently added member.
func (s *Selection) Primary() (string, bool) {
	if len(s.ids) == 0 {
		return "", false
	}
	return s.ids[len(s.ids)-1], true
}

// SelectSingle replaces the selection with id. An empty id clears it.
// It reports whether the selection changed.
func (s *Selection) SelectSingle(id string) bool {
	if id == "" {
		return s.Clear()
	}
	return s.Set([]string{id})
}

// Toggle adds id when absent and removes it when present.
func (s *Selection) Toggle(id string) bool {
	if id == "" {
		return false
	}
	if i := slices.Index(s.ids, id); i >= 0 {
		s.ids = slices.Delete(s.ids, i, i+1)
		return true
	}
	s.ids = append(s.ids, id)
	return true
}

// Add appends ids that are not yet members.
func (s *Selection) Add(ids ...string) bool {
	changed := false
	for _, id := range ids {
		if id == "" || slices.Contains(s.ids, id) {
			continue
		}
		s.ids = append(s.ids, id)
		changed = true
	}
	return changed
}

// Set replaces the selection, dropping duplicates and empty ids.
func (s *Selection) Set(ids []string) bool {
	next := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" && !slices.Contains(next, id) {
			next = append(next, id)
		}
	}
	if slices.Equal(next, s.ids) {
		return false
	}
	s.ids = next
	return true
}

func (s *Selection) Clear() bool {
	if len(s.ids) == 0 {
		return false
	}
	s.ids = nil
	return true
}

// Prune drops ids that no longer exist in anns.
func (s *Selection) Prune(anns []annotation.Annotation) bool {
	kept := s.ids[:0:0]
	for _, id := range s.ids {
		if annotation.Index(anns, id) >= 0 {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(s.ids) {
		return false
	}
	s.ids = kept
	return true
}

// HitTest returns the topmost annotation containing p. Later annotations are
// drawn on top and win.
func HitTest(anns []annotation.Annotation, p geometry.Point) (string, bool) {
	if !p.Valid() {
		return "", false
	}
	for i := len(anns) - 1; i >= 0; i-- {
		if anns[i].Rect().Contains(p) {
			return anns[i].ID, true
		}
	}
	return "", false
}

// Marquee returns, in z-order, every annotation whose rect overlaps box.
func Marquee(anns []annotation.Annotation, box geometry.Rect) []string {
	box = geometry.Normalize(box)
	if !box.Valid() {
		return nil
	}
	var ids []string
	for _, a := range anns {
		if geometry.Intersects(a.Rect(), box) {
			ids = append(ids, a.ID)
		}
	}
	return ids
}
