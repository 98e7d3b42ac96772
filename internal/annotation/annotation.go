// Package annotation defines the region annotation and class types the
// canvas engine edits.
package annotation

import (
	"encoding/json"
	"slices"

	"github.com/google/uuid"

	"boxmark/internal/geometry"
)

// Annotation is a rectangular region in image-pixel space.
type Annotation struct {
	ID         string  `json:"id"`
	ClassID    int     `json:"class_id"`
	X          float64 `json:"x"`
	Y          float64 `json:"y"`
	Width      float64 `json:"width"`
	Height     float64 `json:"height"`
	Confidence float64 `json:"confidence"`
}

// NewID returns a fresh opaque annotation id.
func NewID() string {
	return uuid.NewString()
}

// New builds a committed annotation from a draft rect. ok is false when the
// normalized rect is below geometry.MinSize or not finite.
func New(classID int, draft geometry.Rect) (Annotation, bool) {
	r := geometry.Normalize(draft)
	if !geometry.MeetsMinSize(r) {
		return Annotation{}, false
	}
	return Annotation{
		ID:         NewID(),
		ClassID:    classID,
		X:          r.X,
		Y:          r.Y,
		Width:      r.Width,
		Height:     r.Height,
		Confidence: 1.0,
	}, true
}

// UnmarshalJSON defaults a missing confidence to 1. An explicit 0 is kept.
func (a *Annotation) UnmarshalJSON(data []byte) error {
	type plain Annotation
	p := plain{Confidence: 1.0}
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*a = Annotation(p)
	return nil
}

// ValidConfidence reports whether c lies in [0, 1]. NaN does not.
func ValidConfidence(c float64) bool {
	return c >= 0 && c <= 1
}

func (a Annotation) Rect() geometry.Rect {
	return geometry.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// WithRect returns a copy positioned at r.
func (a Annotation) WithRect(r geometry.Rect) Annotation {
	a.X, a.Y, a.Width, a.Height = r.X, r.Y, r.Width, r.Height
	return a
}

// Sanitize fills defaults on annotations that arrive from outside the engine
// (stores, clipboard, pre-annotation output). ok is false for annotations that
// cannot be committed.
func Sanitize(a Annotation) (Annotation, bool) {
	r := geometry.Normalize(a.Rect())
	if !geometry.MeetsMinSize(r) {
		return Annotation{}, false
	}
	a = a.WithRect(r)
	if a.ID == "" {
		a.ID = NewID()
	}
	if !ValidConfidence(a.Confidence) {
		a.Confidence = 1.0
	}
	return a, true
}

// Clone copies a slice of annotations so snapshots never alias live state.
func Clone(anns []Annotation) []Annotation {
	if anns == nil {
		return []Annotation{}
	}
	return slices.Clone(anns)
}

// Index returns the position of id in anns, or -1.
func Index(anns []Annotation, id string) int {
	return slices.IndexFunc(anns, func(a Annotation) bool { return a.ID == id })
}

// Find returns the annotation with id.
func Find(anns []Annotation, id string) (Annotation, bool) {
	if i := Index(anns, id); i >= 0 {
		return anns[i], true
	}
	return Annotation{}, false
}

// IDs lists ids in z-order.
func IDs(anns []Annotation) []string {
	ids := make([]string, len(anns))
	for i, a := range anns {
		ids[i] = a.ID
	}
	return ids
}

// Remove returns a copy of anns without the given ids.
func Remove(anns []Annotation, ids ...string) []Annotation {
	drop := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		drop[id] = struct{}{}
	}
	out := make([]Annotation, 0, len(anns))
	for _, a := range anns {
		if _, ok := drop[a.ID]; !ok {
			out = append(out, a)
		}
	}
	return out
}

// Replace returns a copy of anns where every annotation whose id appears in
// updates is swapped for the updated value. Order is preserved.
func Replace(anns []Annotation, updates ...Annotation) []Annotation {
	byID := make(map[string]Annotation, len(updates))
	for _, u := range updates {
		byID[u.ID] = u
	}
	out := make([]Annotation, len(anns))
	for i, a := range anns {
		if u, ok := byID[a.ID]; ok {
			out[i] = u
		} else {
			out[i] = a
		}
	}
	return out
}

// Rects returns the rect of every annotation whose id is in ids, in z-order.
func Rects(anns []Annotation, ids []string) []geometry.Rect {
	want := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		want[id] = struct{}{}
	}
	var out []geometry.Rect
	for _, a := range anns {
		if _, ok := want[a.ID]; ok {
			out = append(out, a.Rect())
		}
	}
	return out
}

// Equal reports whether two sets hold the same annotations in the same order.
func Equal(a, b []Annotation) bool {
	return slices.Equal(a, b)
}
