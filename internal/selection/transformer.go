package selection

import (
	"math"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
)

// Handle identifies one of the eight resize handles.
type Handle int

const (
	HandleNone Handle = iota
	TopLeft
	Top
	TopRight
	Right
	BottomRight
	Bottom
	BottomLeft
	Left
)

var handleNames = map[Handle]string{
	HandleNone:  "none",
	TopLeft:     "top-left",
	Top:         "top",
	TopRight:    "top-right",
	Right:       "right",
	BottomRight: "bottom-right",
	Bottom:      "bottom",
	BottomLeft:  "bottom-left",
	Left:        "left",
}

func (h Handle) String() string {
	if n, ok := handleNames[h]; ok {
		return n
	}
	return "unknown"
}

func (h Handle) movesLeft() bool   { return h == TopLeft || h == Left || h == BottomLeft }
func (h Handle) movesRight() bool  { return h == TopRight || h == Right || h == BottomRight }
func (h Handle) movesTop() bool    { return h == TopLeft || h == Top || h == TopRight }
func (h Handle) movesBottom() bool { return h == BottomLeft || h == Bottom || h == BottomRight }

func (h Handle) corner() bool {
	return h == TopLeft || h == TopRight || h == BottomRight || h == BottomLeft
}

// Apply returns orig resized by dragging handle h to p. With ratio > 0 the
// width/height ratio is held, measured from the fixed corner. The result may
// be inverted if the handle crossed the anchor.
func (h Handle) Apply(orig geometry.Rect, p geometry.Point, ratio float64) geometry.Rect {
	orig = geometry.Normalize(orig)
	x0, y0 := orig.X, orig.Y
	x1, y1 := orig.X+orig.Width, orig.Y+orig.Height

	ax, ay := x0, y0
	if h.movesLeft() {
		ax = x1
	}
	if h.movesTop() {
		ay = y1
	}

	mx, my := x1, y1
	if h.movesLeft() {
		mx = x0
	}
	if h.movesTop() {
		my = y0
	}
	if h.movesLeft() || h.movesRight() {
		mx = p.X
	}
	if h.movesTop() || h.movesBottom() {
		my = p.Y
	}

	dw, dh := mx-ax, my-ay
	if ratio > 0 {
		switch {
		case h.corner():
			dw, dh = geometry.ApplyAspectLock(dw, dh, ratio)
		case h == Left || h == Right:
			dh = math.Copysign(math.Abs(dw)/ratio, dh)
		case h == Top || h == Bottom:
			dw = math.Copysign(math.Abs(dh)*ratio, dw)
		}
	}
	return geometry.Rect{X: ax, Y: ay, Width: dw, Height: dh}
}

// HandlePoint is a handle and its image-space position.
type HandlePoint struct {
	Handle Handle
	Point  geometry.Point
}

// Transformer is bound to the current selection. It shows one bounding box
// around every bound annotation and hides itself when nothing is bound.
type Transformer struct {
	nodes []string
	box   geometry.Rect
}

// Bind re-binds to ids, skipping ids that no longer exist in anns.
func (t *Transformer) Bind(ids []string, anns []annotation.Annotation) {
	t.nodes = t.nodes[:0]
	var rects []geometry.Rect
	for _, id := range ids {
		if a, ok := annotation.Find(anns, id); ok {
			t.nodes = append(t.nodes, id)
			rects = append(rects, a.Rect())
		}
	}
	t.box, _ = geometry.Bounds(rects...)
}

func (t *Transformer) Nodes() []string {
	return append([]string(nil), t.nodes...)
}

func (t *Transformer) Visible() bool { return len(t.nodes) > 0 }

// Box is the bounding box of every bound annotation.
func (t *Transformer) Box() geometry.Rect { return t.box }

// Handles lists the eight handle positions, corners first.
func (t *Transformer) Handles() []HandlePoint {
	if !t.Visible() {
		return nil
	}
	b := t.box
	cx, cy := b.X+b.Width/2, b.Y+b.Height/2
	x1, y1 := b.X+b.Width, b.Y+b.Height
	return []HandlePoint{
		{TopLeft, geometry.Pt(b.X, b.Y)},
		{TopRight, geometry.Pt(x1, b.Y)},
		{BottomRight, geometry.Pt(x1, y1)},
		{BottomLeft, geometry.Pt(b.X, y1)},
		{Top, geometry.Pt(cx, b.Y)},
		{Right, geometry.Pt(x1, cy)},
		{Bottom, geometry.Pt(cx, y1)},
		{Left, geometry.Pt(b.X, cy)},
	}
}

// HitHandle returns the handle within radius (image pixels) of p.
func (t *Transformer) HitHandle(p geometry.Point, radius float64) Handle {
	if !p.Valid() {
		return HandleNone
	}
	for _, hp := range t.Handles() {
		if math.Abs(hp.Point.X-p.X) <= radius && math.Abs(hp.Point.Y-p.Y) <= radius {
			return hp.Handle
		}
	}
	return HandleNone
}
