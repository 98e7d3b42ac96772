package engine

import (
	"slices"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
	"boxmark/internal/selection"
)

// gesture is the transient state of one press-move-release sequence.
type gesture struct {
	mode Mode

	// last is the previous screen position while panning.
	last geometry.Point
	// start is the image-space press position, snapped when drawing.
	start geometry.Point

	draft    geometry.Rect
	marquee  geometry.Rect
	additive bool
	// base is the selection at press time, kept by an additive marquee.
	base []string

	// ids are the annotations being dragged or resized, orig their rects at
	// press time.
	ids  []string
	orig map[string]geometry.Rect
	// live is the working copy shown while dragging or resizing.
	live  []annotation.Annotation
	moved bool
	// collapse is selected alone on release when a group member was
	// clicked without moving.
	collapse string

	handle selection.Handle
	box    geometry.Rect
}

func (e *Engine) cancelGesture() {
	e.g = gesture{}
}

// PointerDown starts a gesture. Middle button or shift+left pans. Left on a
// transformer handle resizes, on an annotation drags, and on empty space
// draws when nothing is selected or starts a marquee otherwise.
func (e *Engine) PointerDown(ev PointerEvent) {
	if e.g.mode != Idle || e.imageID == "" || !e.view.Ready() || !ev.Screen.Valid() {
		return
	}

	if ev.Button == ButtonMiddle || (ev.Button == ButtonLeft && ev.Mods.Shift) {
		e.g = gesture{mode: Panning, last: ev.Screen}
		return
	}
	if ev.Button != ButtonLeft {
		return
	}

	p := e.view.ScreenToImage(ev.Screen)

	if !e.hidden && e.tr.Visible() {
		radius := e.view.ScreenDeltaToImage(e.cfg.HandleRadius)
		if h := e.tr.HitHandle(p, radius); h != selection.HandleNone {
			e.beginResize(h, p)
			return
		}
	}

	var (
		hit string
		ok  bool
	)
	if !e.hidden {
		hit, ok = selection.HitTest(e.anns, p)
	}
	if ok {
		e.pressAnnotation(hit, p, ev.Mods)
		return
	}

	if e.hidden {
		return
	}
	if ev.Mods.Ctrl || !e.sel.Empty() {
		e.g = gesture{
			mode:     MarqueeSelecting,
			start:    p,
			marquee:  geometry.RectFromPoints(p, p),
			additive: ev.Mods.Ctrl,
			base:     e.sel.IDs(),
		}
		return
	}

	start := e.snapPoint(p)
	e.g = gesture{mode: Drawing, start: start, draft: geometry.RectFromPoints(start, start)}
}

func (e *Engine) pressAnnotation(id string, p geometry.Point, mods Modifiers) {
	collapse := ""
	switch {
	case mods.Ctrl:
		e.sel.Toggle(id)
		e.selectionChanged()
		if !e.sel.Contains(id) {
			return
		}
	case e.sel.Contains(id):
		if e.sel.Len() > 1 {
			collapse = id
		}
	default:
		e.sel.SelectSingle(id)
		e.selectionChanged()
	}

	ids := e.sel.IDs()
	orig := make(map[string]geometry.Rect, len(ids))
	for _, a := range e.anns {
		if e.sel.Contains(a.ID) {
			orig[a.ID] = a.Rect()
		}
	}
	e.g = gesture{
		mode:     DraggingAnnotation,
		start:    p,
		ids:      ids,
		orig:     orig,
		live:     annotation.Clone(e.anns),
		collapse: collapse,
	}
}

func (e *Engine) beginResize(h selection.Handle, p geometry.Point) {
	ids := e.tr.Nodes()
	orig := make(map[string]geometry.Rect, len(ids))
	for _, id := range ids {
		if a, ok := annotation.Find(e.anns, id); ok {
			orig[id] = a.Rect()
		}
	}
	e.g = gesture{
		mode:   ResizingAnnotation,
		start:  p,
		ids:    ids,
		orig:   orig,
		live:   annotation.Clone(e.anns),
		handle: h,
		box:    e.tr.Box(),
	}
}

func (e *Engine) PointerMove(ev PointerEvent) {
	if !ev.Screen.Valid() {
		return
	}
	switch e.g.mode {
	case Panning:
		e.view.Pan(ev.Screen.Sub(e.g.last))
		e.g.last = ev.Screen
	case Drawing:
		p := e.snapPoint(e.view.ScreenToImage(ev.Screen))
		e.g.draft = geometry.RectFromPoints(e.g.start, p)
	case MarqueeSelecting:
		e.g.marquee = geometry.RectFromPoints(e.g.start, e.view.ScreenToImage(ev.Screen))
		e.applyMarquee(e.g)
	case DraggingAnnotation:
		e.moveDrag(e.view.ScreenToImage(ev.Screen))
	case ResizingAnnotation:
		e.moveResize(e.view.ScreenToImage(ev.Screen))
	}
}

func (e *Engine) moveDrag(p geometry.Point) {
	delta := p.Sub(e.g.start)
	if delta == (geometry.Point{}) && !e.g.moved {
		return
	}
	updates := make([]annotation.Annotation, 0, len(e.g.ids))
	for _, id := range e.g.ids {
		a, ok := annotation.Find(e.g.live, id)
		if !ok {
			continue
		}
		r := e.g.orig[id].Translate(delta)
		r.X, r.Y = e.snap(r.X), e.snap(r.Y)
		updates = append(updates, a.WithRect(r))
	}
	e.g.live = annotation.Replace(e.g.live, updates...)
	e.g.moved = true
}

// moveResize maps every member from the press-time box onto the resized box.
// A step that would push any member below the minimum size is ignored, so
// the last valid geometry stands.
func (e *Engine) moveResize(p geometry.Point) {
	p = e.snapPoint(p)
	ratio := 0.0
	if e.cfg.Editor.LockAspectRatio && e.g.box.Height > 0 {
		ratio = e.g.box.Width / e.g.box.Height
	}
	next := geometry.Normalize(e.g.handle.Apply(e.g.box, p, ratio))
	if !geometry.MeetsMinSize(next) {
		return
	}

	updates := make([]annotation.Annotation, 0, len(e.g.ids))
	for _, id := range e.g.ids {
		a, ok := annotation.Find(e.g.live, id)
		if !ok {
			continue
		}
		r := geometry.MapRect(e.g.orig[id], e.g.box, next)
		if !geometry.MeetsMinSize(r) {
			return
		}
		updates = append(updates, a.WithRect(r))
	}
	e.g.live = annotation.Replace(e.g.live, updates...)
	e.g.moved = true
}

// PointerUp ends the gesture and commits its result, if any.
func (e *Engine) PointerUp(ev PointerEvent) {
	g := e.g
	e.cancelGesture()

	switch g.mode {
	case Drawing:
		a, ok := annotation.New(e.activeClass, g.draft)
		if !ok {
			return
		}
		e.commit(append(annotation.Clone(e.anns), a), "draw")
	case DraggingAnnotation:
		if !g.moved {
			if g.collapse != "" && e.sel.SelectSingle(g.collapse) {
				e.selectionChanged()
			}
			return
		}
		e.commit(g.live, "drag")
	case ResizingAnnotation:
		if !g.moved {
			return
		}
		e.commit(g.live, "resize")
	case MarqueeSelecting:
		e.applyMarquee(g)
	}
}

// applyMarquee selects what the marquee touches, on top of the press-time
// selection when additive. A marquee with no extent selects nothing.
func (e *Engine) applyMarquee(g gesture) {
	box := geometry.Normalize(g.marquee)
	var ids []string
	if box.Width > 0 || box.Height > 0 {
		ids = selection.Marquee(e.anns, box)
	}
	if g.additive {
		ids = append(slices.Clone(g.base), ids...)
	}
	if e.sel.Set(ids) {
		e.selectionChanged()
	}
}

// Wheel zooms about the pointer. Negative deltaY zooms in.
func (e *Engine) Wheel(deltaY float64, pivot geometry.Point) {
	e.view.Wheel(deltaY, pivot)
}

func (e *Engine) snap(v float64) float64 {
	if !e.cfg.Editor.SnapToGrid {
		return v
	}
	return geometry.Snap(v, e.cfg.Editor.GridSize)
}

func (e *Engine) snapPoint(p geometry.Point) geometry.Point {
	if !e.cfg.Editor.SnapToGrid {
		return p
	}
	return geometry.SnapPoint(p, e.cfg.Editor.GridSize)
}
