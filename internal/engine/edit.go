package engine

import (
	"math"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
)

// Undo restores the previous history entry. The restored set is saved but
// not recorded as a new entry.
func (e *Engine) Undo() bool {
	if e.g.mode != Idle {
		return false
	}
	snapshot, ok := e.hist.Undo()
	if !ok {
		return false
	}
	e.replace(snapshot)
	return true
}

func (e *Engine) Redo() bool {
	if e.g.mode != Idle {
		return false
	}
	snapshot, ok := e.hist.Redo()
	if !ok {
		return false
	}
	e.replace(snapshot)
	return true
}

// Nudge moves the selection by dx, dy steps of pixelMoveStep, or
// shiftPixelMoveStep with shift held. Positions never go negative.
func (e *Engine) Nudge(dx, dy int, shift bool) bool {
	if e.g.mode != Idle || e.sel.Empty() {
		return false
	}
	step := e.cfg.Editor.PixelMoveStep
	if shift {
		step = e.cfg.Editor.ShiftPixelMoveStep
	}

	updates := make([]annotation.Annotation, 0, e.sel.Len())
	for _, a := range e.anns {
		if !e.sel.Contains(a.ID) {
			continue
		}
		r := a.Rect()
		r.X = math.Max(0, e.snap(r.X+float64(dx)*step))
		r.Y = math.Max(0, e.snap(r.Y+float64(dy)*step))
		if r != a.Rect() {
			updates = append(updates, a.WithRect(r))
		}
	}
	if len(updates) == 0 {
		return false
	}
	e.commit(annotation.Replace(e.anns, updates...), "nudge")
	return true
}

// Delete removes the selected annotations.
func (e *Engine) Delete() bool {
	if e.g.mode != Idle || e.sel.Empty() {
		return false
	}
	e.commit(annotation.Remove(e.anns, e.sel.IDs()...), "delete")
	return true
}

// Copy stores the selected annotations on the engine clipboard and returns
// them in z-order.
func (e *Engine) Copy() []annotation.Annotation {
	if e.sel.Empty() {
		return nil
	}
	var copied []annotation.Annotation
	for _, a := range e.anns {
		if e.sel.Contains(a.ID) {
			copied = append(copied, a)
		}
	}
	e.clipboard = copied
	return annotation.Clone(copied)
}

// Paste adds the engine clipboard as new annotations offset by PasteOffset
// and selects them.
func (e *Engine) Paste() bool {
	return e.paste(e.clipboard, e.cfg.PasteOffset, "paste")
}

// PasteFrom adds externally supplied annotations, for example decoded from
// the system clipboard, the same way Paste does.
func (e *Engine) PasteFrom(anns []annotation.Annotation) bool {
	e.clipboard = annotation.Clone(anns)
	return e.Paste()
}

// Duplicate copies and pastes the selection in one step.
func (e *Engine) Duplicate() bool {
	if e.Copy() == nil {
		return false
	}
	return e.Paste()
}

func (e *Engine) paste(src []annotation.Annotation, offset float64, reason string) bool {
	if e.g.mode != Idle || e.imageID == "" || len(src) == 0 {
		return false
	}
	added := make([]annotation.Annotation, 0, len(src))
	ids := make([]string, 0, len(src))
	for _, a := range src {
		r := a.Rect().Translate(geometry.Pt(offset, offset))
		r.X, r.Y = e.snap(r.X), e.snap(r.Y)
		a = a.WithRect(r)
		a.ID = annotation.NewID()
		s, ok := annotation.Sanitize(a)
		if !ok {
			continue
		}
		added = append(added, s)
		ids = append(ids, s.ID)
	}
	if len(added) == 0 {
		return false
	}
	e.commit(append(annotation.Clone(e.anns), added...), reason)
	if !e.hidden && e.sel.Set(ids) {
		e.selectionChanged()
	}
	return true
}

// ChangeClass assigns classID to every selected annotation.
func (e *Engine) ChangeClass(classID int) bool {
	if e.g.mode != Idle || e.sel.Empty() {
		return false
	}
	var updates []annotation.Annotation
	for _, a := range e.anns {
		if e.sel.Contains(a.ID) && a.ClassID != classID {
			a.ClassID = classID
			updates = append(updates, a)
		}
	}
	if len(updates) == 0 {
		return false
	}
	e.commit(annotation.Replace(e.anns, updates...), "class")
	return true
}

// Import appends externally produced annotations, such as pre-annotation
// output, as one ordinary edit. Entries that cannot be committed are dropped
// and ids that collide with existing ones are replaced. It returns how many
// were added.
func (e *Engine) Import(anns []annotation.Annotation) (int, error) {
	if e.imageID == "" {
		return 0, ErrNoImage
	}
	if e.g.mode != Idle {
		return 0, ErrBusy
	}
	taken := make(map[string]struct{}, len(e.anns)+len(anns))
	for _, a := range e.anns {
		taken[a.ID] = struct{}{}
	}
	var added []annotation.Annotation
	for _, a := range anns {
		s, ok := annotation.Sanitize(a)
		if !ok {
			continue
		}
		if _, dup := taken[s.ID]; dup {
			s.ID = annotation.NewID()
		}
		taken[s.ID] = struct{}{}
		added = append(added, s)
	}
	if len(added) == 0 {
		return 0, nil
	}
	e.commit(append(annotation.Clone(e.anns), added...), "import")
	e.logger.Info("annotations imported", "image", e.imageID, "count", len(added), "dropped", len(anns)-len(added))
	return len(added), nil
}

func (e *Engine) SelectAll() {
	if e.hidden {
		return
	}
	if e.sel.Set(annotation.IDs(e.anns)) {
		e.selectionChanged()
	}
}

func (e *Engine) ClearSelection() {
	if e.sel.Clear() {
		e.selectionChanged()
	}
}

// SelectNext selects the annotation delta places after the primary in
// z-order, wrapping around.
func (e *Engine) SelectNext(delta int) {
	n := len(e.anns)
	if n == 0 || e.hidden {
		return
	}
	idx := -1
	if p, ok := e.sel.Primary(); ok {
		idx = annotation.Index(e.anns, p)
	}
	if idx < 0 && delta < 0 {
		idx = 0
	}
	idx = ((idx+delta)%n + n) % n
	if e.sel.SelectSingle(e.anns[idx].ID) {
		e.selectionChanged()
	}
}
