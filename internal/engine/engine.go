// Package engine is the canvas engine: it owns the annotation set of the
// current image, turns pointer and key input into geometry edits, and pushes
// every committed edit into history and persistence.
//
// The engine is not safe for concurrent use. It is driven by a single UI loop.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"slices"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
	"boxmark/internal/history"
	"boxmark/internal/selection"
	"boxmark/internal/settings"
	"boxmark/internal/viewport"
)

// Saver is the persistence side of the engine.
type Saver interface {
	ScheduleSave(imageID string, anns []annotation.Annotation) error
	Fire(imageID string)
	SetActive(imageID string)
	Load(ctx context.Context, imageID string) ([]annotation.Annotation, error)
}

// Observer is told about every committed edit and every selection change.
type Observer interface {
	AnnotationsChanged(imageID string, anns []annotation.Annotation)
	SelectionChanged(imageID string, ids []string)
}

// ObserverFuncs adapts plain functions to Observer. Nil fields are skipped.
type ObserverFuncs struct {
	OnAnnotations func(imageID string, anns []annotation.Annotation)
	OnSelection   func(imageID string, ids []string)
}

func (o ObserverFuncs) AnnotationsChanged(imageID string, anns []annotation.Annotation) {
	if o.OnAnnotations != nil {
		o.OnAnnotations(imageID, anns)
	}
}

func (o ObserverFuncs) SelectionChanged(imageID string, ids []string) {
	if o.OnSelection != nil {
		o.OnSelection(imageID, ids)
	}
}

type Config struct {
	Editor          settings.Editor
	HistoryCapacity int
	// HandleRadius is the hit radius of transformer handles in screen pixels.
	HandleRadius float64
	// PasteOffset shifts pasted annotations, in image pixels.
	PasteOffset float64
	// SelectionPadding surrounds the box in ZoomToSelection, in screen pixels.
	SelectionPadding float64
}

func (c *Config) loadDefaults() {
	if c.HistoryCapacity < 1 {
		c.HistoryCapacity = history.DefaultCapacity
	}
	if c.HandleRadius <= 0 {
		c.HandleRadius = 6
	}
	if c.PasteOffset == 0 {
		c.PasteOffset = 10
	}
	if c.SelectionPadding <= 0 {
		c.SelectionPadding = 50
	}
}

type Engine struct {
	cfg     Config
	classes *annotation.Registry
	saver   Saver
	logger  *slog.Logger
	view    *viewport.Manager

	imageID     string
	anns        []annotation.Annotation
	hist        *history.Stack[[]annotation.Annotation]
	sel         selection.Selection
	tr          selection.Transformer
	activeClass int
	hidden      bool
	clipboard   []annotation.Annotation
	observers   []Observer

	g gesture
}

func New(cfg Config, classes *annotation.Registry, saver Saver, logger *slog.Logger) *Engine {
	cfg.loadDefaults()
	if classes == nil {
		classes = annotation.NewRegistry(annotation.DefaultClasses())
	}
	e := &Engine{
		cfg:     cfg,
		classes: classes,
		saver:   saver,
		logger:  logger.With("system", "engine"),
		view:    viewport.New(),
		hist:    history.New(cfg.HistoryCapacity, annotation.Clone),
	}
	if c, ok := classes.At(0); ok {
		e.activeClass = c.ID
	}
	return e
}

// Subscribe registers o for change notifications.
func (e *Engine) Subscribe(o Observer) {
	e.observers = append(e.observers, o)
}

func (e *Engine) View() *viewport.Manager { return e.view }

func (e *Engine) Classes() *annotation.Registry { return e.classes }

func (e *Engine) Editor() settings.Editor { return e.cfg.Editor }

// SetEditor swaps the editor settings, for example after a toggle key.
func (e *Engine) SetEditor(ed settings.Editor) {
	e.cfg.Editor = ed
}

func (e *Engine) ImageID() string { return e.imageID }

func (e *Engine) Mode() Mode { return e.g.mode }

// Annotations returns the committed set of the current image.
func (e *Engine) Annotations() []annotation.Annotation {
	return annotation.Clone(e.anns)
}

// Display returns what should be drawn: the committed set with any live
// drag or resize applied, or nothing while annotations are hidden.
func (e *Engine) Display() []annotation.Annotation {
	if e.hidden {
		return nil
	}
	if e.g.live != nil {
		return annotation.Clone(e.g.live)
	}
	return annotation.Clone(e.anns)
}

func (e *Engine) Hidden() bool { return e.hidden }

// Draft returns the rectangle being drawn.
func (e *Engine) Draft() (geometry.Rect, bool) {
	if e.g.mode != Drawing {
		return geometry.Rect{}, false
	}
	return e.g.draft, true
}

// Marquee returns the marquee rectangle in image space.
func (e *Engine) Marquee() (geometry.Rect, bool) {
	if e.g.mode != MarqueeSelecting {
		return geometry.Rect{}, false
	}
	return e.g.marquee, true
}

func (e *Engine) Selection() []string { return e.sel.IDs() }

func (e *Engine) Primary() (string, bool) { return e.sel.Primary() }

// Transformer returns the handle box bound to the selection. It is hidden
// while annotations are hidden.
func (e *Engine) Transformer() (geometry.Rect, []selection.HandlePoint, bool) {
	if e.hidden || !e.tr.Visible() {
		return geometry.Rect{}, nil, false
	}
	if e.g.live != nil {
		var t selection.Transformer
		t.Bind(e.tr.Nodes(), e.g.live)
		return t.Box(), t.Handles(), true
	}
	return e.tr.Box(), e.tr.Handles(), true
}

func (e *Engine) ActiveClass() int { return e.activeClass }

func (e *Engine) SetActiveClass(id int) {
	e.activeClass = id
}

// CycleClass moves the active class by delta positions in the registry.
func (e *Engine) CycleClass(delta int) {
	n := e.classes.Len()
	if n == 0 {
		return
	}
	idx := 0
	for i, c := range e.classes.Classes() {
		if c.ID == e.activeClass {
			idx = i
			break
		}
	}
	idx = ((idx+delta)%n + n) % n
	if c, ok := e.classes.At(idx); ok {
		e.activeClass = c.ID
	}
}

func (e *Engine) CanUndo() bool { return e.hist.CanUndo() }

func (e *Engine) CanRedo() bool { return e.hist.CanRedo() }

// SetViewportSize records the drawing surface size.
func (e *Engine) SetViewportSize(s viewport.Size) {
	e.view.SetViewport(s)
}

// ChangeImage makes imageID current. Drawing, marquee and panning end
// immediately. The outgoing image's pending save is sent now; its status is
// no longer reported. The incoming set comes from the cache or the store and
// becomes the base of a fresh history.
func (e *Engine) ChangeImage(ctx context.Context, imageID string, size viewport.Size) error {
	e.cancelGesture()

	outgoing := e.imageID
	if outgoing != "" && outgoing != imageID {
		e.saver.Fire(outgoing)
	}
	e.saver.SetActive(imageID)

	anns, err := e.saver.Load(ctx, imageID)
	if err != nil {
		anns = nil
		err = fmt.Errorf("change image %s: %w", imageID, err)
	}

	e.imageID = imageID
	e.anns = annotation.Clone(anns)
	e.hist.Reset(e.anns)
	e.sel.Clear()
	e.tr.Bind(nil, e.anns)

	if outgoing == "" {
		e.view.FitToViewport(size, e.view.ViewportSize())
	} else {
		e.view.ImageChanged(size, viewport.Policy{
			ResetOnImageChange: e.cfg.Editor.ResetTransformOnImageChange,
			LockAcrossImages:   e.cfg.Editor.LockTransformAcrossImages,
		})
	}

	e.logger.Info("image changed", "from", outgoing, "to", imageID, "annotations", len(e.anns))
	e.notifyAnnotations()
	e.notifySelection()
	return err
}

// ZoomToSelection fits the transformer box into the viewport.
func (e *Engine) ZoomToSelection() {
	if !e.tr.Visible() {
		return
	}
	e.view.ZoomToSelection(e.tr.Box(), e.cfg.SelectionPadding, viewport.SelectionMaxScale)
}

// ToggleAnnotations hides or shows every annotation. Hidden annotations
// cannot be hit or selected, so hiding clears the selection.
func (e *Engine) ToggleAnnotations() {
	e.cancelGesture()
	e.hidden = !e.hidden
	if e.hidden && e.sel.Clear() {
		e.selectionChanged()
	}
}

// commit makes anns the current set, records it in history and schedules a
// save.
func (e *Engine) commit(anns []annotation.Annotation, reason string) {
	e.anns = annotation.Clone(anns)
	e.hist.Commit(e.anns)
	e.logger.Debug("history commit", "reason", reason, "cursor", e.hist.Cursor(), "length", e.hist.Len())
	e.persist()
	e.afterChange()
}

// replace makes anns current without a history entry.
func (e *Engine) replace(anns []annotation.Annotation) {
	e.anns = annotation.Clone(anns)
	e.persist()
	e.afterChange()
}

func (e *Engine) persist() {
	if e.imageID == "" || e.saver == nil {
		return
	}
	if err := e.saver.ScheduleSave(e.imageID, e.anns); err != nil {
		e.logger.Error("schedule save failed", "image", e.imageID, "error", err)
	}
}

func (e *Engine) afterChange() {
	pruned := e.sel.Prune(e.anns)
	e.tr.Bind(e.sel.IDs(), e.anns)
	e.notifyAnnotations()
	if pruned {
		e.notifySelection()
	}
}

func (e *Engine) selectionChanged() {
	e.tr.Bind(e.sel.IDs(), e.anns)
	e.notifySelection()
}

func (e *Engine) notifyAnnotations() {
	for _, o := range e.observers {
		o.AnnotationsChanged(e.imageID, annotation.Clone(e.anns))
	}
}

func (e *Engine) notifySelection() {
	ids := e.sel.IDs()
	for _, o := range e.observers {
		o.SelectionChanged(e.imageID, slices.Clone(ids))
	}
}
