// Package viewport maps between screen space and image space.
//
// Annotation geometry always lives in unrotated image space. Scale and
// offset define the screen mapping; rotation and flip only describe how the
// background image is drawn.
package viewport

import (
	"math"

	"boxmark/internal/geometry"
)

const (
	MinScale = 0.1
	MaxScale = 5.0

	// WheelStep is the zoom factor applied per wheel notch.
	WheelStep = 1.1
	// SelectionMaxScale caps ZoomToSelection.
	SelectionMaxScale = 3.0
)

// Size is a width/height pair in pixels.
type Size struct {
	Width  float64
	Height float64
}

func (s Size) Empty() bool {
	return s.Width <= 0 || s.Height <= 0 || math.IsNaN(s.Width) || math.IsNaN(s.Height)
}

type Flip struct {
	Horizontal bool
	Vertical   bool
}

// State is the full viewport transform.
type State struct {
	Scale    float64
	Offset   geometry.Point
	Rotation int
	Flip     Flip
}

type Direction int

const (
	Clockwise Direction = iota
	CounterClockwise
)

type Axis int

const (
	Horizontal Axis = iota
	Vertical
)

// Policy decides what survives an image change. Lock wins when both are set.
type Policy struct {
	ResetOnImageChange bool
	LockAcrossImages   bool
}

// Manager owns the viewport State. All mutation goes through its methods.
type Manager struct {
	state    State
	image    Size
	viewport Size
}

func New() *Manager {
	return &Manager{state: State{Scale: 1}}
}

func (m *Manager) State() State { return m.state }

func (m *Manager) Scale() float64 { return m.state.Scale }

func (m *Manager) ImageSize() Size { return m.image }

func (m *Manager) ViewportSize() Size { return m.viewport }

// Ready reports whether both an image and a non-empty viewport are present.
func (m *Manager) Ready() bool {
	return !m.image.Empty() && !m.viewport.Empty()
}

// SetViewport records the drawing surface size. The current offset is kept.
func (m *Manager) SetViewport(s Size) {
	m.viewport = s
}

// SetImage records the image size without touching the transform.
func (m *Manager) SetImage(s Size) {
	m.image = s
}

// Restore replaces the transform wholesale, clamping the scale.
func (m *Manager) Restore(s State) {
	s.Scale = clampScale(s.Scale)
	s.Rotation = normalizeRotation(s.Rotation)
	m.state = s
}

func (m *Manager) ScreenToImage(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: (p.X - m.state.Offset.X) / m.state.Scale,
		Y: (p.Y - m.state.Offset.Y) / m.state.Scale,
	}
}

func (m *Manager) ImageToScreen(p geometry.Point) geometry.Point {
	return geometry.Point{
		X: p.X*m.state.Scale + m.state.Offset.X,
		Y: p.Y*m.state.Scale + m.state.Offset.Y,
	}
}

// RectToScreen maps an image-space rect to screen space.
func (m *Manager) RectToScreen(r geometry.Rect) geometry.Rect {
	p := m.ImageToScreen(r.MinPoint())
	return geometry.Rect{X: p.X, Y: p.Y, Width: r.Width * m.state.Scale, Height: r.Height * m.state.Scale}
}

// ScreenDeltaToImage converts a screen-space distance into image pixels.
func (m *Manager) ScreenDeltaToImage(d float64) float64 {
	return d / m.state.Scale
}

// Zoom rescales by factor about pivot (screen space), keeping the image
// point under the pivot fixed.
func (m *Manager) Zoom(factor float64, pivot geometry.Point) {
	if !m.Ready() || factor <= 0 || math.IsNaN(factor) || !pivot.Valid() {
		return
	}
	anchor := m.ScreenToImage(pivot)
	m.state.Scale = clampScale(m.state.Scale * factor)
	m.state.Offset = geometry.Point{
		X: pivot.X - anchor.X*m.state.Scale,
		Y: pivot.Y - anchor.Y*m.state.Scale,
	}
}

// Wheel zooms one notch about pivot: in for negative deltaY, out otherwise.
func (m *Manager) Wheel(deltaY float64, pivot geometry.Point) {
	if deltaY < 0 {
		m.Zoom(WheelStep, pivot)
	} else if deltaY > 0 {
		m.Zoom(1/WheelStep, pivot)
	}
}

// ZoomCentered zooms about the viewport centre.
func (m *Manager) ZoomCentered(factor float64) {
	m.Zoom(factor, geometry.Point{X: m.viewport.Width / 2, Y: m.viewport.Height / 2})
}

func (m *Manager) Pan(delta geometry.Point) {
	if !m.Ready() || !delta.Valid() {
		return
	}
	m.state.Offset = m.state.Offset.Add(delta)
}

// FitToViewport resets the scale to 1 and centres the image.
func (m *Manager) FitToViewport(image, viewport Size) {
	m.image, m.viewport = image, viewport
	if !m.Ready() {
		return
	}
	m.state.Scale = 1
	m.state.Offset = geometry.Point{
		X: (viewport.Width - image.Width) / 2,
		Y: (viewport.Height - image.Height) / 2,
	}
}

// Reset fits the current image and clears rotation and flip.
func (m *Manager) Reset() {
	m.FitToViewport(m.image, m.viewport)
	if m.Ready() {
		m.state.Rotation = 0
		m.state.Flip = Flip{}
	}
}

// ZoomToSelection fits box plus padding (screen pixels on every side) into
// the viewport, never above maxScale, centred on the box.
func (m *Manager) ZoomToSelection(box geometry.Rect, padding, maxScale float64) {
	box = geometry.Normalize(box)
	if !m.Ready() || box.Empty() || !box.Valid() {
		return
	}
	if maxScale <= 0 {
		maxScale = SelectionMaxScale
	}
	availW := m.viewport.Width - 2*padding
	availH := m.viewport.Height - 2*padding
	if availW <= 0 || availH <= 0 {
		availW, availH = m.viewport.Width, m.viewport.Height
	}
	scale := math.Min(availW/box.Width, availH/box.Height)
	scale = clampScale(math.Min(scale, maxScale))

	c := box.Center()
	m.state.Scale = scale
	m.state.Offset = geometry.Point{
		X: m.viewport.Width/2 - c.X*scale,
		Y: m.viewport.Height/2 - c.Y*scale,
	}
}

// CenterOn pans so the image point p sits at the viewport centre.
func (m *Manager) CenterOn(p geometry.Point) {
	if !m.Ready() || !p.Valid() {
		return
	}
	m.state.Offset = geometry.Point{
		X: m.viewport.Width/2 - p.X*m.state.Scale,
		Y: m.viewport.Height/2 - p.Y*m.state.Scale,
	}
}

func (m *Manager) Rotate(dir Direction) {
	if !m.Ready() {
		return
	}
	if dir == CounterClockwise {
		m.state.Rotation = normalizeRotation(m.state.Rotation - 90)
		return
	}
	m.state.Rotation = normalizeRotation(m.state.Rotation + 90)
}

func (m *Manager) Flip(axis Axis) {
	if !m.Ready() {
		return
	}
	switch axis {
	case Horizontal:
		m.state.Flip.Horizontal = !m.state.Flip.Horizontal
	case Vertical:
		m.state.Flip.Vertical = !m.state.Flip.Vertical
	}
}

// ImageChanged applies the image-change policy for a newly loaded image.
// Lock keeps the whole transform. Reset fits and clears orientation.
// Otherwise the image is fitted and orientation is kept.
func (m *Manager) ImageChanged(image Size, p Policy) {
	m.image = image
	switch {
	case p.LockAcrossImages:
	case p.ResetOnImageChange:
		m.Reset()
	default:
		m.FitToViewport(image, m.viewport)
	}
}

// VisibleRegion is the part of the image currently on screen, in image
// space. ok is false when nothing of the image is visible.
func (m *Manager) VisibleRegion() (geometry.Rect, bool) {
	if !m.Ready() {
		return geometry.Rect{}, false
	}
	tl := m.ScreenToImage(geometry.Point{})
	br := m.ScreenToImage(geometry.Point{X: m.viewport.Width, Y: m.viewport.Height})
	view := geometry.RectFromPoints(tl, br)
	img := geometry.Rect{Width: m.image.Width, Height: m.image.Height}
	if !geometry.Intersects(view, img) {
		return geometry.Rect{}, false
	}
	return geometry.Intersection(view, img), true
}

func clampScale(s float64) float64 {
	if math.IsNaN(s) || s <= 0 {
		return 1
	}
	return math.Max(MinScale, math.Min(MaxScale, s))
}

func normalizeRotation(deg int) int {
	deg %= 360
	if deg < 0 {
		deg += 360
	}
	return deg - deg%90
}
