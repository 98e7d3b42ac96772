package viewport

import (
	"testing"

	"gonum.org/v1/gonum/floats/scalar"

	"boxmark/internal/geometry"
)

const tol = 1e-9

func ready() *Manager {
	m := New()
	m.FitToViewport(Size{Width: 800, Height: 600}, Size{Width: 1000, Height: 700})
	return m
}

func TestRoundTrip(t *testing.T) {
	m := ready()
	states := []State{
		{Scale: 1},
		{Scale: 0.1, Offset: geometry.Pt(-300, 12.5)},
		{Scale: 2.75, Offset: geometry.Pt(44.4, -901)},
		{Scale: 5, Offset: geometry.Pt(1e4, 1e4)},
	}
	points := []geometry.Point{
		geometry.Pt(0, 0), geometry.Pt(17.3, 999), geometry.Pt(-250, 33.3333),
	}
	for _, s := range states {
		m.Restore(s)
		for _, p := range points {
			got := m.ImageToScreen(m.ScreenToImage(p))
			if !got.ApproxEqual(p, 1e-7) {
				t.Errorf("state %+v: round trip %v -> %v", s, p, got)
			}
		}
	}
}

func TestFitToViewport(t *testing.T) {
	m := ready()
	s := m.State()
	if s.Scale != 1 {
		t.Fatalf("scale = %v, want 1", s.Scale)
	}
	if s.Offset != geometry.Pt(100, 50) {
		t.Fatalf("offset = %v, want (100,50)", s.Offset)
	}
}

func TestZoomKeepsPivotFixed(t *testing.T) {
	m := ready()
	pivot := geometry.Pt(420, 310)
	before := m.ScreenToImage(pivot)
	m.Zoom(1.7, pivot)
	after := m.ScreenToImage(pivot)
	if !before.ApproxEqual(after, tol) {
		t.Fatalf("pivot moved: %v -> %v", before, after)
	}
	if !scalar.EqualWithinAbs(m.Scale(), 1.7, tol) {
		t.Fatalf("scale = %v, want 1.7", m.Scale())
	}
}

func TestZoomClamps(t *testing.T) {
	m := ready()
	for i := 0; i < 100; i++ {
		m.Wheel(-1, geometry.Pt(0, 0))
	}
	if m.Scale() != MaxScale {
		t.Fatalf("scale = %v, want %v", m.Scale(), MaxScale)
	}
	for i := 0; i < 200; i++ {
		m.Wheel(1, geometry.Pt(0, 0))
	}
	if m.Scale() != MinScale {
		t.Fatalf("scale = %v, want %v", m.Scale(), MinScale)
	}
}

func TestGuardsWithoutImage(t *testing.T) {
	m := New()
	m.SetViewport(Size{Width: 800, Height: 600})
	m.Zoom(2, geometry.Pt(10, 10))
	m.Pan(geometry.Pt(5, 5))
	m.Rotate(Clockwise)
	m.Flip(Horizontal)
	if got := m.State(); got != (State{Scale: 1}) {
		t.Fatalf("state changed without image: %+v", got)
	}

	m = New()
	m.SetImage(Size{Width: 100, Height: 100})
	m.ZoomToSelection(geometry.R(0, 0, 10, 10), 20, 3)
	if got := m.State(); got != (State{Scale: 1}) {
		t.Fatalf("state changed with zero viewport: %+v", got)
	}
}

func TestPan(t *testing.T) {
	m := ready()
	m.Pan(geometry.Pt(-30, 12))
	if got := m.State().Offset; got != geometry.Pt(70, 62) {
		t.Fatalf("offset = %v, want (70,62)", got)
	}
}

func TestZoomToSelection(t *testing.T) {
	m := ready()
	box := geometry.R(100, 100, 100, 50)
	m.ZoomToSelection(box, 50, SelectionMaxScale)
	// Fits 900/100 and 600/50, both above the cap.
	if m.Scale() != SelectionMaxScale {
		t.Fatalf("scale = %v, want %v", m.Scale(), SelectionMaxScale)
	}
	c := m.ImageToScreen(box.Center())
	if !c.ApproxEqual(geometry.Pt(500, 350), tol) {
		t.Fatalf("box centre at %v, want viewport centre", c)
	}

	m.ZoomToSelection(geometry.R(0, 0, 800, 600), 50, SelectionMaxScale)
	want := 600.0 / 600.0
	if w := 900.0 / 800.0; w < want {
		want = w
	}
	if !scalar.EqualWithinAbs(m.Scale(), want, tol) {
		t.Fatalf("scale = %v, want %v", m.Scale(), want)
	}
}

func TestRotateAndFlip(t *testing.T) {
	m := ready()
	m.Rotate(CounterClockwise)
	if got := m.State().Rotation; got != 270 {
		t.Fatalf("rotation = %d, want 270", got)
	}
	for i := 0; i < 3; i++ {
		m.Rotate(Clockwise)
	}
	if got := m.State().Rotation; got != 180 {
		t.Fatalf("rotation = %d, want 180", got)
	}
	m.Flip(Horizontal)
	m.Flip(Vertical)
	m.Flip(Vertical)
	if f := m.State().Flip; !f.Horizontal || f.Vertical {
		t.Fatalf("flip = %+v", f)
	}
}

func TestImageChangedPolicy(t *testing.T) {
	tests := []struct {
		name         string
		policy       Policy
		wantScale    float64
		wantRotation int
	}{
		{"reset", Policy{ResetOnImageChange: true}, 1, 0},
		{"lock", Policy{LockAcrossImages: true}, 2, 90},
		{"lock wins", Policy{ResetOnImageChange: true, LockAcrossImages: true}, 2, 90},
		{"neither keeps orientation", Policy{}, 1, 90},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := ready()
			m.Zoom(2, geometry.Pt(0, 0))
			m.Rotate(Clockwise)
			m.ImageChanged(Size{Width: 640, Height: 480}, tt.policy)
			s := m.State()
			if s.Scale != tt.wantScale || s.Rotation != tt.wantRotation {
				t.Fatalf("state = %+v, want scale %v rotation %d", s, tt.wantScale, tt.wantRotation)
			}
		})
	}
}

func TestMinimap(t *testing.T) {
	m := ready()
	mm := NewMinimap(m, 160)
	if got := mm.Size(); got != (Size{Width: 160, Height: 120}) {
		t.Fatalf("minimap size = %+v", got)
	}
	view, ok := mm.ViewRect()
	if !ok {
		t.Fatal("expected visible region")
	}
	// The whole image fits in the viewport at scale 1.
	if view != geometry.R(0, 0, 160, 120) {
		t.Fatalf("view rect = %v", view)
	}

	mm.Navigate(geometry.Pt(40, 30))
	if c := m.ScreenToImage(geometry.Pt(500, 350)); !c.ApproxEqual(geometry.Pt(200, 150), tol) {
		t.Fatalf("viewport centre maps to %v, want (200,150)", c)
	}
}
