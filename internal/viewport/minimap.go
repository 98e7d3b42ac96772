package viewport

import (
	"math"

	"boxmark/internal/geometry"
)

// Minimap is a secondary, lower-resolution mapping of the same image space.
// Its longest side is Extent pixels.
type Minimap struct {
	m      *Manager
	Extent float64
}

func NewMinimap(m *Manager, extent float64) *Minimap {
	return &Minimap{m: m, Extent: extent}
}

// Factor is minimap pixels per image pixel.
func (mm *Minimap) Factor() float64 {
	longest := mm.longest()
	if longest == 0 {
		return 0
	}
	return mm.Extent / longest
}

func (mm *Minimap) longest() float64 {
	img := mm.m.ImageSize()
	if img.Empty() || mm.Extent <= 0 {
		return 0
	}
	return math.Max(img.Width, img.Height)
}

// Size of the minimap surface.
func (mm *Minimap) Size() Size {
	img := mm.m.ImageSize()
	return Size{Width: mm.fromImage(img.Width), Height: mm.fromImage(img.Height)}
}

func (mm *Minimap) fromImage(v float64) float64 {
	longest := mm.longest()
	if longest == 0 {
		return 0
	}
	return v * mm.Extent / longest
}

func (mm *Minimap) FromImage(p geometry.Point) geometry.Point {
	return geometry.Point{X: mm.fromImage(p.X), Y: mm.fromImage(p.Y)}
}

func (mm *Minimap) ToImage(p geometry.Point) geometry.Point {
	longest := mm.longest()
	if longest == 0 {
		return geometry.Point{}
	}
	return geometry.Point{X: p.X * longest / mm.Extent, Y: p.Y * longest / mm.Extent}
}

// RectFromImage maps an image-space rect onto the minimap.
func (mm *Minimap) RectFromImage(r geometry.Rect) geometry.Rect {
	return geometry.Rect{
		X:      mm.fromImage(r.X),
		Y:      mm.fromImage(r.Y),
		Width:  mm.fromImage(r.Width),
		Height: mm.fromImage(r.Height),
	}
}

// ViewRect is the visible viewport region drawn on the minimap.
func (mm *Minimap) ViewRect() (geometry.Rect, bool) {
	r, ok := mm.m.VisibleRegion()
	if !ok {
		return geometry.Rect{}, false
	}
	return mm.RectFromImage(r), true
}

// Navigate centres the main viewport on the image point under a minimap
// click.
func (mm *Minimap) Navigate(p geometry.Point) {
	if mm.Factor() == 0 {
		return
	}
	mm.m.CenterOn(mm.ToImage(p))
}
