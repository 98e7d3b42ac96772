// Package geometry holds the pure rectangle math used by the canvas engine.
package geometry

import (
	"math"

	"gonum.org/v1/gonum/floats/scalar"
)

// MinSize is the smallest width or height, in image pixels, a committed
// annotation may have.
const MinSize = 5.0

// Point is a 2D point. Which space it lives in (screen or image) is up to
// the caller.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

func Pt(x, y float64) Point {
	return Point{X: x, Y: y}
}

func (p Point) Add(o Point) Point {
	return Point{X: p.X + o.X, Y: p.Y + o.Y}
}

func (p Point) Sub(o Point) Point {
	return Point{X: p.X - o.X, Y: p.Y - o.Y}
}

func (p Point) Scale(f float64) Point {
	return Point{X: p.X * f, Y: p.Y * f}
}

// Valid reports whether both coordinates are finite.
func (p Point) Valid() bool {
	return finite(p.X) && finite(p.Y)
}

// ApproxEqual compares two points within an absolute tolerance.
func (p Point) ApproxEqual(o Point, tol float64) bool {
	return scalar.EqualWithinAbs(p.X, o.X, tol) && scalar.EqualWithinAbs(p.Y, o.Y, tol)
}

// Rect is an axis-aligned rectangle given by its top-left corner and size.
// Width and Height may be negative while a draft is being dragged.
type Rect struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

func R(x, y, w, h float64) Rect {
	return Rect{X: x, Y: y, Width: w, Height: h}
}

// RectFromPoints spans two corners in any order.
func RectFromPoints(a, b Point) Rect {
	return Normalize(Rect{X: a.X, Y: a.Y, Width: b.X - a.X, Height: b.Y - a.Y})
}

func (r Rect) MinPoint() Point { return Point{X: r.X, Y: r.Y} }
func (r Rect) MaxPoint() Point { return Point{X: r.X + r.Width, Y: r.Y + r.Height} }

func (r Rect) Center() Point {
	return Point{X: r.X + r.Width/2, Y: r.Y + r.Height/2}
}

func (r Rect) Area() float64 {
	return math.Abs(r.Width * r.Height)
}

// Contains reports whether p lies inside or on the edge of the normalized rect.
func (r Rect) Contains(p Point) bool {
	n := Normalize(r)
	return p.X >= n.X && p.X <= n.X+n.Width &&
		p.Y >= n.Y && p.Y <= n.Y+n.Height
}

func (r Rect) Translate(d Point) Rect {
	return Rect{X: r.X + d.X, Y: r.Y + d.Y, Width: r.Width, Height: r.Height}
}

// Inset grows (negative) or shrinks (positive) the rect on every side.
func (r Rect) Inset(d float64) Rect {
	n := Normalize(r)
	return Rect{X: n.X + d, Y: n.Y + d, Width: n.Width - 2*d, Height: n.Height - 2*d}
}

// Valid reports whether every component is finite.
func (r Rect) Valid() bool {
	return finite(r.X) && finite(r.Y) && finite(r.Width) && finite(r.Height)
}

// Empty reports whether the rect has no area.
func (r Rect) Empty() bool {
	return r.Width == 0 || r.Height == 0
}

// Normalize returns the rectangle with non-negative width and height,
// moving the top-left corner to compensate.
func Normalize(r Rect) Rect {
	if r.Width < 0 {
		r.X += r.Width
		r.Width = -r.Width
	}
	if r.Height < 0 {
		r.Y += r.Height
		r.Height = -r.Height
	}
	return r
}

// MeetsMinSize reports whether a normalized rect is large enough to commit.
func MeetsMinSize(r Rect) bool {
	n := Normalize(r)
	return n.Valid() && n.Width >= MinSize && n.Height >= MinSize
}

// Snap rounds v to the nearest multiple of gridSize. A non-positive grid
// leaves v untouched.
func Snap(v, gridSize float64) float64 {
	if gridSize <= 0 || !finite(v) {
		return v
	}
	return math.Round(v/gridSize) * gridSize
}

func SnapPoint(p Point, gridSize float64) Point {
	return Point{X: Snap(p.X, gridSize), Y: Snap(p.Y, gridSize)}
}

// ApplyAspectLock forces width/height to ratio (width over height). The axis
// with the larger magnitude drives the other and both signs are kept.
func ApplyAspectLock(width, height, ratio float64) (float64, float64) {
	if ratio <= 0 || !finite(ratio) {
		return width, height
	}
	if math.Abs(width) >= math.Abs(height) {
		return width, copySign(math.Abs(width)/ratio, height)
	}
	return copySign(math.Abs(height)*ratio, width), height
}

// Intersects is the AABB overlap test. Rects that only touch on an edge do
// not intersect.
func Intersects(a, b Rect) bool {
	a, b = Normalize(a), Normalize(b)
	return a.X < b.X+b.Width && a.X+a.Width > b.X &&
		a.Y < b.Y+b.Height && a.Y+a.Height > b.Y
}

// Intersection returns the overlapping region, or a zero rect.
func Intersection(a, b Rect) Rect {
	if !Intersects(a, b) {
		return Rect{}
	}
	a, b = Normalize(a), Normalize(b)
	x1 := math.Max(a.X, b.X)
	y1 := math.Max(a.Y, b.Y)
	x2 := math.Min(a.X+a.Width, b.X+b.Width)
	y2 := math.Min(a.Y+a.Height, b.Y+b.Height)
	return Rect{X: x1, Y: y1, Width: x2 - x1, Height: y2 - y1}
}

// OverlapRatio is intersection area over union area, in [0,1].
func OverlapRatio(a, b Rect) float64 {
	inter := Intersection(a, b).Area()
	if inter == 0 {
		return 0
	}
	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return math.Min(1, inter/union)
}

// Bounds returns the smallest rect containing every input. ok is false when
// rects is empty.
func Bounds(rects ...Rect) (Rect, bool) {
	if len(rects) == 0 {
		return Rect{}, false
	}
	first := Normalize(rects[0])
	minX, minY := first.X, first.Y
	maxX, maxY := first.X+first.Width, first.Y+first.Height
	for _, r := range rects[1:] {
		r = Normalize(r)
		minX = math.Min(minX, r.X)
		minY = math.Min(minY, r.Y)
		maxX = math.Max(maxX, r.X+r.Width)
		maxY = math.Max(maxY, r.Y+r.Height)
	}
	return Rect{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}, true
}

// MapRect maps r from the frame of src into the frame of dst. Used to scale
// every member of a group when the group's bounding box is resized.
func MapRect(r, src, dst Rect) Rect {
	if src.Width == 0 || src.Height == 0 {
		return r.Translate(dst.MinPoint().Sub(src.MinPoint()))
	}
	sx := dst.Width / src.Width
	sy := dst.Height / src.Height
	return Rect{
		X:      dst.X + (r.X-src.X)*sx,
		Y:      dst.Y + (r.Y-src.Y)*sy,
		Width:  r.Width * sx,
		Height: r.Height * sy,
	}
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func copySign(mag, sign float64) float64 {
	if sign < 0 {
		return -mag
	}
	return mag
}
