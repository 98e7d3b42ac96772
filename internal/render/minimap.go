package render

import (
	"github.com/fogleman/gg"

	"boxmark/internal/geometry"
	"boxmark/internal/viewport"
)

// MinimapBounds is where the minimap panel sits on screen: the top right
// corner of the viewport.
func MinimapBounds(view *viewport.Manager, extent float64) (geometry.Rect, bool) {
	mm := viewport.NewMinimap(view, extent)
	size := mm.Size()
	vs := view.ViewportSize()
	if size.Empty() || vs.Empty() || size.Width+2*minimapInset > vs.Width || size.Height+2*minimapInset > vs.Height {
		return geometry.Rect{}, false
	}
	return geometry.R(vs.Width-size.Width-minimapInset, minimapInset, size.Width, size.Height), true
}

// MinimapHit converts a screen point inside the minimap panel to minimap
// coordinates.
func MinimapHit(view *viewport.Manager, extent float64, p geometry.Point) (geometry.Point, bool) {
	b, ok := MinimapBounds(view, extent)
	if !ok || !b.Contains(p) {
		return geometry.Point{}, false
	}
	return p.Sub(b.MinPoint()), true
}

func (r *Renderer) drawMinimap(dc *gg.Context, view *viewport.Manager, s Scene) {
	if s.Background == nil {
		return
	}
	b, ok := MinimapBounds(view, r.opts.MinimapSize)
	if !ok {
		return
	}
	mm := viewport.NewMinimap(view, r.opts.MinimapSize)

	dc.Push()
	dc.Translate(b.X, b.Y)

	dc.DrawImage(r.thumbnail(s.ImageID, s.Background, r.opts.MinimapSize), 0, 0)
	dc.SetLineWidth(1)
	for _, a := range s.Annotations {
		rect := mm.RectFromImage(a.Rect())
		dc.SetColor(r.classes.Resolve(a.ClassID).RGBA())
		dc.DrawRectangle(rect.X, rect.Y, rect.Width, rect.Height)
		dc.Stroke()
	}
	if vr, ok := mm.ViewRect(); ok {
		dc.SetColor(minimapFrame)
		dc.SetLineWidth(2)
		dc.DrawRectangle(vr.X, vr.Y, vr.Width, vr.Height)
		dc.Stroke()
	}
	dc.SetColor(handleColor)
	dc.SetLineWidth(1)
	dc.DrawRectangle(0, 0, b.Width, b.Height)
	dc.Stroke()

	dc.Pop()
}
