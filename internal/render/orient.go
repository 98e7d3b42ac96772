package render

import (
	"image"

	"github.com/disintegration/imaging"

	"boxmark/internal/viewport"
)

// Orient applies a clockwise rotation in degrees and then the flip.
func Orient(img image.Image, rotation int, flip viewport.Flip) image.Image {
	var out image.Image = img
	switch ((rotation%360)+360) % 360 {
	case 90:
		out = imaging.Rotate270(out)
	case 180:
		out = imaging.Rotate180(out)
	case 270:
		out = imaging.Rotate90(out)
	}
	if flip.Horizontal {
		out = imaging.FlipH(out)
	}
	if flip.Vertical {
		out = imaging.FlipV(out)
	}
	return out
}

// Thumbnail scales img so its longest side is extent pixels.
func Thumbnail(img image.Image, extent int) image.Image {
	if extent <= 0 {
		return img
	}
	return imaging.Fit(img, extent, extent, imaging.Box)
}

func (r *Renderer) oriented(id string, img image.Image, rotation int, flip viewport.Flip) image.Image {
	if rotation%360 == 0 && flip == (viewport.Flip{}) {
		return img
	}
	if id == "" {
		return Orient(img, rotation, flip)
	}
	key := orientKey{id: id, rotation: rotation, flip: flip}
	if out, ok := r.cache.Get(key); ok {
		return out
	}
	out := Orient(img, rotation, flip)
	r.cache.Add(key, out)
	return out
}

func (r *Renderer) thumbnail(id string, img image.Image, extent float64) image.Image {
	if id == "" {
		return Thumbnail(img, int(extent))
	}
	key := orientKey{id: id, thumb: extent}
	if out, ok := r.cache.Get(key); ok {
		return out
	}
	out := Thumbnail(img, int(extent))
	r.cache.Add(key, out)
	return out
}

// Forget drops cached derivatives of an image.
func (r *Renderer) Forget(id string) {
	for _, k := range r.cache.Keys() {
		if k.id == id {
			r.cache.Remove(k)
		}
	}
}
