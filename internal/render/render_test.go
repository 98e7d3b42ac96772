package render

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"testing"

	"boxmark/internal/annotation"
	"boxmark/internal/geometry"
	"boxmark/internal/viewport"
)

func near(a, b color.Color, tol uint32) bool {
	ar, ag, ab, _ := a.RGBA()
	br, bg, bb, _ := b.RGBA()
	d := func(x, y uint32) uint32 {
		if x > y {
			return (x - y) >> 8
		}
		return (y - x) >> 8
	}
	return d(ar, br) <= tol && d(ag, bg) <= tol && d(ab, bb) <= tol
}

func newView(image, screen float64) *viewport.Manager {
	v := viewport.New()
	v.FitToViewport(viewport.Size{Width: image, Height: image}, viewport.Size{Width: screen, Height: screen})
	return v
}

func newRenderer(t *testing.T) *Renderer {
	t.Helper()
	r, err := New(nil, Options{Opacity: 1})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return r
}

var person = color.RGBA{0xff, 0x5f, 0x87, 0xff}

func TestRenderAnnotation(t *testing.T) {
	r := newRenderer(t)
	scene := Scene{Annotations: []annotation.Annotation{
		{ID: "a", ClassID: 1, X: 10, Y: 10, Width: 50, Height: 50, Confidence: 1},
	}}

	img := r.Render(newView(100, 100), scene, 100, 100)
	if got := img.At(10, 30); !near(got, person, 2) {
		t.Fatalf("edge pixel = %v, want class colour", got)
	}
	if got := img.At(35, 35); near(got, canvasColor, 2) || near(got, person, 2) {
		t.Fatalf("fill pixel = %v, want translucent class colour", got)
	}
	if got := img.At(80, 80); !near(got, canvasColor, 0) {
		t.Fatalf("outside pixel = %v, want canvas", got)
	}
}

func TestRenderScalesToRaster(t *testing.T) {
	r := newRenderer(t)
	scene := Scene{Annotations: []annotation.Annotation{
		{ID: "a", ClassID: 1, X: 20, Y: 20, Width: 60, Height: 60, Confidence: 1},
	}}
	img := r.Render(newView(100, 100), scene, 50, 50)
	if b := img.Bounds(); b.Dx() != 50 || b.Dy() != 50 {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.At(25, 25); near(got, canvasColor, 0) {
		t.Fatalf("inside pixel = %v, want annotation fill", got)
	}
	if got := img.At(5, 5); !near(got, canvasColor, 0) {
		t.Fatalf("outside pixel = %v, want canvas", got)
	}
}

func TestRenderBackground(t *testing.T) {
	r := newRenderer(t)
	bg := image.NewRGBA(image.Rect(0, 0, 20, 20))
	for y := 0; y < 20; y++ {
		for x := 0; x < 20; x++ {
			bg.Set(x, y, color.White)
		}
	}
	img := r.Render(newView(20, 40), Scene{ImageID: "bg", Background: bg}, 40, 40)
	if got := img.At(20, 20); !near(got, color.White, 0) {
		t.Fatalf("centre = %v, want background", got)
	}
	if got := img.At(2, 2); !near(got, canvasColor, 0) {
		t.Fatalf("corner = %v, want canvas", got)
	}
}

func TestRenderWithoutViewport(t *testing.T) {
	r := newRenderer(t)
	img := r.Render(viewport.New(), Scene{}, 4, 4)
	if got := img.At(1, 1); !near(got, canvasColor, 0) {
		t.Fatalf("pixel = %v", got)
	}
}

func TestExportPNG(t *testing.T) {
	r := newRenderer(t)
	var buf bytes.Buffer
	if err := r.ExportPNG(&buf, newView(64, 80), Scene{}); err != nil {
		t.Fatalf("ExportPNG: %v", err)
	}
	cfg, err := png.DecodeConfig(&buf)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if cfg.Width != 80 || cfg.Height != 80 {
		t.Fatalf("size = %dx%d", cfg.Width, cfg.Height)
	}
	if err := r.ExportPNG(&buf, viewport.New(), Scene{}); err == nil {
		t.Fatal("expected error without viewport")
	}
}

func TestExportAnnotated(t *testing.T) {
	r := newRenderer(t)
	r.SetOptions(Options{Opacity: 1, ShowGrid: true, GridSize: 10, ShowMinimap: true, MinimapSize: 16})
	bg := image.NewRGBA(image.Rect(0, 0, 120, 90))

	var buf bytes.Buffer
	anns := []annotation.Annotation{{ID: "a", ClassID: 1, X: 10, Y: 10, Width: 30, Height: 30, Confidence: 1}}
	if err := r.ExportAnnotated(&buf, bg, anns); err != nil {
		t.Fatalf("ExportAnnotated: %v", err)
	}
	img, err := png.Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if b := img.Bounds(); b.Dx() != 120 || b.Dy() != 90 {
		t.Fatalf("bounds = %v", b)
	}
	if got := img.At(10, 25); !near(got, person, 2) {
		t.Fatalf("edge pixel = %v", got)
	}
	if !r.Options().ShowGrid {
		t.Fatal("export changed renderer options")
	}
}

func TestOrient(t *testing.T) {
	red := color.NRGBA{0xff, 0, 0, 0xff}
	blue := color.NRGBA{0, 0, 0xff, 0xff}
	src := image.NewNRGBA(image.Rect(0, 0, 2, 1))
	src.Set(0, 0, red)
	src.Set(1, 0, blue)

	cw := Orient(src, 90, viewport.Flip{})
	if b := cw.Bounds(); b.Dx() != 1 || b.Dy() != 2 {
		t.Fatalf("rotated bounds = %v", b)
	}
	if !near(cw.At(0, 0), red, 0) || !near(cw.At(0, 1), blue, 0) {
		t.Fatal("clockwise rotation wrong")
	}

	flipped := Orient(src, 0, viewport.Flip{Horizontal: true})
	if !near(flipped.At(0, 0), blue, 0) {
		t.Fatal("horizontal flip wrong")
	}
	if same := Orient(src, 360, viewport.Flip{}); !near(same.At(0, 0), red, 0) {
		t.Fatal("full turn changed the image")
	}
}

func TestOrientCache(t *testing.T) {
	r := newRenderer(t)
	src := image.NewNRGBA(image.Rect(0, 0, 4, 2))
	a := r.oriented("img", src, 90, viewport.Flip{})
	b := r.oriented("img", src, 90, viewport.Flip{})
	if a != b {
		t.Fatal("oriented image not cached")
	}
	r.Forget("img")
	if r.cache.Len() != 0 {
		t.Fatal("Forget left entries")
	}
}

func TestMinimapBounds(t *testing.T) {
	v := viewport.New()
	v.FitToViewport(viewport.Size{Width: 800, Height: 600}, viewport.Size{Width: 400, Height: 300})

	b, ok := MinimapBounds(v, 160)
	if !ok || b != geometry.R(232, 8, 160, 120) {
		t.Fatalf("bounds = %v, %v", b, ok)
	}
	p, ok := MinimapHit(v, 160, geometry.Pt(242, 18))
	if !ok || p != geometry.Pt(10, 10) {
		t.Fatalf("hit = %v, %v", p, ok)
	}
	if _, ok := MinimapHit(v, 160, geometry.Pt(10, 10)); ok {
		t.Fatal("hit outside the panel")
	}
	if _, ok := MinimapBounds(v, 1000); ok {
		t.Fatal("oversized minimap placed")
	}
}
