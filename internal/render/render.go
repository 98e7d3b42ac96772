// Package render draws the canvas with gg. The terminal front end samples the
// raster into cells; PNG export writes it to disk unchanged.
package render

import (
	"fmt"
	"image"
	"image/color"
	"io"
	"math"
	"slices"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"

	"boxmark/internal/annotation"
	"boxmark/internal/engine"
	"boxmark/internal/geometry"
	"boxmark/internal/selection"
	"boxmark/internal/settings"
	"boxmark/internal/viewport"
)

const (
	fontSize     = 12.0
	handleSize   = 8.0
	minGridPitch = 4.0
	minimapInset = 8.0
	orientCache  = 16
)

var (
	canvasColor    = color.RGBA{0x1e, 0x1e, 0x1e, 0xff}
	gridColor      = color.RGBA{0xff, 0xff, 0xff, 0x30}
	marqueeColor   = color.RGBA{0x3b, 0x82, 0xf6, 0xff}
	handleColor    = color.RGBA{0xff, 0xff, 0xff, 0xff}
	transformColor = color.RGBA{0x00, 0xa1, 0xff, 0xff}
	minimapFrame   = color.RGBA{0xff, 0x40, 0x40, 0xff}
)

type Options struct {
	Opacity     float64
	ShowGrid    bool
	GridSize    float64
	ShowLabels  bool
	ShowMinimap bool
	MinimapSize float64
}

func OptionsFrom(ed settings.Editor, d settings.Display) Options {
	return Options{
		Opacity:     ed.AnnotationOpacity,
		ShowGrid:    ed.ShowGrid,
		GridSize:    ed.GridSize,
		ShowLabels:  d.ShowLabels,
		ShowMinimap: d.ShowMinimap,
		MinimapSize: float64(d.MinimapSize),
	}
}

// Scene is everything drawn for one frame. Geometry is in image space.
type Scene struct {
	ImageID     string
	Background  image.Image
	Annotations []annotation.Annotation
	Selected    []string

	Transformer    geometry.Rect
	Handles        []selection.HandlePoint
	HasTransformer bool

	Draft      geometry.Rect
	DraftClass int
	HasDraft   bool

	Marquee    geometry.Rect
	HasMarquee bool
}

// SceneFrom captures the engine's current frame over bg.
func SceneFrom(e *engine.Engine, bg image.Image) Scene {
	s := Scene{
		ImageID:     e.ImageID(),
		Background:  bg,
		Annotations: e.Display(),
		Selected:    e.Selection(),
		DraftClass:  e.ActiveClass(),
	}
	s.Transformer, s.Handles, s.HasTransformer = e.Transformer()
	s.Draft, s.HasDraft = e.Draft()
	s.Marquee, s.HasMarquee = e.Marquee()
	return s
}

type orientKey struct {
	id       string
	rotation int
	flip     viewport.Flip
	thumb    float64
}

type Renderer struct {
	classes *annotation.Registry
	opts    Options
	face    font.Face
	cache   *lru.Cache[orientKey, image.Image]
}

func New(classes *annotation.Registry, opts Options) (*Renderer, error) {
	ttf, err := truetype.Parse(gomono.TTF)
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}
	cache, err := lru.New[orientKey, image.Image](orientCache)
	if err != nil {
		return nil, err
	}
	if classes == nil {
		classes = annotation.NewRegistry(annotation.DefaultClasses())
	}
	return &Renderer{
		classes: classes,
		opts:    opts,
		face: truetype.NewFace(ttf, &truetype.Options{
			Size:    fontSize,
			DPI:     72,
			Hinting: font.HintingFull,
		}),
		cache: cache,
	}, nil
}

func (r *Renderer) Options() Options { return r.opts }

func (r *Renderer) SetOptions(o Options) { r.opts = o }

// Render draws s as seen through view into a width x height raster. The
// viewport surface is scaled to fit when the raster is smaller, which is how
// the terminal gets a cell-sized image of a pixel-sized canvas.
func (r *Renderer) Render(view *viewport.Manager, s Scene, width, height int) image.Image {
	return r.draw(view, s, width, height).Image()
}

// ExportPNG renders the current view at viewport resolution to w.
func (r *Renderer) ExportPNG(w io.Writer, view *viewport.Manager, s Scene) error {
	vs := view.ViewportSize()
	if vs.Empty() {
		return fmt.Errorf("nothing to export")
	}
	dc := r.draw(view, s, int(math.Round(vs.Width)), int(math.Round(vs.Height)))
	return dc.EncodePNG(w)
}

// ExportAnnotated draws the annotations over the unrotated background at
// full image resolution.
func (r *Renderer) ExportAnnotated(w io.Writer, bg image.Image, anns []annotation.Annotation) error {
	if bg == nil {
		return fmt.Errorf("nothing to export")
	}
	b := bg.Bounds()
	view := viewport.New()
	size := viewport.Size{Width: float64(b.Dx()), Height: float64(b.Dy())}
	view.FitToViewport(size, size)

	opts := r.opts
	r.opts.ShowGrid, r.opts.ShowMinimap = false, false
	defer func() { r.opts = opts }()

	dc := r.draw(view, Scene{Background: bg, Annotations: anns}, b.Dx(), b.Dy())
	return dc.EncodePNG(w)
}

func (r *Renderer) draw(view *viewport.Manager, s Scene, width, height int) *gg.Context {
	width, height = max(width, 1), max(height, 1)
	dc := gg.NewContext(width, height)
	dc.SetColor(canvasColor)
	dc.Clear()

	vs := view.ViewportSize()
	if vs.Empty() {
		return dc
	}
	dc.Scale(float64(width)/vs.Width, float64(height)/vs.Height)
	dc.SetFontFace(r.face)

	r.drawBackground(dc, view, s)
	if r.opts.ShowGrid {
		r.drawGrid(dc, view)
	}
	r.drawAnnotations(dc, view, s)
	if s.HasTransformer {
		r.drawTransformer(dc, view, s)
	}
	if s.HasDraft {
		r.drawDraft(dc, view, s)
	}
	if s.HasMarquee {
		r.drawMarquee(dc, view, s.Marquee)
	}
	if r.opts.ShowMinimap {
		r.drawMinimap(dc, view, s)
	}
	return dc
}

func (r *Renderer) drawBackground(dc *gg.Context, view *viewport.Manager, s Scene) {
	if s.Background == nil {
		return
	}
	st := view.State()
	img := r.oriented(s.ImageID, s.Background, st.Rotation, st.Flip)
	size := view.ImageSize()

	dc.Push()
	dc.Translate(st.Offset.X, st.Offset.Y)
	dc.Scale(st.Scale, st.Scale)
	// Orientation turns about the image centre.
	dc.DrawImageAnchored(img, int(size.Width/2), int(size.Height/2), 0.5, 0.5)
	dc.Pop()
}

func (r *Renderer) drawGrid(dc *gg.Context, view *viewport.Manager) {
	g := r.opts.GridSize
	if g <= 0 || g*view.Scale() < minGridPitch {
		return
	}
	region, ok := view.VisibleRegion()
	if !ok {
		return
	}
	vs := view.ViewportSize()
	dc.SetColor(gridColor)
	dc.SetLineWidth(1)
	for x := math.Floor(region.X/g) * g; x <= region.X+region.Width; x += g {
		sx := view.ImageToScreen(geometry.Pt(x, 0)).X
		dc.DrawLine(sx, 0, sx, vs.Height)
	}
	for y := math.Floor(region.Y/g) * g; y <= region.Y+region.Height; y += g {
		sy := view.ImageToScreen(geometry.Pt(0, y)).Y
		dc.DrawLine(0, sy, vs.Width, sy)
	}
	dc.Stroke()
}

func (r *Renderer) drawAnnotations(dc *gg.Context, view *viewport.Manager, s Scene) {
	for _, a := range s.Annotations {
		class := r.classes.Resolve(a.ClassID)
		c := class.RGBA()
		rect := view.RectToScreen(a.Rect())
		selected := slices.Contains(s.Selected, a.ID)

		dc.DrawRectangle(rect.X, rect.Y, rect.Width, rect.Height)
		setAlpha(dc, c, r.opts.Opacity*0.25)
		dc.FillPreserve()
		setAlpha(dc, c, r.opts.Opacity)
		if selected {
			dc.SetLineWidth(3)
		} else {
			dc.SetLineWidth(2)
		}
		dc.Stroke()

		if r.opts.ShowLabels {
			r.drawLabel(dc, rect, class, a.Confidence, c)
		}
	}
}

func (r *Renderer) drawLabel(dc *gg.Context, rect geometry.Rect, class annotation.Class, confidence float64, c color.RGBA) {
	text := class.Name
	if confidence < 1 {
		text = fmt.Sprintf("%s %.2f", class.Name, confidence)
	}
	w, h := dc.MeasureString(text)
	y := rect.Y - h - 4
	if y < 0 {
		y = rect.Y
	}
	dc.DrawRectangle(rect.X, y, w+6, h+4)
	setAlpha(dc, c, r.opts.Opacity)
	dc.Fill()
	dc.SetColor(color.Black)
	dc.DrawStringAnchored(text, rect.X+3, y+2, 0, 1)
}

func (r *Renderer) drawTransformer(dc *gg.Context, view *viewport.Manager, s Scene) {
	box := view.RectToScreen(s.Transformer)
	dc.SetColor(transformColor)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	dc.DrawRectangle(box.X, box.Y, box.Width, box.Height)
	dc.Stroke()
	dc.SetDash()

	for _, h := range s.Handles {
		p := view.ImageToScreen(h.Point)
		dc.DrawRectangle(p.X-handleSize/2, p.Y-handleSize/2, handleSize, handleSize)
		dc.SetColor(handleColor)
		dc.FillPreserve()
		dc.SetColor(transformColor)
		dc.Stroke()
	}
}

func (r *Renderer) drawDraft(dc *gg.Context, view *viewport.Manager, s Scene) {
	rect := view.RectToScreen(geometry.Normalize(s.Draft))
	dc.SetColor(r.classes.Resolve(s.DraftClass).RGBA())
	dc.SetLineWidth(2)
	dc.SetDash(6, 4)
	dc.DrawRectangle(rect.X, rect.Y, rect.Width, rect.Height)
	dc.Stroke()
	dc.SetDash()
}

func (r *Renderer) drawMarquee(dc *gg.Context, view *viewport.Manager, m geometry.Rect) {
	rect := view.RectToScreen(geometry.Normalize(m))
	dc.DrawRectangle(rect.X, rect.Y, rect.Width, rect.Height)
	setAlpha(dc, marqueeColor, 0.1)
	dc.FillPreserve()
	dc.SetColor(marqueeColor)
	dc.SetLineWidth(1)
	dc.SetDash(4, 4)
	dc.Stroke()
	dc.SetDash()
}

func setAlpha(dc *gg.Context, c color.RGBA, alpha float64) {
	alpha = math.Max(0, math.Min(1, alpha))
	dc.SetRGBA255(int(c.R), int(c.G), int(c.B), int(math.Round(alpha*255)))
}
