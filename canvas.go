package main

import (
	"fmt"
	"image"
	"image/color"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"boxmark/internal/engine"
	"boxmark/internal/geometry"
	"boxmark/internal/render"
	"boxmark/internal/viewport"
)

const colorReset = "\x1b[0m"

// canvasSize is the number of terminal cells available to the canvas.
func (m *model) canvasSize() (int, int) {
	cols := max(m.width, 1)
	rows := max(m.height-statusLines, 1)
	return cols, rows
}

// syncViewport gives the engine a viewport matching the terminal.
func (m *model) syncViewport() {
	cols, rows := m.canvasSize()
	m.engine.SetViewportSize(viewport.Size{
		Width:  float64(cols) * cellWidth,
		Height: float64(rows) * cellHeight,
	})
}

// cellToScreen maps a terminal cell to the screen point at its centre.
func cellToScreen(x, y int) geometry.Point {
	return geometry.Pt((float64(x)+0.5)*cellWidth, (float64(y)+0.5)*cellHeight)
}

func (m *model) handleMouse(msg tea.MouseMsg) {
	cols, rows := m.canvasSize()
	if msg.X < 0 || msg.Y < 0 || msg.X >= cols || msg.Y >= rows {
		if msg.Type == tea.MouseRelease {
			m.engine.PointerUp(engine.PointerEvent{})
		}
		return
	}
	p := cellToScreen(msg.X, msg.Y)
	ev := engine.PointerEvent{
		Screen: p,
		Mods:   engine.Modifiers{Shift: msg.Shift, Ctrl: msg.Ctrl || msg.Alt},
	}

	switch msg.Type {
	case tea.MouseLeft:
		if m.navigateMinimap(p) {
			return
		}
		ev.Button = engine.ButtonLeft
		m.engine.PointerDown(ev)
	case tea.MouseMiddle:
		ev.Button = engine.ButtonMiddle
		m.engine.PointerDown(ev)
	case tea.MouseRight:
		ev.Button = engine.ButtonRight
		m.engine.PointerDown(ev)
	case tea.MouseMotion:
		m.engine.PointerMove(ev)
	case tea.MouseRelease:
		m.engine.PointerUp(ev)
	case tea.MouseWheelUp:
		m.engine.Wheel(-1, p)
	case tea.MouseWheelDown:
		m.engine.Wheel(1, p)
	}
}

// navigateMinimap centres the view on a click inside the minimap panel.
func (m *model) navigateMinimap(p geometry.Point) bool {
	if !m.settings.Display.ShowMinimap || m.engine.Mode() != engine.Idle {
		return false
	}
	view := m.engine.View()
	extent := float64(m.settings.Display.MinimapSize)
	local, ok := render.MinimapHit(view, extent, p)
	if !ok {
		return false
	}
	viewport.NewMinimap(view, extent).Navigate(local)
	return true
}

// renderCanvas draws the current frame into cols x rows terminal cells.
func (m *model) renderCanvas(cols, rows int) []string {
	scene := render.SceneFrom(m.engine, m.background)
	img := m.renderer.Render(m.engine.View(), scene, cols, rows*2)
	return halfBlocks(img, cols, rows)
}

// halfBlocks packs two raster rows into each line: the upper pixel is the
// foreground of '▀' and the lower one its background.
func halfBlocks(img image.Image, cols, rows int) []string {
	b := img.Bounds()
	lines := make([]string, rows)
	var sb strings.Builder
	for y := 0; y < rows; y++ {
		sb.Reset()
		var lastFg, lastBg color.RGBA
		first := true
		for x := 0; x < cols; x++ {
			fg := rgba(img.At(b.Min.X+x, b.Min.Y+2*y))
			bg := rgba(img.At(b.Min.X+x, b.Min.Y+2*y+1))
			if first || fg != lastFg {
				sb.WriteString(trueColor(38, fg))
			}
			if first || bg != lastBg {
				sb.WriteString(trueColor(48, bg))
			}
			sb.WriteRune('▀')
			lastFg, lastBg, first = fg, bg, false
		}
		sb.WriteString(colorReset)
		lines[y] = sb.String()
	}
	return lines
}

func rgba(c color.Color) color.RGBA {
	r, g, b, _ := c.RGBA()
	return color.RGBA{uint8(r >> 8), uint8(g >> 8), uint8(b >> 8), 0xff}
}

func trueColor(layer int, c color.RGBA) string {
	return fmt.Sprintf("\x1b[%d;2;%d;%d;%dm", layer, c.R, c.G, c.B)
}
