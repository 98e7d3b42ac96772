package main

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	"boxmark/internal/dataset"
	"boxmark/internal/geometry"
)

func (m *model) handleNavigation(key string) tea.Cmd {
	i := m.index
	switch key {
	case "]", "pgdown":
		i = m.data.Step(i, 1)
	case "[", "pgup":
		i = m.data.Step(i, -1)
	case "}":
		j, ok := m.data.NextUnannotated(i, 1, m.sync.IsAnnotated)
		if !ok {
			m.successMessage = "no unannotated image ahead"
			return nil
		}
		i = j
	case "{":
		j, ok := m.data.NextUnannotated(i, -1, m.sync.IsAnnotated)
		if !ok {
			m.successMessage = "no unannotated image behind"
			return nil
		}
		i = j
	case "home":
		i = m.data.First()
	case "end":
		i = m.data.Last()
	}
	if i == m.index {
		return nil
	}
	return m.gotoImage(i)
}

// gotoImage switches the engine to image i right away and loads the pixels
// in the background.
func (m *model) gotoImage(i int) tea.Cmd {
	img, ok := m.data.At(i)
	if !ok {
		return nil
	}
	if prev, ok := m.data.At(m.index); ok && prev.ID != img.ID {
		m.renderer.Forget(prev.ID)
	}
	m.index = i
	m.background = nil

	ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
	defer cancel()
	if err := m.engine.ChangeImage(ctx, img.ID, img.Size()); err != nil {
		m.logger.Error("failed to load annotations", "image", img.ID, "error", err)
		m.errorMessage = err.Error()
	}
	return tea.Batch(loadBackground(m.data, i), m.prefetch(i))
}

func loadBackground(d *dataset.Dataset, i int) tea.Cmd {
	return func() tea.Msg {
		img, err := d.Decode(i)
		return backgroundMsg{index: i, img: img, err: err}
	}
}

// prefetch warms the annotation cache for the neighbours of image i.
func (m *model) prefetch(i int) tea.Cmd {
	ids := m.data.Neighbors(i, prefetchRadius)
	if len(ids) == 0 {
		return nil
	}
	sync := m.sync
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), loadTimeout)
		defer cancel()
		return prefetchMsg{err: sync.Prefetch(ctx, ids...)}
	}
}

// handlePan moves the view by whole cells.
func (m *model) handlePan(key string, speed int) {
	d := float64(panCells * speed)
	var delta geometry.Point
	switch key {
	case "h", "H":
		delta.X = d * cellWidth
	case "l", "L":
		delta.X = -d * cellWidth
	case "k", "K":
		delta.Y = d * cellHeight
	case "j", "J":
		delta.Y = -d * cellHeight
	}
	m.engine.View().Pan(delta)
}

func getMoveSpeed(key string) int {
	switch key {
	case "H", "L", "K", "J":
		return 2
	default:
		return 1
	}
}

// handleNudge moves the selection with the arrow keys.
func (m *model) handleNudge(key string) {
	key, shift := strings.CutPrefix(key, "shift+")
	var dx, dy int
	switch key {
	case "left":
		dx = -1
	case "right":
		dx = 1
	case "up":
		dy = -1
	case "down":
		dy = 1
	}
	m.engine.Nudge(dx, dy, shift)
}
