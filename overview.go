package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"

	"boxmark/internal/dataset"
	"boxmark/internal/stats"
)

var (
	cellCurrent   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd75f")).Bold(true)
	cellAnnotated = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	cellEmpty     = lipgloss.NewStyle().Foreground(lipgloss.Color("#585858"))
	panelTitle    = lipgloss.NewStyle().Bold(true).Underline(true)
	panelBox      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
)

// overviewView draws one glyph per image: the current image, annotated
// images and images still to do.
func (m model) overviewView() string {
	cells := m.data.Overview(m.index, m.sync.IsAnnotated)
	done := m.data.Progress(m.sync.IsAnnotated)

	perRow := max(m.width-4, 10)
	var b strings.Builder
	b.WriteString(panelTitle.Render("Dataset"))
	b.WriteString(fmt.Sprintf("  %s / %s annotated\n\n", humanize.Comma(int64(done)), humanize.Comma(int64(m.data.Len()))))
	for i, c := range cells {
		switch c {
		case dataset.CellCurrent:
			b.WriteString(cellCurrent.Render("◆"))
		case dataset.CellAnnotated:
			b.WriteString(cellAnnotated.Render("■"))
		default:
			b.WriteString(cellEmpty.Render("□"))
		}
		if (i+1)%perRow == 0 {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n\n◆ current  ■ annotated  □ empty    o/esc close")
	return panelBox.Render(b.String())
}

// statsView summarizes the current image.
func (m model) statsView() string {
	sum, changed := m.session.snapshot()
	var b strings.Builder
	b.WriteString(panelTitle.Render("Annotations"))
	b.WriteString(fmt.Sprintf("  %d on %s", sum.Total, m.engine.ImageID()))
	if !changed.IsZero() {
		b.WriteString(", changed " + humanize.Time(changed))
	}
	b.WriteString("\n\n")
	if len(sum.Classes) == 0 {
		b.WriteString("(none)\n")
	} else {
		b.WriteString(statsTable(sum))
	}
	if iou := stats.MeanIoU(m.engine.Annotations()); iou > 0 {
		b.WriteString(fmt.Sprintf("\nmean same-class overlap %.2f\n", iou))
	}
	b.WriteString("\ni/esc close")
	return panelBox.Render(b.String())
}

func statsTable(sum stats.Summary) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-16s %5s %14s %14s %18s %6s\n", "class", "count", "width", "height", "area", "conf"))
	for _, c := range sum.Classes {
		b.WriteString(fmt.Sprintf("%-16s %5d %14s %14s %18s %6.2f\n",
			truncate(c.Name, 16), c.Count,
			measureText(c.Width), measureText(c.Height), measureText(c.Area),
			c.Confidence))
	}
	return b.String()
}

func measureText(ms stats.Measure) string {
	return fmt.Sprintf("%s±%s", humanize.FtoaWithDigits(ms.Mean, 1), humanize.FtoaWithDigits(ms.StdDev, 1))
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
