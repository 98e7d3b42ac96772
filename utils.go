package main

import (
	"encoding/json"
	"fmt"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/atotto/clipboard"
	"github.com/dustin/go-humanize"

	"boxmark/internal/annotation"
	"boxmark/internal/persist"
	"boxmark/internal/store"
)

func readClipboardText() (string, error) {
	if runtime.GOOS == "darwin" {
		if output, err := exec.Command("pbpaste", "-Prefer", "txt").Output(); err == nil {
			return string(output), nil
		}
	}
	return clipboard.ReadAll()
}

// copySelection puts the selection on the engine clipboard and, as JSON, on
// the system clipboard.
func (m *model) copySelection() {
	copied := m.engine.Copy()
	if len(copied) == 0 {
		m.successMessage = "nothing selected"
		return
	}
	data, err := json.Marshal(copied)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	if err := clipboard.WriteAll(string(data)); err != nil {
		m.logger.Warn("system clipboard unavailable", "error", err)
	}
	m.successMessage = fmt.Sprintf("copied %d", len(copied))
}

// pasteClipboard pastes annotations from the system clipboard when it holds
// them, else from the engine clipboard.
func (m *model) pasteClipboard() {
	if anns, ok := clipboardAnnotations(); ok {
		m.engine.PasteFrom(anns)
		return
	}
	if !m.engine.Paste() {
		m.successMessage = "clipboard is empty"
	}
}

// importClipboard adds annotations from the system clipboard at their own
// positions, for example the output of a pre-annotation model.
func (m *model) importClipboard() {
	anns, ok := clipboardAnnotations()
	if !ok {
		m.errorMessage = "clipboard holds no annotations"
		return
	}
	n, err := m.engine.Import(anns)
	if err != nil {
		m.errorMessage = err.Error()
		return
	}
	m.successMessage = fmt.Sprintf("imported %d of %d", n, len(anns))
}

// clipboardAnnotations accepts a JSON array of annotations or a stored
// document.
func clipboardAnnotations() ([]annotation.Annotation, bool) {
	text, err := readClipboardText()
	if err != nil {
		return nil, false
	}
	text = strings.TrimSpace(text)
	switch {
	case strings.HasPrefix(text, "["):
		var anns []annotation.Annotation
		if json.Unmarshal([]byte(text), &anns) != nil || len(anns) == 0 {
			return nil, false
		}
		return anns, true
	case strings.HasPrefix(text, "{"):
		doc, err := store.Decode([]byte(text))
		if err != nil || len(doc.Annotations) == 0 {
			return nil, false
		}
		return doc.Annotations, true
	}
	return nil, false
}

// saveStatusText is the save indicator of the status bar.
func saveStatusText(s persist.Snapshot, now time.Time) string {
	switch s.Status {
	case persist.Saving:
		return "saving…"
	case persist.Error:
		if s.Err != nil {
			return "save failed: " + s.Err.Error()
		}
		return "save failed"
	}
	if s.LastSaved.IsZero() {
		return "saved"
	}
	if now.Sub(s.LastSaved) < time.Second {
		return "saved just now"
	}
	return "saved " + humanize.RelTime(s.LastSaved, now, "ago", "from now")
}

func zoomText(scale float64) string {
	return humanize.FtoaWithDigits(scale*100, 0) + "%"
}
