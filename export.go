package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"boxmark/internal/render"
)

// exportPath names an export file after the current image.
func (m *model) exportPath(suffix string) (string, error) {
	img, ok := m.data.At(m.index)
	if !ok {
		return "", fmt.Errorf("no image")
	}
	dir := m.settings.Display.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}
	stem := strings.TrimSuffix(strings.ReplaceAll(img.ID, "/", "_"), filepath.Ext(img.ID))
	return filepath.Join(dir, stem+suffix), nil
}

// exportView writes the canvas as currently shown, at viewport resolution.
func (m *model) exportView() error {
	path, err := m.exportPath(exportViewSuffix)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.renderer.ExportPNG(f, m.engine.View(), render.SceneFrom(m.engine, m.background)); err != nil {
		return err
	}
	m.successMessage = "exported " + path
	return nil
}

// exportAnnotated writes the full-resolution image with its annotations.
func (m *model) exportAnnotated() error {
	if m.background == nil {
		return fmt.Errorf("image still loading")
	}
	path, err := m.exportPath(exportAnnotatedSuffix)
	if err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := m.renderer.ExportAnnotated(f, m.background, m.engine.Annotations()); err != nil {
		return err
	}
	m.successMessage = "exported " + path
	return nil
}
