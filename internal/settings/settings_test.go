package settings

import (
	"os"
	"path/filepath"
	"slices"
	"testing"
	"time"
)

func write(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	s, fixed, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(fixed) != 0 {
		t.Fatalf("defaults needed fixing: %v", fixed)
	}
	if *s != *Default() {
		t.Fatalf("settings = %+v, want defaults", s)
	}
	if s.Engine.SaveDebounceDuration() != 300*time.Millisecond {
		t.Fatalf("debounce = %v", s.Engine.SaveDebounceDuration())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	path := write(t, `
[editor]
snap_to_grid = true
grid_size = 25

[store]
kind = "memory"
`)
	s, _, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Editor.SnapToGrid || s.Editor.GridSize != 25 {
		t.Fatalf("editor = %+v", s.Editor)
	}
	if s.Editor.AnnotationOpacity != 0.7 || !s.Editor.ResetTransformOnImageChange {
		t.Fatalf("unset fields lost their defaults: %+v", s.Editor)
	}
	if s.Store.Kind != StoreMemory {
		t.Fatalf("store kind = %q", s.Store.Kind)
	}
}

func TestMalformedValuesDefaulted(t *testing.T) {
	path := write(t, `
[editor]
grid_size = -4
pixel_move_step = 0
annotation_opacity = 1.5
lock_transform_across_images = true

[engine]
save_debounce = "soon"
history_capacity = 0

[store]
kind = "ftp"
`)
	s, fixed, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := []string{
		"editor.grid_size",
		"editor.pixel_move_step",
		"editor.annotation_opacity",
		"editor.reset_transform_on_image_change",
		"engine.history_capacity",
		"engine.save_debounce",
		"store.kind",
	}
	if !slices.Equal(fixed, want) {
		t.Fatalf("fixed = %v, want %v", fixed, want)
	}
	if s.Editor.GridSize != 10 || s.Editor.PixelMoveStep != 1 || s.Editor.AnnotationOpacity != 0.7 {
		t.Fatalf("editor = %+v", s.Editor)
	}
	if s.Editor.ResetTransformOnImageChange || !s.Editor.LockTransformAcrossImages {
		t.Fatal("lock across images should win over reset")
	}
	if s.Store.Kind != StoreFile {
		t.Fatalf("store kind = %q", s.Store.Kind)
	}
}

func TestUnparseableFileFallsBack(t *testing.T) {
	path := write(t, "[editor\ngrid_size = ")
	s, _, err := Load(path)
	if err == nil {
		t.Fatal("expected parse error")
	}
	if s == nil || s.Editor.GridSize != 10 {
		t.Fatalf("settings not usable after parse error: %+v", s)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv(EnvSnapToGrid, "true")
	t.Setenv(EnvGridSize, "8")
	t.Setenv(EnvAnnotationOpacity, "not-a-number")
	t.Setenv(EnvStoreKind, StorePostgres)

	s, _, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !s.Editor.SnapToGrid || s.Editor.GridSize != 8 {
		t.Fatalf("editor = %+v", s.Editor)
	}
	if s.Editor.AnnotationOpacity != 0.7 {
		t.Fatalf("unparseable env should be ignored, got %v", s.Editor.AnnotationOpacity)
	}
	if s.Store.Kind != StorePostgres {
		t.Fatalf("store kind = %q", s.Store.Kind)
	}
	if err := s.FinalizeStore(); err != nil {
		t.Fatalf("FinalizeStore: %v", err)
	}
	if s.Store.Postgres.Port != 5432 {
		t.Fatalf("postgres defaults not applied: %+v", s.Store.Postgres)
	}
}

func TestFinalizeStoreBlobRequiresCredentials(t *testing.T) {
	s := Default()
	s.Store.Kind = StoreBlob
	if err := s.FinalizeStore(); err == nil {
		t.Fatal("expected blob credentials error")
	}
}

func TestMerge(t *testing.T) {
	s := Default()
	overlay := &Settings{}
	overlay.Editor.LockAspectRatio = true
	overlay.Store.Kind = StoreMemory
	overlay.Display.ClassFile = "classes.json"
	s.Merge(overlay)

	if !s.Editor.LockAspectRatio || s.Store.Kind != StoreMemory || s.Display.ClassFile != "classes.json" {
		t.Fatalf("merged = %+v", s)
	}
	if s.Editor.GridSize != 10 {
		t.Fatal("zero overlay field overwrote base")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), FileName)
	s := Default()
	s.Editor.ShowGrid = true
	s.Display.MinimapSize = 200
	if err := s.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, fixed, err := Load(path)
	if err != nil || len(fixed) != 0 {
		t.Fatalf("Load = %v, %v", fixed, err)
	}
	if *got != *s {
		t.Fatalf("round trip = %+v, want %+v", got, s)
	}
}
