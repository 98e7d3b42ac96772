// Package settings loads boxmark's user settings from TOML with environment
// overrides. Malformed values fall back to their defaults; they are reported,
// never fatal.
package settings

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"boxmark/internal/store/blob"
	"boxmark/internal/store/postgres"
)

const FileName = ".boxmark.toml"

// Store kinds.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StorePostgres = "postgres"
	StoreBlob     = "blob"
)

// Editor holds the settings the canvas engine consults on every edit.
type Editor struct {
	SnapToGrid                  bool    `toml:"snap_to_grid"`
	GridSize                    float64 `toml:"grid_size"`
	PixelMoveStep               float64 `toml:"pixel_move_step"`
	ShiftPixelMoveStep          float64 `toml:"shift_pixel_move_step"`
	LockAspectRatio             bool    `toml:"lock_aspect_ratio"`
	ShowGrid                    bool    `toml:"show_grid"`
	AnnotationOpacity           float64 `toml:"annotation_opacity"`
	ResetTransformOnImageChange bool    `toml:"reset_transform_on_image_change"`
	LockTransformAcrossImages   bool    `toml:"lock_transform_across_images"`
}

// Engine tunes history and persistence.
type Engine struct {
	HistoryCapacity int    `toml:"history_capacity"`
	CacheSize       int    `toml:"cache_size"`
	SaveDebounce    string `toml:"save_debounce"`
	RetryDelay      string `toml:"retry_delay"`
	ErrorDisplay    string `toml:"error_display"`
}

func (e Engine) SaveDebounceDuration() time.Duration { return duration(e.SaveDebounce) }
func (e Engine) RetryDelayDuration() time.Duration   { return duration(e.RetryDelay) }
func (e Engine) ErrorDisplayDuration() time.Duration { return duration(e.ErrorDisplay) }

// Display controls the terminal front end.
type Display struct {
	MinimapSize int    `toml:"minimap_size"`
	ShowMinimap bool   `toml:"show_minimap"`
	ShowLabels  bool   `toml:"show_labels"`
	ClassFile   string `toml:"class_file"`
	ExportDir   string `toml:"export_dir"`
}

type Store struct {
	Kind     string          `toml:"kind"`
	Dir      string          `toml:"dir"`
	Postgres postgres.Config `toml:"postgres"`
	Blob     blob.Config     `toml:"blob"`
}

type Log struct {
	Level string `toml:"level"`
	File  string `toml:"file"`
}

type Settings struct {
	Editor  Editor  `toml:"editor"`
	Engine  Engine  `toml:"engine"`
	Display Display `toml:"display"`
	Store   Store   `toml:"store"`
	Log     Log     `toml:"log"`
}

// Default returns the settings used when no file exists.
func Default() *Settings {
	return &Settings{
		Editor: Editor{
			GridSize:                    10,
			PixelMoveStep:               1,
			ShiftPixelMoveStep:          10,
			AnnotationOpacity:           0.7,
			ResetTransformOnImageChange: true,
		},
		Engine: Engine{
			HistoryCapacity: 50,
			CacheSize:       100,
			SaveDebounce:    "300ms",
			RetryDelay:      "2s",
			ErrorDisplay:    "3s",
		},
		Display: Display{
			MinimapSize: 160,
			ShowMinimap: true,
			ShowLabels:  true,
		},
		Store: Store{Kind: StoreFile},
		Log:   Log{Level: "info"},
	}
}

// Path returns the settings file location: BOXMARK_CONFIG when set, else
// ~/.boxmark.toml.
func Path() string {
	if p := os.Getenv(EnvConfig); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return FileName
	}
	return filepath.Join(home, FileName)
}

// Load reads path over the defaults, applies environment overrides and
// finalizes. The returned settings are always usable; a non-nil error
// describes a file that could not be read or parsed, in which case the
// defaults stand in for it.
func Load(path string) (*Settings, []string, error) {
	s := Default()
	var loadErr error

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
	case err != nil:
		loadErr = fmt.Errorf("read settings: %w", err)
	default:
		parsed := Default()
		if err := toml.Unmarshal(data, parsed); err != nil {
			loadErr = fmt.Errorf("parse settings %s: %w", path, err)
		} else {
			s = parsed
		}
	}

	s.loadEnv()
	fixed := s.Finalize()
	return s, fixed, loadErr
}

// Save writes s to path as TOML.
func (s *Settings) Save(path string) error {
	data, err := toml.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode settings: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Merge overwrites non-zero fields from overlay. Booleans can only be
// switched on by an overlay.
func (s *Settings) Merge(overlay *Settings) {
	e, o := &s.Editor, &overlay.Editor
	if o.SnapToGrid {
		e.SnapToGrid = true
	}
	if o.GridSize != 0 {
		e.GridSize = o.GridSize
	}
	if o.PixelMoveStep != 0 {
		e.PixelMoveStep = o.PixelMoveStep
	}
	if o.ShiftPixelMoveStep != 0 {
		e.ShiftPixelMoveStep = o.ShiftPixelMoveStep
	}
	if o.LockAspectRatio {
		e.LockAspectRatio = true
	}
	if o.ShowGrid {
		e.ShowGrid = true
	}
	if o.AnnotationOpacity != 0 {
		e.AnnotationOpacity = o.AnnotationOpacity
	}
	if o.LockTransformAcrossImages {
		e.LockTransformAcrossImages = true
	}

	if overlay.Engine.HistoryCapacity != 0 {
		s.Engine.HistoryCapacity = overlay.Engine.HistoryCapacity
	}
	if overlay.Engine.CacheSize != 0 {
		s.Engine.CacheSize = overlay.Engine.CacheSize
	}
	if overlay.Engine.SaveDebounce != "" {
		s.Engine.SaveDebounce = overlay.Engine.SaveDebounce
	}
	if overlay.Engine.RetryDelay != "" {
		s.Engine.RetryDelay = overlay.Engine.RetryDelay
	}
	if overlay.Engine.ErrorDisplay != "" {
		s.Engine.ErrorDisplay = overlay.Engine.ErrorDisplay
	}

	if overlay.Display.MinimapSize != 0 {
		s.Display.MinimapSize = overlay.Display.MinimapSize
	}
	if overlay.Display.ClassFile != "" {
		s.Display.ClassFile = overlay.Display.ClassFile
	}
	if overlay.Display.ExportDir != "" {
		s.Display.ExportDir = overlay.Display.ExportDir
	}

	if overlay.Store.Kind != "" {
		s.Store.Kind = overlay.Store.Kind
	}
	if overlay.Store.Dir != "" {
		s.Store.Dir = overlay.Store.Dir
	}
	s.Store.Postgres.Merge(&overlay.Store.Postgres)
	s.Store.Blob.Merge(&overlay.Store.Blob)

	if overlay.Log.Level != "" {
		s.Log.Level = overlay.Log.Level
	}
	if overlay.Log.File != "" {
		s.Log.File = overlay.Log.File
	}
}

// Finalize replaces every malformed value with its default and returns the
// names of the settings it replaced.
func (s *Settings) Finalize() []string {
	d := Default()
	var fixed []string
	fix := func(name string, bad bool, apply func()) {
		if bad {
			apply()
			fixed = append(fixed, name)
		}
	}

	e := &s.Editor
	fix("editor.grid_size", !positive(e.GridSize), func() { e.GridSize = d.Editor.GridSize })
	fix("editor.pixel_move_step", !positive(e.PixelMoveStep), func() { e.PixelMoveStep = d.Editor.PixelMoveStep })
	fix("editor.shift_pixel_move_step", !positive(e.ShiftPixelMoveStep), func() { e.ShiftPixelMoveStep = d.Editor.ShiftPixelMoveStep })
	fix("editor.annotation_opacity", !unit(e.AnnotationOpacity), func() { e.AnnotationOpacity = d.Editor.AnnotationOpacity })
	fix("editor.reset_transform_on_image_change", e.LockTransformAcrossImages && e.ResetTransformOnImageChange, func() {
		e.ResetTransformOnImageChange = false
	})

	en := &s.Engine
	fix("engine.history_capacity", en.HistoryCapacity < 1, func() { en.HistoryCapacity = d.Engine.HistoryCapacity })
	fix("engine.cache_size", en.CacheSize < 1, func() { en.CacheSize = d.Engine.CacheSize })
	fix("engine.save_debounce", !validDuration(en.SaveDebounce, true), func() { en.SaveDebounce = d.Engine.SaveDebounce })
	fix("engine.retry_delay", !validDuration(en.RetryDelay, false), func() { en.RetryDelay = d.Engine.RetryDelay })
	fix("engine.error_display", !validDuration(en.ErrorDisplay, false), func() { en.ErrorDisplay = d.Engine.ErrorDisplay })

	fix("display.minimap_size", s.Display.MinimapSize < 16, func() { s.Display.MinimapSize = d.Display.MinimapSize })

	switch s.Store.Kind {
	case StoreFile, StoreMemory, StorePostgres, StoreBlob:
	default:
		fix("store.kind", true, func() { s.Store.Kind = d.Store.Kind })
	}

	switch s.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		fix("log.level", true, func() { s.Log.Level = d.Log.Level })
	}
	return fixed
}

// FinalizeStore finalizes the section for the selected store kind. Unlike
// editor settings, a broken backend section is an error.
func (s *Settings) FinalizeStore() error {
	switch s.Store.Kind {
	case StorePostgres:
		if err := s.Store.Postgres.Finalize(postgresEnv); err != nil {
			return fmt.Errorf("store.postgres: %w", err)
		}
	case StoreBlob:
		if err := s.Store.Blob.Finalize(blobEnv); err != nil {
			return fmt.Errorf("store.blob: %w", err)
		}
	}
	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 0) && !math.IsNaN(v)
}

func unit(v float64) bool {
	return v >= 0 && v <= 1
}

func validDuration(s string, allowZero bool) bool {
	d, err := time.ParseDuration(s)
	if err != nil {
		return false
	}
	return d > 0 || (allowZero && d == 0)
}

func duration(s string) time.Duration {
	d, _ := time.ParseDuration(s)
	return d
}
