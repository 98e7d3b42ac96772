package main

import (
	"image"
	"log/slog"
	"sync"
	"time"

	"boxmark/internal/annotation"
	"boxmark/internal/dataset"
	"boxmark/internal/engine"
	"boxmark/internal/persist"
	"boxmark/internal/render"
	"boxmark/internal/settings"
	"boxmark/internal/stats"
)

type Mode int

const (
	ModeCanvas Mode = iota
	ModeOverview
	ModeStats
	ModeConfirm
)

type ConfirmAction int

const (
	ConfirmQuit ConfirmAction = iota
	ConfirmClearImage
)

type model struct {
	width          int
	height         int
	mode           Mode
	help           bool
	helpScroll     int
	confirmAction  ConfirmAction
	errorMessage   string
	successMessage string

	settings     *settings.Settings
	settingsPath string
	logger       *slog.Logger

	engine   *engine.Engine
	sync     *persist.Synchronizer
	data     *dataset.Dataset
	renderer *render.Renderer
	session  *session

	index      int
	background image.Image
}

// session is shared by every copy of the model. The engine observer writes
// it; View reads it.
type session struct {
	mu      sync.Mutex
	summary stats.Summary
	changed time.Time
}

func (s *session) update(anns []annotation.Annotation, classes *annotation.Registry) {
	sum := stats.Summarize(anns, classes)
	s.mu.Lock()
	s.summary = sum
	s.changed = time.Now()
	s.mu.Unlock()
}

func (s *session) snapshot() (stats.Summary, time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary, s.changed
}

type statusMsg persist.StatusEvent

type backgroundMsg struct {
	index int
	img   image.Image
	err   error
}

type prefetchMsg struct {
	err error
}

type tickMsg time.Time
