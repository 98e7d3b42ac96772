package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"boxmark/internal/annotation"
	"boxmark/internal/dataset"
	"boxmark/internal/engine"
	"boxmark/internal/logging"
	"boxmark/internal/persist"
	"boxmark/internal/render"
	"boxmark/internal/settings"
	"boxmark/internal/viewport"
)

var storeKinds = []string{settings.StoreFile, settings.StoreMemory, settings.StorePostgres, settings.StoreBlob}

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "boxmark:", err)
		os.Exit(1)
	}
}

func run() error {
	var (
		configPath = flag.String("config", settings.Path(), "Settings file")
		storeKind  = flag.String("store", "", "Annotation store: file, memory, postgres or blob")
		classFile  = flag.String("class-file", "", "JSON class list")
	)
	flag.Usage = func() {
		fmt.Fprintln(flag.CommandLine.Output(), "usage: boxmark [-config path] [-store kind] [-class-file path] <image-dir>")
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() != 1 {
		flag.Usage()
		return errors.New("missing image directory")
	}
	if *storeKind != "" && !slices.Contains(storeKinds, *storeKind) {
		return fmt.Errorf("unknown store %q", *storeKind)
	}

	s, fixed, loadErr := settings.Load(*configPath)
	s.Merge(&settings.Settings{
		Store:   settings.Store{Kind: *storeKind},
		Display: settings.Display{ClassFile: *classFile},
	})

	logger, logFile, err := logging.Open(s.Log.File, s.Log.Level)
	if err != nil {
		return err
	}
	defer logFile.Close()
	if loadErr != nil {
		logger.Warn("settings file ignored", "path", *configPath, "error", loadErr)
	}
	for _, f := range fixed {
		logger.Warn("setting defaulted", "field", f)
	}

	classes, err := loadClasses(s.Display.ClassFile, logger)
	if err != nil {
		return err
	}
	data, err := dataset.Open(flag.Arg(0), logger)
	if err != nil {
		return err
	}

	ctx := context.Background()
	st, err := openStore(ctx, s, data.Root(), logger)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer func() {
		if err := closeStore(st); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	syncer, err := persist.New(st, persist.Options{
		CacheSize:    s.Engine.CacheSize,
		Debounce:     s.Engine.SaveDebounceDuration(),
		RetryDelay:   s.Engine.RetryDelayDuration(),
		ErrorDisplay: s.Engine.ErrorDisplayDuration(),
	}, logger)
	if err != nil {
		return err
	}
	seedAnnotated(ctx, st, syncer, logger)

	eng := engine.New(engine.Config{
		Editor:          s.Editor,
		HistoryCapacity: s.Engine.HistoryCapacity,
	}, classes, syncer, logger)
	sess := &session{}
	eng.Subscribe(engine.ObserverFuncs{
		OnAnnotations: func(_ string, anns []annotation.Annotation) { sess.update(anns, classes) },
	})

	renderer, err := render.New(classes, render.OptionsFrom(s.Editor, s.Display))
	if err != nil {
		return err
	}

	start := 0
	if i, ok := data.NextUnannotated(-1, 1, syncer.IsAnnotated); ok {
		start = i
	}

	m := model{
		settings:     s,
		settingsPath: *configPath,
		logger:       logger,
		engine:       eng,
		sync:         syncer,
		data:         data,
		renderer:     renderer,
		session:      sess,
		index:        start,
	}

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	syncer.OnStatus(func(ev persist.StatusEvent) { p.Send(statusMsg(ev)) })

	_, runErr := p.Run()

	shutdown, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := syncer.Close(shutdown); err != nil {
		logger.Error("failed to flush annotations", "error", err)
		if runErr == nil {
			runErr = fmt.Errorf("flush annotations: %w", err)
		}
	}
	return runErr
}

func tick() tea.Cmd {
	return tea.Tick(statusRefresh, func(t time.Time) tea.Msg { return tickMsg(t) })
}

func (m model) Init() tea.Cmd {
	return tick()
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.syncViewport()
		if m.engine.ImageID() == "" {
			return m, m.gotoImage(m.index)
		}
		return m, nil

	case tickMsg:
		return m, tick()

	case statusMsg:
		return m, nil

	case backgroundMsg:
		if msg.index != m.index {
			return m, nil
		}
		if msg.err != nil {
			m.logger.Error("failed to decode image", "index", msg.index, "error", msg.err)
			m.errorMessage = msg.err.Error()
			return m, nil
		}
		m.background = msg.img
		return m, nil

	case prefetchMsg:
		if msg.err != nil {
			m.logger.Warn("prefetch failed", "error", msg.err)
		}
		return m, nil

	case tea.MouseMsg:
		if m.mode == ModeCanvas && !m.help {
			m.handleMouse(msg)
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg.String())
	}
	return m, nil
}

func (m model) handleKey(key string) (tea.Model, tea.Cmd) {
	if m.help {
		switch key {
		case "j", "down":
			if m.helpScroll < max(0, len(helpLines)-(m.height-1)) {
				m.helpScroll++
			}
		case "k", "up":
			if m.helpScroll > 0 {
				m.helpScroll--
			}
		default:
			m.help = false
			m.helpScroll = 0
		}
		return m, nil
	}

	switch m.mode {
	case ModeConfirm:
		m.mode = ModeCanvas
		if key != "y" && key != "Y" {
			m.successMessage = "cancelled"
			return m, nil
		}
		switch m.confirmAction {
		case ConfirmQuit:
			return m, tea.Quit
		case ConfirmClearImage:
			m.clearImage()
		}
		return m, nil
	case ModeOverview, ModeStats:
		switch key {
		case "esc", "q", "o", "i":
			m.mode = ModeCanvas
		case "]", "[", "{", "}", "pgdown", "pgup", "home", "end":
			return m, m.handleNavigation(key)
		}
		return m, nil
	}

	m.errorMessage, m.successMessage = "", ""
	view := m.engine.View()

	switch key {
	case "q", "ctrl+c":
		if m.sync.Status().Status == persist.Error {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmQuit
			return m, nil
		}
		return m, tea.Quit
	case "?":
		m.help = true

	case "]", "[", "{", "}", "pgdown", "pgup", "home", "end":
		return m, m.handleNavigation(key)
	case "left", "right", "up", "down", "shift+left", "shift+right", "shift+up", "shift+down":
		m.handleNudge(key)
	case "h", "j", "k", "l", "H", "J", "K", "L":
		m.handlePan(key, getMoveSpeed(key))

	case "+", "=":
		view.ZoomCentered(keyZoomStep)
	case "-":
		view.ZoomCentered(1 / keyZoomStep)
	case "0":
		view.Reset()
	case "z":
		m.engine.ZoomToSelection()
	case "r":
		view.Rotate(viewport.Clockwise)
	case "R":
		view.Rotate(viewport.CounterClockwise)
	case "f":
		view.Flip(viewport.Horizontal)
	case "F":
		view.Flip(viewport.Vertical)

	case "u", "ctrl+z":
		m.undo()
	case "U", "ctrl+y":
		m.redo()
	case "delete", "backspace", "x":
		if !m.engine.Delete() {
			m.successMessage = "nothing selected"
		}
	case "X":
		if len(m.engine.Annotations()) > 0 {
			m.mode = ModeConfirm
			m.confirmAction = ConfirmClearImage
		}
	case "c":
		m.copySelection()
	case "p":
		m.pasteClipboard()
	case "P":
		m.importClipboard()
	case "D":
		if !m.engine.Duplicate() {
			m.successMessage = "nothing selected"
		}

	case "a":
		m.engine.SelectAll()
	case "esc":
		m.engine.ClearSelection()
	case "tab":
		m.engine.SelectNext(1)
	case "shift+tab":
		m.engine.SelectNext(-1)

	case "1", "2", "3", "4", "5", "6", "7", "8", "9":
		if c, ok := m.engine.Classes().At(int(key[0] - '1')); ok {
			m.engine.SetActiveClass(c.ID)
		}
	case ".":
		m.engine.CycleClass(1)
	case ",":
		m.engine.CycleClass(-1)
	case "C":
		if !m.engine.ChangeClass(m.engine.ActiveClass()) {
			m.successMessage = "nothing to change"
		}

	case "g", "s", "A":
		m.toggleEditor(key)
	case "T", "m":
		m.toggleDisplay(key)
	case "t":
		m.engine.ToggleAnnotations()

	case "o":
		m.mode = ModeOverview
	case "i":
		m.mode = ModeStats

	case "S":
		if err := m.exportView(); err != nil {
			m.errorMessage = err.Error()
		}
	case "E":
		if err := m.exportAnnotated(); err != nil {
			m.errorMessage = err.Error()
		}
	case "ctrl+r":
		if err := m.sync.Retry(m.engine.ImageID()); err != nil {
			m.errorMessage = err.Error()
		}
	case "W":
		if err := m.settings.Save(m.settingsPath); err != nil {
			m.errorMessage = err.Error()
		} else {
			m.successMessage = "settings saved to " + m.settingsPath
		}
	}
	return m, nil
}

func (m *model) toggleEditor(key string) {
	ed := m.engine.Editor()
	switch key {
	case "g":
		ed.ShowGrid = !ed.ShowGrid
	case "s":
		ed.SnapToGrid = !ed.SnapToGrid
	case "A":
		ed.LockAspectRatio = !ed.LockAspectRatio
	}
	m.engine.SetEditor(ed)
	m.settings.Editor = ed
	m.renderer.SetOptions(render.OptionsFrom(ed, m.settings.Display))
}

func (m *model) toggleDisplay(key string) {
	d := &m.settings.Display
	switch key {
	case "T":
		d.ShowLabels = !d.ShowLabels
	case "m":
		d.ShowMinimap = !d.ShowMinimap
	}
	m.renderer.SetOptions(render.OptionsFrom(m.engine.Editor(), *d))
}

func (m model) View() string {
	if m.width == 0 {
		return "loading…"
	}
	if m.help {
		return m.helpView()
	}
	switch m.mode {
	case ModeOverview:
		return m.overviewView()
	case ModeStats:
		return m.statsView()
	}

	cols, rows := m.canvasSize()
	var result strings.Builder
	for _, line := range m.renderCanvas(cols, rows) {
		result.WriteString(line)
		result.WriteString("\n")
	}
	result.WriteString(m.statusBar(cols))
	return result.String()
}

var (
	barStyle     = lipgloss.NewStyle().Background(lipgloss.Color("#303030")).Foreground(lipgloss.Color("#d0d0d0"))
	savedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#5fd75f"))
	savingStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#ffd75f"))
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff5f5f")).Bold(true)
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#87afff"))
)

func (m model) statusBar(width int) string {
	if m.mode == ModeConfirm {
		prompt := "Save failed for this image. Quit anyway? (y/n)"
		if m.confirmAction == ConfirmClearImage {
			prompt = "Remove every annotation on this image? (y/n)"
		}
		return barStyle.Width(width).Render(errorStyle.Render(prompt))
	}

	img, _ := m.data.At(m.index)
	class := m.engine.Classes().Resolve(m.engine.ActiveClass())
	view := m.engine.View().State()

	left := []string{
		fmt.Sprintf("%d/%d %s", m.index+1, m.data.Len(), img.ID),
		lipgloss.NewStyle().Foreground(lipgloss.Color(class.Color)).Render("■ " + class.Name),
		m.engine.Mode().String(),
		zoomText(view.Scale),
	}
	if view.Rotation != 0 {
		left = append(left, fmt.Sprintf("%d°", view.Rotation))
	}
	if n := len(m.engine.Selection()); n > 0 {
		left = append(left, fmt.Sprintf("%d selected", n))
	}
	ed := m.engine.Editor()
	var flags []string
	if ed.SnapToGrid {
		flags = append(flags, "snap")
	}
	if ed.LockAspectRatio {
		flags = append(flags, "lock")
	}
	if m.engine.Hidden() {
		flags = append(flags, "hidden")
	}
	if len(flags) > 0 {
		left = append(left, strings.Join(flags, ","))
	}

	switch {
	case m.errorMessage != "":
		left = append(left, errorStyle.Render(m.errorMessage))
	case m.successMessage != "":
		left = append(left, messageStyle.Render(m.successMessage))
	}

	snap := m.sync.Status()
	right := saveStatusText(snap, time.Now())
	switch snap.Status {
	case persist.Saving:
		right = savingStyle.Render(right)
	case persist.Error:
		right = errorStyle.Render(right)
	default:
		right = savedStyle.Render(right)
	}

	l := strings.Join(left, " │ ")
	gap := max(1, width-lipgloss.Width(l)-lipgloss.Width(right))
	return barStyle.Width(width).MaxWidth(width).Render(l + strings.Repeat(" ", gap) + right)
}

var helpLines = []string{
	"boxmark help",
	"============",
	"",
	"Mouse:",
	"------",
	"  drag on empty space      Draw a box with the active class",
	"  click / drag on a box    Select / move it",
	"  drag a handle            Resize the selection",
	"  ctrl+click               Add or remove from the selection",
	"  drag on empty space      Marquee select (while something is selected, or with ctrl)",
	"  middle drag, shift+drag  Pan",
	"  wheel                    Zoom about the pointer",
	"  click the minimap        Centre the view there",
	"",
	"Editing:",
	"--------",
	"  arrows / shift+arrows    Nudge the selection",
	"  x, delete                Delete the selection",
	"  X                        Clear every box on this image",
	"  c / p / D                Copy / paste / duplicate",
	"  P                        Import boxes from the clipboard at their own positions",
	"  C                        Give the selection the active class",
	"  a / esc                  Select all / clear selection",
	"  tab / shift+tab          Select next / previous box",
	"  u, ctrl+z / U, ctrl+y    Undo / redo",
	"",
	"Classes:",
	"--------",
	"  1-9                      Pick the active class",
	"  , / .                    Previous / next class",
	"",
	"View:",
	"-----",
	"  h/j/k/l (H/J/K/L)        Pan (faster)",
	"  + / - / 0                Zoom in / out / reset",
	"  z                        Zoom to selection",
	"  r / R                    Rotate clockwise / counter-clockwise",
	"  f / F                    Flip horizontally / vertically",
	"  t                        Hide or show annotations",
	"  g / s / A                Toggle grid / snap to grid / aspect lock",
	"  T / m                    Toggle labels / minimap",
	"",
	"Images:",
	"-------",
	"  ] / [                    Next / previous image",
	"  } / {                    Next / previous unannotated image",
	"  home / end               First / last image",
	"  o                        Dataset overview",
	"  i                        Annotation statistics",
	"",
	"Files:",
	"------",
	"  S                        Export the view as PNG",
	"  E                        Export the annotated image as PNG",
	"  ctrl+r                   Retry a failed save",
	"  W                        Write settings",
	"",
	"  ?                        Toggle this help",
	"  q, ctrl+c                Quit (pending saves are flushed)",
}

func (m model) helpView() string {
	visible := max(1, m.height-1)
	start := min(m.helpScroll, max(0, len(helpLines)-visible))
	end := min(len(helpLines), start+visible)
	return strings.Join(helpLines[start:end], "\n")
}
