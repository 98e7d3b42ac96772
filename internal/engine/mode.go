package engine

import "boxmark/internal/geometry"

// Mode is the interaction state of the pointer.
type Mode int

const (
	Idle Mode = iota
	Panning
	Drawing
	DraggingAnnotation
	ResizingAnnotation
	MarqueeSelecting
)

var modeNames = map[Mode]string{
	Idle:               "idle",
	Panning:            "panning",
	Drawing:            "drawing",
	DraggingAnnotation: "dragging",
	ResizingAnnotation: "resizing",
	MarqueeSelecting:   "marquee",
}

func (m Mode) String() string {
	if n, ok := modeNames[m]; ok {
		return n
	}
	return "unknown"
}

type Button int

const (
	ButtonLeft Button = iota
	ButtonMiddle
	ButtonRight
)

// Modifiers held during a pointer or key event. Ctrl also stands for the
// command key.
type Modifiers struct {
	Shift bool
	Ctrl  bool
}

// PointerEvent is a pointer press, move or release in screen pixels.
type PointerEvent struct {
	Screen geometry.Point
	Button Button
	Mods   Modifiers
}
