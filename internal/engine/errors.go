package engine

import "errors"

var (
	// ErrNoImage is returned by operations that need a loaded image.
	ErrNoImage = errors.New("no image loaded")
	// ErrBusy is returned when an edit arrives mid-gesture.
	ErrBusy = errors.New("pointer gesture in progress")
)
