package dataset

import "errors"

var (
	ErrEmpty    = errors.New("no images found")
	ErrNotFound = errors.New("image not found")
)
