package store

import (
	"context"
	"errors"
	"net"
	"syscall"
)

var (
	// ErrNotFound indicates the image has no stored document.
	ErrNotFound = errors.New("annotations not found")
	// ErrValidation marks a rejected payload. It is never retried.
	ErrValidation = errors.New("annotations rejected")
	// ErrUnavailable marks a backend that could not be reached.
	ErrUnavailable = errors.New("store unavailable")
	// ErrEmptyKey indicates an empty image id.
	ErrEmptyKey = errors.New("image id must not be empty")
	// ErrInvalidKey indicates an image id containing a path traversal segment.
	ErrInvalidKey = errors.New("image id contains invalid path segment")
)

// Transient reports whether err is a connection-class failure worth one
// retry. Validation failures and key errors never are.
func Transient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrValidation) || errors.Is(err, ErrEmptyKey) || errors.Is(err, ErrInvalidKey) {
		return false
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, ErrUnavailable) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
