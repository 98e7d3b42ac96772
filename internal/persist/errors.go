package persist

import "errors"

// ErrClosed is returned by operations on a closed Synchronizer.
var ErrClosed = errors.New("synchronizer closed")
