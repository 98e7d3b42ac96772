package annotation

import "errors"

var ErrInvalidClass = errors.New("invalid class")
