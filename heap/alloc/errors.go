package alloc

import "errors"

// ErrBadSize indicates a request of zero or negative size.
var ErrBadSize = errors.New("alloc: size must be positive")
