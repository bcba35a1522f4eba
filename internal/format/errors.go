package format

import "errors"

var (
	// ErrSignatureMismatch indicates a page header had an unexpected magic.
	ErrSignatureMismatch = errors.New("format: signature mismatch")
	// ErrTruncated indicates the buffer lacked the bytes required for a structure.
	ErrTruncated = errors.New("format: truncated buffer")
	// ErrBadTag indicates a range header carried an unknown tag.
	ErrBadTag = errors.New("format: bad range tag")
	// ErrBadSize indicates a range header declared an impossible size.
	ErrBadSize = errors.New("format: bad range size")
)
