package shared

import "errors"

// ErrInvalidRange indicates a malformed or inverted date range.
var ErrInvalidRange = errors.New("invalid date range")
