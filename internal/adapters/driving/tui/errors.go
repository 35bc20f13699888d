package tui

import "errors"

// ErrMissingRegistry is returned when the document registry is not provided.
var ErrMissingRegistry = errors.New("tui: document registry is required")
