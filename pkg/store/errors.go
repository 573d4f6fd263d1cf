package store

import "errors"

// ErrNotFound indicates the referenced conversation does not exist.
var ErrNotFound = errors.New("store: not found")
