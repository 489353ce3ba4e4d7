package database

import "errors"

// ErrNotFound is returned by repository lookups when no row matches.
// Services translate this to apperr.ErrNotFound at their boundary.
var ErrNotFound = errors.New("entity not found")
