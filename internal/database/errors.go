package database

import "errors"

// ErrNotFound is returned by mutations that target a missing row.
// Lookups return (nil, nil) instead.
var ErrNotFound = errors.New("not found")
