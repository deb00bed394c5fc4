package repository

import "errors"

// ErrNotFound is returned when a record does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a unique key such as an email is already taken.
var ErrConflict = errors.New("conflict")
