// Package repository defines error types that are reused across multiple
// repositories. These sentinel values allow higher layers such as the
// booking workflow and the handlers to distinguish between different
// failure scenarios without depending on a particular storage engine.
package repository

import "errors"

// ErrNotFound is returned when a lot, reservation or payment row does
// not exist.  Both the MySQL and the in-memory store return it in place
// of sql.ErrNoRows.
var ErrNotFound = errors.New("not found")

// ErrConflict is returned when a write violates a uniqueness constraint,
// such as a second payment for the same reservation or a duplicated
// access code.
var ErrConflict = errors.New("conflict")

// ErrEmailExists is returned when registering an email that is already
// taken.
var ErrEmailExists = errors.New("email already exists")
