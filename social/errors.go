// Package social holds the error taxonomy and clock shared by the
// friendship, engagement, ranking, badge and notification packages.
package social

import (
	"errors"
	"time"
)

// Callers match these with errors.Is; services wrap them with context.
var (
	ErrNotFound         = errors.New("not found")
	ErrNotAuthorized    = errors.New("not authorized")
	ErrDuplicateRequest = errors.New("an active relationship already exists")
	ErrDuplicateLike    = errors.New("like already exists")
	ErrDuplicate        = errors.New("already exists")
	ErrSelfReference    = errors.New("cannot target yourself")
	ErrAlreadyResolved  = errors.New("already resolved")
	ErrInvalidInput     = errors.New("invalid input")
)

// Clock returns the current time. Services take one so tests can pin it.
type Clock func() time.Time

// SystemClock is the wall clock in UTC.
func SystemClock() time.Time { return time.Now().UTC() }
