package drone

import (
	"context"
	"errors"
)

var (
	// ErrClosed is returned by every operation once the client or transport is closed.
	ErrClosed = errors.New("drone connection closed")
	// ErrInvalidEndpoint is returned when host or ports are unusable.
	ErrInvalidEndpoint = errors.New("invalid drone endpoint")
)

// IsShutdown reports whether err was caused by Close or by cancellation,
// i.e. an expected outcome while tearing down.
func IsShutdown(err error) bool {
	return errors.Is(err, ErrClosed) || errors.Is(err, context.Canceled)
}
