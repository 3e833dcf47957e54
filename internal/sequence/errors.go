package sequence

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidConfig is wrapped by every ConfigError.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrDestroyed is returned for work that settles after teardown and for
	// operations on a destroyed engine.
	ErrDestroyed = errors.New("image sequence destroyed")

	// ErrIndexOutOfRange is returned when a frame index is outside [0, N).
	ErrIndexOutOfRange = errors.New("frame index out of range")

	// ErrNotStarted is returned by operations that need a started engine.
	ErrNotStarted = errors.New("engine not started")

	// ErrAlreadyStarted is returned by a second call to Engine.Start.
	ErrAlreadyStarted = errors.New("engine already started")
)

// ConfigError reports a missing or invalid construction input.
type ConfigError struct {
	Field  string
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("%s: %s %s", ErrInvalidConfig, e.Field, e.Reason)
}

func (e *ConfigError) Unwrap() error { return ErrInvalidConfig }

// LoadError reports that a single frame failed to fetch or decode.
type LoadError struct {
	Index   int
	Locator string
	Err     error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("load frame %d (%s): %v", e.Index, e.Locator, e.Err)
}

func (e *LoadError) Unwrap() error { return e.Err }
