package cinder

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyRegion is wrapped by a CaptureError when the region has no area.
	ErrEmptyRegion = errors.New("cinder: region has zero area")
	// ErrSessionClosed is returned by Session.Render after Close.
	ErrSessionClosed = errors.New("cinder: session closed")
	// ErrBusy is returned by Effect.Activate while a playback is in flight.
	ErrBusy = errors.New("cinder: effect already running")
)

// CaptureError reports that the region could not be snapshotted.
type CaptureError struct {
	Err error
}

func (e *CaptureError) Error() string {
	return fmt.Sprintf("cinder: capture: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// SetupError reports that a GPU-side object could not be created. Stage names
// the object: "surface", "texture", "mesh", "program", "attach".
type SetupError struct {
	Stage string
	Err   error
}

func (e *SetupError) Error() string {
	return fmt.Sprintf("cinder: setup %s: %v", e.Stage, e.Err)
}

func (e *SetupError) Unwrap() error { return e.Err }
