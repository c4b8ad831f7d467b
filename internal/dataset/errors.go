package dataset

import (
	"fmt"

	"github.com/pkg/errors"
)

// ErrInvalidConfig is wrapped by every configuration validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// EmptyInputError is returned when a source directory holds no eligible images.
type EmptyInputError struct {
	Dir string
}

func (e *EmptyInputError) Error() string {
	return fmt.Sprintf("no image files (%s) found in directory: %s", allowedExtList, e.Dir)
}

// DegenerateResizeError is returned when an image cannot survive the configured
// cascade without a dimension reaching zero.
type DegenerateResizeError struct {
	File   string
	Stage  string // "base" or "extra"
	Factor float64
	Width  int // dimensions the stage would produce
	Height int
}

func (e *DegenerateResizeError) Error() string {
	return fmt.Sprintf("%s: %s downsample by %g yields %dx%d", e.File, e.Stage, e.Factor, e.Width, e.Height)
}

// IOError reports an unreadable source or an unwritable destination.
type IOError struct {
	Op   string
	Path string
	Err  error
}

func (e *IOError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.Path, e.Err)
}

func (e *IOError) Unwrap() error { return e.Err }

func ioErr(op, path string, err error) error {
	return &IOError{Op: op, Path: path, Err: err}
}
