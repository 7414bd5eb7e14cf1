package convert

import (
	"errors"
	"fmt"

	"github.com/tessera3d/meshconv/pkg/formats"
)

// ErrEmptyInput reports a conversion request with no input files.
var ErrEmptyInput = errors.New("no input files provided")

// ErrTooLarge reports geometry exceeding the configured size limits.
var ErrTooLarge = errors.New("geometry exceeds configured limits")

// Conversion direction for format support errors.
const (
	DirectionInput  = "input"
	DirectionOutput = "output"
)

// UnsupportedFormatError reports a format the engine cannot handle in
// the requested direction. Recognized-but-unsupported formats carry
// Known=true so callers can distinguish them from typos.
type UnsupportedFormatError struct {
	Format    string
	Direction string
	Known     bool
}

func (e *UnsupportedFormatError) Error() string {
	if e.Known {
		return fmt.Sprintf("format %q is recognized but not supported as %s", e.Format, e.Direction)
	}
	return fmt.Sprintf("unknown %s format %q", e.Direction, e.Format)
}

// MissingPrimaryFileError reports that no input file matched the
// declared source format.
type MissingPrimaryFileError struct {
	Format string
}

func (e *MissingPrimaryFileError) Error() string {
	return fmt.Sprintf("no input file with extension .%s", e.Format)
}

// MissingCompanionFileError reports a referenced side file absent from
// the input set.
type MissingCompanionFileError struct {
	Format    string
	Companion string
}

func (e *MissingCompanionFileError) Error() string {
	return fmt.Sprintf("%s input references missing companion file %q", e.Format, e.Companion)
}

// BackendUnavailableError reports that the conversion backend for a
// format family could not serve the job.
type BackendUnavailableError struct {
	Family formats.Family
	Cause  error
}

func (e *BackendUnavailableError) Error() string {
	return fmt.Sprintf("%s backend unavailable: %v", e.Family, e.Cause)
}

func (e *BackendUnavailableError) Unwrap() error { return e.Cause }
