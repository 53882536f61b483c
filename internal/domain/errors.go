package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Callers match them with errors.Is; concrete errors wrap one of
// these with the station or column that caused them.
var (
	// ErrConnection means the backing store could not be reached.
	ErrConnection = errors.New("backing store unreachable")

	// ErrValidation covers bad coordinates, missing columns and unsupported
	// destinations. The current operation is aborted.
	ErrValidation = errors.New("validation failed")

	// ErrSchema is a validation failure on the shape of the intake table.
	ErrSchema = fmt.Errorf("%w: schema", ErrValidation)

	// ErrUnsupportedFormat is a validation failure on an export destination.
	ErrUnsupportedFormat = fmt.Errorf("%w: unsupported format", ErrValidation)

	// ErrQuadrantExhausted means all 999 sequences of a quadrant are taken.
	ErrQuadrantExhausted = errors.New("quadrant exhausted")

	// ErrImport wraps I/O or query failures while reading the intake source.
	ErrImport = errors.New("import failed")

	// ErrExportRow marks a single row that could not be written.
	ErrExportRow = errors.New("export row failed")

	// ErrTemplateMissing means the structured-file template or its station
	// table does not exist.
	ErrTemplateMissing = errors.New("export template missing")

	// ErrTemplateCopy means the template could not be copied or the copy
	// could not be opened.
	ErrTemplateCopy = errors.New("export template copy failed")

	// ErrRunInProgress is returned when a manager already has a run in flight.
	ErrRunInProgress = errors.New("run already in progress")
)

// CoordinateError names the value and bound that failed validation.
type CoordinateError struct {
	Axis  string // "latitude" or "longitude"
	Value float64
	Min   float64
	Max   float64
}

func (e *CoordinateError) Error() string {
	return fmt.Sprintf("%s %g outside [%g, %g]", e.Axis, e.Value, e.Min, e.Max)
}

func (e *CoordinateError) Unwrap() error { return ErrValidation }

// StationError attaches the station name to an error raised while processing it.
type StationError struct {
	Station string
	Err     error
}

func (e *StationError) Error() string {
	return fmt.Sprintf("station %q: %v", e.Station, e.Err)
}

func (e *StationError) Unwrap() error { return e.Err }
