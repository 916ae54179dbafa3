package spatialstat

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors returned by the engine. Match them with errors.Is; most
// call sites wrap them with context.
var (
	// ErrInvalidMethod reports an unrecognized method selector.
	ErrInvalidMethod = errors.New("spatialstat: invalid method")

	// ErrShapeMismatch reports parallel collections of different lengths
	// (points vs labels vs types vs regions) or labels that cannot be resolved.
	ErrShapeMismatch = errors.New("spatialstat: shape mismatch")

	// ErrUnsupportedDimension reports points that are not 2D/3D, mixed
	// dimensionality, or a 2D-only method called with 3D data.
	ErrUnsupportedDimension = errors.New("spatialstat: unsupported dimension")

	// ErrDegenerateInput reports statistically undefined input such as a
	// constant feature row or a graph with zero total weight.
	ErrDegenerateInput = errors.New("spatialstat: degenerate input")

	// ErrEmptyInput reports an empty collection where one element is required.
	ErrEmptyInput = errors.New("spatialstat: empty input")
)

// optionsError builds the "not found, available options are ..." error for
// an unrecognized selector.
func optionsError(name string, options []string) error {
	return fmt.Errorf("%w: %s not found, available options are %s",
		ErrInvalidMethod, name, strings.Join(options, ", "))
}

// shapeError wraps ErrShapeMismatch with the two offending lengths.
func shapeError(what string, got, want int) error {
	return fmt.Errorf("%w: %s has length %d, want %d", ErrShapeMismatch, what, got, want)
}

// unknownLabelError reports a neighbor row entry that names no point.
func unknownLabelError(row, label int) error {
	return fmt.Errorf("%w: row %d references unknown label %d", ErrShapeMismatch, row, label)
}
