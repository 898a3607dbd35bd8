package domain

import "errors"

var (
	ErrNotFound = errors.New("not found")

	// dimension configuration
	ErrInvalidCascadeOrder = errors.New("invalid cascade order")
	ErrEmptyDimensionSet   = errors.New("empty dimension set")

	// tree structure
	ErrDuplicatePath = errors.New("duplicate path")
	ErrParentMissing = errors.New("parent missing")
	ErrNotALeaf      = errors.New("not a leaf")

	// stock
	ErrNegativeStock  = errors.New("negative stock")
	ErrNoActiveColors = errors.New("no active colors")

	// persistence
	ErrConcurrentModification = errors.New("concurrent modification")

	// grouping
	ErrMalformedGroupingRule = errors.New("malformed grouping rule")
)
