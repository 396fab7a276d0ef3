package index

import "errors"

var (
	// ErrIndexNotBuilt is returned when the store holds no completed build.
	ErrIndexNotBuilt = errors.New("index not built")

	// ErrVariantMissing is returned when a requested embedding variant was not built.
	ErrVariantMissing = errors.New("embedding variant not built")

	// ErrInconsistentIndex is returned when the chunk table, key mapping and
	// vector collections disagree.
	ErrInconsistentIndex = errors.New("inconsistent index")

	// ErrDimensionMismatch is returned when vectors of one index differ in length.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
)
