// Package engine drives grouped kernel density estimation over columns:
// it partitions input values by group key (or accepts pre-grouped rows),
// estimates a bandwidth and evaluates the density per group on a worker
// pool, and assembles one variable-length result row per group in
// canonical order.
package engine

import (
	"errors"

	"github.com/banshee-data/kde/internal/kernel"
)

// Error kinds surfaced by the driver. ErrShapeMismatch is always a
// whole-call failure; the others are per-group and follow the
// configured failure policy (see Options.FailFast). Wrapped messages
// carry the call ID and the offending group key or row index.
var (
	// ErrEmptyPopulation marks a zero-length sample where a statistic
	// requires at least one value.
	ErrEmptyPopulation = kernel.ErrEmptyPopulation
	// ErrInvalidInput marks non-finite sample values or eval points.
	ErrInvalidInput = kernel.ErrInvalidInput
	// ErrShapeMismatch marks a row-count mismatch between the
	// populations and eval-points columns in dynamic mode, or between
	// the values and keys columns in aggregating mode.
	ErrShapeMismatch = errors.New("shape mismatch")
	// ErrMissingInput marks a null population or null eval-points entry
	// for a given row or group.
	ErrMissingInput = errors.New("missing input")
)
