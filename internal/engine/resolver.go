package engine

import (
	"fmt"
	"math"

	"github.com/banshee-data/kde/internal/column"
)

// resolveShared validates a shared eval-points sequence applied to
// every group (aggregating and static modes). A nil sequence is a
// missing input; pass an empty non-nil slice for intentionally empty
// output rows. Non-finite points fail the whole call here rather than
// once per group.
func resolveShared(points []float64) error {
	if points == nil {
		return fmt.Errorf("eval points: %w", ErrMissingInput)
	}
	for i, p := range points {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return fmt.Errorf("eval points[%d] = %v: %w", i, p, ErrInvalidInput)
		}
	}
	return nil
}

// resolveDynamic validates the per-row eval-points column against the
// populations column (dynamic mode). Only the row counts must agree;
// each row's eval-points length is independent and determines that
// row's result length. Null entries are per-row conditions handled by
// the driver, not here.
func resolveDynamic(pops, evals *column.List) error {
	if pops.Len() != evals.Len() {
		return fmt.Errorf("populations column has %d rows, eval points column has %d: %w",
			pops.Len(), evals.Len(), ErrShapeMismatch)
	}
	return nil
}
