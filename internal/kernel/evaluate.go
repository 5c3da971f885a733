package kernel

import (
	"fmt"
	"math"
)

// invSqrt2Pi is 1/sqrt(2*pi), the normalising constant of the standard
// normal kernel.
const invSqrt2Pi = 0.3989422804014327

// Evaluate computes the Gaussian kernel density estimate of sample with
// bandwidth h at each query point, returning one density per point in
// the same order.
//
// For h > 0 the density at x is (1/(n*h)) * sum_i phi((x-sample_i)/h)
// with phi the standard normal pdf. A zero bandwidth marks a degenerate
// population (fewer than two distinct values); the result is then all
// zeros rather than an approximated point mass, since exact float
// matches against the spike location are unreliable. A negative or
// non-finite bandwidth, or a non-finite sample value or query point,
// returns ErrInvalidInput. An empty points slice returns an empty,
// non-nil result.
//
// Evaluate is a pure function: identical inputs produce bit-identical
// output, and sample and points are never mutated.
func Evaluate(sample []float64, h float64, points []float64) ([]float64, error) {
	dst := make([]float64, len(points))
	if err := EvaluateInto(dst, sample, h, points); err != nil {
		return nil, err
	}
	return dst, nil
}

// EvaluateInto is Evaluate writing into a caller-provided buffer, for
// callers that reuse row buffers across many groups. dst must have
// exactly len(points) elements.
func EvaluateInto(dst, sample []float64, h float64, points []float64) error {
	if len(dst) != len(points) {
		return fmt.Errorf("evaluate: dst length %d != points length %d: %w", len(dst), len(points), ErrInvalidInput)
	}
	if h < 0 || math.IsNaN(h) || math.IsInf(h, 0) {
		return fmt.Errorf("evaluate: bandwidth %v: %w", h, ErrInvalidInput)
	}
	if i, ok := firstNonFinite(sample); ok {
		return fmt.Errorf("evaluate: sample[%d] = %v: %w", i, sample[i], ErrInvalidInput)
	}
	if i, ok := firstNonFinite(points); ok {
		return fmt.Errorf("evaluate: points[%d] = %v: %w", i, points[i], ErrInvalidInput)
	}

	if h == 0 || len(sample) == 0 {
		for i := range dst {
			dst[i] = 0
		}
		return nil
	}

	// Hot loop: O(len(sample) * len(points)). Factors independent of the
	// query point are hoisted so the inner body is a subtract, a multiply
	// and an exp over contiguous buffers.
	invH := 1 / h
	norm := invSqrt2Pi / (float64(len(sample)) * h)
	for i, x := range points {
		var sum float64
		for _, s := range sample {
			u := (x - s) * invH
			sum += math.Exp(-0.5 * u * u)
		}
		dst[i] = sum * norm
	}
	return nil
}
