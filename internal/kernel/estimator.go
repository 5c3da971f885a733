// Package kernel implements one-dimensional Gaussian kernel density
// estimation: bandwidth selection from a sample and density evaluation
// at a set of query points. All functions are pure and never mutate
// their inputs.
package kernel

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/stat"
)

// Sentinel errors reported by the estimator and evaluator. Callers match
// with errors.Is; wrapped messages carry the offending detail.
var (
	// ErrEmptyPopulation is returned when a statistic requires at least
	// one sample value and none were supplied.
	ErrEmptyPopulation = errors.New("empty population")
	// ErrInvalidInput is returned for non-finite sample values, query
	// points, or bandwidths.
	ErrInvalidInput = errors.New("invalid input")
)

// Rule selects the bandwidth estimation rule.
type Rule int

const (
	// RuleScott is Scott's rule for one dimension: h = s * n^(-1/5),
	// with s the unbiased sample standard deviation.
	RuleScott Rule = iota
	// RuleSilverman is Silverman's rule of thumb,
	// h = (4/3)^(1/5) * s * n^(-1/5), roughly 1.06 * s * n^(-1/5).
	RuleSilverman
)

// String returns the config-file spelling of the rule.
func (r Rule) String() string {
	switch r {
	case RuleScott:
		return "scott"
	case RuleSilverman:
		return "silverman"
	default:
		return fmt.Sprintf("rule(%d)", int(r))
	}
}

// ParseRule parses a bandwidth rule name as it appears in config files.
// Matching is case-insensitive.
func ParseRule(s string) (Rule, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "scott":
		return RuleScott, nil
	case "silverman":
		return RuleSilverman, nil
	default:
		return 0, fmt.Errorf("unknown bandwidth rule %q (want scott or silverman)", s)
	}
}

// silvermanFactor is (4/3)^(1/5), the constant in Silverman's rule of
// thumb for a Gaussian kernel in one dimension.
var silvermanFactor = math.Pow(4.0/3.0, 0.2)

// Estimate derives a smoothing bandwidth from sample using Scott's rule.
// See EstimateWithRule for the degenerate cases.
func Estimate(sample []float64) (float64, error) {
	return EstimateWithRule(sample, RuleScott)
}

// EstimateWithRule derives a smoothing bandwidth from sample using the
// given rule.
//
// An empty sample returns ErrEmptyPopulation. A sample containing a
// non-finite value returns ErrInvalidInput. A single-value sample, or
// one whose values are all identical, has no spread and yields a zero
// bandwidth; Evaluate documents how a zero bandwidth is treated.
func EstimateWithRule(sample []float64, rule Rule) (float64, error) {
	n := len(sample)
	if n == 0 {
		return 0, fmt.Errorf("bandwidth: %w", ErrEmptyPopulation)
	}
	if i, ok := firstNonFinite(sample); ok {
		return 0, fmt.Errorf("bandwidth: sample[%d] = %v: %w", i, sample[i], ErrInvalidInput)
	}
	if n == 1 {
		return 0, nil
	}

	// Unbiased sample standard deviation (divisor n-1).
	s := stat.StdDev(sample, nil)
	if s == 0 {
		// All values identical: no spread, degenerate bandwidth.
		return 0, nil
	}

	h := s * math.Pow(float64(n), -0.2)
	if rule == RuleSilverman {
		h *= silvermanFactor
	}
	return h, nil
}

// firstNonFinite returns the index of the first NaN or Inf in xs.
func firstNonFinite(xs []float64) (int, bool) {
	for i, v := range xs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return i, true
		}
	}
	return 0, false
}
