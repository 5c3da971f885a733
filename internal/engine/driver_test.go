package engine

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/banshee-data/kde/internal/column"
	"github.com/banshee-data/kde/internal/config"
	"github.com/banshee-data/kde/internal/kernel"
)

// expectedDensities runs the kernel directly for one population, as the
// oracle for driver output rows.
func expectedDensities(t *testing.T, sample, points []float64) []float64 {
	t.Helper()
	h, err := kernel.Estimate(sample)
	require.NoError(t, err)
	out, err := kernel.Evaluate(sample, h, points)
	require.NoError(t, err)
	return out
}

func TestKDEGroupsSharedPoints(t *testing.T) {
	t.Parallel()

	// Two groups out of one elementwise column: {0: [1,2], 1: [3,4,5]}.
	values := column.Float64FromSlice([]float64{1, 2, 3, 4, 5})
	keys := column.Keys{"0", "0", "1", "1", "1"}
	points := []float64{1, 2, 3, 4, 5}

	out, err := KDE(context.Background(), values, keys, points, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	for i := 0; i < out.Len(); i++ {
		require.False(t, out.IsNull(i), "row %d should not be null", i)
		require.Equal(t, len(points), out.RowLen(i))
		for j, d := range out.Row(i) {
			assert.GreaterOrEqual(t, d, 0.0, "row %d density %d", i, j)
			assert.False(t, math.IsNaN(d) || math.IsInf(d, 0))
		}
	}

	assert.Equal(t, expectedDensities(t, []float64{1, 2}, points), out.Row(0))
	assert.Equal(t, expectedDensities(t, []float64{3, 4, 5}, points), out.Row(1))
}

func TestKDEFirstSeenKeyOrder(t *testing.T) {
	t.Parallel()

	values := column.Float64FromSlice([]float64{10, 20, 11, 30, 21, 12})
	keys := column.Keys{"b", "a", "b", "c", "a", "b"}
	points := []float64{10, 20, 30}

	out, err := KDE(context.Background(), values, keys, points, Options{})
	require.NoError(t, err)
	require.Equal(t, 3, out.Len())

	// Output rows follow first appearance: b, a, c.
	assert.Equal(t, expectedDensities(t, []float64{10, 11, 12}, points), out.Row(0))
	assert.Equal(t, expectedDensities(t, []float64{20, 21}, points), out.Row(1))
	// Group "c" has a single value: degenerate, all zeros.
	assert.Equal(t, []float64{0, 0, 0}, out.Row(2))
}

func TestKDENullValuesDroppedFromPopulation(t *testing.T) {
	t.Parallel()

	values := column.NewFloat64(4)
	values.Append(1)
	values.AppendNull()
	values.Append(2)
	values.Append(3)
	keys := column.Keys{"a", "a", "a", "b"}
	points := []float64{1, 2}

	out, err := KDE(context.Background(), values, keys, points, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())

	// Group "a" keeps only its two non-null values.
	assert.Equal(t, expectedDensities(t, []float64{1, 2}, points), out.Row(0))
}

func TestKDEAllNullGroupFollowsPolicy(t *testing.T) {
	t.Parallel()

	mkInput := func() (*column.Float64, column.Keys) {
		values := column.NewFloat64(3)
		values.Append(1)
		values.Append(2)
		values.AppendNull()
		return values, column.Keys{"ok", "ok", "empty"}
	}
	points := []float64{1.5}

	t.Run("partial failure emits null row", func(t *testing.T) {
		values, keys := mkInput()
		out, err := KDE(context.Background(), values, keys, points, Options{})
		require.NoError(t, err)
		require.Equal(t, 2, out.Len())
		assert.False(t, out.IsNull(0))
		assert.True(t, out.IsNull(1), "all-null group should produce a null row")
	})

	t.Run("fail fast names the group", func(t *testing.T) {
		values, keys := mkInput()
		out, err := KDE(context.Background(), values, keys, points, Options{FailFast: true})
		require.Error(t, err)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrEmptyPopulation)
		assert.Contains(t, err.Error(), `group "empty"`)
	})
}

func TestKDEShapeAndPointErrors(t *testing.T) {
	t.Parallel()

	values := column.Float64FromSlice([]float64{1, 2})
	keys := column.Keys{"a", "a"}

	t.Run("keys length mismatch", func(t *testing.T) {
		_, err := KDE(context.Background(), values, column.Keys{"a"}, []float64{1}, Options{})
		assert.ErrorIs(t, err, ErrShapeMismatch)
	})

	t.Run("nil eval points", func(t *testing.T) {
		_, err := KDE(context.Background(), values, keys, nil, Options{})
		assert.ErrorIs(t, err, ErrMissingInput)
	})

	t.Run("non-finite eval point", func(t *testing.T) {
		_, err := KDE(context.Background(), values, keys, []float64{1, math.NaN()}, Options{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("empty input yields empty output", func(t *testing.T) {
		out, err := KDE(context.Background(), column.NewFloat64(0), column.Keys{}, []float64{1}, Options{})
		require.NoError(t, err)
		assert.Equal(t, 0, out.Len())
	})
}

func TestStaticEvals(t *testing.T) {
	t.Parallel()

	pops := column.ListFromRows([][]float64{
		{1, 2},
		{3, 4, 5},
	})
	points := []float64{1, 2, 3, 4, 5}

	out, err := KDEStaticEvals(context.Background(), pops, points, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, expectedDensities(t, []float64{1, 2}, points), out.Row(0))
	assert.Equal(t, expectedDensities(t, []float64{3, 4, 5}, points), out.Row(1))
}

func TestStaticEvalsEmptyPoints(t *testing.T) {
	t.Parallel()

	pops := column.ListFromRows([][]float64{{1, 2}, {3, 4}})
	out, err := KDEStaticEvals(context.Background(), pops, []float64{}, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	for i := 0; i < 2; i++ {
		assert.False(t, out.IsNull(i), "empty result is a valid empty row, not null")
		assert.Equal(t, 0, out.RowLen(i))
	}
}

func TestStaticEvalsFloat32Populations(t *testing.T) {
	t.Parallel()

	pops := column.ListFromFloat32Rows([][]float32{
		{1, 2},
		{3, 4, 5},
	})
	points := []float64{2.5}

	out, err := KDEStaticEvals(context.Background(), pops, points, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, expectedDensities(t, []float64{1, 2}, points), out.Row(0))
}

func TestDynamicEvalsIndependentLengths(t *testing.T) {
	t.Parallel()

	// Row 0 gets 3 eval points, row 1 gets 2: independent result
	// lengths, no padding.
	pops := column.ListFromRows([][]float64{
		{1, 2},
		{3, 4, 5},
	})
	evals := column.ListFromRows([][]float64{
		{1, 2, 3},
		{4, 5},
	})

	out, err := KDEDynamicEvals(context.Background(), pops, evals, Options{})
	require.NoError(t, err)
	require.Equal(t, 2, out.Len())
	assert.Equal(t, 3, out.RowLen(0))
	assert.Equal(t, 2, out.RowLen(1))
	assert.Equal(t, expectedDensities(t, []float64{1, 2}, []float64{1, 2, 3}), out.Row(0))
	assert.Equal(t, expectedDensities(t, []float64{3, 4, 5}, []float64{4, 5}), out.Row(1))
}

func TestDynamicEvalsRowCountMismatch(t *testing.T) {
	t.Parallel()

	pops := column.ListFromRows([][]float64{{1, 2}, {3, 4}})
	evals := column.ListFromRows([][]float64{{1}})

	// Structural, so it fails the whole call under either policy.
	for _, failFast := range []bool{false, true} {
		_, err := KDEDynamicEvals(context.Background(), pops, evals, Options{FailFast: failFast})
		assert.ErrorIs(t, err, ErrShapeMismatch, "failFast=%v", failFast)
	}
}

func TestDynamicEvalsNullRows(t *testing.T) {
	t.Parallel()

	pops := column.ListFromRows([][]float64{
		{1, 2},
		nil, // null population
		{3, 4, 5},
	})
	evals := column.ListFromRows([][]float64{
		{1, 2},
		{1},
		nil, // null eval points
	})

	t.Run("partial failure isolates the bad rows", func(t *testing.T) {
		out, err := KDEDynamicEvals(context.Background(), pops, evals, Options{})
		require.NoError(t, err)
		require.Equal(t, 3, out.Len())
		assert.False(t, out.IsNull(0))
		assert.True(t, out.IsNull(1))
		assert.True(t, out.IsNull(2))
		assert.Equal(t, expectedDensities(t, []float64{1, 2}, []float64{1, 2}), out.Row(0))
	})

	t.Run("fail fast reports a row index", func(t *testing.T) {
		out, err := KDEDynamicEvals(context.Background(), pops, evals, Options{FailFast: true})
		require.Error(t, err)
		assert.Nil(t, out)
		assert.ErrorIs(t, err, ErrMissingInput)
		assert.Regexp(t, `row [12]`, err.Error())
	})
}

func TestDegeneratePopulations(t *testing.T) {
	t.Parallel()

	// Row 0 has a single value, row 1 zero variance, row 2 is healthy.
	pops := column.ListFromRows([][]float64{
		{7.5},
		{4, 4, 4},
		{1, 2, 3},
	})
	points := []float64{1, 4, 7.5}

	t.Run("default policy yields all-zero rows", func(t *testing.T) {
		out, err := KDEStaticEvals(context.Background(), pops, points, Options{})
		require.NoError(t, err)
		for _, i := range []int{0, 1} {
			require.False(t, out.IsNull(i))
			assert.Equal(t, []float64{0, 0, 0}, out.Row(i), "row %d", i)
		}
		assert.Equal(t, expectedDensities(t, []float64{1, 2, 3}, points), out.Row(2))
	})

	t.Run("strict fail fast rejects and names the row", func(t *testing.T) {
		_, err := KDEStaticEvals(context.Background(), pops, points, Options{
			FailFast:         true,
			StrictDegenerate: true,
		})
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrInvalidInput)
		assert.Regexp(t, `row [01]`, err.Error())
	})

	t.Run("strict partial nulls only degenerate rows", func(t *testing.T) {
		out, err := KDEStaticEvals(context.Background(), pops, points, Options{StrictDegenerate: true})
		require.NoError(t, err)
		assert.True(t, out.IsNull(0))
		assert.True(t, out.IsNull(1))
		assert.False(t, out.IsNull(2))
	})

	t.Run("strict fail fast names the group key", func(t *testing.T) {
		values := column.Float64FromSlice([]float64{5, 5, 1, 2})
		keys := column.Keys{"flat", "flat", "ok", "ok"}
		_, err := KDE(context.Background(), values, keys, points, Options{
			FailFast:         true,
			StrictDegenerate: true,
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), `group "flat"`)
	})
}

func TestRunIsDeterministicAcrossWorkerCounts(t *testing.T) {
	t.Parallel()

	// 64 groups, staggered sizes; row order and values must not depend
	// on scheduling.
	rows := make([][]float64, 64)
	for i := range rows {
		n := 2 + i%7
		rows[i] = make([]float64, n)
		for j := range rows[i] {
			rows[i][j] = float64(i)*0.37 + float64(j)*1.1
		}
	}
	pops := column.ListFromRows(rows)
	points := []float64{0, 5, 10, 20, 40}

	serial, err := KDEStaticEvals(context.Background(), pops, points, Options{Workers: 1})
	require.NoError(t, err)

	for _, workers := range []int{2, 8, 32} {
		parallel, err := KDEStaticEvals(context.Background(), pops, points, Options{Workers: workers})
		require.NoError(t, err)
		assert.Equal(t, serial.Rows(), parallel.Rows(), "workers=%d", workers)
	}
}

func TestRunHonoursCancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	pops := column.ListFromRows([][]float64{{1, 2}, {3, 4}})
	_, err := KDEStaticEvals(ctx, pops, []float64{1}, Options{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestOptionsFromConfig(t *testing.T) {
	t.Parallel()

	workers := 3
	failFast := true
	strict := true
	rule := "silverman"
	cfg := &config.TuningConfig{
		Workers:          &workers,
		FailFast:         &failFast,
		StrictDegenerate: &strict,
		BandwidthRule:    &rule,
	}

	opts := OptionsFromConfig(cfg)
	assert.Equal(t, 3, opts.Workers)
	assert.True(t, opts.FailFast)
	assert.True(t, opts.StrictDegenerate)
	assert.Equal(t, kernel.RuleSilverman, opts.Rule)

	resolved := opts.withDefaults()
	assert.NotEmpty(t, resolved.CallID)
}
