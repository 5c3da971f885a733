package engine

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/banshee-data/kde/internal/column"
	"github.com/banshee-data/kde/internal/kernel"
	"github.com/banshee-data/kde/internal/monitoring"
)

// groupTask is the unit of per-group work: one population and the eval
// points it is scored against. Tasks share nothing but the (immutable)
// shared eval-points slice, so they run without locking.
type groupTask struct {
	label      string // "group \"x\"" or "row 4", for diagnostics and errors
	sample     []float64
	points     []float64
	sampleNull bool
	pointsNull bool
}

// KDE is the aggregating mode: it partitions the elementwise values
// column by group key, estimates a density per distinct key, and
// returns one result row per key in first-seen order. That order is
// the canonical contract, not an accident of map iteration. Null value
// entries are dropped from their group's population; a key whose
// values are all null still forms a group, whose empty population is
// then subject to the failure policy.
//
// The shared eval points are applied to every group; each output row
// has length len(evalPoints).
func KDE(ctx context.Context, values *column.Float64, keys column.Keys, evalPoints []float64, opts Options) (*column.List, error) {
	opts = opts.withDefaults()
	if values.Len() != len(keys) {
		return nil, wrapCall(opts, fmt.Errorf("values column has %d rows, keys column has %d: %w",
			values.Len(), len(keys), ErrShapeMismatch))
	}
	if err := resolveShared(evalPoints); err != nil {
		return nil, wrapCall(opts, err)
	}

	// Call-scoped partition map; discarded when the call returns.
	order := make([]string, 0, 16)
	parts := make(map[string][]float64, 16)
	for i := 0; i < values.Len(); i++ {
		k := keys[i]
		if _, seen := parts[k]; !seen {
			parts[k] = []float64{}
			order = append(order, k)
		}
		if values.IsNull(i) {
			continue
		}
		parts[k] = append(parts[k], values.Value(i))
	}

	tasks := make([]groupTask, len(order))
	for i, k := range order {
		tasks[i] = groupTask{
			label:  fmt.Sprintf("group %q", k),
			sample: parts[k],
			points: evalPoints,
		}
	}
	return run(ctx, opts, tasks)
}

// KDEStaticEvals is the static mode: each input row already is one
// population, and the shared eval points are applied to every row.
// Output row i corresponds to input row i and has length
// len(evalPoints); a null population row yields a null output row (or
// fails the call under fail-fast).
func KDEStaticEvals(ctx context.Context, pops *column.List, evalPoints []float64, opts Options) (*column.List, error) {
	opts = opts.withDefaults()
	if err := resolveShared(evalPoints); err != nil {
		return nil, wrapCall(opts, err)
	}

	tasks := make([]groupTask, pops.Len())
	for i := range tasks {
		tasks[i] = groupTask{
			label:      fmt.Sprintf("row %d", i),
			sample:     pops.Row(i),
			points:     evalPoints,
			sampleNull: pops.IsNull(i),
		}
	}
	return run(ctx, opts, tasks)
}

// KDEDynamicEvals is the dynamic mode: populations and eval points are
// parallel list columns, and each row's eval-points length determines
// that row's result length independently. The two columns must have
// equal row counts; a mismatch is a whole-call ErrShapeMismatch. A null
// population or null eval-points entry is a per-row missing input.
func KDEDynamicEvals(ctx context.Context, pops, evals *column.List, opts Options) (*column.List, error) {
	opts = opts.withDefaults()
	if err := resolveDynamic(pops, evals); err != nil {
		return nil, wrapCall(opts, err)
	}

	tasks := make([]groupTask, pops.Len())
	for i := range tasks {
		tasks[i] = groupTask{
			label:      fmt.Sprintf("row %d", i),
			sample:     pops.Row(i),
			points:     evals.Row(i),
			sampleNull: pops.IsNull(i),
			pointsNull: evals.IsNull(i),
		}
	}
	return run(ctx, opts, tasks)
}

// run executes the per-group tasks on a bounded worker pool and
// assembles the output column. Each task writes into its own slot of
// the results slice, indexed by canonical position, so completion order
// never affects the observable row order.
func run(ctx context.Context, opts Options, tasks []groupTask) (*column.List, error) {
	results := make([][]float64, len(tasks))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.Workers)
	for i := range tasks {
		i := i
		g.Go(func() error {
			// Cooperative cancellation: under fail-fast the first error
			// cancels gctx and outstanding tasks bail out here.
			select {
			case <-gctx.Done():
				return gctx.Err()
			default:
			}

			out, err := computeGroup(opts, tasks[i])
			if err != nil {
				err = fmt.Errorf("%s: %w", tasks[i].label, err)
				if opts.FailFast {
					return err
				}
				monitoring.Logf("kde call %s: %v (emitting null row)", opts.CallID, err)
				return nil
			}
			results[i] = out
			monitoring.Debugf("kde call %s: %s: %d samples -> %d densities",
				opts.CallID, tasks[i].label, len(tasks[i].sample), len(out))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		// Fail-fast is atomic: partial results are discarded.
		return nil, wrapCall(opts, err)
	}
	return column.ListFromRows(results), nil
}

// computeGroup estimates the bandwidth and evaluates the density for
// one group.
func computeGroup(opts Options, t groupTask) ([]float64, error) {
	if t.sampleNull {
		return nil, fmt.Errorf("population: %w", ErrMissingInput)
	}
	if t.pointsNull {
		return nil, fmt.Errorf("eval points: %w", ErrMissingInput)
	}

	h, err := kernel.EstimateWithRule(t.sample, opts.Rule)
	if err != nil {
		return nil, err
	}
	if h == 0 && opts.StrictDegenerate {
		return nil, fmt.Errorf("degenerate population (no spread): %w", ErrInvalidInput)
	}
	return kernel.Evaluate(t.sample, h, t.points)
}

func wrapCall(opts Options, err error) error {
	return fmt.Errorf("kde call %s: %w", opts.CallID, err)
}
