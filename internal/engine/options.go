package engine

import (
	"runtime"

	"github.com/google/uuid"

	"github.com/banshee-data/kde/internal/config"
	"github.com/banshee-data/kde/internal/kernel"
)

// Options controls one driver call. The zero value is usable: auto
// worker count, partial-failure policy, Scott's bandwidth rule, and a
// fresh call ID.
type Options struct {
	// Workers bounds the per-call worker pool. 0 means one worker per
	// available CPU.
	Workers int

	// FailFast aborts the whole call on the first per-group error
	// instead of recording a null row for that group. The whole-call
	// failure is atomic: results already computed for other groups are
	// discarded.
	FailFast bool

	// StrictDegenerate treats degenerate populations (single value or
	// zero variance, hence zero bandwidth) as per-group invalid-input
	// errors instead of producing all-zero densities.
	StrictDegenerate bool

	// Rule selects the bandwidth estimation rule.
	Rule kernel.Rule

	// CallID tags diagnostics and error messages for this call. Left
	// empty, a fresh UUID is assigned.
	CallID string
}

// OptionsFromConfig builds Options from tuning configuration.
func OptionsFromConfig(cfg *config.TuningConfig) Options {
	return Options{
		Workers:          cfg.GetWorkers(),
		FailFast:         cfg.GetFailFast(),
		StrictDegenerate: cfg.GetStrictDegenerate(),
		Rule:             cfg.GetBandwidthRule(),
	}
}

// withDefaults resolves the zero values for one call.
func (o Options) withDefaults() Options {
	if o.Workers <= 0 {
		o.Workers = runtime.GOMAXPROCS(0)
	}
	if o.CallID == "" {
		o.CallID = uuid.NewString()
	}
	return o
}
