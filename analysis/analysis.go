// Package analysis derives metrics from parsed measurement data. Every
// operation is a pure function of (traces/records, DutConfig): nothing
// here consults requirement bounds, so derived metrics are valid across
// all test stages and stage switches never force re-analysis.
package analysis

import (
	"fmt"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// Config carries the tunables of the numeric pipeline.
type Config struct {
	// GridToleranceGHz is the largest nominal-vs-sampled frequency offset
	// the evaluator will accept before declaring a metric indeterminate.
	// The nearest-sample policy always records the offset; this constant
	// only decides how much of it is tolerable.
	GridToleranceGHz float64

	// P1dBLinearWindowDB bounds how far a leading sweep point's gain may
	// sit from the first point's gain and still count as linear region.
	P1dBLinearWindowDB float64

	// P1dBCompressionDB is the deviation from the small-signal line that
	// defines the compression point. 1 dB by definition.
	P1dBCompressionDB float64

	// MinLinearPoints is the smallest linear region a P1dB fit accepts.
	MinLinearPoints int
}

// DefaultConfig returns the documented defaults.
func DefaultConfig() Config {
	return Config{
		GridToleranceGHz:   0.01,
		P1dBLinearWindowDB: 0.2,
		P1dBCompressionDB:  1.0,
		MinLinearPoints:    3,
	}
}

// Engine computes derived metrics under one Config.
type Engine struct {
	cfg Config
}

// New constructs an Engine, filling zero-valued tunables from defaults.
func New(cfg Config) *Engine {
	def := DefaultConfig()
	if cfg.GridToleranceGHz <= 0 {
		cfg.GridToleranceGHz = def.GridToleranceGHz
	}
	if cfg.P1dBLinearWindowDB <= 0 {
		cfg.P1dBLinearWindowDB = def.P1dBLinearWindowDB
	}
	if cfg.P1dBCompressionDB <= 0 {
		cfg.P1dBCompressionDB = def.P1dBCompressionDB
	}
	if cfg.MinLinearPoints <= 0 {
		cfg.MinLinearPoints = def.MinLinearPoints
	}
	return &Engine{cfg: cfg}
}

// Config returns the engine's effective configuration.
func (e *Engine) Config() Config { return e.cfg }

func bandLabel(r model.FrequencyRange) string {
	return fmt.Sprintf("%g-%g GHz", r.MinGHz, r.MaxGHz)
}
