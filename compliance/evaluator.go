// Package compliance turns derived metrics into pass/fail verdicts
// against the requirement set of the active test stage. Metrics are
// stage-independent; switching stages re-runs this package only, never
// the parsers or the analysis engine.
package compliance

import (
	"fmt"
	"math"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// Evaluator applies requirement bounds to metrics.
type Evaluator struct {
	eng *analysis.Engine
}

// New constructs an Evaluator sharing the analysis engine's tunables
// (notably the frequency-grid tolerance).
func New(eng *analysis.Engine) *Evaluator {
	return &Evaluator{eng: eng}
}

// Check compares one metric against one bound. Indeterminate metrics
// propagate without comparison. Flagged grid offsets beyond the
// configured tolerance also force Indeterminate; they are never silently
// accepted. Margin is always room remaining, negative when failing.
func (ev *Evaluator) Check(m model.Metric, b model.Bound) model.Verdict {
	v := model.Verdict{Metric: m, Bound: b}

	if m.Indeterminate {
		v.Status = model.StatusIndeterminate
		v.Reason = m.IndeterminateReason
		return v
	}
	if m.OffsetFlagged && math.Abs(m.GridOffsetGHz) > ev.eng.Config().GridToleranceGHz {
		v.Status = model.StatusIndeterminate
		v.Reason = fmt.Sprintf("nearest sampled frequency is %+g GHz from nominal, tolerance %g GHz",
			m.GridOffsetGHz, ev.eng.Config().GridToleranceGHz)
		return v
	}
	if m.Infinite {
		// Infinite metrics (VSWR at total reflection) fail any finite
		// max bound and satisfy any min bound, with no finite margin.
		v.MarginUnbounded = true
		if b.Max != nil {
			v.Status = model.StatusFail
			v.Reason = "infinite value against finite maximum"
		} else {
			v.Status = model.StatusPass
		}
		return v
	}

	val := m.Value
	switch {
	case b.Min != nil && b.Max != nil:
		if val < *b.Min {
			v.Status = model.StatusFail
			v.Margin = val - *b.Min
		} else if val > *b.Max {
			v.Status = model.StatusFail
			v.Margin = *b.Max - val
		} else {
			v.Status = model.StatusPass
			v.Margin = math.Min(val-*b.Min, *b.Max-val)
		}
	case b.Min != nil:
		v.Margin = val - *b.Min
		if val < *b.Min {
			v.Status = model.StatusFail
		} else {
			v.Status = model.StatusPass
		}
	case b.Max != nil:
		v.Margin = *b.Max - val
		if val > *b.Max {
			v.Status = model.StatusFail
		} else {
			v.Status = model.StatusPass
		}
	default:
		v.Status = model.StatusIndeterminate
		v.Reason = "no bound defined"
	}
	return v
}

// EvaluateSParam produces verdicts for one S-parameter trace analysis.
// Transmission traces check gain bounds, per-sub-band gain bounds,
// flatness, and out-of-band rejection windows; reflection traces check
// worst-case VSWR.
func (ev *Evaluator) EvaluateSParam(a analysis.SParamAnalysis, dut *model.DutConfig, req *model.SParamRequirements) []model.Verdict {
	var out []model.Verdict

	if !a.IsTransmission {
		out = append(out, ev.Check(a.VSWRMax, model.BoundMax(req.VSWRMax)))
		return out
	}

	out = append(out,
		ev.Check(a.GainMin, model.BoundMin(req.GainMinDB)),
		ev.Check(a.GainMax, model.BoundMax(req.GainMaxDB)),
		ev.Check(a.Flatness, model.BoundMax(req.FlatnessMaxDB)),
	)

	prov := model.Provenance{Sources: a.GainCurve.Provenance.Sources, Method: a.GainCurve.Provenance.Method}
	for _, band := range req.GainBands {
		bandMin, bandMax := ev.eng.GainOverBand(a.GainCurve.Curve, band.Band, a.Trace.Param.String(), prov)
		out = append(out,
			ev.Check(bandMin, model.BoundMin(band.MinDB)),
			ev.Check(bandMax, model.BoundMax(band.MaxDB)),
		)
	}

	for _, oob := range req.OutOfBand {
		rej := ev.eng.OOBRejection(a.Trace, dut.Operational, oob.Window)
		out = append(out, ev.Check(rej, model.BoundMin(oob.RejectionMinDB)))
	}
	return out
}

// EvaluatePower produces verdicts for one power/linearity file analysis:
// P1dB per single-tone sweep, then the Pin/Pout/IM3 tolerance curve at
// each requirement point, interpolated on the measured curves.
func (ev *Evaluator) EvaluatePower(a analysis.PowerAnalysis, req *model.PowerRequirements) []model.Verdict {
	var out []model.Verdict

	for _, m := range a.P1dB {
		out = append(out, ev.Check(m, model.BoundMin(req.P1dBMinDBm)))
	}

	for _, pt := range req.PinPoutIM3 {
		for _, curve := range a.PoutCurves {
			out = append(out, ev.Check(ev.curvePoint(curve, pt.PinDBm, "pout"), model.BoundMin(pt.PoutMinDBm)))
		}
		for _, curve := range a.IM3Curves {
			out = append(out, ev.Check(ev.curvePoint(curve, pt.PinDBm, "im3"), model.BoundMin(pt.IM3MinDBc)))
		}
		if pt.IM5MinDBc != nil {
			for _, curve := range a.IM5Curves {
				out = append(out, ev.Check(ev.curvePoint(curve, pt.PinDBm, "im5"), model.BoundMin(*pt.IM5MinDBc)))
			}
		}
	}
	return out
}

// curvePoint derives the point metric "value at requirement Pin" from a
// measured curve metric by linear interpolation, extrapolating at sweep
// edges.
func (ev *Evaluator) curvePoint(curve model.Metric, pinDBm float64, what string) model.Metric {
	name := fmt.Sprintf("%s@pin=%gdBm[%s]", what, pinDBm, curve.Name)
	if curve.Indeterminate {
		return model.IndeterminateMetric(name, curve.Kind, curve.IndeterminateReason, curve.Provenance)
	}
	val, ok := curve.Curve.ValueAt(pinDBm)
	if !ok {
		return model.IndeterminateMetric(name, curve.Kind,
			"sweep has fewer than 2 points, cannot interpolate", curve.Provenance)
	}
	return model.Metric{
		Name: name, Kind: curve.Kind, Unit: curve.Unit,
		Value: val, Provenance: curve.Provenance,
	}
}

// EvaluateNoise produces the worst-case noise figure verdict.
func (ev *Evaluator) EvaluateNoise(a analysis.NoiseAnalysis, req *model.NoiseRequirements) []model.Verdict {
	return []model.Verdict{ev.Check(a.WorstCaseNF, model.BoundMax(req.NFMaxDB))}
}
