package analysis

import (
	"fmt"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// PowerAnalysis holds the stage-independent metrics derived from one
// power/linearity file: a P1dB scalar and Pout-vs-Pin curve per
// single-tone sweep, and IM3/IM5-vs-Pin curves per two-tone sweep.
type PowerAnalysis struct {
	File *model.PowerFile

	P1dB       []model.Metric
	PoutCurves []model.Metric
	IM3Curves  []model.Metric
	IM5Curves  []model.Metric
}

// Metrics lists the analysis' metrics in reporting order.
func (a PowerAnalysis) Metrics() []model.Metric {
	out := make([]model.Metric, 0, len(a.P1dB)+len(a.PoutCurves)+len(a.IM3Curves)+len(a.IM5Curves))
	out = append(out, a.P1dB...)
	out = append(out, a.PoutCurves...)
	out = append(out, a.IM3Curves...)
	out = append(out, a.IM5Curves...)
	return out
}

func sweepTag(s model.PowerSweep) string {
	tag := fmt.Sprintf("%gGHz", s.FreqGHz())
	if s.Chain != model.ChainUnknown {
		tag += "_" + s.Chain.String()
	}
	return tag
}

// AnalyzePower derives metrics from a parsed power/linearity file.
// Single-tone sweeps feed compression analysis; two-tone sweeps feed
// intermodulation analysis. Single-tone files never produce IM3 metrics.
func (e *Engine) AnalyzePower(file *model.PowerFile) PowerAnalysis {
	a := PowerAnalysis{File: file}
	for _, sweep := range file.Sweeps {
		switch sweep.Mode {
		case model.ModeSingleTone:
			a.P1dB = append(a.P1dB, e.P1dB(sweep, file.SourceFile))
			a.PoutCurves = append(a.PoutCurves, poutCurve(sweep, file.SourceFile))
		case model.ModeTwoTone:
			im3, im5 := imCurves(sweep, file.SourceFile)
			a.IM3Curves = append(a.IM3Curves, im3)
			a.IM5Curves = append(a.IM5Curves, im5)
		}
	}
	if file.IncompleteFrequencySet {
		// Per-sweep metrics stay valid on their own frequency, but any
		// consumer reasoning across the full frequency set needs to see
		// the incompleteness on the metric itself.
		note := fmt.Sprintf("incomplete frequency set (%d of 3)", len(file.Frequencies))
		for _, metrics := range [][]model.Metric{a.P1dB, a.PoutCurves, a.IM3Curves, a.IM5Curves} {
			for i := range metrics {
				metrics[i].Provenance.Method += "; " + note
			}
		}
	}
	return a
}

// P1dB locates the 1 dB compression point of a single-tone sweep: a
// reference line of slope one is fitted through the low-power linear
// region, and the compression point is the first input power at which
// measured output sits exactly 1 dB below that line, linearly
// interpolated between bracketing samples. The metric value is the input
// power in dBm.
func (e *Engine) P1dB(sweep model.PowerSweep, source string) model.Metric {
	name := fmt.Sprintf("p1db_%s", sweepTag(sweep))
	prov := model.Provenance{
		Sources: []string{source},
		Method:  "1 dB deviation from small-signal line fitted over leading linear region",
	}

	if len(sweep.Records) == 0 {
		return model.IndeterminateMetric(name, model.TestPowerLinearity, "empty sweep", prov)
	}

	// Linear region: leading points whose gain stays within the window
	// of the first point's gain.
	refGain0 := sweep.Records[0].PowerMeterDBm - sweep.Records[0].PinDBm
	var gains []float64
	for _, rec := range sweep.Records {
		g := rec.PowerMeterDBm - rec.PinDBm
		if g < refGain0-e.cfg.P1dBLinearWindowDB || g > refGain0+e.cfg.P1dBLinearWindowDB {
			break
		}
		gains = append(gains, g)
	}
	if len(gains) < e.cfg.MinLinearPoints {
		return model.IndeterminateMetric(name, model.TestPowerLinearity,
			fmt.Sprintf("linear region has %d points, need %d", len(gains), e.cfg.MinLinearPoints), prov)
	}
	refGain := 0.0
	for _, g := range gains {
		refGain += g
	}
	refGain /= float64(len(gains))

	// Walk the sweep for the first point deviating by the compression
	// threshold, then interpolate the exact crossing.
	prevDev, prevPin := 0.0, sweep.Records[0].PinDBm
	for i, rec := range sweep.Records {
		dev := (refGain + rec.PinDBm) - rec.PowerMeterDBm
		if dev >= e.cfg.P1dBCompressionDB {
			pin := rec.PinDBm
			if i > 0 && dev != prevDev {
				frac := (e.cfg.P1dBCompressionDB - prevDev) / (dev - prevDev)
				pin = prevPin + frac*(rec.PinDBm-prevPin)
			}
			return model.Metric{
				Name: name, Kind: model.TestPowerLinearity, Unit: "dBm",
				Value: pin, Provenance: prov,
			}
		}
		prevDev, prevPin = dev, rec.PinDBm
	}

	return model.IndeterminateMetric(name, model.TestPowerLinearity,
		"no 1 dB compression observed within sweep", prov)
}

func poutCurve(sweep model.PowerSweep, source string) model.Metric {
	curve := make(model.Curve, 0, len(sweep.Records))
	for _, rec := range sweep.Records {
		curve = append(curve, model.CurvePoint{X: rec.PinDBm, Y: rec.PowerMeterDBm})
	}
	return model.Metric{
		Name: fmt.Sprintf("pout_vs_pin_%s", sweepTag(sweep)),
		Kind: model.TestPowerLinearity, Unit: "dBm",
		Curve: curve,
		Provenance: model.Provenance{
			Sources: []string{source},
			Method:  "power meter reading per input level, single tone",
		},
	}
}

// imCurves builds the IM3 and IM5 dBc curves of a two-tone sweep. Per
// record the worst case is taken: the weaker fundamental marker minus
// the stronger product marker, reported as positive dBc (carrier minus
// product), so larger is better.
func imCurves(sweep model.PowerSweep, source string) (im3, im5 model.Metric) {
	curve3 := make(model.Curve, 0, len(sweep.Records))
	curve5 := make(model.Curve, 0, len(sweep.Records))
	for _, rec := range sweep.Records {
		fund := min(rec.Markers[0], rec.Markers[1])
		curve3 = append(curve3, model.CurvePoint{X: rec.PinDBm, Y: fund - max(rec.Markers[2], rec.Markers[3])})
		curve5 = append(curve5, model.CurvePoint{X: rec.PinDBm, Y: fund - max(rec.Markers[4], rec.Markers[5])})
	}
	prov3 := model.Provenance{
		Sources: []string{source},
		Method:  "min(fundamental markers) - max(IM3 markers), two tone",
	}
	prov5 := prov3
	prov5.Method = "min(fundamental markers) - max(IM5 markers), two tone"

	im3 = model.Metric{
		Name: fmt.Sprintf("im3_vs_pin_%s", sweepTag(sweep)),
		Kind: model.TestPowerLinearity, Unit: "dBc",
		Curve: curve3, Provenance: prov3,
	}
	im5 = model.Metric{
		Name: fmt.Sprintf("im5_vs_pin_%s", sweepTag(sweep)),
		Kind: model.TestPowerLinearity, Unit: "dBc",
		Curve: curve5, Provenance: prov5,
	}
	return
}
