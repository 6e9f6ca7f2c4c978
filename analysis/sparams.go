package analysis

import (
	"fmt"
	"math"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// SParamAnalysis holds the stage-independent metrics derived from one
// S-parameter trace. Transmission traces carry gain statistics and the
// full gain curve; reflection traces carry worst-case VSWR.
type SParamAnalysis struct {
	Trace          *model.MeasurementTrace
	IsTransmission bool

	// GainCurve is the full sampled gain-vs-frequency relation (dB over
	// GHz). The evaluator interrogates it for stage-dependent sub-band
	// and out-of-band checks without re-parsing or re-analyzing.
	GainCurve model.Metric

	GainMin  model.Metric // operational band
	GainMax  model.Metric
	Flatness model.Metric

	VSWRMax model.Metric // reflection traces only
}

// Metrics lists the analysis' metrics in reporting order.
func (a SParamAnalysis) Metrics() []model.Metric {
	if a.IsTransmission {
		return []model.Metric{a.GainMin, a.GainMax, a.Flatness, a.GainCurve}
	}
	return []model.Metric{a.VSWRMax}
}

// AnalyzeSParam derives metrics for one trace in the context of a DUT's
// frequency plan. Reflection parameters (Sxx) yield VSWR; everything
// else is treated as transmission and yields gain metrics.
func (e *Engine) AnalyzeSParam(tr *model.MeasurementTrace, dut *model.DutConfig) SParamAnalysis {
	a := SParamAnalysis{
		Trace:          tr,
		IsTransmission: !tr.Param.IsReflection(),
	}
	prov := model.Provenance{Sources: []string{tr.SourceFile}}
	name := tr.Param.String()

	if a.IsTransmission {
		prov.Method = "20*log10|" + name + "|"
		a.GainCurve = gainCurveMetric(tr, prov)
		a.GainMin, a.GainMax, a.Flatness = e.gainStats(tr, dut.Operational, name, prov)
	} else {
		prov.Method = "VSWR = (1+|Γ|)/(1-|Γ|), Γ = " + name
		a.VSWRMax = e.vswrMax(tr, dut.Operational, name, prov)
	}
	return a
}

func gainCurveMetric(tr *model.MeasurementTrace, prov model.Provenance) model.Metric {
	curve := make(model.Curve, 0, len(tr.Samples))
	for _, s := range tr.Samples {
		curve = append(curve, model.CurvePoint{X: s.FreqGHz, Y: s.MagDB()})
	}
	return model.Metric{
		Name:       fmt.Sprintf("gain_curve_%s", tr.Param),
		Kind:       model.TestSParameters,
		Unit:       "dB",
		Curve:      curve,
		Provenance: prov,
	}
}

// gainStats computes min gain, max gain and flatness over a band.
// Samples outside the band are excluded before anything is computed;
// that exclusion is what separates operational from wideband views.
func (e *Engine) gainStats(tr *model.MeasurementTrace, band model.FrequencyRange, param string, prov model.Provenance) (gainMin, gainMax, flatness model.Metric) {
	samples := tr.Band(band)
	if len(samples) == 0 {
		reason := fmt.Sprintf("no samples in band %s", bandLabel(band))
		gainMin = model.IndeterminateMetric(fmt.Sprintf("in_band_gain_min_%s", param), model.TestSParameters, reason, prov)
		gainMax = model.IndeterminateMetric(fmt.Sprintf("in_band_gain_max_%s", param), model.TestSParameters, reason, prov)
		flatness = model.IndeterminateMetric(fmt.Sprintf("gain_flatness_%s", param), model.TestSParameters, reason, prov)
		return
	}

	minDB, maxDB := math.Inf(1), math.Inf(-1)
	var fAtMin, fAtMax float64
	for _, s := range samples {
		db := s.MagDB()
		if db < minDB {
			minDB, fAtMin = db, s.FreqGHz
		}
		if db > maxDB {
			maxDB, fAtMax = db, s.FreqGHz
		}
	}

	gainMin = model.Metric{
		Name: fmt.Sprintf("in_band_gain_min_%s", param), Kind: model.TestSParameters,
		Unit: "dB", Value: minDB, FreqGHz: fAtMin, Provenance: prov,
	}
	gainMax = model.Metric{
		Name: fmt.Sprintf("in_band_gain_max_%s", param), Kind: model.TestSParameters,
		Unit: "dB", Value: maxDB, FreqGHz: fAtMax, Provenance: prov,
	}
	flatness = model.Metric{
		Name: fmt.Sprintf("gain_flatness_%s", param), Kind: model.TestSParameters,
		Unit: "dB", Value: maxDB - minDB, Provenance: prov,
	}
	return
}

// VSWR converts a reflection coefficient magnitude to VSWR. Total
// reflection (|Γ| >= 1) reports infinite=true; the numeric return is
// meaningless in that case and callers must not compare it.
func VSWR(gammaMag float64) (v float64, infinite bool) {
	if gammaMag >= 1 {
		return 0, true
	}
	return (1 + gammaMag) / (1 - gammaMag), false
}

func (e *Engine) vswrMax(tr *model.MeasurementTrace, band model.FrequencyRange, param string, prov model.Provenance) model.Metric {
	samples := tr.Band(band)
	name := fmt.Sprintf("vswr_max_%s", param)
	if len(samples) == 0 {
		return model.IndeterminateMetric(name, model.TestSParameters,
			fmt.Sprintf("no samples in band %s", bandLabel(band)), prov)
	}

	worst := 0.0
	var fAtWorst float64
	for _, s := range samples {
		v, infinite := VSWR(s.MagLin())
		if infinite {
			return model.Metric{
				Name: name, Kind: model.TestSParameters, Unit: "",
				Infinite: true, FreqGHz: s.FreqGHz, Provenance: prov,
			}
		}
		if v > worst {
			worst, fAtWorst = v, s.FreqGHz
		}
	}
	return model.Metric{
		Name: name, Kind: model.TestSParameters,
		Value: worst, FreqGHz: fAtWorst, Provenance: prov,
	}
}

// OOBRejection computes the rejection (dB) delivered in one out-of-band
// window: the worst-case (minimum) operational gain minus the worst-case
// (maximum) gain inside the window. It requires wideband trace coverage;
// a window with no samples yields an indeterminate metric for this
// window only, never for the whole evaluation.
func (e *Engine) OOBRejection(tr *model.MeasurementTrace, operational, window model.FrequencyRange) model.Metric {
	name := fmt.Sprintf("oob_rejection_%s_%s", tr.Param, bandLabel(window))
	prov := model.Provenance{
		Sources: []string{tr.SourceFile},
		Method:  "min in-band gain minus max gain in window",
	}

	opSamples := tr.Band(operational)
	if len(opSamples) == 0 {
		return model.IndeterminateMetric(name, model.TestSParameters,
			fmt.Sprintf("no samples in operational band %s", bandLabel(operational)), prov)
	}
	oobSamples := tr.Band(window)
	if len(oobSamples) == 0 {
		return model.IndeterminateMetric(name, model.TestSParameters,
			fmt.Sprintf("wideband data missing for window %s", bandLabel(window)), prov)
	}

	opMin := math.Inf(1)
	for _, s := range opSamples {
		if db := s.MagDB(); db < opMin {
			opMin = db
		}
	}
	oobMax := math.Inf(-1)
	var fAtMax float64
	for _, s := range oobSamples {
		if db := s.MagDB(); db > oobMax {
			oobMax, fAtMax = db, s.FreqGHz
		}
	}

	return model.Metric{
		Name: name, Kind: model.TestSParameters, Unit: "dB",
		Value: opMin - oobMax, FreqGHz: fAtMax, Provenance: prov,
	}
}

// GainOverBand resolves min and max gain over an arbitrary sub-band from
// a gain curve, with nearest-sample fallback: when the band contains no
// sampled point, the value at the nearest sample is used and the offset
// from the band center is recorded on both metrics for the evaluator to
// judge against its tolerance.
func (e *Engine) GainOverBand(curve model.Curve, band model.FrequencyRange, param string, prov model.Provenance) (gainMin, gainMax model.Metric) {
	nameMin := fmt.Sprintf("gain_band_min_%s_%s", param, bandLabel(band))
	nameMax := fmt.Sprintf("gain_band_max_%s_%s", param, bandLabel(band))
	if len(curve) == 0 {
		gainMin = model.IndeterminateMetric(nameMin, model.TestSParameters, "empty gain curve", prov)
		gainMax = model.IndeterminateMetric(nameMax, model.TestSParameters, "empty gain curve", prov)
		return
	}

	minDB, maxDB := math.Inf(1), math.Inf(-1)
	var fAtMin, fAtMax float64
	found := false
	for _, p := range curve {
		if !band.Contains(p.X) {
			continue
		}
		found = true
		if p.Y < minDB {
			minDB, fAtMin = p.Y, p.X
		}
		if p.Y > maxDB {
			maxDB, fAtMax = p.Y, p.X
		}
	}

	if !found {
		// No sample inside the band: fall back to the nearest sampled
		// frequency and flag the offset.
		center := band.Center()
		best := curve[0]
		for _, p := range curve[1:] {
			if math.Abs(p.X-center) < math.Abs(best.X-center) {
				best = p
			}
		}
		offset := best.X - center
		gainMin = model.Metric{
			Name: nameMin, Kind: model.TestSParameters, Unit: "dB",
			Value: best.Y, FreqGHz: best.X,
			GridOffsetGHz: offset, OffsetFlagged: true, Provenance: prov,
		}
		gainMax = gainMin
		gainMax.Name = nameMax
		return
	}

	gainMin = model.Metric{
		Name: nameMin, Kind: model.TestSParameters, Unit: "dB",
		Value: minDB, FreqGHz: fAtMin, Provenance: prov,
	}
	gainMax = model.Metric{
		Name: nameMax, Kind: model.TestSParameters, Unit: "dB",
		Value: maxDB, FreqGHz: fAtMax, Provenance: prov,
	}
	return
}
