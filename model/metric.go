package model

import "fmt"

// Curve is a piecewise-linear x→y relation, x ascending. Power metrics
// carry their measured Pout-vs-Pin and IM3-vs-Pin curves this way so the
// evaluator can interrogate them at stage-dependent requirement points
// without re-analysis.
type Curve []CurvePoint

// CurvePoint is one sample of a Curve.
type CurvePoint struct {
	X float64 `json:"X"`
	Y float64 `json:"Y"`
}

// ValueAt linearly interpolates the curve at x, extrapolating from the
// nearest segment outside the sampled span. The second return is false
// when the curve has fewer than two points.
func (c Curve) ValueAt(x float64) (float64, bool) {
	if len(c) < 2 {
		return 0, false
	}
	for i := 0; i < len(c)-1; i++ {
		if c[i].X <= x && x <= c[i+1].X {
			return lerp(c[i], c[i+1], x), true
		}
	}
	if x < c[0].X {
		return lerp(c[0], c[1], x), true
	}
	return lerp(c[len(c)-2], c[len(c)-1], x), true
}

func lerp(a, b CurvePoint, x float64) float64 {
	if b.X == a.X {
		return a.Y
	}
	return a.Y + (b.Y-a.Y)*(x-a.X)/(b.X-a.X)
}

// Provenance records where a metric came from: the source file(s) and the
// computation that produced it.
type Provenance struct {
	Sources []string `json:"Sources,omitempty"`
	Method  string   `json:"Method,omitempty"`
}

// Metric is one derived scalar or curve, computed fresh per evaluation
// run and never mutated afterwards. Indeterminate metrics mark data that
// was missing or structurally incomplete; they are not failures and must
// never be coerced into one.
type Metric struct {
	Name string   `json:"Name"`
	Kind TestKind `json:"Kind"`
	Unit string   `json:"Unit,omitempty"`

	Value float64 `json:"Value"`
	Curve Curve   `json:"Curve,omitempty"`

	// Infinite marks sentinel values that have no finite representation,
	// such as VSWR at total reflection. Value is meaningless when set.
	Infinite bool `json:"Infinite,omitempty"`

	Indeterminate       bool   `json:"Indeterminate,omitempty"`
	IndeterminateReason string `json:"IndeterminateReason,omitempty"`

	// FreqGHz locates frequency-specific metrics (worst-case NF, per-band
	// gain points). Zero for band-wide and power metrics.
	FreqGHz float64 `json:"FreqGHz,omitempty"`

	// GridOffsetGHz is the signed distance between a requirement's nominal
	// frequency and the nearest sampled frequency actually used, set when
	// the two differ. The evaluator decides whether the offset is within
	// tolerance; it is never silently ignored.
	GridOffsetGHz float64 `json:"GridOffsetGHz,omitempty"`
	OffsetFlagged bool    `json:"OffsetFlagged,omitempty"`

	Provenance Provenance `json:"Provenance,omitempty"`
}

// IndeterminateMetric builds a metric in the indeterminate state.
func IndeterminateMetric(name string, kind TestKind, reason string, prov Provenance) Metric {
	return Metric{
		Name:                name,
		Kind:                kind,
		Indeterminate:       true,
		IndeterminateReason: reason,
		Provenance:          prov,
	}
}

func (m Metric) String() string {
	switch {
	case m.Indeterminate:
		return fmt.Sprintf("%s=indeterminate (%s)", m.Name, m.IndeterminateReason)
	case m.Infinite:
		return fmt.Sprintf("%s=inf", m.Name)
	default:
		return fmt.Sprintf("%s=%g%s", m.Name, m.Value, m.Unit)
	}
}
