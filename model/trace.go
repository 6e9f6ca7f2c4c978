package model

import (
	"fmt"
	"math"
	"math/cmplx"
	"strings"
)

// Chain designates the primary or redundant signal chain a measurement
// was taken on.
type Chain int

const (
	ChainUnknown Chain = iota
	ChainPrimary
	ChainRedundant
)

func (c Chain) String() string {
	switch c {
	case ChainPrimary:
		return "PRI"
	case ChainRedundant:
		return "RED"
	default:
		return ""
	}
}

// ParseChain maps PRI/RED designators to a Chain. Unrecognized values map
// to ChainUnknown without error; chain identity is metadata, not data.
func ParseChain(s string) Chain {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "PRI", "PRIMARY":
		return ChainPrimary
	case "RED", "REDUNDANT":
		return ChainRedundant
	default:
		return ChainUnknown
	}
}

func (c Chain) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

func (c *Chain) UnmarshalText(b []byte) error {
	*c = ParseChain(string(b))
	return nil
}

// GainVariant is the HG/LG build variant a trace was measured on.
type GainVariant int

const (
	VariantUnknown GainVariant = iota
	VariantHighGain
	VariantLowGain
)

func (v GainVariant) String() string {
	switch v {
	case VariantHighGain:
		return "HG"
	case VariantLowGain:
		return "LG"
	default:
		return ""
	}
}

// ParseGainVariant maps HG/LG designators to a GainVariant.
func ParseGainVariant(s string) GainVariant {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "HG":
		return VariantHighGain
	case "LG":
		return VariantLowGain
	default:
		return VariantUnknown
	}
}

func (v GainVariant) MarshalText() ([]byte, error) { return []byte(v.String()), nil }

func (v *GainVariant) UnmarshalText(b []byte) error {
	*v = ParseGainVariant(string(b))
	return nil
}

// FileMetadata is the identity parsed from a trace filename. All fields
// may be empty: a filename that does not follow the naming convention
// yields empty metadata plus a warning, never a parse failure.
type FileMetadata struct {
	DateCode     string      `json:"DateCode,omitempty"`
	LotCode      string      `json:"LotCode,omitempty"`
	SerialNumber string      `json:"SerialNumber,omitempty"`
	Chain        Chain       `json:"Chain,omitempty"`
	Variant      GainVariant `json:"Variant,omitempty"`
}

// Empty reports whether no identity fields were recovered.
func (m FileMetadata) Empty() bool {
	return m.DateCode == "" && m.LotCode == "" && m.SerialNumber == "" &&
		m.Chain == ChainUnknown && m.Variant == VariantUnknown
}

// SParamID names one scattering parameter, e.g. S21 = output port 2,
// input port 1.
type SParamID struct {
	OutPort int `json:"OutPort"`
	InPort  int `json:"InPort"`
}

func (p SParamID) String() string {
	return fmt.Sprintf("S%d%d", p.OutPort, p.InPort)
}

// IsReflection reports whether the parameter is a reflection term (Sxx).
func (p SParamID) IsReflection() bool { return p.OutPort == p.InPort }

// TraceFormat is the value encoding declared in a Touchstone option line.
type TraceFormat int

const (
	FormatMagAngle TraceFormat = iota // MA: linear magnitude, angle in degrees
	FormatDBAngle                     // DB: 20*log10 magnitude, angle in degrees
	FormatRealImag                    // RI: real, imaginary
)

func (f TraceFormat) String() string {
	switch f {
	case FormatMagAngle:
		return "MA"
	case FormatDBAngle:
		return "DB"
	case FormatRealImag:
		return "RI"
	default:
		return fmt.Sprintf("TraceFormat(%d)", int(f))
	}
}

// ParseTraceFormat maps a Touchstone format token to a TraceFormat.
func ParseTraceFormat(s string) (TraceFormat, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "MA":
		return FormatMagAngle, nil
	case "DB":
		return FormatDBAngle, nil
	case "RI":
		return FormatRealImag, nil
	default:
		return 0, fmt.Errorf("unrecognized data format token %q", s)
	}
}

func (f TraceFormat) MarshalText() ([]byte, error) { return []byte(f.String()), nil }

func (f *TraceFormat) UnmarshalText(b []byte) error {
	parsed, err := ParseTraceFormat(string(b))
	if err != nil {
		return err
	}
	*f = parsed
	return nil
}

// Sample is one frequency point of a trace. Values are stored in complex
// form regardless of the file's declared format; magnitude, dB and phase
// views are derived on demand so no representation requires re-parsing.
type Sample struct {
	FreqGHz float64    `json:"FreqGHz"`
	Value   complex128 `json:"-"`
}

// MagLin returns the linear magnitude |S|.
func (s Sample) MagLin() float64 { return cmplx.Abs(s.Value) }

// MagDB returns 20*log10|S|. A zero-magnitude sample maps to -Inf.
func (s Sample) MagDB() float64 { return 20 * math.Log10(cmplx.Abs(s.Value)) }

// PhaseDeg returns the phase angle in degrees.
func (s Sample) PhaseDeg() float64 { return cmplx.Phase(s.Value) * 180 / math.Pi }

// MeasurementTrace is one parsed S-parameter entry of one file:
// a frequency-ordered, frequency-unique sequence of complex samples plus
// the identity metadata recovered from the filename.
type MeasurementTrace struct {
	Param         SParamID     `json:"Param"`
	Format        TraceFormat  `json:"Format"`
	ImpedanceOhms float64      `json:"ImpedanceOhms"`
	SourceFile    string       `json:"SourceFile"`
	Meta          FileMetadata `json:"Meta"`
	Samples       []Sample     `json:"Samples"`
}

// Band returns the samples falling inside r, preserving order. Samples
// outside the range are excluded, which is how operational and wideband
// views of the same trace differ.
func (t *MeasurementTrace) Band(r FrequencyRange) []Sample {
	out := make([]Sample, 0, len(t.Samples))
	for _, s := range t.Samples {
		if r.Contains(s.FreqGHz) {
			out = append(out, s)
		}
	}
	return out
}

// NearestSample returns the sample whose frequency is closest to f (GHz)
// and the signed offset f_sample - f. The second return is false when the
// trace is empty.
func (t *MeasurementTrace) NearestSample(f float64) (Sample, float64, bool) {
	if len(t.Samples) == 0 {
		return Sample{}, 0, false
	}
	best := t.Samples[0]
	for _, s := range t.Samples[1:] {
		if math.Abs(s.FreqGHz-f) < math.Abs(best.FreqGHz-f) {
			best = s
		}
	}
	return best, best.FreqGHz - f, true
}
