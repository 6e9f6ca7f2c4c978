package model

import (
	"fmt"
	"sort"
	"strings"
)

// ToneMode distinguishes single-tone compression sweeps from two-tone
// intermodulation sweeps.
type ToneMode int

const (
	ModeUnknown ToneMode = iota
	ModeSingleTone
	ModeTwoTone
)

func (m ToneMode) String() string {
	switch m {
	case ModeSingleTone:
		return "Single Tone"
	case ModeTwoTone:
		return "Two Tone"
	default:
		return ""
	}
}

// ParseToneMode maps the CSV Mode column value to a ToneMode.
func ParseToneMode(s string) (ToneMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "single tone", "single-tone":
		return ModeSingleTone, nil
	case "two tone", "two-tone":
		return ModeTwoTone, nil
	default:
		return ModeUnknown, fmt.Errorf("unknown tone mode %q", s)
	}
}

func (m ToneMode) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

func (m *ToneMode) UnmarshalText(b []byte) error {
	parsed, err := ParseToneMode(string(b))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

// PowerLinearityRecord is one row of a power/linearity CSV log. Markers
// 1 and 2 hold the fundamental tone powers; 3 and 4 the IM3 products
// (lower/upper sideband); 5 and 6 the IM5 products.
type PowerLinearityRecord struct {
	SerialNumber  string     `json:"SerialNumber"`
	TempC         float64    `json:"TempC"`
	FreqMHz       float64    `json:"FreqMHz"`
	Chain         Chain      `json:"Chain"`
	Timestamp     string     `json:"Timestamp"`
	PinDBm        float64    `json:"PinDBm"`
	Mode          ToneMode   `json:"Mode"`
	PowerMeterDBm float64    `json:"PowerMeterDBm"`
	ThermistorC   float64    `json:"ThermistorC"`
	Markers       [6]float64 `json:"Markers"`
}

// FreqGHz returns the record frequency in GHz.
func (r PowerLinearityRecord) FreqGHz() float64 { return r.FreqMHz / 1000 }

// PowerSweep groups the records of one (frequency, chain, mode) triple,
// ordered by input power ascending. Sweeps are the unit of P1dB and IM3
// extraction.
type PowerSweep struct {
	FreqMHz float64                `json:"FreqMHz"`
	Chain   Chain                  `json:"Chain"`
	Mode    ToneMode               `json:"Mode"`
	Records []PowerLinearityRecord `json:"Records"`
}

// FreqGHz returns the sweep frequency in GHz.
func (s PowerSweep) FreqGHz() float64 { return s.FreqMHz / 1000 }

// PowerFile is the parsed content of one power/linearity CSV.
type PowerFile struct {
	SourceFile string                 `json:"SourceFile"`
	Records    []PowerLinearityRecord `json:"Records"`
	Sweeps     []PowerSweep           `json:"Sweeps"`

	// Frequencies lists the distinct frequencies (MHz) present. A
	// well-formed file holds exactly three; IncompleteFrequencySet marks
	// files that do not. Metrics derived from an incomplete file carry the
	// incompleteness in their provenance.
	Frequencies            []float64 `json:"Frequencies"`
	IncompleteFrequencySet bool      `json:"IncompleteFrequencySet,omitempty"`

	Warnings []Warning `json:"Warnings,omitempty"`
}

// GroupSweeps rebuilds the Sweeps and Frequencies views from Records.
func (f *PowerFile) GroupSweeps() {
	type key struct {
		freq  float64
		chain Chain
		mode  ToneMode
	}
	groups := make(map[key][]PowerLinearityRecord)
	freqSet := make(map[float64]bool)
	for _, rec := range f.Records {
		k := key{rec.FreqMHz, rec.Chain, rec.Mode}
		groups[k] = append(groups[k], rec)
		freqSet[rec.FreqMHz] = true
	}

	f.Frequencies = f.Frequencies[:0]
	for freq := range freqSet {
		f.Frequencies = append(f.Frequencies, freq)
	}
	sort.Float64s(f.Frequencies)

	f.Sweeps = f.Sweeps[:0]
	for k, recs := range groups {
		sort.SliceStable(recs, func(i, j int) bool { return recs[i].PinDBm < recs[j].PinDBm })
		f.Sweeps = append(f.Sweeps, PowerSweep{FreqMHz: k.freq, Chain: k.chain, Mode: k.mode, Records: recs})
	}
	sort.SliceStable(f.Sweeps, func(i, j int) bool {
		a, b := f.Sweeps[i], f.Sweeps[j]
		if a.FreqMHz != b.FreqMHz {
			return a.FreqMHz < b.FreqMHz
		}
		if a.Chain != b.Chain {
			return a.Chain < b.Chain
		}
		return a.Mode < b.Mode
	})

	f.IncompleteFrequencySet = len(f.Frequencies) != 3
}

// NoiseSample is one frequency point of a noise figure trace.
type NoiseSample struct {
	FreqGHz float64 `json:"FreqGHz"`
	NFdB    float64 `json:"NFdB"`
}

// NoiseTrace is the parsed content of one noise figure CSV. Filenames for
// NF logs carry no convention; identity comes from in-file columns only.
type NoiseTrace struct {
	SourceFile   string        `json:"SourceFile"`
	SerialNumber string        `json:"SerialNumber,omitempty"`
	Chain        Chain         `json:"Chain,omitempty"`
	Samples      []NoiseSample `json:"Samples"`
	Warnings     []Warning     `json:"Warnings,omitempty"`
}
