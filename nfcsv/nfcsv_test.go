package nfcsv

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

func TestParseDefaultLayout(t *testing.T) {
	input := `Serial Number,Chain,Frequency,Noise Figure (dB)
SN0042,PRI,2000,2.1
SN0042,PRI,2100,2.4
SN0042,PRI,2200,2.2
`
	trace, err := Parse(strings.NewReader(input), "nf.csv", DefaultColumnMap())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(trace.Samples) != 3 {
		t.Fatalf("samples = %d, want 3", len(trace.Samples))
	}
	if trace.SerialNumber != "SN0042" || trace.Chain != model.ChainPrimary {
		t.Fatalf("identity = %q %v", trace.SerialNumber, trace.Chain)
	}
	// 2000 exceeds the auto threshold so it reads as MHz.
	if math.Abs(trace.Samples[0].FreqGHz-2.0) > 1e-12 {
		t.Fatalf("first freq = %v GHz, want 2.0", trace.Samples[0].FreqGHz)
	}
}

func TestParseAutoUnitKeepsGHzValues(t *testing.T) {
	input := "Frequency,Noise Figure (dB)\n2.0,1.9\n2.1,2.0\n"
	trace, err := Parse(strings.NewReader(input), "nf.csv", DefaultColumnMap())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if trace.Samples[0].FreqGHz != 2.0 {
		t.Fatalf("freq = %v, want 2.0 (values <= 100 stay GHz)", trace.Samples[0].FreqGHz)
	}
}

func TestParseExplicitUnitOverridesHeuristic(t *testing.T) {
	cols := DefaultColumnMap()
	cols.FrequencyUnit = UnitGHz
	input := "Frequency,Noise Figure (dB)\n2000,1.9\n"
	trace, err := Parse(strings.NewReader(input), "nf.csv", cols)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if trace.Samples[0].FreqGHz != 2000 {
		t.Fatalf("freq = %v, want 2000 with explicit GHz unit", trace.Samples[0].FreqGHz)
	}
}

func TestParseCustomColumnMap(t *testing.T) {
	cols := ColumnMap{
		Frequency:     "Freq (MHz)",
		NoiseFigure:   "NF",
		FrequencyUnit: UnitMHz,
	}
	input := "Freq (MHz),NF\n2050,2.3\n"
	trace, err := Parse(strings.NewReader(input), "nf.csv", cols)
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if math.Abs(trace.Samples[0].FreqGHz-2.05) > 1e-12 {
		t.Fatalf("freq = %v, want 2.05", trace.Samples[0].FreqGHz)
	}
}

func TestParseMissingMappedColumnFatal(t *testing.T) {
	input := "Frequency,Gain (dB)\n2000,20\n"
	_, err := Parse(strings.NewReader(input), "nf.csv", DefaultColumnMap())
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want ParseError for missing NF column, got %v", err)
	}
}

func TestParseMalformedRowWarns(t *testing.T) {
	input := "Frequency,Noise Figure (dB)\n2000,2.1\nnot-a-number,2.2\n2100,2.3\n"
	trace, err := Parse(strings.NewReader(input), "nf.csv", DefaultColumnMap())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(trace.Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(trace.Samples))
	}
	if len(trace.Warnings) != 1 || trace.Warnings[0].Kind != model.WarnRow {
		t.Fatalf("warnings = %v, want one row warning", trace.Warnings)
	}
}

func TestParseSortsByFrequency(t *testing.T) {
	input := "Frequency,Noise Figure (dB)\n2200,2.5\n2000,2.1\n2100,2.3\n"
	trace, err := Parse(strings.NewReader(input), "nf.csv", DefaultColumnMap())
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	for i := 1; i < len(trace.Samples); i++ {
		if trace.Samples[i].FreqGHz <= trace.Samples[i-1].FreqGHz {
			t.Fatalf("samples not sorted: %+v", trace.Samples)
		}
	}
}
