package touchstone

import (
	"errors"
	"fmt"
	"math/cmplx"
	"strings"
	"testing"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

const twoPortMA = `! VNA export
# GHZ S MA R 50
1.0  0.1 -170  10.0 45  0.01 20  0.2 -10
2.0  0.2 -160  12.0 40  0.02 25  0.3 -20
3.0  0.3 -150  11.0 35  0.03 30  0.4 -30
`

func TestParseTwoPortPairOrder(t *testing.T) {
	f, err := Parse(strings.NewReader(twoPortMA), "20240105_L001234_PRI_SN0042.s2p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.Ports != 2 || len(f.Traces) != 4 {
		t.Fatalf("ports=%d traces=%d, want 2 and 4", f.Ports, len(f.Traces))
	}

	// Pair order is S11 S21 S12 S22 for 2-port files.
	wantOrder := []string{"S11", "S21", "S12", "S22"}
	for i, want := range wantOrder {
		if got := f.Traces[i].Param.String(); got != want {
			t.Fatalf("trace[%d] = %s, want %s", i, got, want)
		}
	}

	s21 := f.Traces[1]
	if len(s21.Samples) != 3 {
		t.Fatalf("S21 samples = %d, want 3", len(s21.Samples))
	}
	if got := s21.Samples[0].MagLin(); got < 9.999 || got > 10.001 {
		t.Fatalf("S21 |S| at 1 GHz = %v, want 10", got)
	}
	if s21.Samples[2].FreqGHz != 3.0 {
		t.Fatalf("last S21 freq = %v, want 3.0", s21.Samples[2].FreqGHz)
	}
}

func TestParseFilenameMetadataAttached(t *testing.T) {
	f, err := Parse(strings.NewReader(twoPortMA), "20240105_L001234_PRI_SN0042.s2p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Warnings) != 0 {
		t.Fatalf("conventional filename produced warnings: %v", f.Warnings)
	}
	meta := f.Meta
	if meta.DateCode != "20240105" || meta.LotCode != "L001234" ||
		meta.SerialNumber != "SN0042" || meta.Chain != model.ChainPrimary {
		t.Fatalf("metadata = %+v", meta)
	}
	if f.Traces[0].Meta != meta {
		t.Fatal("trace metadata differs from file metadata")
	}
}

func TestParseUnconventionalFilenameWarnsOnly(t *testing.T) {
	f, err := Parse(strings.NewReader(twoPortMA), "bench_export.s2p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Warnings) != 1 || f.Warnings[0].Kind != model.WarnMetadata {
		t.Fatalf("warnings = %v, want one metadata warning", f.Warnings)
	}
	if !f.Meta.Empty() {
		t.Fatalf("metadata should be empty, got %+v", f.Meta)
	}
	if len(f.Traces) != 4 {
		t.Fatal("numeric data should still parse")
	}
}

func TestParseOptionLineDefaults(t *testing.T) {
	// Bare "#" implies GHz, S, MA, 50 ohm.
	input := "#\n1.0 0.5 0\n2.0 0.5 0\n"
	f, err := Parse(strings.NewReader(input), "x.s1p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if f.FreqUnit != "GHZ" || f.Format != model.FormatMagAngle || f.ImpedanceOhms != 50 {
		t.Fatalf("defaults = %s %v %g", f.FreqUnit, f.Format, f.ImpedanceOhms)
	}
}

func TestParseFrequencyUnitScaling(t *testing.T) {
	input := "# MHZ S MA R 50\n1000 0.5 0\n2000 0.5 0\n"
	f, err := Parse(strings.NewReader(input), "x.s1p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if got := f.Traces[0].Samples[0].FreqGHz; got != 1.0 {
		t.Fatalf("1000 MHz = %v GHz, want 1.0", got)
	}
}

func TestParseRejectsNonIncreasingFrequency(t *testing.T) {
	for _, input := range []string{
		"# GHZ S MA R 50\n1.0 0.5 0\n1.0 0.5 0\n",
		"# GHZ S MA R 50\n2.0 0.5 0\n1.0 0.5 0\n",
	} {
		_, err := Parse(strings.NewReader(input), "x.s1p")
		var pe *ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("want ParseError for non-increasing frequencies, got %v", err)
		}
	}
}

func TestParseRejectsColumnCountMismatch(t *testing.T) {
	// 2-port data in a .s3p file: 9 values per point vs the 19 required.
	_, err := Parse(strings.NewReader(twoPortMA), "x.s3p")
	var pe *ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("want ParseError for column mismatch, got %v", err)
	}
	if !strings.Contains(pe.Msg, "3-port") {
		t.Fatalf("error should name the extension port count: %v", pe)
	}
}

func TestParseRejectsUnsupportedParameterType(t *testing.T) {
	input := "# GHZ Y MA R 50\n1.0 0.5 0\n"
	if _, err := Parse(strings.NewReader(input), "x.s1p"); err == nil {
		t.Fatal("Y-parameter file accepted")
	}
}

func TestParseRejectsDataBeforeOptionLine(t *testing.T) {
	input := "1.0 0.5 0\n# GHZ S MA R 50\n"
	if _, err := Parse(strings.NewReader(input), "x.s1p"); err == nil {
		t.Fatal("data before option line accepted")
	}
}

func TestParseRejectsDuplicateOptionLine(t *testing.T) {
	input := "# GHZ S MA R 50\n# GHZ S DB R 50\n1.0 0.5 0\n"
	if _, err := Parse(strings.NewReader(input), "x.s1p"); err == nil {
		t.Fatal("duplicate option line accepted")
	}
}

func TestParseThreePortWrappedRows(t *testing.T) {
	// 3-port points carry 19 values, wrapped across physical lines the way
	// VNAs export them.
	var b strings.Builder
	b.WriteString("# GHZ S RI R 50\n")
	for p := 0; p < 2; p++ {
		fmt.Fprintf(&b, "%g", 1.0+float64(p))
		for k := 0; k < 9; k++ {
			fmt.Fprintf(&b, " %g %g", 0.1*float64(k), 0.01*float64(k))
			if k == 2 || k == 5 {
				b.WriteString("\n")
			}
		}
		b.WriteString("\n")
	}
	f, err := Parse(strings.NewReader(b.String()), "x.s3p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Traces) != 9 {
		t.Fatalf("traces = %d, want 9", len(f.Traces))
	}
	// Row-major for 3-port: index 1 is S12, index 3 is S21.
	if f.Traces[1].Param.String() != "S12" || f.Traces[3].Param.String() != "S21" {
		t.Fatalf("order = %s, %s; want S12, S21", f.Traces[1].Param, f.Traces[3].Param)
	}
	if len(f.Traces[8].Samples) != 2 {
		t.Fatalf("S33 samples = %d, want 2", len(f.Traces[8].Samples))
	}
}

func TestParseInlineComments(t *testing.T) {
	input := "# GHZ S MA R 50 ! option\n1.0 0.5 0 ! first point\n2.0 0.6 10\n"
	f, err := Parse(strings.NewReader(input), "x.s1p")
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if len(f.Traces[0].Samples) != 2 {
		t.Fatalf("samples = %d, want 2", len(f.Traces[0].Samples))
	}
}

func TestFormatConversionsAgree(t *testing.T) {
	// The same physical value expressed in all three formats must parse to
	// the same complex number within floating point tolerance.
	v := PairValue(0.5, 30, model.FormatMagAngle)
	formats := []model.TraceFormat{model.FormatMagAngle, model.FormatDBAngle, model.FormatRealImag}
	for _, format := range formats {
		a, b := FormatPair(v, format)
		back := PairValue(a, b, format)
		if rel := cmplx.Abs(back-v) / cmplx.Abs(v); rel > 1e-9 {
			t.Fatalf("%v round trip relative error %g", format, rel)
		}
	}
}

func TestPortCount(t *testing.T) {
	for ext, want := range map[string]int{"a.s1p": 1, "A.S2P": 2, "b.s3p": 3, "c.s4p": 4} {
		got, err := PortCount(ext)
		if err != nil || got != want {
			t.Fatalf("PortCount(%q) = %d, %v; want %d", ext, got, err, want)
		}
	}
	for _, bad := range []string{"a.s5p", "a.csv", "s2p", "a.sp"} {
		if _, err := PortCount(bad); err == nil {
			t.Fatalf("PortCount(%q) accepted", bad)
		}
	}
}
