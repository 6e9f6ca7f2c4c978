package touchstone

import (
	"fmt"
	"io"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// MarshalTrace writes a single trace back out as a 1-port Touchstone body
// in the given format, frequencies in GHz. Parsing the output reproduces
// the samples within floating point tolerance; round-trip fidelity is the
// contract the parser's normalization is tested against.
func MarshalTrace(w io.Writer, tr *model.MeasurementTrace, format model.TraceFormat) error {
	if _, err := fmt.Fprintf(w, "! %s re-serialized from %s\n", tr.Param, tr.SourceFile); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "# GHZ S %s R %g\n", format, tr.ImpedanceOhms); err != nil {
		return err
	}
	for _, s := range tr.Samples {
		a, b := FormatPair(s.Value, format)
		if _, err := fmt.Fprintf(w, "%.12g %.12g %.12g\n", s.FreqGHz, a, b); err != nil {
			return err
		}
	}
	return nil
}
