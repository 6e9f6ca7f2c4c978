// Package touchstone parses Touchstone (.s1p–.s4p) network data files
// into measurement traces, one per S-parameter entry. Values are
// normalized to complex form on parse so downstream consumers can request
// magnitude, dB or real/imaginary views without touching the file again.
package touchstone

import (
	"bufio"
	"fmt"
	"io"
	"math"
	"math/cmplx"
	"strconv"
	"strings"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// ParseError is a fatal, file-scoped parse failure. It aborts the file it
// occurred in; other files in a batch proceed.
type ParseError struct {
	File string
	Line int
	Msg  string
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("%s:%d: %s", e.File, e.Line, e.Msg)
	}
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// File is the parsed content of one Touchstone file.
type File struct {
	SourceFile    string
	Ports         int
	FreqUnit      string
	Format        model.TraceFormat
	ImpedanceOhms float64
	Meta          model.FileMetadata
	Traces        []model.MeasurementTrace
	Warnings      []model.Warning
}

// unit multipliers to GHz
var freqUnitScale = map[string]float64{
	"HZ":  1e-9,
	"KHZ": 1e-6,
	"MHZ": 1e-3,
	"GHZ": 1,
}

// Parse reads a Touchstone file. The port count is implied by the file
// extension (.s1p→1 … .s4p→4) and must agree with the data column count.
// Frequencies must be strictly increasing; duplicates or decreasing rows
// are a ParseError. A filename outside the naming convention produces a
// metadata warning, not a failure.
func Parse(r io.Reader, filename string) (*File, error) {
	ports, err := PortCount(filename)
	if err != nil {
		return nil, &ParseError{File: filename, Msg: err.Error()}
	}

	f := &File{
		SourceFile:    filename,
		Ports:         ports,
		FreqUnit:      "GHZ",
		ImpedanceOhms: 50,
	}

	meta, ok := ParseFilename(filename)
	if ok {
		f.Meta = meta
	} else {
		f.Warnings = append(f.Warnings, model.Warning{
			Kind:    model.WarnMetadata,
			File:    filename,
			Message: "filename does not match YYYYMMDD_LXXXXXX_PRI|RED_SNxxxx_HG|LG.sXp convention; metadata unavailable",
		})
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var (
		sawOption bool
		fields    []float64
		lineNo    int
	)
	for sc.Scan() {
		lineNo++
		line := sc.Text()
		if idx := strings.IndexByte(line, '!'); idx >= 0 {
			line = line[:idx]
		}
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "#") {
			if sawOption {
				return nil, &ParseError{File: filename, Line: lineNo, Msg: "duplicate option line"}
			}
			if len(fields) > 0 {
				return nil, &ParseError{File: filename, Line: lineNo, Msg: "option line must precede all data rows"}
			}
			if err := parseOptionLine(line, f); err != nil {
				return nil, &ParseError{File: filename, Line: lineNo, Msg: err.Error()}
			}
			sawOption = true
			continue
		}
		if !sawOption {
			return nil, &ParseError{File: filename, Line: lineNo, Msg: "data row before option line"}
		}
		for _, tok := range strings.Fields(line) {
			v, err := strconv.ParseFloat(tok, 64)
			if err != nil {
				return nil, &ParseError{File: filename, Line: lineNo, Msg: fmt.Sprintf("non-numeric field %q", tok)}
			}
			fields = append(fields, v)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, &ParseError{File: filename, Msg: fmt.Sprintf("read failed: %v", err)}
	}
	if !sawOption {
		return nil, &ParseError{File: filename, Msg: "missing option line"}
	}
	if len(fields) == 0 {
		return nil, &ParseError{File: filename, Msg: "no data rows"}
	}

	// Each frequency point carries 1 + 2*n^2 values; for 3/4-port files
	// the values wrap across physical lines, so the stream is chunked
	// rather than split per line.
	perPoint := 1 + 2*ports*ports
	if len(fields)%perPoint != 0 {
		return nil, &ParseError{
			File: filename,
			Msg: fmt.Sprintf("data column count does not match %d-port extension: %d values is not a multiple of %d",
				ports, len(fields), perPoint),
		}
	}
	points := len(fields) / perPoint
	scale := freqUnitScale[f.FreqUnit]

	traces := make([]model.MeasurementTrace, ports*ports)
	for k := range traces {
		out, in := paramForIndex(k, ports)
		traces[k] = model.MeasurementTrace{
			Param:         model.SParamID{OutPort: out, InPort: in},
			Format:        f.Format,
			ImpedanceOhms: f.ImpedanceOhms,
			SourceFile:    filename,
			Meta:          f.Meta,
			Samples:       make([]model.Sample, 0, points),
		}
	}

	prevFreq := math.Inf(-1)
	for p := 0; p < points; p++ {
		base := p * perPoint
		freq := fields[base] * scale
		if freq <= prevFreq {
			return nil, &ParseError{
				File: filename,
				Msg:  fmt.Sprintf("frequencies must be strictly increasing: %g GHz after %g GHz", freq, prevFreq),
			}
		}
		prevFreq = freq
		for k := 0; k < ports*ports; k++ {
			a := fields[base+1+2*k]
			b := fields[base+2+2*k]
			traces[k].Samples = append(traces[k].Samples, model.Sample{
				FreqGHz: freq,
				Value:   PairValue(a, b, f.Format),
			})
		}
	}

	f.Traces = traces
	return f, nil
}

// PortCount derives the port count from the .sNp extension.
func PortCount(filename string) (int, error) {
	lower := strings.ToLower(filename)
	n := len(lower)
	if n < 4 || lower[n-1] != 'p' || lower[n-4] != '.' || lower[n-3] != 's' {
		return 0, fmt.Errorf("not a Touchstone filename: %q", filename)
	}
	ports := int(lower[n-2] - '0')
	if ports < 1 || ports > 4 {
		return 0, fmt.Errorf("unsupported port count in extension %q", filename[n-4:])
	}
	return ports, nil
}

// parseOptionLine digests "# <unit> S <format> R <impedance>". Tokens are
// optional and default to GHz, S, MA, 50 ohm per the Touchstone v1
// convention; an unrecognized token is fatal.
func parseOptionLine(line string, f *File) error {
	tokens := strings.Fields(strings.TrimPrefix(line, "#"))
	f.Format = model.FormatMagAngle
	for i := 0; i < len(tokens); i++ {
		tok := strings.ToUpper(tokens[i])
		switch tok {
		case "HZ", "KHZ", "MHZ", "GHZ":
			f.FreqUnit = tok
		case "S":
			// scattering parameters, the only supported type
		case "Y", "Z", "H", "G":
			return fmt.Errorf("unsupported parameter type %q (only S supported)", tok)
		case "MA", "DB", "RI":
			format, err := model.ParseTraceFormat(tok)
			if err != nil {
				return err
			}
			f.Format = format
		case "R":
			if i+1 >= len(tokens) {
				return fmt.Errorf("R token missing impedance value")
			}
			i++
			r, err := strconv.ParseFloat(tokens[i], 64)
			if err != nil {
				return fmt.Errorf("invalid impedance %q", tokens[i])
			}
			f.ImpedanceOhms = r
		default:
			return fmt.Errorf("unrecognized option token %q", tokens[i])
		}
	}
	return nil
}

// paramForIndex maps a flat pair index to its S-parameter. Touchstone
// 2-port files order pairs S11 S21 S12 S22; all other sizes are row-major.
func paramForIndex(k, ports int) (out, in int) {
	if ports == 2 {
		switch k {
		case 0:
			return 1, 1
		case 1:
			return 2, 1
		case 2:
			return 1, 2
		default:
			return 2, 2
		}
	}
	return k/ports + 1, k%ports + 1
}

// PairValue converts one (a, b) value pair in the given format to complex.
func PairValue(a, b float64, format model.TraceFormat) complex128 {
	switch format {
	case model.FormatRealImag:
		return complex(a, b)
	case model.FormatDBAngle:
		mag := math.Pow(10, a/20)
		return cmplx.Rect(mag, b*math.Pi/180)
	default: // MA
		return cmplx.Rect(a, b*math.Pi/180)
	}
}

// FormatPair converts a complex value back to its (a, b) pair in the
// given format. PairValue(FormatPair(v)) round-trips within floating
// point tolerance.
func FormatPair(v complex128, format model.TraceFormat) (a, b float64) {
	switch format {
	case model.FormatRealImag:
		return real(v), imag(v)
	case model.FormatDBAngle:
		return 20 * math.Log10(cmplx.Abs(v)), cmplx.Phase(v) * 180 / math.Pi
	default: // MA
		return cmplx.Abs(v), cmplx.Phase(v) * 180 / math.Pi
	}
}
