// Package nfcsv parses noise figure CSV logs. The upstream column layout
// for NF exports is still unsettled, so the mapping from logical fields
// to column names is supplied by the caller rather than hardcoded; the
// default reflects the provisional layout seen on current benches.
package nfcsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// ParseError is a fatal, file-scoped parse failure.
type ParseError struct {
	File string
	Msg  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s: %s", e.File, e.Msg)
}

// FrequencyUnit selects how the frequency column is scaled to GHz.
type FrequencyUnit string

const (
	// UnitAuto treats values above 100 as MHz and everything else as
	// GHz, matching the mixed exports seen so far.
	UnitAuto FrequencyUnit = "auto"
	UnitGHz  FrequencyUnit = "ghz"
	UnitMHz  FrequencyUnit = "mhz"
)

// ColumnMap binds the parser's logical fields to concrete column names.
// Frequency and NoiseFigure are required; SerialNumber and Chain are
// optional identity columns.
type ColumnMap struct {
	Frequency   string
	NoiseFigure string

	SerialNumber string
	Chain        string

	FrequencyUnit FrequencyUnit
}

// DefaultColumnMap is the provisional layout pending the final upstream
// format.
func DefaultColumnMap() ColumnMap {
	return ColumnMap{
		Frequency:     "Frequency",
		NoiseFigure:   "Noise Figure (dB)",
		SerialNumber:  "Serial Number",
		Chain:         "Chain",
		FrequencyUnit: UnitAuto,
	}
}

// Parse reads a noise figure CSV using the supplied column mapping.
// NF filenames carry no convention: identity comes from in-file columns
// only, and arbitrary filenames are accepted. Malformed rows are dropped
// with warnings; missing mapped required columns fail the file.
func Parse(r io.Reader, filename string, cols ColumnMap) (*model.NoiseTrace, error) {
	if cols.Frequency == "" || cols.NoiseFigure == "" {
		return nil, &ParseError{File: filename, Msg: "column map must name Frequency and NoiseFigure columns"}
	}

	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, &ParseError{File: filename, Msg: fmt.Sprintf("missing header row: %v", err)}
	}
	idx := make(map[string]int, len(header))
	for i, name := range header {
		idx[strings.TrimSpace(name)] = i
	}

	freqIdx, ok := idx[cols.Frequency]
	if !ok {
		return nil, &ParseError{File: filename, Msg: fmt.Sprintf("missing required column %q", cols.Frequency)}
	}
	nfIdx, ok := idx[cols.NoiseFigure]
	if !ok {
		return nil, &ParseError{File: filename, Msg: fmt.Sprintf("missing required column %q", cols.NoiseFigure)}
	}
	serialIdx, hasSerial := idx[cols.SerialNumber]
	chainIdx, hasChain := idx[cols.Chain]

	trace := &model.NoiseTrace{SourceFile: filename}
	lineNo := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			trace.Warnings = append(trace.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}
		if freqIdx >= len(row) || nfIdx >= len(row) {
			trace.Warnings = append(trace.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: "row too short",
			})
			continue
		}
		freq, err := strconv.ParseFloat(strings.TrimSpace(row[freqIdx]), 64)
		if err != nil {
			trace.Warnings = append(trace.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: fmt.Sprintf("column %q: non-numeric value %q", cols.Frequency, row[freqIdx]),
			})
			continue
		}
		nf, err := strconv.ParseFloat(strings.TrimSpace(row[nfIdx]), 64)
		if err != nil {
			trace.Warnings = append(trace.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: fmt.Sprintf("column %q: non-numeric value %q", cols.NoiseFigure, row[nfIdx]),
			})
			continue
		}

		trace.Samples = append(trace.Samples, model.NoiseSample{
			FreqGHz: toGHz(freq, cols.FrequencyUnit),
			NFdB:    nf,
		})
		if hasSerial && trace.SerialNumber == "" && serialIdx < len(row) {
			trace.SerialNumber = strings.TrimSpace(row[serialIdx])
		}
		if hasChain && trace.Chain == model.ChainUnknown && chainIdx < len(row) {
			trace.Chain = model.ParseChain(row[chainIdx])
		}
	}

	sort.SliceStable(trace.Samples, func(i, j int) bool {
		return trace.Samples[i].FreqGHz < trace.Samples[j].FreqGHz
	})
	return trace, nil
}

func toGHz(f float64, unit FrequencyUnit) float64 {
	switch unit {
	case UnitGHz:
		return f
	case UnitMHz:
		return f / 1000
	default: // auto
		if f > 100 {
			return f / 1000
		}
		return f
	}
}
