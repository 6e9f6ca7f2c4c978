// Package powercsv parses power/linearity CSV logs into records and
// sweeps. Column matching is by exact header name, not position; a
// missing required column fails the whole file, while a malformed row is
// dropped with a warning and the rest of the file is kept.
package powercsv

import (
	"encoding/csv"
	"fmt"
	"io"
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

// Required columns, exact-match and case-sensitive.
const (
	colSerial     = "Serial Number"
	colTemp       = "Temp"
	colFrequency  = "Frequency"
	colChain      = "Chain"
	colTimestamp  = "Timestamp"
	colPowerLevel = "Power Level (dBm)"
	colMode       = "Mode"
	colPowerMeter = "Power Meter (dBm)"
	colThermistor = "Thermister Calc (C)"
)

var markerColumns = [6]string{
	"Marker 1 (dBm)",
	"Marker 2 (dBm)",
	"Marker 3 (dBm)",
	"Marker 4 (dBm)",
	"Marker 5 (dBm)",
	"Marker 6 (dBm)",
}

// RequiredColumns lists every column a power/linearity CSV must carry.
func RequiredColumns() []string {
	cols := []string{
		colSerial, colTemp, colFrequency, colChain, colTimestamp,
		colPowerLevel, colMode, colPowerMeter, colThermistor,
	}
	return append(cols, markerColumns[:]...)
}

// Parse reads a power/linearity CSV. The header row is required. Records
// group into sweeps by (frequency, chain, mode), ordered by input power
// ascending. A file without exactly three distinct frequencies parses but
// is flagged incomplete for completeness-dependent metrics downstream.
func Parse(r io.Reader, filename string) (*model.PowerFile, error) {
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

	var missing []string
	for _, name := range RequiredColumns() {
		if _, ok := idx[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		return nil, &ParseError{
			File: filename,
			Msg:  "missing required columns: " + strings.Join(missing, ", "),
		}
	}

	file := &model.PowerFile{SourceFile: filename}
	lineNo := 1
	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		lineNo++
		if err != nil {
			file.Warnings = append(file.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: fmt.Sprintf("unreadable row: %v", err),
			})
			continue
		}
		rec, err := parseRow(row, idx)
		if err != nil {
			file.Warnings = append(file.Warnings, model.Warning{
				Kind: model.WarnRow, File: filename, Line: lineNo,
				Message: err.Error(),
			})
			continue
		}
		file.Records = append(file.Records, rec)
	}

	file.GroupSweeps()
	if file.IncompleteFrequencySet {
		file.Warnings = append(file.Warnings, model.Warning{
			Kind: model.WarnStructure, File: filename,
			Message: fmt.Sprintf("expected 3 distinct frequencies, found %d", len(file.Frequencies)),
		})
	}
	return file, nil
}

func parseRow(row []string, idx map[string]int) (model.PowerLinearityRecord, error) {
	var rec model.PowerLinearityRecord

	field := func(name string) (string, error) {
		i := idx[name]
		if i >= len(row) {
			return "", fmt.Errorf("row too short for column %q", name)
		}
		return strings.TrimSpace(row[i]), nil
	}
	num := func(name string) (float64, error) {
		raw, err := field(name)
		if err != nil {
			return 0, err
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return 0, fmt.Errorf("column %q: non-numeric value %q", name, raw)
		}
		return v, nil
	}

	var err error
	if rec.SerialNumber, err = field(colSerial); err != nil {
		return rec, err
	}
	if rec.TempC, err = num(colTemp); err != nil {
		return rec, err
	}
	if rec.FreqMHz, err = num(colFrequency); err != nil {
		return rec, err
	}
	chainRaw, err := field(colChain)
	if err != nil {
		return rec, err
	}
	rec.Chain = model.ParseChain(chainRaw)
	if rec.Timestamp, err = field(colTimestamp); err != nil {
		return rec, err
	}
	if rec.PinDBm, err = num(colPowerLevel); err != nil {
		return rec, err
	}
	modeRaw, err := field(colMode)
	if err != nil {
		return rec, err
	}
	if rec.Mode, err = model.ParseToneMode(modeRaw); err != nil {
		return rec, err
	}
	if rec.PowerMeterDBm, err = num(colPowerMeter); err != nil {
		return rec, err
	}
	if rec.ThermistorC, err = num(colThermistor); err != nil {
		return rec, err
	}
	for i, name := range markerColumns {
		if rec.Markers[i], err = num(name); err != nil {
			return rec, err
		}
	}
	return rec, nil
}
