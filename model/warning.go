package model

import "fmt"

// WarningKind classifies recoverable issues collected during a run.
type WarningKind int

const (
	// WarnRow marks a single malformed CSV row that was dropped while the
	// rest of the file was kept.
	WarnRow WarningKind = iota
	// WarnMetadata marks a filename that does not follow the naming
	// convention; its numeric data is still processed.
	WarnMetadata
	// WarnStructure marks structural oddities that do not stop parsing
	// but flag downstream metrics, e.g. a power file without exactly
	// three distinct frequencies.
	WarnStructure
)

func (k WarningKind) String() string {
	switch k {
	case WarnRow:
		return "row"
	case WarnMetadata:
		return "metadata"
	case WarnStructure:
		return "structure"
	default:
		return fmt.Sprintf("WarningKind(%d)", int(k))
	}
}

func (k WarningKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

// Warning is a recoverable, surfaced-not-thrown issue scoped to a file or
// record. Warnings ride on parse results and run results; they never
// cross the run boundary as errors.
type Warning struct {
	Kind    WarningKind `json:"Kind"`
	File    string      `json:"File,omitempty"`
	Line    int         `json:"Line,omitempty"`
	Message string      `json:"Message"`
}

func (w Warning) String() string {
	if w.Line > 0 {
		return fmt.Sprintf("%s:%d: %s: %s", w.File, w.Line, w.Kind, w.Message)
	}
	if w.File != "" {
		return fmt.Sprintf("%s: %s: %s", w.File, w.Kind, w.Message)
	}
	return fmt.Sprintf("%s: %s", w.Kind, w.Message)
}

// ConfigurationError reports an enabled test kind with no requirement set
// for the active stage. The run for that test kind is rejected outright;
// other test kinds evaluate normally.
type ConfigurationError struct {
	DUT   string
	Stage TestStage
	Kind  TestKind
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("dut %q: no %s requirements defined for stage %s", e.DUT, e.Kind, e.Stage)
}
