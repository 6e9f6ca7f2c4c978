package model

import "fmt"

// FrequencyRange is a simple [min,max] GHz band.
type FrequencyRange struct {
	MinGHz float64 `json:"MinGHz" yaml:"min_ghz"`
	MaxGHz float64 `json:"MaxGHz" yaml:"max_ghz"`
}

// Contains reports whether f (GHz) falls inside the range, inclusive.
func (r FrequencyRange) Contains(f float64) bool {
	return f >= r.MinGHz && f <= r.MaxGHz
}

// Center returns the midpoint frequency in GHz.
func (r FrequencyRange) Center() float64 {
	return (r.MinGHz + r.MaxGHz) / 2
}

// Valid reports whether the range is well-formed.
func (r FrequencyRange) Valid() bool {
	return r.MaxGHz > r.MinGHz && r.MinGHz >= 0
}

// DutConfig describes one device type: its frequency plan, port topology,
// the measurement families it is qualified against, and the per-stage
// requirement sets. A DutConfig selected for an evaluation run is treated
// as immutable; runs deep-copy it on entry so store edits cannot leak into
// in-flight evaluations.
type DutConfig struct {
	Name       string `json:"Name" yaml:"name"`
	PartNumber string `json:"PartNumber" yaml:"part_number"`

	Operational FrequencyRange `json:"Operational" yaml:"operational"`
	Wideband    FrequencyRange `json:"Wideband" yaml:"wideband"`

	NumPorts    int   `json:"NumPorts" yaml:"num_ports"`
	InputPorts  []int `json:"InputPorts" yaml:"input_ports"`
	OutputPorts []int `json:"OutputPorts" yaml:"output_ports"`

	// HGLGEnabled marks device types built in high-gain and low-gain
	// variants; such DUTs expect one trace file per chain per variant.
	HGLGEnabled bool `json:"HGLGEnabled,omitempty" yaml:"hg_lg_enabled"`

	EnabledTests []TestKind `json:"EnabledTests" yaml:"enabled_tests"`

	Requirements map[TestStage]RequirementSet `json:"Requirements" yaml:"requirements"`
}

// TestEnabled reports whether the given measurement family is qualified
// for this device type.
func (d *DutConfig) TestEnabled(kind TestKind) bool {
	for _, k := range d.EnabledTests {
		if k == kind {
			return true
		}
	}
	return false
}

// RequirementsFor returns the requirement set for a stage, if one is
// defined. Callers must not treat a missing set as "no bounds": evaluation
// fails closed on enabled test kinds without requirements.
func (d *DutConfig) RequirementsFor(stage TestStage) (RequirementSet, bool) {
	rs, ok := d.Requirements[stage]
	return rs, ok
}

// Validate checks structural invariants of the configuration record.
func (d *DutConfig) Validate() error {
	if d.Name == "" {
		return fmt.Errorf("dut config: name is required")
	}
	if !d.Operational.Valid() {
		return fmt.Errorf("dut config %q: invalid operational range [%g, %g] GHz", d.Name, d.Operational.MinGHz, d.Operational.MaxGHz)
	}
	if !d.Wideband.Valid() {
		return fmt.Errorf("dut config %q: invalid wideband range [%g, %g] GHz", d.Name, d.Wideband.MinGHz, d.Wideband.MaxGHz)
	}
	if d.Wideband.MinGHz > d.Operational.MinGHz || d.Wideband.MaxGHz < d.Operational.MaxGHz {
		return fmt.Errorf("dut config %q: wideband range must enclose operational range", d.Name)
	}
	if d.NumPorts < 1 || d.NumPorts > 4 {
		return fmt.Errorf("dut config %q: port count %d outside 1..4", d.Name, d.NumPorts)
	}
	for _, p := range append(append([]int{}, d.InputPorts...), d.OutputPorts...) {
		if p < 1 || p > d.NumPorts {
			return fmt.Errorf("dut config %q: port %d outside 1..%d", d.Name, p, d.NumPorts)
		}
	}
	return nil
}

// Clone returns a deep copy of the configuration. Evaluation runs clone
// their DutConfig so that concurrent store edits cannot mutate a run.
func (d *DutConfig) Clone() *DutConfig {
	if d == nil {
		return nil
	}
	out := *d
	out.InputPorts = append([]int(nil), d.InputPorts...)
	out.OutputPorts = append([]int(nil), d.OutputPorts...)
	out.EnabledTests = append([]TestKind(nil), d.EnabledTests...)
	if d.Requirements != nil {
		out.Requirements = make(map[TestStage]RequirementSet, len(d.Requirements))
		for stage, rs := range d.Requirements {
			out.Requirements[stage] = rs.Clone()
		}
	}
	return &out
}
