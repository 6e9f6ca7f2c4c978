package model

import (
	"fmt"
	"strings"
)

// TestStage identifies the qualification stage whose requirement set is in
// force. Stages typically tighten as a unit moves from bring-up to campaign.
type TestStage int

const (
	StageBoardBringup TestStage = iota
	StageSIT
	StageTestCampaign
)

var stageNames = map[TestStage]string{
	StageBoardBringup: "board_bringup",
	StageSIT:          "sit",
	StageTestCampaign: "test_campaign",
}

func (s TestStage) String() string {
	if name, ok := stageNames[s]; ok {
		return name
	}
	return fmt.Sprintf("TestStage(%d)", int(s))
}

// ParseStage maps a stage name to its TestStage. It accepts the canonical
// snake_case names plus the display spellings used on bench sheets.
func ParseStage(s string) (TestStage, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "board_bringup", "board bring-up", "bringup":
		return StageBoardBringup, nil
	case "sit":
		return StageSIT, nil
	case "test_campaign", "test campaign", "campaign":
		return StageTestCampaign, nil
	default:
		return 0, fmt.Errorf("unknown test stage %q", s)
	}
}

// Stages lists all stages in pipeline order.
func Stages() []TestStage {
	return []TestStage{StageBoardBringup, StageSIT, StageTestCampaign}
}

func (s TestStage) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

func (s *TestStage) UnmarshalText(b []byte) error {
	parsed, err := ParseStage(string(b))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// MarshalYAML lets stages appear as plain strings in YAML configuration
// documents (yaml.v3 does not consult TextMarshaler).
func (s TestStage) MarshalYAML() (interface{}, error) { return s.String(), nil }

func (s *TestStage) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return s.UnmarshalText([]byte(raw))
}

// TestKind identifies one of the measurement families a DUT can be
// qualified against.
type TestKind int

const (
	TestSParameters TestKind = iota
	TestPowerLinearity
	TestNoiseFigure
)

var kindNames = map[TestKind]string{
	TestSParameters:    "s_parameters",
	TestPowerLinearity: "power_linearity",
	TestNoiseFigure:    "noise_figure",
}

func (k TestKind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("TestKind(%d)", int(k))
}

// ParseTestKind maps a kind name to its TestKind.
func ParseTestKind(s string) (TestKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "s_parameters", "sparams", "s-parameters":
		return TestSParameters, nil
	case "power_linearity", "power", "linearity", "compression":
		return TestPowerLinearity, nil
	case "noise_figure", "nf":
		return TestNoiseFigure, nil
	default:
		return 0, fmt.Errorf("unknown test kind %q", s)
	}
}

// TestKinds lists all measurement families.
func TestKinds() []TestKind {
	return []TestKind{TestSParameters, TestPowerLinearity, TestNoiseFigure}
}

func (k TestKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *TestKind) UnmarshalText(b []byte) error {
	parsed, err := ParseTestKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

func (k TestKind) MarshalYAML() (interface{}, error) { return k.String(), nil }

func (k *TestKind) UnmarshalYAML(unmarshal func(interface{}) error) error {
	var raw string
	if err := unmarshal(&raw); err != nil {
		return err
	}
	return k.UnmarshalText([]byte(raw))
}
