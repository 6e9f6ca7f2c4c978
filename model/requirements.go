package model

// GainBand bounds gain over a frequency sub-band. Device types whose gain
// spec varies across the operational band carry one entry per sub-band in
// addition to the whole-band bounds.
type GainBand struct {
	Band  FrequencyRange `json:"Band" yaml:"band"`
	MinDB float64        `json:"MinDB" yaml:"min_db"`
	MaxDB float64        `json:"MaxDB" yaml:"max_db"`
}

// OutOfBandRequirement demands a minimum rejection (dB) inside one
// out-of-band window. Windows sit outside the operational band but inside
// the wideband sweep, so evaluating them needs wideband trace data.
type OutOfBandRequirement struct {
	Window         FrequencyRange `json:"Window" yaml:"window"`
	RejectionMinDB float64        `json:"RejectionMinDB" yaml:"rejection_min_db"`
}

// PinPoutIM3Point is one point of the combined Pin/Pout/IM3 tolerance
// curve: at input power PinDBm the device must deliver at least PoutMinDBm
// and keep third-order products at least IM3MinDBc below the fundamentals.
// IM3 is expressed as positive dBc (carrier minus product); larger is
// better. IM5MinDBc is optional and checked only when set.
type PinPoutIM3Point struct {
	PinDBm     float64  `json:"PinDBm" yaml:"pin_dbm"`
	PoutMinDBm float64  `json:"PoutMinDBm" yaml:"pout_min_dbm"`
	IM3MinDBc  float64  `json:"IM3MinDBc" yaml:"im3_min_dbc"`
	IM5MinDBc  *float64 `json:"IM5MinDBc,omitempty" yaml:"im5_min_dbc,omitempty"`
}

// SParamRequirements bounds the S-parameter metrics for one stage.
type SParamRequirements struct {
	GainMinDB     float64                `json:"GainMinDB" yaml:"gain_min_db"`
	GainMaxDB     float64                `json:"GainMaxDB" yaml:"gain_max_db"`
	GainBands     []GainBand             `json:"GainBands,omitempty" yaml:"gain_bands,omitempty"`
	FlatnessMaxDB float64                `json:"FlatnessMaxDB" yaml:"flatness_max_db"`
	VSWRMax       float64                `json:"VSWRMax" yaml:"vswr_max"`
	OutOfBand     []OutOfBandRequirement `json:"OutOfBand,omitempty" yaml:"out_of_band,omitempty"`
}

// PowerRequirements bounds the power/linearity metrics for one stage.
type PowerRequirements struct {
	P1dBMinDBm float64           `json:"P1dBMinDBm" yaml:"p1db_min_dbm"`
	PinPoutIM3 []PinPoutIM3Point `json:"PinPoutIM3,omitempty" yaml:"pin_pout_im3,omitempty"`
}

// NoiseRequirements bounds the noise figure metrics for one stage.
type NoiseRequirements struct {
	NFMaxDB float64 `json:"NFMaxDB" yaml:"nf_max_db"`
}

// RequirementSet holds the bounds in force for one (DutConfig, TestStage)
// pair. A nil section means the stage defines no requirements for that
// test kind; evaluation of an enabled kind against a nil section is a
// configuration error, never a silent skip.
type RequirementSet struct {
	SParams *SParamRequirements `json:"SParams,omitempty" yaml:"s_parameters,omitempty"`
	Power   *PowerRequirements  `json:"Power,omitempty" yaml:"power_linearity,omitempty"`
	Noise   *NoiseRequirements  `json:"Noise,omitempty" yaml:"noise_figure,omitempty"`
}

// Defines reports whether the set carries requirements for the given kind.
func (rs RequirementSet) Defines(kind TestKind) bool {
	switch kind {
	case TestSParameters:
		return rs.SParams != nil
	case TestPowerLinearity:
		return rs.Power != nil
	case TestNoiseFigure:
		return rs.Noise != nil
	default:
		return false
	}
}

// Clone returns a deep copy of the requirement set.
func (rs RequirementSet) Clone() RequirementSet {
	out := RequirementSet{}
	if rs.SParams != nil {
		sp := *rs.SParams
		sp.GainBands = append([]GainBand(nil), rs.SParams.GainBands...)
		sp.OutOfBand = append([]OutOfBandRequirement(nil), rs.SParams.OutOfBand...)
		out.SParams = &sp
	}
	if rs.Power != nil {
		pw := *rs.Power
		pw.PinPoutIM3 = make([]PinPoutIM3Point, len(rs.Power.PinPoutIM3))
		for i, pt := range rs.Power.PinPoutIM3 {
			cp := pt
			if pt.IM5MinDBc != nil {
				v := *pt.IM5MinDBc
				cp.IM5MinDBc = &v
			}
			pw.PinPoutIM3[i] = cp
		}
		out.Power = &pw
	}
	if rs.Noise != nil {
		nf := *rs.Noise
		out.Noise = &nf
	}
	return out
}
