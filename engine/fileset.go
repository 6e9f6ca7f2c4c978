package engine

import (
	"fmt"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
	"github.com/mikem1017/macallan-rf-perf-tool/touchstone"
)

type chainVariant struct {
	chain   model.Chain
	variant model.GainVariant
}

// checkFileSet verifies that the supplied S-parameter files cover every
// chain the device carries: primary and redundant, crossed with the HG/LG
// variants on devices built in both. Gaps surface as structure warnings,
// never errors: a partial bench session is still worth evaluating.
func checkFileSet(files []*touchstone.File, dut *model.DutConfig) []model.Warning {
	if len(files) == 0 {
		return nil
	}

	// On devices without HG/LG variants the filename's variant segment is
	// irrelevant; coverage is judged per chain alone.
	variantKey := func(v model.GainVariant) model.GainVariant {
		if !dut.HGLGEnabled {
			return model.VariantUnknown
		}
		return v
	}

	seen := make(map[chainVariant]bool)
	identified := 0
	for _, f := range files {
		if f.Meta.Chain == model.ChainUnknown {
			continue
		}
		identified++
		seen[chainVariant{f.Meta.Chain, variantKey(f.Meta.Variant)}] = true
	}
	// Nothing matched the naming convention; metadata warnings already
	// cover that, a completeness report would be noise.
	if identified == 0 {
		return nil
	}

	variants := []model.GainVariant{model.VariantUnknown}
	if dut.HGLGEnabled {
		variants = []model.GainVariant{model.VariantHighGain, model.VariantLowGain}
	}

	var warnings []model.Warning
	for _, chain := range []model.Chain{model.ChainPrimary, model.ChainRedundant} {
		for _, variant := range variants {
			if seen[chainVariant{chain, variant}] {
				continue
			}
			label := chain.String()
			if variant != model.VariantUnknown {
				label += " " + variant.String()
			}
			warnings = append(warnings, model.Warning{
				Kind:    model.WarnStructure,
				Message: fmt.Sprintf("no trace file for %s chain", label),
			})
		}
	}
	return warnings
}
