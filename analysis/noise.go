package analysis

import (
	"fmt"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// NoiseAnalysis holds the worst-case noise figure across a set of NF
// traces.
type NoiseAnalysis struct {
	Traces      []*model.NoiseTrace
	WorstCaseNF model.Metric
}

// Metrics lists the analysis' metrics in reporting order.
func (a NoiseAnalysis) Metrics() []model.Metric {
	return []model.Metric{a.WorstCaseNF}
}

// AnalyzeNoise finds the envelope-maximum noise figure: the highest NF at
// any frequency in the operational band across all traces, not just the
// single worst trace. The metric records the frequency and source file
// where the maximum occurred for traceability.
func (e *Engine) AnalyzeNoise(traces []*model.NoiseTrace, dut *model.DutConfig) NoiseAnalysis {
	a := NoiseAnalysis{Traces: traces}

	sources := make([]string, 0, len(traces))
	for _, tr := range traces {
		sources = append(sources, tr.SourceFile)
	}
	prov := model.Provenance{
		Sources: sources,
		Method:  "envelope maximum over operational band across all traces",
	}

	found := false
	var worst model.NoiseSample
	var worstSource string
	for _, tr := range traces {
		for _, s := range tr.Samples {
			if !dut.Operational.Contains(s.FreqGHz) {
				continue
			}
			if !found || s.NFdB > worst.NFdB {
				worst, worstSource, found = s, tr.SourceFile, true
			}
		}
	}

	if !found {
		a.WorstCaseNF = model.IndeterminateMetric("worst_case_nf", model.TestNoiseFigure,
			fmt.Sprintf("no NF samples in operational band %s", bandLabel(dut.Operational)), prov)
		return a
	}

	a.WorstCaseNF = model.Metric{
		Name: "worst_case_nf", Kind: model.TestNoiseFigure, Unit: "dB",
		Value: worst.NFdB, FreqGHz: worst.FreqGHz,
		Provenance: model.Provenance{Sources: []string{worstSource}, Method: prov.Method},
	}
	return a
}
