package analysis

import (
	"testing"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

func TestAnalyzeNoiseEnvelopeAcrossTraces(t *testing.T) {
	traces := []*model.NoiseTrace{
		{
			SourceFile: "nf_pri.csv",
			Samples: []model.NoiseSample{
				{FreqGHz: 2.0, NFdB: 2.1},
				{FreqGHz: 2.1, NFdB: 2.4},
				{FreqGHz: 2.2, NFdB: 2.2},
			},
		},
		{
			SourceFile: "nf_red.csv",
			Samples: []model.NoiseSample{
				{FreqGHz: 2.0, NFdB: 2.0},
				{FreqGHz: 2.1, NFdB: 2.9}, // worst point overall
				{FreqGHz: 2.2, NFdB: 2.1},
			},
		},
	}
	a := New(DefaultConfig()).AnalyzeNoise(traces, testDut())

	m := a.WorstCaseNF
	if m.Indeterminate {
		t.Fatalf("worst-case NF indeterminate: %s", m.IndeterminateReason)
	}
	if m.Value != 2.9 || m.FreqGHz != 2.1 {
		t.Fatalf("worst NF = %g at %g GHz, want 2.9 at 2.1", m.Value, m.FreqGHz)
	}
	if len(m.Provenance.Sources) != 1 || m.Provenance.Sources[0] != "nf_red.csv" {
		t.Fatalf("provenance = %v, want the worst trace's file", m.Provenance.Sources)
	}
}

func TestAnalyzeNoiseIgnoresOutOfBandPeaks(t *testing.T) {
	traces := []*model.NoiseTrace{{
		SourceFile: "nf.csv",
		Samples: []model.NoiseSample{
			{FreqGHz: 1.0, NFdB: 9.0}, // outside operational band
			{FreqGHz: 2.1, NFdB: 2.4},
		},
	}}
	a := New(DefaultConfig()).AnalyzeNoise(traces, testDut())
	if a.WorstCaseNF.Value != 2.4 {
		t.Fatalf("worst NF = %g, want 2.4 (out-of-band peak excluded)", a.WorstCaseNF.Value)
	}
}

func TestAnalyzeNoiseNoBandSamplesIndeterminate(t *testing.T) {
	traces := []*model.NoiseTrace{{
		SourceFile: "nf.csv",
		Samples:    []model.NoiseSample{{FreqGHz: 5.0, NFdB: 3.0}},
	}}
	a := New(DefaultConfig()).AnalyzeNoise(traces, testDut())
	if !a.WorstCaseNF.Indeterminate {
		t.Fatal("no in-band samples should be indeterminate")
	}
}
