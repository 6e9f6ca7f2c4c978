package compliance

import (
	"math"
	"testing"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

func newEvaluator() *Evaluator {
	return New(analysis.New(analysis.DefaultConfig()))
}

func scalar(v float64) model.Metric {
	return model.Metric{Name: "gain", Kind: model.TestSParameters, Unit: "dB", Value: v}
}

func TestCheckTwoSidedPassMarginsPositive(t *testing.T) {
	v := newEvaluator().Check(scalar(15), model.BoundBetween(10, 20))
	if v.Status != model.StatusPass {
		t.Fatalf("status = %v, want pass", v.Status)
	}
	// 15 in [10, 20] has 5 dB of room on both sides.
	if math.Abs(v.Margin-5) > 1e-12 {
		t.Fatalf("margin = %v, want 5", v.Margin)
	}
}

func TestCheckTwoSidedFailHighSideOnly(t *testing.T) {
	v := newEvaluator().Check(scalar(25), model.BoundBetween(10, 20))
	if v.Status != model.StatusFail {
		t.Fatalf("status = %v, want fail", v.Status)
	}
	// Margin is negative against the violated max bound only.
	if math.Abs(v.Margin-(-5)) > 1e-12 {
		t.Fatalf("margin = %v, want -5", v.Margin)
	}
}

func TestCheckTwoSidedFailLowSide(t *testing.T) {
	v := newEvaluator().Check(scalar(7), model.BoundBetween(10, 20))
	if v.Status != model.StatusFail || math.Abs(v.Margin-(-3)) > 1e-12 {
		t.Fatalf("verdict = %v margin %v, want fail with -3", v.Status, v.Margin)
	}
}

func TestCheckOneSidedMargins(t *testing.T) {
	ev := newEvaluator()

	// Min-only bound: margin = value - min.
	v := ev.Check(scalar(45), model.BoundMin(40))
	if v.Status != model.StatusPass || math.Abs(v.Margin-5) > 1e-12 {
		t.Fatalf("min-only pass = %v margin %v", v.Status, v.Margin)
	}
	v = ev.Check(scalar(38), model.BoundMin(40))
	if v.Status != model.StatusFail || math.Abs(v.Margin-(-2)) > 1e-12 {
		t.Fatalf("min-only fail = %v margin %v", v.Status, v.Margin)
	}

	// Max-only bound: margin = max - value.
	v = ev.Check(scalar(1.8), model.BoundMax(2.0))
	if v.Status != model.StatusPass || math.Abs(v.Margin-0.2) > 1e-12 {
		t.Fatalf("max-only pass = %v margin %v", v.Status, v.Margin)
	}
}

func TestCheckStageTighteningMonotonic(t *testing.T) {
	// The same metric against a strictly tighter bound never improves its
	// margin, and a pass can only stay a pass or become a fail.
	ev := newEvaluator()
	m := scalar(15)

	loose := ev.Check(m, model.BoundBetween(10, 20))
	tight := ev.Check(m, model.BoundBetween(14, 16))
	tighter := ev.Check(m, model.BoundBetween(15.5, 16))

	if tight.Margin > loose.Margin {
		t.Fatalf("tighter bound improved margin: %v > %v", tight.Margin, loose.Margin)
	}
	if tighter.Margin > tight.Margin {
		t.Fatalf("tightest bound improved margin: %v > %v", tighter.Margin, tight.Margin)
	}
	if loose.Status != model.StatusPass || tight.Status != model.StatusPass {
		t.Fatal("15 should pass both [10,20] and [14,16]")
	}
	if tighter.Status != model.StatusFail {
		t.Fatal("15 should fail [15.5,16]")
	}
}

func TestCheckIndeterminatePropagates(t *testing.T) {
	m := model.IndeterminateMetric("worst_case_nf", model.TestNoiseFigure, "no samples in band", model.Provenance{})
	v := newEvaluator().Check(m, model.BoundMax(3))
	if v.Status != model.StatusIndeterminate {
		t.Fatalf("status = %v, want indeterminate", v.Status)
	}
	if v.Reason != "no samples in band" {
		t.Fatalf("reason = %q", v.Reason)
	}
}

func TestCheckInfiniteAgainstMaxFailsUnbounded(t *testing.T) {
	m := model.Metric{Name: "vswr_max_S11", Kind: model.TestSParameters, Infinite: true}
	v := newEvaluator().Check(m, model.BoundMax(2))
	if v.Status != model.StatusFail {
		t.Fatalf("status = %v, want fail", v.Status)
	}
	if !v.MarginUnbounded {
		t.Fatal("infinite metric should have an unbounded margin")
	}
}

func TestCheckOffsetWithinToleranceAccepted(t *testing.T) {
	m := scalar(15)
	m.OffsetFlagged = true
	m.GridOffsetGHz = 0.005
	v := newEvaluator().Check(m, model.BoundBetween(10, 20))
	if v.Status != model.StatusPass {
		t.Fatalf("offset within tolerance should evaluate normally, got %v (%s)", v.Status, v.Reason)
	}
}

func TestCheckOffsetBeyondToleranceIndeterminate(t *testing.T) {
	m := scalar(15)
	m.OffsetFlagged = true
	m.GridOffsetGHz = -0.05
	v := newEvaluator().Check(m, model.BoundBetween(10, 20))
	if v.Status != model.StatusIndeterminate {
		t.Fatalf("offset beyond tolerance should be indeterminate, got %v", v.Status)
	}
}

func TestEvaluatePowerInterrogatesCurves(t *testing.T) {
	ev := newEvaluator()
	a := analysis.PowerAnalysis{
		P1dB: []model.Metric{{
			Name: "p1db_2.1GHz_PRI", Kind: model.TestPowerLinearity, Unit: "dBm", Value: -9,
		}},
		PoutCurves: []model.Metric{{
			Name: "pout_vs_pin_2.1GHz_PRI", Kind: model.TestPowerLinearity, Unit: "dBm",
			Curve: model.Curve{{X: -30, Y: -10}, {X: -20, Y: 0}, {X: -10, Y: 9.5}},
		}},
		IM3Curves: []model.Metric{{
			Name: "im3_vs_pin_2.1GHz_PRI", Kind: model.TestPowerLinearity, Unit: "dBc",
			Curve: model.Curve{{X: -30, Y: 60}, {X: -20, Y: 45}, {X: -10, Y: 30}},
		}},
	}
	req := &model.PowerRequirements{
		P1dBMinDBm: -12,
		PinPoutIM3: []model.PinPoutIM3Point{
			{PinDBm: -25, PoutMinDBm: -6, IM3MinDBc: 50},
		},
	}

	verdicts := ev.EvaluatePower(a, req)
	if len(verdicts) != 3 {
		t.Fatalf("verdicts = %d, want 3 (p1db, pout point, im3 point)", len(verdicts))
	}
	// P1dB -9 against min -12 passes with 3 dB margin.
	if verdicts[0].Status != model.StatusPass || math.Abs(verdicts[0].Margin-3) > 1e-9 {
		t.Fatalf("p1db verdict = %+v", verdicts[0])
	}
	// Pout at -25 dBm interpolates to -5, above the -6 floor.
	if verdicts[1].Status != model.StatusPass || math.Abs(verdicts[1].Metric.Value-(-5)) > 1e-9 {
		t.Fatalf("pout verdict = %+v", verdicts[1])
	}
	// IM3 at -25 dBm interpolates to 52.5 dBc against a 50 dBc floor.
	if verdicts[2].Status != model.StatusPass || math.Abs(verdicts[2].Metric.Value-52.5) > 1e-9 {
		t.Fatalf("im3 verdict = %+v", verdicts[2])
	}
}

func TestEvaluatePowerShortCurveIndeterminate(t *testing.T) {
	ev := newEvaluator()
	a := analysis.PowerAnalysis{
		PoutCurves: []model.Metric{{
			Name: "pout_vs_pin_2.1GHz_PRI", Kind: model.TestPowerLinearity, Unit: "dBm",
			Curve: model.Curve{{X: -30, Y: -10}},
		}},
	}
	req := &model.PowerRequirements{
		PinPoutIM3: []model.PinPoutIM3Point{{PinDBm: -25, PoutMinDBm: -6, IM3MinDBc: 50}},
	}
	verdicts := ev.EvaluatePower(a, req)
	for _, v := range verdicts {
		if v.Metric.Name[:4] == "pout" && v.Status != model.StatusIndeterminate {
			t.Fatalf("single-point curve should be indeterminate: %+v", v)
		}
	}
}

func TestEvaluateNoise(t *testing.T) {
	ev := newEvaluator()
	a := analysis.NoiseAnalysis{
		Traces: []*model.NoiseTrace{{SourceFile: "nf.csv"}},
		WorstCaseNF: model.Metric{
			Name: "worst_case_nf", Kind: model.TestNoiseFigure, Unit: "dB", Value: 2.4, FreqGHz: 2.1,
		},
	}
	verdicts := ev.EvaluateNoise(a, &model.NoiseRequirements{NFMaxDB: 3})
	if len(verdicts) != 1 || verdicts[0].Status != model.StatusPass {
		t.Fatalf("verdicts = %+v", verdicts)
	}
	if math.Abs(verdicts[0].Margin-0.6) > 1e-9 {
		t.Fatalf("margin = %v, want 0.6", verdicts[0].Margin)
	}
}
