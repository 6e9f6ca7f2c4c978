// Command rfcheck evaluates bench measurement files against a device
// type's requirements for one test stage and prints a verdict table.
// Exit status: 0 pass, 1 fail, 2 indeterminate or usage error.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/engine"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
	"github.com/mikem1017/macallan-rf-perf-tool/store"
)

type fileList []string

func (f *fileList) String() string { return strings.Join(*f, ",") }

func (f *fileList) Set(v string) error {
	*f = append(*f, v)
	return nil
}

func main() {
	var sparamFiles, powerFiles, noiseFiles fileList
	configPath := flag.String("config", "", "YAML file of device configurations")
	dutName := flag.String("dut", "", "Device type name to evaluate against")
	stageName := flag.String("stage", "sit", "Test stage: board_bringup, sit, or test_campaign")
	gridTolerance := flag.Float64("grid-tolerance", 0, "Frequency grid tolerance in GHz (0 uses the default)")
	jsonOut := flag.Bool("json", false, "Emit the full run result as JSON instead of a table")
	flag.Var(&sparamFiles, "sparams", "Touchstone file (repeatable)")
	flag.Var(&powerFiles, "power", "Power/linearity CSV file (repeatable)")
	flag.Var(&noiseFiles, "nf", "Noise figure CSV file (repeatable)")
	flag.Parse()

	if *configPath == "" || *dutName == "" {
		fmt.Fprintln(os.Stderr, "rfcheck: -config and -dut are required")
		flag.Usage()
		os.Exit(2)
	}

	stage, err := model.ParseStage(*stageName)
	if err != nil {
		fatal(err)
	}

	dut, err := loadDut(*configPath, *dutName)
	if err != nil {
		fatal(err)
	}

	req := engine.RunRequest{DUT: dut, Stage: stage}
	if req.SParamFiles, err = readFiles(sparamFiles); err != nil {
		fatal(err)
	}
	if req.PowerFiles, err = readFiles(powerFiles); err != nil {
		fatal(err)
	}
	if req.NoiseFiles, err = readFiles(noiseFiles); err != nil {
		fatal(err)
	}

	eng := analysis.New(analysis.Config{GridToleranceGHz: *gridTolerance})
	runner := engine.NewRunner(eng, logging.NewFromEnv(), nil)

	result, err := runner.Run(context.Background(), req)
	if err != nil {
		fatal(err)
	}

	if *jsonOut {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			fatal(err)
		}
	} else {
		printResult(result)
	}

	switch result.Overall {
	case model.StatusPass:
		os.Exit(0)
	case model.StatusFail:
		os.Exit(1)
	default:
		os.Exit(2)
	}
}

func loadDut(path, name string) (*model.DutConfig, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	configs, err := store.DecodeYAML(f)
	if err != nil {
		return nil, err
	}
	for _, cfg := range configs {
		if cfg.Name == name {
			return cfg, nil
		}
	}
	return nil, fmt.Errorf("device type %q not found in %s", name, path)
}

func readFiles(paths []string) ([]engine.FileInput, error) {
	var out []engine.FileInput
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			return nil, err
		}
		out = append(out, engine.FileInput{Name: p, Content: data})
	}
	return out, nil
}

func printResult(result *engine.RunResult) {
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w)
	}
	for _, fe := range result.FileErrors {
		fmt.Fprintf(os.Stderr, "error: %s\n", fe.Error())
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KIND\tMETRIC\tVALUE\tBOUND\tSTATUS\tMARGIN\tREASON")
	for _, kr := range result.Kinds {
		if kr.ConfigError != nil {
			fmt.Fprintf(tw, "%s\t-\t-\t-\t%s\t-\t%s\n",
				kr.Kind, kr.Aggregate, kr.ConfigError.Error())
			continue
		}
		for _, v := range kr.Verdicts {
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
				kr.Kind, v.Metric.Name, metricValue(v.Metric), boundLabel(v.Bound),
				v.Status, marginLabel(v), v.Reason)
		}
	}
	tw.Flush()
	fmt.Printf("\noverall: %s (stage %s, dut %s)\n", result.Overall, result.Stage, result.DUT)
}

func metricValue(m model.Metric) string {
	switch {
	case m.Indeterminate:
		return "-"
	case m.Infinite:
		return "inf"
	case len(m.Curve) > 0 && m.Value == 0:
		return fmt.Sprintf("curve[%d]", len(m.Curve))
	default:
		return fmt.Sprintf("%.3f %s", m.Value, m.Unit)
	}
}

func boundLabel(b model.Bound) string {
	switch {
	case b.Min != nil && b.Max != nil:
		return fmt.Sprintf("[%g, %g]", *b.Min, *b.Max)
	case b.Min != nil:
		return fmt.Sprintf(">= %g", *b.Min)
	case b.Max != nil:
		return fmt.Sprintf("<= %g", *b.Max)
	default:
		return "-"
	}
}

func marginLabel(v model.Verdict) string {
	if v.MarginUnbounded {
		return "unbounded"
	}
	if v.Status == model.StatusIndeterminate {
		return "-"
	}
	return fmt.Sprintf("%+.3f", v.Margin)
}

func fatal(err error) {
	fmt.Fprintf(os.Stderr, "rfcheck: %v\n", err)
	os.Exit(2)
}
