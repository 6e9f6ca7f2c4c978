// Package engine orchestrates evaluation runs: it parses measurement
// files, derives stage-independent metrics, and judges them against the
// requirement set of a test stage. Parsing and analysis happen once per
// run; switching stages re-judges the same bundle without touching the
// input files again.
package engine

import (
	"bytes"
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/compliance"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/observability"
	"github.com/mikem1017/macallan-rf-perf-tool/model"
	"github.com/mikem1017/macallan-rf-perf-tool/nfcsv"
	"github.com/mikem1017/macallan-rf-perf-tool/powercsv"
	"github.com/mikem1017/macallan-rf-perf-tool/touchstone"
)

// FileInput is one measurement file handed to a run.
type FileInput struct {
	Name    string `json:"Name"`
	Content []byte `json:"Content"`
}

// RunRequest describes one evaluation run: the device configuration, the
// stage whose bounds apply, and the measurement files per test kind.
type RunRequest struct {
	DUT   *model.DutConfig
	Stage model.TestStage

	SParamFiles []FileInput
	PowerFiles  []FileInput
	NoiseFiles  []FileInput

	// NoiseColumns overrides the NF CSV column mapping; nil uses the
	// default mapping.
	NoiseColumns *nfcsv.ColumnMap
}

// FileError records a file rejected with a fatal parse error. File errors
// are collected on the result, never returned from Run: one bad file must
// not take down the rest of the evaluation.
type FileError struct {
	File string `json:"File"`
	Err  error  `json:"-"`
}

func (e FileError) Error() string { return e.File + ": " + e.Err.Error() }

// Bundle holds everything derived from the input files that does not
// depend on the test stage. Judging a bundle against a different stage is
// pure recomputation over these metrics.
type Bundle struct {
	DUT *model.DutConfig

	SParams []analysis.SParamAnalysis
	Power   []analysis.PowerAnalysis
	Noise   analysis.NoiseAnalysis

	Warnings   []model.Warning
	FileErrors []FileError
}

// Metrics lists every derived metric in the bundle.
func (b *Bundle) Metrics() []model.Metric {
	var out []model.Metric
	for _, a := range b.SParams {
		out = append(out, a.Metrics()...)
	}
	for _, a := range b.Power {
		out = append(out, a.Metrics()...)
	}
	if len(b.Noise.Traces) > 0 {
		out = append(out, b.Noise.Metrics()...)
	}
	return out
}

// KindResult is the judged outcome for one test kind. ConfigError is set
// when the kind is enabled but the stage defines no requirements for it;
// the kind then fails closed with no verdicts.
type KindResult struct {
	Kind        model.TestKind            `json:"Kind"`
	Verdicts    []model.Verdict           `json:"Verdicts"`
	Aggregate   model.Status              `json:"Aggregate"`
	ConfigError *model.ConfigurationError `json:"ConfigError,omitempty"`
}

// RunResult is the full outcome of one evaluation run.
type RunResult struct {
	ID    string          `json:"ID"`
	DUT   string          `json:"DUT"`
	Stage model.TestStage `json:"Stage"`

	Kinds   []KindResult `json:"Kinds"`
	Overall model.Status `json:"Overall"`

	Metrics    []model.Metric  `json:"Metrics"`
	Warnings   []model.Warning `json:"Warnings"`
	FileErrors []FileError     `json:"FileErrors,omitempty"`

	Duration time.Duration `json:"Duration"`
}

// Runner executes evaluation runs.
type Runner struct {
	eng       *analysis.Engine
	evaluator *compliance.Evaluator
	log       logging.Logger
	collector *observability.EvaluationCollector
}

// NewRunner constructs a Runner. The collector may be nil when metrics are
// not wanted, e.g. in the CLI.
func NewRunner(eng *analysis.Engine, log logging.Logger, collector *observability.EvaluationCollector) *Runner {
	if eng == nil {
		eng = analysis.New(analysis.DefaultConfig())
	}
	if log == nil {
		log = logging.Noop()
	}
	return &Runner{
		eng:       eng,
		evaluator: compliance.New(eng),
		log:       log,
		collector: collector,
	}
}

// Run parses, analyzes and judges in one pass.
func (r *Runner) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	start := time.Now()
	ctx, log := logging.WithRunLogger(ctx, r.log)
	ctx, span := observability.StartSpan(ctx, "evaluation.run",
		attribute.String("dut", req.DUT.Name),
		attribute.String("stage", req.Stage.String()),
	)
	defer span.End()

	bundle, err := r.Analyze(ctx, req)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	result := r.Judge(bundle, req.Stage)
	result.ID = logging.RunIDFromContext(ctx)
	result.Duration = time.Since(start)

	r.collector.ObserveRun(result.Duration)
	log.Info(ctx, "evaluation run complete",
		logging.String("dut", result.DUT),
		logging.String("stage", req.Stage.String()),
		logging.String("overall", result.Overall.String()),
		logging.Int("warnings", len(result.Warnings)),
		logging.Int("file_errors", len(result.FileErrors)),
	)
	return result, nil
}

// Analyze parses every input file and derives the stage-independent metric
// bundle. The DUT configuration is validated and deep-copied on entry so
// concurrent edits cannot mutate an in-flight run. Fatal parse errors are
// collected per file; only an invalid configuration returns a nil bundle.
// A cancelled context stops parsing between files and returns the bundle
// built so far alongside the error: per-file results already computed stay
// valid and judgeable.
func (r *Runner) Analyze(ctx context.Context, req RunRequest) (*Bundle, error) {
	if err := req.DUT.Validate(); err != nil {
		return nil, err
	}
	dut := req.DUT.Clone()
	bundle := &Bundle{DUT: dut}
	log := r.runLog(ctx)

	var err error
	if dut.TestEnabled(model.TestSParameters) {
		err = r.analyzeSParams(ctx, req.SParamFiles, dut, bundle, log)
	}
	if err == nil && dut.TestEnabled(model.TestPowerLinearity) {
		err = r.analyzePower(ctx, req.PowerFiles, bundle, log)
	}
	if err == nil && dut.TestEnabled(model.TestNoiseFigure) {
		err = r.analyzeNoise(ctx, req.NoiseFiles, req.NoiseColumns, dut, bundle, log)
	}
	r.collector.ObserveWarnings(bundle.Warnings)
	return bundle, err
}

func (r *Runner) analyzeSParams(ctx context.Context, files []FileInput, dut *model.DutConfig, bundle *Bundle, log logging.Logger) error {
	var parsed []*touchstone.File
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, span := observability.StartSpan(ctx, "parse.touchstone", attribute.String("file", in.Name))
		file, err := touchstone.Parse(bytes.NewReader(in.Content), in.Name)
		if err != nil {
			span.RecordError(err)
			span.End()
			bundle.FileErrors = append(bundle.FileErrors, FileError{File: in.Name, Err: err})
			r.collector.ObserveParseError("touchstone")
			log.Warn(ctx, "touchstone file rejected",
				logging.String("file", in.Name), logging.String("error", err.Error()))
			continue
		}
		span.End()
		r.collector.ObserveFileParsed("touchstone")
		bundle.Warnings = append(bundle.Warnings, file.Warnings...)
		parsed = append(parsed, file)

		for i := range file.Traces {
			tr := &file.Traces[i]
			if !traceRelevant(tr.Param, dut) {
				continue
			}
			bundle.SParams = append(bundle.SParams, r.eng.AnalyzeSParam(tr, dut))
		}
	}
	bundle.Warnings = append(bundle.Warnings, checkFileSet(parsed, dut)...)
	return nil
}

// traceRelevant keeps transmission paths declared by the port topology and
// every reflection term on a physical port.
func traceRelevant(p model.SParamID, dut *model.DutConfig) bool {
	if p.IsReflection() {
		return p.OutPort >= 1 && p.OutPort <= dut.NumPorts
	}
	return containsPort(dut.OutputPorts, p.OutPort) && containsPort(dut.InputPorts, p.InPort)
}

func containsPort(ports []int, p int) bool {
	for _, q := range ports {
		if q == p {
			return true
		}
	}
	return false
}

func (r *Runner) analyzePower(ctx context.Context, files []FileInput, bundle *Bundle, log logging.Logger) error {
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, span := observability.StartSpan(ctx, "parse.power_csv", attribute.String("file", in.Name))
		file, err := powercsv.Parse(bytes.NewReader(in.Content), in.Name)
		if err != nil {
			span.RecordError(err)
			span.End()
			bundle.FileErrors = append(bundle.FileErrors, FileError{File: in.Name, Err: err})
			r.collector.ObserveParseError("power_csv")
			log.Warn(ctx, "power csv rejected",
				logging.String("file", in.Name), logging.String("error", err.Error()))
			continue
		}
		span.End()
		r.collector.ObserveFileParsed("power_csv")
		bundle.Warnings = append(bundle.Warnings, file.Warnings...)
		bundle.Power = append(bundle.Power, r.eng.AnalyzePower(file))
	}
	return nil
}

func (r *Runner) analyzeNoise(ctx context.Context, files []FileInput, cols *nfcsv.ColumnMap, dut *model.DutConfig, bundle *Bundle, log logging.Logger) error {
	mapping := nfcsv.DefaultColumnMap()
	if cols != nil {
		mapping = *cols
	}
	var traces []*model.NoiseTrace
	for _, in := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		_, span := observability.StartSpan(ctx, "parse.nf_csv", attribute.String("file", in.Name))
		trace, err := nfcsv.Parse(bytes.NewReader(in.Content), in.Name, mapping)
		if err != nil {
			span.RecordError(err)
			span.End()
			bundle.FileErrors = append(bundle.FileErrors, FileError{File: in.Name, Err: err})
			r.collector.ObserveParseError("nf_csv")
			log.Warn(ctx, "nf csv rejected",
				logging.String("file", in.Name), logging.String("error", err.Error()))
			continue
		}
		span.End()
		r.collector.ObserveFileParsed("nf_csv")
		bundle.Warnings = append(bundle.Warnings, trace.Warnings...)
		traces = append(traces, trace)
	}
	if len(traces) > 0 {
		bundle.Noise = r.eng.AnalyzeNoise(traces, dut)
	}
	return nil
}

// Judge applies one stage's requirement set to an analyzed bundle. It is
// pure over the bundle: calling it again with a different stage performs a
// stage switch with no re-parsing or re-analysis.
func (r *Runner) Judge(bundle *Bundle, stage model.TestStage) *RunResult {
	dut := bundle.DUT
	result := &RunResult{
		ID:         uuid.NewString(),
		DUT:        dut.Name,
		Stage:      stage,
		Metrics:    bundle.Metrics(),
		Warnings:   bundle.Warnings,
		FileErrors: bundle.FileErrors,
	}

	reqs, hasReqs := dut.RequirementsFor(stage)
	for _, kind := range model.TestKinds() {
		if !dut.TestEnabled(kind) {
			continue
		}
		kr := KindResult{Kind: kind}
		if !hasReqs || !reqs.Defines(kind) {
			kr.ConfigError = &model.ConfigurationError{DUT: dut.Name, Stage: stage, Kind: kind}
			kr.Aggregate = model.StatusFail
			result.Kinds = append(result.Kinds, kr)
			continue
		}

		switch kind {
		case model.TestSParameters:
			for _, a := range bundle.SParams {
				kr.Verdicts = append(kr.Verdicts, r.evaluator.EvaluateSParam(a, dut, reqs.SParams)...)
			}
		case model.TestPowerLinearity:
			for _, a := range bundle.Power {
				kr.Verdicts = append(kr.Verdicts, r.evaluator.EvaluatePower(a, reqs.Power)...)
			}
		case model.TestNoiseFigure:
			if len(bundle.Noise.Traces) > 0 {
				kr.Verdicts = append(kr.Verdicts, r.evaluator.EvaluateNoise(bundle.Noise, reqs.Noise)...)
			}
		}
		kr.Aggregate = model.Aggregate(kr.Verdicts)
		r.collector.ObserveVerdicts(kind, kr.Verdicts)
		result.Kinds = append(result.Kinds, kr)
	}

	result.Overall = overall(result.Kinds)
	return result
}

// overall folds kind aggregates with the same precedence as verdict
// aggregation: fail beats indeterminate beats pass, and no kinds at all is
// indeterminate.
func overall(kinds []KindResult) model.Status {
	if len(kinds) == 0 {
		return model.StatusIndeterminate
	}
	sawIndeterminate := false
	for _, k := range kinds {
		switch k.Aggregate {
		case model.StatusFail:
			return model.StatusFail
		case model.StatusIndeterminate:
			sawIndeterminate = true
		}
	}
	if sawIndeterminate {
		return model.StatusIndeterminate
	}
	return model.StatusPass
}

func (r *Runner) runLog(ctx context.Context) logging.Logger {
	if l := logging.LoggerFromContext(ctx); l != nil {
		return l
	}
	return r.log
}
