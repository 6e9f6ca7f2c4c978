package observability

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mikem1017/macallan-rf-perf-tool/model"
)

// EvaluationCollector bundles Prometheus metrics for the evaluation
// pipeline and provides a ready-to-mount /metrics handler.
type EvaluationCollector struct {
	gatherer prometheus.Gatherer

	FilesParsed *prometheus.CounterVec
	ParseErrors *prometheus.CounterVec
	RowWarnings prometheus.Counter

	Runs        prometheus.Counter
	RunDuration prometheus.Histogram
	Verdicts    *prometheus.CounterVec

	DutConfigs prometheus.Gauge
}

// NewEvaluationCollector registers evaluation Prometheus metrics against the
// provided registerer, defaulting to the global Prometheus registry when nil.
func NewEvaluationCollector(reg prometheus.Registerer) (*EvaluationCollector, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	gatherer := prometheus.DefaultGatherer
	if g, ok := reg.(prometheus.Gatherer); ok {
		gatherer = g
	}

	filesParsed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "files_parsed_total",
		Help: "Total number of measurement files parsed successfully, labeled by format.",
	}, []string{"format"})
	filesParsed, err := registerCounterVec(reg, filesParsed, "files_parsed_total")
	if err != nil {
		return nil, err
	}

	parseErrors := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "parse_errors_total",
		Help: "Total number of measurement files rejected with a fatal parse error, labeled by format.",
	}, []string{"format"})
	parseErrors, err = registerCounterVec(reg, parseErrors, "parse_errors_total")
	if err != nil {
		return nil, err
	}

	rowWarnings, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "row_warnings_total",
		Help: "Cumulative number of malformed CSV rows skipped during parsing.",
	}), "row_warnings_total")
	if err != nil {
		return nil, err
	}

	runs, err := registerCounter(reg, prometheus.NewCounter(prometheus.CounterOpts{
		Name: "evaluation_runs_total",
		Help: "Cumulative number of evaluation runs started.",
	}), "evaluation_runs_total")
	if err != nil {
		return nil, err
	}

	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "evaluation_run_duration_seconds",
		Help:    "End-to-end evaluation run latency in seconds, parsing through verdicts.",
		Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})
	runDuration, err = registerHistogram(reg, runDuration, "evaluation_run_duration_seconds")
	if err != nil {
		return nil, err
	}

	verdicts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "verdicts_total",
		Help: "Total number of individual verdicts emitted, labeled by test kind and status.",
	}, []string{"kind", "status"})
	verdicts, err = registerCounterVec(reg, verdicts, "verdicts_total")
	if err != nil {
		return nil, err
	}

	dutConfigs, err := registerGauge(reg, prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "dut_configs",
		Help: "Current number of device configurations held in the store.",
	}), "dut_configs")
	if err != nil {
		return nil, err
	}

	return &EvaluationCollector{
		gatherer:    gatherer,
		FilesParsed: filesParsed,
		ParseErrors: parseErrors,
		RowWarnings: rowWarnings,
		Runs:        runs,
		RunDuration: runDuration,
		Verdicts:    verdicts,
		DutConfigs:  dutConfigs,
	}, nil
}

// Handler exposes a ready-to-use /metrics handler.
func (c *EvaluationCollector) Handler() http.Handler {
	gatherer := c.gatherer
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// Gatherer returns the Prometheus gatherer associated with the collector.
func (c *EvaluationCollector) Gatherer() prometheus.Gatherer {
	if c == nil {
		return nil
	}
	return c.gatherer
}

// ObserveFileParsed records a successful parse of one measurement file.
func (c *EvaluationCollector) ObserveFileParsed(format string) {
	if c == nil || c.FilesParsed == nil {
		return
	}
	c.FilesParsed.WithLabelValues(format).Inc()
}

// ObserveParseError records a fatal parse rejection.
func (c *EvaluationCollector) ObserveParseError(format string) {
	if c == nil || c.ParseErrors == nil {
		return
	}
	c.ParseErrors.WithLabelValues(format).Inc()
}

// ObserveWarnings bumps the row-warning counter for each row-level warning in
// the slice. Metadata and structure warnings are not counted here.
func (c *EvaluationCollector) ObserveWarnings(warnings []model.Warning) {
	if c == nil || c.RowWarnings == nil {
		return
	}
	for _, w := range warnings {
		if w.Kind == model.WarnRow {
			c.RowWarnings.Inc()
		}
	}
}

// ObserveRun records one completed evaluation run and its duration.
func (c *EvaluationCollector) ObserveRun(d time.Duration) {
	if c == nil {
		return
	}
	if c.Runs != nil {
		c.Runs.Inc()
	}
	if c.RunDuration != nil {
		c.RunDuration.Observe(d.Seconds())
	}
}

// ObserveVerdicts counts emitted verdicts by test kind and status.
func (c *EvaluationCollector) ObserveVerdicts(kind model.TestKind, verdicts []model.Verdict) {
	if c == nil || c.Verdicts == nil {
		return
	}
	for _, v := range verdicts {
		c.Verdicts.WithLabelValues(kind.String(), v.Status.String()).Inc()
	}
}

// SetDutConfigCount updates the stored-configuration gauge.
func (c *EvaluationCollector) SetDutConfigCount(n int) {
	if c == nil || c.DutConfigs == nil {
		return
	}
	c.DutConfigs.Set(float64(n))
}

func registerCounterVec(reg prometheus.Registerer, vec *prometheus.CounterVec, name string) (*prometheus.CounterVec, error) {
	if err := reg.Register(vec); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(*prometheus.CounterVec); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return vec, nil
}

func registerHistogram(reg prometheus.Registerer, hist prometheus.Histogram, name string) (prometheus.Histogram, error) {
	if err := reg.Register(hist); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Histogram); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return hist, nil
}

func registerCounter(reg prometheus.Registerer, counter prometheus.Counter, name string) (prometheus.Counter, error) {
	if err := reg.Register(counter); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Counter); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return counter, nil
}

func registerGauge(reg prometheus.Registerer, gauge prometheus.Gauge, name string) (prometheus.Gauge, error) {
	if err := reg.Register(gauge); err != nil {
		if are, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				return existing, nil
			}
			return nil, fmt.Errorf("collector %s already registered with incompatible type", name)
		}
		return nil, err
	}
	return gauge, nil
}
