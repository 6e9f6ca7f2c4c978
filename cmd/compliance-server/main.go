package main

import (
	"context"
	"flag"
	"os"
	"os/signal"

	"github.com/joho/godotenv"

	"github.com/mikem1017/macallan-rf-perf-tool/analysis"
	"github.com/mikem1017/macallan-rf-perf-tool/engine"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/api"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/logging"
	"github.com/mikem1017/macallan-rf-perf-tool/internal/observability"
	"github.com/mikem1017/macallan-rf-perf-tool/store"
)

func main() {
	addr := flag.String("addr", ":8080", "TCP address the HTTP server listens on")
	dbPath := flag.String("db", "rfcheck.db", "Path to the SQLite configuration database")
	configPath := flag.String("config", "", "Optional YAML file of device configurations to import at startup")
	gridTolerance := flag.Float64("grid-tolerance", 0, "Frequency grid tolerance in GHz (0 uses the default)")
	flag.Parse()

	_ = godotenv.Load()
	log := logging.NewFromEnv()
	ctx := context.Background()

	shutdownTracing, err := observability.InitTracing(ctx, observability.TracingConfigFromEnv(), log)
	if err != nil {
		log.Error(ctx, "failed to initialise tracing", logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer observability.ShutdownWithTimeout(ctx, shutdownTracing, log)

	collector, err := observability.NewEvaluationCollector(nil)
	if err != nil {
		log.Error(ctx, "failed to initialise metrics collector", logging.String("error", err.Error()))
		os.Exit(1)
	}

	st, err := store.Open(ctx, *dbPath)
	if err != nil {
		log.Error(ctx, "failed to open configuration store",
			logging.String("path", *dbPath), logging.String("error", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	if *configPath != "" {
		n, err := st.ImportYAML(ctx, *configPath)
		if err != nil {
			log.Error(ctx, "failed to import device configurations",
				logging.String("path", *configPath), logging.String("error", err.Error()))
			os.Exit(1)
		}
		log.Info(ctx, "imported device configurations",
			logging.String("path", *configPath), logging.Int("count", n))
	}
	if n, err := st.Count(ctx); err == nil {
		collector.SetDutConfigCount(n)
	}

	eng := analysis.New(analysis.Config{GridToleranceGHz: *gridTolerance})
	runner := engine.NewRunner(eng, log, collector)
	server := api.New(api.Config{Addr: *addr}, st, runner, collector, log)

	runCtx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	if err := server.Start(runCtx); err != nil {
		log.Error(ctx, "http server exited", logging.String("error", err.Error()))
		os.Exit(1)
	}
	log.Info(ctx, "server stopped")
}
