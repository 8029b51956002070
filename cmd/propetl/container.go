package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"go.uber.org/zap"

	"propetl/internal/config"
	"propetl/internal/httpapi"
	"propetl/internal/importer"
	"propetl/internal/metrics"
	"propetl/internal/metrics/datadog"
	"propetl/internal/metrics/prompush"
	"propetl/internal/parser/csv"
	"propetl/internal/progress"
	"propetl/internal/storage"
)

// Function variables used as test seams.
var (
	newStoreFn = storage.New
	newLogger  = func(verbose bool) (*zap.Logger, error) {
		if verbose {
			return zap.NewDevelopment()
		}
		return zap.NewProduction()
	}
)

// loadPipeline reads path, or builds a pipeline from the environment and
// defaults when path is empty.
func loadPipeline(path string) (config.Pipeline, error) {
	if path != "" {
		return config.Load(path)
	}
	var p config.Pipeline
	config.ApplyEnv(&p, os.Getenv)
	config.ApplyDefaults(&p)
	return p, nil
}

// checkPipeline prints every issue to w and fails when any is an error.
func checkPipeline(p config.Pipeline, w io.Writer) error {
	issues := config.ValidatePipeline(p)
	for _, iss := range issues {
		fmt.Fprintf(w, "%s: %s: %s\n", iss.Severity, iss.Path, iss.Message)
	}
	if config.HasErrors(issues) {
		return fmt.Errorf("configuration is invalid")
	}
	return nil
}

// setupMetrics installs the configured backend and returns its flush func.
// A backend that fails to initialise is logged and metrics stay disabled.
func setupMetrics(p config.Pipeline, log *zap.Logger) func() {
	var (
		b   metrics.Backend
		err error
	)
	switch strings.ToLower(p.Metrics.Backend) {
	case "pushgateway", "prom", "prometheus":
		b, err = prompush.NewBackend(p.Job, p.Metrics.PushgatewayURL)
	case "datadog", "dogstatsd":
		b, err = datadog.NewBackend(datadog.Config{
			Addr:       p.Metrics.DatadogAddr,
			Namespace:  p.Metrics.Namespace,
			GlobalTags: append([]string{"job:" + p.Job}, p.Metrics.Tags...),
		})
	case "", "none":
		log.Debug("metrics disabled")
		return func() {}
	default:
		log.Warn("unknown metrics backend; metrics disabled", zap.String("backend", p.Metrics.Backend))
		return func() {}
	}
	if err != nil {
		log.Warn("metrics backend init failed; using nop", zap.String("backend", p.Metrics.Backend), zap.Error(err))
		return func() {}
	}
	log.Info("metrics enabled", zap.String("backend", p.Metrics.Backend), zap.String("job", p.Job))
	metrics.SetBackend(b)
	return func() {
		if err := metrics.Flush(); err != nil {
			log.Warn("metrics flush", zap.Error(err))
		}
	}
}

func storeConfig(p config.Pipeline) storage.Config {
	return storage.Config{
		Kind:            p.Storage.Kind,
		DSN:             p.Storage.DB.DSN,
		Table:           p.Storage.DB.Table,
		AutoCreateTable: p.Storage.DB.AutoCreateTable,
	}
}

func openStore(ctx context.Context, p config.Pipeline) (storage.Store, error) {
	return newStoreFn(ctx, storeConfig(p))
}

// importOptions maps the pipeline onto engine options and attaches the log
// and metrics progress sinks.
func importOptions(p config.Pipeline, log *zap.Logger) importer.Options {
	return importer.Options{
		ChunkSize:     p.Runtime.ChunkSize,
		MaxErrors:     p.Runtime.MaxErrors,
		CSV:           csv.OptionsFrom(p.Parser.Options),
		HeaderMap:     p.Parser.Options.StringMap("header_map"),
		NullTokens:    p.Parser.Options.StringSlice("null_tokens"),
		CheckpointDir: p.Checkpoint.Dir,
		Resume:        p.Checkpoint.Resume,
		ErrorLog:      p.Runtime.ErrorLog,
		Sinks:         []progress.Sink{progress.LogSink(log), progress.NewMetricsSink(p.Job)},
	}
}

func serverConfig(p config.Pipeline, log *zap.Logger) httpapi.Config {
	return httpapi.Config{
		Addr:         p.Server.Addr,
		DataDir:      p.Server.DataDir,
		ExportDir:    p.Export.Dir,
		ExportPrefix: p.Export.Prefix,
		StorageKind:  p.Storage.Kind,
		Job:          p.Job,
		Import:       importOptions(p, log),
	}
}
