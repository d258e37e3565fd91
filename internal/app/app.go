// Package app wires configuration, storage, notification, and the pipeline
// orchestrator into a single runnable process.
package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"midi-ingest/internal/config"
	"midi-ingest/internal/metrics"
	"midi-ingest/internal/notifier"
	"midi-ingest/internal/pipeline"
	"midi-ingest/internal/store"
	"midi-ingest/internal/tracing"
)

// App coordinates one pipeline run: load config, build the store and
// notifier, start the metrics server, run the orchestrator to completion,
// and then close the notifier, tracing, and store.
type App struct {
	config *config.Config
	logger *logrus.Logger

	store      store.Store
	publisher  notifier.Publisher
	tracing    *tracing.Manager
	orchestrator *pipeline.Orchestrator

	ctx    context.Context
	cancel context.CancelFunc
}

// New loads configFile, validates it, and constructs every component the
// pipeline needs. It fails fast on configuration or wiring errors so the
// caller never starts a run with a half-built App.
func New(configFile string) (*App, error) {
	cfg, err := config.Load(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logger := newLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())

	a := &App{
		config: cfg,
		logger: logger,
		ctx:    ctx,
		cancel: cancel,
	}

	a.store = store.NewMemStore()

	publisher, err := a.buildPublisher()
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build notifier: %w", err)
	}
	a.publisher = publisher

	tm, err := tracing.New(cfg.Tracing.Enabled, cfg.Tracing.OTLPEndpoint, logger)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to build tracing manager: %w", err)
	}
	a.tracing = tm

	a.orchestrator = pipeline.New(pipeline.Config{
		Source:          cfg.Source,
		QueueCapacity:   cfg.QueueCapacity,
		WorkersPerStage: cfg.WorkersPerStage,
		EnableRename:    cfg.EnableRename,
		ExportTarget:    cfg.ExportTarget,
		TempBase:        cfg.TempDir,
		Tracer:          tm.Tracer(),
	}, a.store, a.publisher, logger)

	logger.WithFields(logrus.Fields{
		"source":            cfg.Source,
		"enable_rename":     cfg.EnableRename,
		"export_target":     cfg.ExportTarget.Path,
		"export_format":     cfg.ExportTarget.Format,
	}).Info("pipeline configured")

	return a, nil
}

func newLogger(cfg config.LogConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(cfg.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{})
	}
	return logger
}

func (a *App) buildPublisher() (notifier.Publisher, error) {
	if len(a.config.Notifier.KafkaBrokers) == 0 {
		return notifier.NullPublisher{}, nil
	}
	return notifier.NewKafkaPublisher(notifier.KafkaConfig{
		Brokers: a.config.Notifier.KafkaBrokers,
		Topic:   a.config.Notifier.KafkaTopic,
	}, a.logger)
}

// Run starts the metrics server in the background (if enabled), runs the
// pipeline to completion against the configured source, and returns its
// summary. Unlike a long-lived daemon, a pipeline run ends on its own once
// the source is drained. Run also watches for SIGINT/SIGTERM and cancels the
// run's context on receipt; that context reaches the store calls Import
// makes, but neither the directory walk and hashing nor the orchestrator's
// drain wait stop early when it is cancelled.
func (a *App) Run() (pipeline.Summary, error) {
	if a.config.Metrics.Enabled {
		go metrics.Serve(a.config.Metrics.Addr, a.logger)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		a.logger.Info("shutdown signal received, cancelling run")
		a.cancel()
	}()

	go a.consumeProgress()

	summary, err := a.orchestrator.Run(a.ctx)
	if err != nil {
		a.logger.WithError(err).Error("pipeline run failed")
	}

	a.Shutdown()
	return summary, err
}

func (a *App) consumeProgress() {
	for p := range a.orchestrator.Progress() {
		fields := logrus.Fields{"stage": p.Stage.String(), "processed": p.Processed}
		if p.Err != nil {
			a.logger.WithFields(fields).WithError(p.Err).Warn("stage reported an error")
			continue
		}
		a.logger.WithFields(fields).Debug("stage progress")
	}
}

// Shutdown releases resources that outlive a single Run call.
func (a *App) Shutdown() {
	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.logger.WithError(err).Warn("failed to close notifier")
		}
	}
	if a.tracing != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := a.tracing.Shutdown(ctx); err != nil {
			a.logger.WithError(err).Warn("failed to shut down tracing")
		}
	}
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Warn("failed to close store")
	}
}
