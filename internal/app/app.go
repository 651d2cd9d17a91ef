package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"

	"github.com/chrissnell/structbreak/internal/analysis"
	"github.com/chrissnell/structbreak/internal/changepoint"
	"github.com/chrissnell/structbreak/internal/controllers/restserver"
	"github.com/chrissnell/structbreak/internal/datastore"
	"github.com/chrissnell/structbreak/internal/log"
	"github.com/chrissnell/structbreak/internal/segment"
	"github.com/chrissnell/structbreak/internal/telemetry"
	"github.com/chrissnell/structbreak/pkg/config"
)

// App represents the main application
type App struct {
	config *config.ConfigData
	logger *zap.SugaredLogger
}

// New creates a new application instance
func New(cfg *config.ConfigData, logger *zap.SugaredLogger) *App {
	return &App{
		config: cfg,
		logger: logger,
	}
}

// AnalyzerConfig translates the analysis section of the configuration
func AnalyzerConfig(cfg *config.ConfigData) analysis.Config {
	a := cfg.Analysis
	return analysis.Config{
		Detector: changepoint.Options{
			Algorithm:       changepoint.Algorithm(a.Algorithm),
			Cost:            changepoint.CostType(a.Cost),
			MinSize:         a.MinSize,
			Jump:            a.Jump,
			Penalty:         a.Penalty,
			SmoothingWindow: a.SmoothingWindow,
		},
		Axis:       segment.Axis(a.Axis),
		FitWorkers: a.FitWorkers,
	}
}

// NewAnalyzer builds the analyzer described by cfg
func NewAnalyzer(cfg *config.ConfigData, logger *zap.SugaredLogger) (*analysis.Analyzer, error) {
	analyzer, err := analysis.NewAnalyzer(AnalyzerConfig(cfg), logger)
	if err != nil {
		return nil, fmt.Errorf("could not create analyzer: %w", err)
	}
	return analyzer, nil
}

// Run starts the web server and blocks until shutdown
func (a *App) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	shutdownTracing, err := telemetry.InitTracing(telemetry.TracingConfig{
		Enabled:     a.config.Telemetry.Tracing,
		Exporter:    a.config.Telemetry.TraceExporter,
		SampleRatio: a.config.Telemetry.SampleRatio,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			a.logger.Warnf("error flushing traces: %v", err)
		}
	}()

	analyzer, err := NewAnalyzer(a.config, a.logger)
	if err != nil {
		return err
	}

	store := datastore.New(a.config.Datasets.TTL, a.config.Datasets.CleanupInterval)
	defer store.Flush()

	rs, err := restserver.NewController(ctx, &wg, a.config, analyzer, store, a.logger)
	if err != nil {
		return fmt.Errorf("could not create REST server: %w", err)
	}
	if err := rs.StartController(); err != nil {
		return err
	}

	log.Info("Application started successfully")

	// Set up signal handling
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigs)

	// Wait for shutdown signal
	select {
	case <-sigs:
		log.Info("shutdown signal received, initiating graceful shutdown...")
	case <-ctx.Done():
		log.Info("context cancelled, shutting down...")
	}

	// Cancel context to signal all goroutines to stop
	cancel()

	// Wait for all workers to terminate
	log.Info("waiting for all workers to terminate...")
	wg.Wait()
	log.Info("shutdown complete")

	return nil
}
