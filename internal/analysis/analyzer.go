// Package analysis runs the structural break pipeline: prepare the selected
// column, detect breakpoints, reconcile them into segments and fit each one.
// Every run owns its data; nothing is shared between requests.
package analysis

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/chrissnell/structbreak/internal/changepoint"
	"github.com/chrissnell/structbreak/internal/dataset"
	"github.com/chrissnell/structbreak/internal/segment"
	"github.com/chrissnell/structbreak/internal/series"
	"github.com/chrissnell/structbreak/internal/telemetry"
	"github.com/chrissnell/structbreak/internal/types"
)

// Config holds the pipeline settings that are not part of a request.
type Config struct {
	Detector   changepoint.Options
	Axis       segment.Axis
	FitWorkers int
}

// DefaultConfig uses binseg with an L2 cost and the segment-local axis.
func DefaultConfig() Config {
	return Config{
		Detector:   changepoint.DefaultOptions(),
		Axis:       segment.AxisLocal,
		FitWorkers: 1,
	}
}

// Analyzer runs analyses. It is safe for concurrent use.
type Analyzer struct {
	cfg      Config
	detector changepoint.Detector
	// fixed is set when the detector was supplied by the caller, in which
	// case per-request algorithm overrides are ignored.
	fixed  bool
	fitter *segment.Fitter
	logger *zap.SugaredLogger
}

// Option customises an Analyzer.
type Option func(*Analyzer)

// WithDetector replaces the configured breakpoint detector.
func WithDetector(d changepoint.Detector) Option {
	return func(a *Analyzer) {
		a.detector = d
		a.fixed = true
	}
}

// NewAnalyzer creates an Analyzer.
func NewAnalyzer(cfg Config, logger *zap.SugaredLogger, opts ...Option) (*Analyzer, error) {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}

	a := &Analyzer{cfg: cfg, logger: logger}
	for _, opt := range opts {
		opt(a)
	}

	if a.detector == nil {
		d, err := changepoint.New(cfg.Detector)
		if err != nil {
			return nil, err
		}
		a.detector = d
	}

	axis, err := segment.ParseAxis(string(cfg.Axis))
	if err != nil {
		return nil, err
	}
	a.fitter = segment.NewFitter(axis, cfg.FitWorkers, logger)
	return a, nil
}

// Run analyses the requested column of tbl.
func (a *Analyzer) Run(ctx context.Context, tbl *dataset.Table, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		a.record(req, err)
		return nil, err
	}

	raw, err := tbl.Values(req.Column)
	if err != nil {
		a.record(req, err)
		return nil, err
	}
	return a.analyze(ctx, raw, req)
}

// RunValues analyses raw cells that were not read from a Table.
func (a *Analyzer) RunValues(ctx context.Context, raw []any, req Request) (*Report, error) {
	if err := req.Validate(); err != nil {
		a.record(req, err)
		return nil, err
	}
	return a.analyze(ctx, raw, req)
}

func (a *Analyzer) analyze(ctx context.Context, raw []any, req Request) (*Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "analysis.Run")
	defer span.End()
	span.SetAttributes(
		attribute.String("column", req.Column),
		attribute.Int("start_year", req.StartYear),
		attribute.Int("end_year", req.EndYear),
		attribute.Int("breaks", req.Breaks),
	)

	detector, algorithm, err := a.detectorFor(req)
	if err != nil {
		a.fail(span, req, err)
		return nil, err
	}

	var (
		ts       *types.TimeSeries
		bkps     types.BreakpointSet
		segs     []types.Segment
		warnings []string
	)

	err = a.stage(ctx, "prepare", func(ctx context.Context) error {
		var err error
		ts, err = series.Prepare(req.Column, raw, req.StartYear, req.EndYear)
		if err != nil {
			return err
		}

		telemetry.SeriesLength.Observe(float64(ts.Len()))
		telemetry.DroppedValues.Add(float64(ts.Dropped))
		if ts.Dropped > 0 {
			warnings = append(warnings, fmt.Sprintf("%d rows without a numeric value were dropped", ts.Dropped))
		}
		if ts.Truncated > 0 {
			warnings = append(warnings, fmt.Sprintf("%d observations after %d were ignored", ts.Truncated, req.EndYear))
		}
		if ts.EndYear < req.EndYear {
			warnings = append(warnings, fmt.Sprintf("series ends in %d, before the requested end year %d", ts.EndYear, req.EndYear))
		}
		return nil
	})
	if err != nil {
		a.fail(span, req, err)
		return nil, err
	}

	err = a.stage(ctx, "detect", func(ctx context.Context) error {
		var err error
		bkps, err = detector.Detect(ctx, ts.Values, req.Breaks)
		if err != nil {
			return fmt.Errorf("breakpoint detection: %w", err)
		}

		if found := len(bkps) - 1; found < req.Breaks {
			warnings = append(warnings, fmt.Sprintf("requested %d breakpoints, found %d", req.Breaks, max(found, 0)))
		}
		if len(bkps) > 0 && bkps[len(bkps)-1] < ts.Len() {
			a.logger.Warnf("detector returned sentinel %d for a series of length %d; extending the last segment",
				bkps[len(bkps)-1], ts.Len())
		}
		return nil
	})
	if err != nil {
		a.fail(span, req, err)
		return nil, err
	}

	err = a.stage(ctx, "reconcile", func(ctx context.Context) error {
		var err error
		segs, err = segment.Reconcile(ts, bkps)
		if err != nil {
			return fmt.Errorf("reconcile %v: %w", bkps, err)
		}
		return nil
	})
	if err != nil {
		a.fail(span, req, err)
		return nil, err
	}

	err = a.stage(ctx, "fit", func(ctx context.Context) error {
		var err error
		segs, err = a.fitter.FitAll(ctx, ts, segs)
		return err
	})
	if err != nil {
		a.fail(span, req, err)
		return nil, err
	}

	result := &types.AnalysisResult{Series: ts, Breakpoints: bkps, Segments: segs}
	telemetry.SegmentsDetected.Observe(float64(len(segs)))
	telemetry.AnalysesTotal.WithLabelValues(algorithm, "ok").Inc()
	span.SetAttributes(attribute.Int("segments", len(segs)))

	a.logger.Infof("analysed %q %d-%d: %d observations, breakpoints %v, %d segments",
		req.Column, ts.StartYear, ts.EndYear, ts.Len(), bkps.Interior(), len(segs))

	return newReport(req, algorithm, result, warnings), nil
}

// stage runs fn inside its own span after checking for cancellation.
func (a *Analyzer) stage(ctx context.Context, name string, fn func(context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	ctx, span := telemetry.Tracer().Start(ctx, "analysis."+name)
	defer span.End()

	start := time.Now()
	err := fn(ctx)
	telemetry.StageDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, types.ErrorType(err))
	}
	return err
}

func (a *Analyzer) detectorFor(req Request) (changepoint.Detector, string, error) {
	configured := a.algorithmLabel(Request{})
	if a.fixed {
		return a.detector, configured, nil
	}
	if req.Algorithm == "" || req.Algorithm == configured {
		return a.detector, configured, nil
	}

	opts := a.cfg.Detector
	opts.Algorithm = changepoint.Algorithm(req.Algorithm)
	d, err := changepoint.New(opts)
	if err != nil {
		return nil, "", err
	}
	return d, req.Algorithm, nil
}

func (a *Analyzer) fail(span trace.Span, req Request, err error) {
	span.SetStatus(codes.Error, err.Error())
	a.record(req, err)
}

// algorithmLabel names the search method that serves req.
func (a *Analyzer) algorithmLabel(req Request) string {
	switch {
	case a.fixed:
		return "custom"
	case req.Algorithm != "":
		return req.Algorithm
	case a.cfg.Detector.Algorithm != "":
		return strings.ToLower(string(a.cfg.Detector.Algorithm))
	default:
		return string(changepoint.AlgorithmBinseg)
	}
}

func (a *Analyzer) record(req Request, err error) {
	telemetry.AnalysesTotal.WithLabelValues(a.algorithmLabel(req), types.ErrorType(err)).Inc()

	if types.IsInputError(err) {
		a.logger.Debugf("rejected analysis of %q: %v", req.Column, err)
		return
	}
	a.logger.Warnf("analysis of %q failed: %v", req.Column, err)
}
