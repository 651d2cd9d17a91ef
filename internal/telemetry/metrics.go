// Package telemetry holds the process-wide Prometheus metrics and the
// OpenTelemetry tracer used by the analysis pipeline.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AnalysesTotal counts finished analyses by algorithm and outcome.
	AnalysesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "structbreak",
		Name:      "analyses_total",
		Help:      "Total analyses run, by algorithm and result",
	}, []string{"algorithm", "result"})

	// StageDuration observes time spent in each pipeline stage.
	StageDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "structbreak",
		Name:      "stage_duration_seconds",
		Help:      "Duration of each analysis stage",
		Buckets:   []float64{.0005, .001, .005, .01, .05, .1, .5, 1, 5},
	}, []string{"stage"})

	// SeriesLength observes the cleaned series length of each analysis.
	SeriesLength = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "structbreak",
		Name:      "series_length",
		Help:      "Observations per analysed series after cleaning",
		Buckets:   prometheus.ExponentialBuckets(4, 2, 10),
	})

	// SegmentsDetected observes segments per successful analysis.
	SegmentsDetected = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "structbreak",
		Name:      "segments_detected",
		Help:      "Segments found per analysis",
		Buckets:   prometheus.LinearBuckets(1, 1, 11),
	})

	// DroppedValues counts cells removed during coercion.
	DroppedValues = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "structbreak",
		Name:      "dropped_values_total",
		Help:      "Cells dropped because they were missing or non-numeric",
	})

	// UploadsTotal counts dataset uploads by format and result.
	UploadsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "structbreak",
		Name:      "uploads_total",
		Help:      "Dataset uploads, by file extension and result",
	}, []string{"format", "result"})

	// DatasetsStored tracks live uploads in the dataset store.
	DatasetsStored = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "structbreak",
		Name:      "datasets_stored",
		Help:      "Uploaded datasets currently held in memory",
	})

	// RateLimited counts requests rejected by the upload limiter.
	RateLimited = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "structbreak",
		Name:      "rate_limited_total",
		Help:      "Requests rejected by the per-client rate limiter",
	})
)
