package config

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Accepted enumerations
var (
	Algorithms     = []string{"binseg", "dynp", "pelt"}
	Costs          = []string{"l2", "rbf"}
	Axes           = []string{"local", "global"}
	TraceExporters = []string{"stdout", "none"}
)

// Year and breakpoint bounds accepted by the front-ends.
const (
	minYear   = 1900
	maxYear   = 2100
	minBreaks = 1
	maxBreaks = 10
)

// Validate normalises enumerations to lower case and checks every field.
// All problems are reported together.
func (c *ConfigData) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	s := &c.Server
	check(s.Port > 0 && s.Port <= 65535, "server.port must be between 1 and 65535, got %d", s.Port)
	check(s.MaxUploadBytes > 0, "server.max_upload_bytes must be positive")
	check(s.ReadTimeout >= 0 && s.WriteTimeout >= 0, "server timeouts must not be negative")
	check((s.Cert == "") == (s.Key == ""), "server.cert and server.key must be set together")
	check(s.RateLimit >= 0, "server.rate_limit must not be negative")
	check(s.RateLimit == 0 || s.RateBurst > 0, "server.rate_burst must be positive when rate limiting is enabled")

	a := &c.Analysis
	a.Algorithm = strings.ToLower(a.Algorithm)
	a.Cost = strings.ToLower(a.Cost)
	a.Axis = strings.ToLower(a.Axis)
	check(slices.Contains(Algorithms, a.Algorithm), "analysis.algorithm must be one of %s, got %q", strings.Join(Algorithms, ", "), a.Algorithm)
	check(slices.Contains(Costs, a.Cost), "analysis.cost must be one of %s, got %q", strings.Join(Costs, ", "), a.Cost)
	check(slices.Contains(Axes, a.Axis), "analysis.axis must be one of %s, got %q", strings.Join(Axes, ", "), a.Axis)
	check(a.MinSize >= 1, "analysis.min_size must be at least 1")
	check(a.Jump >= 1, "analysis.jump must be at least 1")
	check(a.Penalty >= 0, "analysis.penalty must not be negative")
	check(a.SmoothingWindow >= 1 && a.SmoothingWindow%2 == 1, "analysis.smoothing_window must be a positive odd integer, got %d", a.SmoothingWindow)
	check(a.FitWorkers >= 1, "analysis.fit_workers must be at least 1")
	check(a.DefaultBreaks >= minBreaks && a.DefaultBreaks <= maxBreaks, "analysis.default_breaks must be between %d and %d", minBreaks, maxBreaks)
	check(inYears(a.DefaultStartYear) && inYears(a.DefaultEndYear), "analysis default years must be between %d and %d", minYear, maxYear)
	check(a.DefaultStartYear < a.DefaultEndYear, "analysis.default_start_year must be before default_end_year")

	d := &c.Datasets
	check(d.TTL > 0, "datasets.ttl must be positive")
	check(d.CleanupInterval > 0, "datasets.cleanup_interval must be positive")
	check(d.PreviewRows >= 0, "datasets.preview_rows must not be negative")

	t := &c.Telemetry
	t.TraceExporter = strings.ToLower(t.TraceExporter)
	check(slices.Contains(TraceExporters, t.TraceExporter), "telemetry.trace_exporter must be one of %s, got %q", strings.Join(TraceExporters, ", "), t.TraceExporter)
	check(t.SampleRatio > 0 && t.SampleRatio <= 1, "telemetry.sample_ratio must be in (0, 1]")

	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

func inYears(y int) bool {
	return y >= minYear && y <= maxYear
}
