package changepoint

import (
	"context"
	"fmt"
	"strings"

	"github.com/chrissnell/structbreak/internal/types"
)

// Detector finds breakpoints in a signal. The returned set is ordered and ends
// with len(signal). Implementations must be safe for concurrent use: all
// per-signal state lives inside a single Detect call.
type Detector interface {
	Detect(ctx context.Context, signal []float64, nBreaks int) (types.BreakpointSet, error)
}

// Algorithm identifies a search method
type Algorithm string

const (
	// AlgorithmBinseg is greedy binary segmentation
	AlgorithmBinseg Algorithm = "binseg"

	// AlgorithmDynp is exact dynamic programming
	AlgorithmDynp Algorithm = "dynp"

	// AlgorithmPelt is penalised PELT search
	AlgorithmPelt Algorithm = "pelt"
)

// Algorithms lists the supported search methods.
var Algorithms = []Algorithm{AlgorithmBinseg, AlgorithmDynp, AlgorithmPelt}

// Options configures a Detector.
type Options struct {
	Algorithm Algorithm `json:"algorithm" yaml:"algorithm"`
	Cost      CostType  `json:"cost" yaml:"cost"`
	MinSize   int       `json:"min_size" yaml:"min_size"`
	Jump      int       `json:"jump" yaml:"jump"`
	Penalty   float64   `json:"penalty,omitempty" yaml:"penalty,omitempty"`
	// SmoothingWindow is the median pre-filter width; 1 disables it.
	SmoothingWindow int `json:"smoothing_window" yaml:"smoothing_window"`
}

// DefaultOptions matches a plain ruptures Binseg(model="l2") call.
func DefaultOptions() Options {
	return Options{
		Algorithm:       AlgorithmBinseg,
		Cost:            CostL2,
		MinSize:         2,
		Jump:            5,
		SmoothingWindow: 1,
	}
}

// New builds the detector described by opts.
func New(opts Options) (Detector, error) {
	if opts.MinSize < 1 {
		return nil, fmt.Errorf("%w: min_size must be at least 1, got %d", types.ErrInvalidParameter, opts.MinSize)
	}
	if opts.Jump < 1 {
		return nil, fmt.Errorf("%w: jump must be at least 1, got %d", types.ErrInvalidParameter, opts.Jump)
	}
	if opts.Penalty < 0 {
		return nil, fmt.Errorf("%w: penalty must not be negative", types.ErrInvalidParameter)
	}
	if opts.SmoothingWindow == 0 {
		opts.SmoothingWindow = 1
	}
	if opts.SmoothingWindow < 1 || opts.SmoothingWindow%2 == 0 {
		return nil, fmt.Errorf("%w: smoothing_window must be a positive odd integer, got %d", types.ErrInvalidParameter, opts.SmoothingWindow)
	}
	if _, err := NewCost(opts.Cost); err != nil {
		return nil, err
	}

	var d Detector
	switch Algorithm(strings.ToLower(string(opts.Algorithm))) {
	case AlgorithmBinseg, "":
		d = NewBinseg(opts.Cost, opts.MinSize, opts.Jump)
	case AlgorithmDynp:
		d = NewDynp(opts.Cost, opts.MinSize, opts.Jump)
	case AlgorithmPelt:
		d = NewPelt(opts.Cost, opts.MinSize, opts.Jump, opts.Penalty)
	default:
		return nil, fmt.Errorf("%w: %q (supported: binseg, dynp, pelt)", types.ErrUnknownAlgorithm, opts.Algorithm)
	}

	if opts.SmoothingWindow > 1 {
		d = &smoothedDetector{inner: d, window: opts.SmoothingWindow}
	}
	return d, nil
}

// smoothedDetector median-filters the signal before handing it to inner.
type smoothedDetector struct {
	inner  Detector
	window int
}

func (s *smoothedDetector) Detect(ctx context.Context, signal []float64, nBreaks int) (types.BreakpointSet, error) {
	filtered, err := MedFilt(signal, s.window)
	if err != nil {
		return nil, err
	}
	return s.inner.Detect(ctx, filtered, nBreaks)
}

func checkInput(n, nBreaks int) error {
	if n == 0 {
		return fmt.Errorf("%w: empty signal", types.ErrInvalidParameter)
	}
	if nBreaks < 0 {
		return fmt.Errorf("%w: breakpoint count must not be negative, got %d", types.ErrInvalidParameter, nBreaks)
	}
	return nil
}
