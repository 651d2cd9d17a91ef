package segment

import (
	"context"
	"fmt"
	"math"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"github.com/chrissnell/structbreak/internal/types"
)

// Axis selects the x values a segment is regressed on.
type Axis string

const (
	// AxisLocal restarts the year axis at the series start year for every
	// segment. Slopes are unaffected but the trend lines of later segments
	// are drawn over the first years of the chart.
	AxisLocal Axis = "local"

	// AxisGlobal regresses each segment on its own calendar years.
	AxisGlobal Axis = "global"
)

// ParseAxis accepts "local", "global" or an empty string (local).
func ParseAxis(s string) (Axis, error) {
	switch Axis(strings.ToLower(strings.TrimSpace(s))) {
	case AxisLocal, "":
		return AxisLocal, nil
	case AxisGlobal:
		return AxisGlobal, nil
	default:
		return "", fmt.Errorf("%w: axis must be local or global, got %q", types.ErrInvalidParameter, s)
	}
}

// Fitter computes the trend and descriptive statistics of each segment.
type Fitter struct {
	axis    Axis
	workers int
	logger  *zap.SugaredLogger
}

// NewFitter creates a Fitter. workers caps concurrent segment fits; values
// below 1 fit sequentially.
func NewFitter(axis Axis, workers int, logger *zap.SugaredLogger) *Fitter {
	if axis == "" {
		axis = AxisLocal
	}
	if workers < 1 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Fitter{axis: axis, workers: workers, logger: logger}
}

// FitAll fits every segment and returns new segments in the same order. segs
// is not modified. When several segments fail, the error of the earliest one
// is returned so results do not depend on scheduling.
func (f *Fitter) FitAll(ctx context.Context, ts *types.TimeSeries, segs []types.Segment) ([]types.Segment, error) {
	out := make([]types.Segment, len(segs))
	errs := make([]error, len(segs))

	var g errgroup.Group
	g.SetLimit(f.workers)
	for i := range segs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				errs[i] = err
				return err
			}
			fitted, err := f.Fit(ts, segs[i])
			if err != nil {
				errs[i] = err
				return err
			}
			out[i] = fitted
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		for _, e := range errs {
			if e != nil {
				return nil, e
			}
		}
		return nil, err
	}

	f.logger.Debugf("fitted %d segments (axis=%s, workers=%d)", len(out), f.axis, f.workers)
	return out, nil
}

// Fit fits a single segment by ordinary least squares.
func (f *Fitter) Fit(ts *types.TimeSeries, seg types.Segment) (types.Segment, error) {
	if seg.Start < 0 || seg.End > ts.Len() || seg.Start >= seg.End {
		return seg, fmt.Errorf("segment %d [%d, %d): %w", seg.Index+1, seg.Start, seg.End, types.ErrDegenerateSegment)
	}
	n := seg.Len()
	if n < 2 {
		return seg, fmt.Errorf("segment %d (%d-%d) has %d observation: %w",
			seg.Index+1, seg.StartYear, seg.EndYear, n, types.ErrInsufficientData)
	}

	y := ts.Values[seg.Start:seg.End]

	origin := ts.StartYear
	if f.axis == AxisGlobal {
		origin = ts.Year(seg.Start)
	}
	x := make([]float64, n)
	for i := range x {
		x[i] = float64(origin + i)
	}

	intercept, slope := stat.LinearRegression(x, y, nil, false)

	fitted := make([]float64, n)
	for i, xi := range x {
		fitted[i] = intercept + slope*xi
	}

	mean, std := stat.MeanStdDev(y, nil)

	residuals := make([]float64, n)
	floats.SubTo(residuals, y, fitted)
	ssRes := floats.Dot(residuals, residuals)
	ssTot := std * std * float64(n-1)

	var r2 float64
	switch {
	case ssTot > 0:
		r2 = 1 - ssRes/ssTot
	case ssRes == 0:
		r2 = 1
	}

	seg.Slope = slope
	seg.Intercept = intercept
	seg.RSquared = r2
	seg.RMSE = floats.Distance(y, fitted, 2) / math.Sqrt(float64(n))
	seg.Mean = mean
	seg.StdDev = std
	seg.X = x
	seg.Fitted = fitted
	return seg, nil
}
