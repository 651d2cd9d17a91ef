// Package segment turns detector breakpoints into contiguous segments and fits
// an independent linear trend to each one.
package segment

import (
	"fmt"

	"github.com/chrissnell/structbreak/internal/types"
)

// Reconcile converts bkps into the ordered segments that cover ts exactly
// once. k breakpoints give k segments: segment i ends at bkps[i], except the
// last, which always ends at ts.Len() whatever the final breakpoint says.
//
// Breakpoints come from an external detector and are validated rather than
// trusted: an empty set, an index outside (0, len] or a decreasing pair is
// ErrMalformedBreakpoints. Two equal boundaries would produce an empty segment
// and are rejected with ErrDegenerateSegment.
func Reconcile(ts *types.TimeSeries, bkps types.BreakpointSet) ([]types.Segment, error) {
	n := ts.Len()
	if n == 0 {
		return nil, types.ErrEmptyDataset
	}
	if err := Validate(bkps, n); err != nil {
		return nil, err
	}

	bounds := make([]int, 0, len(bkps)+1)
	bounds = append(bounds, 0)
	bounds = append(bounds, bkps.Interior()...)
	bounds = append(bounds, n)

	segs := make([]types.Segment, 0, len(bounds)-1)
	for i := 1; i < len(bounds); i++ {
		start, end := bounds[i-1], bounds[i]
		segs = append(segs, types.Segment{
			Index:     i - 1,
			Start:     start,
			End:       end,
			StartYear: ts.Year(start),
			EndYear:   ts.Year(end - 1),
		})
	}
	return segs, nil
}

// Validate checks a detector's output against a series of length n.
func Validate(bkps types.BreakpointSet, n int) error {
	if len(bkps) == 0 {
		return fmt.Errorf("%w: no breakpoints returned", types.ErrMalformedBreakpoints)
	}

	prev := 0
	for i, b := range bkps {
		if b <= 0 || b > n {
			return fmt.Errorf("%w: index %d at position %d outside (0, %d]", types.ErrMalformedBreakpoints, b, i, n)
		}
		if b == prev {
			return fmt.Errorf("%w: boundary %d repeated at position %d", types.ErrDegenerateSegment, b, i)
		}
		if b < prev {
			return fmt.Errorf("%w: index %d follows %d", types.ErrMalformedBreakpoints, b, prev)
		}
		prev = b
	}
	return nil
}

// Covers reports whether segs tile [0, n) contiguously and in order.
func Covers(segs []types.Segment, n int) bool {
	next := 0
	for _, s := range segs {
		if s.Start != next || s.End <= s.Start {
			return false
		}
		next = s.End
	}
	return next == n
}
