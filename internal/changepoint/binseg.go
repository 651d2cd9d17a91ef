package changepoint

import (
	"context"
	"sort"

	"github.com/chrissnell/structbreak/internal/types"
)

// Binseg is greedy binary segmentation. Each round splits the segment whose
// best single split removes the most cost, until nBreaks breakpoints are
// placed or no admissible split remains. It may therefore return fewer
// breakpoints than requested.
type Binseg struct {
	cost    CostType
	minSize int
	jump    int
}

// NewBinseg creates a binary segmentation detector. Candidate split points are
// taken every jump samples from the start of the segment being split.
func NewBinseg(cost CostType, minSize, jump int) *Binseg {
	return &Binseg{cost: cost, minSize: minSize, jump: jump}
}

type split struct {
	bkp  int // -1 when the segment admits no split
	gain float64
}

// Detect returns the breakpoints of signal, ending with the len(signal) sentinel.
func (b *Binseg) Detect(ctx context.Context, signal []float64, nBreaks int) (types.BreakpointSet, error) {
	n := len(signal)
	if err := checkInput(n, nBreaks); err != nil {
		return nil, err
	}

	cost, err := NewCost(b.cost)
	if err != nil {
		return nil, err
	}
	cost.Fit(signal)
	minSize := max(b.minSize, cost.MinSize())

	cache := make(map[[2]int]split)
	bestSplit := func(start, end int) split {
		key := [2]int{start, end}
		if s, ok := cache[key]; ok {
			return s
		}

		best := split{bkp: -1}
		segmentCost := cost.Error(start, end)
		for bkp := start; bkp < end; bkp += b.jump {
			if bkp-start < minSize || end-bkp < minSize {
				continue
			}
			gain := segmentCost - cost.Error(start, bkp) - cost.Error(bkp, end)
			// ties go to the later index
			if best.bkp < 0 || gain > best.gain || (gain == best.gain && bkp > best.bkp) {
				best = split{bkp: bkp, gain: gain}
			}
		}

		cache[key] = best
		return best
	}

	bkps := []int{n}
	for len(bkps)-1 < nBreaks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		// The first segment with the largest gain wins, even when it cannot
		// be split; that ends the search.
		var chosen split
		start := 0
		for i, end := range bkps {
			s := bestSplit(start, end)
			if i == 0 || s.gain > chosen.gain {
				chosen = s
			}
			start = end
		}

		if chosen.bkp < 0 {
			break
		}

		pos := sort.SearchInts(bkps, chosen.bkp)
		bkps = append(bkps, 0)
		copy(bkps[pos+1:], bkps[pos:])
		bkps[pos] = chosen.bkp
	}

	return types.BreakpointSet(bkps), nil
}
