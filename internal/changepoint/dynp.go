package changepoint

import (
	"context"
	"math"

	"github.com/chrissnell/structbreak/internal/types"
)

// Dynp finds the segmentation with exactly nBreaks breakpoints that minimises
// total cost, by dynamic programming over the admissible grid. When the signal
// is too short for nBreaks, the largest feasible count is used instead.
type Dynp struct {
	cost    CostType
	minSize int
	jump    int
}

// NewDynp creates an exact dynamic-programming detector. Breakpoints are
// restricted to multiples of jump.
func NewDynp(cost CostType, minSize, jump int) *Dynp {
	return &Dynp{cost: cost, minSize: minSize, jump: jump}
}

// Detect returns the optimal breakpoints of signal, ending with the sentinel.
func (d *Dynp) Detect(ctx context.Context, signal []float64, nBreaks int) (types.BreakpointSet, error) {
	n := len(signal)
	if err := checkInput(n, nBreaks); err != nil {
		return nil, err
	}

	cost, err := NewCost(d.cost)
	if err != nil {
		return nil, err
	}
	cost.Fit(signal)
	minSize := max(d.minSize, cost.MinSize())

	pts := []int{0}
	for k := d.jump; k < n; k += d.jump {
		pts = append(pts, k)
	}
	pts = append(pts, n)
	m := len(pts)

	// best[k][j] is the lowest cost of [0, pts[j]) cut into k+1 segments;
	// prev[k][j] indexes the start of the last of those segments.
	inf := math.Inf(1)
	best := make([][]float64, nBreaks+1)
	prev := make([][]int, nBreaks+1)
	for k := range best {
		best[k] = make([]float64, m)
		prev[k] = make([]int, m)
		for j := range best[k] {
			best[k][j] = inf
			prev[k][j] = -1
		}
	}

	for j := 1; j < m; j++ {
		if pts[j] >= minSize {
			best[0][j] = cost.Error(0, pts[j])
			prev[0][j] = 0
		}
	}

	for k := 1; k <= nBreaks; k++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		for j := 1; j < m; j++ {
			for i := 1; i < j; i++ {
				if math.IsInf(best[k-1][i], 1) || pts[j]-pts[i] < minSize {
					continue
				}
				if c := best[k-1][i] + cost.Error(pts[i], pts[j]); c < best[k][j] {
					best[k][j] = c
					prev[k][j] = i
				}
			}
		}
	}

	last := m - 1
	for k := nBreaks; k > 0; k-- {
		if math.IsInf(best[k][last], 1) {
			continue
		}

		bkps := make([]int, k+1)
		j := last
		for level := k; level >= 0; level-- {
			bkps[level] = pts[j]
			j = prev[level][j]
		}
		return types.BreakpointSet(bkps), nil
	}

	return types.BreakpointSet{n}, nil
}
