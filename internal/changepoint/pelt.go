package changepoint

import (
	"context"
	"math"

	"github.com/chrissnell/structbreak/internal/types"
)

const (
	// maxPenaltySteps bounds the bisection used to match a breakpoint count.
	maxPenaltySteps = 60
	// penaltyTolerance stops the bisection once the bracket is this fraction
	// of the whole-signal cost, before rounding noise can create splits.
	penaltyTolerance = 1e-9
)

// Pelt implements the PELT algorithm (pruned exact linear time), which
// minimises total cost plus a fixed penalty per segment. PELT has no notion
// of a breakpoint count, so Detect searches for the smallest penalty that
// yields at most nBreaks breakpoints. A configured penalty is tried first.
type Pelt struct {
	cost    CostType
	minSize int
	jump    int
	penalty float64
}

// NewPelt creates a PELT detector. penalty may be zero to always search.
func NewPelt(cost CostType, minSize, jump int, penalty float64) *Pelt {
	return &Pelt{cost: cost, minSize: minSize, jump: jump, penalty: penalty}
}

// Detect returns at most nBreaks breakpoints of signal, ending with the sentinel.
func (p *Pelt) Detect(ctx context.Context, signal []float64, nBreaks int) (types.BreakpointSet, error) {
	n := len(signal)
	if err := checkInput(n, nBreaks); err != nil {
		return nil, err
	}

	cost, err := NewCost(p.cost)
	if err != nil {
		return nil, err
	}
	cost.Fit(signal)
	search := &peltSearch{cost: cost, minSize: max(p.minSize, cost.MinSize()), jump: p.jump, n: n}

	if p.penalty > 0 {
		if bkps := search.run(p.penalty); len(bkps)-1 <= nBreaks {
			return bkps, nil
		}
	}

	// A penalty above the cost of the whole signal can never pay for a split.
	lo, hi := p.penalty, cost.Error(0, n)+1
	tol := hi * penaltyTolerance
	best := types.BreakpointSet{n}
	for step := 0; step < maxPenaltySteps && hi-lo > tol; step++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		mid := (lo + hi) / 2
		bkps := search.run(mid)
		if len(bkps)-1 > nBreaks {
			lo = mid
			continue
		}

		best, hi = bkps, mid
		if len(bkps)-1 == nBreaks {
			break
		}
	}

	return best, nil
}

type peltSearch struct {
	cost    Cost
	minSize int
	jump    int
	n       int
}

// run executes one PELT pass for penalty and returns the optimal breakpoints.
func (s *peltSearch) run(penalty float64) types.BreakpointSet {
	// Candidate segment ends
	ind := []int{}
	for k := 0; k < s.n; k += s.jump {
		if k >= s.minSize {
			ind = append(ind, k)
		}
	}
	ind = append(ind, s.n)

	// total[t] is the optimal penalised cost of signal[0:t]; prev[t] is the
	// start of the last segment in that partition.
	total := map[int]float64{0: 0}
	prev := map[int]int{}
	admissible := []int{}
	costs := []float64{}

	for _, bkp := range ind {
		newAdmPt := int(math.Floor(float64(bkp-s.minSize)/float64(s.jump))) * s.jump
		admissible = append(admissible, newAdmPt)

		costs = costs[:0]
		minCost, argmin := math.Inf(1), -1
		for _, t := range admissible {
			left, ok := total[t]
			if !ok {
				costs = append(costs, math.Inf(1))
				continue
			}
			c := left + s.cost.Error(t, bkp) + penalty
			costs = append(costs, c)
			if c < minCost {
				minCost, argmin = c, t
			}
		}

		if argmin < 0 {
			continue
		}
		total[bkp] = minCost
		prev[bkp] = argmin

		// Prune: keep only points whose cost is within penalty of optimal
		kept := admissible[:0]
		for i, t := range admissible {
			if costs[i] <= minCost+penalty {
				kept = append(kept, t)
			}
		}
		admissible = kept
	}

	if _, ok := total[s.n]; !ok {
		return types.BreakpointSet{s.n}
	}

	var reversed []int
	for t := s.n; t > 0; t = prev[t] {
		reversed = append(reversed, t)
	}
	bkps := make(types.BreakpointSet, len(reversed))
	for i, t := range reversed {
		bkps[len(reversed)-1-i] = t
	}
	return bkps
}
