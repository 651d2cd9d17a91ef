// Package changepoint finds structural breaks in a numeric signal. The search
// methods and cost functions follow the semantics of the ruptures library so
// that results line up with analyses produced there.
package changepoint

import (
	"fmt"
	"strings"

	"github.com/chrissnell/structbreak/internal/types"
)

// Cost measures how homogeneous the half-open segment [start, end) of a fitted
// signal is. Lower is more homogeneous.
type Cost interface {
	Fit(signal []float64)
	Error(start, end int) float64
	// MinSize is the smallest segment length the cost is defined for.
	MinSize() int
}

// CostType identifies a cost function
type CostType string

const (
	// CostL2 is the least-squares cost: squared deviation from the segment mean.
	CostL2 CostType = "l2"

	// CostRBF is the Gaussian-kernel cost with median-heuristic bandwidth.
	CostRBF CostType = "rbf"
)

// NewCost returns a fresh, unfitted cost of the given type.
func NewCost(costType CostType) (Cost, error) {
	switch CostType(strings.ToLower(string(costType))) {
	case CostL2, "":
		return &L2Cost{}, nil
	case CostRBF:
		return &RBFCost{}, nil
	default:
		return nil, fmt.Errorf("%w: unknown cost %q (supported: l2, rbf)", types.ErrInvalidParameter, costType)
	}
}
