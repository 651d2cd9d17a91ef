package changepoint

import (
	"fmt"
	"sort"

	"github.com/chrissnell/structbreak/internal/types"
)

// MedFilt applies a running median. Edges are padded by repeating the first
// and last value so that the filter never pulls a level series towards zero.
// kernelSize must be a positive odd integer.
// A kernel of 1 returns a copy of data.
func MedFilt(data []float64, kernelSize int) ([]float64, error) {
	if kernelSize < 1 || kernelSize%2 == 0 {
		return nil, fmt.Errorf("%w: median kernel size must be a positive odd integer, got %d", types.ErrInvalidParameter, kernelSize)
	}

	n := len(data)
	result := make([]float64, n)
	if kernelSize == 1 {
		copy(result, data)
		return result, nil
	}

	half := kernelSize / 2
	window := make([]float64, kernelSize)

	for i := 0; i < n; i++ {
		for j := -half; j <= half; j++ {
			idx := i + j
			if idx < 0 {
				idx = 0
			} else if idx >= n {
				idx = n - 1
			}
			window[j+half] = data[idx]
		}

		sort.Float64s(window)
		result[i] = window[half]
	}
	return result, nil
}
