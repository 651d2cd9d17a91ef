package changepoint

import (
	"math"
	"sort"
)

// RBFCost implements the Radial Basis Function cost model.
// For a segment S the cost is |S| - sum_{i,j in S} k(x_i, x_j) / |S|
// where k(a, b) = exp(-gamma * (a - b)^2).
type RBFCost struct {
	gamma    float64
	nSamples int
	// integral[i][j] is the sum of the Gram matrix over rows [0,i) and columns [0,j)
	integral [][]float64
}

// computeMedianGamma calculates gamma using median heuristic
// gamma = 1 / median(pairwise squared distances)
func computeMedianGamma(signal []float64) float64 {
	n := len(signal)
	if n < 2 {
		return 1.0
	}

	var distances []float64
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			diff := signal[i] - signal[j]
			if dist := diff * diff; dist > 0 {
				distances = append(distances, dist)
			}
		}
	}

	if len(distances) == 0 {
		return 1.0
	}

	sort.Float64s(distances)
	median := distances[len(distances)/2]
	if median == 0 {
		return 1.0
	}

	return 1.0 / median
}

// Fit computes the Gram matrix and its 2-D prefix sums so that Error is O(1).
func (r *RBFCost) Fit(signal []float64) {
	r.nSamples = len(signal)
	r.gamma = computeMedianGamma(signal)

	n := r.nSamples
	r.integral = make([][]float64, n+1)
	for i := range r.integral {
		r.integral[i] = make([]float64, n+1)
	}

	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			diff := signal[i] - signal[j]
			k := math.Exp(-r.gamma * diff * diff)
			r.integral[i+1][j+1] = k + r.integral[i][j+1] + r.integral[i+1][j] - r.integral[i][j]
		}
	}
}

// Error computes the kernel cost of signal[start:end]. The Gram diagonal is
// all ones, so its trace equals the segment length.
func (r *RBFCost) Error(start, end int) float64 {
	if start >= end || start < 0 || end > r.nSamples {
		return math.Inf(1)
	}

	length := float64(end - start)
	total := r.integral[end][end] - r.integral[start][end] - r.integral[end][start] + r.integral[start][start]

	return length - total/length
}

// MinSize returns 1
func (r *RBFCost) MinSize() int {
	return 1
}
