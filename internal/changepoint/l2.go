package changepoint

import "math"

// L2Cost scores a segment by the sum of squared deviations from its mean.
// Prefix sums make Error O(1) after an O(n) Fit.
type L2Cost struct {
	sum   []float64
	sumSq []float64
	n     int
}

// Fit precomputes prefix sums of the mean-centred signal. Centring keeps
// the sum-of-squares identity stable for large-magnitude series.
func (c *L2Cost) Fit(signal []float64) {
	c.n = len(signal)
	c.sum = make([]float64, c.n+1)
	c.sumSq = make([]float64, c.n+1)

	var mean float64
	for _, v := range signal {
		mean += v
	}
	if c.n > 0 {
		mean /= float64(c.n)
	}

	for i, v := range signal {
		d := v - mean
		c.sum[i+1] = c.sum[i] + d
		c.sumSq[i+1] = c.sumSq[i] + d*d
	}
}

// Error returns the squared deviation of signal[start:end] around its mean.
func (c *L2Cost) Error(start, end int) float64 {
	if start >= end || start < 0 || end > c.n {
		return math.Inf(1)
	}

	length := float64(end - start)
	s := c.sum[end] - c.sum[start]
	sq := c.sumSq[end] - c.sumSq[start]

	cost := sq - s*s/length
	if cost < 0 {
		// rounding on constant segments
		return 0
	}
	return cost
}

// MinSize returns 1; a single point has zero cost.
func (c *L2Cost) MinSize() int {
	return 1
}
