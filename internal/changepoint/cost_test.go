package changepoint

import (
	"errors"
	"math"
	"testing"

	"github.com/chrissnell/structbreak/internal/types"
)

func TestL2CostError(t *testing.T) {
	signal := []float64{1, 2, 3, 10, 10, 10}
	c := &L2Cost{}
	c.Fit(signal)

	tests := []struct {
		name       string
		start, end int
		expected   float64
	}{
		{"single point", 0, 1, 0},
		{"linear run", 0, 3, 2},
		{"constant run", 3, 6, 0},
		{"whole signal", 0, 6, 98},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := c.Error(tt.start, tt.end)
			if math.Abs(got-tt.expected) > 1e-9 {
				t.Errorf("Error(%d, %d) = %v, want %v", tt.start, tt.end, got, tt.expected)
			}
		})
	}

	if got := c.Error(3, 3); !math.IsInf(got, 1) {
		t.Errorf("empty range should cost +Inf, got %v", got)
	}
	if got := c.Error(0, 7); !math.IsInf(got, 1) {
		t.Errorf("out of range should cost +Inf, got %v", got)
	}
}

func TestL2CostLargeOffset(t *testing.T) {
	// Centring keeps the variance of a large-magnitude series accurate.
	signal := []float64{1e9 + 1, 1e9 + 2, 1e9 + 3}
	c := &L2Cost{}
	c.Fit(signal)

	if got := c.Error(0, 3); math.Abs(got-2) > 1e-6 {
		t.Errorf("Error = %v, want 2", got)
	}
}

func TestRBFCost(t *testing.T) {
	constant := []float64{4, 4, 4, 4}
	c := &RBFCost{}
	c.Fit(constant)
	if got := c.Error(0, 4); math.Abs(got) > 1e-12 {
		t.Errorf("constant segment should cost 0, got %v", got)
	}

	step := []float64{0, 0, 0, 5, 5, 5}
	c.Fit(step)
	whole := c.Error(0, 6)
	parts := c.Error(0, 3) + c.Error(3, 6)
	if parts >= whole {
		t.Errorf("splitting at the step should reduce cost: whole=%v parts=%v", whole, parts)
	}
	if got := c.Error(2, 2); !math.IsInf(got, 1) {
		t.Errorf("empty range should cost +Inf, got %v", got)
	}
}

func TestComputeMedianGamma(t *testing.T) {
	tests := []struct {
		name     string
		signal   []float64
		expected float64
	}{
		{"too short", []float64{1}, 1},
		{"all equal", []float64{2, 2, 2}, 1},
		// squared distances 1, 4, 1 -> sorted 1,1,4 -> median 1
		{"three points", []float64{0, 1, 2}, 1},
		// squared distances 4, 16, 4 -> median 4
		{"spread", []float64{0, 2, 4}, 0.25},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := computeMedianGamma(tt.signal); math.Abs(got-tt.expected) > 1e-12 {
				t.Errorf("computeMedianGamma() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestNewCost(t *testing.T) {
	for _, ct := range []CostType{"", CostL2, "L2", CostRBF} {
		if _, err := NewCost(ct); err != nil {
			t.Errorf("NewCost(%q) returned error: %v", ct, err)
		}
	}

	_, err := NewCost("ar")
	if !errors.Is(err, types.ErrInvalidParameter) {
		t.Errorf("NewCost(ar) error = %v, want ErrInvalidParameter", err)
	}
}

func TestMedFilt(t *testing.T) {
	tests := []struct {
		name     string
		data     []float64
		kernel   int
		expected []float64
	}{
		{"kernel one copies", []float64{3, 1, 2}, 1, []float64{3, 1, 2}},
		{"spike removed", []float64{1, 100, 1, 1, 1}, 3, []float64{1, 1, 1, 1, 1}},
		{"edges replicate", []float64{5, 5, 5, 9}, 3, []float64{5, 5, 5, 9}},
		{"wide kernel", []float64{1, 2, 3, 4, 5}, 5, []float64{1, 2, 3, 4, 5}},
		{"empty", []float64{}, 3, []float64{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := MedFilt(tt.data, tt.kernel)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if len(got) != len(tt.expected) {
				t.Fatalf("len = %d, want %d", len(got), len(tt.expected))
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("index %d: got %v, want %v", i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestMedFiltDoesNotModifyInput(t *testing.T) {
	data := []float64{1, 100, 1}
	if _, err := MedFilt(data, 3); err != nil {
		t.Fatal(err)
	}
	if data[1] != 100 {
		t.Errorf("input modified: %v", data)
	}
}

func TestMedFiltInvalidKernel(t *testing.T) {
	for _, k := range []int{0, -1, 2, 4} {
		if _, err := MedFilt([]float64{1, 2, 3}, k); !errors.Is(err, types.ErrInvalidParameter) {
			t.Errorf("kernel %d: error = %v, want ErrInvalidParameter", k, err)
		}
	}
}
