package types

// TimeSeries is a cleaned sequence of observations, one per calendar year
// starting at StartYear. EndYear is always StartYear + len(Values) - 1.
type TimeSeries struct {
	Column    string    `json:"column"`
	StartYear int       `json:"start_year"`
	EndYear   int       `json:"end_year"`
	Values    []float64 `json:"values"`

	// Dropped counts rows removed because the value could not be coerced.
	Dropped int `json:"dropped"`
	// Truncated counts rows past the requested end year.
	Truncated int `json:"truncated"`
}

// Len returns the number of observations.
func (ts *TimeSeries) Len() int {
	return len(ts.Values)
}

// Year returns the calendar year of observation i.
func (ts *TimeSeries) Year(i int) int {
	return ts.StartYear + i
}

// Years returns the calendar axis of the series.
func (ts *TimeSeries) Years() []int {
	years := make([]int, len(ts.Values))
	for i := range years {
		years[i] = ts.StartYear + i
	}
	return years
}

// BreakpointSet holds ordered split indices as returned by a detector. The final
// element is the end-of-data sentinel.
type BreakpointSet []int

// Interior returns the breakpoints without the trailing sentinel.
func (b BreakpointSet) Interior() []int {
	if len(b) == 0 {
		return nil
	}
	out := make([]int, len(b)-1)
	copy(out, b[:len(b)-1])
	return out
}

// Segment is the half-open index range [Start, End) of a TimeSeries together
// with its fitted trend and descriptive statistics.
type Segment struct {
	Index     int `json:"index"`
	Start     int `json:"start"`
	End       int `json:"end"`
	StartYear int `json:"start_year"`
	EndYear   int `json:"end_year"`

	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	RSquared  float64 `json:"r_squared"`
	RMSE      float64 `json:"rmse"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`

	// X is the regression axis and Fitted the predicted value at each X.
	X      []float64 `json:"x,omitempty"`
	Fitted []float64 `json:"fitted,omitempty"`
}

// Len returns the number of observations covered by the segment.
func (s Segment) Len() int {
	return s.End - s.Start
}

// AnalysisResult is the terminal artifact of one analysis run.
type AnalysisResult struct {
	Series      *TimeSeries   `json:"series"`
	Breakpoints BreakpointSet `json:"breakpoints"`
	Segments    []Segment     `json:"segments"`
}
