package analysis

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chrissnell/structbreak/internal/dataset"
	"github.com/chrissnell/structbreak/internal/types"
)

// fixedDetector returns the same breakpoints for every signal.
type fixedDetector struct {
	bkps  types.BreakpointSet
	calls atomic.Int32
}

func (f *fixedDetector) Detect(_ context.Context, _ []float64, _ int) (types.BreakpointSet, error) {
	f.calls.Add(1)
	out := make(types.BreakpointSet, len(f.bkps))
	copy(out, f.bkps)
	return out, nil
}

func table(column string, cells ...string) *dataset.Table {
	records := make([][]string, len(cells))
	for i, c := range cells {
		records[i] = []string{fmt.Sprint(2000 + i), c}
	}
	return dataset.NewTable("test.csv", []string{"year", column}, records)
}

func newTestAnalyzer(t *testing.T, opts ...Option) *Analyzer {
	t.Helper()
	a, err := NewAnalyzer(DefaultConfig(), nil, opts...)
	require.NoError(t, err)
	return a
}

func TestRunTwoRegimes(t *testing.T) {
	det := &fixedDetector{bkps: types.BreakpointSet{3, 6}}
	a := newTestAnalyzer(t, WithDetector(det))

	req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 1}
	report, err := a.Run(context.Background(), table("value", "1", "2", "3", "10", "11", "12"), req)
	require.NoError(t, err)

	segs := report.Result.Segments
	require.Len(t, segs, 2)
	assert.Equal(t, [2]int{0, 3}, [2]int{segs[0].Start, segs[0].End})
	assert.Equal(t, [2]int{3, 6}, [2]int{segs[1].Start, segs[1].End})
	assert.Equal(t, 2000, segs[0].StartYear)
	assert.Equal(t, 2002, segs[0].EndYear)
	assert.Equal(t, 2003, segs[1].StartYear)
	assert.Equal(t, 2005, segs[1].EndYear)
	assert.InDelta(t, 2.0, segs[0].Mean, 1e-9)
	assert.InDelta(t, 11.0, segs[1].Mean, 1e-9)

	assert.Equal(t, []Marker{{Index: 3, Year: 2002}}, report.Markers)
	assert.Equal(t, "custom", report.Algorithm)
	assert.NotEmpty(t, report.Interpretation)

	require.Len(t, report.Summary.Rows, 2)
	assert.Equal(t, SummaryRow{Segment: 2, StartYear: 2003, EndYear: 2005, Mean: 11, StdDev: 1}, report.Summary.Rows[1])
}

func TestRunInvalidRangeStopsEarly(t *testing.T) {
	det := &fixedDetector{bkps: types.BreakpointSet{6}}
	a := newTestAnalyzer(t, WithDetector(det))

	req := Request{Column: "value", StartYear: 2022, EndYear: 2020, Breaks: 4}
	report, err := a.Run(context.Background(), table("value", "1", "2", "3"), req)
	assert.ErrorIs(t, err, types.ErrInvalidRange)
	assert.Nil(t, report)
	assert.Zero(t, det.calls.Load())
}

func TestRunNonNumericColumn(t *testing.T) {
	det := &fixedDetector{bkps: types.BreakpointSet{3}}
	a := newTestAnalyzer(t, WithDetector(det))

	req := Request{Column: "value", StartYear: 2000, EndYear: 2010, Breaks: 2}
	_, err := a.Run(context.Background(), table("value", "low", "high", "medium"), req)
	assert.ErrorIs(t, err, types.ErrEmptyDataset)
	assert.ErrorIs(t, err, types.ErrUnparseableColumn)
	assert.Zero(t, det.calls.Load())
}

func TestRunFewerBreakpointsThanRequested(t *testing.T) {
	a := newTestAnalyzer(t)

	req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 4}
	report, err := a.Run(context.Background(), table("value", "1", "2", "3", "4", "5", "6"), req)
	require.NoError(t, err)

	assert.Equal(t, types.BreakpointSet{6}, report.Result.Breakpoints)
	require.Len(t, report.Result.Segments, 1)
	assert.Equal(t, 0, report.Result.Segments[0].Start)
	assert.Equal(t, 6, report.Result.Segments[0].End)
	assert.Empty(t, report.Markers)
	assert.Contains(t, strings.Join(report.Warnings, "\n"), "requested 4 breakpoints, found 0")
}

func TestRunSingleObservationSegment(t *testing.T) {
	det := &fixedDetector{bkps: types.BreakpointSet{5, 6}}
	a := newTestAnalyzer(t, WithDetector(det))

	req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 1}
	report, err := a.Run(context.Background(), table("value", "1", "2", "3", "4", "5", "6"), req)
	assert.ErrorIs(t, err, types.ErrInsufficientData)
	assert.Nil(t, report)
}

func TestRunRejectsMalformedDetectorOutput(t *testing.T) {
	tests := []struct {
		name    string
		bkps    types.BreakpointSet
		wantErr error
	}{
		{"empty", types.BreakpointSet{}, types.ErrMalformedBreakpoints},
		{"decreasing", types.BreakpointSet{4, 2, 6}, types.ErrMalformedBreakpoints},
		{"out of range", types.BreakpointSet{3, 9}, types.ErrMalformedBreakpoints},
		{"zero length segment", types.BreakpointSet{3, 3, 6}, types.ErrDegenerateSegment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, WithDetector(&fixedDetector{bkps: tt.bkps}))
			req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 2}
			report, err := a.Run(context.Background(), table("value", "1", "2", "3", "4", "5", "6"), req)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Nil(t, report)
		})
	}
}

func TestRunShortSentinelIsExtended(t *testing.T) {
	tests := []struct {
		name     string
		bkps     types.BreakpointSet
		bounds   [][2]int
		expected []Marker
	}{
		{"two short", types.BreakpointSet{2, 4}, [][2]int{{0, 2}, {2, 6}}, []Marker{{Index: 2, Year: 2001}}},
		{"one short", types.BreakpointSet{3, 5}, [][2]int{{0, 3}, {3, 6}}, []Marker{{Index: 3, Year: 2002}}},
		{"lone short sentinel", types.BreakpointSet{4}, [][2]int{{0, 6}}, []Marker{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := newTestAnalyzer(t, WithDetector(&fixedDetector{bkps: tt.bkps}))

			req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 2}
			report, err := a.Run(context.Background(), table("value", "1", "2", "5", "6", "9", "10"), req)
			require.NoError(t, err)

			segs := report.Result.Segments
			require.Len(t, segs, len(tt.bounds))
			for i, s := range segs {
				assert.Equal(t, tt.bounds[i], [2]int{s.Start, s.End})
			}
			assert.Equal(t, 2005, segs[len(segs)-1].EndYear)
			assert.Equal(t, tt.expected, report.Markers)
		})
	}
}

func TestMarkersSkipFinalBreakpoint(t *testing.T) {
	ts := &types.TimeSeries{StartYear: 1995, EndYear: 2004, Values: make([]float64, 10)}

	assert.Equal(t, []Marker{{Index: 4, Year: 1998}}, Markers(ts, types.BreakpointSet{4, 7}))
	assert.Equal(t, []Marker{{Index: 4, Year: 1998}, {Index: 7, Year: 2001}}, Markers(ts, types.BreakpointSet{4, 7, 10}))
	assert.Empty(t, Markers(ts, types.BreakpointSet{10}))
}

func TestRunIsIdempotent(t *testing.T) {
	a := newTestAnalyzer(t)
	cells := []string{"1", "1.2", "0.9", "1.1", "1", "5", "5.2", "4.9", "5.1", "5", "2", "2.1", "1.9", "2", "2.2"}
	tbl := table("value", cells...)
	req := Request{Column: "value", StartYear: 1995, EndYear: 2022, Breaks: 2}

	first, err := a.Run(context.Background(), tbl, req)
	require.NoError(t, err)
	second, err := a.Run(context.Background(), tbl, req)
	require.NoError(t, err)

	assert.Equal(t, first.Result, second.Result)
	assert.Equal(t, types.BreakpointSet{5, 10, 15}, first.Result.Breakpoints)
	assert.Equal(t, []Marker{{Index: 5, Year: 1999}, {Index: 10, Year: 2004}}, first.Markers)
	assert.Contains(t, strings.Join(first.Warnings, "\n"), "before the requested end year")
}

func TestRunAlgorithmOverride(t *testing.T) {
	a := newTestAnalyzer(t)
	cells := []string{"0", "0", "0", "0", "0", "9", "9", "9", "9", "9"}

	req := Request{Column: "value", StartYear: 2000, EndYear: 2020, Breaks: 1, Algorithm: "DynP"}
	report, err := a.Run(context.Background(), table("value", cells...), req)
	require.NoError(t, err)
	assert.Equal(t, "dynp", report.Algorithm)
	assert.Equal(t, types.BreakpointSet{5, 10}, report.Result.Breakpoints)
}

func TestRunCancelled(t *testing.T) {
	det := &fixedDetector{bkps: types.BreakpointSet{3, 6}}
	a := newTestAnalyzer(t, WithDetector(det))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 1}
	_, err := a.Run(ctx, table("value", "1", "2", "3", "4", "5", "6"), req)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, det.calls.Load())
}

func TestRunUnknownColumn(t *testing.T) {
	a := newTestAnalyzer(t)
	req := Request{Column: "gdp", StartYear: 2000, EndYear: 2005, Breaks: 1}
	_, err := a.Run(context.Background(), table("value", "1", "2"), req)
	assert.ErrorIs(t, err, types.ErrColumnNotFound)
}

func TestRunConcurrentRequestsDoNotShareState(t *testing.T) {
	a := newTestAnalyzer(t)

	inputs := map[string][]string{
		"up":   {"1", "1", "1", "1", "1", "8", "8", "8", "8", "8"},
		"down": {"9", "9", "9", "9", "9", "9", "9", "9", "9", "9", "2", "2", "2", "2", "2"},
	}

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		for name, cells := range inputs {
			wg.Add(1)
			go func(name string, cells []string) {
				defer wg.Done()
				req := Request{Column: name, StartYear: 2000, EndYear: 2030, Breaks: 1}
				report, err := a.Run(context.Background(), table(name, cells...), req)
				if !assert.NoError(t, err) {
					return
				}
				assert.Equal(t, len(cells), report.Result.Series.Len())
				assert.Equal(t, name, report.Result.Series.Column)
			}(name, cells)
		}
	}
	wg.Wait()
}

func TestRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"defaults", DefaultRequest("value"), nil},
		{"reversed range", Request{Column: "v", StartYear: 2022, EndYear: 2020, Breaks: 4}, types.ErrInvalidRange},
		{"equal years", Request{Column: "v", StartYear: 2000, EndYear: 2000, Breaks: 4}, types.ErrInvalidRange},
		{"reversed range wins", Request{StartYear: 2022, EndYear: 2020, Breaks: 40}, types.ErrInvalidRange},
		{"year too early", Request{Column: "v", StartYear: 1899, EndYear: 2000, Breaks: 4}, types.ErrInvalidParameter},
		{"year too late", Request{Column: "v", StartYear: 2000, EndYear: 2101, Breaks: 4}, types.ErrInvalidParameter},
		{"no breaks", Request{Column: "v", StartYear: 2000, EndYear: 2010, Breaks: 0}, types.ErrInvalidParameter},
		{"too many breaks", Request{Column: "v", StartYear: 2000, EndYear: 2010, Breaks: 11}, types.ErrInvalidParameter},
		{"missing column", Request{StartYear: 2000, EndYear: 2010, Breaks: 4}, types.ErrInvalidParameter},
		{"unknown algorithm", Request{Column: "v", StartYear: 2000, EndYear: 2010, Breaks: 4, Algorithm: "window"}, types.ErrInvalidParameter},
		{"algorithm case", Request{Column: "v", StartYear: 2000, EndYear: 2010, Breaks: 4, Algorithm: " PELT "}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestRequestValidateMessage(t *testing.T) {
	req := Request{Column: "v", StartYear: 2000, EndYear: 2010, Breaks: 11}
	err := req.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Breaks must be at most 10")
}

func TestBuildCharts(t *testing.T) {
	a := newTestAnalyzer(t, WithDetector(&fixedDetector{bkps: types.BreakpointSet{3, 6}}))
	req := Request{Column: "value", StartYear: 2000, EndYear: 2005, Breaks: 1}
	report, err := a.Run(context.Background(), table("value", "1", "2", "3", "10", "11", "12"), req)
	require.NoError(t, err)

	require.Len(t, report.Charts, 2)
	breaks, regression := report.Charts[0], report.Charts[1]

	assert.Equal(t, BreakChartTitle, breaks.Title)
	require.Len(t, breaks.Series, 1)
	assert.Equal(t, Point{X: 2000, Y: 1}, breaks.Series[0].Points[0])
	assert.Equal(t, Point{X: 2005, Y: 12}, breaks.Series[0].Points[5])
	assert.Equal(t, report.Markers, breaks.Markers)

	assert.Equal(t, RegressionChartTitle, regression.Title)
	require.Len(t, regression.Series, 3)
	// Both trend lines start at the first year of the series.
	assert.Equal(t, 2000.0, regression.Series[1].Points[0].X)
	assert.Equal(t, 2000.0, regression.Series[2].Points[0].X)
	assert.InDelta(t, 10.0, regression.Series[2].Points[0].Y, 1e-9)
}

func TestSummaryOutputs(t *testing.T) {
	s := BuildSummary([]types.Segment{
		{StartYear: 2000, EndYear: 2002, Mean: 2, StdDev: 1},
		{StartYear: 2003, EndYear: 2005, Mean: 11, StdDev: 1},
	})

	var buf bytes.Buffer
	require.NoError(t, s.WriteCSV(&buf))
	assert.Equal(t, "Segment,Start Year,End Year,Mean,Std Dev\n"+
		"1,2000,2002,2.0000,1.0000\n"+
		"2,2003,2005,11.0000,1.0000\n", buf.String())

	md := s.Markdown()
	assert.True(t, strings.HasPrefix(md, "| Segment | Start Year | End Year | Mean | Std Dev |\n"))
	assert.Contains(t, md, "| 2 | 2003 | 2005 | 11.0000 | 1.0000 |")
}
