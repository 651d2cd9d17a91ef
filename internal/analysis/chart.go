package analysis

import (
	"github.com/chrissnell/structbreak/internal/types"
)

// Chart titles
const (
	BreakChartTitle      = "Structural Break Analysis"
	RegressionChartTitle = "Segmented Regression with Breakpoints"
)

// Chart describes a line chart with vertical breakpoint markers. Rendering is
// left to the client.
type Chart struct {
	Title   string        `json:"title"`
	XLabel  string        `json:"x_label"`
	YLabel  string        `json:"y_label"`
	Series  []ChartSeries `json:"series"`
	Markers []Marker      `json:"markers"`
}

// ChartSeries is one polyline of a chart.
type ChartSeries struct {
	Name   string  `json:"name"`
	Color  string  `json:"color"`
	Points []Point `json:"points"`
}

// Point is an (x, y) pair; x is a calendar year.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

const (
	seriesColor     = "blue"
	regressionColor = "green"
	// MarkerColor is used for breakpoint lines on both charts.
	MarkerColor = "red"
)

// BuildCharts returns the break chart and the segmented regression chart.
func BuildCharts(result *types.AnalysisResult, markers []Marker) []Chart {
	ts := result.Series
	raw := ChartSeries{Name: ts.Column, Color: seriesColor, Points: make([]Point, ts.Len())}
	for i, v := range ts.Values {
		raw.Points[i] = Point{X: float64(ts.Year(i)), Y: v}
	}

	breaks := Chart{
		Title:   BreakChartTitle,
		XLabel:  "Year",
		YLabel:  ts.Column,
		Series:  []ChartSeries{raw},
		Markers: markers,
	}

	regression := Chart{
		Title:   RegressionChartTitle,
		XLabel:  "Year",
		YLabel:  ts.Column,
		Series:  []ChartSeries{raw},
		Markers: markers,
	}
	for _, seg := range result.Segments {
		line := ChartSeries{Name: "Segmented Regression", Color: regressionColor, Points: make([]Point, len(seg.X))}
		for i := range seg.X {
			line.Points[i] = Point{X: seg.X[i], Y: seg.Fitted[i]}
		}
		regression.Series = append(regression.Series, line)
	}

	return []Chart{breaks, regression}
}
