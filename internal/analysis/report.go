package analysis

import (
	"time"

	"github.com/chrissnell/structbreak/internal/constants"
	"github.com/chrissnell/structbreak/internal/types"
)

// Report is everything the front-ends show for one analysis.
type Report struct {
	Request        Request               `json:"request"`
	Algorithm      string                `json:"algorithm"`
	Result         *types.AnalysisResult `json:"result"`
	Markers        []Marker              `json:"markers"`
	Charts         []Chart               `json:"charts"`
	Summary        Summary               `json:"summary"`
	Interpretation string                `json:"interpretation"`
	Warnings       []string              `json:"warnings,omitempty"`
	GeneratedAt    time.Time             `json:"generated_at"`
}

// Marker is a detected breakpoint placed on the calendar axis.
type Marker struct {
	Index int `json:"index"`
	Year  int `json:"year"`
}

// Markers places every breakpoint except the final sentinel at the year of
// the last observation before the break.
func Markers(ts *types.TimeSeries, bkps types.BreakpointSet) []Marker {
	interior := bkps.Interior()
	markers := make([]Marker, 0, len(interior))
	for _, bp := range interior {
		if bp <= 0 || bp >= ts.Len() {
			continue
		}
		markers = append(markers, Marker{Index: bp, Year: ts.Year(bp - 1)})
	}
	return markers
}

func newReport(req Request, algorithm string, result *types.AnalysisResult, warnings []string) *Report {
	markers := Markers(result.Series, result.Breakpoints)
	return &Report{
		Request:        req,
		Algorithm:      algorithm,
		Result:         result,
		Markers:        markers,
		Charts:         BuildCharts(result, markers),
		Summary:        BuildSummary(result.Segments),
		Interpretation: constants.Interpretation,
		Warnings:       warnings,
		GeneratedAt:    time.Now().UTC(),
	}
}
