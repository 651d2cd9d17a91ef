package analysis

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/chrissnell/structbreak/internal/types"
)

// SummaryColumns are the headers of the results table.
var SummaryColumns = []string{"Segment", "Start Year", "End Year", "Mean", "Std Dev"}

// SummaryRow is one line of the results table. Segment numbers start at 1.
type SummaryRow struct {
	Segment   int     `json:"segment"`
	StartYear int     `json:"start_year"`
	EndYear   int     `json:"end_year"`
	Mean      float64 `json:"mean"`
	StdDev    float64 `json:"std_dev"`
}

// Summary is the per-segment results table.
type Summary struct {
	Columns []string     `json:"columns"`
	Rows    []SummaryRow `json:"rows"`
}

// BuildSummary tabulates fitted segments.
func BuildSummary(segs []types.Segment) Summary {
	s := Summary{Columns: SummaryColumns, Rows: make([]SummaryRow, len(segs))}
	for i, seg := range segs {
		s.Rows[i] = SummaryRow{
			Segment:   i + 1,
			StartYear: seg.StartYear,
			EndYear:   seg.EndYear,
			Mean:      seg.Mean,
			StdDev:    seg.StdDev,
		}
	}
	return s
}

// Records renders the rows as text, without the header.
func (s Summary) Records() [][]string {
	out := make([][]string, len(s.Rows))
	for i, r := range s.Rows {
		out[i] = []string{
			strconv.Itoa(r.Segment),
			strconv.Itoa(r.StartYear),
			strconv.Itoa(r.EndYear),
			formatFloat(r.Mean),
			formatFloat(r.StdDev),
		}
	}
	return out
}

// WriteCSV writes the header and rows as CSV.
func (s Summary) WriteCSV(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(s.Columns); err != nil {
		return err
	}
	if err := cw.WriteAll(s.Records()); err != nil {
		return fmt.Errorf("write summary: %w", err)
	}
	return nil
}

// Markdown renders the table in GitHub markdown.
func (s Summary) Markdown() string {
	var b strings.Builder
	b.WriteString("| " + strings.Join(s.Columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(s.Columns)) + "\n")
	for _, rec := range s.Records() {
		b.WriteString("| " + strings.Join(rec, " | ") + " |\n")
	}
	return b.String()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 4, 64)
}
