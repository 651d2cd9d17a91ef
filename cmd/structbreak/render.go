package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/chrissnell/structbreak/internal/analysis"
)

// Output formats
const (
	formatTable    = "table"
	formatJSON     = "json"
	formatCSV      = "csv"
	formatMarkdown = "markdown"
)

var formats = []string{formatTable, formatJSON, formatCSV, formatMarkdown}

var (
	colorAccent = lipgloss.Color("#1D9EA3")
	colorBorder = lipgloss.Color("#2C4A54")
	colorMuted  = lipgloss.Color("#7F8C8D")

	headingStyle = lipgloss.NewStyle().Bold(true).Foreground(colorAccent)
	mutedStyle   = lipgloss.NewStyle().Foreground(colorMuted)
	headerStyle  = lipgloss.NewStyle().Bold(true).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
)

func validFormat(f string) bool {
	for _, v := range formats {
		if f == v {
			return true
		}
	}
	return false
}

func formatList() string {
	return strings.Join(formats, ", ")
}

// renderTable draws a bordered table
func renderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(colorBorder)).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
	return t.String()
}

func renderReport(w io.Writer, report *analysis.Report, format string) error {
	switch format {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	case formatCSV:
		return report.Summary.WriteCSV(w)
	case formatMarkdown:
		_, err := io.WriteString(w, markdownReport(report))
		return err
	default:
		_, err := io.WriteString(w, textReport(report))
		return err
	}
}

func breakpointYears(report *analysis.Report) string {
	if len(report.Markers) == 0 {
		return "none"
	}
	years := make([]string, len(report.Markers))
	for i, m := range report.Markers {
		years[i] = strconv.Itoa(m.Year)
	}
	return strings.Join(years, ", ")
}

func textReport(report *analysis.Report) string {
	ts := report.Result.Series

	var b strings.Builder
	b.WriteString(headingStyle.Render("Structural Break Analysis") + "\n")
	fmt.Fprintf(&b, "%s %s, %d-%d (%d observations, %s)\n",
		mutedStyle.Render("Column:"), ts.Column, ts.StartYear, ts.EndYear, ts.Len(), report.Algorithm)
	fmt.Fprintf(&b, "%s %s\n\n", mutedStyle.Render("Breakpoints:"), breakpointYears(report))

	b.WriteString(renderTable(report.Summary.Columns, report.Summary.Records()) + "\n\n")

	b.WriteString(headingStyle.Render("Segmented Regression") + "\n")
	fit := make([][]string, len(report.Result.Segments))
	for i, seg := range report.Result.Segments {
		fit[i] = []string{
			strconv.Itoa(i + 1),
			strconv.FormatFloat(seg.Slope, 'f', 4, 64),
			strconv.FormatFloat(seg.Intercept, 'f', 4, 64),
			strconv.FormatFloat(seg.RSquared, 'f', 4, 64),
			strconv.FormatFloat(seg.RMSE, 'f', 4, 64),
		}
	}
	b.WriteString(renderTable([]string{"Segment", "Slope", "Intercept", "R²", "RMSE"}, fit) + "\n\n")

	b.WriteString(headingStyle.Render("Interpretation") + "\n")
	b.WriteString(lipgloss.NewStyle().Width(80).Render(report.Interpretation) + "\n")

	for _, w := range report.Warnings {
		b.WriteString(mutedStyle.Render("note: "+w) + "\n")
	}
	return b.String()
}

func markdownReport(report *analysis.Report) string {
	var b strings.Builder
	b.WriteString("## Structural Break Analysis\n\n")
	fmt.Fprintf(&b, "Column `%s`, breakpoints: %s\n\n", report.Result.Series.Column, breakpointYears(report))
	b.WriteString(report.Summary.Markdown())
	b.WriteString("\n### Interpretation\n\n")
	b.WriteString(report.Interpretation + "\n")
	return b.String()
}
