// Package series turns a raw dataset column into a cleaned, year-indexed
// TimeSeries.
package series

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/chrissnell/structbreak/internal/types"
)

// Prepare coerces raw to numbers, drops every value that cannot be coerced
// and aligns the remainder to calendar years starting at startYear.
//
// Missing values shrink the series; nothing is interpolated. Observations
// beyond endYear are truncated, so the series never extends past the
// requested span. raw is not modified.
func Prepare(column string, raw []any, startYear, endYear int) (*types.TimeSeries, error) {
	if startYear >= endYear {
		return nil, fmt.Errorf("%w: start=%d end=%d", types.ErrInvalidRange, startYear, endYear)
	}

	values := make([]float64, 0, len(raw))
	var blank, unparseable int
	for _, v := range raw {
		f, ok := Coerce(v)
		if !ok {
			if isBlank(v) {
				blank++
			} else {
				unparseable++
			}
			continue
		}
		values = append(values, f)
	}

	if len(values) == 0 {
		if unparseable > 0 {
			return nil, fmt.Errorf("column %q: %w: %w (%d non-numeric values)",
				column, types.ErrEmptyDataset, types.ErrUnparseableColumn, unparseable)
		}
		return nil, fmt.Errorf("column %q: %w", column, types.ErrEmptyDataset)
	}

	ts := &types.TimeSeries{
		Column:    column,
		StartYear: startYear,
		Dropped:   blank + unparseable,
	}

	span := endYear - startYear + 1
	if len(values) > span {
		ts.Truncated = len(values) - span
		values = values[:span]
	}

	ts.Values = values
	ts.EndYear = startYear + len(values) - 1
	return ts, nil
}

// Coerce converts a single cell to float64. Strings are trimmed and parsed;
// booleans map to 0 and 1. NaN and infinities count as missing.
func Coerce(v any) (float64, bool) {
	var f float64
	switch x := v.(type) {
	case nil:
		return 0, false
	case float64:
		f = x
	case float32:
		f = float64(x)
	case int:
		f = float64(x)
	case int32:
		f = float64(x)
	case int64:
		f = float64(x)
	case uint:
		f = float64(x)
	case uint64:
		f = float64(x)
	case bool:
		if x {
			f = 1
		}
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case fmt.Stringer:
		return Coerce(x.String())
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// naTokens are read as missing rather than unparseable, matching the usual
// spreadsheet and CSV conventions for empty cells.
var naTokens = map[string]bool{
	"": true, "na": true, "n/a": true, "nan": true, "-nan": true, "null": true,
	"none": true, "#n/a": true, "<na>": true,
}

func isBlank(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case string:
		return naTokens[strings.ToLower(strings.TrimSpace(x))]
	case float64:
		return math.IsNaN(x)
	}
	return false
}

// FromStrings adapts a string column for Prepare.
func FromStrings(cells []string) []any {
	raw := make([]any, len(cells))
	for i, c := range cells {
		raw[i] = c
	}
	return raw
}
