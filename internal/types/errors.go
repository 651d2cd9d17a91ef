package types

import "errors"

// Analysis errors. Stages wrap these with context; match them with errors.Is.
var (
	ErrInvalidRange         = errors.New("start year must be less than end year")
	ErrUnparseableColumn    = errors.New("column has no numeric values")
	ErrEmptyDataset         = errors.New("no rows remain after dropping missing values")
	ErrMalformedBreakpoints = errors.New("malformed breakpoint set")
	ErrDegenerateSegment    = errors.New("zero-length segment")
	ErrInsufficientData     = errors.New("segment has fewer than 2 observations")

	ErrColumnNotFound    = errors.New("column not found")
	ErrInvalidParameter  = errors.New("invalid parameter")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrDatasetNotFound   = errors.New("dataset not found")
	ErrUnknownAlgorithm  = errors.New("unknown detection algorithm")
)

// errorTypes is checked in order; the first match names the error. Unparseable
// comes before empty so a column of text reports the more specific cause.
var errorTypes = []struct {
	err  error
	name string
}{
	{ErrInvalidRange, "invalid_range"},
	{ErrUnparseableColumn, "unparseable_column"},
	{ErrEmptyDataset, "empty_dataset"},
	{ErrMalformedBreakpoints, "malformed_breakpoints"},
	{ErrDegenerateSegment, "degenerate_segment"},
	{ErrInsufficientData, "insufficient_data"},
	{ErrColumnNotFound, "column_not_found"},
	{ErrInvalidParameter, "invalid_parameter"},
	{ErrUnsupportedFormat, "unsupported_format"},
	{ErrDatasetNotFound, "dataset_not_found"},
	{ErrUnknownAlgorithm, "unknown_algorithm"},
}

// ErrorType returns a stable snake_case name for err, suitable for API
// responses and metric labels.
func ErrorType(err error) string {
	if err == nil {
		return ""
	}
	for _, et := range errorTypes {
		if errors.Is(err, et.err) {
			return et.name
		}
	}
	return "internal"
}

// IsInputError reports whether err was caused by user input rather than by
// the analysis itself.
func IsInputError(err error) bool {
	for _, target := range []error{
		ErrInvalidRange, ErrUnparseableColumn, ErrEmptyDataset, ErrColumnNotFound,
		ErrInvalidParameter, ErrUnsupportedFormat, ErrUnknownAlgorithm,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
