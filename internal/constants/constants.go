// Package constants defines application-wide constants and version information.
package constants

import "runtime"

// Version holds the application version information
const Version = "1.2-" + runtime.GOOS + "/" + runtime.GOARCH

// Input bounds accepted by the analysis front-end.
const (
	MinYear   = 1900
	MaxYear   = 2100
	MinBreaks = 1
	MaxBreaks = 10
)

// Defaults shown by the web form and the CLI.
const (
	DefaultStartYear = 1995
	DefaultEndYear   = 2022
	DefaultBreaks    = 4
)

// Interpretation is the explanatory paragraph attached to every report.
const Interpretation = "The structural break analysis reveals significant changes in the trend of the selected column. " +
	"Each segment represents a stable period, and the identified breakpoints indicate points of abrupt change."
