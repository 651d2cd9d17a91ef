package restserver

import (
	"time"

	"github.com/chrissnell/structbreak/internal/dataset"
	"github.com/chrissnell/structbreak/internal/datastore"
)

// DatasetResponse describes a stored upload
type DatasetResponse struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Columns    []string        `json:"columns"`
	Rows       int             `json:"rows"`
	Preview    dataset.Preview `json:"preview"`
	UploadedAt time.Time       `json:"uploaded_at"`
	ExpiresAt  time.Time       `json:"expires_at"`
}

func newDatasetResponse(e *datastore.Entry, previewRows int) DatasetResponse {
	return DatasetResponse{
		ID:         e.ID,
		Name:       e.Name,
		Columns:    e.Table.Columns(),
		Rows:       e.Table.NumRows(),
		Preview:    e.Table.Preview(previewRows),
		UploadedAt: e.UploadedAt,
		ExpiresAt:  e.ExpiresAt,
	}
}

// AnalyzeRequest is the JSON body of an analyze call. Omitted numeric fields
// take the configured defaults.
type AnalyzeRequest struct {
	Column    string `json:"column"`
	StartYear int    `json:"start_year,omitempty"`
	EndYear   int    `json:"end_year,omitempty"`
	Breaks    int    `json:"breaks,omitempty"`
	Algorithm string `json:"algorithm,omitempty"`
}

// FormDefaults seeds the web form
type FormDefaults struct {
	StartYear  int      `json:"start_year"`
	EndYear    int      `json:"end_year"`
	Breaks     int      `json:"breaks"`
	MinYear    int      `json:"min_year"`
	MaxYear    int      `json:"max_year"`
	MinBreaks  int      `json:"min_breaks"`
	MaxBreaks  int      `json:"max_breaks"`
	Algorithm  string   `json:"algorithm"`
	Algorithms []string `json:"algorithms"`
	Formats    []string `json:"formats"`
	Version    string   `json:"version"`
}

// ErrorResponse is returned with every non-2xx status
type ErrorResponse struct {
	Error     string `json:"error"`
	Type      string `json:"type"`
	Status    int    `json:"status"`
	Timestamp int64  `json:"timestamp"`
}

// HealthResponse reports liveness
type HealthResponse struct {
	Status   string `json:"status"`
	Version  string `json:"version"`
	Datasets int    `json:"datasets"`
}
