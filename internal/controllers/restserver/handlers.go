package restserver

import (
	"context"
	"errors"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/chrissnell/structbreak/internal/analysis"
	"github.com/chrissnell/structbreak/internal/changepoint"
	"github.com/chrissnell/structbreak/internal/constants"
	"github.com/chrissnell/structbreak/internal/dataset"
	"github.com/chrissnell/structbreak/internal/telemetry"
	"github.com/chrissnell/structbreak/internal/types"
	"github.com/chrissnell/structbreak/pkg/responseformat"
)

// statusClientClosedRequest is reported when the client went away mid-analysis
const statusClientClosedRequest = 499

// multipartMemory is the part of a multipart body held in memory; the rest
// spills to temporary files
const multipartMemory = 8 << 20

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(ctrl.config.Server.EnableCORS),
	}
}

// Health handles liveness checks
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, http.StatusOK, HealthResponse{
		Status:   "ok",
		Version:  constants.Version,
		Datasets: h.controller.store.Len(),
	})
}

// Defaults returns the values the web form starts with
func (h *Handlers) Defaults(w http.ResponseWriter, req *http.Request) {
	h.respond(w, req, http.StatusOK, h.formDefaults())
}

func (h *Handlers) formDefaults() FormDefaults {
	a := h.controller.config.Analysis
	algorithms := make([]string, len(changepoint.Algorithms))
	for i, alg := range changepoint.Algorithms {
		algorithms[i] = string(alg)
	}
	return FormDefaults{
		StartYear:  a.DefaultStartYear,
		EndYear:    a.DefaultEndYear,
		Breaks:     a.DefaultBreaks,
		MinYear:    constants.MinYear,
		MaxYear:    constants.MaxYear,
		MinBreaks:  constants.MinBreaks,
		MaxBreaks:  constants.MaxBreaks,
		Algorithm:  a.Algorithm,
		Algorithms: algorithms,
		Formats:    dataset.Formats,
		Version:    constants.Version,
	}
}

// UploadDataset parses an uploaded file and stores it
func (h *Handlers) UploadDataset(w http.ResponseWriter, req *http.Request) {
	tbl, err := h.readUpload(w, req)
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	entry := h.controller.store.Put(tbl)
	telemetry.DatasetsStored.Set(float64(h.controller.store.Len()))
	h.controller.logger.Infof("stored dataset %s (%s): %d rows, %d columns",
		entry.ID, entry.Name, tbl.NumRows(), len(tbl.Columns()))

	h.respond(w, req, http.StatusCreated, newDatasetResponse(entry, h.controller.config.Datasets.PreviewRows))
}

// GetDataset describes a stored upload
func (h *Handlers) GetDataset(w http.ResponseWriter, req *http.Request) {
	entry, err := h.controller.store.Get(mux.Vars(req)["id"])
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	h.respond(w, req, http.StatusOK, newDatasetResponse(entry, h.controller.config.Datasets.PreviewRows))
}

// DeleteDataset discards a stored upload
func (h *Handlers) DeleteDataset(w http.ResponseWriter, req *http.Request) {
	if err := h.controller.store.Delete(mux.Vars(req)["id"]); err != nil {
		h.sendError(w, req, err)
		return
	}
	telemetry.DatasetsStored.Set(float64(h.controller.store.Len()))
	w.WriteHeader(http.StatusNoContent)
}

// AnalyzeDataset runs an analysis against a stored upload
func (h *Handlers) AnalyzeDataset(w http.ResponseWriter, req *http.Request) {
	entry, err := h.controller.store.Get(mux.Vars(req)["id"])
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	var body AnalyzeRequest
	if err := responseformat.Decode(req, &body); err != nil {
		h.sendError(w, req, errors.Join(types.ErrInvalidParameter, err))
		return
	}

	report, err := h.controller.analyzer.Run(req.Context(), entry.Table, h.toRequest(body))
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	h.respond(w, req, http.StatusOK, report)
}

// AnalyzeUpload parses a file and analyses it in one call. The upload is
// not stored.
func (h *Handlers) AnalyzeUpload(w http.ResponseWriter, req *http.Request) {
	tbl, err := h.readUpload(w, req)
	if err != nil {
		h.sendError(w, req, err)
		return
	}

	body := AnalyzeRequest{
		Column:    req.FormValue("column"),
		Algorithm: req.FormValue("algorithm"),
	}
	for _, field := range []struct {
		name string
		dst  *int
	}{
		{"start_year", &body.StartYear},
		{"end_year", &body.EndYear},
		{"breaks", &body.Breaks},
	} {
		raw := strings.TrimSpace(req.FormValue(field.name))
		if raw == "" {
			continue
		}
		v, err := strconv.Atoi(raw)
		if err != nil {
			h.sendError(w, req, errors.Join(types.ErrInvalidParameter, errors.New(field.name+" must be an integer")))
			return
		}
		*field.dst = v
	}

	report, err := h.controller.analyzer.Run(req.Context(), tbl, h.toRequest(body))
	if err != nil {
		h.sendError(w, req, err)
		return
	}
	h.respond(w, req, http.StatusOK, report)
}

// ServeIndex renders the single-page front-end
func (h *Handlers) ServeIndex(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := h.controller.frontend.index.Execute(w, h.formDefaults()); err != nil {
		h.controller.logger.Errorf("error rendering index: %v", err)
	}
}

// readUpload parses the multipart "file" field into a Table
func (h *Handlers) readUpload(w http.ResponseWriter, req *http.Request) (*dataset.Table, error) {
	req.Body = http.MaxBytesReader(w, req.Body, h.controller.config.Server.MaxUploadBytes)
	if err := req.ParseMultipartForm(multipartMemory); err != nil {
		return nil, uploadError(err)
	}

	file, header, err := req.FormFile("file")
	if err != nil {
		return nil, errors.Join(types.ErrInvalidParameter, errors.New("multipart field \"file\" is required"))
	}
	defer file.Close()

	format := strings.ToLower(filepath.Ext(header.Filename))
	tbl, err := dataset.Read(header.Filename, file, dataset.ReadOptions{Sheet: req.FormValue("sheet")})
	if err != nil {
		telemetry.UploadsTotal.WithLabelValues(format, types.ErrorType(err)).Inc()
		return nil, err
	}
	telemetry.UploadsTotal.WithLabelValues(format, "ok").Inc()
	return tbl, nil
}

func uploadError(err error) error {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return errors.Join(types.ErrInvalidParameter, err)
}

// toRequest fills omitted fields from configuration
func (h *Handlers) toRequest(body AnalyzeRequest) analysis.Request {
	a := h.controller.config.Analysis
	req := analysis.Request{
		Column:    body.Column,
		StartYear: body.StartYear,
		EndYear:   body.EndYear,
		Breaks:    body.Breaks,
		Algorithm: body.Algorithm,
	}
	if req.StartYear == 0 {
		req.StartYear = a.DefaultStartYear
	}
	if req.EndYear == 0 {
		req.EndYear = a.DefaultEndYear
	}
	if req.Breaks == 0 {
		req.Breaks = a.DefaultBreaks
	}
	return req
}

func (h *Handlers) respond(w http.ResponseWriter, req *http.Request, status int, data any) {
	if err := h.formatter.WriteResponse(w, req, status, data); err != nil {
		h.controller.logger.Errorf("error encoding response: %v", err)
	}
}

// sendError maps err to a status code and writes an ErrorResponse
func (h *Handlers) sendError(w http.ResponseWriter, req *http.Request, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.controller.logger.Errorf("%s %s: %v", req.Method, req.URL.Path, err)
	}

	h.respond(w, req, status, ErrorResponse{
		Error:     err.Error(),
		Type:      types.ErrorType(err),
		Status:    status,
		Timestamp: time.Now().Unix(),
	})
}

func statusFor(err error) int {
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, types.ErrDatasetNotFound):
		return http.StatusNotFound
	case types.IsInputError(err):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrMalformedBreakpoints),
		errors.Is(err, types.ErrDegenerateSegment),
		errors.Is(err, types.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, context.Canceled):
		return statusClientClosedRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}
