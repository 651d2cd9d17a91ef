package restserver

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"

	"github.com/chrissnell/structbreak/internal/analysis"
	"github.com/chrissnell/structbreak/internal/datastore"
	"github.com/chrissnell/structbreak/pkg/config"
)

// stepCSV has a level shift after the tenth year.
func stepCSV() string {
	var b strings.Builder
	b.WriteString("year,value,label\n")
	for i := 0; i < 20; i++ {
		v := 1.0
		if i >= 10 {
			v = 9.0
		}
		fmt.Fprintf(&b, "%d,%g,row%d\n", 2000+i, v, i)
	}
	return b.String()
}

func newTestServer(t *testing.T, mutate func(*config.ConfigData)) (*Controller, *datastore.Store) {
	t.Helper()

	cfg := config.DefaultConfig()
	cfg.Server.RateLimit = 0
	cfg.Telemetry.Metrics = false
	if mutate != nil {
		mutate(cfg)
	}

	analyzer, err := analysis.NewAnalyzer(analysis.DefaultConfig(), nil)
	require.NoError(t, err)

	store := datastore.New(time.Minute, time.Minute)
	ctrl, err := NewController(context.Background(), &sync.WaitGroup{}, cfg, analyzer, store, zap.NewNop().Sugar())
	require.NoError(t, err)
	return ctrl, store
}

func multipartBody(t *testing.T, filename, content string, fields map[string]string) (*bytes.Buffer, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		require.NoError(t, mw.WriteField(k, v))
	}
	fw, err := mw.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, mw.Close())
	return &buf, mw.FormDataContentType()
}

func serve(ctrl *Controller, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ctrl.Handler().ServeHTTP(rec, req)
	return rec
}

func upload(t *testing.T, ctrl *Controller) DatasetResponse {
	t.Helper()

	body, ct := multipartBody(t, "step.csv", stepCSV(), nil)
	req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(ctrl, req)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var ds DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &ds))
	return ds
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) ErrorResponse {
	t.Helper()
	var er ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &er))
	return er
}

func TestHealth(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)

	rec := serve(ctrl, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var h HealthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &h))
	assert.Equal(t, "ok", h.Status)
	assert.Equal(t, 0, h.Datasets)
}

func TestDefaults(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)

	rec := serve(ctrl, httptest.NewRequest(http.MethodGet, "/api/defaults", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var d FormDefaults
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &d))
	assert.Equal(t, 1995, d.StartYear)
	assert.Equal(t, 2022, d.EndYear)
	assert.Equal(t, 4, d.Breaks)
	assert.Equal(t, 1, d.MinBreaks)
	assert.Equal(t, 10, d.MaxBreaks)
	assert.Contains(t, d.Algorithms, "binseg")
}

func TestUploadAndGetDataset(t *testing.T) {
	ctrl, store := newTestServer(t, nil)

	ds := upload(t, ctrl)
	assert.NotEmpty(t, ds.ID)
	assert.Equal(t, "step.csv", ds.Name)
	assert.Equal(t, []string{"year", "value", "label"}, ds.Columns)
	assert.Equal(t, 20, ds.Rows)
	assert.Len(t, ds.Preview.Rows, 5)
	assert.Equal(t, 1, store.Len())

	rec := serve(ctrl, httptest.NewRequest(http.MethodGet, "/api/datasets/"+ds.ID, nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var got DatasetResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, ds.ID, got.ID)
}

func TestUploadErrors(t *testing.T) {
	ctrl, _ := newTestServer(t, func(c *config.ConfigData) {
		c.Server.MaxUploadBytes = 512
	})

	t.Run("unsupported format", func(t *testing.T) {
		body, ct := multipartBody(t, "data.json", "{}", nil)
		req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
		req.Header.Set("Content-Type", ct)

		rec := serve(ctrl, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "unsupported_format", decodeError(t, rec).Type)
	})

	t.Run("missing file field", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		require.NoError(t, mw.WriteField("sheet", "x"))
		require.NoError(t, mw.Close())
		req := httptest.NewRequest(http.MethodPost, "/api/datasets", &buf)
		req.Header.Set("Content-Type", mw.FormDataContentType())

		rec := serve(ctrl, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "invalid_parameter", decodeError(t, rec).Type)
	})

	t.Run("too large", func(t *testing.T) {
		body, ct := multipartBody(t, "big.csv", strings.Repeat("1\n", 2048), nil)
		req := httptest.NewRequest(http.MethodPost, "/api/datasets", body)
		req.Header.Set("Content-Type", ct)

		rec := serve(ctrl, req)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestAnalyzeDataset(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)
	ds := upload(t, ctrl)

	payload := `{"column":"value","start_year":2000,"end_year":2019,"breaks":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+ds.ID+"/analyze", strings.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")

	rec := serve(ctrl, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, []int{10, 20}, []int(report.Result.Breakpoints))
	require.Len(t, report.Result.Segments, 2)
	assert.InDelta(t, 1.0, report.Result.Segments[0].Mean, 1e-9)
	assert.InDelta(t, 9.0, report.Result.Segments[1].Mean, 1e-9)
	assert.Equal(t, []analysis.Marker{{Index: 10, Year: 2009}}, report.Markers)
	require.Len(t, report.Charts, 2)
	assert.Equal(t, analysis.BreakChartTitle, report.Charts[0].Title)
	assert.Equal(t, analysis.RegressionChartTitle, report.Charts[1].Title)
}

func TestAnalyzeDatasetDefaults(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)
	ds := upload(t, ctrl)

	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+ds.ID+"/analyze", strings.NewReader(`{"column":"value"}`))
	rec := serve(ctrl, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, 1995, report.Request.StartYear)
	assert.Equal(t, 2022, report.Request.EndYear)
	assert.Equal(t, 4, report.Request.Breaks)
	assert.Equal(t, 1995, report.Result.Series.StartYear)
}

func TestAnalyzeDatasetErrors(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)
	ds := upload(t, ctrl)

	tests := []struct {
		name     string
		path     string
		body     string
		wantCode int
		wantType string
	}{
		{"unknown dataset", "/api/datasets/nope/analyze", `{"column":"value"}`, http.StatusNotFound, "dataset_not_found"},
		{"unknown column", "/api/datasets/" + ds.ID + "/analyze", `{"column":"missing"}`, http.StatusBadRequest, "column_not_found"},
		{"text column", "/api/datasets/" + ds.ID + "/analyze", `{"column":"label"}`, http.StatusBadRequest, "unparseable_column"},
		{"inverted range", "/api/datasets/" + ds.ID + "/analyze", `{"column":"value","start_year":2010,"end_year":2000}`, http.StatusBadRequest, "invalid_range"},
		{"too many breaks", "/api/datasets/" + ds.ID + "/analyze", `{"column":"value","breaks":11}`, http.StatusBadRequest, "invalid_parameter"},
		{"unknown field", "/api/datasets/" + ds.ID + "/analyze", `{"column":"value","bogus":1}`, http.StatusBadRequest, "invalid_parameter"},
		{"bad algorithm", "/api/datasets/" + ds.ID + "/analyze", `{"column":"value","algorithm":"magic"}`, http.StatusBadRequest, "invalid_parameter"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, tt.path, strings.NewReader(tt.body))
			rec := serve(ctrl, req)
			assert.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			er := decodeError(t, rec)
			assert.Equal(t, tt.wantType, er.Type)
			assert.Equal(t, tt.wantCode, er.Status)
		})
	}
}

func TestAnalyzeUpload(t *testing.T) {
	ctrl, store := newTestServer(t, nil)

	body, ct := multipartBody(t, "step.csv", stepCSV(), map[string]string{
		"column":     "value",
		"start_year": "2000",
		"end_year":   "2019",
		"breaks":     "1",
		"algorithm":  "dynp",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(ctrl, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var report analysis.Report
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &report))
	assert.Equal(t, "dynp", report.Algorithm)
	assert.Equal(t, []int{10, 20}, []int(report.Result.Breakpoints))
	assert.Equal(t, 0, store.Len())
}

func TestAnalyzeUploadRejectsNonIntegerField(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)

	body, ct := multipartBody(t, "step.csv", stepCSV(), map[string]string{
		"column": "value",
		"breaks": "four",
	})
	req := httptest.NewRequest(http.MethodPost, "/api/analyze", body)
	req.Header.Set("Content-Type", ct)

	rec := serve(ctrl, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, decodeError(t, rec).Error, "breaks")
}

func TestAnalyzeMsgPack(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)
	ds := upload(t, ctrl)

	payload := `{"column":"value","start_year":2000,"end_year":2019,"breaks":1}`
	req := httptest.NewRequest(http.MethodPost, "/api/datasets/"+ds.ID+"/analyze?format=msgpack", strings.NewReader(payload))

	rec := serve(ctrl, req)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/x-msgpack", rec.Header().Get("Content-Type"))

	var decoded map[string]any
	require.NoError(t, msgpack.Unmarshal(rec.Body.Bytes(), &decoded))
	assert.Contains(t, decoded, "summary")
	assert.Contains(t, decoded, "charts")
}

func TestDeleteDataset(t *testing.T) {
	ctrl, store := newTestServer(t, nil)
	ds := upload(t, ctrl)

	rec := serve(ctrl, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+ds.ID, nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, store.Len())

	rec = serve(ctrl, httptest.NewRequest(http.MethodDelete, "/api/datasets/"+ds.ID, nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	ctrl, _ := newTestServer(t, func(c *config.ConfigData) {
		c.Server.RateLimit = 0.001
		c.Server.RateBurst = 1
	})

	first := serve(ctrl, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.NotEqual(t, http.StatusTooManyRequests, first.Code)

	second := serve(ctrl, httptest.NewRequest(http.MethodPost, "/api/analyze", nil))
	assert.Equal(t, http.StatusTooManyRequests, second.Code)
	assert.Equal(t, "1", second.Header().Get("Retry-After"))

	// Reads are never limited
	health := serve(ctrl, httptest.NewRequest(http.MethodGet, "/api/healthz", nil))
	assert.Equal(t, http.StatusOK, health.Code)
}

func TestServeIndex(t *testing.T) {
	ctrl, _ := newTestServer(t, nil)

	rec := serve(ctrl, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")

	page := rec.Body.String()
	assert.Contains(t, page, "Structural Break Analysis")
	assert.Contains(t, page, `value="1995"`)
	assert.Contains(t, page, `value="2022"`)
	assert.Contains(t, page, `max="10"`)

	js := serve(ctrl, httptest.NewRequest(http.MethodGet, "/js/structbreak.js", nil))
	assert.Equal(t, http.StatusOK, js.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("x: %w", context.Canceled), statusClientClosedRequest},
		{context.DeadlineExceeded, http.StatusGatewayTimeout},
		{&http.MaxBytesError{Limit: 1}, http.StatusRequestEntityTooLarge},
		{fmt.Errorf("boom"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
