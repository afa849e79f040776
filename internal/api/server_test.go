// Tearsheet Server Unit Tests
package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/guitrading/tearsheet/pkg/metrics"
	"github.com/guitrading/tearsheet/pkg/series"
	"github.com/guitrading/tearsheet/pkg/tearsheet"
)

func testSheet() *tearsheet.Tearsheet {
	at := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return &tearsheet.Tearsheet{
		StartDate: "2024-01-01T00:00:00",
		EndDate:   "2024-06-30T23:00:00",
		Strategy:  &metrics.Report{TotalReturn: 0.12, SharpeRatio: 1.5, WinRate: 0.6},
		Equity: series.ValueSeries{
			{Time: at, Value: 100000},
			{Time: at.Add(time.Hour), Value: 101000},
		},
		Returns: series.ReturnSeries{{Time: at.Add(time.Hour), Value: 0.01}},
	}
}

func newTestServer(t *testing.T) *Server {
	t.Helper()
	s, err := NewServer(Config{Host: "127.0.0.1", Port: 8080, Sheet: testSheet()})
	require.NoError(t, err)
	return s
}

func get(s *Server, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	s.router.ServeHTTP(w, req)
	return w
}

func TestNewServerRequiresSheet(t *testing.T) {
	_, err := NewServer(Config{Host: "127.0.0.1", Port: 8080})
	assert.Error(t, err)
}

func TestReportEndpoint(t *testing.T) {
	w := get(newTestServer(t), "/")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, w.Body.String(), "Strategy Tearsheet")
}

func TestHealthEndpoint(t *testing.T) {
	w := get(newTestServer(t), "/api/health")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	w := get(newTestServer(t), "/api/metrics")

	require.Equal(t, http.StatusOK, w.Code)

	var body struct {
		Strategy  *metrics.Report `json:"strategy"`
		Benchmark *metrics.Report `json:"benchmark"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.NotNil(t, body.Strategy)
	assert.InDelta(t, 0.12, body.Strategy.TotalReturn, 1e-12)
	assert.Nil(t, body.Benchmark)
}

func TestTearsheetEndpoint(t *testing.T) {
	w := get(newTestServer(t), "/api/tearsheet")

	require.Equal(t, http.StatusOK, w.Code)

	var decoded map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &decoded))
	assert.Equal(t, "2024-01-01T00:00:00", decoded["start_date"])
	assert.Len(t, decoded["equity"], 2)
}

func TestUnknownRoute(t *testing.T) {
	w := get(newTestServer(t), "/api/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}
