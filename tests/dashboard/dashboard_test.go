package dashboard_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	testutils "github.com/nimeshabuddhika/smartpay-dashboard/tests/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fakeBackend(t *testing.T, calls *int32) http.Handler {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/predict", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		var body map[string]interface{}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		if body["education"] != "Master’s" {
			http.Error(w, "unknown education", http.StatusUnprocessableEntity)
			return
		}
		_, _ = io.WriteString(w, `{"predicted_salary_usd": 95000.5}`)
	})
	mux.HandleFunc("/analyze", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		_, _ = io.WriteString(w, `{"summary":{"record_count":12480,"average_salary":81234.5,"min_salary":21000,"max_salary":240000}}`)
	})
	mux.HandleFunc("/explain", func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(calls, 1)
		_, _ = io.WriteString(w, `{"top_features":[{"feature":"job_title","importance":0.52},{"feature":"age","importance":0.61}]}`)
	})
	return mux
}

func predictPayload(education string) map[string]interface{} {
	return map[string]interface{}{
		"age":            34,
		"education":      education,
		"job_title":      "Data Scientist",
		"hours_per_week": 45,
		"gender":         "Female",
		"marital_status": "Married",
	}
}

func TestPredict_EndToEnd(t *testing.T) {
	var calls int32
	backendURL := testutils.StartFakeBackend(t, fakeBackend(t, &calls))
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	resp, err := testutils.PostRequest(t, baseURL+"/api/v1/predict", predictPayload("Master’s"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotEmpty(t, testutils.GetTraceId(resp))

	out, err := testutils.DecodeSuccess(resp.Body)
	require.NoError(t, err)
	prediction, ok := out.Data["prediction"].(map[string]interface{})
	require.True(t, ok)
	assert.Equal(t, 95000.5, prediction["predicted_salary_usd"])
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestPredict_BackendRejection(t *testing.T) {
	var calls int32
	backendURL := testutils.StartFakeBackend(t, fakeBackend(t, &calls))
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	// passes local validation, rejected by the backend
	resp, err := testutils.PostRequest(t, baseURL+"/api/v1/predict", predictPayload("PhD"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	out, err := testutils.DecodeError(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "BACKEND_ERROR", out.Code)
	assert.Contains(t, out.Message, "API Error: 422")
}

func TestPredict_InvalidInputStaysLocal(t *testing.T) {
	var calls int32
	backendURL := testutils.StartFakeBackend(t, fakeBackend(t, &calls))
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	payload := predictPayload("Master’s")
	payload["age"] = 12
	resp, err := testutils.PostRequest(t, baseURL+"/api/v1/predict", payload)
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	out, err := testutils.DecodeError(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "APP_INVALID_INPUT", out.Code)
	assert.Zero(t, atomic.LoadInt32(&calls))
}

func TestPredictionPage_FormSubmit(t *testing.T) {
	var calls int32
	backendURL := testutils.StartFakeBackend(t, fakeBackend(t, &calls))
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	form := url.Values{
		"age":            {"34"},
		"education":      {"Master’s"},
		"job_title":      {"Data Scientist"},
		"hours_per_week": {"45"},
		"gender":         {"Female"},
		"marital_status": {"Married"},
	}
	resp, err := http.PostForm(baseURL+"/prediction", form)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, testutils.ReadBody(t, resp), "Predicted Salary: $95,000.50")
}

func TestAnalysisAndInsightsPages(t *testing.T) {
	var calls int32
	backendURL := testutils.StartFakeBackend(t, fakeBackend(t, &calls))
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	resp, err := testutils.GetRequest(t, baseURL+"/analysis")
	require.NoError(t, err)
	body := testutils.ReadBody(t, resp)
	assert.Contains(t, body, "12,480")
	assert.Contains(t, body, "$240,000.00")

	resp, err = testutils.GetRequest(t, baseURL+"/insights")
	require.NoError(t, err)
	body = testutils.ReadBody(t, resp)
	assert.Less(t, strings.Index(body, "job_title"), strings.Index(body, "<td>age</td>"))
}

func TestBackendNotFound_MapsToBackendError(t *testing.T) {
	backendURL := testutils.StartFakeBackend(t, http.NotFoundHandler())
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	resp, err := testutils.GetRequest(t, baseURL+"/api/v1/analyze")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadGateway, resp.StatusCode)

	out, err := testutils.DecodeError(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "Failed to load analysis data.", out.Message)
}

func TestSlowBackend_TimesOut(t *testing.T) {
	release := make(chan struct{})
	backendURL := testutils.StartFakeBackend(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer close(release)
	baseURL, stop := testutils.StartDashboard(t, backendURL, map[string]string{"REQUEST_TIMEOUT": "300ms"})
	defer stop()

	start := time.Now()
	resp, err := testutils.GetRequest(t, baseURL+"/api/v1/explain")
	require.NoError(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusGatewayTimeout, resp.StatusCode)

	out, err := testutils.DecodeError(resp.Body)
	require.NoError(t, err)
	assert.Equal(t, "BACKEND_UNREACHABLE", out.Code)
	assert.Contains(t, out.Message, "Unable to fetch explainability")
}

func TestSwaggerDoc(t *testing.T) {
	backendURL := testutils.StartFakeBackend(t, http.NotFoundHandler())
	baseURL, stop := testutils.StartDashboard(t, backendURL, nil)
	defer stop()

	resp, err := testutils.GetRequest(t, baseURL+"/swagger/doc.json")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	body := testutils.ReadBody(t, resp)
	assert.Contains(t, body, `"/predict"`)
	assert.Contains(t, body, `"basePath": "/api/v1"`)
}
