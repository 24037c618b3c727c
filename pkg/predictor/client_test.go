package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestClient(t *testing.T, cfg Config, opts ...Option) *Client {
	t.Helper()
	c, err := NewClient(zap.NewNop(), cfg, opts...)
	require.NoError(t, err)
	return c
}

func sampleRequest() models.PredictionRequest {
	return models.PredictionRequest{
		Age:           34,
		Education:     models.EducationMasters,
		JobTitle:      "Data Scientist",
		HoursPerWeek:  45,
		Gender:        models.GenderFemale,
		MaritalStatus: models.MaritalMarried,
	}
}

func TestPredict_Success(t *testing.T) {
	var gotBody map[string]interface{}
	var gotHeaders http.Header
	var gotPath, gotMethod string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath, gotMethod, gotHeaders = r.URL.Path, r.Method, r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		_, _ = w.Write([]byte(`{"predicted_salary_usd": 95000.5}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	resp, err := c.Predict(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, 95000.5, resp.PredictedSalaryUSD)
	assert.Equal(t, http.MethodPost, gotMethod)
	assert.Equal(t, "/predict", gotPath)
	assert.Equal(t, "application/json", gotHeaders.Get("Content-Type"))
	assert.Empty(t, gotHeaders.Get(HeaderAPIKey), "no api key configured, header must be absent")
	_, present := gotHeaders[http.CanonicalHeaderKey(HeaderAPIKey)]
	assert.False(t, present)

	// integers stay integers, enumerated strings are sent verbatim
	assert.Equal(t, float64(34), gotBody["age"])
	assert.Equal(t, float64(45), gotBody["hours_per_week"])
	assert.Equal(t, "Master’s", gotBody["education"])
	assert.Equal(t, "Data Scientist", gotBody["job_title"])
	assert.Equal(t, "Female", gotBody["gender"])
	assert.Equal(t, "Married", gotBody["marital_status"])
	assert.Len(t, gotBody, 6)
}

func TestPredict_RequestRoundTripsThroughJSON(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var got models.PredictionRequest
		dec := json.NewDecoder(r.Body)
		dec.DisallowUnknownFields()
		if err := dec.Decode(&got); err != nil || got != sampleRequest() {
			w.WriteHeader(http.StatusUnprocessableEntity)
			return
		}
		_, _ = w.Write([]byte(`{"predicted_salary_usd": 1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Predict(context.Background(), sampleRequest())
	assert.NoError(t, err)
}

func TestPredict_SendsAPIKeyWhenConfigured(t *testing.T) {
	var key string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key = r.Header.Get("x-api-key")
		_, _ = w.Write([]byte(`{"predicted_salary_usd": 1}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL, APIKey: "secret"})
	_, err := c.Predict(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "secret", key)
}

func TestPredict_UsesPredictURLOverride(t *testing.T) {
	var path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path = r.URL.Path
		_, _ = w.Write([]byte(`{"predicted_salary_usd": 72000}`))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: "http://unused.invalid", PredictURL: srv.URL + "/v2/salary"})
	resp, err := c.Predict(context.Background(), sampleRequest())

	require.NoError(t, err)
	assert.Equal(t, "/v2/salary", path)
	assert.Equal(t, 72000.0, resp.PredictedSalaryUSD)
}

func TestPredict_MissingSalaryIsMalformedServerError(t *testing.T) {
	for name, body := range map[string]string{
		"missing":     `{"salary": 95000}`,
		"null":        `{"predicted_salary_usd": null}`,
		"non-numeric": `{"predicted_salary_usd": "lots"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(body))
			}))
			defer srv.Close()

			c := newTestClient(t, Config{BaseURL: srv.URL})
			_, err := c.Predict(context.Background(), sampleRequest())

			var se *ServerError
			require.True(t, errors.As(err, &se), "want *ServerError, got %v", err)
			assert.True(t, se.Malformed())
			assert.Equal(t, http.StatusOK, se.StatusCode)
			assert.Equal(t, body, se.Body)
		})
	}
}

func TestPredict_Non200IsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, "internal error")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Predict(context.Background(), sampleRequest())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 500, se.StatusCode)
	assert.Equal(t, "internal error", se.Body)
	assert.False(t, se.Malformed())
	assert.False(t, IsTransportError(err))
}

func TestPredict_InvalidJSONIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, "<html>gateway</html>")
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Predict(context.Background(), sampleRequest())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "decode", te.Op)
}

func TestPredict_ConnectionRefusedIsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	addr := srv.URL
	srv.Close()

	c := newTestClient(t, Config{BaseURL: addr, Timeout: time.Second})
	_, err := c.Predict(context.Background(), sampleRequest())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.NotEmpty(t, te.Message())
	assert.False(t, IsServerError(err))
}

func TestPredict_UnresponsiveBackendTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, Config{BaseURL: srv.URL, Timeout: 150 * time.Millisecond})

	start := time.Now()
	_, err := c.Predict(context.Background(), sampleRequest())
	elapsed := time.Since(start)

	var te *TransportError
	require.True(t, errors.As(err, &te))
	var ne net.Error
	require.True(t, errors.As(err, &ne))
	assert.True(t, ne.Timeout())
	assert.Less(t, elapsed, 3*time.Second)
}

func TestPredict_CallerCancellation(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-release:
		}
	}))
	defer srv.Close()
	defer close(release)

	c := newTestClient(t, Config{BaseURL: srv.URL, Timeout: 5 * time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := c.Predict(ctx, sampleRequest())
	assert.True(t, IsTransportError(err))
}

func TestAnalyze_Success(t *testing.T) {
	var gotMethod, gotPath, gotCT string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod, gotPath, gotCT = r.Method, r.URL.Path, r.Header.Get("Content-Type")
		_, _ = io.WriteString(w, `{"summary":{"record_count":12480,"average_salary":81234.5,"min_salary":21000,"max_salary":240000}}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL + "/"})
	s, err := c.Analyze(context.Background())

	require.NoError(t, err)
	assert.Equal(t, http.MethodGet, gotMethod)
	assert.Equal(t, "/analyze", gotPath)
	assert.Equal(t, "application/json", gotCT)
	assert.Equal(t, models.AnalysisSummary{RecordCount: 12480, AverageSalary: 81234.5, MinSalary: 21000, MaxSalary: 240000}, s)
}

func TestAnalyze_MissingSummaryIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"records": 3}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Malformed())
}

func TestAnalyze_Non200(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusServiceUnavailable, se.StatusCode)
}

func TestExplain_PreservesOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/explain", r.URL.Path)
		_, _ = io.WriteString(w, `{"top_features":[{"feature":"age","importance":0.41},{"feature":"hours_per_week","importance":0.25},{"feature":"age","importance":0.9}]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	features, err := c.Explain(context.Background())

	require.NoError(t, err)
	assert.Equal(t, []models.FeatureImportance{
		{Feature: "age", Importance: 0.41},
		{Feature: "hours_per_week", Importance: 0.25},
		{Feature: "age", Importance: 0.9},
	}, features)
}

func TestExplain_MissingTopFeaturesIsMalformed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Explain(context.Background())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Malformed())
}

func TestAnalyze_MissingSummaryFieldIsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"empty summary":  `{"summary":{}}`,
		"missing max":    `{"summary":{"record_count":3,"average_salary":2,"min_salary":1}}`,
		"null avg":       `{"summary":{"record_count":3,"average_salary":null,"min_salary":1,"max_salary":3}}`,
		"summary string": `{"summary":"n/a"}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			c := newTestClient(t, Config{BaseURL: srv.URL})
			s, err := c.Analyze(context.Background())

			var se *ServerError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.True(t, se.Malformed())
			assert.Equal(t, http.StatusOK, se.StatusCode)
			assert.Zero(t, s)
		})
	}
}

func TestExplain_MissingImportanceIsMalformed(t *testing.T) {
	for name, body := range map[string]string{
		"empty entry":        `{"top_features":[{"feature":"age","importance":0.4},{}]}`,
		"missing importance": `{"top_features":[{"feature":"age"}]}`,
		"missing feature":    `{"top_features":[{"importance":0.4}]}`,
		"null importance":    `{"top_features":[{"feature":"age","importance":null}]}`,
	} {
		t.Run(name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = io.WriteString(w, body)
			}))
			defer srv.Close()

			c := newTestClient(t, Config{BaseURL: srv.URL})
			features, err := c.Explain(context.Background())

			var se *ServerError
			require.True(t, errors.As(err, &se), "got %v", err)
			assert.True(t, se.Malformed())
			assert.Nil(t, features)
		})
	}
}

func TestExplain_EmptyListIsValid(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"top_features":[]}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	features, err := c.Explain(context.Background())

	require.NoError(t, err)
	assert.Empty(t, features)
}

func TestNon200_OversizedBodyIsMarkedTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = io.WriteString(w, strings.Repeat("x", maxResponseBytes+10))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.True(t, se.Truncated)
	assert.Len(t, se.Body, maxResponseBytes)
	assert.True(t, strings.HasSuffix(se.BodyText(), TruncatedMarker))
}

func TestNon200_BodyAtLimitIsNotTruncated(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = io.WriteString(w, strings.Repeat("x", maxResponseBytes))
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background())

	var se *ServerError
	require.True(t, errors.As(err, &se))
	assert.False(t, se.Truncated)
	assert.Equal(t, se.Body, se.BodyText())
}

func TestOversized200IsTransportError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = io.WriteString(w, `{"summary":"`+strings.Repeat("x", maxResponseBytes)+`"}`)
	}))
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	_, err := c.Analyze(context.Background())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.ErrorIs(t, err, ErrResponseTooLarge)
}

type denyThrottler struct{ calls int }

func (d *denyThrottler) Wait(context.Context) error {
	d.calls++
	return errors.New("rate limit exceeded")
}

func TestThrottledCallNeverReachesBackend(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer srv.Close()

	th := &denyThrottler{}
	c := newTestClient(t, Config{BaseURL: srv.URL}, WithThrottler(th))
	_, err := c.Explain(context.Background())

	var te *TransportError
	require.True(t, errors.As(err, &te))
	assert.Equal(t, "throttle", te.Op)
	assert.Equal(t, 1, th.calls)
	assert.Zero(t, hits)
}

func TestNewClient_RejectsBadURLs(t *testing.T) {
	for _, raw := range []string{"", "ftp://host", "not a url", "http://"} {
		_, err := NewClient(zap.NewNop(), Config{BaseURL: raw})
		assert.Error(t, err, raw)
	}
	_, err := NewClient(zap.NewNop(), Config{BaseURL: "http://ok.local", PredictURL: "::bad"})
	assert.Error(t, err)
}

func TestNewClient_DefaultTimeout(t *testing.T) {
	c := newTestClient(t, Config{BaseURL: "http://ok.local/"})
	assert.Equal(t, DefaultTimeout, c.cfg.Timeout)
	assert.Equal(t, "http://ok.local", c.BaseURL())
	assert.Equal(t, DefaultTimeout, c.httpClient.Timeout)
}

func TestPing_AnyStatusIsReachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	c := newTestClient(t, Config{BaseURL: srv.URL})
	assert.NoError(t, c.Ping(context.Background()))
}
