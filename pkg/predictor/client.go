package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/models"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/observability"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"go.uber.org/zap"
)

const (
	DefaultTimeout = 10 * time.Second

	HeaderAPIKey = "x-api-key"

	PathPredict = "/predict"
	PathAnalyze = "/analyze"
	PathExplain = "/explain"

	CallPredict = "predict"
	CallAnalyze = "analyze"
	CallExplain = "explain"

	maxResponseBytes = 4 << 20
)

// Config is fixed at process start and shared by every call.
type Config struct {
	BaseURL    string
	PredictURL string // optional fully qualified prediction URL, overrides BaseURL+/predict
	APIKey     string // sent as x-api-key only when non-empty
	Timeout    time.Duration
}

// Predictor is the contract the dashboard and CLI depend on.
type Predictor interface {
	Predict(ctx context.Context, req models.PredictionRequest) (models.PredictionResponse, error)
	Analyze(ctx context.Context) (models.AnalysisSummary, error)
	Explain(ctx context.Context) ([]models.FeatureImportance, error)
}

// Throttler gates outbound calls. Wait blocks until a call may proceed or returns an error.
type Throttler interface {
	Wait(ctx context.Context) error
}

type Option func(*Client)

// WithHTTPClient replaces the default bounded-timeout client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithThrottler gates every call through t.
func WithThrottler(t Throttler) Option {
	return func(c *Client) { c.throttler = t }
}

// Client talks to the salary prediction backend. It is safe for concurrent use.
type Client struct {
	logger     *zap.Logger
	cfg        Config
	httpClient *http.Client
	throttler  Throttler
	predictURL string
}

// NewClient validates cfg and builds a client whose calls never outlive cfg.Timeout.
func NewClient(logger *zap.Logger, cfg Config, opts ...Option) (*Client, error) {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if err := checkURL(cfg.BaseURL); err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	predictURL := cfg.BaseURL + PathPredict
	if !utils.IsEmpty(cfg.PredictURL) {
		if err := checkURL(cfg.PredictURL); err != nil {
			return nil, fmt.Errorf("invalid predict url: %w", err)
		}
		predictURL = cfg.PredictURL
	}

	c := &Client{
		logger: logger,
		cfg:    cfg,
		httpClient: utils.NewHTTPClient(
			utils.WithClientTimeout(cfg.Timeout),
			utils.WithResponseHeaderTimeout(cfg.Timeout),
		),
		predictURL: predictURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func checkURL(raw string) error {
	if utils.IsEmpty(raw) {
		return errors.New("url is empty")
	}
	u, err := url.Parse(raw)
	if err != nil {
		return err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	if utils.IsEmpty(u.Host) {
		return errors.New("url has no host")
	}
	return nil
}

// BaseURL returns the normalised backend root.
func (c *Client) BaseURL() string { return c.cfg.BaseURL }

// Predict POSTs req to the prediction endpoint. The request is sent as given; input
// constraints are the caller's concern.
func (c *Client) Predict(ctx context.Context, req models.PredictionRequest) (models.PredictionResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return models.PredictionResponse{}, &TransportError{Op: "encode", URL: c.predictURL, Err: err}
	}

	raw, err := c.do(ctx, CallPredict, http.MethodPost, c.predictURL, body)
	if err != nil {
		return models.PredictionResponse{}, err
	}

	fields, err := decodeObject(raw, c.predictURL)
	if err != nil {
		c.record(CallPredict, err)
		return models.PredictionResponse{}, err
	}
	var salary float64
	if err = requireField(fields, "predicted_salary_usd", &salary, raw); err != nil {
		c.record(CallPredict, err)
		return models.PredictionResponse{}, err
	}

	c.record(CallPredict, nil)
	return models.PredictionResponse{PredictedSalaryUSD: salary}, nil
}

// Analyze fetches the dataset summary.
func (c *Client) Analyze(ctx context.Context) (models.AnalysisSummary, error) {
	target := c.cfg.BaseURL + PathAnalyze
	raw, err := c.do(ctx, CallAnalyze, http.MethodGet, target, nil)
	if err != nil {
		return models.AnalysisSummary{}, err
	}

	fields, err := decodeObject(raw, target)
	if err != nil {
		c.record(CallAnalyze, err)
		return models.AnalysisSummary{}, err
	}
	var summary models.AnalysisSummary
	if err = requireField(fields, "summary", &summary, raw); err == nil &&
		!hasFields(fields["summary"], "record_count", "average_salary", "min_salary", "max_salary") {
		err = malformed(raw)
	}
	if err != nil {
		c.record(CallAnalyze, err)
		return models.AnalysisSummary{}, err
	}

	c.record(CallAnalyze, nil)
	return summary, nil
}

// Explain fetches the feature importance ranking in the order the backend sent it.
func (c *Client) Explain(ctx context.Context) ([]models.FeatureImportance, error) {
	target := c.cfg.BaseURL + PathExplain
	raw, err := c.do(ctx, CallExplain, http.MethodGet, target, nil)
	if err != nil {
		return nil, err
	}

	fields, err := decodeObject(raw, target)
	if err != nil {
		c.record(CallExplain, err)
		return nil, err
	}
	var features []models.FeatureImportance
	if err = requireField(fields, "top_features", &features, raw); err == nil {
		err = requireEntries(fields["top_features"], raw, "feature", "importance")
	}
	if err != nil {
		c.record(CallExplain, err)
		return nil, err
	}

	c.record(CallExplain, nil)
	return features, nil
}

// Ping issues a GET against the backend root. Any HTTP answer counts as reachable.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cfg.BaseURL+"/", nil)
	if err != nil {
		return &TransportError{Op: "build request", URL: c.cfg.BaseURL, Err: err}
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: "ping", URL: c.cfg.BaseURL, Err: err}
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))
	_ = resp.Body.Close()
	return nil
}

// do performs one bounded request and returns the body of a 200 response.
// Non-200 answers come back as *ServerError, everything else as *TransportError.
func (c *Client) do(ctx context.Context, call, method, target string, body []byte) ([]byte, error) {
	if c.throttler != nil {
		if err := c.throttler.Wait(ctx); err != nil {
			observability.BackendRequests.WithLabelValues(call, observability.OutcomeThrottled).Inc()
			c.logger.Warn("backend_call_throttled", zap.String("call", call), zap.Error(err))
			return nil, &TransportError{Op: "throttle", URL: target, Err: err}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		err = &TransportError{Op: "build request", URL: target, Err: err}
		c.record(call, err)
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if !utils.IsEmpty(c.cfg.APIKey) {
		req.Header.Set(HeaderAPIKey, c.cfg.APIKey)
	}

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	observability.BackendLatency.WithLabelValues(call).Observe(time.Since(start).Seconds())
	if err != nil {
		err = &TransportError{Op: strings.ToLower(method), URL: target, Err: err}
		c.record(call, err)
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		err = &TransportError{Op: "read body", URL: target, Err: err}
		c.record(call, err)
		return nil, err
	}
	truncated := len(raw) > maxResponseBytes
	if truncated {
		raw = raw[:maxResponseBytes]
	}

	if resp.StatusCode != http.StatusOK {
		err = &ServerError{StatusCode: resp.StatusCode, Body: string(raw), Truncated: truncated}
		c.record(call, err)
		return nil, err
	}
	// a cut 200 body cannot be decoded
	if truncated {
		err = &TransportError{Op: "read body", URL: target, Err: ErrResponseTooLarge}
		c.record(call, err)
		return nil, err
	}

	c.logger.Debug("backend_call_completed",
		zap.String("call", call),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
	)
	return raw, nil
}

// record counts the call outcome and logs failures.
func (c *Client) record(call string, err error) {
	if err == nil {
		observability.BackendRequests.WithLabelValues(call, observability.OutcomeSuccess).Inc()
		return
	}

	var se *ServerError
	if errors.As(err, &se) {
		outcome := observability.OutcomeServerError
		if se.Malformed() {
			outcome = observability.OutcomeMalformed
		}
		observability.BackendRequests.WithLabelValues(call, outcome).Inc()
		c.logger.Warn("backend_call_failed",
			zap.String("call", call),
			zap.String("outcome", outcome),
			zap.Int("status", se.StatusCode),
			zap.String("body", se.Body),
		)
		return
	}

	observability.BackendRequests.WithLabelValues(call, observability.OutcomeTransportError).Inc()
	c.logger.Warn("backend_call_failed",
		zap.String("call", call),
		zap.String("outcome", observability.OutcomeTransportError),
		zap.Error(err),
	)
}

// decodeObject parses a JSON object body. A body that is not a JSON object
// is a read failure, not a server answer.
func decodeObject(raw []byte, target string) (map[string]json.RawMessage, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(raw, &fields); err != nil {
		return nil, &TransportError{Op: "decode", URL: target, Err: err}
	}
	return fields, nil
}

// requireField decodes fields[key] into dst. A missing, null or mistyped value
// is reported as a malformed 200 response.
func requireField(fields map[string]json.RawMessage, key string, dst interface{}, raw []byte) error {
	value, ok := fields[key]
	if !ok || string(value) == "null" {
		return malformed(raw)
	}
	if err := json.Unmarshal(value, dst); err != nil {
		return malformed(raw)
	}
	return nil
}

// requireEntries checks that every element of a JSON array carries keys.
func requireEntries(list json.RawMessage, raw []byte, keys ...string) error {
	var entries []json.RawMessage
	if err := json.Unmarshal(list, &entries); err != nil {
		return malformed(raw)
	}
	for _, e := range entries {
		if !hasFields(e, keys...) {
			return malformed(raw)
		}
	}
	return nil
}

// hasFields reports whether obj is a JSON object with a non-null value for every key.
func hasFields(obj json.RawMessage, keys ...string) bool {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(obj, &m); err != nil {
		return false
	}
	for _, k := range keys {
		if v, ok := m[k]; !ok || string(v) == "null" {
			return false
		}
	}
	return true
}

func malformed(raw []byte) *ServerError {
	return &ServerError{StatusCode: http.StatusOK, Body: string(raw), Reason: ReasonMalformedResponse}
}
