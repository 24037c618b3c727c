package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
)

type ApiResponse struct {
	TraceID string                 `json:"traceId"`
	Data    map[string]interface{} `json:"data"`
}

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details"`
}

func PostRequest(t *testing.T, url string, payload interface{}) (*http.Response, error) {
	b, _ := json.Marshal(payload)
	t.Logf("Request POST %s", url)
	resp, err := http.Post(url, "application/json", bytes.NewReader(b))
	return logged(t, http.MethodPost, url, resp, err)
}

func GetRequest(t *testing.T, url string) (*http.Response, error) {
	t.Logf("Request GET %s", url)
	resp, err := http.Get(url)
	return logged(t, http.MethodGet, url, resp, err)
}

func logged(t *testing.T, method, url string, resp *http.Response, err error) (*http.Response, error) {
	if resp != nil {
		t.Logf("Response %s %s: Status %d", method, url, resp.StatusCode)
		t.Cleanup(func() {
			_ = resp.Body.Close()
		})
	}
	return resp, err
}

func GetTraceId(resp *http.Response) string {
	return resp.Header.Get(pkg.HeaderTraceId)
}

func ReadBody(t *testing.T, resp *http.Response) string {
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}

func DecodeSuccess(r io.Reader) (ApiResponse, error) {
	var out ApiResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}

func DecodeError(r io.Reader) (ErrorResponse, error) {
	var out ErrorResponse
	if err := json.NewDecoder(r).Decode(&out); err != nil {
		return out, err
	}
	return out, nil
}
