package testutils

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/app"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// StartFakeBackend serves handler as the prediction backend and returns its base URL.
func StartFakeBackend(t *testing.T, handler http.Handler) string {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv.URL
}

// StartDashboard starts the dashboard in-process using NewApp against backendURL.
// Extra env entries (without the APP_ prefix) override the test defaults.
// It returns the base URL and a cleanup function that should be deferred in tests.
func StartDashboard(t *testing.T, backendURL string, env map[string]string) (baseURL string, cleanup func()) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	viper.Reset()

	port, err := getFreePort()
	if err != nil {
		t.Fatalf("failed to get free port: %v", err)
	}

	vars := map[string]string{
		"PORT":                       fmt.Sprintf("%d", port),
		"BACKEND_URL":                backendURL,
		"PREDICT_URL":                "",
		"API_KEY":                    "",
		"REQUEST_TIMEOUT":            "2s",
		"BACKEND_RATE_LIMIT_PER_SEC": "0",
		"REDIS_ADDR":                 "",
		"WARMUP_ENABLED":             "false",
	}
	for k, v := range env {
		vars[k] = v
	}
	for k, v := range vars {
		t.Setenv("APP_"+k, v)
	}

	ctx, cancel := context.WithCancel(context.Background())
	srv, appCleanup, err := app.NewApp(ctx, zap.NewNop())
	if err != nil {
		cancel()
		t.Fatalf("failed to initialize dashboard: %v", err)
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("dashboard server error: %v", err)
		}
	}()

	baseURL = fmt.Sprintf("http://127.0.0.1:%d", port)

	// Wait for readiness with timeout
	readyCtx, readyCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer readyCancel()
	if err := waitForReady(readyCtx, baseURL+"/health"); err != nil {
		cancel()
		appCleanup()
		t.Fatalf("dashboard failed to become ready: %v", err)
	}

	cleanup = func() {
		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer shutdownCancel()
		_ = srv.Shutdown(shutdownCtx)
		cancel()
		appCleanup()
		viper.Reset()
	}
	return baseURL, cleanup
}

func getFreePort() (int, error) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return 0, err
	}
	defer l.Close()
	return l.Addr().(*net.TCPAddr).Port, nil
}

func waitForReady(ctx context.Context, url string) error {
	client := &http.Client{Timeout: 500 * time.Millisecond}
	for {
		if ctx.Err() != nil {
			return fmt.Errorf("timeout waiting for %s", url)
		}
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(100 * time.Millisecond)
	}
}
