package testutils

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// StartRedis spins up a Redis container for the shared throttle and returns host:port.
// The test is skipped when no container runtime is available.
func StartRedis(t *testing.T) (addr string, terminate func()) {
	t.Helper()
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(60 * time.Second),
	}
	rc, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("failed to start redis test container: %v", err)
	}

	terminate = func() {
		ctx, c := context.WithTimeout(context.Background(), 30*time.Second)
		defer c()
		_ = rc.Terminate(ctx)
	}

	host, err := rc.Host(ctx)
	if err != nil {
		terminate()
		t.Fatalf("failed to get redis host: %v", err)
	}
	mapped, err := rc.MappedPort(ctx, "6379/tcp")
	if err != nil {
		terminate()
		t.Fatalf("failed to get redis mapped port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port()), terminate
}
