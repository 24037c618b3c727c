package services

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/observability"
	"go.uber.org/zap"
)

// Pinger reports whether the backend answers at all.
type Pinger interface {
	Ping(ctx context.Context) error
}

// BackendWarmer wakes a cold hosted backend at startup. It only logs the outcome;
// user-triggered calls are never retried.
type BackendWarmer struct {
	logger          *zap.Logger
	pinger          Pinger
	maxElapsed      time.Duration
	initialInterval time.Duration
}

// DefaultWarmupMaxElapsed replaces a non-positive cap, which backoff would read as "retry forever".
const DefaultWarmupMaxElapsed = time.Minute

func NewBackendWarmer(logger *zap.Logger, pinger Pinger, maxElapsed time.Duration) *BackendWarmer {
	if maxElapsed <= 0 {
		maxElapsed = DefaultWarmupMaxElapsed
	}
	return &BackendWarmer{
		logger:          logger,
		pinger:          pinger,
		maxElapsed:      maxElapsed,
		initialInterval: 500 * time.Millisecond,
	}
}

// Start runs the warm-up in the background. The returned func cancels it and waits for it to exit.
func (w *BackendWarmer) Start(ctx context.Context) func() {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = w.Run(ctx)
	}()
	return func() {
		cancel()
		<-done
	}
}

// Run pings the backend with exponential backoff until it answers, maxElapsed passes or ctx ends.
func (w *BackendWarmer) Run(ctx context.Context) error {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = w.initialInterval
	b.MaxElapsedTime = w.maxElapsed

	start := time.Now()
	operation := func() error {
		observability.WarmupAttempts.Inc()
		return w.pinger.Ping(ctx)
	}
	notify := func(err error, next time.Duration) {
		w.logger.Info("backend_warmup_retry", zap.Error(err), zap.Duration("next_attempt_in", next))
	}

	if err := backoff.RetryNotify(operation, backoff.WithContext(b, ctx), notify); err != nil {
		w.logger.Warn("backend_warmup_gave_up", zap.Error(err), zap.Duration("elapsed", time.Since(start)))
		return err
	}
	w.logger.Info("backend_warmup_completed", zap.Duration("elapsed", time.Since(start)))
	return nil
}
