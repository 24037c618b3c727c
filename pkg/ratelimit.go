package pkg

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Errors
var ErrRateLimitExceeded = errors.New("rate limit exceeded")

// DistributedLimiter combines local rate.Limiter with an optional Redis counter so
// that every dashboard replica shares one budget towards the backend.
type DistributedLimiter struct {
	localLimiter *rate.Limiter
	redisClient  *redis.Client // nil => local only
	key          string        // e.g: "smartpay:backend_rate"
	globalRate   int
	maxWait      time.Duration // fail fast when a token is further away than this
	logger       *zap.Logger
}

// NewDistributedLimiter creates a limiter; if globalRate=0, it's unlimited.
func NewDistributedLimiter(redisClient *redis.Client, key string, globalRate, burst int, maxWait time.Duration, logger *zap.Logger) *DistributedLimiter {
	var local *rate.Limiter
	if globalRate > 0 {
		if burst <= 0 {
			burst = globalRate
		}
		local = rate.NewLimiter(rate.Limit(globalRate), burst)
	}
	return &DistributedLimiter{
		localLimiter: local,
		redisClient:  redisClient,
		key:          key,
		globalRate:   globalRate,
		maxWait:      maxWait,
		logger:       logger,
	}
}

// Wait blocks until a token is available, or returns ErrRateLimitExceeded when the
// wait would exceed maxWait or the shared window is already spent.
func (d *DistributedLimiter) Wait(ctx context.Context) error {
	if d.localLimiter == nil {
		return nil // Unlimited
	}

	// Local check first (fast path)
	r := d.localLimiter.Reserve()
	if !r.OK() {
		return ErrRateLimitExceeded
	}
	if delay := r.Delay(); delay > 0 {
		if delay > d.maxWait {
			r.Cancel()
			return ErrRateLimitExceeded
		}
		timer := time.NewTimer(delay)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			r.Cancel()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if d.redisClient == nil {
		return nil
	}

	// Distributed check via Redis atomic increment on a one-second window
	windowKey := d.key + ":" + strconv.FormatInt(time.Now().Unix(), 10)
	pipe := d.redisClient.Pipeline()
	incr := pipe.Incr(ctx, windowKey)
	pipe.Expire(ctx, windowKey, 2*time.Second)
	if _, err := pipe.Exec(ctx); err != nil {
		d.logger.Error("redis_rate_limit_error_falling_back_to_local", zap.Error(err))
		return nil
	}

	if count := incr.Val(); count > int64(d.globalRate) {
		d.logger.Warn("global_rate_limit_exceeded", zap.Int64("count", count))
		return ErrRateLimitExceeded
	}
	return nil
}
