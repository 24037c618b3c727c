package app

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/cache"
	middleware "github.com/nimeshabuddhika/smartpay-dashboard/pkg/middlewares"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/configs"
	_ "github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/docs"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/internal/handlers"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/internal/services"
	"github.com/nimeshabuddhika/smartpay-dashboard/services/dashboard/internal/templates"
	"github.com/redis/go-redis/v9"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"
)

const throttleKey = "smartpay:backend_rate"

// NewApp wires dependencies, builds the Gin engine, and returns an *http.Server and a cleanup func.
// It reads configuration from environment variables via configs.Load.
func NewApp(ctx context.Context, logger *zap.Logger) (*http.Server, func(), error) {
	cfg, err := configs.Load(logger)
	if err != nil {
		return nil, nil, err
	}

	// Optional shared throttle state
	var redisClient *redis.Client
	redisCloser := func() {}
	if !utils.IsEmpty(cfg.RedisAddr) {
		redisClient, redisCloser, err = cache.New(ctx, cache.Config{Addr: cfg.RedisAddr, Password: cfg.RedisPassword, DB: cfg.RedisDB, UseTLS: cfg.RedisTLS})
		if err != nil {
			// the local limiter still applies
			logger.Warn("redis_unavailable_using_local_throttle", zap.String("addr", cfg.RedisAddr), zap.Error(err))
			redisClient, redisCloser = nil, func() {}
		} else {
			logger.Info("redis_client_initialized", zap.String("addr", cfg.RedisAddr))
		}
	}

	limiter := pkg.NewDistributedLimiter(redisClient, throttleKey, cfg.BackendRateLimitPerSec, cfg.BackendRequestBurst, cfg.BackendMaxThrottleWait, logger)
	client, err := predictor.NewClient(logger, cfg.PredictorConfig(), predictor.WithThrottler(limiter))
	if err != nil {
		redisCloser()
		return nil, nil, err
	}

	r, err := NewRouter(logger, client, client.BaseURL())
	if err != nil {
		redisCloser()
		return nil, nil, err
	}

	stopWarmup := func() {}
	if cfg.WarmupEnabled {
		stopWarmup = services.NewBackendWarmer(logger, client, cfg.WarmupMaxElapsed).Start(ctx)
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Port),
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	logger.Info("dashboard_configured",
		zap.String("backend_url", client.BaseURL()),
		zap.Bool("api_key_configured", !utils.IsEmpty(cfg.APIKey)),
		zap.Duration("request_timeout", cfg.RequestTimeout),
	)

	cleanup := func() {
		stopWarmup()
		redisCloser()
	}
	return srv, cleanup, nil
}

// NewRouter builds the gin engine around an already configured client.
func NewRouter(logger *zap.Logger, client predictor.Predictor, backendURL string) (*gin.Engine, error) {
	tmpl, err := templates.Parse()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	if err = utils.RegisterBindingValidations(); err != nil {
		return nil, fmt.Errorf("register validations: %w", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.TraceID(logger))
	r.Use(middleware.Metrics())
	r.SetHTMLTemplate(tmpl)

	api := r.Group("/api/v1")
	corsCfg := cors.DefaultConfig()
	corsCfg.AllowAllOrigins = true
	corsCfg.AllowHeaders = append(corsCfg.AllowHeaders, pkg.HeaderTraceId)
	corsCfg.ExposeHeaders = []string{pkg.HeaderTraceId}
	api.Use(cors.New(corsCfg))

	handlers.NewBaseHandler(logger).RegisterRoutes(r)
	handlers.NewPageHandler(logger, client, backendURL).RegisterRoutes(r)
	handlers.NewAPIHandler(logger, client).RegisterRoutes(api, r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r, nil
}
