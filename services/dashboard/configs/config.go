package configs

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/predictor"
	"github.com/nimeshabuddhika/smartpay-dashboard/pkg/utils"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Config holds application configuration for the dashboard.
type Config struct {
	Port                   string        `mapstructure:"PORT" validate:"required,numeric"`
	BackendURL             string        `mapstructure:"BACKEND_URL" validate:"required,url"`
	PredictURL             string        `mapstructure:"PREDICT_URL" validate:"omitempty,url"` // fully qualified prediction URL, overrides BACKEND_URL/predict
	APIKey                 string        `mapstructure:"API_KEY"`
	RequestTimeout         time.Duration `mapstructure:"REQUEST_TIMEOUT" validate:"required,min=100ms,max=2m"`
	BackendRateLimitPerSec int           `mapstructure:"BACKEND_RATE_LIMIT_PER_SEC" validate:"min=0"` // 0 disables throttling
	BackendRequestBurst    int           `mapstructure:"BACKEND_REQUEST_BURST" validate:"min=0"`
	BackendMaxThrottleWait time.Duration `mapstructure:"BACKEND_MAX_THROTTLE_WAIT" validate:"min=0"`
	RedisAddr              string        `mapstructure:"REDIS_ADDR"` // optional, shares the throttle between replicas
	RedisPassword          string        `mapstructure:"REDIS_PASSWORD"`
	RedisDB                int           `mapstructure:"REDIS_DB" validate:"min=0"`
	RedisTLS               bool          `mapstructure:"REDIS_TLS"` // managed Redis
	WarmupEnabled          bool          `mapstructure:"WARMUP_ENABLED"`
	WarmupMaxElapsed       time.Duration `mapstructure:"WARMUP_MAX_ELAPSED" validate:"gt=0"` // backoff treats 0 as unbounded
}

// PredictorConfig returns the client settings derived from the configuration.
func (c *Config) PredictorConfig() predictor.Config {
	return predictor.Config{
		BaseURL:    c.BackendURL,
		PredictURL: c.PredictURL,
		APIKey:     c.APIKey,
		Timeout:    c.RequestTimeout,
	}
}

func Load(logger *zap.Logger) (*Config, error) {
	// .env is optional; real env vars win
	_ = godotenv.Load()

	viper.SetEnvPrefix("app") // Prefix for env vars
	viper.AutomaticEnv()

	// Default values
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("REQUEST_TIMEOUT", "10s")
	viper.SetDefault("BACKEND_RATE_LIMIT_PER_SEC", "5")
	viper.SetDefault("BACKEND_REQUEST_BURST", "10")
	viper.SetDefault("BACKEND_MAX_THROTTLE_WAIT", "2s")
	viper.SetDefault("WARMUP_ENABLED", "true")
	viper.SetDefault("WARMUP_MAX_ELAPSED", "1m")
	viper.SetDefault("REDIS_DB", "0")
	viper.SetDefault("REDIS_TLS", "false")

	// Optional: Read from config.yaml if exists
	if gin.ReleaseMode == gin.Mode() {
		viper.SetConfigName("config.prod")
	} else if gin.TestMode == gin.Mode() {
		logger.Warn("running_in_test_mode")
		viper.SetConfigName("config.test")
	} else {
		logger.Warn("running_in_development_mode")
		viper.SetConfigName("config.dev")
	}
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./services/dashboard/configs")
	_ = viper.ReadInConfig() // Ignore if no file

	var cfg Config
	if err := utils.ParseStructEnv(&cfg); err != nil {
		return nil, err
	}

	// Validate after unmarshal
	validate := validator.New()
	if err := validate.Struct(&cfg); err != nil {
		return nil, utils.FormatConfigErrors(logger, err, cfg)
	}
	return &cfg, nil
}
