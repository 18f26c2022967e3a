package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port              string
	GinMode           string
	LogLevel          string
	DatabaseDSN       string
	RedisAddr         string
	RabbitURL         string
	MongoURI          string
	MongoDB           string
	OTLPEndpoint      string
	AdminJWTSecret    string
	AdminUsername     string
	AdminPassword     string
	CommitTimeout     time.Duration
	HeartbeatInterval time.Duration
	SubscriberBuffer  int
	BidRateLimit      int
	BidRatePeriod     time.Duration
}

// Load reads configuration from the environment, after loading .env if present
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           port(os.Getenv("PORT")),
		GinMode:        getEnv("GIN_MODE", "release"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseDSN:    os.Getenv("DATABASE_DSN"),
		RedisAddr:      os.Getenv("REDIS_ADDR"),
		RabbitURL:      os.Getenv("RABBIT_URL"),
		MongoURI:       os.Getenv("MONGO_URI"),
		MongoDB:        getEnv("MONGO_DB", "auction"),
		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		AdminJWTSecret: os.Getenv("ADMIN_JWT_SECRET"),
		AdminUsername:  os.Getenv("ADMIN_USERNAME"),
		AdminPassword:  os.Getenv("ADMIN_PASSWORD"),
	}

	var err error
	if cfg.CommitTimeout, err = durationEnv("COMMIT_TIMEOUT", 5*time.Second); err != nil {
		return nil, err
	}
	if cfg.HeartbeatInterval, err = durationEnv("HEARTBEAT_INTERVAL", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.BidRatePeriod, err = durationEnv("BID_RATE_PERIOD", time.Minute); err != nil {
		return nil, err
	}
	if cfg.SubscriberBuffer, err = intEnv("SUBSCRIBER_BUFFER", 16); err != nil {
		return nil, err
	}
	if cfg.BidRateLimit, err = intEnv("BID_RATE_LIMIT", 10); err != nil {
		return nil, err
	}

	return cfg, nil
}

// port returns the listen address, defaulting to ":8080"
func port(p string) string {
	if p == "" {
		return ":8080"
	}
	return fmt.Sprintf(":%s", p)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return d, nil
}

func intEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive", key)
	}
	return n, nil
}
