// Package config loads gateway settings from the environment and an optional .env file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/ukydev/fleet-tolls/internal/environment"
	"github.com/ukydev/fleet-tolls/internal/upstream"
)

// Config holds every runtime setting of the gateway.
type Config struct {
	Port               string
	DevURL             string
	ProdURL            string
	DefaultEnvironment environment.Name
	UpstreamTimeout    time.Duration
	Retry              upstream.RetryPolicy
	PageSize           int
	MaxPageSize        int
	OpenDataURL        string
	OpenDataAppToken   string
	MongoURI           string
	MongoDB            string
	RedisAddr          string
	RedisPassword      string
	MQTTBroker         string
	MQTTTopicPrefix    string
	RateLimitRequests  int
	RateLimitWindow    time.Duration
	CORSOrigins        []string
	LogLevel           string
	LogFormat          string
}

// LoadDotEnv loads path into the process environment. A missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("PORT", "8080")
	v.SetDefault("DEFAULT_ENVIRONMENT", string(environment.Development))
	v.SetDefault("UPSTREAM_TIMEOUT", "30s")
	v.SetDefault("RETRY_MAX_ATTEMPTS", 3)
	v.SetDefault("RETRY_BASE_DELAY", "500ms")
	v.SetDefault("RETRY_MAX_DELAY", "8s")
	v.SetDefault("PAGE_SIZE", 25)
	v.SetDefault("MAX_PAGE_SIZE", 500)
	v.SetDefault("OPENDATA_URL", "https://data.cityofnewyork.us/resource/nc67-re7n.json")
	v.SetDefault("MONGO_DB", "fleet_tolls")
	v.SetDefault("MQTT_TOPIC_PREFIX", "fleet-tolls")
	v.SetDefault("RATE_LIMIT_REQUESTS", 120)
	v.SetDefault("RATE_LIMIT_WINDOW", "1m")
	v.SetDefault("CORS_ORIGINS", "http://localhost:5173")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	return v
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	v := newViper()

	port := v.GetString("PORT")
	// Azure Functions custom handlers are told where to listen.
	if p := v.GetString("FUNCTIONS_CUSTOMHANDLER_PORT"); p != "" {
		port = p
	}

	env, err := environment.Parse(v.GetString("DEFAULT_ENVIRONMENT"))
	if err != nil {
		return Config{}, fmt.Errorf("DEFAULT_ENVIRONMENT: %w", err)
	}

	cfg := Config{
		Port:               port,
		DevURL:             v.GetString("RYDORA_DEV_URL"),
		ProdURL:            v.GetString("RYDORA_PROD_URL"),
		DefaultEnvironment: env,
		UpstreamTimeout:    v.GetDuration("UPSTREAM_TIMEOUT"),
		Retry: upstream.RetryPolicy{
			MaxAttempts: v.GetInt("RETRY_MAX_ATTEMPTS"),
			BaseDelay:   v.GetDuration("RETRY_BASE_DELAY"),
			MaxDelay:    v.GetDuration("RETRY_MAX_DELAY"),
		},
		PageSize:          v.GetInt("PAGE_SIZE"),
		MaxPageSize:       v.GetInt("MAX_PAGE_SIZE"),
		OpenDataURL:       v.GetString("OPENDATA_URL"),
		OpenDataAppToken:  v.GetString("OPENDATA_APP_TOKEN"),
		MongoURI:          v.GetString("MONGO_URI"),
		MongoDB:           v.GetString("MONGO_DB"),
		RedisAddr:         v.GetString("REDIS_ADDR"),
		RedisPassword:     v.GetString("REDIS_PASSWORD"),
		MQTTBroker:        v.GetString("MQTT_BROKER"),
		MQTTTopicPrefix:   v.GetString("MQTT_TOPIC_PREFIX"),
		RateLimitRequests: v.GetInt("RATE_LIMIT_REQUESTS"),
		RateLimitWindow:   v.GetDuration("RATE_LIMIT_WINDOW"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		LogLevel:          v.GetString("LOG_LEVEL"),
		LogFormat:         v.GetString("LOG_FORMAT"),
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.DevURL == "" && c.ProdURL == "" {
		return errors.New("at least one of RYDORA_DEV_URL or RYDORA_PROD_URL must be set")
	}
	if c.PageSize <= 0 || c.MaxPageSize < c.PageSize {
		return fmt.Errorf("invalid page sizes: PAGE_SIZE=%d MAX_PAGE_SIZE=%d", c.PageSize, c.MaxPageSize)
	}
	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("RETRY_MAX_ATTEMPTS must be at least 1, got %d", c.Retry.MaxAttempts)
	}
	return nil
}

// Environments returns the configured base URL per environment.
func (c Config) Environments() map[environment.Name]string {
	return map[environment.Name]string{
		environment.Development: c.DevURL,
		environment.Production:  c.ProdURL,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// NewLogger builds the process logger.
func NewLogger(level, format string) (*log.Logger, error) {
	logger := log.New()
	logger.SetOutput(os.Stdout)
	lvl, err := log.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	logger.SetLevel(lvl)
	switch strings.ToLower(format) {
	case "", "json":
		logger.SetFormatter(&log.JSONFormatter{TimestampFormat: time.RFC3339})
	case "text":
		logger.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q", format)
	}
	return logger, nil
}
