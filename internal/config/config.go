package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName       string
	AppEnv        string
	AppPort       string
	DatabaseURL   string
	RedisURL      string
	NATSURL       string
	ChannelBase   string
	JWTSecret     string
	JWTIssuer     string
	CORSOrigins   string
	RateLimitRPM  int
	DiffLookahead int
	HighlightTTL  time.Duration
	StreamTimeout time.Duration
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("RAILRULES")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Railway Rules API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("channel.base", "railrules")
	v.SetDefault("cors.origins", "*")
	v.SetDefault("rate_limit.rpm", 600)
	v.SetDefault("diff.lookahead", 10)
	v.SetDefault("highlight.cache_ttl", "10m")
	v.SetDefault("stream.timeout", "30s")

	highlightTTL, err := parseDuration(v, "highlight.cache_ttl")
	if err != nil {
		return Config{}, err
	}
	streamTimeout, err := parseDuration(v, "stream.timeout")
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		AppName:       v.GetString("app.name"),
		AppEnv:        v.GetString("app.env"),
		AppPort:       v.GetString("app.port"),
		DatabaseURL:   v.GetString("database.url"),
		RedisURL:      v.GetString("redis.url"),
		NATSURL:       v.GetString("nats.url"),
		ChannelBase:   v.GetString("channel.base"),
		JWTSecret:     v.GetString("jwt.secret"),
		JWTIssuer:     v.GetString("jwt.issuer"),
		CORSOrigins:   v.GetString("cors.origins"),
		RateLimitRPM:  v.GetInt("rate_limit.rpm"),
		DiffLookahead: v.GetInt("diff.lookahead"),
		HighlightTTL:  highlightTTL,
		StreamTimeout: streamTimeout,
	}

	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("jwt secret must be provided")
	}
	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}
	if cfg.DiffLookahead <= 0 {
		return Config{}, fmt.Errorf("diff lookahead must be positive, got %d", cfg.DiffLookahead)
	}

	return cfg, nil
}

func parseDuration(v *viper.Viper, key string) (time.Duration, error) {
	value := strings.TrimSpace(v.GetString(key))
	duration, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	if duration <= 0 {
		return 0, fmt.Errorf("invalid %s: must be positive", key)
	}
	return duration, nil
}
