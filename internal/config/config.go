package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// minSigningKeyLen is the smallest JWT signing key accepted; HS256 keys
// shorter than the hash output weaken the MAC.
const minSigningKeyLen = 32

// Config holds runtime configuration for the flowstated service.
type Config struct {
	Addr           string   `env:"ADDR,default=:8000"`
	DBDSN          string   `env:"DB_DSN,required"`
	JWTSigningKey  string   `env:"JWT_SIGNING_KEY,required"`
	NATSURL        string   `env:"NATS_URL"`
	OTLPEndpoint   string   `env:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS,default=http://localhost:8501"`

	AccessTokenTTL time.Duration `env:"ACCESS_TOKEN_TTL,default=30m"`
	ResetTokenTTL  time.Duration `env:"RESET_TOKEN_TTL,default=1h"`

	WSPingInterval time.Duration `env:"WS_PING_INTERVAL,default=15s"`
	WSPongTimeout  time.Duration `env:"WS_PONG_TIMEOUT,default=45s"`

	ReminderPollInterval time.Duration `env:"REMINDER_POLL_INTERVAL,default=30s"`

	// DefaultPrepTimes maps a normalized event category to preparation
	// minutes used when a user has no custom reminder preference.
	DefaultPrepTimes map[string]int `env:"DEFAULT_PREP_TIMES,default=meeting:10,deep work:15,travel:30,general:5"`
}

// Load returns a Config populated from environment variables.
func Load(ctx context.Context) (Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if len(c.JWTSigningKey) < minSigningKeyLen {
		return fmt.Errorf("JWT_SIGNING_KEY must be at least %d bytes, got %d", minSigningKeyLen, len(c.JWTSigningKey))
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive, got %s", c.AccessTokenTTL)
	}
	if c.WSPingInterval <= 0 || c.WSPongTimeout <= 0 {
		return fmt.Errorf("heartbeat intervals must be positive, got ping=%s pong=%s", c.WSPingInterval, c.WSPongTimeout)
	}
	return nil
}

// PrepTimeFor returns the default preparation minutes for a category,
// falling back to the "general" entry when the category is unknown.
func (c Config) PrepTimeFor(category string) int {
	if v, ok := c.DefaultPrepTimes[category]; ok {
		return v
	}
	if v, ok := c.DefaultPrepTimes["general"]; ok {
		return v
	}
	return 5
}
