package cli

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds surveyctl settings read from the environment. Flags override
// the survey selection per call.
type Config struct {
	APIURL           string        `env:"SURVEYCTL_API_URL"            envDefault:"http://localhost:8080/api/v1"`
	SessionPath      string        `env:"SURVEYCTL_SESSION"            envDefault:"surveyctl.db"`
	RedisURL         string        `env:"SURVEYCTL_REDIS_URL"`
	RedisTLSInsecure bool          `env:"SURVEYCTL_REDIS_TLS_INSECURE"`
	Timeout          time.Duration `env:"SURVEYCTL_TIMEOUT"            envDefault:"15s"`
	Env              string        `env:"SURVEYCTL_ENV"                envDefault:"production"`
}

// ParseConfig reads Config from the environment.
func ParseConfig() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// RedisConfig implementation, used when markers go straight to the
// document store instead of the REST API.
func (c Config) GetRedisURL() string       { return c.RedisURL }
func (c Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
