package config

import "strings"

// RedisConfig contains Redis configuration.
type RedisConfig struct {
	// URI accepts either host:port or a redis:// URL.
	URI      string `env:"URI"      envDefault:"localhost:6379"`
	Password string `env:"PASSWORD" envDefault:""`
	DB       int    `env:"DB"       envDefault:"0"`
}

// Sanitize applies guardrails to Redis configuration values.
func (c *RedisConfig) Sanitize() {
	c.URI = strings.TrimSpace(c.URI)
	if c.URI == "" {
		c.URI = "localhost:6379"
	}
	if c.DB < 0 {
		c.DB = 0
	}
}

// IsURL reports whether URI uses the redis:// or rediss:// scheme.
func (c *RedisConfig) IsURL() bool {
	return strings.HasPrefix(c.URI, "redis://") || strings.HasPrefix(c.URI, "rediss://")
}
