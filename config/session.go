package config

import (
	"strings"
	"time"
)

// SessionConfig controls whether the session survives process restarts.
type SessionConfig struct {
	// Persist stores the session identity and API credentials in Redis.
	Persist bool `env:"SESSION_PERSIST" envDefault:"false"`

	// Key prefixes the Redis keys used for the snapshot and credentials.
	Key string `env:"SESSION_KEY" envDefault:"portfolio"`

	// TTL bounds how long a stored session survives without activity. Zero keeps it
	// until logout.
	TTL time.Duration `env:"SESSION_TTL" envDefault:"168h"`
}

// Sanitize applies guardrails to session configuration values.
func (c *SessionConfig) Sanitize() {
	c.Key = strings.Trim(strings.TrimSpace(c.Key), ":")
	if c.Key == "" {
		c.Key = "portfolio"
	}
	if c.TTL < 0 {
		c.TTL = 0
	}
}

// SnapshotKey returns the Redis key holding the session identity.
func (c *SessionConfig) SnapshotKey() string { return c.Key + ":session" }

// CredentialsKey returns the Redis key holding the API cookies.
func (c *SessionConfig) CredentialsKey() string { return c.Key + ":credentials" }
