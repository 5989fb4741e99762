package config

import (
	"strings"
	"time"
)

// PipelineConfig tunes the refresh pipeline.
type PipelineConfig struct {
	// PublicSafePrefixes are path prefixes whose 401s are absorbed while no user is
	// signed in. Set to a single "," to absorb nothing.
	PublicSafePrefixes []string `env:"AUTH_PUBLIC_SAFE_PREFIXES" envDefault:"/api/analytics,/api/admin,/api/cv-admin" envSeparator:","`

	// RefreshTimeout bounds a single refresh call. Expiry counts as a failed refresh.
	RefreshTimeout time.Duration `env:"AUTH_REFRESH_TIMEOUT" envDefault:"10s"`

	// RefreshCooldown is how long an anonymous session waits before refreshing again
	// after a failure. A negative value disables the cooldown.
	RefreshCooldown time.Duration `env:"AUTH_REFRESH_COOLDOWN" envDefault:"30s"`

	// MaxConsecutiveFailures stops anonymous refresh attempts until one succeeds.
	MaxConsecutiveFailures int `env:"AUTH_MAX_CONSECUTIVE_REFRESH_FAILURES" envDefault:"3"`
}

// Sanitize applies guardrails to pipeline configuration values.
func (c *PipelineConfig) Sanitize() {
	prefixes := make([]string, 0, len(c.PublicSafePrefixes))
	for _, p := range c.PublicSafePrefixes {
		if p = strings.TrimSpace(p); p != "" {
			prefixes = append(prefixes, p)
		}
	}
	c.PublicSafePrefixes = prefixes

	if c.RefreshTimeout <= 0 {
		c.RefreshTimeout = 10 * time.Second
	}
	if c.MaxConsecutiveFailures < 1 {
		c.MaxConsecutiveFailures = 3
	}
}
