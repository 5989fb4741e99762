package config

import (
	"strings"
	"time"
)

// APIConfig describes the backend the client talks to.
type APIConfig struct {
	// Origin is the scheme and host of the API (e.g., "https://api.example.com").
	// Credentials are only attached to requests for this origin.
	Origin string `env:"API_ORIGIN" envDefault:"http://localhost:3000"`

	// Endpoint paths relative to Origin.
	RefreshPath string `env:"API_REFRESH_PATH" envDefault:"/auth/refresh-token"`
	LogoutPath  string `env:"API_LOGOUT_PATH"  envDefault:"/auth/logout"`
	LoginPath   string `env:"API_LOGIN_PATH"   envDefault:"/auth/login"`
	MePath      string `env:"API_ME_PATH"      envDefault:"/auth/me"`

	// LoginRoute is where a failed refresh sends the user.
	LoginRoute string `env:"API_LOGIN_ROUTE" envDefault:"/login"`

	// RequestTimeout bounds every request issued through the pipeline, retry included.
	RequestTimeout time.Duration `env:"API_REQUEST_TIMEOUT" envDefault:"30s"`
}

// Sanitize applies guardrails to API configuration values.
func (c *APIConfig) Sanitize() {
	c.Origin = strings.TrimSuffix(strings.TrimSpace(c.Origin), "/")
	c.RefreshPath = normalizePath(c.RefreshPath, "/auth/refresh-token")
	c.LogoutPath = normalizePath(c.LogoutPath, "/auth/logout")
	c.LoginPath = normalizePath(c.LoginPath, "/auth/login")
	c.MePath = normalizePath(c.MePath, "/auth/me")
	c.LoginRoute = normalizePath(c.LoginRoute, "/login")
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 30 * time.Second
	}
}

func normalizePath(p, def string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return def
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return p
}
