// Package navigation implements ports.Navigator for headless callers. A UI shell
// consumes Channel; command-line tools use Logger.
package navigation

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

// DefaultLoginRoute is the route a redirect points at when none is configured.
const DefaultLoginRoute = "/login"

var (
	_ ports.Navigator = (*Channel)(nil)
	_ ports.Navigator = (*Logger)(nil)
)

// Redirect describes one request to move the user to the login surface.
type Redirect struct {
	Route  string
	Reason string
	At     time.Time
}

// Channel publishes redirects on a buffered channel. Publishing never blocks: when
// the buffer is full the redirect is dropped and counted.
type Channel struct {
	route   string
	ch      chan Redirect
	now     func() time.Time
	logger  *slog.Logger
	mu      sync.Mutex
	sent    int
	dropped int
}

// NewChannel creates a Channel navigator. buffer < 1 is treated as 1.
func NewChannel(route string, buffer int, logger *slog.Logger) *Channel {
	if route == "" {
		route = DefaultLoginRoute
	}
	if buffer < 1 {
		buffer = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Channel{
		route:  route,
		ch:     make(chan Redirect, buffer),
		now:    time.Now,
		logger: logger,
	}
}

// Redirects returns the receive side.
func (c *Channel) Redirects() <-chan Redirect { return c.ch }

// Sent returns how many redirects were delivered to the buffer.
func (c *Channel) Sent() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sent
}

// Dropped returns how many redirects were discarded because the buffer was full.
func (c *Channel) Dropped() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dropped
}

func (c *Channel) RedirectToLogin(ctx context.Context, reason string) error {
	r := Redirect{Route: c.route, Reason: reason, At: c.now()}

	c.mu.Lock()
	defer c.mu.Unlock()
	select {
	case c.ch <- r:
		c.sent++
	default:
		c.dropped++
		c.logger.WarnContext(ctx, "redirect dropped, consumer not keeping up", "reason", reason)
	}
	return nil
}

// Logger records redirects in the log; used where there is no screen to move.
type Logger struct {
	route  string
	logger *slog.Logger
}

// NewLogger creates a logging navigator.
func NewLogger(route string, logger *slog.Logger) *Logger {
	if route == "" {
		route = DefaultLoginRoute
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Logger{route: route, logger: logger}
}

func (l *Logger) RedirectToLogin(ctx context.Context, reason string) error {
	l.logger.WarnContext(ctx, "sign-in required", "route", l.route, "reason", reason)
	return nil
}
