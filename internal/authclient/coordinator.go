package authclient

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	domainauth "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/domain/auth"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/metrics"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/ports"
)

const (
	refreshKey = "refresh"

	defaultRefreshTimeout = 10 * time.Second
	defaultCooldown       = 30 * time.Second
	defaultMaxFailures    = 3
)

// RefreshState is the coordinator's externally visible state.
type RefreshState int32

const (
	RefreshIdle RefreshState = iota
	RefreshInFlight
)

func (s RefreshState) String() string {
	if s == RefreshInFlight {
		return "refreshing"
	}
	return "idle"
}

// SessionStore is the slice of the session owner the pipeline needs.
// *service.SessionState satisfies it.
type SessionStore interface {
	Snapshot() domainauth.Session
	RefreshSucceeded()
	RefreshFailed()
}

// CoordinatorOptions groups dependencies for RefreshCoordinator.
type CoordinatorOptions struct {
	Refresher  ports.CredentialRefresher
	Terminator ports.SessionTerminator // optional courtesy logout on failure
	Navigator  ports.Navigator         // optional
	Session    SessionStore
	Logger     *slog.Logger
	Metrics    statsd.Sink

	// Timeout bounds a single refresh call; expiry counts as a failure.
	Timeout time.Duration
	// Cooldown is how long an anonymous session refuses new refreshes after a failure.
	// Zero selects the default; a negative value disables the cooldown.
	Cooldown time.Duration
	// MaxConsecutiveFailures stops refreshing for an anonymous session until a refresh
	// succeeds or the user logs in again.
	MaxConsecutiveFailures int

	Now func() time.Time
}

// RefreshCoordinator keeps at most one refresh call in flight. Every AUTH_EXPIRED
// failure that arrives while a refresh is pending attaches to it and receives the
// same outcome.
type RefreshCoordinator struct {
	group      singleflight.Group
	refresher  ports.CredentialRefresher
	terminator ports.SessionTerminator
	navigator  ports.Navigator
	session    SessionStore
	logger     *slog.Logger
	metrics    statsd.Sink

	timeout     time.Duration
	cooldown    time.Duration
	maxFailures int
	now         func() time.Time

	state      atomic.Int32
	waiters    atomic.Int64
	calls      atomic.Int64
	generation atomic.Uint64

	mu          sync.Mutex
	lastFailure time.Time
	failures    int
}

// NewRefreshCoordinator constructs a coordinator. Refresher and Session are required.
func NewRefreshCoordinator(opts CoordinatorOptions) (*RefreshCoordinator, error) {
	if opts.Refresher == nil {
		return nil, errors.New("refresh coordinator: refresher is required")
	}
	if opts.Session == nil {
		return nil, errors.New("refresh coordinator: session store is required")
	}
	c := &RefreshCoordinator{
		refresher:   opts.Refresher,
		terminator:  opts.Terminator,
		navigator:   opts.Navigator,
		session:     opts.Session,
		logger:      opts.Logger,
		metrics:     opts.Metrics,
		timeout:     opts.Timeout,
		cooldown:    opts.Cooldown,
		maxFailures: opts.MaxConsecutiveFailures,
		now:         opts.Now,
	}
	if c.logger == nil {
		c.logger = slog.Default()
	}
	if c.timeout <= 0 {
		c.timeout = defaultRefreshTimeout
	}
	switch {
	case c.cooldown == 0:
		c.cooldown = defaultCooldown
	case c.cooldown < 0:
		c.cooldown = 0
	}
	if c.maxFailures <= 0 {
		c.maxFailures = defaultMaxFailures
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c, nil
}

// State reports whether a refresh is in flight.
func (c *RefreshCoordinator) State() RefreshState {
	return RefreshState(c.state.Load())
}

// Waiters returns how many callers are currently attached to the pending refresh.
func (c *RefreshCoordinator) Waiters() int {
	return int(c.waiters.Load())
}

// Calls returns how many refresh calls have been issued since construction.
func (c *RefreshCoordinator) Calls() int64 {
	return c.calls.Load()
}

// Generation counts successful refreshes. A request records it before it is sent.
func (c *RefreshCoordinator) Generation() uint64 {
	return c.generation.Load()
}

// AwaitSince is Await for a request sent at generation sent. When a refresh has
// succeeded since then, the request went out with superseded credentials and can be
// replayed at once without another refresh.
func (c *RefreshCoordinator) AwaitSince(ctx context.Context, sent uint64) error {
	if c.generation.Load() != sent {
		metrics.EmitRefreshCoalesced(c.metrics)
		c.logger.DebugContext(ctx, "credentials renewed since request was sent")
		return nil
	}
	return c.Await(ctx)
}

// Await starts a refresh or attaches to the pending one and waits for its outcome.
// It returns nil on success and an *AuthRefreshFailedError on failure. If ctx ends
// first, Await returns ctx.Err() and the refresh continues for the other waiters.
func (c *RefreshCoordinator) Await(ctx context.Context) error {
	if err := c.suppressed(); err != nil {
		metrics.EmitRefreshSuppressed(c.metrics)
		c.logger.DebugContext(ctx, "refresh suppressed", "error", err)
		return err
	}

	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(refreshKey, func() (any, error) {
		return nil, c.run(detached)
	})
	c.waiters.Add(1)
	defer c.waiters.Add(-1)

	select {
	case res := <-ch:
		if res.Shared {
			metrics.EmitRefreshCoalesced(c.metrics)
		}
		return res.Err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// run performs one refresh call and commits its outcome before the result is broadcast,
// so every waiter observes the post-refresh session.
func (c *RefreshCoordinator) run(ctx context.Context) error {
	c.state.Store(int32(RefreshInFlight))
	defer c.state.Store(int32(RefreshIdle))
	c.calls.Add(1)

	start := c.now()
	refreshCtx, cancel := context.WithTimeout(ctx, c.timeout)
	err := c.refresher.Refresh(refreshCtx)
	cancel()
	elapsed := c.now().Sub(start)

	if err == nil {
		c.recordSuccess()
		c.session.RefreshSucceeded()
		c.generation.Add(1)
		metrics.EmitRefresh(c.metrics, metrics.RefreshMetric{Result: metrics.ResultSuccess, Duration: elapsed})
		c.logger.InfoContext(ctx, "credentials refreshed", "duration", elapsed)
		return nil
	}

	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.WarnContext(ctx, "credential refresh timed out", "timeout", c.timeout)
	}

	hadUser := c.session.Snapshot().User != nil
	c.recordFailure()
	c.session.RefreshFailed()
	metrics.EmitRefresh(c.metrics, metrics.RefreshMetric{Result: metrics.ResultError, Duration: elapsed, Err: err})
	c.logger.WarnContext(ctx, "credential refresh failed, terminating session",
		"error", err,
		"had_user", hadUser,
	)

	c.terminate(ctx)
	c.redirect(ctx)

	return &AuthRefreshFailedError{Cause: fmt.Errorf("%w: %w", ErrAuthExpired, err)}
}

func (c *RefreshCoordinator) terminate(ctx context.Context) {
	if c.terminator == nil {
		return
	}
	logoutCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()
	if err := c.terminator.Logout(logoutCtx); err != nil {
		c.logger.DebugContext(ctx, "courtesy logout failed", "error", err)
	}
}

func (c *RefreshCoordinator) redirect(ctx context.Context) {
	if c.navigator == nil {
		return
	}
	if err := c.navigator.RedirectToLogin(ctx, "session_expired"); err != nil {
		c.logger.WarnContext(ctx, "redirect to login failed", "error", err)
	}
}

// suppressed applies the storm guard: an anonymous session does not refresh again
// during the cooldown after a failure, nor after too many consecutive failures.
func (c *RefreshCoordinator) suppressed() error {
	if c.session.Snapshot().User != nil {
		return nil
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failures == 0 {
		return nil
	}
	if c.failures >= c.maxFailures {
		return &AuthRefreshFailedError{Cause: errRefreshSuppressed}
	}
	if c.cooldown > 0 && c.now().Sub(c.lastFailure) < c.cooldown {
		return &AuthRefreshFailedError{Cause: errRefreshSuppressed}
	}
	return nil
}

func (c *RefreshCoordinator) recordSuccess() {
	c.mu.Lock()
	c.failures = 0
	c.lastFailure = time.Time{}
	c.mu.Unlock()
}

func (c *RefreshCoordinator) recordFailure() {
	c.mu.Lock()
	c.failures++
	c.lastFailure = c.now()
	c.mu.Unlock()
}
