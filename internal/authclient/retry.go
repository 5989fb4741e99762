package authclient

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/metrics"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
)

type retryKey struct{}

func withRetryMark(ctx context.Context) context.Context {
	return context.WithValue(ctx, retryKey{}, true)
}

// IsRetry reports whether ctx belongs to a replayed request.
func IsRetry(ctx context.Context) bool {
	v, _ := ctx.Value(retryKey{}).(bool)
	return v
}

// RetryDispatcher turns a refresh outcome into the answer for the original request.
type RetryDispatcher struct {
	next    http.RoundTripper
	logger  *slog.Logger
	metrics statsd.Sink
}

// NewRetryDispatcher replays through next, which should be the RequestAuthDecorator.
func NewRetryDispatcher(next http.RoundTripper, logger *slog.Logger, sink statsd.Sink) *RetryDispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetryDispatcher{next: next, logger: logger, metrics: sink}
}

// Dispatch replays rc exactly once when outcome is nil, otherwise returns outcome.
// A replay answered with 401 again is handed back as-is; it is never retried a second time.
func (d *RetryDispatcher) Dispatch(ctx context.Context, rc *RequestContext, outcome error) (*http.Response, error) {
	if outcome != nil {
		metrics.EmitRetry(d.metrics, metrics.ResultNoop)
		return nil, outcome
	}

	req, err := rc.Build(withRetryMark(ctx))
	if err != nil {
		return nil, fmt.Errorf("replay %s: %w", rc.ID, err)
	}

	resp, err := d.next.RoundTrip(req)
	switch Classify(resp, err) {
	case FailureNone:
		metrics.EmitRetry(d.metrics, metrics.ResultSuccess)
	case FailureAuthExpired:
		metrics.EmitRetry(d.metrics, metrics.ResultError)
		d.logger.WarnContext(ctx, "replayed request still unauthorized",
			"request_id", rc.ID,
			"method", rc.Method,
			"path", rc.URL.Path,
		)
	case FailureOther:
		metrics.EmitRetry(d.metrics, metrics.ResultError)
	}
	return resp, err
}
