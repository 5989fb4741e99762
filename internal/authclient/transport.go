package authclient

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/metrics"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
)

// AbsorbedHeader marks the synthetic empty response returned for an absorbed 401.
const AbsorbedHeader = "X-Auth-Absorbed"

const drainLimit = 64 << 10

// TransportOptions groups the pipeline stages.
type TransportOptions struct {
	Decorator   *RequestAuthDecorator
	Coordinator *RefreshCoordinator
	Guard       *PublicRouteGuard
	Session     SessionStore
	Logger      *slog.Logger
	Metrics     statsd.Sink

	// BypassPaths are API paths that never enter refresh handling (the refresh and
	// logout endpoints themselves).
	BypassPaths []string
}

// Transport is the authenticated request pipeline:
// decorator -> base transport -> Classify -> PublicRouteGuard -> RefreshCoordinator -> RetryDispatcher.
type Transport struct {
	decorator   *RequestAuthDecorator
	coordinator *RefreshCoordinator
	guard       *PublicRouteGuard
	session     SessionStore
	dispatcher  *RetryDispatcher
	logger      *slog.Logger
	metrics     statsd.Sink
	bypass      []string
}

var _ http.RoundTripper = (*Transport)(nil)

// NewTransport wires the pipeline. Decorator, Coordinator and Session are required.
func NewTransport(opts TransportOptions) (*Transport, error) {
	if opts.Decorator == nil {
		return nil, errors.New("auth transport: decorator is required")
	}
	if opts.Coordinator == nil {
		return nil, errors.New("auth transport: coordinator is required")
	}
	if opts.Session == nil {
		return nil, errors.New("auth transport: session store is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	guard := opts.Guard
	if guard == nil {
		guard = NewPublicRouteGuard(nil)
	}
	return &Transport{
		decorator:   opts.Decorator,
		coordinator: opts.Coordinator,
		guard:       guard,
		session:     opts.Session,
		dispatcher:  NewRetryDispatcher(opts.Decorator, logger, opts.Metrics),
		logger:      logger,
		metrics:     opts.Metrics,
		bypass:      append([]string(nil), opts.BypassPaths...),
	}, nil
}

// Client returns an *http.Client sending through the pipeline.
func (t *Transport) Client(timeout time.Duration) *http.Client {
	return &http.Client{Transport: t, Timeout: timeout}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if !t.decorator.Matches(req.URL) || t.isBypassed(req.URL.Path) || IsRetry(req.Context()) {
		return t.decorator.RoundTrip(req)
	}

	ctx := req.Context()
	rc, err := Capture(req)
	if err != nil {
		return nil, err
	}
	first, err := rc.Build(ctx)
	if err != nil {
		return nil, err
	}
	rc.Generation = t.coordinator.Generation()

	resp, err := t.decorator.RoundTrip(first)
	if Classify(resp, err) != FailureAuthExpired {
		return resp, err
	}
	drainAndClose(resp)

	if t.guard.ShouldAbsorb(rc.URL, t.session.Snapshot()) {
		metrics.EmitAbsorbed(t.metrics)
		t.logger.WarnContext(ctx, "unauthorized request absorbed for anonymous session",
			"request_id", rc.ID,
			"method", rc.Method,
			"path", rc.URL.Path,
		)
		return absorbedResponse(first), nil
	}

	t.logger.DebugContext(ctx, "request unauthorized, awaiting refresh",
		"request_id", rc.ID,
		"method", rc.Method,
		"path", rc.URL.Path,
		"refresh_state", t.coordinator.State().String(),
	)
	outcome := t.coordinator.AwaitSince(ctx, rc.Generation)
	return t.dispatcher.Dispatch(ctx, rc, outcome)
}

func (t *Transport) isBypassed(path string) bool {
	for _, p := range t.bypass {
		if p != "" && strings.TrimSuffix(path, "/") == strings.TrimSuffix(p, "/") {
			return true
		}
	}
	return false
}

func absorbedResponse(req *http.Request) *http.Response {
	h := make(http.Header)
	h.Set(AbsorbedHeader, "true")
	return &http.Response{
		Status:        "204 No Content",
		StatusCode:    http.StatusNoContent,
		Proto:         "HTTP/1.1",
		ProtoMajor:    1,
		ProtoMinor:    1,
		Header:        h,
		Body:          http.NoBody,
		ContentLength: 0,
		Request:       req,
	}
}

func drainAndClose(resp *http.Response) {
	if resp == nil || resp.Body == nil {
		return
	}
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, drainLimit))
	_ = resp.Body.Close()
}
