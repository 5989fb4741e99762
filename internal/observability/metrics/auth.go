package metrics

import (
	"time"

	obserrors "github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/errors"
	"github.com/djoudj-dev/ng-portfolio-app-sub000/internal/observability/statsd"
)

// Result constants for metric tagging.
const (
	ResultSuccess = "success"
	ResultError   = "error"
	ResultNoop    = "noop"
)

// Metric names emitted by the authenticated request pipeline.
const (
	RefreshCount      = "auth.refresh"
	RefreshDuration   = "auth.refresh.duration"
	RefreshCoalesced  = "auth.refresh.coalesced"
	RefreshSuppressed = "auth.refresh.suppressed"
	Absorbed          = "auth.absorbed"
	Retry             = "auth.retry"
)

// RefreshMetric captures one completed refresh call.
type RefreshMetric struct {
	Result   string
	Duration time.Duration
	Err      error
}

// EmitRefresh emits the outcome and duration of a refresh call.
func EmitRefresh(sink statsd.Sink, in RefreshMetric) {
	if sink == nil {
		return
	}

	tags := map[string]string{"result": in.Result}
	if in.Err != nil && in.Result == ResultError {
		if class := obserrors.Classify(in.Err); class != "" {
			tags["error_class"] = class
		}
	}

	sink.Count(RefreshCount, 1, tags)
	if in.Duration > 0 {
		sink.Timing(RefreshDuration, in.Duration, CloneTags(tags))
	}
}

// EmitRefreshCoalesced counts a waiter that shared another caller's refresh.
func EmitRefreshCoalesced(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count(RefreshCoalesced, 1, nil)
}

// EmitRefreshSuppressed counts a refresh refused by the storm guard.
func EmitRefreshSuppressed(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count(RefreshSuppressed, 1, nil)
}

// EmitAbsorbed counts a 401 swallowed for an anonymous session.
func EmitAbsorbed(sink statsd.Sink) {
	if sink == nil {
		return
	}
	sink.Count(Absorbed, 1, nil)
}

// EmitRetry counts a replay decision.
func EmitRetry(sink statsd.Sink, result string) {
	if sink == nil {
		return
	}
	sink.Count(Retry, 1, map[string]string{"result": result})
}

// CloneTags creates a shallow copy of a tag map, filtering out empty keys.
func CloneTags(src map[string]string) map[string]string {
	if len(src) == 0 {
		return nil
	}
	out := make(map[string]string, len(src))
	for k, v := range src {
		if k == "" {
			continue
		}
		out[k] = v
	}
	return out
}
