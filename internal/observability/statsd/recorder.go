package statsd

import (
	"sync"
	"time"
)

// Recorder is an in-memory Sink. Tests use it to assert emitted metrics; the probe
// command uses it to print a summary when no StatsD endpoint is configured.
type Recorder struct {
	mu      sync.Mutex
	counts  map[string]int64
	gauges  map[string]float64
	timings map[string][]time.Duration
}

var _ Sink = (*Recorder)(nil)

// NewRecorder returns an empty Recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		counts:  make(map[string]int64),
		gauges:  make(map[string]float64),
		timings: make(map[string][]time.Duration),
	}
}

// Count adds value to the counter, keyed by name and the "result" tag when present.
func (r *Recorder) Count(name string, value int64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[recordKey(name, tags)] += value
}

// Gauge stores the latest value.
func (r *Recorder) Gauge(name string, value float64, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gauges[recordKey(name, tags)] = value
}

// Timing appends a duration sample.
func (r *Recorder) Timing(name string, value time.Duration, tags map[string]string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := recordKey(name, tags)
	r.timings[key] = append(r.timings[key], value)
}

// Counter returns the accumulated count for key ("name" or "name,result=value").
func (r *Recorder) Counter(key string) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}

// Counters returns a copy of all counters.
func (r *Recorder) Counters() map[string]int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]int64, len(r.counts))
	for k, v := range r.counts {
		out[k] = v
	}
	return out
}

// Samples returns how many timing samples were recorded for key.
func (r *Recorder) Samples(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timings[key])
}

func recordKey(name string, tags map[string]string) string {
	if result, ok := tags["result"]; ok && result != "" {
		return name + ",result=" + result
	}
	return name
}
