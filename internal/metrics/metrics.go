package metrics

import (
	"sync/atomic"
	"time"
)

// MetricID indexes a counter or histogram in a [Registry].
type MetricID uint16

const (
	// HistogramBucketCount is the number of latency buckets per histogram.
	HistogramBucketCount = 8
	cacheLineSize        = 64
)

// Config enables collection.
type Config struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

type histogram struct {
	buckets [HistogramBucketCount]uint64
}

type paddedCounter struct {
	value uint64
	_     [cacheLineSize - 8]byte
}

// Registry holds a fixed set of counters and the histograms named at
// construction. A nil *Registry is valid and records nothing.
type Registry struct {
	enabled       bool
	enableLatency bool
	counters      []paddedCounter
	histograms    map[MetricID]*histogram
}

// Snapshot is a point-in-time copy of a [Registry].
type Snapshot struct {
	Counters   map[MetricID]uint64
	Histograms map[MetricID][]uint64
}

// New returns a registry with counterCount counters. Only IDs listed in
// histogramIDs accept Observe.
func New(cfg Config, counterCount int, histogramIDs ...MetricID) *Registry {
	r := &Registry{
		enabled:       cfg.Enabled,
		enableLatency: cfg.Enabled && cfg.EnableLatencyHistograms,
		counters:      make([]paddedCounter, counterCount),
		histograms:    make(map[MetricID]*histogram, len(histogramIDs)),
	}
	for _, id := range histogramIDs {
		r.histograms[id] = &histogram{}
	}
	return r
}

func (r *Registry) Enabled() bool {
	return r != nil && r.enabled
}

func (r *Registry) LatencyEnabled() bool {
	return r != nil && r.enableLatency
}

// Inc adds one to the counter for id.
func (r *Registry) Inc(id MetricID) {
	if r == nil || !r.enabled || int(id) >= len(r.counters) {
		return
	}
	atomic.AddUint64(&r.counters[id].value, 1)
}

// Observe records d in the histogram for id. IDs without a histogram are ignored.
func (r *Registry) Observe(id MetricID, d time.Duration) {
	if r == nil || !r.enableLatency {
		return
	}
	h, ok := r.histograms[id]
	if !ok {
		return
	}
	atomic.AddUint64(&h.buckets[BucketIndex(d)], 1)
}

// Value returns the current counter value for id.
func (r *Registry) Value(id MetricID) uint64 {
	if r == nil || int(id) >= len(r.counters) {
		return 0
	}
	return atomic.LoadUint64(&r.counters[id].value)
}

// Snapshot copies every counter, and every histogram when latency collection
// is enabled.
func (r *Registry) Snapshot() Snapshot {
	if r == nil || !r.enabled {
		return Snapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}

	s := Snapshot{
		Counters:   make(map[MetricID]uint64, len(r.counters)),
		Histograms: make(map[MetricID][]uint64, len(r.histograms)),
	}
	for i := range r.counters {
		s.Counters[MetricID(i)] = atomic.LoadUint64(&r.counters[i].value)
	}

	if r.enableLatency {
		for id, h := range r.histograms {
			buckets := make([]uint64, HistogramBucketCount)
			for i := range buckets {
				buckets[i] = atomic.LoadUint64(&h.buckets[i])
			}
			s.Histograms[id] = buckets
		}
	}

	return s
}

// BucketIndex maps d to its histogram bucket:
// ≤5ms, ≤10ms, ≤25ms, ≤50ms, ≤100ms, ≤250ms, ≤500ms, +Inf.
func BucketIndex(d time.Duration) int {
	ms := d.Milliseconds()

	switch {
	case ms <= 5:
		return 0
	case ms <= 10:
		return 1
	case ms <= 25:
		return 2
	case ms <= 50:
		return 3
	case ms <= 100:
		return 4
	case ms <= 250:
		return 5
	case ms <= 500:
		return 6
	default:
		return 7
	}
}
