package apolloAuth

import (
	internalmetrics "github.com/MrEthical07/apolloAuth/internal/metrics"
)

// MetricID identifies a counter or histogram in the in-process metrics system.
type MetricID = internalmetrics.MetricID

const (
	// MetricLoginSuccess counts logins committed to the session.
	MetricLoginSuccess MetricID = iota
	// MetricLoginFailure counts logins the credential exchange rejected.
	MetricLoginFailure
	MetricSignupSuccess
	MetricSignupFailure
	// MetricValidationRejected counts login or signup inputs rejected before any
	// network call.
	MetricValidationRejected
	// MetricMalformedResult counts exchange successes missing a token or user.
	MetricMalformedResult
	MetricRehydrateSuccess
	MetricRehydrateFailure
	// MetricRehydrateSkipped counts fetches not run because no token was held or
	// the fetch was disabled.
	MetricRehydrateSkipped
	// MetricRehydrateDiscarded counts fetched identities dropped because the
	// token changed while the fetch was in flight.
	MetricRehydrateDiscarded
	MetricRehydrateShared
	MetricLogout
	MetricSlotReadFailure
	MetricSlotWriteFailure
	MetricSlotClearFailure
	MetricCacheHit
	MetricCacheMiss
	MetricCacheWriteFailure
	MetricCacheClearFailure
	// MetricExchangeLatency is the latency histogram of credential exchange calls.
	MetricExchangeLatency
	metricIDCount
)

// MetricsSnapshot is a point-in-time copy of all counters and histograms.
type MetricsSnapshot = internalmetrics.Snapshot

// Metrics is the coordinator's lock-free metric registry.
type Metrics = internalmetrics.Registry

// NewMetrics returns a registry sized for the coordinator's metric IDs.
func NewMetrics(cfg MetricsConfig) *Metrics {
	return internalmetrics.New(internalmetrics.Config{
		Enabled:                 cfg.Enabled,
		EnableLatencyHistograms: cfg.EnableLatencyHistograms,
	}, int(metricIDCount), MetricExchangeLatency)
}
