package internaldefs

import (
	apolloAuth "github.com/MrEthical07/apolloAuth"
	internalmetrics "github.com/MrEthical07/apolloAuth/internal/metrics"
)

// CounterDef names one coordinator counter for export.
type CounterDef struct {
	ID   apolloAuth.MetricID
	Name string
	Help string
}

// HistogramDef names one coordinator latency histogram for export.
type HistogramDef struct {
	ID   apolloAuth.MetricID
	Name string
	Help string
}

// EventsDroppedName is the counter of session events lost to backpressure.
const EventsDroppedName = "apollo_events_dropped_total"

// CounterDefs lists every exported counter in exposition order.
var CounterDefs = []CounterDef{
	{ID: apolloAuth.MetricLoginSuccess, Name: "apollo_login_success_total", Help: "Logins committed to the session."},
	{ID: apolloAuth.MetricLoginFailure, Name: "apollo_login_failure_total", Help: "Logins rejected by the credential exchange."},
	{ID: apolloAuth.MetricSignupSuccess, Name: "apollo_signup_success_total", Help: "Signups committed to the session."},
	{ID: apolloAuth.MetricSignupFailure, Name: "apollo_signup_failure_total", Help: "Signups rejected by the credential exchange."},
	{ID: apolloAuth.MetricValidationRejected, Name: "apollo_validation_rejected_total", Help: "Login or signup inputs rejected before any network call."},
	{ID: apolloAuth.MetricMalformedResult, Name: "apollo_malformed_result_total", Help: "Exchange successes missing a token or user."},
	{ID: apolloAuth.MetricRehydrateSuccess, Name: "apollo_rehydrate_success_total", Help: "Identity fetches applied to the session."},
	{ID: apolloAuth.MetricRehydrateFailure, Name: "apollo_rehydrate_failure_total", Help: "Identity fetches that failed."},
	{ID: apolloAuth.MetricRehydrateSkipped, Name: "apollo_rehydrate_skipped_total", Help: "Identity fetches not run."},
	{ID: apolloAuth.MetricRehydrateDiscarded, Name: "apollo_rehydrate_discarded_total", Help: "Fetched identities dropped because the token changed."},
	{ID: apolloAuth.MetricRehydrateShared, Name: "apollo_rehydrate_shared_total", Help: "Identity fetch calls that joined one already in flight."},
	{ID: apolloAuth.MetricLogout, Name: "apollo_logout_total", Help: "Logout operations."},
	{ID: apolloAuth.MetricSlotReadFailure, Name: "apollo_slot_read_failure_total", Help: "Token slot read failures."},
	{ID: apolloAuth.MetricSlotWriteFailure, Name: "apollo_slot_write_failure_total", Help: "Token slot write failures."},
	{ID: apolloAuth.MetricSlotClearFailure, Name: "apollo_slot_clear_failure_total", Help: "Token slot clear failures."},
	{ID: apolloAuth.MetricCacheHit, Name: "apollo_cache_hit_total", Help: "Current-user reads served from the request cache."},
	{ID: apolloAuth.MetricCacheMiss, Name: "apollo_cache_miss_total", Help: "Current-user reads that missed the request cache."},
	{ID: apolloAuth.MetricCacheWriteFailure, Name: "apollo_cache_write_failure_total", Help: "Request cache write failures."},
	{ID: apolloAuth.MetricCacheClearFailure, Name: "apollo_cache_clear_failure_total", Help: "Request cache wipe failures."},
}

// HistogramDefs lists every exported histogram.
var HistogramDefs = []HistogramDef{
	{ID: apolloAuth.MetricExchangeLatency, Name: "apollo_exchange_latency_seconds", Help: "Credential exchange call latency."},
}

// HistogramBounds are the upper bounds of the registry buckets, in seconds.
var HistogramBounds = [internalmetrics.HistogramBucketCount]string{
	"0.005",
	"0.01",
	"0.025",
	"0.05",
	"0.1",
	"0.25",
	"0.5",
	"+Inf",
}

// HistogramBoundSuffix spells HistogramBounds for use in instrument names.
var HistogramBoundSuffix = [internalmetrics.HistogramBucketCount]string{
	"0_005",
	"0_01",
	"0_025",
	"0_05",
	"0_1",
	"0_25",
	"0_5",
	"inf",
}

// Buckets is one histogram's counts, one per bound.
type Buckets = [internalmetrics.HistogramBucketCount]uint64

// NormalizeBuckets copies raw into a fixed-size array. Missing buckets are zero.
func NormalizeBuckets(raw []uint64) Buckets {
	var out Buckets
	copy(out[:], raw)
	return out
}

// CumulativeBuckets turns per-bucket counts into running totals.
func CumulativeBuckets(raw Buckets) Buckets {
	var out Buckets
	var running uint64
	for i, v := range raw {
		running += v
		out[i] = running
	}
	return out
}
