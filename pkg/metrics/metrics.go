// Package metrics exposes the Prometheus registry shared by the gateway packages.
// All metrics are defined in their respective packages (client, cache, credits, gated)
// to maintain modularity and avoid circular dependencies.
//
// This package serves them and documents every metric name.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the gateway.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer collects what was registered with Registry.
var Gatherer = prometheus.DefaultGatherer

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.InstrumentMetricHandler(Registry, promhttp.HandlerFor(Gatherer, promhttp.HandlerOpts{}))
}

// Names lists every metric registered by the gateway packages.
var Names = []string{
	"seo_function_requests_total",
	"seo_function_request_duration_seconds",
	"seo_function_errors_total",
	"seo_function_retries_total",
	"seo_function_retry_backoff_seconds",
	"seo_function_retry_exhausted_total",
	"seo_cache_hits_total",
	"seo_cache_misses_total",
	"seo_cache_size_bytes",
	"seo_cache_errors_total",
	"seo_cache_skipped_total",
	"seo_credits_deducted_total",
	"seo_credits_refunded_total",
	"seo_credits_insufficient_total",
	"seo_credits_errors_total",
	"seo_gated_runs_total",
	"seo_gated_run_duration_seconds",
	"seo_gated_refunds_total",
}

// Metrics Documentation
//
// Function Metrics (pkg/client):
//   - seo_function_requests_total{function, status} (Counter): Calls by function and HTTP status ("cached" for cache hits)
//   - seo_function_request_duration_seconds{function} (Histogram): Call duration by function
//   - seo_function_errors_total{class} (Counter): Errors by class (client, server, rate_limit, network)
//
// Retry Metrics (pkg/client):
//   - seo_function_retries_total{error_class} (Counter): Retry attempts by error class
//   - seo_function_retry_backoff_seconds{error_class} (Histogram): Backoff duration by error class
//   - seo_function_retry_exhausted_total{error_class} (Counter): Calls that exhausted max retries
//
// Cache Metrics (pkg/cache):
//   - seo_cache_hits_total{layer="redis"} (Counter): Cache hits by layer
//   - seo_cache_misses_total (Counter): Cache misses
//   - seo_cache_size_bytes{layer="redis"} (Gauge): Bytes written to the cache
//   - seo_cache_errors_total{operation} (Counter): Cache operation errors
//   - seo_cache_skipped_total{reason} (Counter): Responses not stored (status, invalid_json, empty, expired)
//
// Credit Metrics (pkg/credits):
//   - seo_credits_deducted_total{label} (Counter): Credits charged per page label
//   - seo_credits_refunded_total{label} (Counter): Credits returned for discarded runs
//   - seo_credits_insufficient_total{operation} (Counter): Checks and deductions refused for low balance
//   - seo_credits_errors_total{operation} (Counter): Redis failures by operation
//
// Page Metrics (pkg/gated):
//   - seo_gated_runs_total{page, outcome} (Counter): Lifecycle runs by page and outcome
//   - seo_gated_run_duration_seconds{page} (Histogram): Run duration from start to commit
//   - seo_gated_refunds_total{page, result} (Counter): Refunds of runs superseded after deduction (ok, error)
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate
//   sum(rate(seo_cache_hits_total[5m])) /
//   (sum(rate(seo_cache_hits_total[5m])) + sum(rate(seo_cache_misses_total[5m])))
//
//   # Share of runs stopped by low balance
//   sum(rate(seo_gated_runs_total{outcome="insufficient"}[1h])) / sum(rate(seo_gated_runs_total[1h]))
//
//   # Charge failures (data shown, credits not taken)
//   rate(seo_gated_runs_total{outcome="charge_failed"}[5m])
//
//   # P95 Function Latency
//   histogram_quantile(0.95, rate(seo_function_request_duration_seconds_bucket[5m]))
//
//   # Credits spent per page
//   sum by (label) (rate(seo_credits_deducted_total[1d]))
