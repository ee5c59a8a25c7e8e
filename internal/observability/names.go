// Package observability provides OpenTelemetry metrics and tracing and the trace-aware log handler.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNameHTTPRequests          = "legalqa_http_requests_total"
	MetricNameHTTPRequestDuration   = "legalqa_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge   = "legalqa_request_body_too_large_total"
	MetricNameRetrievalDuration     = "legalqa_retrieval_duration_seconds"
	MetricNameRetrievalSources      = "legalqa_retrieval_sources"
	MetricNameRetrievalTopScore     = "legalqa_retrieval_top_similarity"
	MetricNameRetrievalFailures     = "legalqa_retrieval_failures_total"
	MetricNameGenerationDuration    = "legalqa_generation_duration_seconds"
	MetricNameGenerationOutcomes    = "legalqa_generation_outcomes_total"
	MetricNameNoSourceAnswers       = "legalqa_no_source_answers_total"
	MetricNameIndexingOutcomes      = "legalqa_indexing_outcomes_total"
	MetricNameCacheHits             = "legalqa_cache_hits_total"
	MetricNameCacheMisses           = "legalqa_cache_misses_total"
	durationHistogramInstrumentGlob = "legalqa_*_duration_seconds"
)

// Attribute keys.
const (
	AttrReason = "reason"
	AttrStatus = "status"
	AttrCache  = "cache"
)

// AllowedRetrievalReasons for legalqa_retrieval_failures_total.
var AllowedRetrievalReasons = map[string]bool{
	"embedding_failed":   true,
	"index_query_failed": true,
}

// AllowedOutcomes for legalqa_generation_outcomes_total and legalqa_indexing_outcomes_total.
var AllowedOutcomes = map[string]bool{
	"success": true,
	"failed":  true,
}

// AllowedCacheNames for the cache hit/miss counters.
var AllowedCacheNames = map[string]bool{
	"query_embedding": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeOutcome returns outcome if in AllowedOutcomes, otherwise "other".
func NormalizeOutcome(outcome string) string {
	return NormalizeReason(outcome, AllowedOutcomes)
}

// NormalizeCacheName returns name if in AllowedCacheNames, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}
