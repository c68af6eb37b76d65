package prometheus

// AppMetrics holds every application metric, grouped by concern.
type AppMetrics struct {
	// HTTP layer
	HTTPRequestsTotal   CounterVec
	HTTPRequestDuration HistogramVec
	HTTPActiveRequests  GaugeVec
	HTTPResponseSize    HistogramVec

	// Drug search and lookup
	SearchRequestsTotal    CounterVec
	SearchDuration         HistogramVec
	SearchCorrectionsTotal CounterVec
	LookupSourceTotal      CounterVec
	ExternalRequestsTotal  CounterVec
	ExternalDuration       HistogramVec

	// Molecular prediction
	PredictionRequestsTotal     CounterVec
	PredictionDuration          HistogramVec
	PredictionCandidates        HistogramVec
	FingerprintCacheHitsTotal   CounterVec
	FingerprintCacheMissesTotal CounterVec

	// Prescription OCR pipeline
	OCRProcessedTotal  CounterVec
	OCRDuration        HistogramVec
	OCRRetriesTotal    CounterVec
	OCRDeadLetterTotal CounterVec
	OCRQueueLag        GaugeVec

	// LLM assistant
	LLMRequestsTotal CounterVec
	LLMDuration      HistogramVec
	LLMTokensUsed    CounterVec

	// Infrastructure
	DBPoolSize         GaugeVec
	DBPoolActive       GaugeVec
	DBQueryDuration    HistogramVec
	CacheHitsTotal     CounterVec
	CacheMissesTotal   CounterVec
	VectorSearchDuration HistogramVec

	// System health
	HealthCheckStatus GaugeVec
	ErrorsTotal       CounterVec
}

// Histogram buckets per concern.
var (
	DefaultHTTPDurationBuckets     = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10}
	DefaultExternalDurationBuckets = []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30}
	DefaultOCRDurationBuckets      = []float64{.5, 1, 2.5, 5, 10, 30, 60, 120}
	DefaultLLMDurationBuckets      = []float64{.5, 1, 2, 5, 10, 30, 60}
	DefaultDBDurationBuckets       = []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 5}
	DefaultSizeBuckets             = []float64{100, 1000, 10000, 100000, 1000000, 10000000}
	DefaultCandidateCountBuckets   = []float64{0, 10, 50, 100, 250, 500, 1000}
)

// NewAppMetrics registers all application metrics on collector.
func NewAppMetrics(collector MetricsCollector) *AppMetrics {
	m := &AppMetrics{}

	// HTTP
	m.HTTPRequestsTotal = collector.RegisterCounter("http_requests_total", "Total HTTP requests", "method", "path", "status_code")
	m.HTTPRequestDuration = collector.RegisterHistogram("http_request_duration_seconds", "HTTP request duration", DefaultHTTPDurationBuckets, "method", "path")
	m.HTTPActiveRequests = collector.RegisterGauge("http_active_requests", "In-flight HTTP requests")
	m.HTTPResponseSize = collector.RegisterHistogram("http_response_size_bytes", "HTTP response size", DefaultSizeBuckets, "method", "path")

	// Drug search and lookup
	m.SearchRequestsTotal = collector.RegisterCounter("search_requests_total", "Drug search requests", "status")
	m.SearchDuration = collector.RegisterHistogram("search_duration_seconds", "Drug search duration", DefaultHTTPDurationBuckets, "backend")
	m.SearchCorrectionsTotal = collector.RegisterCounter("search_corrections_total", "Searches answered via fuzzy correction")
	m.LookupSourceTotal = collector.RegisterCounter("lookup_source_total", "Drug lookups by serving source", "source")
	m.ExternalRequestsTotal = collector.RegisterCounter("external_requests_total", "External API requests", "source", "status")
	m.ExternalDuration = collector.RegisterHistogram("external_request_duration_seconds", "External API request duration", DefaultExternalDurationBuckets, "source")

	// Molecular prediction
	m.PredictionRequestsTotal = collector.RegisterCounter("prediction_requests_total", "Target prediction requests", "status")
	m.PredictionDuration = collector.RegisterHistogram("prediction_duration_seconds", "Target prediction duration", DefaultHTTPDurationBuckets, "stage")
	m.PredictionCandidates = collector.RegisterHistogram("prediction_candidates", "Candidates scored per prediction", DefaultCandidateCountBuckets)
	m.FingerprintCacheHitsTotal = collector.RegisterCounter("fingerprint_cache_hits_total", "Fingerprint cache hits")
	m.FingerprintCacheMissesTotal = collector.RegisterCounter("fingerprint_cache_misses_total", "Fingerprint cache misses")

	// Prescription OCR pipeline
	m.OCRProcessedTotal = collector.RegisterCounter("ocr_processed_total", "Prescriptions processed", "engine", "status")
	m.OCRDuration = collector.RegisterHistogram("ocr_duration_seconds", "Prescription OCR duration", DefaultOCRDurationBuckets, "engine")
	m.OCRRetriesTotal = collector.RegisterCounter("ocr_retries_total", "OCR message retries")
	m.OCRDeadLetterTotal = collector.RegisterCounter("ocr_dead_letter_total", "OCR messages dead-lettered")
	m.OCRQueueLag = collector.RegisterGauge("ocr_queue_lag", "Consumer lag on the OCR topic", "topic")

	// LLM assistant
	m.LLMRequestsTotal = collector.RegisterCounter("llm_requests_total", "LLM assistant requests", "endpoint", "status")
	m.LLMDuration = collector.RegisterHistogram("llm_request_duration_seconds", "LLM request duration", DefaultLLMDurationBuckets, "endpoint")
	m.LLMTokensUsed = collector.RegisterCounter("llm_tokens_used_total", "LLM tokens consumed", "endpoint", "kind")

	// Infrastructure
	m.DBPoolSize = collector.RegisterGauge("db_pool_size", "Database connection pool size", "pool")
	m.DBPoolActive = collector.RegisterGauge("db_pool_active", "Acquired database connections", "pool")
	m.DBQueryDuration = collector.RegisterHistogram("db_query_duration_seconds", "Database query duration", DefaultDBDurationBuckets, "query")
	m.CacheHitsTotal = collector.RegisterCounter("cache_hits_total", "Redis cache hits", "cache")
	m.CacheMissesTotal = collector.RegisterCounter("cache_misses_total", "Redis cache misses", "cache")
	m.VectorSearchDuration = collector.RegisterHistogram("vector_search_duration_seconds", "Fingerprint vector search duration", DefaultDBDurationBuckets, "collection")

	// System health
	m.HealthCheckStatus = collector.RegisterGauge("health_check_status", "Component health (1 healthy, 0 unhealthy)", "component")
	m.ErrorsTotal = collector.RegisterCounter("errors_total", "Errors by component and code", "component", "code")

	return m
}
