// Package config provides configuration loading, defaults, and validation
// for the MediMatch platform.
package config

import "time"

// ─────────────────────────────────────────────────────────────────────────────
// Default value constants
// ─────────────────────────────────────────────────────────────────────────────

const (
	DefaultServerPort = 8080
	DefaultServerMode = "debug"

	DefaultDBHost     = "localhost"
	DefaultDBPort     = 5432
	DefaultDBName     = "medimatch"
	DefaultDBMaxConns = 25

	DefaultRedisAddr = "localhost:6379"

	DefaultKafkaBroker  = "localhost:9092"
	DefaultKafkaGroupID = "medimatch-ocr"

	DefaultMinIOEndpoint = "localhost:9000"
	DefaultMinIOBucket   = "prescriptions"

	DefaultMilvusAddr = "localhost:19530"

	DefaultNeo4jURI = "bolt://localhost:7687"

	DefaultChEMBLBaseURL      = "https://www.ebi.ac.uk/chembl/api/data"
	DefaultPubChemBaseURL     = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"
	DefaultDrugCentralBaseURL = "https://drugcentral.org/api/v1"
	DefaultRxNormBaseURL      = "https://rxnav.nlm.nih.gov/REST"
	DefaultSerperBaseURL      = "https://google.serper.dev"
	DefaultArXivBaseURL       = "http://export.arxiv.org/api/query"

	DefaultGroqBaseURL   = "https://api.groq.com/openai/v1"
	DefaultGroqModel     = "llama-3.3-70b-versatile"
	DefaultGeminiBaseURL = "https://generativelanguage.googleapis.com/v1beta"
	DefaultGeminiModel   = "gemini-1.5-flash"

	DefaultFingerprintBits = 2048
	DefaultMorganRadius    = 2
	DefaultPredictionTopK  = 5

	DefaultWorkerConcurrency = 4

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"
)

// ApplyDefaults fills every zero-value field in cfg with the platform
// default.  Fields that have already been set by the caller (non-zero values)
// are left unchanged so that explicit configuration always wins.
func ApplyDefaults(cfg *Config) {
	if cfg == nil {
		return
	}

	// ── Server ────────────────────────────────────────────────────────────────
	if cfg.Server.Port == 0 {
		cfg.Server.Port = DefaultServerPort
	}
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = DefaultServerMode
	}
	if cfg.Server.ReadTimeout == 0 {
		cfg.Server.ReadTimeout = 15 * time.Second
	}
	if cfg.Server.WriteTimeout == 0 {
		cfg.Server.WriteTimeout = 30 * time.Second
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
	}
	if cfg.Server.MaxBodySize == 0 {
		cfg.Server.MaxBodySize = 16 << 20 // prescription image uploads
	}
	if cfg.Server.RateLimitRPS == 0 {
		cfg.Server.RateLimitRPS = 50
	}
	if cfg.Server.RateLimitBurst == 0 {
		cfg.Server.RateLimitBurst = 100
	}

	// ── Database ──────────────────────────────────────────────────────────────
	if cfg.Database.Host == "" {
		cfg.Database.Host = DefaultDBHost
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = DefaultDBPort
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = DefaultDBName
	}
	if cfg.Database.MaxConns == 0 {
		cfg.Database.MaxConns = DefaultDBMaxConns
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MigrationPath == "" {
		cfg.Database.MigrationPath = "file://internal/infrastructure/database/postgres/migrations"
	}

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.DefaultTTL == 0 {
		cfg.Redis.DefaultTTL = time.Hour
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "medimatch"
	}

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.AutoOffsetReset == "" {
		cfg.Kafka.AutoOffsetReset = "earliest"
	}

	// ── MinIO ─────────────────────────────────────────────────────────────────
	if cfg.MinIO.Endpoint == "" {
		cfg.MinIO.Endpoint = DefaultMinIOEndpoint
	}
	if cfg.MinIO.Bucket == "" {
		cfg.MinIO.Bucket = DefaultMinIOBucket
	}
	if cfg.MinIO.PresignExpiry == 0 {
		cfg.MinIO.PresignExpiry = 15 * time.Minute
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.FingerprintBits == 0 {
		cfg.Milvus.FingerprintBits = DefaultFingerprintBits
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = 10
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = "medimatch"
	}

	// ── Neo4j ─────────────────────────────────────────────────────────────────
	if cfg.Neo4j.URI == "" {
		cfg.Neo4j.URI = DefaultNeo4jURI
	}
	if cfg.Neo4j.Database == "" {
		cfg.Neo4j.Database = "neo4j"
	}
	if cfg.Neo4j.ConnectionTimeout == 0 {
		cfg.Neo4j.ConnectionTimeout = 10 * time.Second
	}

	// ── OpenSearch ────────────────────────────────────────────────────────────
	if len(cfg.OpenSearch.Addresses) == 0 {
		cfg.OpenSearch.Addresses = []string{"http://localhost:9200"}
	}
	if cfg.OpenSearch.IndexPrefix == "" {
		cfg.OpenSearch.IndexPrefix = "medimatch"
	}
	if cfg.OpenSearch.BulkBatchSize == 0 {
		cfg.OpenSearch.BulkBatchSize = 500
	}

	// ── External sources ──────────────────────────────────────────────────────
	applyEndpointDefaults(&cfg.External.ChEMBL, DefaultChEMBLBaseURL, 15*time.Second)
	applyEndpointDefaults(&cfg.External.PubChem, DefaultPubChemBaseURL, 15*time.Second)
	applyEndpointDefaults(&cfg.External.DrugCentral, DefaultDrugCentralBaseURL, 15*time.Second)
	applyEndpointDefaults(&cfg.External.RxNorm, DefaultRxNormBaseURL, 10*time.Second)
	applyEndpointDefaults(&cfg.External.Serper, DefaultSerperBaseURL, 10*time.Second)
	applyEndpointDefaults(&cfg.External.ArXiv, DefaultArXivBaseURL, 15*time.Second)

	// ── LLM ───────────────────────────────────────────────────────────────────
	if cfg.LLM.GroqBaseURL == "" {
		cfg.LLM.GroqBaseURL = DefaultGroqBaseURL
	}
	if cfg.LLM.GroqModel == "" {
		cfg.LLM.GroqModel = DefaultGroqModel
	}
	if cfg.LLM.GroqTimeout == 0 {
		cfg.LLM.GroqTimeout = 60 * time.Second
	}
	if cfg.LLM.GeminiBaseURL == "" {
		cfg.LLM.GeminiBaseURL = DefaultGeminiBaseURL
	}
	if cfg.LLM.GeminiModel == "" {
		cfg.LLM.GeminiModel = DefaultGeminiModel
	}
	if cfg.LLM.GeminiTimeout == 0 {
		cfg.LLM.GeminiTimeout = 60 * time.Second
	}
	if cfg.LLM.MaxOutputTokens == 0 {
		cfg.LLM.MaxOutputTokens = 1024
	}
	if cfg.LLM.ContextChunkSize == 0 {
		cfg.LLM.ContextChunkSize = 4000
	}

	// ── OCR ───────────────────────────────────────────────────────────────────
	if cfg.OCR.Timeout == 0 {
		cfg.OCR.Timeout = 90 * time.Second
	}
	if cfg.OCR.MaxImageBytes == 0 {
		cfg.OCR.MaxImageBytes = 10 << 20
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 2 * time.Second
	}
	if cfg.Worker.CommitInterval == 0 {
		cfg.Worker.CommitInterval = time.Second
	}

	// ── Prediction ────────────────────────────────────────────────────────────
	if cfg.Prediction.FingerprintBits == 0 {
		cfg.Prediction.FingerprintBits = DefaultFingerprintBits
	}
	if cfg.Prediction.MorganRadius == 0 {
		cfg.Prediction.MorganRadius = DefaultMorganRadius
	}
	if cfg.Prediction.TopK == 0 {
		cfg.Prediction.TopK = DefaultPredictionTopK
	}
	if cfg.Prediction.FingerprintCache == 0 {
		cfg.Prediction.FingerprintCache = 4096
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}
}

func applyEndpointDefaults(ep *APIEndpointConfig, baseURL string, timeout time.Duration) {
	if ep.BaseURL == "" {
		ep.BaseURL = baseURL
	}
	if ep.Timeout == 0 {
		ep.Timeout = timeout
	}
}
