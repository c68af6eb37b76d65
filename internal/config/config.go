// Package config defines all configuration structures for the MediMatch
// platform.  No I/O or parsing logic lives here, only plain data types and
// validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	RateLimitRPS    float64       `mapstructure:"rate_limit_rps"`
	RateLimitBurst  int           `mapstructure:"rate_limit_burst"`
}

// DatabaseConfig holds PostgreSQL connection parameters.
type DatabaseConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxConns        int           `mapstructure:"max_conns"`
	MinConns        int           `mapstructure:"min_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	ConnMaxIdleTime time.Duration `mapstructure:"conn_max_idle_time"`
	MigrationPath   string        `mapstructure:"migration_path"`
}

// RedisConfig holds Redis connection parameters.
type RedisConfig struct {
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	PoolSize     int           `mapstructure:"pool_size"`
	MinIdleConns int           `mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// KafkaConfig holds Apache Kafka producer/consumer parameters.
type KafkaConfig struct {
	Brokers         []string `mapstructure:"brokers"`
	GroupID         string   `mapstructure:"group_id"`
	AutoOffsetReset string   `mapstructure:"auto_offset_reset"` // "earliest" | "latest"
	ProducerRetries int      `mapstructure:"producer_retries"`
	BatchSize       int      `mapstructure:"batch_size"`
}

// MinIOConfig holds MinIO / S3-compatible object-storage parameters.  The
// platform stores uploaded prescription images here.
type MinIOConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	AccessKey     string        `mapstructure:"access_key"`
	SecretKey     string        `mapstructure:"secret_key"`
	Bucket        string        `mapstructure:"bucket"`
	UseSSL        bool          `mapstructure:"use_ssl"`
	PresignExpiry time.Duration `mapstructure:"presign_expiry"`
}

// MilvusConfig holds Milvus vector-store connection parameters.  Molecular
// fingerprints are indexed as binary vectors with Jaccard distance.
type MilvusConfig struct {
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	FingerprintBits  int    `mapstructure:"fingerprint_bits"`
	DefaultTopK      int    `mapstructure:"default_top_k"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

// Neo4jConfig holds Neo4j knowledge-graph connection parameters.
type Neo4jConfig struct {
	URI                   string        `mapstructure:"uri"`
	User                  string        `mapstructure:"user"`
	Password              string        `mapstructure:"password"`
	MaxConnectionPoolSize int           `mapstructure:"max_connection_pool_size"`
	ConnectionTimeout     time.Duration `mapstructure:"connection_timeout"`
	Database              string        `mapstructure:"database"`
}

// OpenSearchConfig holds OpenSearch cluster connection parameters used for
// drug name and free-text search.
type OpenSearchConfig struct {
	Addresses          []string `mapstructure:"addresses"`
	User               string   `mapstructure:"user"`
	Password           string   `mapstructure:"password"`
	InsecureSkipVerify bool     `mapstructure:"insecure_skip_verify"`
	IndexPrefix        string   `mapstructure:"index_prefix"`
	BulkBatchSize      int      `mapstructure:"bulk_batch_size"`
}

// APIEndpointConfig is the common shape for a single external HTTP data
// source: a base URL, an optional API key, and a request timeout.
type APIEndpointConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

// ExternalConfig groups every upstream drug-data source the lookup pipeline
// consults.  DrugCentral's public endpoint presents an invalid TLS chain, so
// it carries an explicit InsecureSkipVerify escape hatch.
type ExternalConfig struct {
	ChEMBL                        APIEndpointConfig `mapstructure:"chembl"`
	PubChem                       APIEndpointConfig `mapstructure:"pubchem"`
	DrugCentral                   APIEndpointConfig `mapstructure:"drugcentral"`
	DrugCentralInsecureSkipVerify bool              `mapstructure:"drugcentral_insecure_skip_verify"`
	RxNorm                        APIEndpointConfig `mapstructure:"rxnorm"`
	Serper                        APIEndpointConfig `mapstructure:"serper"`
	ArXiv                         APIEndpointConfig `mapstructure:"arxiv"`
}

// LLMConfig holds parameters for the chat-completion and vision providers.
type LLMConfig struct {
	GroqBaseURL      string        `mapstructure:"groq_base_url"`
	GroqAPIKey       string        `mapstructure:"groq_api_key"`
	GroqModel        string        `mapstructure:"groq_model"`
	GroqTimeout      time.Duration `mapstructure:"groq_timeout"`
	GeminiBaseURL    string        `mapstructure:"gemini_base_url"`
	GeminiAPIKey     string        `mapstructure:"gemini_api_key"`
	GeminiModel      string        `mapstructure:"gemini_model"`
	GeminiTimeout    time.Duration `mapstructure:"gemini_timeout"`
	MaxOutputTokens  int           `mapstructure:"max_output_tokens"`
	Temperature      float64       `mapstructure:"temperature"`
	ContextChunkSize int           `mapstructure:"context_chunk_size"`
}

// OCRConfig holds parameters for the hosted prescription-OCR service.  The
// Gemini vision fallback shares the LLM section's Gemini credentials.
type OCRConfig struct {
	Endpoint      string        `mapstructure:"endpoint"`
	APIKey        string        `mapstructure:"api_key"`
	Timeout       time.Duration `mapstructure:"timeout"`
	MaxImageBytes int64         `mapstructure:"max_image_bytes"`
}

// WorkerConfig holds background-worker execution parameters for the async
// prescription-OCR consumer.
type WorkerConfig struct {
	Concurrency    int           `mapstructure:"concurrency"`
	MaxRetries     int           `mapstructure:"max_retries"`
	RetryBackoff   time.Duration `mapstructure:"retry_backoff"`
	CommitInterval time.Duration `mapstructure:"commit_interval"`
}

// PredictionConfig holds tunables for the similarity-based target predictor.
type PredictionConfig struct {
	FingerprintBits  int     `mapstructure:"fingerprint_bits"`
	MorganRadius     int     `mapstructure:"morgan_radius"`
	TopK             int     `mapstructure:"top_k"`
	MinSimilarity    float64 `mapstructure:"min_similarity"`
	FingerprintCache int     `mapstructure:"fingerprint_cache"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "text"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the entire platform.
// Every infrastructure component and application service reads its settings
// from the relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	MinIO      MinIOConfig      `mapstructure:"minio"`
	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Neo4j      Neo4jConfig      `mapstructure:"neo4j"`
	OpenSearch OpenSearchConfig `mapstructure:"opensearch"`
	External   ExternalConfig   `mapstructure:"external"`
	LLM        LLMConfig        `mapstructure:"llm"`
	OCR        OCRConfig        `mapstructure:"ocr"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Prediction PredictionConfig `mapstructure:"prediction"`
	Log        LogConfig        `mapstructure:"log"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Validation
// ─────────────────────────────────────────────────────────────────────────────

// Validate performs semantic validation of the fully-populated Config.
// It returns the first error encountered; callers should treat any error as
// fatal and refuse to start the application.
func (c *Config) Validate() error {
	// Server
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port %d is out of range [1, 65535]", c.Server.Port)
	}
	switch c.Server.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("config: server.mode %q is invalid; expected debug|release|test", c.Server.Mode)
	}

	// Database
	if c.Database.Host == "" {
		return fmt.Errorf("config: database.host is required")
	}
	if c.Database.Port < 1 || c.Database.Port > 65535 {
		return fmt.Errorf("config: database.port %d is out of range [1, 65535]", c.Database.Port)
	}
	if c.Database.User == "" {
		return fmt.Errorf("config: database.user is required")
	}
	if c.Database.DBName == "" {
		return fmt.Errorf("config: database.db_name is required")
	}
	if c.Database.MaxConns < 1 {
		return fmt.Errorf("config: database.max_conns must be >= 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be >= 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.GroupID == "" {
		return fmt.Errorf("config: kafka.group_id is required")
	}

	// External sources
	for _, src := range []struct {
		name string
		cfg  APIEndpointConfig
	}{
		{"chembl", c.External.ChEMBL},
		{"pubchem", c.External.PubChem},
		{"drugcentral", c.External.DrugCentral},
		{"rxnorm", c.External.RxNorm},
	} {
		if src.cfg.BaseURL == "" {
			return fmt.Errorf("config: external.%s.base_url is required", src.name)
		}
	}

	// Prediction
	if c.Prediction.FingerprintBits < 64 {
		return fmt.Errorf("config: prediction.fingerprint_bits must be >= 64, got %d", c.Prediction.FingerprintBits)
	}
	if c.Prediction.MorganRadius < 1 {
		return fmt.Errorf("config: prediction.morgan_radius must be >= 1, got %d", c.Prediction.MorganRadius)
	}
	if c.Prediction.TopK < 1 {
		return fmt.Errorf("config: prediction.top_k must be >= 1, got %d", c.Prediction.TopK)
	}
	if c.Prediction.MinSimilarity < 0 || c.Prediction.MinSimilarity > 1 {
		return fmt.Errorf("config: prediction.min_similarity %v is out of range [0, 1]", c.Prediction.MinSimilarity)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be >= 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "text":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|text", c.Log.Format)
	}

	return nil
}
