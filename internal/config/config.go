// Package config defines all configuration structures for the docintel
// extraction pipeline.  No I/O or parsing logic lives here — only plain data
// types and validation.
package config

import (
	"fmt"
	"time"
)

// ─────────────────────────────────────────────────────────────────────────────
// Sub-configuration structs
// ─────────────────────────────────────────────────────────────────────────────

// ServerConfig holds HTTP server tunables for the review API.
type ServerConfig struct {
	Port            int           `mapstructure:"port"`
	Mode            string        `mapstructure:"mode"` // "debug" | "release" | "test"
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	MaxBodySize     int64         `mapstructure:"max_body_size"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
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

// RedisConfig holds Redis connection parameters.  Redis backs the LLM budget
// window and pipeline checkpoints.
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

// KafkaConfig holds Kafka producer parameters for extraction summary events.
type KafkaConfig struct {
	Brokers         []string      `mapstructure:"brokers"`
	GroupID         string        `mapstructure:"group_id"`
	SummaryTopic    string        `mapstructure:"summary_topic"`
	ProducerRetries int           `mapstructure:"producer_retries"`
	BatchSize       int           `mapstructure:"batch_size"`
	BatchTimeout    time.Duration `mapstructure:"batch_timeout"`
	RequiredAcks    int           `mapstructure:"required_acks"`
}

// MilvusConfig holds Milvus vector-store connection parameters for the
// embedding tier's reference-entity index.
type MilvusConfig struct {
	Addr             string `mapstructure:"addr"`
	DBName           string `mapstructure:"db_name"`
	EmbeddingDim     int    `mapstructure:"embedding_dim"`
	IndexType        string `mapstructure:"index_type"`
	DefaultTopK      int    `mapstructure:"default_top_k"`
	CollectionPrefix string `mapstructure:"collection_prefix"`
}

// TaggerConfig holds parameters for the external statistical tagger service.
type TaggerConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxBatchSize   int           `mapstructure:"max_batch_size"`
}

// LLMConfig holds parameters for the LLM fallback tier.
type LLMConfig struct {
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Model          string        `mapstructure:"model"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	MaxRetries     int           `mapstructure:"max_retries"`

	// BudgetWindow and BudgetMaxCalls bound LLM usage: at most BudgetMaxCalls
	// requests per rolling BudgetWindow.  When exhausted the tier is skipped,
	// never queued.
	BudgetWindow   time.Duration `mapstructure:"budget_window"`
	BudgetMaxCalls int           `mapstructure:"budget_max_calls"`
}

// ConfidenceConfig is the canonical confidence table for every deterministic
// tier.  Source material disagreed on several of these values, so they are
// configuration rather than code; the defaults in defaults.go are the chosen
// canonical set.
type ConfidenceConfig struct {
	CompanyAlias       float64 `mapstructure:"company_alias"`
	Country            float64 `mapstructure:"country"`
	Technology         float64 `mapstructure:"technology"`
	TaxonomyIndustry   float64 `mapstructure:"taxonomy_industry"`
	TaxonomyService    float64 `mapstructure:"taxonomy_service"`
	Product            float64 `mapstructure:"product"`
	ProductAlias       float64 `mapstructure:"product_alias"`
	BusinessTitle      float64 `mapstructure:"business_title"`
	Skill              float64 `mapstructure:"skill"`
	TimeRange          float64 `mapstructure:"time_range"`
	TemporalDescriptor float64 `mapstructure:"temporal_descriptor"`
	Partnership        float64 `mapstructure:"partnership"`

	Money           float64 `mapstructure:"money"`
	Percent         float64 `mapstructure:"percent"`
	DateUnambiguous float64 `mapstructure:"date_unambiguous"`
	DateAmbiguous   float64 `mapstructure:"date_ambiguous"`

	TaggerPersonDate float64 `mapstructure:"tagger_person_date"`
	TaggerNumeric    float64 `mapstructure:"tagger_numeric"`
	TaggerOther      float64 `mapstructure:"tagger_other"`
}

// ExtractionConfig holds tier thresholds and confidence assignments.
// Confidence values are calibration constants; changing them changes
// downstream review workload, so they live in configuration rather than code.
type ExtractionConfig struct {
	// Confidence is the per-source confidence table.
	Confidence ConfidenceConfig `mapstructure:"confidence"`

	// ConfidenceFloor is the fusion-output threshold below which the LLM
	// fallback tier is consulted for a chunk.
	ConfidenceFloor float64 `mapstructure:"confidence_floor"`

	// EmbeddingSimilarityMin is the cosine-similarity cutoff for the embedding
	// tier; candidates below it are discarded.
	EmbeddingSimilarityMin float64 `mapstructure:"embedding_similarity_min"`

	// ContainmentTolerance is the confidence margin within which a longer
	// containing span wins over a contained shorter one during fusion.
	ContainmentTolerance float64 `mapstructure:"containment_tolerance"`

	// MaxChunkWorkers bounds per-document chunk parallelism.
	MaxChunkWorkers int `mapstructure:"max_chunk_workers"`
}

// HeuristicsConfig locates the curated reference-data directory.
type HeuristicsConfig struct {
	Dir         string `mapstructure:"dir"`
	WatchReload bool   `mapstructure:"watch_reload"`
}

// WorkerConfig holds background-worker execution parameters.
type WorkerConfig struct {
	Concurrency       int           `mapstructure:"concurrency"`
	QueueDepth        int           `mapstructure:"queue_depth"`
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RetryBackoff      time.Duration `mapstructure:"retry_backoff"`
}

// LogConfig holds structured-logging parameters.
type LogConfig struct {
	Level            string `mapstructure:"level"`  // "debug" | "info" | "warn" | "error"
	Format           string `mapstructure:"format"` // "json" | "console"
	Output           string `mapstructure:"output"`
	EnableCaller     bool   `mapstructure:"enable_caller"`
	EnableStacktrace bool   `mapstructure:"enable_stacktrace"`
}

// MetricsConfig holds Prometheus exposition parameters.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Path    string `mapstructure:"path"`
	Port    int    `mapstructure:"port"`
}

// ─────────────────────────────────────────────────────────────────────────────
// Root Config
// ─────────────────────────────────────────────────────────────────────────────

// Config is the root configuration structure for the pipeline.  Every
// infrastructure component and extraction tier reads its settings from the
// relevant sub-struct.
type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Kafka      KafkaConfig      `mapstructure:"kafka"`
	Milvus     MilvusConfig     `mapstructure:"milvus"`
	Tagger     TaggerConfig     `mapstructure:"tagger"`
	LLM        LLMConfig        `mapstructure:"llm"`
	Extraction ExtractionConfig `mapstructure:"extraction"`
	Heuristics HeuristicsConfig `mapstructure:"heuristics"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Log        LogConfig        `mapstructure:"log"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
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
		return fmt.Errorf("config: database.max_conns must be ≥ 1, got %d", c.Database.MaxConns)
	}

	// Redis
	if c.Redis.Addr == "" {
		return fmt.Errorf("config: redis.addr is required")
	}
	if c.Redis.DB < 0 {
		return fmt.Errorf("config: redis.db must be ≥ 0, got %d", c.Redis.DB)
	}

	// Kafka
	if len(c.Kafka.Brokers) == 0 {
		return fmt.Errorf("config: kafka.brokers must contain at least one broker address")
	}
	if c.Kafka.SummaryTopic == "" {
		return fmt.Errorf("config: kafka.summary_topic is required")
	}

	// Milvus
	if c.Milvus.Addr == "" {
		return fmt.Errorf("config: milvus.addr is required")
	}
	if c.Milvus.EmbeddingDim < 1 {
		return fmt.Errorf("config: milvus.embedding_dim must be ≥ 1, got %d", c.Milvus.EmbeddingDim)
	}

	// Heuristics
	if c.Heuristics.Dir == "" {
		return fmt.Errorf("config: heuristics.dir is required")
	}

	// Extraction
	if c.Extraction.ConfidenceFloor < 0 || c.Extraction.ConfidenceFloor > 1 {
		return fmt.Errorf("config: extraction.confidence_floor %.2f is out of range [0, 1]", c.Extraction.ConfidenceFloor)
	}
	if c.Extraction.EmbeddingSimilarityMin < 0 || c.Extraction.EmbeddingSimilarityMin > 1 {
		return fmt.Errorf("config: extraction.embedding_similarity_min %.2f is out of range [0, 1]", c.Extraction.EmbeddingSimilarityMin)
	}
	if c.Extraction.MaxChunkWorkers < 1 {
		return fmt.Errorf("config: extraction.max_chunk_workers must be ≥ 1, got %d", c.Extraction.MaxChunkWorkers)
	}

	// LLM budget
	if c.LLM.BudgetMaxCalls < 0 {
		return fmt.Errorf("config: llm.budget_max_calls must be ≥ 0, got %d", c.LLM.BudgetMaxCalls)
	}

	// Worker
	if c.Worker.Concurrency < 1 {
		return fmt.Errorf("config: worker.concurrency must be ≥ 1, got %d", c.Worker.Concurrency)
	}

	// Log
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("config: log.level %q is invalid; expected debug|info|warn|error", c.Log.Level)
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		return fmt.Errorf("config: log.format %q is invalid; expected json|console", c.Log.Format)
	}

	return nil
}
