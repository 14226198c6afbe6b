// Package config provides configuration loading, defaults, and validation for
// the docintel extraction pipeline.
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
	DefaultDBName     = "docintel"
	DefaultDBMaxConns = 25

	DefaultRedisAddr      = "localhost:6379"
	DefaultRedisKeyPrefix = "docintel:"

	DefaultKafkaBroker       = "localhost:9092"
	DefaultKafkaGroupID      = "docintel-workers"
	DefaultKafkaSummaryTopic = "docintel.extraction.summary"

	DefaultMilvusAddr         = "localhost:19530"
	DefaultMilvusEmbeddingDim = 384
	DefaultMilvusTopK         = 5
	DefaultMilvusCollection   = "reference_entities"

	DefaultTaggerBaseURL = "http://localhost:8001"

	DefaultLLMModel          = "gpt-4o-mini"
	DefaultLLMBudgetWindow   = time.Minute
	DefaultLLMBudgetMaxCalls = 30

	// DefaultConfidenceFloor: fused results below this trigger the LLM tier.
	DefaultConfidenceFloor = 0.50

	// DefaultEmbeddingSimilarityMin: embedding-tier cosine cutoff.
	DefaultEmbeddingSimilarityMin = 0.62

	// DefaultContainmentTolerance: margin for longer-span-wins in fusion.
	DefaultContainmentTolerance = 0.05

	DefaultMaxChunkWorkers = 4

	DefaultHeuristicsDir = "./heuristics"

	DefaultLogLevel  = "info"
	DefaultLogFormat = "json"

	DefaultWorkerConcurrency = 10

	DefaultMetricsPath = "/metrics"
	DefaultMetricsPort = 9090
)

// ApplyDefaults fills every zero-value field in cfg with the pipeline default.
// It must be called after unmarshalling raw config data and before Validate()
// so that optional-but-defaulted fields are never seen as missing.  Fields
// that have already been set by the caller (non-zero values) are left
// unchanged so that explicit configuration always wins.
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
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = 10 * time.Second
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

	// ── Redis ─────────────────────────────────────────────────────────────────
	if cfg.Redis.Addr == "" {
		cfg.Redis.Addr = DefaultRedisAddr
	}
	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = DefaultRedisKeyPrefix
	}
	// DB is an int; 0 is a valid explicit value so we cannot distinguish "not
	// set" from "set to 0".  We leave it as-is (0 is also the default).

	// ── Kafka ─────────────────────────────────────────────────────────────────
	if len(cfg.Kafka.Brokers) == 0 {
		cfg.Kafka.Brokers = []string{DefaultKafkaBroker}
	}
	if cfg.Kafka.GroupID == "" {
		cfg.Kafka.GroupID = DefaultKafkaGroupID
	}
	if cfg.Kafka.SummaryTopic == "" {
		cfg.Kafka.SummaryTopic = DefaultKafkaSummaryTopic
	}
	if cfg.Kafka.BatchTimeout == 0 {
		cfg.Kafka.BatchTimeout = time.Second
	}

	// ── Milvus ────────────────────────────────────────────────────────────────
	if cfg.Milvus.Addr == "" {
		cfg.Milvus.Addr = DefaultMilvusAddr
	}
	if cfg.Milvus.EmbeddingDim == 0 {
		cfg.Milvus.EmbeddingDim = DefaultMilvusEmbeddingDim
	}
	if cfg.Milvus.DefaultTopK == 0 {
		cfg.Milvus.DefaultTopK = DefaultMilvusTopK
	}
	if cfg.Milvus.CollectionPrefix == "" {
		cfg.Milvus.CollectionPrefix = DefaultMilvusCollection
	}

	// ── Tagger ────────────────────────────────────────────────────────────────
	if cfg.Tagger.BaseURL == "" {
		cfg.Tagger.BaseURL = DefaultTaggerBaseURL
	}
	if cfg.Tagger.RequestTimeout == 0 {
		cfg.Tagger.RequestTimeout = 15 * time.Second
	}
	if cfg.Tagger.MaxBatchSize == 0 {
		cfg.Tagger.MaxBatchSize = 32
	}

	// ── LLM ───────────────────────────────────────────────────────────────────
	if cfg.LLM.Model == "" {
		cfg.LLM.Model = DefaultLLMModel
	}
	if cfg.LLM.RequestTimeout == 0 {
		cfg.LLM.RequestTimeout = 30 * time.Second
	}
	if cfg.LLM.MaxRetries == 0 {
		cfg.LLM.MaxRetries = 1
	}
	if cfg.LLM.BudgetWindow == 0 {
		cfg.LLM.BudgetWindow = DefaultLLMBudgetWindow
	}
	if cfg.LLM.BudgetMaxCalls == 0 {
		cfg.LLM.BudgetMaxCalls = DefaultLLMBudgetMaxCalls
	}

	// ── Extraction confidence table ───────────────────────────────────────────
	conf := &cfg.Extraction.Confidence
	if conf.CompanyAlias == 0 {
		conf.CompanyAlias = 0.90
	}
	if conf.Country == 0 {
		conf.Country = 0.90
	}
	if conf.Technology == 0 {
		conf.Technology = 0.90
	}
	if conf.TaxonomyIndustry == 0 {
		conf.TaxonomyIndustry = 0.88
	}
	if conf.TaxonomyService == 0 {
		conf.TaxonomyService = 0.86
	}
	if conf.Product == 0 {
		conf.Product = 0.88
	}
	if conf.ProductAlias == 0 {
		conf.ProductAlias = 0.85
	}
	if conf.BusinessTitle == 0 {
		conf.BusinessTitle = 0.85
	}
	if conf.Skill == 0 {
		conf.Skill = 0.82
	}
	if conf.TimeRange == 0 {
		conf.TimeRange = 0.80
	}
	if conf.TemporalDescriptor == 0 {
		conf.TemporalDescriptor = 0.78
	}
	if conf.Partnership == 0 {
		conf.Partnership = 0.80
	}
	if conf.Money == 0 {
		conf.Money = 0.92
	}
	if conf.Percent == 0 {
		conf.Percent = 0.90
	}
	if conf.DateUnambiguous == 0 {
		conf.DateUnambiguous = 0.88
	}
	if conf.DateAmbiguous == 0 {
		conf.DateAmbiguous = 0.60
	}
	if conf.TaggerPersonDate == 0 {
		conf.TaggerPersonDate = 0.75
	}
	if conf.TaggerNumeric == 0 {
		conf.TaggerNumeric = 0.85
	}
	if conf.TaggerOther == 0 {
		conf.TaggerOther = 0.70
	}

	// ── Extraction ────────────────────────────────────────────────────────────
	if cfg.Extraction.ConfidenceFloor == 0 {
		cfg.Extraction.ConfidenceFloor = DefaultConfidenceFloor
	}
	if cfg.Extraction.EmbeddingSimilarityMin == 0 {
		cfg.Extraction.EmbeddingSimilarityMin = DefaultEmbeddingSimilarityMin
	}
	if cfg.Extraction.ContainmentTolerance == 0 {
		cfg.Extraction.ContainmentTolerance = DefaultContainmentTolerance
	}
	if cfg.Extraction.MaxChunkWorkers == 0 {
		cfg.Extraction.MaxChunkWorkers = DefaultMaxChunkWorkers
	}

	// ── Heuristics ────────────────────────────────────────────────────────────
	if cfg.Heuristics.Dir == "" {
		cfg.Heuristics.Dir = DefaultHeuristicsDir
	}

	// ── Worker ────────────────────────────────────────────────────────────────
	if cfg.Worker.Concurrency == 0 {
		cfg.Worker.Concurrency = DefaultWorkerConcurrency
	}
	if cfg.Worker.MaxRetries == 0 {
		cfg.Worker.MaxRetries = 3
	}
	if cfg.Worker.RetryBackoff == 0 {
		cfg.Worker.RetryBackoff = 5 * time.Second
	}

	// ── Log ───────────────────────────────────────────────────────────────────
	if cfg.Log.Level == "" {
		cfg.Log.Level = DefaultLogLevel
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = DefaultLogFormat
	}

	// ── Metrics ───────────────────────────────────────────────────────────────
	if cfg.Metrics.Path == "" {
		cfg.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Metrics.Port == 0 {
		cfg.Metrics.Port = DefaultMetricsPort
	}
}
