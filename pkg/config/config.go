// Package config loads and validates application configuration from YAML files
// with environment-variable overrides. It provides typed structs for every
// subsystem (Server, Storage, Fields, Scoring, Fusion, Redis, Kafka, etc.).
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level application configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Storage   StorageConfig   `yaml:"storage"`
	Fields    []FieldConfig   `yaml:"fields"`
	Metadata  MetadataConfig  `yaml:"metadata"`
	Scoring   ScoringConfig   `yaml:"scoring"`
	Fusion    FusionConfig    `yaml:"fusion"`
	Tokenizer TokenizerConfig `yaml:"tokenizer"`
	Search    SearchConfig    `yaml:"search"`
	Postgres  PostgresConfig  `yaml:"postgres"`
	Kafka     KafkaConfig     `yaml:"kafka"`
	Redis     RedisConfig     `yaml:"redis"`
	Analytics AnalyticsConfig `yaml:"analytics"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port            int           `yaml:"port"`
	ReadTimeout     time.Duration `yaml:"readTimeout"`
	WriteTimeout    time.Duration `yaml:"writeTimeout"`
	ShutdownTimeout time.Duration `yaml:"shutdownTimeout"`
	// RateLimit is the sustained requests per second allowed per client;
	// zero disables limiting.
	RateLimit   float64  `yaml:"rateLimit"`
	RateBurst   int      `yaml:"rateBurst"`
	CORSOrigins []string `yaml:"corsOrigins"`
}

// StorageConfig selects where descriptors, posting blocks and metadata blobs
// live. Backend is "dir" (a local directory tree) or "s3".
type StorageConfig struct {
	Backend         string        `yaml:"backend"`
	Dir             string        `yaml:"dir"`
	Bucket          string        `yaml:"bucket"`
	Prefix          string        `yaml:"prefix"`
	Region          string        `yaml:"region"`
	Endpoint        string        `yaml:"endpoint"`
	AccessKeyID     string        `yaml:"accessKeyId"`
	SecretAccessKey string        `yaml:"secretAccessKey"`
	UsePathStyle    bool          `yaml:"usePathStyle"`
	LoadTimeout     time.Duration `yaml:"loadTimeout"`
	RetryAttempts   int           `yaml:"retryAttempts"`
	BreakerFailures int           `yaml:"breakerFailures"`
	BreakerReset    time.Duration `yaml:"breakerReset"`
}

// FieldConfig binds one searchable field kind to its descriptor blob and the
// storage folder holding its posting blocks.
type FieldConfig struct {
	Kind       string `yaml:"kind"`
	Descriptor string `yaml:"descriptor"`
	Folder     string `yaml:"folder"`
	Stemmed    bool   `yaml:"stemmed"`
	Enabled    bool   `yaml:"enabled"`
}

// MetadataConfig locates per-document authority, popularity and titles.
// Source is "blob" or "postgres". TitleShards lists blob names that are
// merged into one title table.
type MetadataConfig struct {
	Source      string   `yaml:"source"`
	Folder      string   `yaml:"folder"`
	Authority   string   `yaml:"authority"`
	Popularity  string   `yaml:"popularity"`
	TitleShards []string `yaml:"titleShards"`
}

// ScoringConfig holds per-algorithm constants.
type ScoringConfig struct {
	K1           float64 `yaml:"k1"`
	B            float64 `yaml:"b"`
	TitleRarity  float64 `yaml:"titleRarity"`
	TitlePenalty float64 `yaml:"titlePenalty"`
	CosineTopN   int     `yaml:"cosineTopN"`
}

// FusionConfig holds the linear combination weights and truncation depths.
type FusionConfig struct {
	Body       float64 `yaml:"body"`
	Title      float64 `yaml:"title"`
	Anchor     float64 `yaml:"anchor"`
	Authority  float64 `yaml:"authority"`
	Popularity float64 `yaml:"popularity"`
	FieldDepth int     `yaml:"fieldDepth"`
	Limit      int     `yaml:"limit"`
}

// TokenizerConfig selects the token pattern: "strict" or "light".
type TokenizerConfig struct {
	Pattern string `yaml:"pattern"`
}

// SearchConfig controls query execution limits and timeouts.
type SearchConfig struct {
	QueryTimeout time.Duration `yaml:"queryTimeout"`
	DefaultLimit int           `yaml:"defaultLimit"`
	MaxResults   int           `yaml:"maxResults"`
	CacheEnabled bool          `yaml:"cacheEnabled"`
	SlowQuery    time.Duration `yaml:"slowQuery"`
}

// PostgresConfig holds PostgreSQL connection parameters.
type PostgresConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	Database        string        `yaml:"database"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	SSLMode         string        `yaml:"sslMode"`
	MaxOpenConns    int           `yaml:"maxOpenConns"`
	MaxIdleConns    int           `yaml:"maxIdleConns"`
	ConnMaxLifetime time.Duration `yaml:"connMaxLifetime"`
}

// DSN returns a lib/pq-compatible data source name.
func (p PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// KafkaConfig holds Kafka broker and topic settings. An empty broker list
// disables analytics publishing.
type KafkaConfig struct {
	Brokers       []string    `yaml:"brokers"`
	ConsumerGroup string      `yaml:"consumerGroup"`
	StartOffset   string      `yaml:"startOffset"`
	Topics        KafkaTopics `yaml:"topics"`
}

// KafkaTopics maps logical topic names to their Kafka topic strings.
type KafkaTopics struct {
	SearchEvents string `yaml:"searchEvents"`
}

// RedisConfig holds Redis connection and caching parameters.
type RedisConfig struct {
	Addr     string        `yaml:"addr"`
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	PoolSize int           `yaml:"poolSize"`
	CacheTTL time.Duration `yaml:"cacheTTL"`
}

// AnalyticsConfig sizes the search event pipeline. A positive
// SnapshotInterval persists aggregated totals to PostgreSQL.
type AnalyticsConfig struct {
	BufferSize       int           `yaml:"bufferSize"`
	BatchSize        int           `yaml:"batchSize"`
	FlushInterval    time.Duration `yaml:"flushInterval"`
	SnapshotInterval time.Duration `yaml:"snapshotInterval"`
}

// LoggingConfig controls structured logging level and output format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus metrics server.
type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
	Port    int  `yaml:"port"`
}

// Load reads a YAML config file (if provided) and applies environment-variable
// overrides. It returns a Config populated with defaults for any missing
// values.
func Load(path string) (*Config, error) {
	cfg := defaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}
	applyEnvOverrides(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the engine cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "dir":
		if c.Storage.Dir == "" {
			return fmt.Errorf("storage.dir is required for the dir backend")
		}
	case "s3":
		if c.Storage.Bucket == "" {
			return fmt.Errorf("storage.bucket is required for the s3 backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}
	switch c.Tokenizer.Pattern {
	case "strict", "light":
	default:
		return fmt.Errorf("unknown tokenizer pattern %q", c.Tokenizer.Pattern)
	}
	switch c.Metadata.Source {
	case "blob", "postgres":
	default:
		return fmt.Errorf("unknown metadata source %q", c.Metadata.Source)
	}
	if c.Server.RateLimit < 0 {
		return fmt.Errorf("server.rateLimit must not be negative")
	}
	switch c.Kafka.StartOffset {
	case "", "first", "last":
	default:
		return fmt.Errorf("kafka.startOffset must be first or last, got %q", c.Kafka.StartOffset)
	}
	seen := make(map[string]bool)
	for _, f := range c.Fields {
		if f.Kind == "" {
			return fmt.Errorf("field with descriptor %q has no kind", f.Descriptor)
		}
		if seen[f.Kind] {
			return fmt.Errorf("field kind %q configured twice", f.Kind)
		}
		seen[f.Kind] = true
		if f.Enabled && f.Descriptor == "" {
			return fmt.Errorf("field %q has no descriptor", f.Kind)
		}
	}
	if c.Scoring.K1 < 0 || c.Scoring.B < 0 || c.Scoring.B > 1 {
		return fmt.Errorf("invalid bm25 parameters k1=%v b=%v", c.Scoring.K1, c.Scoring.B)
	}
	if c.Fusion.FieldDepth <= 0 || c.Fusion.Limit <= 0 {
		return fmt.Errorf("fusion fieldDepth and limit must be positive")
	}
	return nil
}

// Field returns the configuration for kind, if present.
func (c *Config) Field(kind string) (FieldConfig, bool) {
	for _, f := range c.Fields {
		if f.Kind == kind {
			return f, true
		}
	}
	return FieldConfig{}, false
}

// defaultConfig returns a Config with defaults for local development.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 15 * time.Second,
		},
		Storage: StorageConfig{
			Backend:         "dir",
			Dir:             "./data",
			Region:          "us-east-1",
			LoadTimeout:     5 * time.Minute,
			RetryAttempts:   3,
			BreakerFailures: 5,
			BreakerReset:    30 * time.Second,
		},
		Fields: []FieldConfig{
			{Kind: "body", Descriptor: "body.cbor", Folder: "postings_body", Stemmed: true, Enabled: true},
			{Kind: "body_phrase", Descriptor: "body_phrase.cbor", Folder: "postings_body_phrase", Stemmed: true, Enabled: true},
			{Kind: "title_nostem", Descriptor: "title_nostem.cbor", Folder: "postings_title_nostem", Stemmed: false, Enabled: true},
			{Kind: "anchor", Descriptor: "anchor.cbor", Folder: "postings_anchor", Stemmed: false, Enabled: true},
		},
		Metadata: MetadataConfig{
			Source:      "blob",
			Folder:      "metadata",
			Authority:   "pagerank.cbor",
			Popularity:  "pageviews.cbor",
			TitleShards: []string{"titles_even.cbor", "titles_odd.cbor"},
		},
		Scoring: ScoringConfig{
			K1:           1.2,
			B:            0.5,
			TitleRarity:  3.5,
			TitlePenalty: 0.15,
			CosineTopN:   100,
		},
		Fusion: FusionConfig{
			Body:       0.30,
			Title:      0.50,
			Anchor:     0.15,
			Authority:  0.05,
			Popularity: 0,
			FieldDepth: 500,
			Limit:      100,
		},
		Tokenizer: TokenizerConfig{
			Pattern: "strict",
		},
		Search: SearchConfig{
			QueryTimeout: 5 * time.Second,
			DefaultLimit: 100,
			MaxResults:   100,
			CacheEnabled: true,
			SlowQuery:    time.Second,
		},
		Postgres: PostgresConfig{
			Host:            "localhost",
			Port:            5432,
			Database:        "retrieval",
			User:            "retrieval",
			Password:        "localdev",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		Kafka: KafkaConfig{
			ConsumerGroup: "retrieval-analytics",
			StartOffset:   "last",
			Topics: KafkaTopics{
				SearchEvents: "search-events",
			},
		},
		Redis: RedisConfig{
			Addr:     "localhost:6379",
			PoolSize: 10,
			CacheTTL: 60 * time.Second,
		},
		Analytics: AnalyticsConfig{
			BufferSize:    10000,
			BatchSize:     100,
			FlushInterval: 5 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Port:    9090,
		},
	}
}

// applyEnvOverrides reads SE_* environment variables and overrides the
// corresponding config fields.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SE_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("SE_STORAGE_BACKEND"); v != "" {
		cfg.Storage.Backend = v
	}
	if v := os.Getenv("SE_STORAGE_DIR"); v != "" {
		cfg.Storage.Dir = v
	}
	if v := os.Getenv("SE_STORAGE_BUCKET"); v != "" {
		cfg.Storage.Bucket = v
	}
	if v := os.Getenv("SE_STORAGE_PREFIX"); v != "" {
		cfg.Storage.Prefix = v
	}
	if v := os.Getenv("SE_STORAGE_REGION"); v != "" {
		cfg.Storage.Region = v
	}
	if v := os.Getenv("SE_STORAGE_ENDPOINT"); v != "" {
		cfg.Storage.Endpoint = v
	}
	if v := os.Getenv("SE_STORAGE_ACCESS_KEY_ID"); v != "" {
		cfg.Storage.AccessKeyID = v
	}
	if v := os.Getenv("SE_STORAGE_SECRET_ACCESS_KEY"); v != "" {
		cfg.Storage.SecretAccessKey = v
	}
	if v := os.Getenv("SE_TOKENIZER_PATTERN"); v != "" {
		cfg.Tokenizer.Pattern = v
	}
	if v := os.Getenv("SE_METADATA_SOURCE"); v != "" {
		cfg.Metadata.Source = v
	}
	if v := os.Getenv("SE_FUSION_POPULARITY"); v != "" {
		if w, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Fusion.Popularity = w
		}
	}
	if v := os.Getenv("SE_SEARCH_QUERY_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.QueryTimeout = d
		}
	}
	if v := os.Getenv("SE_SERVER_RATE_LIMIT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Server.RateLimit = f
		}
	}
	if v := os.Getenv("SE_SERVER_CORS_ORIGINS"); v != "" {
		cfg.Server.CORSOrigins = strings.Split(v, ",")
	}
	if v := os.Getenv("SE_SEARCH_SLOW_QUERY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Search.SlowQuery = d
		}
	}
	if v := os.Getenv("SE_POSTGRES_HOST"); v != "" {
		cfg.Postgres.Host = v
	}
	if v := os.Getenv("SE_POSTGRES_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Postgres.Port = port
		}
	}
	if v := os.Getenv("SE_POSTGRES_DATABASE"); v != "" {
		cfg.Postgres.Database = v
	}
	if v := os.Getenv("SE_POSTGRES_USER"); v != "" {
		cfg.Postgres.User = v
	}
	if v := os.Getenv("SE_POSTGRES_PASSWORD"); v != "" {
		cfg.Postgres.Password = v
	}
	if v := os.Getenv("SE_KAFKA_BROKERS"); v != "" {
		cfg.Kafka.Brokers = strings.Split(v, ",")
	}
	if v := os.Getenv("SE_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SE_REDIS_PASSWORD"); v != "" {
		cfg.Redis.Password = v
	}
	if v := os.Getenv("SE_ANALYTICS_SNAPSHOT_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Analytics.SnapshotInterval = d
		}
	}
	if v := os.Getenv("SE_LOGGING_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv("SE_LOGGING_FORMAT"); v != "" {
		cfg.Logging.Format = v
	}
}
