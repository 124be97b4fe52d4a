package config

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// Item store backends.
const (
	ItemStoreSDB    = "sdb"
	ItemStoreSearch = "search"
)

// Channel rollup modes.
const (
	RollupAny     = "any"
	RollupAverage = "average"
)

const (
	maxExportURLTTL = 336 * time.Hour
	maxScore        = 100
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HealthPort  int    `env:"HEALTH_PORT" envDefault:"8080"`

	// Database pool
	DBMaxConns          int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns          int32         `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnIdleTime   time.Duration `env:"DB_MAX_CONN_IDLE_TIME" envDefault:"5m"`
	DBMaxConnLifetime   time.Duration `env:"DB_MAX_CONN_LIFETIME" envDefault:"1h"`
	DBHealthCheckPeriod time.Duration `env:"DB_HEALTH_CHECK_PERIOD" envDefault:"1m"`

	// Item stores
	ItemStore          string        `env:"ITEM_STORE" envDefault:"search"`
	SDBBaseURL         string        `env:"SDB_BASE_URL"`
	SDBRPS             float64       `env:"SDB_RPS" envDefault:"10"`
	SDBTimeout         time.Duration `env:"SDB_TIMEOUT" envDefault:"60s"`
	SearchBaseURL      string        `env:"SEARCH_BASE_URL"`
	SearchChannelIndex string        `env:"SEARCH_CHANNEL_INDEX" envDefault:"channels"`
	SearchVideoIndex   string        `env:"SEARCH_VIDEO_INDEX" envDefault:"videos"`
	SearchTimeout      time.Duration `env:"SEARCH_TIMEOUT" envDefault:"60s"`

	// Brand safety audit
	AuditLanguage          string        `env:"AUDIT_LANGUAGE" envDefault:"English"`
	AuditChannelBatchLimit int           `env:"AUDIT_CHANNEL_BATCH_LIMIT" envDefault:"100"`
	AuditVideoBatchSize    int           `env:"AUDIT_VIDEO_BATCH_SIZE" envDefault:"10000"`
	AuditWorkers           int           `env:"AUDIT_WORKERS" envDefault:"4"`
	AuditLoopInterval      time.Duration `env:"AUDIT_LOOP_INTERVAL" envDefault:"30s"`
	AuditChannelRollup     string        `env:"AUDIT_CHANNEL_ROLLUP" envDefault:"any"`
	AuditPassScore         int           `env:"AUDIT_PASS_SCORE" envDefault:"0"`
	NoAuditSegments        []string      `env:"NO_AUDIT_SEGMENTS" envSeparator:","`

	// Topic audit
	TopicMasterBatchSize  int `env:"TOPIC_MASTER_BATCH_SIZE" envDefault:"5000"`
	TopicChannelBatchSize int `env:"TOPIC_CHANNEL_BATCH_SIZE" envDefault:"40"`
	TopicWorkers          int `env:"TOPIC_WORKERS" envDefault:"10"`

	// Task queue
	RedisAddr     string `env:"REDIS_ADDR" envDefault:"localhost:6379"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
	TaskQueueName string `env:"TASK_QUEUE_NAME" envDefault:"ctl_tasks"`

	// Object storage
	S3Endpoint  string `env:"S3_ENDPOINT"`
	S3Region    string `env:"S3_REGION" envDefault:"us-east-1"`
	S3AccessKey string `env:"S3_ACCESS_KEY"`
	S3SecretKey string `env:"S3_SECRET_KEY"`
	S3Bucket    string `env:"S3_BUCKET" envDefault:"ctl-exports"`
	S3UseSSL    bool   `env:"S3_USE_SSL" envDefault:"true"`

	// Custom target lists
	ExportURLTTL      time.Duration `env:"EXPORT_URL_TTL" envDefault:"24h"`
	SourceListMaxSize int           `env:"SOURCE_LIST_MAX_SIZE" envDefault:"200000"`
	ExportMaxItems    int           `env:"EXPORT_MAX_ITEMS" envDefault:"20000"`
	TaskMaxRetries    int           `env:"TASK_MAX_RETRIES" envDefault:"3"`
	TaskPollInterval  time.Duration `env:"TASK_POLL_INTERVAL" envDefault:"5s"`

	// Scheduler
	AuditCron string `env:"AUDIT_CRON" envDefault:"*/30 * * * *"`
	StatsCron string `env:"STATS_CRON" envDefault:"0 3 * * *"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	cfg.NoAuditSegments = trimAll(cfg.NoAuditSegments)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks derived values and cross-field constraints.
func (c *Config) Validate() error {
	var errs []error

	switch c.ItemStore {
	case ItemStoreSDB:
		if c.SDBBaseURL == "" {
			errs = append(errs, invalid("SDB_BASE_URL", "required when ITEM_STORE=sdb"))
		}
	case ItemStoreSearch:
		if c.SearchBaseURL == "" {
			errs = append(errs, invalid("SEARCH_BASE_URL", "required when ITEM_STORE=search"))
		}
	default:
		errs = append(errs, invalid("ITEM_STORE", fmt.Sprintf("unknown store %q", c.ItemStore)))
	}

	if c.AuditChannelRollup != RollupAny && c.AuditChannelRollup != RollupAverage {
		errs = append(errs, invalid("AUDIT_CHANNEL_ROLLUP", fmt.Sprintf("unknown rollup %q", c.AuditChannelRollup)))
	}

	if c.AuditPassScore < 0 || c.AuditPassScore > maxScore {
		errs = append(errs, invalid("AUDIT_PASS_SCORE", "must be within 0-100"))
	}

	positive := map[string]int{
		"AUDIT_CHANNEL_BATCH_LIMIT": c.AuditChannelBatchLimit,
		"AUDIT_VIDEO_BATCH_SIZE":    c.AuditVideoBatchSize,
		"AUDIT_WORKERS":             c.AuditWorkers,
		"TOPIC_MASTER_BATCH_SIZE":   c.TopicMasterBatchSize,
		"TOPIC_CHANNEL_BATCH_SIZE":  c.TopicChannelBatchSize,
		"TOPIC_WORKERS":             c.TopicWorkers,
		"SOURCE_LIST_MAX_SIZE":      c.SourceListMaxSize,
		"EXPORT_MAX_ITEMS":          c.ExportMaxItems,
	}

	for _, key := range sortedKeys(positive) {
		if positive[key] <= 0 {
			errs = append(errs, invalid(key, "must be positive"))
		}
	}

	if c.ExportURLTTL <= 0 || c.ExportURLTTL > maxExportURLTTL {
		errs = append(errs, invalid("EXPORT_URL_TTL", "must be within (0, 336h]"))
	}

	for key, spec := range map[string]string{"AUDIT_CRON": c.AuditCron, "STATS_CRON": c.StatsCron} {
		if spec == "" {
			continue
		}

		if _, err := cron.ParseStandard(spec); err != nil {
			errs = append(errs, invalid(key, err.Error()))
		}
	}

	return apperrors.Join(errs...)
}

func invalid(key, msg string) error {
	return fmt.Errorf("%s: %s: %w", key, msg, apperrors.ErrInvalidConfig)
}

func trimAll(values []string) []string {
	out := values[:0]

	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}

	return out
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}

	slices.Sort(keys)

	return keys
}
