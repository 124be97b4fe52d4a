package config

import (
	"errors"
	"os"
	"testing"
	"time"

	apperrors "github.com/lueurxax/brand-safety-audit/internal/core/errors"
)

// Test environment variable keys.
const (
	testEnvPostgresDSN   = "POSTGRES_DSN"
	testEnvSearchBaseURL = "SEARCH_BASE_URL"
	testEnvItemStore     = "ITEM_STORE"
	testEnvNoAudit       = "NO_AUDIT_SEGMENTS"
)

// Test values.
const (
	testPostgresDSN   = "postgres://localhost/test"
	testSearchBaseURL = "http://search:9200"
	testErrLoad       = "Load() error = %v"
	testDefaultEnv    = "local"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()

	t.Setenv(testEnvPostgresDSN, testPostgresDSN)
	t.Setenv(testEnvSearchBaseURL, testSearchBaseURL)
}

func validConfig() Config {
	return Config{
		PostgresDSN:            testPostgresDSN,
		ItemStore:              ItemStoreSearch,
		SearchBaseURL:          testSearchBaseURL,
		AuditChannelRollup:     RollupAny,
		AuditChannelBatchLimit: 100,
		AuditVideoBatchSize:    10000,
		AuditWorkers:           4,
		TopicMasterBatchSize:   5000,
		TopicChannelBatchSize:  40,
		TopicWorkers:           10,
		SourceListMaxSize:      200000,
		ExportMaxItems:         20000,
		ExportURLTTL:           24 * time.Hour,
		AuditCron:              "*/30 * * * *",
	}
}

func TestLoad_MissingRequired(t *testing.T) {
	os.Unsetenv(testEnvPostgresDSN)

	_, err := Load()
	if err == nil {
		t.Error("expected error for missing required env vars")
	}
}

func TestLoad_Defaults(t *testing.T) {
	setRequiredEnvVars(t)

	// Explicitly unset variables that might be in .env to test actual defaults
	os.Unsetenv("APP_ENV")
	os.Unsetenv("HEALTH_PORT")
	os.Unsetenv(testEnvItemStore)
	os.Unsetenv("AUDIT_LANGUAGE")
	os.Unsetenv("EXPORT_URL_TTL")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	if cfg.AppEnv != testDefaultEnv {
		t.Errorf("AppEnv default = %q, want %q", cfg.AppEnv, testDefaultEnv)
	}

	if cfg.HealthPort != 8080 {
		t.Errorf("HealthPort default = %d, want %d", cfg.HealthPort, 8080)
	}

	if cfg.ItemStore != ItemStoreSearch {
		t.Errorf("ItemStore default = %q, want %q", cfg.ItemStore, ItemStoreSearch)
	}

	if cfg.AuditLanguage != "English" {
		t.Errorf("AuditLanguage default = %q, want %q", cfg.AuditLanguage, "English")
	}

	if cfg.AuditChannelBatchLimit != 100 {
		t.Errorf("AuditChannelBatchLimit default = %d, want %d", cfg.AuditChannelBatchLimit, 100)
	}

	if cfg.TopicChannelBatchSize != 40 {
		t.Errorf("TopicChannelBatchSize default = %d, want %d", cfg.TopicChannelBatchSize, 40)
	}

	if cfg.ExportURLTTL != 24*time.Hour {
		t.Errorf("ExportURLTTL default = %v, want %v", cfg.ExportURLTTL, 24*time.Hour)
	}

	if cfg.SourceListMaxSize != 200000 {
		t.Errorf("SourceListMaxSize default = %d, want %d", cfg.SourceListMaxSize, 200000)
	}
}

func TestLoad_NoAuditSegments(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv(testEnvNoAudit, "Kids Whitelist, Music ,,")

	cfg, err := Load()
	if err != nil {
		t.Fatalf(testErrLoad, err)
	}

	expected := []string{"Kids Whitelist", "Music"}
	if len(cfg.NoAuditSegments) != len(expected) {
		t.Fatalf("NoAuditSegments = %v, want %v", cfg.NoAuditSegments, expected)
	}

	for i, want := range expected {
		if cfg.NoAuditSegments[i] != want {
			t.Errorf("NoAuditSegments[%d] = %q, want %q", i, cfg.NoAuditSegments[i], want)
		}
	}
}

func TestLoad_InvalidNumeric(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("AUDIT_WORKERS", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("expected error for invalid AUDIT_WORKERS")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "sdb without url", mutate: func(c *Config) { c.ItemStore = ItemStoreSDB }, wantErr: true},
		{name: "sdb with url", mutate: func(c *Config) { c.ItemStore = ItemStoreSDB; c.SDBBaseURL = "http://sdb" }},
		{name: "unknown store", mutate: func(c *Config) { c.ItemStore = "solr" }, wantErr: true},
		{name: "search without url", mutate: func(c *Config) { c.SearchBaseURL = "" }, wantErr: true},
		{name: "unknown rollup", mutate: func(c *Config) { c.AuditChannelRollup = "max" }, wantErr: true},
		{name: "average rollup", mutate: func(c *Config) { c.AuditChannelRollup = RollupAverage }},
		{name: "pass score too high", mutate: func(c *Config) { c.AuditPassScore = 101 }, wantErr: true},
		{name: "zero workers", mutate: func(c *Config) { c.AuditWorkers = 0 }, wantErr: true},
		{name: "ttl over cap", mutate: func(c *Config) { c.ExportURLTTL = 337 * time.Hour }, wantErr: true},
		{name: "ttl at cap", mutate: func(c *Config) { c.ExportURLTTL = 336 * time.Hour }},
		{name: "bad cron", mutate: func(c *Config) { c.AuditCron = "every minute" }, wantErr: true},
		{name: "cron disabled", mutate: func(c *Config) { c.AuditCron = ""; c.StatsCron = "" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}

			if err != nil && !errors.Is(err, apperrors.ErrInvalidConfig) {
				t.Errorf("Validate() error = %v, want ErrInvalidConfig", err)
			}
		})
	}
}
