package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/caarlos0/env/v6"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := loadConfig(filepath.Join(t.TempDir(), "config.json"), env.Options{Environment: map[string]string{}})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Digest.Timezone != DefaultTimezone || cfg.Digest.Schedule != "08:00" {
		t.Fatalf("unexpected digest defaults %+v", cfg.Digest)
	}
	if cfg.Digest.Marker.Backend != "file" || cfg.Digest.Marker.Path != ".last_run_daily_digest.json" {
		t.Fatalf("unexpected marker defaults %+v", cfg.Digest.Marker)
	}
	if !cfg.CatchUp() || !cfg.ServerEnabled() || cfg.Server.Listen != ":5000" {
		t.Fatalf("unexpected toggles %+v %+v", cfg.Digest, cfg.Server)
	}
	if cfg.Email.Provider != "gmail" || cfg.Recipients.EnvVar != "DAILY_DIGEST_USERS" {
		t.Fatalf("section defaults were not applied: %+v %+v", cfg.Email, cfg.Recipients)
	}
}

func TestLoadConfigFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{
  "digest": {"timezone": "Europe/Berlin", "schedule": "07:15", "catch_up": false, "concurrency": 2},
  "email": {"email_address": "file@example.com", "authorization_code": "from-file"},
  "activity": {"mongo_uri": "mongodb://file:27017"},
  "server": {"enabled": false}
}`)
	cfg, err := loadConfig(path, env.Options{Environment: map[string]string{
		"DIGEST_SCHEDULE":  "09:30",
		"EMAIL_PASS":       "from-env",
		"DIGEST_REDIS_URL": "redis://localhost:6379/0",
		"LLM_API_KEY":      "sk-test",
	}})
	if err != nil {
		t.Fatalf("loadConfig: %v", err)
	}
	if cfg.Digest.Timezone != "Europe/Berlin" || cfg.Digest.Concurrency != 2 {
		t.Fatalf("file values lost: %+v", cfg.Digest)
	}
	if cfg.Digest.Schedule != "09:30" {
		t.Fatalf("env should win over file, got %q", cfg.Digest.Schedule)
	}
	if cfg.Email.EmailAddress != "file@example.com" || cfg.Email.AuthorizationCode != "from-env" {
		t.Fatalf("unexpected email %+v", cfg.Email)
	}
	if cfg.Digest.Marker.Backend != "redis" || cfg.Digest.Marker.RedisURL != "redis://localhost:6379/0" {
		t.Fatalf("redis url should switch the marker backend: %+v", cfg.Digest.Marker)
	}
	if cfg.ModelConfig.APIKey != "sk-test" {
		t.Fatalf("expected llm key from env")
	}
	if cfg.CatchUp() || cfg.ServerEnabled() {
		t.Fatalf("explicit false toggles should be kept")
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadConfigRejectsBadJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	writeFile(t, path, `{"digest": `)
	if _, err := loadConfig(path, env.Options{Environment: map[string]string{}}); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		c := DefaultConfig().WithDefaults()
		c.Activity.MongoURI = "mongodb://localhost:27017"
		return c
	}
	if err := base().Validate(); err != nil {
		t.Fatalf("defaults with a mongo uri should validate: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"timezone", func(c *Config) { c.Digest.Timezone = "Mars/Olympus" }, "digest.timezone"},
		{"schedule", func(c *Config) { c.Digest.Schedule = "25:00" }, "digest.schedule"},
		{"fault policy", func(c *Config) { c.Digest.FaultPolicy = "maybe" }, "digest.fault_policy"},
		{"report format", func(c *Config) { c.Digest.ReportFormat = "docx" }, "digest.report_format"},
		{"model type", func(c *Config) { c.ModelConfig.ModelType = "gemini" }, "model_config.model_type"},
		{"redis url", func(c *Config) { c.Digest.Marker.Backend = "redis" }, "redis_url"},
		{"mongo", func(c *Config) { c.Activity.MongoURI = "" }, "mongo_uri"},
	}
	for _, tc := range cases {
		c := base()
		tc.mutate(&c)
		err := c.Validate()
		if err == nil || !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error mentioning %q, got %v", tc.name, tc.want, err)
		}
	}
}

func TestLoadDotEnvKeepsExistingValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	writeFile(t, path, "GRINDLOG_TEST_FROM_DOTENV=dotenv\nGRINDLOG_TEST_PRESET=dotenv\n")
	t.Setenv("GRINDLOG_TEST_PRESET", "process")
	t.Setenv("GRINDLOG_TEST_FROM_DOTENV", "")
	os.Unsetenv("GRINDLOG_TEST_FROM_DOTENV")

	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv: %v", err)
	}
	if got := os.Getenv("GRINDLOG_TEST_FROM_DOTENV"); got != "dotenv" {
		t.Fatalf("expected value from .env, got %q", got)
	}
	if got := os.Getenv("GRINDLOG_TEST_PRESET"); got != "process" {
		t.Fatalf("existing variables must win, got %q", got)
	}
	if err := LoadDotEnv(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing .env should be ignored: %v", err)
	}
}
