package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"grindlog/internal/activity"
	"grindlog/internal/digest"
	"grindlog/internal/digestlog"
	"grindlog/internal/gateway"
	"grindlog/internal/llm"
	"grindlog/internal/marker"
	"grindlog/internal/recipients"
	"grindlog/internal/report"
	"grindlog/internal/scheduler"
	"grindlog/internal/server"
)

const (
	DefaultConfigPath = "config.json"
	DefaultTimezone   = "America/New_York"
)

type Config struct {
	Digest      DigestConfig        `json:"digest"`
	Email       gateway.EmailConfig `json:"email"`
	ModelConfig llm.Config          `json:"model_config"`
	Activity    activity.Config     `json:"activity"`
	Recipients  recipients.Config   `json:"recipients"`
	Server      ServerConfig        `json:"server"`
	Log         digestlog.Config    `json:"log"`
}

type DigestConfig struct {
	Timezone string `json:"timezone"`
	// Schedule is a daily "HH:MM" or a cron expression.
	Schedule     string `json:"schedule"`
	Concurrency  int    `json:"concurrency"`
	FaultPolicy  string `json:"fault_policy"`
	ReportFormat string `json:"report_format"`
	RunLog       string `json:"run_log"`
	QueueSize    int    `json:"queue_size"`
	CatchUp      *bool  `json:"catch_up"`

	Marker marker.Config `json:"marker"`
}

type ServerConfig struct {
	Enabled *bool  `json:"enabled"`
	Listen  string `json:"listen"`
}

// envOverrides holds the variables the deployment sets directly. Non-empty
// values win over config.json.
type envOverrides struct {
	Timezone     string `env:"DIGEST_TIMEZONE"`
	Schedule     string `env:"DIGEST_SCHEDULE"`
	ReportFormat string `env:"DIGEST_REPORT_FORMAT"`
	Concurrency  int    `env:"DIGEST_CONCURRENCY"`
	RedisURL     string `env:"DIGEST_REDIS_URL"`
	MarkerPath   string `env:"DIGEST_MARKER_PATH"`
	Listen       string `env:"DIGEST_LISTEN"`
	MongoURI     string `env:"MONGODB_URI"`
	EmailUser    string `env:"EMAIL_USER"`
	EmailPass    string `env:"EMAIL_PASS"`
	LLMModelType string `env:"LLM_MODEL_TYPE"`
	LLMAPIKey    string `env:"LLM_API_KEY"`
	LLMModel     string `env:"LLM_MODEL"`
	LLMBaseURL   string `env:"LLM_BASE_URL"`
	UsersFile    string `env:"DAILY_DIGEST_USERS_FILE"`
}

func DefaultConfig() Config {
	return Config{
		Digest: DigestConfig{
			Timezone:     DefaultTimezone,
			Schedule:     scheduler.DefaultDailyTime,
			Concurrency:  1,
			FaultPolicy:  string(digest.FaultPolicyRun),
			ReportFormat: report.FormatPDF,
			RunLog:       scheduler.DefaultRunLogPath,
			QueueSize:    8,
		},
		Server: ServerConfig{Listen: server.DefaultListen},
	}
}

func (c Config) WithDefaults() Config {
	out := c
	def := DefaultConfig()
	if strings.TrimSpace(out.Digest.Timezone) == "" {
		out.Digest.Timezone = def.Digest.Timezone
	}
	if strings.TrimSpace(out.Digest.Schedule) == "" {
		out.Digest.Schedule = def.Digest.Schedule
	}
	if out.Digest.Concurrency <= 0 {
		out.Digest.Concurrency = def.Digest.Concurrency
	}
	if strings.TrimSpace(out.Digest.FaultPolicy) == "" {
		out.Digest.FaultPolicy = def.Digest.FaultPolicy
	}
	if strings.TrimSpace(out.Digest.ReportFormat) == "" {
		out.Digest.ReportFormat = def.Digest.ReportFormat
	}
	if strings.TrimSpace(out.Digest.RunLog) == "" {
		out.Digest.RunLog = def.Digest.RunLog
	}
	if out.Digest.QueueSize <= 0 {
		out.Digest.QueueSize = def.Digest.QueueSize
	}
	if out.Digest.CatchUp == nil {
		v := true
		out.Digest.CatchUp = &v
	}
	out.Digest.Marker = out.Digest.Marker.WithDefaults()

	if out.Server.Enabled == nil {
		v := true
		out.Server.Enabled = &v
	}
	if strings.TrimSpace(out.Server.Listen) == "" {
		out.Server.Listen = def.Server.Listen
	}

	out.Email = out.Email.WithDefaults()
	out.ModelConfig = out.ModelConfig.WithDefaults()
	out.Activity = out.Activity.WithDefaults()
	out.Recipients = out.Recipients.WithDefaults()
	out.Log = out.Log.WithDefaults()
	return out
}

// LoadDotEnv loads a .env file into the process environment without
// replacing variables that are already set. A missing file is not an error.
func LoadDotEnv(path string) error {
	p := strings.TrimSpace(path)
	if p == "" {
		p = ".env"
	}
	if _, err := os.Stat(p); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return err
	}
	if err := godotenv.Load(p); err != nil {
		return fmt.Errorf("load %s: %w", p, err)
	}
	return nil
}

// LoadConfig reads config.json (a missing file means defaults), applies
// environment overrides and fills defaults.
func LoadConfig(configPath string) (Config, error) {
	return loadConfig(configPath, env.Options{})
}

func loadConfig(configPath string, envOpts env.Options) (Config, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist):
	default:
		return Config{}, err
	}

	var ov envOverrides
	if err := env.Parse(&ov, envOpts); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	cfg.applyEnv(ov)
	return cfg.WithDefaults(), nil
}

func (c *Config) applyEnv(ov envOverrides) {
	set := func(dst *string, v string) {
		if s := strings.TrimSpace(v); s != "" {
			*dst = s
		}
	}
	set(&c.Digest.Timezone, ov.Timezone)
	set(&c.Digest.Schedule, ov.Schedule)
	set(&c.Digest.ReportFormat, ov.ReportFormat)
	if ov.Concurrency > 0 {
		c.Digest.Concurrency = ov.Concurrency
	}
	if s := strings.TrimSpace(ov.RedisURL); s != "" {
		c.Digest.Marker.Backend = "redis"
		c.Digest.Marker.RedisURL = s
	}
	set(&c.Digest.Marker.Path, ov.MarkerPath)
	set(&c.Server.Listen, ov.Listen)
	set(&c.Activity.MongoURI, ov.MongoURI)
	set(&c.Email.EmailAddress, ov.EmailUser)
	set(&c.Email.AuthorizationCode, ov.EmailPass)
	set(&c.ModelConfig.ModelType, ov.LLMModelType)
	set(&c.ModelConfig.APIKey, ov.LLMAPIKey)
	set(&c.ModelConfig.Model, ov.LLMModel)
	set(&c.ModelConfig.BaseURL, ov.LLMBaseURL)
	set(&c.Recipients.File, ov.UsersFile)
}

// Validate checks everything that can be checked without touching the
// network. Recipient and credential problems surface when the service wires
// its adapters.
func (c Config) Validate() error {
	if _, err := scheduler.LoadLocation(c.Digest.Timezone); err != nil {
		return fmt.Errorf("digest.timezone: %w", err)
	}
	if _, err := scheduler.CronSpec(c.Digest.Schedule); err != nil {
		return fmt.Errorf("digest.schedule: %w", err)
	}
	if _, err := digest.ParseFaultPolicy(c.Digest.FaultPolicy); err != nil {
		return fmt.Errorf("digest.fault_policy: %w", err)
	}
	if _, err := report.New(c.Digest.ReportFormat); err != nil {
		return fmt.Errorf("digest.report_format: %w", err)
	}
	if _, err := llm.ParseModelType(c.ModelConfig.ModelType); err != nil {
		return fmt.Errorf("model_config.model_type: %w", err)
	}
	m := c.Digest.Marker.WithDefaults()
	switch m.Backend {
	case "file":
	case "redis":
		if strings.TrimSpace(m.RedisURL) == "" {
			return errors.New("digest.marker.redis_url is required for the redis backend")
		}
	default:
		return fmt.Errorf("digest.marker.backend: unknown backend %q", m.Backend)
	}
	if strings.TrimSpace(c.Activity.MongoURI) == "" {
		return errors.New("activity.mongo_uri is required (or set MONGODB_URI)")
	}
	return nil
}

func (c Config) CatchUp() bool {
	return c.Digest.CatchUp == nil || *c.Digest.CatchUp
}

func (c Config) ServerEnabled() bool {
	return c.Server.Enabled == nil || *c.Server.Enabled
}
