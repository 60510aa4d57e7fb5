package config

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const envPrefix = "FINANCELM"

type Config struct {
	AppEnv     string `envconfig:"APP_ENV" default:"local"`
	AppName    string `envconfig:"APP_NAME" default:"finance-lm"`
	AppVersion string `envconfig:"APP_VERSION" default:"0.1.0"`
	LogLevel   string `envconfig:"LOG_LEVEL" default:"info"`
	ConfigDir  string `envconfig:"CONFIG_DIR" default:"configs"`

	Port        string `envconfig:"PORT" default:"8080"`
	DatabaseURL string `envconfig:"DATABASE_URL" default:"sqlite://./data/finance_lm.db"`

	ChunkMaxChars     int     `envconfig:"CHUNK_MAX_CHARS" default:"800"`
	ChunkOverlapChars int     `envconfig:"CHUNK_OVERLAP_CHARS" default:"120"`
	CandidateCap      int     `envconfig:"CANDIDATE_CAP" default:"300"`
	DefaultTopK       int     `envconfig:"DEFAULT_TOP_K" default:"5"`
	Scorer            string  `envconfig:"SCORER" default:"lexical"`
	HybridWeight      float64 `envconfig:"HYBRID_WEIGHT" default:"0.5"`

	OpenAIAPIKey string `envconfig:"OPENAI_API_KEY"`

	S3Endpoint  string `envconfig:"S3_ENDPOINT"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY_ID"`
	S3SecretKey string `envconfig:"S3_SECRET_ACCESS_KEY"`
	S3Bucket    string `envconfig:"S3_BUCKET" default:"financelm-inbox"`
	S3Region    string `envconfig:"S3_REGION" default:"us-east-1"`
	S3Prefix    string `envconfig:"S3_PREFIX"`

	InboxDir     string        `envconfig:"INBOX_DIR" default:"./data/inbox"`
	ImportSource string        `envconfig:"IMPORT_SOURCE" default:"import"`
	ImportTicker string        `envconfig:"IMPORT_TICKER"`
	JobInterval  time.Duration `envconfig:"JOB_INTERVAL" default:"5m"`

	APIToken       string  `envconfig:"API_TOKEN"`
	RateLimitRPS   float64 `envconfig:"RATE_LIMIT_RPS" default:"0"`
	RateLimitBurst int     `envconfig:"RATE_LIMIT_BURST" default:"20"`

	SentryDSN        string  `envconfig:"SENTRY_DSN"`
	SentrySampleRate float64 `envconfig:"SENTRY_SAMPLE_RATE" default:"0.1"`
}

// profile is the optional per-environment YAML file. Unset keys leave the
// environment-derived value alone.
type profile struct {
	AppEnv            *string `yaml:"app_env"`
	LogLevel          *string `yaml:"log_level"`
	DatabaseURL       *string `yaml:"database_url"`
	Scorer            *string `yaml:"scorer"`
	CandidateCap      *int    `yaml:"candidate_cap"`
	ChunkMaxChars     *int    `yaml:"chunk_max_chars"`
	ChunkOverlapChars *int    `yaml:"chunk_overlap_chars"`
}

// Load reads .env, the FINANCELM_* environment and then configs/<APP_ENV>.yaml.
// Environment variables take precedence over the profile.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process(envPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}

	path := filepath.Join(cfg.ConfigDir, cfg.AppEnv+".yaml")
	p, err := loadProfile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read profile %s: %w", path, err)
	}
	p.applyTo(&cfg)

	return &cfg, nil
}

func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	return cfg
}

func loadProfile(path string) (*profile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return &profile{}, nil
		}
		return nil, err
	}
	var p profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *profile) applyTo(cfg *Config) {
	overlay(&cfg.AppEnv, p.AppEnv, "APP_ENV")
	overlay(&cfg.LogLevel, p.LogLevel, "LOG_LEVEL")
	overlay(&cfg.DatabaseURL, p.DatabaseURL, "DATABASE_URL")
	overlay(&cfg.Scorer, p.Scorer, "SCORER")
	overlay(&cfg.CandidateCap, p.CandidateCap, "CANDIDATE_CAP")
	overlay(&cfg.ChunkMaxChars, p.ChunkMaxChars, "CHUNK_MAX_CHARS")
	overlay(&cfg.ChunkOverlapChars, p.ChunkOverlapChars, "CHUNK_OVERLAP_CHARS")
}

func overlay[T any](dst *T, v *T, key string) {
	if v == nil {
		return
	}
	if _, set := os.LookupEnv(envPrefix + "_" + key); set {
		return
	}
	*dst = *v
}

var scorers = map[string]bool{"lexical": true, "embedding": true, "hybrid": true}

// Validate rejects settings the services cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.ChunkMaxChars <= 0 {
		errs = append(errs, errors.New("CHUNK_MAX_CHARS must be positive"))
	}
	if c.ChunkOverlapChars < 0 || c.ChunkOverlapChars >= c.ChunkMaxChars {
		errs = append(errs, errors.New("CHUNK_OVERLAP_CHARS must be between 0 and CHUNK_MAX_CHARS-1"))
	}
	if c.CandidateCap <= 0 {
		errs = append(errs, errors.New("CANDIDATE_CAP must be positive"))
	}
	if c.DefaultTopK < 1 || c.DefaultTopK > 20 {
		errs = append(errs, errors.New("DEFAULT_TOP_K must be between 1 and 20"))
	}
	if !scorers[c.Scorer] {
		errs = append(errs, fmt.Errorf("SCORER %q is not one of lexical, embedding, hybrid", c.Scorer))
	}
	if c.HybridWeight < 0 || c.HybridWeight > 1 {
		errs = append(errs, errors.New("HYBRID_WEIGHT must be within [0, 1]"))
	}
	if c.Scorer != "lexical" && c.Scorer != "" {
		if !c.HasOpenAI() {
			errs = append(errs, fmt.Errorf("SCORER %q requires OPENAI_API_KEY", c.Scorer))
		}
		if !c.IsPostgres() {
			errs = append(errs, fmt.Errorf("SCORER %q requires a postgres DATABASE_URL", c.Scorer))
		}
	}
	if c.RateLimitRPS < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPS must not be negative"))
	}
	return errors.Join(errs...)
}

func (c *Config) HasS3() bool {
	return c.S3Endpoint != "" && c.S3AccessKey != "" && c.S3SecretKey != ""
}

func (c *Config) HasOpenAI() bool {
	return c.OpenAIAPIKey != ""
}

func (c *Config) IsPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}

func (c *Config) Debug() bool {
	return strings.EqualFold(c.LogLevel, "debug")
}
