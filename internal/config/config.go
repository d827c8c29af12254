package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// DefaultPath is the configuration file looked up in the working directory.
const DefaultPath = "statement-core.yaml"

// Store backends.
const (
	BackendMemory   = "memory"
	BackendSQLite   = "sqlite"
	BackendPostgres = "postgres"
	BackendBigQuery = "bigquery"
)

// Archive backends.
const (
	ArchiveGCS = "gcs"
	ArchiveS3  = "s3"
)

// Config is the top-level statement-core.yaml configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Store     StoreConfig     `yaml:"store"`
	Archive   ArchiveConfig   `yaml:"archive"`
	Vision    VisionConfig    `yaml:"vision"`
	Recurring RecurringConfig `yaml:"recurring"`
	Log       LogConfig       `yaml:"log"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port         string        `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	DefaultUser  string        `yaml:"default_user"`
	MaxUploadMB  int64         `yaml:"max_upload_mb"`
}

// StoreConfig selects the persistence backend.
type StoreConfig struct {
	Backend     string `yaml:"backend"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	BQProject   string `yaml:"bq_project,omitempty"`
	BQDataset   string `yaml:"bq_dataset,omitempty"`
}

// ArchiveConfig controls the audit copy of uploaded statements.
type ArchiveConfig struct {
	Enabled bool   `yaml:"enabled"`
	Backend string `yaml:"backend"`
	Bucket  string `yaml:"bucket,omitempty"`
	Region  string `yaml:"region,omitempty"`
	Prefix  string `yaml:"prefix"`
}

// VisionConfig controls image statement extraction.
type VisionConfig struct {
	Enabled bool   `yaml:"enabled"`
	Model   string `yaml:"model"`
}

// RecurringConfig controls recurring payment detection.
type RecurringConfig struct {
	LookbackMonths int      `yaml:"lookback_months"`
	Schedule       string   `yaml:"schedule"`
	TimeZone       string   `yaml:"time_zone,omitempty"`
	Users          []string `yaml:"users,omitempty"`
}

// LogConfig controls log output.
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Default returns a Config that runs locally against SQLite with archiving
// and vision disabled.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         "8080",
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 60 * time.Second,
			IdleTimeout:  60 * time.Second,
			DefaultUser:  "default",
			MaxUploadMB:  20,
		},
		Store: StoreConfig{
			Backend:    BackendSQLite,
			SQLitePath: "data/statements.db",
			BQDataset:  "statements",
		},
		Archive: ArchiveConfig{
			Backend: ArchiveGCS,
			Prefix:  "statements",
		},
		Vision: VisionConfig{
			Model: "gemini-2.5-flash",
		},
		Recurring: RecurringConfig{
			LookbackMonths: 3,
			Schedule:       "0 3 * * *",
			TimeZone:       "Africa/Johannesburg",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// Load reads .env if present, then the YAML file at path over the defaults,
// then applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := Default()
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading config: %w", err)
	default:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config: %w", err)
		}
	}

	cfg.ApplyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes a Config to a YAML file.
func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config: %w", err)
	}
	return nil
}

// ApplyEnv overrides file values with the environment variables that are set.
func (c *Config) ApplyEnv(lookup func(string) (string, bool)) {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("PORT", &c.Server.Port)
	str("DEFAULT_USER", &c.Server.DefaultUser)
	str("STORE_BACKEND", &c.Store.Backend)
	str("DATABASE_URL", &c.Store.DatabaseURL)
	str("SQLITE_PATH", &c.Store.SQLitePath)
	str("BQ_PROJECT", &c.Store.BQProject)
	str("BQ_DATASET", &c.Store.BQDataset)
	str("ARCHIVE_BACKEND", &c.Archive.Backend)
	str("AWS_REGION", &c.Archive.Region)
	str("GEMINI_MODEL", &c.Vision.Model)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_FORMAT", &c.Log.Format)
	str("DETECT_SCHEDULE", &c.Recurring.Schedule)

	switch c.Archive.Backend {
	case ArchiveGCS:
		str("GCS_BUCKET", &c.Archive.Bucket)
	case ArchiveS3:
		str("S3_BUCKET", &c.Archive.Bucket)
	}
	if v, ok := lookup("ARCHIVE_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Archive.Enabled = b
		}
	}
	if v, ok := lookup("VISION_ENABLED"); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			c.Vision.Enabled = b
		}
	}
	if v, ok := lookup("DETECT_USERS"); ok && v != "" {
		c.Recurring.Users = splitList(v)
	}
}

// Validate reports settings that would fail at startup.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendSQLite:
		if c.Store.SQLitePath == "" {
			return errors.New("config: store.sqlite_path is required for the sqlite backend")
		}
	case BackendPostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("config: store.database_url is required for the postgres backend")
		}
	case BackendBigQuery:
		if c.Store.BQProject == "" {
			return errors.New("config: store.bq_project is required for the bigquery backend")
		}
	default:
		return fmt.Errorf("config: unknown store backend %q", c.Store.Backend)
	}

	if c.Archive.Enabled {
		if c.Archive.Backend != ArchiveGCS && c.Archive.Backend != ArchiveS3 {
			return fmt.Errorf("config: unknown archive backend %q", c.Archive.Backend)
		}
		if c.Archive.Bucket == "" {
			return errors.New("config: archive.bucket is required when archiving is enabled")
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
