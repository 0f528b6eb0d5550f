// Package config loads application settings from an optional YAML file and
// the environment.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the commands.
type Config struct {
	DBPath    string `yaml:"db_path"`
	Addr      string `yaml:"addr"`
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`

	BigQuery BigQueryConfig `yaml:"bigquery"`
	Backup   BackupConfig   `yaml:"backup"`
	Notion   NotionConfig   `yaml:"notion"`
	Gemini   GeminiConfig   `yaml:"gemini"`
}

type BigQueryConfig struct {
	Project string `yaml:"project"`
	Dataset string `yaml:"dataset"`
}

type BackupConfig struct {
	Bucket string `yaml:"bucket"`
	Dir    string `yaml:"dir"`
}

type NotionConfig struct {
	Token      string `yaml:"token"`
	DatabaseID string `yaml:"database_id"`
}

type GeminiConfig struct {
	Project  string `yaml:"project"`
	Location string `yaml:"location"`
	Model    string `yaml:"model"`
}

// Defaults.
const (
	DefaultDBPath    = "finance_tracker.db"
	DefaultAddr      = ":8080"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "console"
	DefaultDataset   = "finance"
	DefaultLocation  = "us-central1"
	DefaultModel     = "gemini-2.5-flash"
)

// Load reads path when it is non-empty, applies environment overrides and
// fills defaults. A missing file named explicitly is an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("Load: reading %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("Load: parsing %s: %w", path, err)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) {
	set := func(dst *string, key string) {
		if v, ok := lookup(key); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set(&c.DBPath, "FINANCE_TRACKER_DB_PATH")
	set(&c.Addr, "ADDR")
	set(&c.LogLevel, "LOG_LEVEL")
	set(&c.LogFormat, "LOG_FORMAT")
	set(&c.BigQuery.Project, "BQ_PROJECT")
	set(&c.BigQuery.Dataset, "BQ_DATASET")
	set(&c.Backup.Bucket, "GCS_BUCKET")
	set(&c.Backup.Dir, "BACKUP_DIR")
	set(&c.Notion.Token, "NOTION_TOKEN")
	set(&c.Notion.DatabaseID, "NOTION_DB_ID")
	set(&c.Gemini.Project, "GOOGLE_CLOUD_PROJECT")
	set(&c.Gemini.Location, "GOOGLE_CLOUD_LOCATION")
	set(&c.Gemini.Model, "GEMINI_MODEL")
}

func (c *Config) applyDefaults() {
	if c.DBPath == "" {
		c.DBPath = DefaultDBPath
	}
	if c.Addr == "" {
		c.Addr = DefaultAddr
	}
	if c.LogLevel == "" {
		c.LogLevel = DefaultLogLevel
	}
	if c.LogFormat == "" {
		c.LogFormat = DefaultLogFormat
	}
	if c.BigQuery.Dataset == "" {
		c.BigQuery.Dataset = DefaultDataset
	}
	if c.Backup.Dir == "" {
		c.Backup.Dir = os.TempDir()
	}
	if c.Gemini.Project == "" {
		c.Gemini.Project = c.BigQuery.Project
	}
	if c.Gemini.Location == "" {
		c.Gemini.Location = DefaultLocation
	}
	if c.Gemini.Model == "" {
		c.Gemini.Model = DefaultModel
	}
}

// Validate checks the settings every command needs.
func (c *Config) Validate() error {
	var errs []error
	if strings.TrimSpace(c.DBPath) == "" {
		errs = append(errs, errors.New("db_path is required"))
	}
	switch strings.ToLower(c.LogFormat) {
	case "console", "json":
	default:
		errs = append(errs, fmt.Errorf("log_format %q must be console or json", c.LogFormat))
	}
	return errors.Join(errs...)
}
