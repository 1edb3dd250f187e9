// Package config holds the settings of a scan run.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Output formats
const (
	OutputStdout = "stdout"
	OutputCSV    = "csv"
	OutputJSON   = "json"
)

// Config is built once at startup and passed by value afterwards
type Config struct {
	Workers          int           `mapstructure:"workers"`
	Timeout          time.Duration `mapstructure:"timeout"`
	Crawl            int           `mapstructure:"crawl"`
	SearchSubdomains bool          `mapstructure:"search"`
	FollowRedirects  bool          `mapstructure:"redirect"`
	Apps             string        `mapstructure:"apps"`
	Output           string        `mapstructure:"output"`
	Silent           bool          `mapstructure:"silent"`
	UserAgent        string        `mapstructure:"user_agent"`
	Insecure         bool          `mapstructure:"insecure"`
	MaxBodySize      int64         `mapstructure:"max_body_size"`
	RegexTimeout     time.Duration `mapstructure:"regex_timeout"`

	Log        LogConfig        `mapstructure:"log"`
	Signatures SignaturesConfig `mapstructure:"signatures"`
}

// LogConfig configures the logger
type LogConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// SignaturesConfig configures where the signature database is refreshed from
type SignaturesConfig struct {
	URL         string        `mapstructure:"url"`
	CacheExpiry time.Duration `mapstructure:"cache_expiry"`
}

// Validate checks the values that would make a run impossible
func (c Config) Validate() error {
	if c.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Workers)
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive, got %s", c.Timeout)
	}
	if c.Crawl < 0 {
		return fmt.Errorf("crawl must not be negative, got %d", c.Crawl)
	}
	if c.MaxBodySize < 0 {
		return fmt.Errorf("max_body_size must not be negative, got %d", c.MaxBodySize)
	}

	switch strings.ToLower(c.Output) {
	case OutputStdout, OutputCSV, OutputJSON:
	default:
		return fmt.Errorf("unsupported output %q (stdout, csv, json)", c.Output)
	}

	switch strings.ToLower(c.Log.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("unsupported log format %q", c.Log.Format)
	}

	switch strings.ToLower(c.Log.Output) {
	case "stdout", "stderr":
	case "file":
		if c.Log.FilePath == "" {
			return fmt.Errorf("log.file_path is required when log.output is file")
		}
	default:
		return fmt.Errorf("unsupported log output %q", c.Log.Output)
	}
	return nil
}
