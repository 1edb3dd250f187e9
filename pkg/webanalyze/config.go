package webanalyze

import (
	"time"

	"github.com/sirupsen/logrus"
)

// Config contains configuration options for the analyzer
type Config struct {
	// JSON contains the signature definition, if provided directly
	JSON []byte
	// DefinitionFile is read when JSON is empty
	DefinitionFile string
	// MatchTimeout bounds a single regular expression match
	MatchTimeout time.Duration
	// DisableHTMLDetection disables HTML pattern detection
	DisableHTMLDetection bool
	// DisableScriptDetection disables script source detection
	DisableScriptDetection bool
	// DisableURLDetection disables URL pattern detection
	DisableURLDetection bool
	// DisableHeaderDetection disables header detection
	DisableHeaderDetection bool
	// DisableMetaDetection disables meta tag detection
	DisableMetaDetection bool
	// DisableCookieDetection disables cookie detection
	DisableCookieDetection bool
	// MaxBodySize limits the body read by AnalyzeURL and Scan (0 = no limit)
	MaxBodySize int64
	// Log receives diagnostics
	Log *logrus.Entry
}

// Option is a function that configures the analyzer
type Option func(*Config)

// WithCustomDefinition sets the signature definition JSON
func WithCustomDefinition(definition []byte) Option {
	return func(c *Config) {
		c.JSON = definition
	}
}

// WithDefinitionFile reads the signature definition from path
func WithDefinitionFile(path string) Option {
	return func(c *Config) {
		c.DefinitionFile = path
	}
}

// WithMatchTimeout sets the per-match regular expression timeout
func WithMatchTimeout(timeout time.Duration) Option {
	return func(c *Config) {
		c.MatchTimeout = timeout
	}
}

// WithMaxBodySize sets the maximum body size to scan
func WithMaxBodySize(size int64) Option {
	return func(c *Config) {
		c.MaxBodySize = size
	}
}

// WithLogger sets the logger
func WithLogger(log *logrus.Entry) Option {
	return func(c *Config) {
		c.Log = log
	}
}

// WithoutHTMLDetection disables HTML pattern detection
func WithoutHTMLDetection() Option {
	return func(c *Config) {
		c.DisableHTMLDetection = true
	}
}

// WithoutScriptDetection disables script source detection
func WithoutScriptDetection() Option {
	return func(c *Config) {
		c.DisableScriptDetection = true
	}
}

// WithoutURLDetection disables URL pattern detection
func WithoutURLDetection() Option {
	return func(c *Config) {
		c.DisableURLDetection = true
	}
}

// WithoutHeaderDetection disables header detection
func WithoutHeaderDetection() Option {
	return func(c *Config) {
		c.DisableHeaderDetection = true
	}
}

// WithoutMetaDetection disables meta tag detection
func WithoutMetaDetection() Option {
	return func(c *Config) {
		c.DisableMetaDetection = true
	}
}

// WithoutCookieDetection disables cookie detection
func WithoutCookieDetection() Option {
	return func(c *Config) {
		c.DisableCookieDetection = true
	}
}

// WithAllDetections enables all detection methods
func WithAllDetections() Option {
	return func(c *Config) {
		c.DisableHTMLDetection = false
		c.DisableScriptDetection = false
		c.DisableURLDetection = false
		c.DisableHeaderDetection = false
		c.DisableMetaDetection = false
		c.DisableCookieDetection = false
	}
}
