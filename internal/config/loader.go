package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix is the prefix of environment overrides, e.g. WEBANALYZE_WORKERS
const EnvPrefix = "WEBANALYZE"

// DefaultSignaturesURL is the repository the signature database is refreshed from
const DefaultSignaturesURL = "https://raw.githubusercontent.com/enthec/webappanalyzer/main/src"

// Loader reads configuration from defaults, a config file, the
// environment and command line flags, in increasing precedence.
type Loader struct {
	configFile string
	viper      *viper.Viper
}

// NewLoader creates a loader. An empty configFile searches for
// webanalyze.yaml in the working directory and ignores it if absent.
func NewLoader(configFile string) *Loader {
	return &Loader{
		configFile: configFile,
		viper:      viper.New(),
	}
}

// BindFlags binds command line flags to configuration keys
func (l *Loader) BindFlags(flags *pflag.FlagSet, keys map[string]string) error {
	for key, name := range keys {
		flag := flags.Lookup(name)
		if flag == nil {
			return fmt.Errorf("unknown flag %q for key %q", name, key)
		}
		if err := l.viper.BindPFlag(key, flag); err != nil {
			return fmt.Errorf("failed to bind flag %q: %w", name, err)
		}
	}
	return nil
}

// Load builds and validates the configuration
func (l *Loader) Load() (Config, error) {
	l.setDefaults()

	l.viper.SetEnvPrefix(EnvPrefix)
	l.viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	l.viper.AutomaticEnv()

	if err := l.loadConfigFile(); err != nil {
		return Config{}, err
	}

	var cfg Config
	if err := l.viper.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, nil
}

func (l *Loader) loadConfigFile() error {
	l.viper.SetConfigType("yaml")

	if l.configFile != "" {
		l.viper.SetConfigFile(l.configFile)
		if err := l.viper.ReadInConfig(); err != nil {
			return fmt.Errorf("failed to read config file %s: %w", l.configFile, err)
		}
		return nil
	}

	l.viper.SetConfigName("webanalyze")
	l.viper.AddConfigPath(".")
	if err := l.viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}
	return nil
}

func (l *Loader) setDefaults() {
	l.viper.SetDefault("workers", 4)
	l.viper.SetDefault("timeout", 8*time.Second)
	l.viper.SetDefault("crawl", 0)
	l.viper.SetDefault("search", true)
	l.viper.SetDefault("redirect", false)
	l.viper.SetDefault("apps", "technologies.json")
	l.viper.SetDefault("output", OutputStdout)
	l.viper.SetDefault("silent", false)
	l.viper.SetDefault("user_agent", "Mozilla/5.0 (compatible; webanalyze)")
	l.viper.SetDefault("insecure", true)
	l.viper.SetDefault("max_body_size", 0)
	l.viper.SetDefault("regex_timeout", time.Second)

	l.viper.SetDefault("log.level", "warn")
	l.viper.SetDefault("log.format", "text")
	l.viper.SetDefault("log.output", "stderr")
	l.viper.SetDefault("log.file_path", "")
	l.viper.SetDefault("log.max_size", 100)
	l.viper.SetDefault("log.max_backups", 3)
	l.viper.SetDefault("log.max_age", 28)
	l.viper.SetDefault("log.compress", false)

	l.viper.SetDefault("signatures.url", DefaultSignaturesURL)
	l.viper.SetDefault("signatures.cache_expiry", 24*time.Hour)
}
