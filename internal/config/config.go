package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"workfocus/internal/provider"
)

// DirName is the per-project state directory.
const DirName = ".workfocus"

// Config is the complete workfocus configuration.
type Config struct {
	DataDir     string `yaml:"dataDir" mapstructure:"dataDir"`
	ItemsFile   string `yaml:"itemsFile" mapstructure:"itemsFile"`
	CacheFile   string `yaml:"cacheFile" mapstructure:"cacheFile"`
	SessionFile string `yaml:"sessionFile" mapstructure:"sessionFile"`
	Owner       string `yaml:"owner" mapstructure:"owner"`

	Cache    CacheConfig     `yaml:"cache" mapstructure:"cache"`
	Session  SessionConfig   `yaml:"session" mapstructure:"session"`
	Provider provider.Config `yaml:"provider" mapstructure:"provider"`
	Feed     FeedConfig      `yaml:"feed" mapstructure:"feed"`
	Logging  LoggingConfig   `yaml:"logging" mapstructure:"logging"`
}

type CacheConfig struct {
	TTL     time.Duration `yaml:"ttl" mapstructure:"ttl"`
	MemoTTL time.Duration `yaml:"memoTTL" mapstructure:"memoTTL"`
}

type SessionConfig struct {
	Freshness time.Duration `yaml:"freshness" mapstructure:"freshness"`
}

// FeedConfig points the activity poller at an RSS or Atom feed.
type FeedConfig struct {
	URL      string        `yaml:"url" mapstructure:"url"`
	Username string        `yaml:"username" mapstructure:"username"`
	Password string        `yaml:"password" mapstructure:"password"`
	Interval time.Duration `yaml:"interval" mapstructure:"interval"`
}

type LoggingConfig struct {
	Level       string `yaml:"level" mapstructure:"level"`
	Development bool   `yaml:"development" mapstructure:"development"`
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		DataDir:     DirName,
		ItemsFile:   "items.yaml",
		CacheFile:   "cache.json",
		SessionFile: "session.json",
		Cache: CacheConfig{
			TTL:     24 * time.Hour,
			MemoTTL: 10 * time.Minute,
		},
		Session: SessionConfig{
			Freshness: 24 * time.Hour,
		},
		Provider: provider.Config{
			Name:    "ollama",
			Timeout: 2 * time.Minute,
		},
		Feed: FeedConfig{
			Interval: 30 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("dataDir", d.DataDir)
	v.SetDefault("itemsFile", d.ItemsFile)
	v.SetDefault("cacheFile", d.CacheFile)
	v.SetDefault("sessionFile", d.SessionFile)
	v.SetDefault("owner", d.Owner)
	v.SetDefault("cache.ttl", d.Cache.TTL)
	v.SetDefault("cache.memoTTL", d.Cache.MemoTTL)
	v.SetDefault("session.freshness", d.Session.Freshness)
	v.SetDefault("provider.name", d.Provider.Name)
	v.SetDefault("provider.model", d.Provider.Model)
	v.SetDefault("provider.apiKey", d.Provider.APIKey)
	v.SetDefault("provider.host", d.Provider.Host)
	v.SetDefault("provider.timeout", d.Provider.Timeout)
	v.SetDefault("feed.url", d.Feed.URL)
	v.SetDefault("feed.username", d.Feed.Username)
	v.SetDefault("feed.password", d.Feed.Password)
	v.SetDefault("feed.interval", d.Feed.Interval)
	v.SetDefault("logging.level", d.Logging.Level)
	v.SetDefault("logging.development", d.Logging.Development)
}

// LoadConfig reads .workfocus/config.{yaml,json,toml} under root, layered
// over the defaults and under WORKFOCUS_* environment variables. A missing
// file is not an error. A relative data dir is resolved against root.
func LoadConfig(root string) (*Config, error) {
	v := viper.New()
	setDefaults(v, DefaultConfig())

	v.SetConfigName("config")
	v.AddConfigPath(filepath.Join(root, DirName))
	v.SetEnvPrefix("WORKFOCUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	if !filepath.IsAbs(cfg.DataDir) {
		cfg.DataDir = filepath.Join(root, cfg.DataDir)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Save writes the configuration as .workfocus/config.yaml under root.
func (c *Config) Save(root string) error {
	dir := filepath.Join(root, DirName)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create config dir: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return os.WriteFile(filepath.Join(dir, "config.yaml"), data, 0644)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	switch {
	case c.DataDir == "":
		return &ConfigError{Field: "dataDir", Message: "must not be empty"}
	case c.Cache.TTL <= 0:
		return &ConfigError{Field: "cache.ttl", Message: "must be positive"}
	case c.Cache.MemoTTL <= 0:
		return &ConfigError{Field: "cache.memoTTL", Message: "must be positive"}
	case c.Session.Freshness <= 0:
		return &ConfigError{Field: "session.freshness", Message: "must be positive"}
	case c.Feed.Interval < time.Second:
		return &ConfigError{Field: "feed.interval", Message: "must be at least 1s"}
	}
	switch strings.ToLower(strings.TrimSpace(c.Provider.Name)) {
	case "", "ollama", "gemini", "genai", "none", "offline":
	default:
		return &ConfigError{Field: "provider.name", Message: fmt.Sprintf("unknown provider %q", c.Provider.Name)}
	}
	return nil
}

func (c *Config) path(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(c.DataDir, name)
}

func (c *Config) ItemsPath() string   { return c.path(c.ItemsFile) }
func (c *Config) CachePath() string   { return c.path(c.CacheFile) }
func (c *Config) SessionPath() string { return c.path(c.SessionFile) }

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}
