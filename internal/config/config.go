// Package config provides configuration loading, defaults, and validation.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Log     LogConfig     `mapstructure:"log"`
	Plaud   PlaudConfig   `mapstructure:"plaud"`
	Webhook WebhookConfig `mapstructure:"webhook"`
	Batch   BatchConfig   `mapstructure:"batch"`
}

type ServerConfig struct {
	Host              string   `mapstructure:"host"`
	Port              int      `mapstructure:"port"`
	Mode              string   `mapstructure:"mode"`
	ReadHeaderTimeout int      `mapstructure:"read_header_timeout"`
	IdleTimeout       int      `mapstructure:"idle_timeout"`
	TrustedProxies    []string `mapstructure:"trusted_proxies"`
}

type LogConfig struct {
	Level       string          `mapstructure:"level"`
	Format      string          `mapstructure:"format"`
	ServiceName string          `mapstructure:"service_name"`
	Environment string          `mapstructure:"env"`
	Caller      bool            `mapstructure:"caller"`
	Output      LogOutputConfig `mapstructure:"output"`
	Rotation    LogRotation     `mapstructure:"rotation"`
}

type LogOutputConfig struct {
	ToStdout bool   `mapstructure:"to_stdout"`
	ToFile   bool   `mapstructure:"to_file"`
	FilePath string `mapstructure:"file_path"`
}

type LogRotation struct {
	MaxSizeMB  int  `mapstructure:"max_size_mb"`
	MaxBackups int  `mapstructure:"max_backups"`
	MaxAgeDays int  `mapstructure:"max_age_days"`
	Compress   bool `mapstructure:"compress"`
}

// PlaudConfig configures the upstream Plaud API client.
type PlaudConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	ClientID       string `mapstructure:"client_id"`
	SecretKey      string `mapstructure:"secret_key"`
	RequestTimeout int    `mapstructure:"request_timeout"` // seconds, per HTTP call
	// TokenCacheSweep is a cron spec pruning expired token cache entries.
	// Empty disables the sweeper.
	TokenCacheSweep string `mapstructure:"token_cache_sweep"`
}

func (c PlaudConfig) Timeout() time.Duration {
	if c.RequestTimeout <= 0 {
		return 30 * time.Second
	}
	return time.Duration(c.RequestTimeout) * time.Second
}

// WebhookConfig configures the inbound trigger endpoint.
type WebhookConfig struct {
	// Event filters deliveries; "*" forwards every event.
	Event           string             `mapstructure:"event"`
	SignatureHeader string             `mapstructure:"signature_header"`
	DeliveryHeader  string             `mapstructure:"delivery_header"`
	ForwardURLs     []string           `mapstructure:"forward_urls"`
	Dedup           WebhookDedupConfig `mapstructure:"dedup"`
}

type WebhookDedupConfig struct {
	Enabled    bool `mapstructure:"enabled"`
	TTLMinutes int  `mapstructure:"ttl_minutes"`
	MaxEntries int  `mapstructure:"max_entries"`
}

type BatchConfig struct {
	MaxItems       int  `mapstructure:"max_items"`
	ContinueOnFail bool `mapstructure:"continue_on_fail"`
}

// Load reads and validates the full configuration.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")

	if dataDir := os.Getenv("DATA_DIR"); dataDir != "" {
		viper.AddConfigPath(dataDir)
	}
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AddConfigPath("/etc/plaud-bridge")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("read config error: %w", err)
		}
		// Missing config file falls back to defaults plus env.
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}

	cfg.Server.Mode = strings.ToLower(strings.TrimSpace(cfg.Server.Mode))
	if cfg.Server.Mode == "" {
		cfg.Server.Mode = "release"
	}
	cfg.Log.Level = strings.ToLower(strings.TrimSpace(cfg.Log.Level))
	cfg.Log.Format = strings.ToLower(strings.TrimSpace(cfg.Log.Format))
	cfg.Log.ServiceName = strings.TrimSpace(cfg.Log.ServiceName)
	cfg.Log.Output.FilePath = strings.TrimSpace(cfg.Log.Output.FilePath)
	cfg.Plaud.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Plaud.BaseURL), "/")
	cfg.Plaud.ClientID = strings.TrimSpace(cfg.Plaud.ClientID)
	cfg.Plaud.SecretKey = strings.TrimSpace(cfg.Plaud.SecretKey)
	cfg.Webhook.Event = strings.TrimSpace(cfg.Webhook.Event)
	cfg.Webhook.SignatureHeader = strings.TrimSpace(cfg.Webhook.SignatureHeader)
	cfg.Webhook.DeliveryHeader = strings.TrimSpace(cfg.Webhook.DeliveryHeader)
	cfg.Webhook.ForwardURLs = normalizeStringSlice(cfg.Webhook.ForwardURLs)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config error: %w", err)
	}

	return &cfg, nil
}

func setDefaults() {
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.mode", "release")
	viper.SetDefault("server.read_header_timeout", 30)
	viper.SetDefault("server.idle_timeout", 120)
	viper.SetDefault("server.trusted_proxies", []string{})

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "json")
	viper.SetDefault("log.service_name", "plaud-bridge")
	viper.SetDefault("log.env", "production")
	viper.SetDefault("log.caller", false)
	viper.SetDefault("log.output.to_stdout", true)
	viper.SetDefault("log.output.to_file", false)
	viper.SetDefault("log.rotation.max_size_mb", 100)
	viper.SetDefault("log.rotation.max_backups", 10)
	viper.SetDefault("log.rotation.max_age_days", 7)
	viper.SetDefault("log.rotation.compress", true)

	viper.SetDefault("plaud.base_url", "https://platform.plaud.ai")
	// Registered so AutomaticEnv can supply them; there is no usable default.
	viper.SetDefault("plaud.client_id", "")
	viper.SetDefault("plaud.secret_key", "")
	viper.SetDefault("plaud.request_timeout", 30)
	viper.SetDefault("plaud.token_cache_sweep", "@every 10m")

	viper.SetDefault("webhook.event", "audio_transcribe.completed")
	viper.SetDefault("webhook.signature_header", "X-Plaud-Signature")
	viper.SetDefault("webhook.delivery_header", "X-Plaud-Delivery")
	viper.SetDefault("webhook.forward_urls", []string{})
	viper.SetDefault("webhook.dedup.enabled", true)
	viper.SetDefault("webhook.dedup.ttl_minutes", 60)
	viper.SetDefault("webhook.dedup.max_entries", 10000)

	viper.SetDefault("batch.max_items", 100)
	viper.SetDefault("batch.continue_on_fail", false)
}

// Validate checks configuration invariants that would otherwise surface as
// confusing runtime failures.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port out of range: %d", c.Server.Port)
	}

	if c.Plaud.BaseURL == "" {
		return fmt.Errorf("plaud.base_url is required")
	}
	base, err := url.Parse(c.Plaud.BaseURL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return fmt.Errorf("plaud.base_url is not a valid URL: %q", c.Plaud.BaseURL)
	}
	if c.Plaud.ClientID == "" {
		return fmt.Errorf("plaud.client_id is required")
	}
	if c.Plaud.SecretKey == "" {
		return fmt.Errorf("plaud.secret_key is required")
	}

	if c.Webhook.Event == "" {
		return fmt.Errorf("webhook.event is required (use \"*\" for all events)")
	}
	for _, u := range c.Webhook.ForwardURLs {
		parsed, err := url.Parse(u)
		if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
			return fmt.Errorf("webhook.forward_urls entry is not a valid http(s) URL: %q", u)
		}
	}
	if c.Webhook.Dedup.Enabled {
		if c.Webhook.Dedup.TTLMinutes <= 0 {
			return fmt.Errorf("webhook.dedup.ttl_minutes must be positive")
		}
		if c.Webhook.Dedup.MaxEntries <= 0 {
			return fmt.Errorf("webhook.dedup.max_entries must be positive")
		}
	}

	if c.Batch.MaxItems < 0 {
		return fmt.Errorf("batch.max_items must not be negative")
	}
	return nil
}

func normalizeStringSlice(in []string) []string {
	out := make([]string, 0, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
