// Package config loads and validates finder configuration with viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const defaultStartURL = "https://tribunalsearch.fwc.gov.au/document-search?q=*&options=SearchType_3%2CSortOrder_agreement-date-desc"

// Config is the full runtime configuration, loaded from a JSON file with
// FINDER_* environment overrides.
type Config struct {
	StartURLs         []string `mapstructure:"startUrls"`
	TargetURLs        []string `mapstructure:"targetUrls"`
	MaxPages          int      `mapstructure:"maxPages"`
	TargetPage        int      `mapstructure:"targetPage"`
	AgreementType     string   `mapstructure:"agreementType"`
	Status            string   `mapstructure:"status"`
	DownloadDocuments bool     `mapstructure:"downloadDocuments"`

	Retry   RetryConfig   `mapstructure:"retry"`
	Browser BrowserConfig `mapstructure:"browser"`
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Output  OutputConfig  `mapstructure:"output"`
}

// RetryConfig controls the escalating re-crawl rounds.
type RetryConfig struct {
	MaxAttempts int `mapstructure:"maxAttempts"`
	DepthStep   int `mapstructure:"depthStep"`
}

// BrowserConfig controls the per-worker headless browser.
type BrowserConfig struct {
	NavTimeoutSeconds int    `mapstructure:"navTimeoutSeconds"`
	UserAgent         string `mapstructure:"userAgent"`
}

// ServerConfig controls the optional status server. Port 0 disables it.
type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// LoggingConfig selects the logger profile.
type LoggingConfig struct {
	Development bool `mapstructure:"development"`
}

// OutputConfig controls where CSV exports and downloads are written.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// NavTimeout returns the browser navigation timeout as a duration.
func (c *Config) NavTimeout() time.Duration {
	return time.Duration(c.Browser.NavTimeoutSeconds) * time.Second
}

// Load reads the JSON config at path, applies defaults and environment
// overrides, and validates the result.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	v.SetEnvPrefix("FINDER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("startUrls", []string{defaultStartURL})
	v.SetDefault("maxPages", 5)
	v.SetDefault("targetPage", 1)
	v.SetDefault("downloadDocuments", false)
	v.SetDefault("retry.maxAttempts", 3)
	v.SetDefault("retry.depthStep", 100)
	v.SetDefault("browser.navTimeoutSeconds", 60)
	v.SetDefault("server.port", 0)
	v.SetDefault("logging.development", false)
	v.SetDefault("output.dir", "output")
}

// Validate checks invariants that would otherwise surface as confusing
// runtime behavior.
func (c *Config) Validate() error {
	if len(c.StartURLs) == 0 {
		return fmt.Errorf("config: startUrls must not be empty")
	}
	for _, u := range c.StartURLs {
		if !strings.HasPrefix(u, "http://") && !strings.HasPrefix(u, "https://") {
			return fmt.Errorf("config: start url %q is not absolute", u)
		}
	}
	if c.MaxPages < 1 {
		return fmt.Errorf("config: maxPages must be at least 1, got %d", c.MaxPages)
	}
	if c.TargetPage < 1 {
		return fmt.Errorf("config: targetPage must be at least 1, got %d", c.TargetPage)
	}
	if c.Retry.MaxAttempts < 0 {
		return fmt.Errorf("config: retry.maxAttempts must not be negative, got %d", c.Retry.MaxAttempts)
	}
	if c.Retry.DepthStep < 1 {
		return fmt.Errorf("config: retry.depthStep must be at least 1, got %d", c.Retry.DepthStep)
	}
	if c.Browser.NavTimeoutSeconds < 1 {
		return fmt.Errorf("config: browser.navTimeoutSeconds must be at least 1, got %d", c.Browser.NavTimeoutSeconds)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: server.port out of range: %d", c.Server.Port)
	}
	return nil
}
