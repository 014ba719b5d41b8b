// Package config holds the application configuration, loaded from an
// optional config file plus ADSCAN_-prefixed environment variables layered
// on top of built-in defaults.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration is the root configuration for both the batch runner and the
// API server.
type Configuration struct {
	Region      string `mapstructure:"region"`
	PresetDate  string `mapstructure:"preset_date"`
	Concurrency int    `mapstructure:"concurrency"`

	Browser BrowserConfig `mapstructure:"browser"`
	OCR     OCRConfig     `mapstructure:"ocr"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Retry   RetryConfig   `mapstructure:"retry"`
	Output  OutputConfig  `mapstructure:"output"`
	Dataset DatasetConfig `mapstructure:"dataset"`
	API     APIConfig     `mapstructure:"api"`
}

// BrowserConfig tunes page automation timing.
type BrowserConfig struct {
	NavTimeout    time.Duration `mapstructure:"nav_timeout"`
	MarkerWait    time.Duration `mapstructure:"marker_wait"`
	ContainerWait time.Duration `mapstructure:"container_wait"`
	PollInterval  time.Duration `mapstructure:"poll_interval"`
	Selector      string        `mapstructure:"selector"`
}

// OCRConfig selects and tunes the text-recognition engine.
type OCRConfig struct {
	Engine   string `mapstructure:"engine"`
	Binary   string `mapstructure:"binary"`
	Language string `mapstructure:"language"`
}

// FetchConfig bounds creative-image downloads.
type FetchConfig struct {
	Timeout  time.Duration `mapstructure:"timeout"`
	MaxBytes int64         `mapstructure:"max_bytes"`
	Rate     float64       `mapstructure:"rate"`
	Burst    int           `mapstructure:"burst"`
}

// RetryConfig shapes the browser-operation retry policy.
type RetryConfig struct {
	Attempts  int           `mapstructure:"attempts"`
	BaseDelay time.Duration `mapstructure:"base_delay"`
	MaxDelay  time.Duration `mapstructure:"max_delay"`
}

// OutputConfig selects local result destinations.
type OutputConfig struct {
	File  string `mapstructure:"file"`
	Excel string `mapstructure:"excel"`
}

// DatasetConfig points at a remote dataset service. Leaving Endpoint empty
// disables the remote push.
type DatasetConfig struct {
	Endpoint string `mapstructure:"endpoint"`
	ID       string `mapstructure:"id"`
	Token    string `mapstructure:"token"`
}

// APIConfig shapes the HTTP front door.
type APIConfig struct {
	Host       string        `mapstructure:"host"`
	Port       int           `mapstructure:"port"`
	KeyHeader  string        `mapstructure:"key_header"`
	EnableGzip bool          `mapstructure:"enable_gzip"`
	RateLimit  int           `mapstructure:"rate_limit"`
	RateWindow time.Duration `mapstructure:"rate_window"`
	// ReadTimeout bounds request reads; WriteTimeout bounds the whole
	// response and must leave room for a multi-domain scrape.
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
}

// New unmarshals and validates the configuration held by v.
func New(v *viper.Viper) (*Configuration, error) {
	var c Configuration
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("viper failed to unmarshal app config: %w", err)
	}
	if err := c.validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func (c *Configuration) validate() error {
	var errs []error

	if c.Region == "" {
		errs = append(errs, errors.New("region must not be empty"))
	}
	if c.Concurrency < 1 {
		errs = append(errs, fmt.Errorf("concurrency must be positive: %d", c.Concurrency))
	}
	if c.Retry.Attempts < 1 {
		errs = append(errs, fmt.Errorf("retry.attempts must be positive: %d", c.Retry.Attempts))
	}
	if c.Retry.BaseDelay <= 0 || c.Retry.MaxDelay < c.Retry.BaseDelay {
		errs = append(errs, fmt.Errorf("retry delays must satisfy 0 < base_delay <= max_delay, got %v and %v",
			c.Retry.BaseDelay, c.Retry.MaxDelay))
	}
	if c.Browser.NavTimeout <= 0 || c.Browser.MarkerWait <= 0 || c.Browser.ContainerWait <= 0 {
		errs = append(errs, errors.New("browser waits must be positive"))
	}
	if c.Fetch.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("fetch.timeout must be positive: %v", c.Fetch.Timeout))
	}
	if c.Dataset.Endpoint != "" {
		if c.Dataset.ID == "" {
			errs = append(errs, errors.New("dataset.id is required when dataset.endpoint is set"))
		}
		if c.Dataset.Token == "" {
			errs = append(errs, errors.New("dataset.token is required when dataset.endpoint is set"))
		}
	}
	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, fmt.Errorf("api.port must be a valid port: %d", c.API.Port))
	}
	if c.API.RateLimit < 1 {
		errs = append(errs, fmt.Errorf("api.rate_limit must be positive: %d", c.API.RateLimit))
	}
	if c.API.RateWindow <= 0 {
		errs = append(errs, fmt.Errorf("api.rate_window must be positive: %v", c.API.RateWindow))
	}
	if c.API.KeyHeader == "" {
		errs = append(errs, errors.New("api.key_header must not be empty"))
	}
	if c.API.ReadTimeout <= 0 || c.API.WriteTimeout <= 0 {
		errs = append(errs, errors.New("api.read_timeout and api.write_timeout must be positive"))
	}

	return errors.Join(errs...)
}

// SetupViper registers defaults, wires the ADSCAN_ environment prefix and
// reads the optional config file named by filename.
func SetupViper(v *viper.Viper, filename string) {
	if filename != "" {
		v.SetConfigName(filename)
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/adscan")
	}

	v.SetDefault("region", "US")
	v.SetDefault("preset_date", "Last 30 days")
	v.SetDefault("concurrency", 1)

	v.SetDefault("browser.nav_timeout", "30s")
	v.SetDefault("browser.marker_wait", "10s")
	v.SetDefault("browser.container_wait", "10s")
	v.SetDefault("browser.poll_interval", "500ms")
	v.SetDefault("browser.selector", "creative-preview")

	v.SetDefault("ocr.engine", "tesseract")
	v.SetDefault("ocr.binary", "")
	v.SetDefault("ocr.language", "eng")

	v.SetDefault("fetch.timeout", "10s")
	v.SetDefault("fetch.max_bytes", 8<<20)
	v.SetDefault("fetch.rate", 2.0)
	v.SetDefault("fetch.burst", 4)

	v.SetDefault("retry.attempts", 3)
	v.SetDefault("retry.base_delay", "4s")
	v.SetDefault("retry.max_delay", "10s")

	v.SetDefault("output.file", "output/results.ndjson")
	v.SetDefault("output.excel", "")

	v.SetDefault("dataset.endpoint", "")
	v.SetDefault("dataset.id", "")
	v.SetDefault("dataset.token", "")

	v.SetDefault("api.host", "")
	v.SetDefault("api.port", 8080)
	v.SetDefault("api.key_header", "X-RapidAPI-Key")
	v.SetDefault("api.enable_gzip", true)
	v.SetDefault("api.rate_limit", 10)
	v.SetDefault("api.rate_window", "60s")
	v.SetDefault("api.read_timeout", "15s")
	v.SetDefault("api.write_timeout", "10m")

	v.SetEnvPrefix("ADSCAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// A config file is optional; environment and defaults carry a bare run.
	_ = v.ReadInConfig()
}
