package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds every recognized option of the archiver. Each field affects
// exactly one component; there is no cross-cutting runtime behavior hidden
// here.
type Config struct {
	// OutputDir is the directory all artifacts are written under.
	OutputDir string `yaml:"output_dir"`
	// LogFile is the log filename, created inside OutputDir.
	LogFile string `yaml:"log_file"`
	// Concurrency bounds the number of assets processed simultaneously.
	Concurrency int `yaml:"concurrency"`
	// Retries is the attempt count for file blob downloads.
	Retries int `yaml:"retries"`
	// BaseDelaySeconds is the backoff unit between blob download attempts.
	BaseDelaySeconds int `yaml:"base_delay_seconds"`
	// SiteURL is the root of the Socrata site; the API and download bases
	// are derived from it.
	SiteURL string `yaml:"site_url"`
}

// Default returns the configuration used when no file or flags override it.
func Default() *Config {
	return &Config{
		OutputDir:        "cdc_data",
		LogFile:          "socrata_downloader_log.txt",
		Concurrency:      3,
		Retries:          3,
		BaseDelaySeconds: 1,
		SiteURL:          "https://data.cdc.gov",
	}
}

// BaseDelay returns the backoff unit as a duration.
func (c *Config) BaseDelay() time.Duration {
	return time.Duration(c.BaseDelaySeconds) * time.Second
}

// APIBaseURL returns the metadata API root derived from the site URL.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/api"
}

// DownloadBaseURL returns the file blob root derived from the site URL.
func (c *Config) DownloadBaseURL() string {
	return strings.TrimRight(c.SiteURL, "/") + "/download"
}

// Validate performs basic sanity checks on the configuration.
func (c *Config) Validate() error {
	if c.OutputDir == "" {
		return fmt.Errorf("validation error: output_dir is required")
	}
	if c.LogFile == "" {
		return fmt.Errorf("validation error: log_file is required")
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("validation error: concurrency must be positive, got %d", c.Concurrency)
	}
	if c.Retries <= 0 {
		return fmt.Errorf("validation error: retries must be positive, got %d", c.Retries)
	}
	if c.BaseDelaySeconds <= 0 {
		return fmt.Errorf("validation error: base_delay_seconds must be positive, got %d", c.BaseDelaySeconds)
	}
	if c.SiteURL == "" {
		return fmt.Errorf("validation error: site_url is required")
	}
	return nil
}

// Load reads a YAML configuration file over the defaults and validates the
// result.
func Load(configPath string) (*Config, error) {
	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", configPath, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML from '%s': %w", configPath, err)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}
