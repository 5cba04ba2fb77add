// Package config loads the bitcrawl settings: a YAML file merged over the
// defaults, an optional .env file and BITCRAWL_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"

	"github.com/hobson/bitcrawl/internal/extract"
	"github.com/hobson/bitcrawl/internal/fetch"
	"github.com/hobson/bitcrawl/internal/harvest"
	"github.com/hobson/bitcrawl/internal/logging"
	"github.com/hobson/bitcrawl/internal/stats"
)

// Default config file path.
const DefaultConfigPath = "~/.config/bitcrawl/config.yaml"

// EnvPrefix prefixes every environment override.
const EnvPrefix = "BITCRAWL"

// DotEnvFile is loaded from the working directory when present.
var DotEnvFile = ".env"

// Config holds all bitcrawl configuration.
type Config struct {
	Storage   StorageConfig   `yaml:"storage" envconfig:"STORAGE"`
	Fetch     FetchConfig     `yaml:"fetch" envconfig:"FETCH"`
	Analysis  AnalysisConfig  `yaml:"analysis" envconfig:"ANALYSIS"`
	Retention RetentionConfig `yaml:"retention" envconfig:"RETENTION"`
	Watch     WatchConfig     `yaml:"watch" envconfig:"WATCH"`
	Logging   LoggingConfig   `yaml:"logging" envconfig:"LOGGING"`
	Crawl     CrawlConfig     `yaml:"crawl" envconfig:"CRAWL"`

	Sources   map[string]SourceConfig      `yaml:"sources" ignored:"true"`
	Endpoints map[string]EndpointConfig    `yaml:"endpoints" ignored:"true"`
	Crawls    map[string]CrawlTargetConfig `yaml:"crawls" ignored:"true"`
}

type StorageConfig struct {
	Dir         string `yaml:"dir" envconfig:"DIR"`
	LogFile     string `yaml:"log_file" envconfig:"LOG_FILE"`
	JournalFile string `yaml:"journal_file" envconfig:"JOURNAL_FILE"`
}

type FetchConfig struct {
	TimeoutSeconds    int     `yaml:"timeout_seconds" envconfig:"TIMEOUT_SECONDS"`
	Retries           int     `yaml:"retries" envconfig:"RETRIES"`
	RetryWaitMillis   int     `yaml:"retry_wait_ms" envconfig:"RETRY_WAIT_MS"`
	UserAgent         string  `yaml:"user_agent" envconfig:"USER_AGENT"`
	MaxBytes          int64   `yaml:"max_bytes" envconfig:"MAX_BYTES"`
	MaxRedirects      int     `yaml:"max_redirects" envconfig:"MAX_REDIRECTS"`
	RequestsPerSecond float64 `yaml:"requests_per_second" envconfig:"REQUESTS_PER_SECOND"`
	Burst             int     `yaml:"burst" envconfig:"BURST"`
	Concurrency       int     `yaml:"concurrency" envconfig:"CONCURRENCY"`
}

// AnalysisConfig controls series reconstruction and correlation.
// Variance is the named divisor switch: population (N) or sample (N-1).
type AnalysisConfig struct {
	Variance  string `yaml:"variance" envconfig:"VARIANCE"`
	TimeField string `yaml:"time_field" envconfig:"TIME_FIELD"`
	Leads     []int  `yaml:"leads" envconfig:"LEADS"`
}

type RetentionConfig struct {
	JournalDays int `yaml:"journal_days" envconfig:"JOURNAL_DAYS"`
}

type WatchConfig struct {
	IntervalMinutes int `yaml:"interval_minutes" envconfig:"INTERVAL_MINUTES"`
}

type LoggingConfig struct {
	Level  string `yaml:"level" envconfig:"LEVEL"`
	Format string `yaml:"format" envconfig:"FORMAT"`
}

type CrawlConfig struct {
	DenyHosts []string `yaml:"deny_hosts" envconfig:"DENY_HOSTS"`
}

// SourceConfig is a page and the rules mined from it.
type SourceConfig struct {
	URL    string       `yaml:"url"`
	Fields extract.Spec `yaml:"fields"`
}

// EndpointConfig is a REST JSON source.
type EndpointConfig struct {
	URL string `yaml:"url"`
}

// CrawlTargetConfig is a link-count crawl.
type CrawlTargetConfig struct {
	URL      string `yaml:"url"`
	MaxDepth int    `yaml:"max_depth"`
	MaxPages int    `yaml:"max_pages"`
}

// Load reads a YAML config file at path, merges it with defaults and
// applies environment overrides. Returns an error if the file cannot be
// read or contains invalid YAML.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	cfg, err := parse(data)
	if err != nil {
		return nil, err
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parse merges data over the defaults. A table left out of the file keeps
// its defaults; a table present in the file replaces them.
func parse(data []byte) (*Config, error) {
	cfg := DefaultConfig()
	cfg.Sources, cfg.Endpoints, cfg.Crawls = nil, nil, nil

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if cfg.Sources == nil {
		cfg.Sources = DefaultSources()
	}
	if cfg.Endpoints == nil {
		cfg.Endpoints = DefaultEndpoints()
	}
	if cfg.Crawls == nil {
		cfg.Crawls = DefaultCrawls()
	}
	return cfg, nil
}

// applyEnv loads DotEnvFile, if any, then BITCRAWL_* variables.
// Variables already set in the environment win over the .env file.
func (c *Config) applyEnv() error {
	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}
	if err := envconfig.Process(EnvPrefix, c); err != nil {
		return fmt.Errorf("environment overrides: %w", err)
	}
	return nil
}

// Validate checks the settings that are interpreted rather than copied.
func (c *Config) Validate() error {
	if _, err := stats.ParseDivisor(c.Analysis.Variance); err != nil {
		return fmt.Errorf("analysis.variance: %w", err)
	}
	if _, err := logging.ParseLevel(c.Logging.Level); err != nil {
		return fmt.Errorf("logging.level: %w", err)
	}
	for name, src := range c.Sources {
		if src.URL == "" {
			return fmt.Errorf("sources.%s: url is required", name)
		}
		if err := src.Fields.Validate(); err != nil {
			return fmt.Errorf("sources.%s: %w", name, err)
		}
	}
	for name, ep := range c.Endpoints {
		if ep.URL == "" {
			return fmt.Errorf("endpoints.%s: url is required", name)
		}
	}
	for name, ct := range c.Crawls {
		if ct.URL == "" {
			return fmt.Errorf("crawls.%s: url is required", name)
		}
	}
	return nil
}

// Divisor returns the variance divisor named by analysis.variance.
func (c *Config) Divisor() stats.Divisor {
	d, _ := stats.ParseDivisor(c.Analysis.Variance)
	return d
}

// LogPath returns the expanded path of the record log.
func (c *Config) LogPath() (string, error) {
	return c.storagePath(c.Storage.LogFile)
}

// JournalPath returns the expanded path of the fetch journal.
func (c *Config) JournalPath() (string, error) {
	return c.storagePath(c.Storage.JournalFile)
}

func (c *Config) storagePath(name string) (string, error) {
	name, err := expandPath(name)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(name) {
		return name, nil
	}
	dir, err := expandPath(c.Storage.Dir)
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, name), nil
}

// FetchOptions converts the fetch section into client options.
func (c *Config) FetchOptions() fetch.Options {
	return fetch.Options{
		Timeout:           time.Duration(c.Fetch.TimeoutSeconds) * time.Second,
		Retries:           c.Fetch.Retries,
		RetryWait:         time.Duration(c.Fetch.RetryWaitMillis) * time.Millisecond,
		UserAgent:         c.Fetch.UserAgent,
		MaxBytes:          c.Fetch.MaxBytes,
		MaxRedirects:      c.Fetch.MaxRedirects,
		RequestsPerSecond: c.Fetch.RequestsPerSecond,
		Burst:             c.Fetch.Burst,
	}
}

// Plan builds the harvest plan from the sources, endpoints and crawls
// tables, each ordered by name.
func (c *Config) Plan() harvest.Plan {
	plan := harvest.Plan{DenyHosts: c.Crawl.DenyHosts}
	for _, name := range sortedKeys(c.Sources) {
		src := c.Sources[name]
		plan.Sources = append(plan.Sources, harvest.Source{Name: name, URL: src.URL, Spec: src.Fields})
	}
	for _, name := range sortedKeys(c.Endpoints) {
		plan.Endpoints = append(plan.Endpoints, harvest.Endpoint{Name: name, URL: c.Endpoints[name].URL})
	}
	for _, name := range sortedKeys(c.Crawls) {
		ct := c.Crawls[name]
		plan.Crawls = append(plan.Crawls, harvest.CrawlTarget{
			Name:     name,
			URL:      ct.URL,
			MaxDepth: ct.MaxDepth,
			MaxPages: ct.MaxPages,
		})
	}
	return plan
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// expandPath replaces a leading ~ with the user's home directory.
func expandPath(path string) (string, error) {
	if len(path) > 0 && path[0] == '~' {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolving home directory: %w", err)
		}
		return filepath.Join(home, path[1:]), nil
	}
	return path, nil
}

// ExpandPath is expandPath for callers outside the package.
func ExpandPath(path string) (string, error) { return expandPath(path) }

// LoadOrCreate loads the config from the default path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreate() (*Config, error) {
	path, err := expandPath(DefaultConfigPath)
	if err != nil {
		return nil, err
	}
	return LoadOrCreateAt(path)
}

// LoadOrCreateAt loads the config from the given path. If the file does
// not exist, it creates the directory structure and writes defaults.
func LoadOrCreateAt(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := DefaultConfig()

		dir := filepath.Dir(path)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("creating config directory: %w", err)
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return nil, fmt.Errorf("marshaling default config: %w", err)
		}

		if err := os.WriteFile(path, data, 0644); err != nil {
			return nil, fmt.Errorf("writing default config: %w", err)
		}

		if err := cfg.applyEnv(); err != nil {
			return nil, err
		}
		if err := cfg.Validate(); err != nil {
			return nil, err
		}
		return cfg, nil
	}

	return Load(path)
}
