package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config holds the flowdex API and pipeline configuration.
type Config struct {
	HTTP       HTTPConfig       `yaml:"http"`
	Corpus     CorpusConfig     `yaml:"corpus"`
	Database   DatabaseConfig   `yaml:"database"`
	Sources    SourcesConfig    `yaml:"sources"`
	Generation GenerationConfig `yaml:"generation"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level string `yaml:"level"` // debug, info, warn, error (default: determined by env)
}

// HTTPConfig holds HTTP server settings.
type HTTPConfig struct {
	Port            int `yaml:"port"`
	ReadTimeoutSec  int `yaml:"read_timeout_sec"`
	WriteTimeoutSec int `yaml:"write_timeout_sec"`
	ShutdownSec     int `yaml:"shutdown_timeout_sec"`
}

// CorpusConfig holds corpus and index settings.
type CorpusConfig struct {
	Dir             string `yaml:"dir"`
	CleanedDir      string `yaml:"cleaned_dir"`
	MaxDescription  int    `yaml:"max_description"`
	DefaultPageSize int    `yaml:"default_page_size"`
	MaxPageSize     int    `yaml:"max_page_size"`
}

// DatabaseConfig holds the usage-counter store settings. Usage tracking is
// disabled when no addresses are configured.
type DatabaseConfig struct {
	Addrs            []string `yaml:"addrs"`
	Password         string   `yaml:"password"`
	ReadinessTimeout int      `yaml:"readiness_timeout_sec"`
	CounterTTLDays   int      `yaml:"counter_ttl_days"`
}

// SourcesConfig holds the ingestion source settings.
type SourcesConfig struct {
	API APISourceConfig `yaml:"api"`
	CMS CMSSourceConfig `yaml:"cms"`
}

// APISourceConfig holds the authenticated paginated API settings.
type APISourceConfig struct {
	Regions     map[string]string `yaml:"regions"` // region name -> base URL
	Token       string            `yaml:"token"`
	PageSize    int               `yaml:"page_size"`
	PageDelayMS int               `yaml:"page_delay_ms"`
}

// CMSSourceConfig holds the authoritative content database settings.
type CMSSourceConfig struct {
	BaseURL  string `yaml:"base_url"`
	Token    string `yaml:"token"`
	PageSize int    `yaml:"page_size"`
}

// GenerationConfig holds the generative-model provider settings.
type GenerationConfig struct {
	APIKey  string `yaml:"api_key"`
	BaseURL string `yaml:"base_url"`
	Model   string `yaml:"model"`
	TopK    int    `yaml:"top_k"`
}

// Load reads configuration from a YAML file by environment name (local, dev, prod).
func Load(env string) (Config, error) {
	configPath := findConfigPath(env)

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return Config{}, fmt.Errorf("failed to read config %s: %w", configPath, err)
	}

	// Substitute env variables of the form ${VAR}
	data = expandEnvVars(data)

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("failed to parse config: %w", err)
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// MustLoad loads configuration or panics.
func MustLoad(env string) Config {
	cfg, err := Load(env)
	if err != nil {
		panic(err)
	}
	return cfg
}

// GetEnv returns the current environment from the ENV variable, defaulting to "local".
func GetEnv() string {
	if env := os.Getenv("ENV"); env != "" {
		return env
	}
	return "local"
}

// ApplyDefaults fills empty fields with default values.
func (c *Config) ApplyDefaults() {
	if c.HTTP.ReadTimeoutSec <= 0 {
		c.HTTP.ReadTimeoutSec = 10
	}
	if c.HTTP.WriteTimeoutSec <= 0 {
		c.HTTP.WriteTimeoutSec = 10
	}
	if c.HTTP.ShutdownSec <= 0 {
		c.HTTP.ShutdownSec = 10
	}
	if c.Corpus.Dir == "" {
		c.Corpus.Dir = "data/templates"
	}
	if c.Corpus.CleanedDir == "" {
		c.Corpus.CleanedDir = "data/cleaned"
	}
	if c.Corpus.MaxDescription <= 0 {
		c.Corpus.MaxDescription = 150
	}
	if c.Corpus.DefaultPageSize <= 0 {
		c.Corpus.DefaultPageSize = 20
	}
	if c.Corpus.MaxPageSize <= 0 {
		c.Corpus.MaxPageSize = 100
	}
	if c.Database.ReadinessTimeout <= 0 {
		c.Database.ReadinessTimeout = 10
	}
	if c.Database.CounterTTLDays <= 0 {
		c.Database.CounterTTLDays = 90
	}
	if c.Sources.API.PageSize <= 0 {
		c.Sources.API.PageSize = 50
	}
	if c.Sources.API.PageDelayMS <= 0 {
		c.Sources.API.PageDelayMS = 500
	}
	if c.Sources.CMS.PageSize <= 0 {
		c.Sources.CMS.PageSize = 50
	}
	if c.Generation.Model == "" {
		c.Generation.Model = "gpt-4o-mini"
	}
	if c.Generation.TopK <= 0 {
		c.Generation.TopK = 3
	}
}

// Validate checks the configuration for correctness.
func (c *Config) Validate() error {
	if c.HTTP.Port <= 0 || c.HTTP.Port > 65535 {
		return fmt.Errorf("http.port must be between 1 and 65535, got %d", c.HTTP.Port)
	}
	if c.Corpus.DefaultPageSize > c.Corpus.MaxPageSize {
		return fmt.Errorf(
			"corpus.default_page_size (%d) must not exceed corpus.max_page_size (%d)",
			c.Corpus.DefaultPageSize, c.Corpus.MaxPageSize,
		)
	}
	for region, baseURL := range c.Sources.API.Regions {
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			return fmt.Errorf("sources.api.regions.%s must be an http(s) URL, got %q", region, baseURL)
		}
	}
	return nil
}

// findConfigPath locates the config file.
func findConfigPath(env string) string {
	filename := fmt.Sprintf("%s.yaml", env)

	// 1. Check ./config/
	if path := filepath.Join("config", filename); fileExists(path) {
		return path
	}

	// 2. Check relative to the source file
	_, b, _, _ := runtime.Caller(0)
	projectRoot := filepath.Dir(filepath.Dir(filepath.Dir(b))) // internal/config -> project root
	if path := filepath.Join(projectRoot, "config", filename); fileExists(path) {
		return path
	}

	// 3. Fallback to ./config/
	return filepath.Join("config", filename)
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// expandEnvVars replaces ${VAR} and ${VAR:-default} with environment variable values.
var envVarRegex = regexp.MustCompile(`\$\{([^}]+)\}`)

func expandEnvVars(data []byte) []byte {
	return envVarRegex.ReplaceAllFunc(data, func(match []byte) []byte {
		expr := string(match[2 : len(match)-1]) // strip ${ and }
		varName, defaultVal, hasDefault := strings.Cut(expr, ":-")
		val := os.Getenv(varName)
		if val == "" && hasDefault {
			val = defaultVal
		}
		return []byte(val)
	})
}
