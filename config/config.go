package config

import (
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the enrichment tool.
type Config struct {
	Pipeline PipelineConfig `yaml:"pipeline"`
	LLM      LLMConfig      `yaml:"llm"`
	Cache    CacheConfig    `yaml:"cache"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// PipelineConfig holds enrichment and retrieval configuration.
type PipelineConfig struct {
	RawPath       string   `yaml:"raw_path"`
	ProcessedPath string   `yaml:"processed_path"`
	Includes      []string `yaml:"includes"` // patterns used when raw_path is a directory
	Excludes      []string `yaml:"excludes"`
	Concurrency   int      `yaml:"concurrency"` // extraction calls in flight (1 = sequential)
	MaxTags       int      `yaml:"max_tags"`
	ExampleLimit  int      `yaml:"example_limit"`
}

// LLMConfig holds generation model configuration.
type LLMConfig struct {
	Provider          string        `yaml:"provider"` // "groq", "openai", "deepseek", "local"
	Model             string        `yaml:"model"`
	BaseURL           string        `yaml:"base_url"`    // overrides the provider default
	APIKeyEnv         string        `yaml:"api_key_env"` // Environment variable for API key
	Temperature       float64       `yaml:"temperature"`
	MaxTokens         int           `yaml:"max_tokens"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"` // 0 = unlimited
}

// CacheConfig holds extraction cache configuration.
type CacheConfig struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path"` // default .postenrich/cache.db
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		Pipeline: PipelineConfig{
			RawPath:       "data/raw_posts.json",
			ProcessedPath: "data/processed_posts.json",
			Includes:      []string{"**/*.json"},
			Excludes:      []string{"**/processed_*.json", "**/.postenrich/**"},
			Concurrency:   1,
			MaxTags:       2,
			ExampleLimit:  3,
		},
		LLM: LLMConfig{
			Provider:          "groq",
			Model:             "llama-3.3-70b-versatile",
			APIKeyEnv:         "GROQ_API_KEY",
			Temperature:       0,
			Timeout:           60 * time.Second,
			RequestsPerMinute: 30,
		},
		Cache: CacheConfig{
			Enabled: false,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Load loads configuration from a YAML file.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil // Return defaults if no config file
		}
		return nil, err
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// LoadFromDir loads configuration from a directory (looks for postenrich.yaml).
func LoadFromDir(dir string) (*Config, error) {
	path := filepath.Join(dir, "postenrich.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	path = filepath.Join(dir, ".postenrich", "config.yaml")
	if _, err := os.Stat(path); err == nil {
		return Load(path)
	}

	return DefaultConfig(), nil
}

// Save saves configuration to a YAML file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Resolve makes a relative path relative to dir.
func Resolve(dir, path string) string {
	if path == "" || filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(dir, path)
}

// CacheDBPath returns the path to the extraction cache database.
func (c *Config) CacheDBPath(dir string) string {
	if c.Cache.Path != "" {
		return Resolve(dir, c.Cache.Path)
	}
	return filepath.Join(dir, ".postenrich", "cache.db")
}

// EnsureStateDir ensures the .postenrich directory exists.
func EnsureStateDir(dir string) error {
	return os.MkdirAll(filepath.Join(dir, ".postenrich"), 0755)
}
