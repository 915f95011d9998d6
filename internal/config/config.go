package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration settings for the indexer.
type Config struct {
	// RepoRoot is the repository the indexer operates over.
	RepoRoot string `yaml:"repo_root"`

	Store  StoreConfig  `yaml:"store"`
	Batch  BatchConfig  `yaml:"batch"`
	Watch  WatchConfig  `yaml:"watch"`
	Search SearchConfig `yaml:"search"`
}

// StoreConfig controls the sqlite-backed Store's connection pool.
type StoreConfig struct {
	Path        string `yaml:"path"`
	PoolSize    int    `yaml:"pool_size"`
	PoolMinIdle int    `yaml:"pool_min_idle"`
}

// BatchConfig controls the batch writer's flush triggers.
type BatchConfig struct {
	BatchSize       int `yaml:"batch_size"`
	FlushIntervalMS int `yaml:"flush_interval_ms"`
	MaxMemoryMB     int `yaml:"max_memory_mb"`
}

// WatchConfig controls the filesystem watch loop.
type WatchConfig struct {
	Mode             string `yaml:"mode"` // "off", "auto", "on"
	DebounceMS       int    `yaml:"debounce_ms"`
	UrgentDebounceMS int    `yaml:"urgent_debounce_ms"`
	FallbackScanSecs int    `yaml:"fallback_scan_secs"`
	MaxBatch         int    `yaml:"max_batch"`
	BatchThreshold   int    `yaml:"batch_threshold"`
	UrgentWindowSecs int    `yaml:"urgent_window_secs"`
	Bootstrap        bool   `yaml:"bootstrap"`
	NoIgnore         bool   `yaml:"no_ignore"`
}

// SearchConfig bounds text-search-adjacent request parameters.
type SearchConfig struct {
	TimeoutSecs      int `yaml:"timeout_secs"`
	PatternMaxLength int `yaml:"pattern_max_length"`
}

// Default returns the documented default configuration.
func Default() *Config {
	cwd, _ := os.Getwd()
	return &Config{
		RepoRoot: cwd,
		Store: StoreConfig{
			Path:        filepath.Join(cwd, ".lidx", ".lidx.sqlite"),
			PoolSize:    8,
			PoolMinIdle: 2,
		},
		Batch: BatchConfig{
			BatchSize:       100,
			FlushIntervalMS: 500,
			MaxMemoryMB:     10,
		},
		Watch: WatchConfig{
			Mode:             "auto",
			DebounceMS:       300,
			UrgentDebounceMS: 50,
			FallbackScanSecs: 300,
			MaxBatch:         1000,
			BatchThreshold:   10,
			UrgentWindowSecs: 60,
			Bootstrap:        true,
		},
		Search: SearchConfig{
			TimeoutSecs:      5,
			PatternMaxLength: 256,
		},
	}
}

// Load loads configuration from an optional YAML file plus LIDX_* environment
// variables, falling back to Default() for anything unset.
func Load(path string) (*Config, error) {
	loadEnvFiles()

	v := viper.New()
	v.SetConfigType("yaml")

	cfg := Default()
	v.SetDefault("repo_root", cfg.RepoRoot)
	v.SetDefault("store", cfg.Store)
	v.SetDefault("batch", cfg.Batch)
	v.SetDefault("watch", cfg.Watch)
	v.SetDefault("search", cfg.Search)

	v.SetEnvPrefix("LIDX")
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".lidx")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	applyEnvOverrides(cfg)

	return cfg, nil
}

// loadEnvFiles loads .env files in order of precedence; missing files are not an error.
func loadEnvFiles() {
	envFiles := []string{".env.local", ".env"}
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			_ = godotenv.Load(file)
		}
	}
}

// applyEnvOverrides applies the LIDX_* environment variables named in the
// external interfaces section, taking precedence over file/defaults.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LIDX_SEARCH_TIMEOUT_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.TimeoutSecs = n
		}
	}
	if v := os.Getenv("LIDX_PATTERN_MAX_LENGTH"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Search.PatternMaxLength = n
		}
	}
	if v := os.Getenv("LIDX_POOL_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.PoolSize = n
		}
	}
	if v := os.Getenv("LIDX_POOL_MIN_IDLE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.PoolMinIdle = n
		}
	}
	if v := os.Getenv("LIDX_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.BatchSize = n
		}
	}
	if v := os.Getenv("LIDX_FLUSH_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.FlushIntervalMS = n
		}
	}
	if v := os.Getenv("LIDX_MAX_MEMORY_MB"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Batch.MaxMemoryMB = n
		}
	}
	if v := os.Getenv("LIDX_URGENT_DEBOUNCE_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watch.UrgentDebounceMS = n
		}
	}
	if v := os.Getenv("LIDX_BATCH_THRESHOLD"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watch.BatchThreshold = n
		}
	}
	if v := os.Getenv("LIDX_URGENT_WINDOW_SECS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Watch.UrgentWindowSecs = n
		}
	}
}

// FlushInterval returns the batch writer's flush interval as a Duration.
func (c BatchConfig) FlushInterval() time.Duration {
	return time.Duration(c.FlushIntervalMS) * time.Millisecond
}

// MaxMemoryBytes returns the batch writer's memory trigger in bytes.
func (c BatchConfig) MaxMemoryBytes() int64 {
	return int64(c.MaxMemoryMB) * 1024 * 1024
}

// Debounce returns the watch loop's normal debounce as a Duration.
func (c WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMS) * time.Millisecond
}

// UrgentDebounce returns the watch loop's urgent debounce as a Duration.
func (c WatchConfig) UrgentDebounce() time.Duration {
	return time.Duration(c.UrgentDebounceMS) * time.Millisecond
}

// FallbackScan returns the watch loop's fallback full-scan interval.
func (c WatchConfig) FallbackScan() time.Duration {
	return time.Duration(c.FallbackScanSecs) * time.Second
}

// UrgentWindow returns the watch loop's urgent re-edit window.
func (c WatchConfig) UrgentWindow() time.Duration {
	return time.Duration(c.UrgentWindowSecs) * time.Second
}

// Save writes the configuration to a YAML file.
func (c *Config) Save(path string) error {
	v := viper.New()
	v.SetConfigType("yaml")

	v.Set("repo_root", c.RepoRoot)
	v.Set("store", c.Store)
	v.Set("batch", c.Batch)
	v.Set("watch", c.Watch)
	v.Set("search", c.Search)

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}

	return nil
}
