package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/MrWong99/spokenform/internal/permute"
	"github.com/MrWong99/spokenform/internal/registry"
	"github.com/MrWong99/spokenform/pkg/tokens"
)

// Default values filled in by [ApplyDefaults].
const (
	DefaultLanguage        = "en"
	DefaultListenAddr      = ":8080"
	DefaultShutdownTimeout = 10 * time.Second
)

// Load reads the YAML configuration file at path and returns a validated [Config].
// It is a convenience wrapper around [LoadFromReader].
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %q: %w", path, err)
	}
	defer f.Close()

	cfg, err := LoadFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("config: parse %q: %w", path, err)
	}
	return cfg, nil
}

// LoadFromReader decodes a YAML config from r, fills in defaults and
// validates the result. An empty document yields the defaults.
func LoadFromReader(r io.Reader) (*Config, error) {
	cfg := &Config{}
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: decode yaml: %w", err)
	}
	ApplyDefaults(cfg)
	if err := Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults fills in every unset field that has a default.
func ApplyDefaults(cfg *Config) {
	if cfg.LogLevel == "" {
		cfg.LogLevel = LogInfo
	}
	if cfg.Language == "" {
		cfg.Language = DefaultLanguage
	}
	if cfg.InputCase == "" {
		cfg.InputCase = registry.Cased
	}
	if cfg.MaxPermutationsPerSplit == 0 {
		cfg.MaxPermutationsPerSplit = permute.DefaultBound
	}
	if cfg.MaxDepth == 0 {
		cfg.MaxDepth = tokens.DefaultMaxDepth
	}
	if cfg.Workers == 0 {
		cfg.Workers = runtime.GOMAXPROCS(0)
	}
	if cfg.Server.ListenAddr == "" {
		cfg.Server.ListenAddr = DefaultListenAddr
	}
	if cfg.Server.ShutdownTimeout == 0 {
		cfg.Server.ShutdownTimeout = DefaultShutdownTimeout
	}
}

// Validate checks that cfg contains a coherent set of values.
// It returns a joined error listing all validation failures found.
func Validate(cfg *Config) error {
	var errs []error

	if !cfg.LogLevel.IsValid() {
		errs = append(errs, fmt.Errorf("log_level %q is invalid; valid values: debug, info, warn, error", cfg.LogLevel))
	}
	if cfg.Language == "" {
		errs = append(errs, errors.New("language is required"))
	}
	if !cfg.InputCase.IsValid() {
		errs = append(errs, fmt.Errorf("input_case %q is invalid; valid values: lower_cased, cased", cfg.InputCase))
	}
	if cfg.Whitelist != "" {
		if _, err := os.Stat(cfg.Whitelist); err != nil {
			errs = append(errs, fmt.Errorf("whitelist: %w", err))
		}
	}
	if cfg.MaxPermutationsPerSplit == 0 {
		errs = append(errs, errors.New("max_permutations_per_split must be positive"))
	}
	if cfg.MaxDepth <= 0 {
		errs = append(errs, fmt.Errorf("max_depth %d must be positive", cfg.MaxDepth))
	}
	if cfg.Workers <= 0 {
		errs = append(errs, fmt.Errorf("workers %d must be positive", cfg.Workers))
	}
	if cfg.VerbalizeCacheSize < 0 {
		errs = append(errs, fmt.Errorf("verbalize_cache_size %d must not be negative", cfg.VerbalizeCacheSize))
	}
	if cfg.VerbalizeCacheTTL < 0 {
		errs = append(errs, fmt.Errorf("verbalize_cache_ttl %s must not be negative", cfg.VerbalizeCacheTTL))
	}
	if cfg.Server.ShutdownTimeout < 0 {
		errs = append(errs, fmt.Errorf("server.shutdown_timeout %s must not be negative", cfg.Server.ShutdownTimeout))
	}

	if cfg.Cache.Overwrite && cfg.Cache.Dir == "" {
		slog.Warn("cache.overwrite is set but cache.dir is empty; nothing will be cached")
	}
	if cfg.VerbalizeCacheSize == 0 && cfg.VerbalizeCacheTTL > 0 {
		slog.Warn("verbalize_cache_ttl is set but verbalize_cache_size is 0; the cache stays disabled")
	}

	return errors.Join(errs...)
}
