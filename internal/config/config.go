// Package config provides the configuration schema and loader of spokenform.
package config

import (
	"log/slog"
	"time"

	"github.com/MrWong99/spokenform/internal/registry"
)

// LogLevel controls log verbosity.
type LogLevel string

const (
	LogDebug LogLevel = "debug"
	LogInfo  LogLevel = "info"
	LogWarn  LogLevel = "warn"
	LogError LogLevel = "error"
)

// IsValid reports whether l is a recognised log level.
func (l LogLevel) IsValid() bool {
	switch l {
	case LogDebug, LogInfo, LogWarn, LogError:
		return true
	}
	return false
}

// Level returns the slog level of l. Unknown levels map to info.
func (l LogLevel) Level() slog.Level {
	switch l {
	case LogDebug:
		return slog.LevelDebug
	case LogWarn:
		return slog.LevelWarn
	case LogError:
		return slog.LevelError
	}
	return slog.LevelInfo
}

// Config is the root configuration structure.
// It is typically loaded from a YAML file using [Load] or [LoadFromReader].
type Config struct {
	// LogLevel controls verbosity. Defaults to info.
	LogLevel LogLevel `yaml:"log_level"`

	// LogFile, when set, sends logs to a rotated file instead of stderr.
	LogFile string `yaml:"log_file"`

	// Language is the registry code of the grammars to build.
	Language string `yaml:"language"`

	// InputCase selects the whitelist behaviour: lower_cased or cased.
	InputCase registry.InputCase `yaml:"input_case"`

	// Whitelist is an optional TSV file of extra written/spoken pairs.
	Whitelist string `yaml:"whitelist"`

	// PreProcess pads brackets before classification.
	PreProcess bool `yaml:"pre_process"`

	// PostProcess tidies punctuation spacing in the output.
	PostProcess bool `yaml:"post_process"`

	// MaxPermutationsPerSplit bounds the field orders tried per chunk.
	MaxPermutationsPerSplit uint64 `yaml:"max_permutations_per_split"`

	// MaxDepth bounds nesting in parsed token trees.
	MaxDepth int `yaml:"max_depth"`

	// Workers is the number of texts normalized concurrently in a batch.
	Workers int `yaml:"workers"`

	// VerbalizeCacheSize is the number of memoised verbalizer results.
	// Zero disables the cache.
	VerbalizeCacheSize int `yaml:"verbalize_cache_size"`

	// VerbalizeCacheTTL expires memoised results. Zero keeps them until
	// evicted.
	VerbalizeCacheTTL time.Duration `yaml:"verbalize_cache_ttl"`

	Cache  CacheConfig  `yaml:"cache"`
	Server ServerConfig `yaml:"server"`
}

// CacheConfig configures the compiled-grammar cache.
type CacheConfig struct {
	// Dir holds compiled grammars. Empty disables the cache.
	Dir string `yaml:"dir"`

	// Overwrite rebuilds the grammars even when a cache file exists.
	Overwrite bool `yaml:"overwrite"`
}

// ServerConfig holds the HTTP settings.
type ServerConfig struct {
	// ListenAddr is the TCP address the server listens on (e.g., ":8080").
	ListenAddr string `yaml:"listen_addr"`

	// ShutdownTimeout bounds graceful shutdown. Defaults to 10s.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}
