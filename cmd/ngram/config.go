package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/natefinch/atomic"

	"github.com/Shubh-17-am/ml-intern-assessment/pkg/ngram"
)

// Config holds the settings for the ngram command.
type Config struct {
	CorpusPath   string `json:"corpus_path"`
	DatabasePath string `json:"database_path"`
	LogLevel     string `json:"log_level"`
	Order        int    `json:"order"`
	MinCount     int    `json:"min_count"`
	MaxLength    int    `json:"max_length"`
	NumSamples   int    `json:"num_samples"`
}

// DefaultConfig creates a configuration with default values.
func DefaultConfig() *Config {
	return &Config{
		CorpusPath:   "./data/corpus.txt",
		DatabasePath: "./data/models.db",
		LogLevel:     "info",
		Order:        3,
		MinCount:     2,
		MaxLength:    ngram.DefaultMaxLength,
		NumSamples:   1,
	}
}

// LoadConfig reads the configuration from a JSON file at the given path.
// If the file doesn't exist, it creates one with default values.
func LoadConfig(path string) (*Config, error) {
	config := DefaultConfig()

	file, err := os.ReadFile(path)
	if err != nil {
		// If the file doesn't exist, create it with the default config.
		if os.IsNotExist(err) {
			var data []byte
			data, err = json.MarshalIndent(config, "", "  ")
			if err != nil {
				return nil, fmt.Errorf("failed to marshal default config: %w", err)
			}
			if err = atomic.WriteFile(path, bytes.NewReader(data)); err != nil {
				// Warn instead of failing, the command can still run with defaults.
				fmt.Printf("warning: failed to write default config file: %v\n", err)
			}
			return config, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err = json.Unmarshal(file, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	return config, nil
}

// applyEnv overlays settings from the environment onto the config. Variables
// take precedence over the file but not over explicit flags.
func (c *Config) applyEnv() {
	if v := os.Getenv("NGRAM_CORPUS"); v != "" {
		c.CorpusPath = v
	}
	if v := os.Getenv("NGRAM_DATABASE"); v != "" {
		c.DatabasePath = v
	}
	if v := os.Getenv("NGRAM_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

// parseLogLevel maps a config string to a slog level, defaulting to info.
func parseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
