package main

import (
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

// Config represents the matinspect configuration file (~/.config/matlab/config.yaml).
// Pointer fields distinguish "not set" from zero values.
type Config struct {
	Compress         *bool `yaml:"compress"`
	CompressionLevel *int  `yaml:"compression_level"`

	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

func configPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return ""
	}
	return filepath.Join(dir, "matlab", "config.yaml")
}

// LoadConfig reads the config file. Returns a zero Config if the file doesn't exist.
func LoadConfig() Config {
	return loadConfigFrom(configPath())
}

func loadConfigFrom(path string) Config {
	if path == "" {
		return Config{}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}
	}
	return cfg
}

// applyLogConfig applies config file defaults to the global log flags
// when the corresponding CLI flag was not explicitly set.
func applyLogConfig(c *cli.Command, cfg Config, level, format *string) {
	if cfg.LogLevel != "" && !c.IsSet("log-level") {
		*level = cfg.LogLevel
	}
	if cfg.LogFormat != "" && !c.IsSet("log-format") {
		*format = cfg.LogFormat
	}
}

// applyDemoConfig applies config file defaults to demo command variables.
func applyDemoConfig(c *cli.Command, cfg Config, compress *bool, level *int) {
	if cfg.Compress != nil && !c.IsSet("compress") {
		*compress = *cfg.Compress
	}
	if cfg.CompressionLevel != nil && !c.IsSet("compression-level") {
		*level = *cfg.CompressionLevel
	}
}
