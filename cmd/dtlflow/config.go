package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"
)

// CLIConfig represents the CLI configuration, loadable from a JSON file
// and overridable by DTLFLOW_* environment variables; command-line flags
// take precedence over both.
type CLIConfig struct {
	Output   string            `json:"output,omitempty"`
	Format   string            `json:"format"`
	Label    string            `json:"label,omitempty"`
	Timezone string            `json:"timezone"`
	Columns  map[string]string `json:"columns,omitempty"`
	LogLevel string            `json:"log_level"`
	LogFile  string            `json:"log_file,omitempty"`
	Addr     string            `json:"addr"`
}

// LoadConfig loads configuration from file and environment variables.
func LoadConfig(configFile string) (*CLIConfig, error) {
	config := &CLIConfig{
		Format:   "xlsx",
		Timezone: "UTC",
		LogLevel: "info",
		Addr:     ":8080",
	}

	if configFile != "" {
		if err := loadConfigFile(config, configFile); err != nil {
			return nil, fmt.Errorf("failed to load config file: %v", err)
		}
	}

	loadConfigFromEnv(config)

	return config, nil
}

// Validate validates the configuration parameters.
func (c *CLIConfig) Validate() error {
	format := strings.ToLower(c.Format)
	if format != "xlsx" && format != "csv" {
		return fmt.Errorf("format must be one of: xlsx, csv")
	}

	if c.LogLevel != "" && c.LogLevel != "debug" && c.LogLevel != "info" && c.LogLevel != "warn" && c.LogLevel != "error" {
		return fmt.Errorf("log level must be one of: debug, info, warn, error")
	}

	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %v", c.Timezone, err)
	}

	return nil
}

// Location resolves the configured timezone. Call Validate first.
func (c *CLIConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// loadConfigFile loads configuration from a JSON file.
func loadConfigFile(config *CLIConfig, filePath string) error {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, config)
}

// loadConfigFromEnv loads configuration from environment variables.
func loadConfigFromEnv(config *CLIConfig) {
	if val := os.Getenv("DTLFLOW_OUTPUT"); val != "" {
		config.Output = val
	}

	if val := os.Getenv("DTLFLOW_FORMAT"); val != "" {
		config.Format = val
	}

	if val := os.Getenv("DTLFLOW_LABEL"); val != "" {
		config.Label = val
	}

	if val := os.Getenv("DTLFLOW_TIMEZONE"); val != "" {
		config.Timezone = val
	}

	if val := os.Getenv("DTLFLOW_LOG_LEVEL"); val != "" {
		config.LogLevel = val
	}

	if val := os.Getenv("DTLFLOW_LOG_FILE"); val != "" {
		config.LogFile = val
	}

	if val := os.Getenv("DTLFLOW_ADDR"); val != "" {
		config.Addr = val
	}
}

// parseColumnOverrides turns repeated key=value flags into a map.
func parseColumnOverrides(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}

	overrides := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || strings.TrimSpace(key) == "" {
			return nil, fmt.Errorf("column override must be key=value, got %q", pair)
		}
		overrides[strings.TrimSpace(key)] = value
	}
	return overrides, nil
}
