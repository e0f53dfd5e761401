// Package config loads the cohere configuration from YAML and environment
// variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/willibrandon/cohere/internal/coherence"
)

// Config represents the root configuration structure
type Config struct {
	// DataDir is where monitor state is persisted.
	DataDir string `mapstructure:"data_dir"`

	// TrendWindowMinutes is the default window for trend analysis.
	TrendWindowMinutes int `mapstructure:"trend_window_minutes"`

	Log        LogConfig            `mapstructure:"log"`
	Thresholds coherence.Thresholds `mapstructure:"thresholds"`
}

// LogConfig holds logging preferences.
type LogConfig struct {
	Level string `mapstructure:"level"`
	Path  string `mapstructure:"path"`
}

// LoadConfig loads configuration from YAML file and environment variables
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("$HOME/.config/cohere")
	viper.AddConfigPath(".")

	// Environment variable support
	viper.AutomaticEnv()
	viper.SetEnvPrefix("COHERE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	applyDefaults()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found, defaults apply.
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := ValidateConfig(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ValidateConfig validates the configuration values
func ValidateConfig(cfg *Config) error {
	if cfg.DataDir == "" {
		return fmt.Errorf("data_dir cannot be empty")
	}

	if cfg.TrendWindowMinutes < 1 {
		return fmt.Errorf("trend_window_minutes must be >= 1, got %d", cfg.TrendWindowMinutes)
	}

	validLevels := []string{"debug", "info", "warn", "error"}
	validLevel := false
	for _, level := range validLevels {
		if cfg.Log.Level == level {
			validLevel = true
			break
		}
	}
	if !validLevel {
		return fmt.Errorf("log.level must be one of: %v, got %s", validLevels, cfg.Log.Level)
	}

	// Threshold pair ordering is a construction-time error, not a
	// first-use error.
	if err := cfg.Thresholds.Validate(); err != nil {
		return fmt.Errorf("thresholds: %w", err)
	}

	return nil
}

// DatabasePath returns the path of the state database inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "cohere.db")
}

// applyDefaults sets default configuration values
func applyDefaults() {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		homeDir = os.TempDir()
	}
	viper.SetDefault("data_dir", filepath.Join(homeDir, ".config", "cohere"))
	viper.SetDefault("trend_window_minutes", 30)

	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.path", "")

	t := coherence.DefaultThresholds()
	viper.SetDefault("thresholds.latency_warning", t.LatencyWarning)
	viper.SetDefault("thresholds.latency_critical", t.LatencyCritical)
	viper.SetDefault("thresholds.ack_rate_warning", t.AckRateWarning)
	viper.SetDefault("thresholds.ack_rate_critical", t.AckRateCritical)
	viper.SetDefault("thresholds.fidelity_warning", t.FidelityWarning)
	viper.SetDefault("thresholds.fidelity_critical", t.FidelityCritical)
	viper.SetDefault("thresholds.inactive_warning", t.InactiveWarning)
	viper.SetDefault("thresholds.inactive_critical", t.InactiveCritical)
	viper.SetDefault("thresholds.coherence_warning", t.CoherenceWarning)
	viper.SetDefault("thresholds.coherence_critical", t.CoherenceCritical)
}
