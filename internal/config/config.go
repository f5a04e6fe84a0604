package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"time"
)

// Config represents the complete application configuration
type Config struct {
	App      AppConfig      `json:"app"`
	Backtest BacktestConfig `json:"backtest"`
	Logging  LoggingConfig  `json:"logging"`
}

// AppConfig contains basic application configuration
type AppConfig struct {
	Name            string        `json:"name"`
	Version         string        `json:"version"`
	Environment     string        `json:"environment"` // "development", "production", "test"
	Timezone        string        `json:"timezone"`
	Debug           bool          `json:"debug"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

// BacktestConfig contains backtesting configuration
type BacktestConfig struct {
	// Account
	InitialCash  float64 `json:"initial_cash"`
	RiskFreeRate float64 `json:"risk_free_rate"`

	// Cost model defaults, overridable per strategy document
	CommissionPerShare float64 `json:"commission_per_share"`
	SlippageBps        float64 `json:"slippage_bps"`

	// Data
	DataDirectory   string `json:"data_directory"`
	BenchmarkSymbol string `json:"benchmark_symbol"`

	// Execution
	Workers int           `json:"workers"`
	Timeout time.Duration `json:"timeout"`

	// Output
	ResultsDirectory string `json:"results_directory"`
	ExportTrades     bool   `json:"export_trades"`
	ExportEquity     bool   `json:"export_equity"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	// Output
	Level     string `json:"level"`     // "debug", "info", "warn", "error"
	Format    string `json:"format"`    // "json", "text"
	Output    string `json:"output"`    // "stdout", "file", "both"
	Directory string `json:"directory"` // Log file directory

	// File rotation
	MaxSize    int  `json:"max_size"`    // Max MB per file
	MaxBackups int  `json:"max_backups"` // Max number of old files
	MaxAge     int  `json:"max_age"`     // Max days to retain
	Compress   bool `json:"compress"`    // Compress old files
}

// DefaultConfig returns a default configuration
func DefaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name:            "metrade",
			Version:         "1.0.0",
			Environment:     "development",
			Timezone:        "UTC",
			Debug:           false,
			ShutdownTimeout: 30 * time.Second,
		},
		Backtest: BacktestConfig{
			InitialCash:        100000,
			RiskFreeRate:       0.02,
			CommissionPerShare: 0.005,
			SlippageBps:        5,
			DataDirectory:      "data",
			Workers:            4,
			Timeout:            5 * time.Minute,
			ResultsDirectory:   "results",
			ExportTrades:       true,
			ExportEquity:       true,
		},
		Logging: LoggingConfig{
			Level:      "info",
			Format:     "text",
			Output:     "stdout",
			Directory:  "logs",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// LoadConfig loads configuration from file
func LoadConfig(configPath string) (*Config, error) {
	// Check if file exists
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		// Create default config if file doesn't exist
		defaultConfig := DefaultConfig()
		if err := SaveConfig(defaultConfig, configPath); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return defaultConfig, nil
	}

	// Read file
	data, err := ioutil.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Parse JSON
	config := &Config{}
	if err := json.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return config, nil
}

// SaveConfig saves configuration to file
func SaveConfig(config *Config, configPath string) error {
	// Create directory if it doesn't exist
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	// Marshal JSON with indentation
	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Write file
	if err := ioutil.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	// Validate app config
	if c.App.Name == "" {
		return fmt.Errorf("app name is required")
	}

	// Validate backtest config
	if c.Backtest.InitialCash <= 0 {
		return fmt.Errorf("initial cash must be positive")
	}
	if c.Backtest.CommissionPerShare < 0 {
		return fmt.Errorf("commission per share cannot be negative")
	}
	if c.Backtest.SlippageBps < 0 {
		return fmt.Errorf("slippage cannot be negative")
	}
	if c.Backtest.Workers <= 0 {
		return fmt.Errorf("worker count must be positive")
	}
	if c.Backtest.DataDirectory == "" {
		return fmt.Errorf("data directory is required")
	}

	// Validate logging config
	validLevels := []string{"debug", "info", "warn", "error"}
	levelValid := false
	for _, level := range validLevels {
		if c.Logging.Level == level {
			levelValid = true
			break
		}
	}
	if !levelValid {
		return fmt.Errorf("invalid log level: %s", c.Logging.Level)
	}

	validFormats := []string{"json", "text"}
	formatValid := false
	for _, format := range validFormats {
		if c.Logging.Format == format {
			formatValid = true
			break
		}
	}
	if !formatValid {
		return fmt.Errorf("invalid log format: %s", c.Logging.Format)
	}

	return nil
}

// GetEnv returns environment variable with default value
func GetEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// GetEnvBool returns boolean environment variable with default value
func GetEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

// GetEnvFloat returns float environment variable with default value
func GetEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := parseFloat(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// GetEnvInt returns integer environment variable with default value
func GetEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := parseInt(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// Helper functions for parsing
func parseFloat(s string) (float64, error) {
	var result float64
	_, err := fmt.Sscanf(s, "%f", &result)
	return result, err
}

func parseInt(s string) (int, error) {
	var result int
	_, err := fmt.Sscanf(s, "%d", &result)
	return result, err
}
