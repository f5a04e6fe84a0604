package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
	if cfg.Backtest.InitialCash != 100000 {
		t.Fatalf("default initial cash = %f, want 100000", cfg.Backtest.InitialCash)
	}
	if cfg.Backtest.CommissionPerShare != 0.005 || cfg.Backtest.SlippageBps != 5 {
		t.Fatalf("default cost model = %f/%f", cfg.Backtest.CommissionPerShare, cfg.Backtest.SlippageBps)
	}
}

func TestLoadConfigCreatesDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if cfg.App.Name != "metrade" {
		t.Fatalf("app name = %q", cfg.App.Name)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("default config file not written: %v", err)
	}
}

func TestLoadConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	cfg := DefaultConfig()
	cfg.Backtest.InitialCash = 250000
	cfg.Backtest.Workers = 8
	if err := SaveConfig(cfg, path); err != nil {
		t.Fatalf("SaveConfig failed: %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig failed: %v", err)
	}
	if loaded.Backtest.InitialCash != 250000 || loaded.Backtest.Workers != 8 {
		t.Fatalf("round trip lost values: %+v", loaded.Backtest)
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	cases := map[string]func(*Config){
		"zero cash":           func(c *Config) { c.Backtest.InitialCash = 0 },
		"negative commission": func(c *Config) { c.Backtest.CommissionPerShare = -0.01 },
		"negative slippage":   func(c *Config) { c.Backtest.SlippageBps = -1 },
		"zero workers":        func(c *Config) { c.Backtest.Workers = 0 },
		"empty data dir":      func(c *Config) { c.Backtest.DataDirectory = "" },
		"bad log level":       func(c *Config) { c.Logging.Level = "verbose" },
		"bad log format":      func(c *Config) { c.Logging.Format = "xml" },
	}
	for name, mutate := range cases {
		cfg := DefaultConfig()
		mutate(cfg)
		if err := cfg.Validate(); err == nil {
			t.Errorf("%s: expected validation error", name)
		}
	}
}

func TestGetEnvHelpers(t *testing.T) {
	t.Setenv("METRADE_TEST_STR", "hello")
	t.Setenv("METRADE_TEST_FLOAT", "2.5")
	t.Setenv("METRADE_TEST_INT", "7")
	t.Setenv("METRADE_TEST_BOOL", "true")

	if got := GetEnv("METRADE_TEST_STR", "fallback"); got != "hello" {
		t.Fatalf("GetEnv = %q", got)
	}
	if got := GetEnv("METRADE_TEST_MISSING", "fallback"); got != "fallback" {
		t.Fatalf("GetEnv fallback = %q", got)
	}
	if got := GetEnvFloat("METRADE_TEST_FLOAT", 0); got != 2.5 {
		t.Fatalf("GetEnvFloat = %f", got)
	}
	if got := GetEnvInt("METRADE_TEST_INT", 0); got != 7 {
		t.Fatalf("GetEnvInt = %d", got)
	}
	if !GetEnvBool("METRADE_TEST_BOOL", false) {
		t.Fatal("GetEnvBool = false")
	}
}
