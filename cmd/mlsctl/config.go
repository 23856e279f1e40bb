package main

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// cliConfig holds the settings read from file, environment and defaults.
type cliConfig struct {
	APIKey         string  `mapstructure:"api_key"`
	BaseURL        string  `mapstructure:"base_url"`
	Model          string  `mapstructure:"model"`
	TimeoutSec     int     `mapstructure:"timeout_sec"`
	MaxTokens      int     `mapstructure:"max_tokens"`
	Temperature    float64 `mapstructure:"temperature"`
	DefaultSqft    float64 `mapstructure:"default_sqft"`
	MaxDiagnostics int     `mapstructure:"max_diagnostics"`
	ColumnTable    string  `mapstructure:"column_table"`
}

// loadConfig reads ~/.mlsctl/config.yaml unless cfgFile names another file.
// Precedence: env > config file > defaults. MLSCTL_ prefixed variables
// override any key; OPENROUTER_API_KEY also supplies the API key.
func loadConfig(cfgFile string) (*cliConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("MLSCTL")
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "MLSCTL_API_KEY", "OPENROUTER_API_KEY"); err != nil {
		return nil, err
	}

	v.SetDefault("api_key", "")
	v.SetDefault("base_url", "https://openrouter.ai/api/v1")
	v.SetDefault("model", "openai/gpt-4o-mini")
	v.SetDefault("timeout_sec", 20)
	v.SetDefault("max_tokens", 800)
	v.SetDefault("temperature", 0.2)
	v.SetDefault("default_sqft", 1000.0)
	v.SetDefault("max_diagnostics", 10)
	v.SetDefault("column_table", "")

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".mlsctl"))
		}
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		// optional read
		_ = v.ReadInConfig()
	}

	var c cliConfig
	if err := v.Unmarshal(&c); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &c, nil
}
