package cli

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the vasctl configuration
type Config struct {
	Backend    BackendConfig `mapstructure:"backend"`
	UndoTarget string        `mapstructure:"undo_target"`
	StateFile  string        `mapstructure:"state_file"`
	LogLevel   string        `mapstructure:"log_level"`
}

// BackendConfig locates the worksheet GraphQL API
type BackendConfig struct {
	URL               string        `mapstructure:"url"`
	Token             string        `mapstructure:"token"`
	Timeout           time.Duration `mapstructure:"timeout"`
	RequestsPerSecond float64       `mapstructure:"rps"`
	Burst             int           `mapstructure:"burst"`
}

// LoadConfig loads configuration with priority:
// 1. Environment variables (VASCTL_ prefix)
// 2. Config file (~/.vasctl.yaml, or configPath)
// 3. Defaults
func LoadConfig(configPath string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName(".vasctl")
		v.SetConfigType("yaml")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(home)
		}
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix("VASCTL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if cfg.Backend.URL == "" {
		return nil, fmt.Errorf("invalid configuration: backend.url is required")
	}
	return &cfg, nil
}

// DefaultConfig returns the configuration used when nothing is set
func DefaultConfig() *Config {
	return &Config{
		Backend: BackendConfig{
			URL:               "http://localhost:4000/graphql",
			Timeout:           10 * time.Second,
			RequestsPerSecond: 10,
			Burst:             2,
		},
		UndoTarget: "EXECUTING",
		StateFile:  defaultStateFile(),
		LogLevel:   "warn",
	}
}

func setDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("backend.url", d.Backend.URL)
	v.SetDefault("backend.token", "")
	v.SetDefault("backend.timeout", d.Backend.Timeout)
	v.SetDefault("backend.rps", d.Backend.RequestsPerSecond)
	v.SetDefault("backend.burst", d.Backend.Burst)
	v.SetDefault("undo_target", d.UndoTarget)
	v.SetDefault("state_file", d.StateFile)
	v.SetDefault("log_level", d.LogLevel)
}

func defaultStateFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".vasctl-state.db"
	}
	return filepath.Join(home, ".vasctl", "state.db")
}
