package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all process-level configuration. Runtime-tunable sync
// settings (quality text, poll interval) live in the settings store, not
// here; this covers the server, logging, data paths, and the environment
// defaults for the two remote services.
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
	Data    DataConfig    `mapstructure:"data"`
	Radarr  ServiceEnv    `mapstructure:"radarr"`
	Sonarr  ServiceEnv    `mapstructure:"sonarr"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Path       string `mapstructure:"path"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// DataConfig holds paths for the durable artifacts.
type DataConfig struct {
	SettingsPath  string `mapstructure:"settings_path"`
	ChangeLogPath string `mapstructure:"change_log_path"`
}

// ServiceEnv holds the environment-provided defaults for one remote
// service. Persisted settings override these field by field.
type ServiceEnv struct {
	URL    string `mapstructure:"url"`
	APIKey string `mapstructure:"api_key"`
}

// Load reads configuration from file and environment variables.
// Priority: environment variables > config file > defaults.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("$HOME/.haltarr")
	}

	v.SetEnvPrefix("HALTARR")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// The arr defaults keep their conventional unprefixed names so the
	// same environment works for compose setups shared with the services
	// themselves.
	bindArrEnv(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8788)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.path", "")

	v.SetDefault("data.settings_path", "./data/settings.json")
	v.SetDefault("data.change_log_path", "./data/change-log.jsonl")

	v.SetDefault("radarr.url", "")
	v.SetDefault("radarr.api_key", "")
	v.SetDefault("sonarr.url", "")
	v.SetDefault("sonarr.api_key", "")
}

func bindArrEnv(v *viper.Viper) {
	_ = v.BindEnv("radarr.url", "RADARR_URL")
	_ = v.BindEnv("radarr.api_key", "RADARR_API_KEY")
	_ = v.BindEnv("sonarr.url", "SONARR_URL")
	_ = v.BindEnv("sonarr.api_key", "SONARR_API_KEY")
}

// Address returns the server address string.
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
