// Package config loads clipsync configuration from file and environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config is the root configuration document.
type Config struct {
	Remote  RemoteConfig  `mapstructure:"remote"`
	Store   StoreConfig   `mapstructure:"store"`
	Sync    SyncConfig    `mapstructure:"sync"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// RemoteConfig describes the remote video service.
type RemoteConfig struct {
	BaseURL          string `mapstructure:"base_url" validate:"required,url"`
	AuthToken        string `mapstructure:"auth_token"`
	RequestTimeout   string `mapstructure:"request_timeout"`
	ProbeTimeout     string `mapstructure:"probe_timeout"`
	UploadLimitBytes int64  `mapstructure:"upload_limit_bytes" validate:"gt=0"`
}

// StoreConfig describes the local record store.
type StoreConfig struct {
	DataDir string `mapstructure:"data_dir" validate:"required"`
}

// SyncConfig controls background synchronization.
type SyncConfig struct {
	AutoSync bool   `mapstructure:"auto_sync"`
	Interval string `mapstructure:"interval"`
}

// LoggingConfig controls log output.
type LoggingConfig struct {
	Level  string `mapstructure:"level" validate:"oneof=debug info warn error"`
	Format string `mapstructure:"format" validate:"oneof=json console"`
}

// RequestTimeoutDuration returns the parsed request timeout.
func (r RemoteConfig) RequestTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(r.RequestTimeout)
	return d
}

// ProbeTimeoutDuration returns the parsed liveness probe timeout.
func (r RemoteConfig) ProbeTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(r.ProbeTimeout)
	return d
}

// IntervalDuration returns the parsed background sync interval.
func (s SyncConfig) IntervalDuration() time.Duration {
	d, _ := time.ParseDuration(s.Interval)
	return d
}

// Load reads configuration from the given file (optional), overlaying values
// from the environment with the CLIPSYNC_ prefix. A .env file in the working
// directory is loaded first when present.
func Load(path string) (*Config, error) {
	// Missing .env is fine; explicit config errors are not.
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("CLIPSYNC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("remote.base_url", "http://127.0.0.1:8000")
	// Registered so CLIPSYNC_REMOTE_AUTH_TOKEN is picked up: AutomaticEnv
	// only feeds Unmarshal for keys viper already knows about.
	v.SetDefault("remote.auth_token", "")
	v.SetDefault("remote.request_timeout", "30s")
	v.SetDefault("remote.probe_timeout", "5s")
	// Matches the storage bucket's per-object ceiling.
	v.SetDefault("remote.upload_limit_bytes", int64(50*1024*1024))
	v.SetDefault("store.data_dir", "./data")
	v.SetDefault("sync.auto_sync", false)
	v.SetDefault("sync.interval", "15m")
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
}
