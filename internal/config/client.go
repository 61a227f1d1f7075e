package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment variables that override config keys.
const EnvPrefix = "POTTERY"

// ClientConfig holds the settings for talking to the grading server.
type ClientConfig struct {
	ServerURL   string        `mapstructure:"server_url"`
	SessionFile string        `mapstructure:"session_file"`
	Timeout     time.Duration `mapstructure:"timeout"`
	LogLevel    string        `mapstructure:"log_level"`
}

// DefaultClientConfig returns a ClientConfig with default values.
func DefaultClientConfig() ClientConfig {
	return ClientConfig{
		ServerURL:   "http://localhost:8080/pottery",
		SessionFile: ".pottery-session.toml",
		Timeout:     0,
		LogLevel:    "info",
	}
}

// LoadClientConfig resolves the client config from, in increasing order of
// precedence: defaults, the config file, POTTERY_* environment variables,
// and any changed flags in flags. An empty path searches for pottery.yaml
// in the working directory and is not an error when nothing is found.
func LoadClientConfig(path string, flags *pflag.FlagSet) (ClientConfig, error) {
	cfg := DefaultClientConfig()

	v := viper.New()
	v.SetDefault("server_url", cfg.ServerURL)
	v.SetDefault("session_file", cfg.SessionFile)
	v.SetDefault("timeout", cfg.Timeout)
	v.SetDefault("log_level", cfg.LogLevel)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for key, flag := range map[string]string{
			"server_url":   "server",
			"session_file": "session",
			"timeout":      "timeout",
			"log_level":    "log-level",
		} {
			if f := flags.Lookup(flag); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return cfg, fmt.Errorf("binding flag %s: %w", flag, err)
				}
			}
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("pottery")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return cfg, fmt.Errorf("reading client config: %w", err)
		}
	}

	if err := v.Unmarshal(&cfg); err != nil {
		return cfg, fmt.Errorf("parsing client config: %w", err)
	}

	// Apply defaults for values explicitly set empty
	if cfg.ServerURL == "" {
		cfg.ServerURL = DefaultClientConfig().ServerURL
	}
	if cfg.SessionFile == "" {
		cfg.SessionFile = DefaultClientConfig().SessionFile
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.Timeout < 0 {
		return cfg, fmt.Errorf("timeout must not be negative: %s", cfg.Timeout)
	}

	return cfg, nil
}
