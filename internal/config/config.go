// Package config loads the server's layered configuration, grounded on
// the teacher's struct shape (pkg/infrastructure/config/config.go —
// nested sections, a DefaultConfig constructor) but sourced through
// github.com/spf13/viper instead of hand-rolled flag/env parsing, so
// defaults, a config file, and the environment merge the way viper's
// pack adopters (perplext-LLMrecon) do it. No command-line flags are
// bound.
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// ServerConfig is the root configuration for cmd/hodei-server.
type ServerConfig struct {
	HTTP     HTTPConfig     `mapstructure:"http"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Auth     AuthConfig     `mapstructure:"auth"`
	Docker   DockerConfig   `mapstructure:"docker"`
}

// HTTPConfig controls the REST façade's listener.
type HTTPConfig struct {
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

// LoggingConfig mirrors internal/logging's knobs.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuthConfig controls JWT issuance in internal/iam.
type AuthConfig struct {
	JWTSecret     string `mapstructure:"jwt_secret"`
	TokenTTLHours int    `mapstructure:"token_ttl_hours"`
}

// DockerConfig controls the docker WorkerFactory.
type DockerConfig struct {
	Image string `mapstructure:"image"`
	Host  string `mapstructure:"host"`
}

// DefaultServerConfig returns sensible defaults, overridden by whatever
// Load finds in a config file or the environment.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		HTTP:    HTTPConfig{Host: "0.0.0.0", Port: 8080},
		Logging: LoggingConfig{Level: "info", Format: "text"},
		Auth:    AuthConfig{TokenTTLHours: 24},
		Docker:  DockerConfig{Image: "alpine:latest"},
	}
}

// Load reads hodei-server.{yaml,json,...} from configPath (if non-empty),
// the current directory, and /etc/hodei-pipelines, then layers
// HODEI_*-prefixed environment variables on top (for example
// HODEI_HTTP_PORT for http.port): env overrides the file, which
// overrides the defaults.
func Load(configPath string) (*ServerConfig, error) {
	cfg := DefaultServerConfig()

	v := viper.New()
	v.SetConfigName("hodei-server")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("/etc/hodei-pipelines")
	if configPath != "" {
		v.SetConfigFile(configPath)
	}

	v.SetEnvPrefix("HODEI")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v, cfg)

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, err
		}
	}

	out := &ServerConfig{}
	if err := v.Unmarshal(out); err != nil {
		return nil, err
	}
	return out, nil
}

func setDefaults(v *viper.Viper, cfg *ServerConfig) {
	v.SetDefault("http.host", cfg.HTTP.Host)
	v.SetDefault("http.port", cfg.HTTP.Port)
	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("auth.jwt_secret", cfg.Auth.JWTSecret)
	v.SetDefault("auth.token_ttl_hours", cfg.Auth.TokenTTLHours)
	v.SetDefault("docker.image", cfg.Docker.Image)
	v.SetDefault("docker.host", cfg.Docker.Host)
}
