// Package config loads service and planner settings. Values are layered:
// environment over file over defaults.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/terrascope/replicaplan/internal/planner"
)

// EnvConfigPath names the config file when no path is given explicitly.
const EnvConfigPath = "REPLICAPLAN_CONFIG"

var validate = validator.New()

type Config struct {
	Server  ServerConfig    `yaml:"server" json:"server"`
	Planner planner.Options `yaml:"planner" json:"planner"`
}

type ServerConfig struct {
	Port          string `yaml:"port" json:"port" validate:"required,numeric"`
	AllowedOrigin string `yaml:"allowed_origin" json:"allowed_origin" validate:"required"`
	LogLevel      string `yaml:"log_level" json:"log_level" validate:"oneof=debug info warn error"`
	LogFormat     string `yaml:"log_format" json:"log_format" validate:"oneof=text json"`
	// MaxBodyBytes limits request bodies of the parse, analyze and plan
	// endpoints.
	MaxBodyBytes int64 `yaml:"max_body_bytes" json:"max_body_bytes" validate:"gt=0"`
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:          "8080",
			AllowedOrigin: "*",
			LogLevel:      "info",
			LogFormat:     "text",
			MaxBodyBytes:  64 << 20,
		},
		Planner: planner.DefaultOptions(),
	}
}

// Load reads path, or the file named by REPLICAPLAN_CONFIG when path is
// empty, over the defaults and applies environment overrides. With neither
// set only defaults and environment apply.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv(EnvConfigPath)
	}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return cfg, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("CORS_ALLOWED_ORIGIN"); v != "" {
		cfg.Server.AllowedOrigin = v
	}
	if v := os.Getenv("REPLICAPLAN_LOG_LEVEL"); v != "" {
		cfg.Server.LogLevel = strings.ToLower(v)
	}
	if v := os.Getenv("REPLICAPLAN_LOG_FORMAT"); v != "" {
		cfg.Server.LogFormat = strings.ToLower(v)
	}
}

func (c Config) Validate() error {
	if err := validate.Struct(c.Server); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			fe := verrs[0]
			return fmt.Errorf("invalid server config: %s must satisfy %s %s", fe.Field(), fe.Tag(), fe.Param())
		}
		return fmt.Errorf("invalid server config: %w", err)
	}
	if err := c.Planner.Validate(); err != nil {
		return err
	}
	return nil
}

// NewLogger builds the process logger described by the server section.
func (c ServerConfig) NewLogger(w io.Writer) *slog.Logger {
	var level slog.Level
	switch c.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
