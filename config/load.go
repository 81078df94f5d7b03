package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const (
	ConfigPathEnvVar = "CONFIG_PATH"
	devJWTSecret     = "local_dev_secret"
)

// envKeys maps environment variables onto config paths. Anything not listed
// is ignored so unrelated process env never leaks into the config.
var envKeys = map[string]string{
	"APP_PORT":               "port",
	"DATABASE_URL":           "database_url",
	"JWT_SECRET":             "jwt_secret",
	"JWT_TTL_HOURS":          "jwt_ttl_hours",
	"APP_ENV":                "env",
	"CHAT_RATE_LIMIT":        "chat_rate_limit",
	"ASSISTANT_BASE_URL":     "assistant.base_url",
	"ASSISTANT_API_KEY":      "assistant.api_key",
	"ASSISTANT_MODEL":        "assistant.model",
	"ASSISTANT_TIMEOUT":      "assistant.timeout",
	"BILLING_SWEEP_INTERVAL": "billing.sweep_interval",
}

func envTransform(key string) string {
	return envKeys[strings.ToUpper(key)]
}

// Load layers struct defaults, an optional YAML file named by CONFIG_PATH and
// the environment, in that order. A .env file in the working directory is
// read first when present.
func Load() (App, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return App{}, fmt.Errorf("load defaults: %w", err)
	}
	if path := os.Getenv(ConfigPathEnvVar); path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return App{}, fmt.Errorf("load config file %s: %w", path, err)
		}
	}
	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return App{}, fmt.Errorf("load env: %w", err)
	}

	var cfg App
	if err := k.Unmarshal("", &cfg); err != nil {
		return App{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return App{}, err
	}
	return cfg, nil
}

func (a *App) validate() error {
	if a.DatabaseURL == "" {
		return errors.New("DATABASE_URL is required")
	}
	if a.JWTSecret == "" {
		if a.Prod() {
			return errors.New("JWT_SECRET is required in production")
		}
		a.JWTSecret = devJWTSecret
	}
	if a.JWTTTLHours <= 0 {
		return fmt.Errorf("jwt_ttl_hours must be positive, got %d", a.JWTTTLHours)
	}
	if a.ChatRateLimit <= 0 {
		return fmt.Errorf("chat_rate_limit must be positive, got %d", a.ChatRateLimit)
	}
	if a.Billing.SweepInterval <= 0 {
		return fmt.Errorf("billing.sweep_interval must be positive, got %s", a.Billing.SweepInterval)
	}
	return nil
}
