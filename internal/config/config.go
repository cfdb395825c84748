// Package config loads application settings from the config file,
// environment, and flags via viper. Everything is read once at startup;
// changing a value requires a restart.
package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// Dev-mode placeholders. Running in production with either still set is a
// misconfiguration and gets a startup warning.
const (
	DevJWTSecret = "autoprice-dev-secret-change-me"
	DevAPIKey    = "demo-key"
)

// Config is the full application configuration.
type Config struct {
	Environment string

	Server struct {
		Host            string
		Port            int
		CORSOrigins     []string
		ShutdownTimeout time.Duration
		LoginRatePerMin int
	}

	Auth struct {
		JWTSecret       string
		JWTAlgorithm    string
		APIKey          string
		TokenTTLMinutes int
	}

	Database struct {
		Driver string // "sqlite" or "postgres"
		DSN    string
	}

	Redis struct {
		Addr     string // empty disables the cache
		Password string
		DB       int
	}

	Cache struct {
		TTL time.Duration
	}

	Model struct {
		Path string
	}

	Log struct {
		Level string
	}
}

// SetDefaults registers every config default on v. Called once during CLI
// initialization, before the config file and environment are read.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.cors_origins", []string{"*"})
	v.SetDefault("server.shutdown_timeout_seconds", 30)
	v.SetDefault("server.login_rate_per_minute", 20)

	v.SetDefault("auth.jwt_secret", DevJWTSecret)
	v.SetDefault("auth.jwt_algorithm", "HS256")
	v.SetDefault("auth.api_key", DevAPIKey)
	v.SetDefault("auth.token_ttl_minutes", 30)

	v.SetDefault("database.driver", "sqlite")
	v.SetDefault("database.dsn", "")

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("cache.ttl_seconds", 3600)

	v.SetDefault("model.path", "model.json")

	v.SetDefault("log.level", "info")
}

// Load materializes a Config from v and validates it.
func Load(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	cfg.Environment = v.GetString("environment")

	cfg.Server.Host = v.GetString("server.host")
	cfg.Server.Port = v.GetInt("server.port")
	cfg.Server.CORSOrigins = v.GetStringSlice("server.cors_origins")
	cfg.Server.ShutdownTimeout = time.Duration(v.GetInt("server.shutdown_timeout_seconds")) * time.Second
	cfg.Server.LoginRatePerMin = v.GetInt("server.login_rate_per_minute")

	cfg.Auth.JWTSecret = v.GetString("auth.jwt_secret")
	cfg.Auth.JWTAlgorithm = v.GetString("auth.jwt_algorithm")
	cfg.Auth.APIKey = v.GetString("auth.api_key")
	cfg.Auth.TokenTTLMinutes = v.GetInt("auth.token_ttl_minutes")

	cfg.Database.Driver = v.GetString("database.driver")
	cfg.Database.DSN = v.GetString("database.dsn")

	cfg.Redis.Addr = v.GetString("redis.addr")
	cfg.Redis.Password = v.GetString("redis.password")
	cfg.Redis.DB = v.GetInt("redis.db")
	cfg.Cache.TTL = time.Duration(v.GetInt("cache.ttl_seconds")) * time.Second

	cfg.Model.Path = v.GetString("model.path")
	cfg.Log.Level = v.GetString("log.level")

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.jwt_secret must not be empty")
	}
	if c.Auth.JWTAlgorithm != "HS256" {
		return fmt.Errorf("auth.jwt_algorithm must be HS256, got %q", c.Auth.JWTAlgorithm)
	}
	if c.Auth.APIKey == "" {
		return fmt.Errorf("auth.api_key must not be empty")
	}
	if c.Auth.TokenTTLMinutes <= 0 {
		return fmt.Errorf("auth.token_ttl_minutes must be positive, got %d", c.Auth.TokenTTLMinutes)
	}
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("database.driver must be sqlite or postgres, got %q", c.Database.Driver)
	}
	if c.Database.Driver == "postgres" && c.Database.DSN == "" {
		return fmt.Errorf("database.dsn is required for the postgres driver")
	}
	return nil
}

// IsProduction reports whether the service runs with the production profile.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Warnings returns configuration smells worth logging at startup, such as
// dev-mode secrets left in place in production.
func (c *Config) Warnings() []string {
	var warnings []string
	if c.IsProduction() {
		if c.Auth.JWTSecret == DevJWTSecret {
			warnings = append(warnings, "auth.jwt_secret still has the development default; set a real secret")
		}
		if c.Auth.APIKey == DevAPIKey {
			warnings = append(warnings, "auth.api_key still has the development default; set a real key")
		}
	}
	if c.Redis.Addr == "" {
		warnings = append(warnings, "redis.addr not set; prediction caching is disabled")
	}
	return warnings
}
