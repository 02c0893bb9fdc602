package config

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	AuthModeDevelopment = "development"
	AuthModeJWT         = "jwt"
)

type Config struct {
	Port           string        `mapstructure:"PORT"`
	Env            string        `mapstructure:"ENV"`
	AuthMode       string        `mapstructure:"AUTH_MODE"`
	DatabaseURL    string        `mapstructure:"DATABASE_URL"`
	DBMaxConns     int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns     int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema       string        `mapstructure:"DB_SCHEMA"`
	RedisURL       string        `mapstructure:"REDIS_URL"`
	AuthSigningKey string        `mapstructure:"AUTH_SIGNING_KEY"`
	AuthIssuer     string        `mapstructure:"AUTH_ISSUER"`
	AuthJWKSURL    string        `mapstructure:"AUTH_JWKS_URL"`
	AuthAudience   string        `mapstructure:"AUTH_AUDIENCE"`
	CORSOrigins    []string      `mapstructure:"CORS_ORIGINS"`
	PolicyCacheTTL time.Duration `mapstructure:"POLICY_CACHE_TTL"`
	TxTimeout      time.Duration `mapstructure:"TX_TIMEOUT"`
	MigrationsDir  string        `mapstructure:"MIGRATIONS_DIR"`
}

var envKeys = []string{
	"PORT", "ENV", "AUTH_MODE", "DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"DB_SCHEMA", "REDIS_URL", "AUTH_SIGNING_KEY", "AUTH_ISSUER", "AUTH_JWKS_URL",
	"AUTH_AUDIENCE", "CORS_ORIGINS", "POLICY_CACHE_TTL", "TX_TIMEOUT", "MIGRATIONS_DIR",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 5)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("POLICY_CACHE_TTL", "30s")
	v.SetDefault("TX_TIMEOUT", "5s")
	v.SetDefault("MIGRATIONS_DIR", "")

	// Bind env vars explicitly so Unmarshal picks them up
	for _, key := range envKeys {
		_ = v.BindEnv(key)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	origins := v.GetString("CORS_ORIGINS")
	cfg.CORSOrigins = nil
	for _, o := range strings.Split(origins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			cfg.CORSOrigins = append(cfg.CORSOrigins, o)
		}
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if cfg.ResolvedAuthMode() == AuthModeDevelopment {
		log.Println("WARNING: AUTH_MODE=development: requests without X-Dev-* headers run as admin user 1.")
		log.Println("WARNING: Do NOT use this configuration in production.")
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise "development" in
// the development environment and "jwt" everywhere else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return strings.ToLower(c.AuthMode)
	}
	if c.IsDev() {
		return AuthModeDevelopment
	}
	return AuthModeJWT
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch mode := c.ResolvedAuthMode(); mode {
	case AuthModeDevelopment:
		if c.IsProduction() {
			return fmt.Errorf("AUTH_MODE=development is not allowed when ENV=production")
		}
	case AuthModeJWT:
		if c.AuthSigningKey == "" && c.AuthJWKSURL == "" && c.AuthIssuer == "" {
			return fmt.Errorf("AUTH_MODE=jwt requires AUTH_SIGNING_KEY, AUTH_JWKS_URL or AUTH_ISSUER")
		}
		if c.AuthSigningKey != "" && len(c.AuthSigningKey) < 32 {
			return fmt.Errorf("AUTH_SIGNING_KEY must be at least 32 bytes, got %d", len(c.AuthSigningKey))
		}
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeDevelopment, AuthModeJWT, mode)
	}

	if c.PolicyCacheTTL <= 0 {
		return fmt.Errorf("POLICY_CACHE_TTL must be positive, got %s", c.PolicyCacheTTL)
	}
	if c.TxTimeout <= 0 {
		return fmt.Errorf("TX_TIMEOUT must be positive, got %s", c.TxTimeout)
	}
	if c.DBMaxConns <= 0 || c.DBMinConns < 0 || c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("invalid pool sizing: DB_MIN_CONNS=%d DB_MAX_CONNS=%d", c.DBMinConns, c.DBMaxConns)
	}
	if c.DBSchema == "" {
		return fmt.Errorf("DB_SCHEMA must not be empty")
	}
	return nil
}
