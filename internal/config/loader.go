package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// DefaultConfigFile is the path checked for YAML configuration.
const DefaultConfigFile = "hearth.yaml"

// Load returns a Config using the hierarchy: defaults < YAML < ENV.
// YAML file is optional; missing file is not an error.
func Load() (*Config, error) {
	return LoadFrom(DefaultConfigFile)
}

// LoadFrom returns a Config loaded from the given YAML path using the
// hierarchy: defaults < YAML < ENV. The YAML file is optional.
func LoadFrom(yamlPath string) (*Config, error) {
	cfg := Defaults()

	if err := loadYAML(&cfg, yamlPath); err != nil {
		return nil, fmt.Errorf("config yaml: %w", err)
	}

	loadEnv(&cfg)

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("config validate: %w", err)
	}

	return &cfg, nil
}

// loadYAML reads the YAML file and unmarshals it over cfg.
// Returns nil if the file does not exist.
func loadYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path) //nolint:gosec // G304: path is validated by caller
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}

	return nil
}

// loadEnv overlays environment variables onto cfg.
// Only non-empty env values override the current config.
func loadEnv(cfg *Config) {
	setString(&cfg.Server.Port, "HEARTH_PORT")
	setString(&cfg.Server.CORSOrigin, "HEARTH_CORS_ORIGIN")
	setString(&cfg.Postgres.DSN, "DATABASE_URL")
	setInt32(&cfg.Postgres.MaxConns, "HEARTH_PG_MAX_CONNS")
	setInt32(&cfg.Postgres.MinConns, "HEARTH_PG_MIN_CONNS")
	setDuration(&cfg.Postgres.MaxConnLifetime, "HEARTH_PG_MAX_CONN_LIFETIME")
	setDuration(&cfg.Postgres.MaxConnIdleTime, "HEARTH_PG_MAX_CONN_IDLE_TIME")
	setDuration(&cfg.Postgres.HealthCheck, "HEARTH_PG_HEALTH_CHECK")
	setString(&cfg.Redis.Addr, "REDIS_ADDR")
	setString(&cfg.Redis.Password, "REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "REDIS_DB")
	setString(&cfg.Auth.JWTSecret, "HEARTH_JWT_SECRET")
	setDuration(&cfg.Auth.AccessTokenTTL, "HEARTH_ACCESS_TOKEN_TTL")
	setDuration(&cfg.Auth.SessionTTL, "HEARTH_SESSION_TTL")
	setInt(&cfg.Auth.BcryptCost, "HEARTH_BCRYPT_COST")
	setDuration(&cfg.Tenancy.CacheTTL, "HEARTH_TENANT_CACHE_TTL")
	setDuration(&cfg.Tenancy.L1ExpireTTL, "HEARTH_TENANT_L1_EXPIRE_TTL")
	setFloat64(&cfg.Rate.RequestsPerSecond, "HEARTH_RATE_RPS")
	setInt(&cfg.Rate.Burst, "HEARTH_RATE_BURST")
	setDuration(&cfg.Rate.CleanupInterval, "HEARTH_RATE_CLEANUP_INTERVAL")
	setDuration(&cfg.Rate.MaxIdleTime, "HEARTH_RATE_MAX_IDLE_TIME")
	setInt(&cfg.Rate.APIMaxAttempts, "HEARTH_RATE_API_MAX")
	setDuration(&cfg.Rate.APIWindow, "HEARTH_RATE_API_WINDOW")
	setString(&cfg.Logging.Level, "HEARTH_LOG_LEVEL")
	setString(&cfg.Logging.Service, "HEARTH_LOG_SERVICE")
	setBool(&cfg.Tracing.Enabled, "HEARTH_TRACING_ENABLED")
	setString(&cfg.Tracing.Endpoint, "HEARTH_TRACING_ENDPOINT")
}

// validate rejects configurations that cannot run.
func validate(cfg *Config) error {
	if cfg.Server.Port == "" {
		return errors.New("server port must not be empty")
	}
	if _, err := strconv.Atoi(cfg.Server.Port); err != nil {
		return fmt.Errorf("server port %q is not numeric", cfg.Server.Port)
	}
	if cfg.Postgres.DSN == "" {
		return errors.New("postgres dsn must not be empty")
	}
	if cfg.Postgres.MaxConns < cfg.Postgres.MinConns {
		return fmt.Errorf("pg max_conns (%d) must be >= min_conns (%d)", cfg.Postgres.MaxConns, cfg.Postgres.MinConns)
	}
	if cfg.Auth.AccessTokenTTL <= 0 {
		return errors.New("access_token_ttl must be positive")
	}
	if cfg.Rate.APIMaxAttempts <= 0 {
		return errors.New("api_max_attempts must be positive")
	}
	return nil
}

func setString(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setInt32(dst *int32, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 32); err == nil {
			*dst = int32(n)
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *time.Duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			*dst = d
		}
	}
}
