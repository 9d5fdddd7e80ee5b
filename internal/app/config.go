package app

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	types "github.com/meridianerp/quotes-backend/internal/domain"
	"github.com/meridianerp/quotes-backend/internal/platform/envutil"
	"github.com/meridianerp/quotes-backend/internal/platform/logger"
)

type PostgresConfig struct {
	Host     string `yaml:"host"`
	Port     string `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
}

func (p PostgresConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		p.User, p.Password, p.Host, p.Port, p.Name)
}

type Config struct {
	HTTPAddr     string         `yaml:"http_addr"`
	Environment  string         `yaml:"environment"`
	CORSOrigins  []string       `yaml:"cors_origins"`
	JWTSecretKey string         `yaml:"jwt_secret_key"`
	Postgres     PostgresConfig `yaml:"postgres"`
	RedisAddr    string         `yaml:"redis_addr"`
	RedisChannel string         `yaml:"redis_channel"`
	Defaults     types.Defaults `yaml:"defaults"`
}

// LoadConfig starts from the shipped defaults, overlays the YAML file named
// by CONFIG_FILE (config.yaml when unset), then applies env overrides.
func LoadConfig(log *logger.Logger) (Config, error) {
	cfg := Config{
		HTTPAddr:     ":8080",
		Environment:  "development",
		RedisChannel: "quote-events",
		Postgres: PostgresConfig{
			Host: "localhost",
			Port: "5432",
			User: "postgres",
			Name: "quotes",
		},
		Defaults: types.Defaults{
			Customer:    "31112",
			Salesperson: "900",
			PriceTable:  "16",
			User:        "system",
		},
	}

	path := envutil.String("CONFIG_FILE", "config.yaml")
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
		log.Info("config file loaded", "path", path)
	case errors.Is(err, os.ErrNotExist):
		log.Debug("no config file, using defaults", "path", path)
	default:
		return cfg, fmt.Errorf("read %s: %w", path, err)
	}

	cfg.HTTPAddr = envutil.String("HTTP_ADDR", cfg.HTTPAddr)
	cfg.Environment = envutil.String("ENVIRONMENT", cfg.Environment)
	cfg.JWTSecretKey = envutil.String("JWT_SECRET_KEY", cfg.JWTSecretKey)
	if origins := envutil.String("CORS_ORIGINS", ""); origins != "" {
		cfg.CORSOrigins = splitOrigins(origins)
	}
	cfg.Postgres.Host = envutil.String("POSTGRES_HOST", cfg.Postgres.Host)
	cfg.Postgres.Port = envutil.String("POSTGRES_PORT", cfg.Postgres.Port)
	cfg.Postgres.User = envutil.String("POSTGRES_USER", cfg.Postgres.User)
	cfg.Postgres.Password = envutil.String("POSTGRES_PASSWORD", cfg.Postgres.Password)
	cfg.Postgres.Name = envutil.String("POSTGRES_NAME", cfg.Postgres.Name)
	cfg.RedisAddr = envutil.String("REDIS_ADDR", cfg.RedisAddr)
	cfg.RedisChannel = envutil.String("REDIS_CHANNEL", cfg.RedisChannel)
	cfg.Defaults.Customer = envutil.String("QUOTE_DEFAULT_CUSTOMER", cfg.Defaults.Customer)
	cfg.Defaults.Salesperson = envutil.String("QUOTE_DEFAULT_SALESPERSON", cfg.Defaults.Salesperson)
	cfg.Defaults.PriceTable = envutil.String("QUOTE_DEFAULT_PRICE_TABLE", cfg.Defaults.PriceTable)
	cfg.Defaults.User = envutil.String("QUOTE_DEFAULT_USER", cfg.Defaults.User)

	return cfg, nil
}

func splitOrigins(raw string) []string {
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			origins = append(origins, p)
		}
	}
	return origins
}
