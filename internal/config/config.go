// Package config содержит логику чтения конфигурации сервиса магазина.
package config

import (
	"flag"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config содержит параметры конфигурации сервиса магазина.
// SecretKey используется для подписи токенов и не должен попадать в логи.
type Config struct {
	RunAddress         string `env:"RUN_ADDRESS"`
	DatabaseURI        string `env:"DATABASE_URI"`
	SecretKey          string `env:"SECRET_KEY"`
	AccessTokenMinutes int    `env:"ACCESS_TOKEN_EXPIRE_MINUTES"`
}

// AccessTokenTTL возвращает срок жизни access-токена.
func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenMinutes) * time.Minute
}

// Parse считывает конфигурацию из флагов командной строки и переменных окружения.
func Parse() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	envRunAddress := cfg.RunAddress
	envDatabaseURI := cfg.DatabaseURI
	envSecretKey := cfg.SecretKey
	envAccessTokenMinutes := cfg.AccessTokenMinutes

	flag.StringVar(&cfg.RunAddress, "a", "localhost:8080", "address and port for HTTP server")
	flag.StringVar(&cfg.DatabaseURI, "d", "", "database URI")
	flag.StringVar(&cfg.SecretKey, "s", "", "secret key for signing tokens")
	flag.IntVar(&cfg.AccessTokenMinutes, "t", 30, "access token lifetime in minutes")

	flag.Parse()

	if envRunAddress != "" {
		cfg.RunAddress = envRunAddress
	}
	if envDatabaseURI != "" {
		cfg.DatabaseURI = envDatabaseURI
	}
	if envSecretKey != "" {
		cfg.SecretKey = envSecretKey
	}
	if envAccessTokenMinutes != 0 {
		cfg.AccessTokenMinutes = envAccessTokenMinutes
	}

	if cfg.RunAddress == "" {
		cfg.RunAddress = "localhost:8080"
	}
	if cfg.AccessTokenMinutes <= 0 {
		cfg.AccessTokenMinutes = 30
	}

	return cfg, nil
}
