package config

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
)

// Config carries everything cmd/server needs to wire the process.
// Values come from the environment; a local .env file is honored in dev.
type Config struct {
	Addr      string
	DSN       string
	RedisAddr string

	JWTSecret        string
	JWTExpiryMinutes int
}

func Load() (*Config, error) {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := &Config{
		Addr:             getEnv("ADDR", ":8080"),
		DSN:              os.Getenv("DB_DSN"),
		RedisAddr:        getEnv("REDIS_ADDR", "localhost:6379"),
		JWTSecret:        os.Getenv("JWT_SECRET"),
		JWTExpiryMinutes: 24 * 60,
	}

	if cfg.DSN == "" {
		return nil, fmt.Errorf("DB_DSN is not set")
	}
	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
