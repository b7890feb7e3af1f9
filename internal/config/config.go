package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"golang.org/x/crypto/bcrypt"
)

type Config struct {
	DBSource     string
	Port         string
	Env          string
	StoreBackend string        // "postgres" or "memory"
	SessionTTL   time.Duration // <= 0 disables expiry
	BcryptCost   int
}

func Load() (*Config, error) {
	backend := os.Getenv("STORE_BACKEND")
	if backend == "" {
		backend = "postgres"
	}
	if backend != "postgres" && backend != "memory" {
		return nil, fmt.Errorf("STORE_BACKEND must be postgres or memory, got %q", backend)
	}

	dbSource := os.Getenv("DB_SOURCE")
	if backend == "postgres" && dbSource == "" {
		return nil, fmt.Errorf("DB_SOURCE environment variable is required")
	}

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}

	env := os.Getenv("ENVIRONMENT")
	if env == "" {
		env = "development"
	}

	sessionTTL := 24 * time.Hour
	if v := os.Getenv("SESSION_TTL"); v != "" {
		ttl, err := time.ParseDuration(v)
		if err != nil {
			return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
		}
		sessionTTL = ttl
	}

	cost := bcrypt.DefaultCost
	if v := os.Getenv("BCRYPT_COST"); v != "" {
		c, err := strconv.Atoi(v)
		if err != nil || c < bcrypt.MinCost || c > bcrypt.MaxCost {
			return nil, fmt.Errorf("invalid BCRYPT_COST %q", v)
		}
		cost = c
	}

	return &Config{
		DBSource:     dbSource,
		Port:         port,
		Env:          env,
		StoreBackend: backend,
		SessionTTL:   sessionTTL,
		BcryptCost:   cost,
	}, nil
}
