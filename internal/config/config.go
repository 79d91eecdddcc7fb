package config

import (
	"errors"
	"os"

	"github.com/joho/godotenv"
)

// Config holds the process configuration, read once at startup.
type Config struct {
	// MySQLDSN is the persistence connection string, e.g.
	// "user:pass@tcp(localhost:3306)/leafnote".
	MySQLDSN string
	// JWTSecret signs identity tokens. Only the server process holds it.
	JWTSecret string
	Port      string
}

// Load reads configuration from a .env file (if present) and the
// environment. The connection string and signing secret are mandatory:
// there are no insecure local defaults, startup must fail without them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	dsn := os.Getenv("MYSQL_DSN")
	if dsn == "" {
		return nil, errors.New("MYSQL_DSN is required")
	}

	secret := os.Getenv("JWT_SECRET")
	if secret == "" {
		return nil, errors.New("JWT_SECRET is required")
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	return &Config{
		MySQLDSN:  dsn,
		JWTSecret: secret,
		Port:      port,
	}, nil
}
