package config

import (
	"os"
)

// Config holds the server configuration
type Config struct {
	Port      string
	DBPath    string
	JWTSecret string
}

// Load reads configuration from the environment with local defaults
func Load() *Config {
	port := os.Getenv("PORT")
	if port == "" {
		port = ":8080"
	}

	dbPath := os.Getenv("DB_PATH")
	if dbPath == "" {
		dbPath = "./data/clinical/hub.db"
	}

	// Empty JWT_SECRET disables authentication; only do that locally.
	jwtSecret := os.Getenv("JWT_SECRET")

	return &Config{
		Port:      port,
		DBPath:    dbPath,
		JWTSecret: jwtSecret,
	}
}
