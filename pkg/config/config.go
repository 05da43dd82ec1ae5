// Package config loads application configuration from environment
// variables, optionally seeded from a .env file.
package config

import (
	"log/slog"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config holds all application configuration loaded from environment variables.
type Config struct {
	// Server
	Addr string

	// Spotify OAuth
	SpotifyClientID     string
	SpotifyClientSecret string

	// Cache
	CacheBackend  string // memory or redis
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables with sensible
// defaults. A .env file in the working directory is loaded first when
// present; real environment variables win over .env entries.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		slog.Debug("Loaded configuration from .env file")
	}

	return &Config{
		Addr: envOrDefault("ADDR", ":8095"),

		SpotifyClientID:     os.Getenv("SPOTIFY_CLIENT_ID"),
		SpotifyClientSecret: os.Getenv("SPOTIFY_CLIENT_SECRET"),

		CacheBackend:  envOrDefault("CACHE_BACKEND", "memory"),
		RedisAddr:     envOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       envOrDefaultInt("REDIS_DB", 0),

		LogLevel: os.Getenv("LOG_LEVEL"),
	}
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return fallback
}
