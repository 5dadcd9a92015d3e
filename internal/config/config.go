package config

import (
	"errors"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// MessagePageLimit is the hard cap on one page of message history.
const MessagePageLimit = 100

// Config carries everything main needs to wire the service.
type Config struct {
	HTTPAddr    string
	PostgresDSN string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret string
	TokenTTL  time.Duration

	WorkerConcurrency int
}

// Load reads the optional .env file and then the environment. It fails only
// on settings that have no safe default.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logrus.Warn("no .env file loaded, relying on environment")
	}

	cfg := &Config{
		HTTPAddr:          getEnv("HTTP_ADDR", ":8080"),
		PostgresDSN:       getEnv("POSTGRES_DSN", "host=localhost user=user password=password dbname=beamchat port=5432 sslmode=disable"),
		RedisAddr:         getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:     os.Getenv("REDIS_PASSWORD"),
		RedisDB:           getEnvInt("REDIS_DB", 0),
		JWTSecret:         os.Getenv("JWT_SECRET"),
		TokenTTL:          getEnvDuration("TOKEN_TTL", 72*time.Hour),
		WorkerConcurrency: getEnvInt("WORKER_CONCURRENCY", 10),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New("config: JWT_SECRET is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
		logrus.Warnf("config: %s is not an integer, using default %d", key, fallback)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		logrus.Warnf("config: %s is not a duration, using default %s", key, fallback)
	}
	return fallback
}
