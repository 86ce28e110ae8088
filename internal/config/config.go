package config

import (
	"os"
	"strconv"
	"time"

	_ "github.com/joho/godotenv/autoload"
)

type Config struct {
	Port             string
	JWTSecret        string
	StoreBackend     string // "memory" or "badger"
	DataDir          string
	RecommendURL     string
	RecommendTimeout time.Duration
	Dev              bool
}

func Load() Config {
	return Config{
		Port:             getenv("PORT", "8080"),
		JWTSecret:        getenv("JWT_SECRET", "default_secret_key"),
		StoreBackend:     getenv("STORE_BACKEND", "badger"),
		DataDir:          getenv("DATA_DIR", "./data"),
		RecommendURL:     getenv("RECOMMEND_URL", "http://localhost:5000"),
		RecommendTimeout: time.Duration(atoi(getenv("RECOMMEND_TIMEOUT_SECONDS", "15"))) * time.Second,
		Dev:              getenv("APP_ENV", "production") != "production",
	}
}

func atoi(s string) int {
	if v, err := strconv.Atoi(s); err == nil {
		return v
	}
	return 0
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}
