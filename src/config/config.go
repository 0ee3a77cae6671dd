package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string

	PlaidClientID string
	PlaidSecret   string
	PlaidEnv      string

	NordigenBaseURL string
	NordigenToken   string

	JWTSecret string

	// Detection knobs
	ConfidenceThreshold int
	MinSampleSize       int
}

func Load() Config {
	// Load .env file if present
	_ = godotenv.Load()

	cfg := Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		PlaidClientID: getEnv("PLAID_CLIENT_ID", ""),
		PlaidSecret:   getEnv("PLAID_SECRET", ""),
		PlaidEnv:      getEnv("PLAID_ENV", "sandbox"),

		NordigenBaseURL: getEnv("NORDIGEN_BASE_URL", "https://bankaccountdata.gocardless.com"),
		NordigenToken:   getEnv("NORDIGEN_TOKEN", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		ConfidenceThreshold: getEnvInt("CONFIDENCE_THRESHOLD", 50),
		MinSampleSize:       getEnvInt("MIN_SAMPLE_SIZE", 2),
	}

	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("JWT_SECRET is required")
	}

	return cfg
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		log.Fatalf("%s must be an integer, got %q", key, value)
	}
	return n
}
