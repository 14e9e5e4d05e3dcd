package config

import (
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

type Config struct {
	Port        string
	DatabaseURL string
	VerifyToken string
	JWTSecret   string

	OpenAIAPIKey  string
	OpenAIBaseURL string
	DefaultModel  string

	// Optional bootstrap credentials for a first tenant. Only applied
	// when the tenants table is empty.
	SeedTenantName    string
	SeedEmail         string
	SeedPassword      string
	SeedPhoneNumberID string
	SeedAccessToken   string
}

func LoadConfig() *Config {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using environment variables")
	}

	return &Config{
		Port:        getEnv("PORT", "8080"),
		DatabaseURL: getEnv("DATABASE_URL", ""),
		VerifyToken: getEnv("VERIFY_TOKEN", ""),
		JWTSecret:   getEnv("JWT_SECRET", ""),

		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
		DefaultModel:  getEnv("OPENAI_MODEL", "gpt-4o-mini"),

		SeedTenantName:    getEnv("SEED_TENANT_NAME", ""),
		SeedEmail:         getEnv("SEED_EMAIL", ""),
		SeedPassword:      getEnv("SEED_PASSWORD", ""),
		SeedPhoneNumberID: getEnv("SEED_PHONE_NUMBER_ID", ""),
		SeedAccessToken:   getEnv("SEED_ACCESS_TOKEN", ""),
	}
}

func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
