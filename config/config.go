package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

var (
	PORT       string
	DB_URL     string
	JWT_SECRET string

	// Generation dispatcher (external job queue).
	DISPATCH_URL    string
	DISPATCH_SECRET string

	// Media storage.
	STORAGE_BASE_URL string

	CORS_ORIGIN string
)

func LoadEnv() {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found. Using system environment variables.")
	}

	PORT = getEnv("PORT", "8080")
	DB_URL = mustEnv("DB_URL")
	JWT_SECRET = mustEnv("JWT_SECRET")

	DISPATCH_URL = getEnv("DISPATCH_URL", "")
	DISPATCH_SECRET = getEnv("DISPATCH_SECRET", "")

	STORAGE_BASE_URL = getEnv("STORAGE_BASE_URL", "http://localhost:9000/uploads")

	CORS_ORIGIN = getEnv("CORS_ORIGIN", "*")
}

func mustEnv(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("Missing required environment variable: %s", key)
	}
	return v
}

func getEnv(key string, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}
