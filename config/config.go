package config

import (
	"fmt"
	"os"

	"grabbi-loyalty/utils"

	"github.com/joho/godotenv"
)

func LoadEnv() error {
	// .env is optional; in production variables are set directly.
	if err := godotenv.Load(); err != nil {
		return nil
	}
	return nil
}

// ValidateEnv checks that critical environment variables are set.
// Returns an error if any critical variable is missing.
func ValidateEnv() error {
	var missing []string

	if os.Getenv("JWT_SECRET") == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if StoreBackend() == BackendPostgres && os.Getenv("DATABASE_URL") == "" {
		missing = append(missing, "DATABASE_URL")
	}

	if len(missing) > 0 {
		return fmt.Errorf("critical environment variables not set: %v", missing)
	}

	log := utils.Logger().Sugar()
	if StoreBackend() == BackendFirestore && os.Getenv("GOOGLE_APPLICATION_CREDENTIALS") == "" {
		log.Warn("GOOGLE_APPLICATION_CREDENTIALS not set - Firestore will use ambient credentials")
	}
	if os.Getenv("FRONTEND_URL") == "" {
		log.Warn("FRONTEND_URL not set - CORS may not work correctly")
	}
	if os.Getenv("SMTP_HOST") == "" || os.Getenv("SMTP_PORT") == "" || os.Getenv("SMTP_FROM") == "" {
		log.Warn("SMTP_HOST/SMTP_PORT/SMTP_FROM not set - email notifications disabled")
	}
	if os.Getenv("RABBITMQ_URL") == "" && os.Getenv("AMQP_URL") == "" {
		log.Warn("RABBITMQ_URL not set - queue notifications disabled")
	}
	if os.Getenv("REDIS_ADDR") == "" && os.Getenv("REDIS_HOST") == "" {
		log.Warn("REDIS_ADDR not set - using in-process rate limiting")
	}

	return nil
}

func GetEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

const (
	BackendPostgres  = "postgres"
	BackendSQLite    = "sqlite"
	BackendFirestore = "firestore"
)

// StoreBackend reports STORE_BACKEND, defaulting to postgres.
func StoreBackend() string {
	switch b := GetEnv("STORE_BACKEND", BackendPostgres); b {
	case BackendSQLite, BackendFirestore:
		return b
	default:
		return BackendPostgres
	}
}
