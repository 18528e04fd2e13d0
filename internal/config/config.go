package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	LogLevel    string
	HTTPAddr    string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	// Invoice numbering (customer-facing identifiers).
	InvoicePrefix      string
	InvoiceDigits      int
	InvoiceMaxAttempts int

	// Auto-renewal batch driver.
	RenewalInterval    time.Duration
	RenewalConcurrency int
	RenewalBatchSize   int
	RenewalCronSpec    string
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "netbill"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		LogLevel:    getenv("LOG_LEVEL", "info"),
		HTTPAddr:    getenv("HTTP_ADDR", ":8080"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "netbill"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		InvoicePrefix:      getenv("INVOICE_PREFIX", "ADB"),
		InvoiceDigits:      getenvInt("INVOICE_DIGITS", 8),
		InvoiceMaxAttempts: getenvInt("INVOICE_MAX_ATTEMPTS", 100),

		RenewalInterval:    getenvDuration("RENEWAL_INTERVAL", time.Hour),
		RenewalConcurrency: getenvInt("RENEWAL_CONCURRENCY", 4),
		RenewalBatchSize:   getenvInt("RENEWAL_BATCH_SIZE", 500),
		RenewalCronSpec:    getenv("RENEWAL_CRON", "30 2 * * *"),
	}
}

func getenv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func getenvInt(key string, fallback int) int {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid integer for %s: %q", key, raw)
		return fallback
	}
	return value
}

func getenvDuration(key string, fallback time.Duration) time.Duration {
	raw, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(raw) == "" {
		return fallback
	}
	value, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		log.Printf("config: invalid duration for %s: %q", key, raw)
		return fallback
	}
	return value
}

// Module provides the application configuration.
var Module = fx.Module("config",
	fx.Provide(Load),
)
