package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries everything the API and worker need from the environment.
type Config struct {
	Port string

	ProductsTable     string
	OrdersTable       string
	TransactionsTable string
	IdempotencyTable  string
	OrdersQueueURL    string

	PaystackSecretKey string
	PaystackBaseURL   string
	CallbackURL       string

	Currency              string
	FreeShippingThreshold int64
	ShippingFlatFee       int64
	TaxRate               float64
	CODUpfrontPercent     float64

	IdempotencyTTL time.Duration
	CacheTTL       time.Duration

	MetricsNamespace string
}

// Load reads a local .env when present and falls back to the process
// environment. Deployed environments (Lambda) set real env vars and have
// no .env file.
func Load() *Config {
	if _, err := os.Stat(".env"); err == nil {
		if err := godotenv.Load(); err != nil {
			log.Println("error loading .env file:", err)
		}
	}

	return &Config{
		Port: getEnv("PORT", "8080"),

		ProductsTable:     getEnv("PRODUCTS_TABLE", "products"),
		OrdersTable:       getEnv("ORDERS_TABLE", "orders"),
		TransactionsTable: getEnv("TRANSACTIONS_TABLE", "transactions"),
		IdempotencyTable:  getEnv("IDEMPOTENCY_TABLE", "idempotency"),
		OrdersQueueURL:    getEnv("ORDERS_QUEUE_URL", ""),

		PaystackSecretKey: getEnv("PAYSTACK_SECRET_KEY", ""),
		PaystackBaseURL:   getEnv("PAYSTACK_BASE_URL", "https://api.paystack.co"),
		CallbackURL:       getEnv("PAYMENT_CALLBACK_URL", ""),

		Currency:              getEnv("CURRENCY", "NGN"),
		FreeShippingThreshold: getEnvInt64("FREE_SHIPPING_THRESHOLD", 50000),
		ShippingFlatFee:       getEnvInt64("SHIPPING_FLAT_FEE", 2000),
		TaxRate:               getEnvFloat("TAX_RATE", 0.075),
		CODUpfrontPercent:     getEnvFloat("COD_UPFRONT_PERCENT", 0.5),

		IdempotencyTTL: getEnvDuration("IDEMPOTENCY_TTL", 48*time.Hour),
		CacheTTL:       getEnvDuration("CATALOG_CACHE_TTL", 5*time.Minute),

		MetricsNamespace: getEnv("METRICS_NAMESPACE", "AtelierCommerce"),
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvInt64(key string, fallback int64) int64 {
	if value, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil {
			return n
		}
		log.Printf("invalid value for %s: %q, using default", key, value)
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
		log.Printf("invalid value for %s: %q, using default", key, value)
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
		log.Printf("invalid value for %s: %q, using default", key, value)
	}
	return fallback
}
