package config

import (
	"fmt"
	"os"
	"strings"

	"mercadopago-checkout/pkg/validator"
)

type Config struct {
	// Server
	Port        string `validate:"required,numeric"`
	Environment string `validate:"oneof=development test production"`
	LogLevel    string

	// Public base URL used for back and notification URLs. Derived from the request when empty.
	SiteURL string `validate:"omitempty,url"`

	// CORS
	CORSOrigins []string

	// JWT. Empty disables caller identification and every checkout is a guest checkout.
	JWTSecret string

	// Rate Limiting
	RateLimitRequests int `validate:"gte=0"`
	RateLimitWindow   int `validate:"gte=0"`
	RateLimitBurst    int `validate:"gte=0"`

	// Mercado Pago
	MercadoPagoClientID      string
	MercadoPagoClientSecret  string
	MercadoPagoAccessToken   string
	MercadoPagoAPIURL        string `validate:"required,url"`
	MercadoPagoWebhookSecret string
	MercadoPagoSandbox       bool

	// Landing
	LandingVerifyPayment bool

	// Database (order store)
	EnableDatabase bool
	DBDriver       string `validate:"oneof=postgres sqlite"`
	DBHost         string
	DBPort         string
	DBUser         string
	DBPassword     string
	DBName         string
	DBSSLMode      string
	DBPath         string
	DatabaseURL    string

	// Redis (webhook delivery de-duplication)
	EnableRedis bool
	RedisURL    string
	DedupeTTL   int `validate:"gte=0"`

	// Features
	EnableMetrics bool
}

func New() *Config {
	c := &Config{
		// Server
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		LogLevel:    getEnv("LOG_LEVEL", "debug"),

		SiteURL: strings.TrimRight(getEnv("SITE_URL", ""), "/"),

		// CORS
		CORSOrigins: splitList(getEnv("CORS_ORIGINS", "http://localhost:3000,http://localhost:8080")),

		// JWT
		JWTSecret: getEnv("JWT_SECRET", ""),

		// Rate Limiting
		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsInt("RATE_LIMIT_WINDOW", 60),
		RateLimitBurst:    getEnvAsInt("RATE_LIMIT_BURST", 0),

		// Mercado Pago
		MercadoPagoClientID:      getEnv("MERCADOPAGO_CLIENT_ID", ""),
		MercadoPagoClientSecret:  getEnv("MERCADOPAGO_CLIENT_SECRET", ""),
		MercadoPagoAccessToken:   getEnv("MERCADOPAGO_ACCESS_TOKEN", ""),
		MercadoPagoAPIURL:        getEnv("MERCADOPAGO_API_URL", "https://api.mercadopago.com"),
		MercadoPagoWebhookSecret: getEnv("MERCADOPAGO_WEBHOOK_SECRET", ""),
		MercadoPagoSandbox:       getEnvAsBool("MERCADOPAGO_SANDBOX", false),

		LandingVerifyPayment: getEnvAsBool("LANDING_VERIFY_PAYMENT", false),

		// Database
		EnableDatabase: getEnvAsBool("ENABLE_DATABASE", false),
		DBDriver:       strings.ToLower(getEnv("DB_DRIVER", "postgres")),
		DBHost:         getEnv("DB_HOST", "localhost"),
		DBPort:         getEnv("DB_PORT", "5432"),
		DBUser:         getEnv("DB_USER", "checkout"),
		DBPassword:     getEnv("DB_PASSWORD", "checkout"),
		DBName:         getEnv("DB_NAME", "checkout"),
		DBSSLMode:      getEnv("DB_SSLMODE", "disable"),
		DBPath:         getEnv("DB_PATH", "checkout.db"),

		// Redis
		EnableRedis: getEnvAsBool("ENABLE_REDIS", false),
		RedisURL:    getEnv("REDIS_URL", "localhost:6379"),
		DedupeTTL:   getEnvAsInt("WEBHOOK_DEDUPE_TTL", 86400),

		// Features
		EnableMetrics: getEnvAsBool("ENABLE_METRICS", true),
	}

	// Build DSN
	c.DatabaseURL = fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName, c.DBSSLMode,
	)

	return c
}

// Validate checks the shape of the loaded values. Missing Mercado Pago
// credentials are not an error: the provider rejects the first call instead.
func (c *Config) Validate() error {
	if err := validator.Validate(c); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	var value int
	_, err := fmt.Sscanf(valueStr, "%d", &value)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	return valueStr == "true" || valueStr == "1"
}

func splitList(value string) []string {
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
