package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Port        string
	Environment string
	Database    DatabaseConfig
	Redis       RedisConfig
	RateQuote   RateQuoteConfig
	Payment     PaymentConfig
	Auth        AuthConfig
	LogLevel    string
}

type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MigrationsDir string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// RateQuoteConfig points at the admin-configured shipping rate endpoint.
// The feature is off unless both Enabled and a URL are set; callers then
// treat the dynamic fee as zero.
type RateQuoteConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

type PaymentConfig struct {
	PublicKey        string
	SecretKey        string
	ProviderBaseURL  string
	VerifyURL        string
	Currency         string
	Timeout          time.Duration
	ProcessingWindow time.Duration
}

type AuthConfig struct {
	JWTSecret string
}

func Load() (*Config, error) {
	viper.SetConfigType("env")
	viper.SetConfigName(".env")
	viper.AddConfigPath(".")
	viper.AddConfigPath("..")
	viper.AddConfigPath("../..")

	// Set defaults
	viper.SetDefault("PORT", "8080")
	viper.SetDefault("ENVIRONMENT", "development")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MIGRATIONS_DIR", "migrations")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("RATE_QUOTE_TIMEOUT_SECONDS", "10")
	viper.SetDefault("PAYMENT_CURRENCY", "NGN")
	viper.SetDefault("PAYMENT_TIMEOUT_SECONDS", "15")
	viper.SetDefault("PAYMENT_PROCESSING_WINDOW_SECONDS", "120")
	viper.SetDefault("LOG_LEVEL", "info")

	// Read from environment variables
	viper.AutomaticEnv()

	// Try to read .env file (optional)
	if err := viper.ReadInConfig(); err != nil {
		// It's okay if .env doesn't exist, we'll use env vars
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{
		Port:        getEnvOrViper("PORT", "8080"),
		Environment: getEnvOrViper("ENVIRONMENT", "development"),
		Database: DatabaseConfig{
			Host:          getEnvOrViper("DB_HOST", "localhost"),
			Port:          getEnvOrViper("DB_PORT", "5432"),
			User:          getEnvOrViper("DB_USER", "postgres"),
			Password:      getEnvOrViper("DB_PASSWORD", "postgres"),
			DBName:        getEnvOrViper("DB_NAME", "storefront"),
			SSLMode:       getEnvOrViper("DB_SSLMODE", "disable"),
			MigrationsDir: getEnvOrViper("DB_MIGRATIONS_DIR", "migrations"),
		},
		Redis: RedisConfig{
			Addr:     getEnvOrViper("REDIS_ADDR", "localhost:6379"),
			Password: getEnvOrViper("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		RateQuote: RateQuoteConfig{
			Enabled: getEnvBool("RATE_QUOTE_ENABLED", false),
			URL:     getEnvOrViper("RATE_QUOTE_URL", ""),
			Timeout: getEnvSeconds("RATE_QUOTE_TIMEOUT_SECONDS", 10),
		},
		Payment: PaymentConfig{
			PublicKey:        getEnvOrViper("PAYMENT_PUBLIC_KEY", ""),
			SecretKey:        getEnvOrViper("PAYMENT_SECRET_KEY", ""),
			ProviderBaseURL:  getEnvOrViper("PAYMENT_PROVIDER_BASE_URL", "https://api.paystack.co"),
			VerifyURL:        getEnvOrViper("PAYMENT_VERIFY_URL", ""),
			Currency:         getEnvOrViper("PAYMENT_CURRENCY", "NGN"),
			Timeout:          getEnvSeconds("PAYMENT_TIMEOUT_SECONDS", 15),
			ProcessingWindow: getEnvSeconds("PAYMENT_PROCESSING_WINDOW_SECONDS", 120),
		},
		Auth: AuthConfig{
			JWTSecret: getEnvOrViper("JWT_SECRET", ""),
		},
		LogLevel: getEnvOrViper("LOG_LEVEL", "info"),
	}

	// Validate required fields
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.Payment.SecretKey == "" {
		return nil, fmt.Errorf("PAYMENT_SECRET_KEY is required")
	}
	if cfg.RateQuote.Enabled && cfg.RateQuote.URL == "" {
		return nil, fmt.Errorf("RATE_QUOTE_URL is required when RATE_QUOTE_ENABLED is set")
	}

	return cfg, nil
}

func getEnvOrViper(key, defaultValue string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	if viper.IsSet(key) {
		return viper.GetString(key)
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := getEnvOrViper(key, strconv.Itoa(defaultValue))
	val, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return val
}

func getEnvBool(key string, defaultValue bool) bool {
	raw := getEnvOrViper(key, strconv.FormatBool(defaultValue))
	val, err := strconv.ParseBool(raw)
	if err != nil {
		return defaultValue
	}
	return val
}

func getEnvSeconds(key string, defaultValue int) time.Duration {
	return time.Duration(getEnvInt(key, defaultValue)) * time.Second
}
