package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Database Configuration
	Database DatabaseConfig

	// Redis Configuration
	Redis RedisConfig

	// Token issuance configuration
	Auth AuthConfig

	// External auth provider configuration
	Provider ProviderConfig

	// Storefront URLs
	API APIConfig

	// Object storage for ticket images
	Storage StorageConfig

	// Payments configuration
	Payments PaymentsConfig

	// Logging Configuration
	Logging LoggingConfig

	// Optional YAML catalog seed applied at server start
	SeedFile string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Address string // Redis address (host:port)
}

// AuthConfig holds JWT issuance settings
type AuthConfig struct {
	JWTSecret string
	TokenTTL  time.Duration
	// When true, registration returns no session until the email is confirmed
	// through the provider's OTP flow
	RequireEmailConfirmation bool
}

// ProviderConfig holds the external auth provider endpoints.
// Issuer is optional; when set, provider-issued tokens are verified via OIDC discovery.
type ProviderConfig struct {
	URL    string
	Issuer string
}

// APIConfig holds the public URLs of the storefront surfaces
type APIConfig struct {
	BaseURL    string // where the API server is reachable (used in error messages and file URLs)
	LandingURL string // marketing/landing site, linked from emails and CLI output
}

// StorageConfig holds the ticket image storage settings
type StorageConfig struct {
	Dir       string // local directory backing the bucket
	PublicURL string // URL prefix under which stored objects are served
}

// PaymentsConfig holds payment behavior settings
type PaymentsConfig struct {
	PendingTTL time.Duration     // how long a pending manual transfer stays claimable
	Wallets    map[string]string // crypto currency code -> receiving address
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	Level  string
	Format string // json, console
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env files (fails silently if files don't exist)
	_ = godotenv.Load(".env")
	_ = godotenv.Load(".env.local")

	dbURL := getenv("DATABASE_URL", "tradekit.sqlite")
	redisAddr := getenv("REDIS_ADDRESS", "localhost:6379")

	providerURL := strings.TrimRight(getenv("PROVIDER_URL", "http://localhost:9999"), "/")
	providerIssuer := os.Getenv("PROVIDER_ISSUER")

	apiURL := strings.TrimRight(getenv("API_URL", "http://localhost:8080"), "/")
	landingURL := strings.TrimRight(getenv("LANDING_URL", "http://localhost:3003"), "/")

	storageDir := getenv("STORAGE_DIR", "storage/ticket-images")
	storagePublicURL := strings.TrimRight(getenv("STORAGE_PUBLIC_URL", apiURL+"/storage/ticket-images"), "/")

	tokenTTL, err := time.ParseDuration(getenv("TOKEN_TTL", "720h"))
	if err != nil {
		return nil, err
	}

	pendingTTL, err := time.ParseDuration(getenv("PAYMENT_PENDING_TTL", "24h"))
	if err != nil {
		return nil, err
	}

	// CRYPTO_WALLETS format: "BTC:bc1...;ETH:0x..."
	wallets := map[string]string{}
	for _, entry := range strings.Split(os.Getenv("CRYPTO_WALLETS"), ";") {
		currency, address, ok := strings.Cut(strings.TrimSpace(entry), ":")
		if ok && currency != "" && address != "" {
			wallets[strings.ToUpper(currency)] = address
		}
	}

	return &Config{
		Database: DatabaseConfig{
			URL: dbURL,
		},
		Redis: RedisConfig{
			Address: redisAddr,
		},
		Auth: AuthConfig{
			JWTSecret:                os.Getenv("JWT_SECRET"),
			TokenTTL:                 tokenTTL,
			RequireEmailConfirmation: os.Getenv("REQUIRE_EMAIL_CONFIRMATION") == "true",
		},
		Provider: ProviderConfig{
			URL:    providerURL,
			Issuer: providerIssuer,
		},
		API: APIConfig{
			BaseURL:    apiURL,
			LandingURL: landingURL,
		},
		Storage: StorageConfig{
			Dir:       storageDir,
			PublicURL: storagePublicURL,
		},
		Payments: PaymentsConfig{
			PendingTTL: pendingTTL,
			Wallets:    wallets,
		},
		Logging: LoggingConfig{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		SeedFile: os.Getenv("SEED_FILE"),
	}, nil
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
