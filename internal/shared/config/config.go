package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	StorageFirestore = "firestore"
	StoragePostgres  = "postgres"
)

type Config struct {
	Server     ServerConfig
	TLS        TLSConfig
	Database   DatabaseConfig
	Storage    StorageConfig
	Firebase   FirebaseConfig
	Plaid      PlaidConfig
	Dwolla     DwollaConfig
	Session    SessionConfig
	Encryption EncryptionConfig
	Cache      CacheConfig
	UI         UIConfig
	Telemetry  TelemetryConfig
}

type ServerConfig struct {
	Port         string
	Host         string
	AllowedHosts []string
}

type TLSConfig struct {
	Enabled      bool
	CertPath     string
	KeyPath      string
	RedirectHTTP bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// StorageConfig selects where profiles, banks and credentials live.
type StorageConfig struct {
	Backend        string
	UserCollection string
	BankCollection string
}

type FirebaseConfig struct {
	ProjectID        string
	CredentialsFile  string
	WebAPIKey        string
	MessagingEnabled bool
}

type PlaidConfig struct {
	ClientID           string
	Secret             string
	Environment        string
	Products           []string
	CountryCodes       []string
	Language           string
	AllowAnonymousLink bool
	RedirectURI        string
	ProcessorName      string
}

type DwollaConfig struct {
	Key         string
	Secret      string
	Environment string
}

type SessionConfig struct {
	CookieName string
	TTL        time.Duration
	JWTSecret  string
}

type EncryptionConfig struct {
	Key string
}

type CacheConfig struct {
	BankListTTL time.Duration
}

type UIConfig struct {
	RequireLinkReady bool
}

type TelemetryConfig struct {
	Enabled      bool
	ServiceName  string
	Environment  string
	OTLPEndpoint string
	MetricsPort  string
}

// Load reads configuration from the environment once at process start.
// A .env file in the working directory is honored when present.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	dbPort, err := strconv.Atoi(getEnv("DB_PORT", "5432"))
	if err != nil {
		return nil, fmt.Errorf("invalid DB_PORT: %w", err)
	}

	sessionTTL, err := time.ParseDuration(getEnv("SESSION_TTL", "168h"))
	if err != nil {
		return nil, fmt.Errorf("invalid SESSION_TTL: %w", err)
	}

	bankListTTL, err := time.ParseDuration(getEnv("CACHE_BANK_LIST_TTL", "5m"))
	if err != nil {
		return nil, fmt.Errorf("invalid CACHE_BANK_LIST_TTL: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Host:         getEnv("HOST", "0.0.0.0"),
			AllowedHosts: getListEnv("ALLOWED_HOSTS", nil),
		},
		TLS: TLSConfig{
			Enabled:      getBoolEnv("TLS_ENABLED", false),
			CertPath:     getEnv("TLS_CERT_PATH", ""),
			KeyPath:      getEnv("TLS_KEY_PATH", ""),
			RedirectHTTP: getBoolEnv("TLS_REDIRECT_HTTP", false),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     dbPort,
			User:     getEnv("DB_USER", "banklink"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "banklink"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Storage: StorageConfig{
			Backend:        strings.ToLower(getEnv("STORAGE_BACKEND", StorageFirestore)),
			UserCollection: getEnv("FIRESTORE_USER_COLLECTION", ""),
			BankCollection: getEnv("FIRESTORE_BANK_COLLECTION", ""),
		},
		Firebase: FirebaseConfig{
			ProjectID:        getEnv("FIREBASE_PROJECT_ID", ""),
			CredentialsFile:  getEnv("FIREBASE_CREDENTIALS_FILE", ""),
			WebAPIKey:        getEnv("FIREBASE_WEB_API_KEY", ""),
			MessagingEnabled: getBoolEnv("FIREBASE_MESSAGING_ENABLED", false),
		},
		Plaid: PlaidConfig{
			ClientID:           getEnv("PLAID_CLIENT_ID", ""),
			Secret:             getEnv("PLAID_SECRET", ""),
			Environment:        getEnv("PLAID_ENV", "sandbox"),
			Products:           getListEnv("PLAID_PRODUCTS", []string{"auth"}),
			CountryCodes:       getListEnv("PLAID_COUNTRY_CODES", []string{"US"}),
			Language:           getEnv("PLAID_LANGUAGE", "en"),
			AllowAnonymousLink: getBoolEnv("PLAID_ALLOW_ANONYMOUS_LINK", false),
			RedirectURI:        getEnv("PLAID_REDIRECT_URI", ""),
			ProcessorName:      getEnv("PLAID_PROCESSOR", "dwolla"),
		},
		Dwolla: DwollaConfig{
			Key:         getEnv("DWOLLA_KEY", ""),
			Secret:      getEnv("DWOLLA_SECRET", ""),
			Environment: getEnv("DWOLLA_ENV", "sandbox"),
		},
		Session: SessionConfig{
			CookieName: getEnv("SESSION_COOKIE_NAME", "banklink-session"),
			TTL:        sessionTTL,
			JWTSecret:  getEnv("JWT_SECRET", ""),
		},
		Encryption: EncryptionConfig{
			Key: getEnv("ENCRYPTION_KEY", ""),
		},
		Cache: CacheConfig{
			BankListTTL: bankListTTL,
		},
		UI: UIConfig{
			RequireLinkReady: getBoolEnv("LINK_BUTTON_REQUIRE_READY", true),
		},
		Telemetry: TelemetryConfig{
			Enabled:      getBoolEnv("OTEL_ENABLED", false),
			ServiceName:  getEnv("OTEL_SERVICE_NAME", "banklink-api"),
			Environment:  getEnv("OTEL_ENVIRONMENT", "development"),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_ENDPOINT", "localhost:4317"),
			MetricsPort:  getEnv("METRICS_PORT", "9464"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Plaid.ClientID == "" {
		return fmt.Errorf("PLAID_CLIENT_ID is required")
	}
	if c.Plaid.Secret == "" {
		return fmt.Errorf("PLAID_SECRET is required")
	}
	if len(c.Plaid.Products) == 0 {
		return fmt.Errorf("PLAID_PRODUCTS must name at least one product")
	}
	if len(c.Plaid.CountryCodes) == 0 {
		return fmt.Errorf("PLAID_COUNTRY_CODES must name at least one country")
	}
	if c.Dwolla.Key == "" || c.Dwolla.Secret == "" {
		return fmt.Errorf("DWOLLA_KEY and DWOLLA_SECRET are required")
	}
	if c.Encryption.Key == "" {
		return fmt.Errorf("ENCRYPTION_KEY is required")
	}
	if len(c.Encryption.Key) != 32 {
		return fmt.Errorf("ENCRYPTION_KEY must be exactly 32 bytes for AES-256")
	}

	switch c.Storage.Backend {
	case StorageFirestore:
		if c.Firebase.ProjectID == "" {
			return fmt.Errorf("FIREBASE_PROJECT_ID is required when STORAGE_BACKEND=firestore")
		}
		if c.Firebase.WebAPIKey == "" {
			return fmt.Errorf("FIREBASE_WEB_API_KEY is required when STORAGE_BACKEND=firestore")
		}
		if c.Storage.UserCollection == "" {
			return fmt.Errorf("FIRESTORE_USER_COLLECTION is required when STORAGE_BACKEND=firestore")
		}
		if c.Storage.BankCollection == "" {
			return fmt.Errorf("FIRESTORE_BANK_COLLECTION is required when STORAGE_BACKEND=firestore")
		}
	case StoragePostgres:
		if c.Session.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when STORAGE_BACKEND=postgres")
		}
	default:
		return fmt.Errorf("unknown STORAGE_BACKEND %q (want %s or %s)", c.Storage.Backend, StorageFirestore, StoragePostgres)
	}

	if c.Firebase.MessagingEnabled && c.Storage.Backend != StorageFirestore {
		return fmt.Errorf("FIREBASE_MESSAGING_ENABLED requires STORAGE_BACKEND=firestore")
	}

	if c.TLS.Enabled {
		if c.TLS.CertPath == "" {
			return fmt.Errorf("TLS_CERT_PATH is required when TLS_ENABLED=true")
		}
		if c.TLS.KeyPath == "" {
			return fmt.Errorf("TLS_KEY_PATH is required when TLS_ENABLED=true")
		}
	}

	return nil
}

func (c *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	// Accept: true, false, 1, 0, yes, no (case-insensitive)
	switch strings.ToLower(value) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return defaultValue
	}
}

// getListEnv splits a comma-separated variable, trimming blanks.
// An unset or all-blank variable yields defaultValue.
func getListEnv(key string, defaultValue []string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}

	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
