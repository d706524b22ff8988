package config

import (
	"os"
	"reflect"
	"testing"
	"time"
)

func setRequiredEnvVars(t *testing.T) {
	t.Helper()
	t.Setenv("PLAID_CLIENT_ID", "test-client")
	t.Setenv("PLAID_SECRET", "test-secret")
	t.Setenv("DWOLLA_KEY", "dwolla-key")
	t.Setenv("DWOLLA_SECRET", "dwolla-secret")
	t.Setenv("ENCRYPTION_KEY", "01234567890123456789012345678901") // 32 bytes
	t.Setenv("STORAGE_BACKEND", "firestore")
	t.Setenv("FIREBASE_PROJECT_ID", "banklink-test")
	t.Setenv("FIREBASE_WEB_API_KEY", "web-api-key")
	t.Setenv("FIRESTORE_USER_COLLECTION", "users")
	t.Setenv("FIRESTORE_BANK_COLLECTION", "banks")
}

func TestLoad_Success(t *testing.T) {
	setRequiredEnvVars(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Server.Port != "8080" {
		t.Errorf("Server.Port = %q, want %q", cfg.Server.Port, "8080")
	}
	if cfg.Database.Port != 5432 {
		t.Errorf("Database.Port = %d, want %d", cfg.Database.Port, 5432)
	}
	if cfg.Session.CookieName != "banklink-session" {
		t.Errorf("Session.CookieName = %q, want %q", cfg.Session.CookieName, "banklink-session")
	}
	if cfg.Session.TTL != 168*time.Hour {
		t.Errorf("Session.TTL = %v, want %v", cfg.Session.TTL, 168*time.Hour)
	}
	if !cfg.UI.RequireLinkReady {
		t.Error("UI.RequireLinkReady should default to true")
	}
	if cfg.Plaid.AllowAnonymousLink {
		t.Error("Plaid.AllowAnonymousLink should default to false")
	}
}

func TestLoad_PlaidListDefaults(t *testing.T) {
	setRequiredEnvVars(t)
	os.Unsetenv("PLAID_PRODUCTS")
	os.Unsetenv("PLAID_COUNTRY_CODES")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !reflect.DeepEqual(cfg.Plaid.Products, []string{"auth"}) {
		t.Errorf("Plaid.Products = %v, want [auth]", cfg.Plaid.Products)
	}
	if !reflect.DeepEqual(cfg.Plaid.CountryCodes, []string{"US"}) {
		t.Errorf("Plaid.CountryCodes = %v, want [US]", cfg.Plaid.CountryCodes)
	}
}

func TestLoad_PlaidListParsing(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_PRODUCTS", " auth, transactions ,,")
	t.Setenv("PLAID_COUNTRY_CODES", "US,CA")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if !reflect.DeepEqual(cfg.Plaid.Products, []string{"auth", "transactions"}) {
		t.Errorf("Plaid.Products = %v, want [auth transactions]", cfg.Plaid.Products)
	}
	if !reflect.DeepEqual(cfg.Plaid.CountryCodes, []string{"US", "CA"}) {
		t.Errorf("Plaid.CountryCodes = %v, want [US CA]", cfg.Plaid.CountryCodes)
	}
}

func TestLoad_MissingPlaidCredentials(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("PLAID_SECRET", "")
	os.Unsetenv("PLAID_SECRET")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for missing PLAID_SECRET, got nil")
	}
}

func TestLoad_MissingCollectionIdentifiers(t *testing.T) {
	for _, key := range []string{"FIRESTORE_USER_COLLECTION", "FIRESTORE_BANK_COLLECTION", "FIREBASE_PROJECT_ID"} {
		t.Run(key, func(t *testing.T) {
			setRequiredEnvVars(t)
			t.Setenv(key, "")
			os.Unsetenv(key)

			if _, err := Load(); err == nil {
				t.Errorf("Load() expected error for missing %s, got nil", key)
			}
		})
	}
}

func TestLoad_PostgresRequiresJWTSecret(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("STORAGE_BACKEND", "postgres")
	t.Setenv("JWT_SECRET", "")
	os.Unsetenv("JWT_SECRET")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for missing JWT_SECRET with postgres backend, got nil")
	}

	t.Setenv("JWT_SECRET", "jwt-secret")
	if _, err := Load(); err != nil {
		t.Errorf("Load() failed with postgres backend: %v", err)
	}
}

func TestLoad_UnknownStorageBackend(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("STORAGE_BACKEND", "mongo")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for unknown STORAGE_BACKEND, got nil")
	}
}

func TestLoad_InvalidEncryptionKeyLength(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("ENCRYPTION_KEY", "too-short")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid ENCRYPTION_KEY length, got nil")
	}
}

func TestLoad_InvalidDBPort(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("DB_PORT", "not-a-number")

	_, err := Load()
	if err == nil {
		t.Error("Load() expected error for invalid DB_PORT, got nil")
	}
}

func TestLoad_InvalidSessionTTL(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("SESSION_TTL", "forever")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for invalid SESSION_TTL, got nil")
	}
}

func TestLoad_TLSValidation(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("TLS_ENABLED", "true")
	t.Setenv("TLS_CERT_PATH", "")
	t.Setenv("TLS_KEY_PATH", "")

	if _, err := Load(); err == nil {
		t.Error("Load() expected error for TLS without cert paths, got nil")
	}
}

func TestLoad_ReadyGuardCanBeDisabled(t *testing.T) {
	setRequiredEnvVars(t)
	t.Setenv("LINK_BUTTON_REQUIRE_READY", "false")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.UI.RequireLinkReady {
		t.Error("UI.RequireLinkReady = true, want false")
	}
}

func TestGetBoolEnv(t *testing.T) {
	tests := []struct {
		value string
		def   bool
		want  bool
	}{
		{"", true, true},
		{"yes", false, true},
		{"1", false, true},
		{"NO", true, false},
		{"garbage", true, true},
	}

	for _, tt := range tests {
		t.Setenv("BANKLINK_TEST_BOOL", tt.value)
		if got := getBoolEnv("BANKLINK_TEST_BOOL", tt.def); got != tt.want {
			t.Errorf("getBoolEnv(%q, %v) = %v, want %v", tt.value, tt.def, got, tt.want)
		}
	}
}

func TestConnectionString(t *testing.T) {
	db := DatabaseConfig{Host: "db", Port: 5433, User: "u", Password: "p", DBName: "n", SSLMode: "require"}
	want := "host=db port=5433 user=u password=p dbname=n sslmode=require"
	if got := db.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}
