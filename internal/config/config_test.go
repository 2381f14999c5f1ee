package config

import (
	"os"
	"testing"
)

func setEnvWithCleanup(t *testing.T, key, value string) {
	t.Helper()
	prev, hadPrev := os.LookupEnv(key)
	if err := os.Setenv(key, value); err != nil {
		t.Fatalf("failed to set env %s: %v", key, err)
	}
	t.Cleanup(func() {
		if hadPrev {
			_ = os.Setenv(key, prev)
			return
		}
		_ = os.Unsetenv(key)
	})
}

func TestLoadConfigReadsEnvironment(t *testing.T) {
	setEnvWithCleanup(t, "APP_PORT", "9999")
	setEnvWithCleanup(t, "DB_USER", "ledger")
	setEnvWithCleanup(t, "DB_PASSWORD", "hunter2")
	setEnvWithCleanup(t, "DB_HOST", "db.internal")
	setEnvWithCleanup(t, "DB_PORT", "3306")
	setEnvWithCleanup(t, "DB_NAME", "ledgerdb")
	setEnvWithCleanup(t, "JWT_SECRET", "s3cret")
	setEnvWithCleanup(t, "REDIS_DB", "3")
	setEnvWithCleanup(t, "IS_PROD", "true")

	cfg := LoadConfig()
	if cfg.AppPort != "9999" {
		t.Fatalf("AppPort=%q want 9999", cfg.AppPort)
	}
	if cfg.DBUser != "ledger" || cfg.DBPassword != "hunter2" {
		t.Fatalf("DB credentials not read: %q/%q", cfg.DBUser, cfg.DBPassword)
	}
	if cfg.JWTSecret != "s3cret" {
		t.Fatalf("JWTSecret=%q", cfg.JWTSecret)
	}
	if cfg.RedisDB != 3 {
		t.Fatalf("RedisDB=%d want 3", cfg.RedisDB)
	}
	if !cfg.IsProd {
		t.Fatal("IsProd not set")
	}
}

func TestLoadConfigDefaultsPort(t *testing.T) {
	setEnvWithCleanup(t, "APP_PORT", "")

	cfg := LoadConfig()
	if cfg.AppPort != "8080" {
		t.Fatalf("AppPort=%q want default 8080", cfg.AppPort)
	}
}

func TestConfigDSN(t *testing.T) {
	cfg := &Config{
		DBUser:     "ledger",
		DBPassword: "hunter2",
		DBHost:     "db.internal",
		DBPort:     "3306",
		DBName:     "ledgerdb",
	}
	want := "ledger:hunter2@tcp(db.internal:3306)/ledgerdb?parseTime=true"
	if got := cfg.DSN(); got != want {
		t.Fatalf("DSN=%q want %q", got, want)
	}
}
