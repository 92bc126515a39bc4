// Package config loads configuration for the live-infrastructure test suites.
package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/joho/godotenv"

	appconfig "github.com/you/accountsvc/internal/config"
)

// Environment variables pointing the suites at real stores
const (
	EnvTestDSN       = "TEST_DATABASE_DSN"
	EnvTestRedisAddr = "TEST_REDIS_ADDR"
)

// TestJWTSecret signs tokens in the suites
const TestJWTSecret = "test-secret-key-for-e2e-suites-only-0123456789"

// LoadTestConfig resolves the service configuration against the stores named
// by TEST_DATABASE_DSN and TEST_REDIS_ADDR. An optional .env.test at the
// project root is read first. The test is skipped when either store is unset.
func LoadTestConfig(t *testing.T) *appconfig.Config {
	t.Helper()

	root := GetProjectRoot()
	_ = godotenv.Load(filepath.Join(root, ".env.test"))

	dsn := os.Getenv(EnvTestDSN)
	redisAddr := os.Getenv(EnvTestRedisAddr)
	if dsn == "" || redisAddr == "" {
		t.Skipf("%s and %s must be set to run against live stores", EnvTestDSN, EnvTestRedisAddr)
	}

	SetupTestEnvironment(t, map[string]string{
		"APP_ENV":                  appconfig.EnvDevelopment,
		"APP_GIN_MODE":             "test",
		"LOG_DB_LEVEL":             "silent",
		"DATABASE_DSN":             dsn,
		"REDIS_ADDR":               redisAddr,
		"REDIS_DB":                 "1",
		"JWT_SECRET":               TestJWTSecret,
		"JWT_ISSUER":               "accountsvc-test",
		"OTP_TTL":                  "5m",
		"PASSWORD_BCRYPT_COST":     "4",
		"COMPENSATION_MAX_RETRIES": "1",
		"COMPENSATION_BACKOFF":     "1ms",
	})

	cfg, err := appconfig.Load(filepath.Join(root, appconfig.DefaultPath))
	if err != nil {
		t.Fatalf("load test config: %v", err)
	}
	return cfg
}

// SetupTestEnvironment sets env vars for the duration of the test
func SetupTestEnvironment(t *testing.T, vars map[string]string) {
	t.Helper()
	for key, value := range vars {
		t.Setenv(key, value)
	}
}

// GetProjectRoot returns the project root directory for config files
func GetProjectRoot() string {
	wd, err := os.Getwd()
	if err != nil {
		return "."
	}

	// Navigate up to find the project root (where go.mod exists)
	for {
		if _, err := os.Stat(filepath.Join(wd, "go.mod")); err == nil {
			return wd
		}

		parent := filepath.Dir(wd)
		if parent == wd {
			break
		}
		wd = parent
	}

	return "."
}
