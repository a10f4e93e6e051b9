// Copyright 2025 Veritas Documents
//
// Process-level configuration, loaded from environment variables into one
// flat struct.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the process-level configuration for a vdcnode instance.
type Config struct {
	// Server
	ListenAddr  string
	MetricsAddr string

	// Object tier (Postgres)
	DatabaseURL       string
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// KV tier (Firestore)
	FirestoreEnabled        bool
	FirebaseProjectID       string
	FirebaseCredentialsFile string

	// Local KV tier fallback (cometbft-db), used when Firestore is disabled.
	LocalKVDir string

	// System identity
	SysIDKeyShare1Path string
	SysIDKeyShare2Path string
	SysIDPublicKeyPath string
	SysIDKEMSeedPath   string
	SysIDKeyVersion    string

	// Identity & session
	ChallengeSkew time.Duration
	SessionTTL    time.Duration

	// Mining cadence
	MineInterval time.Duration

	// Storage policy override file (YAML); empty means use the built-in
	// default policy table.
	StoragePolicyFile string

	LogLevel string
}

// Load reads configuration from environment variables, applying defaults
// for anything unset.
func Load() (*Config, error) {
	cfg := &Config{
		ListenAddr:  getEnv("VDC_LISTEN_ADDR", "0.0.0.0:8080"),
		MetricsAddr: getEnv("VDC_METRICS_ADDR", "0.0.0.0:9090"),

		DatabaseURL:       getEnv("VDC_DATABASE_URL", ""),
		DBMaxOpenConns:    getEnvInt("VDC_DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("VDC_DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("VDC_DB_CONN_MAX_LIFETIME", time.Hour),

		FirestoreEnabled:        getEnvBool("VDC_FIRESTORE_ENABLED", false),
		FirebaseProjectID:       getEnv("VDC_FIREBASE_PROJECT_ID", ""),
		FirebaseCredentialsFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),

		LocalKVDir: getEnv("VDC_LOCAL_KV_DIR", "./data/kv"),

		SysIDKeyShare1Path: getEnv("VDC_SYSID_SHARE1_PATH", ""),
		SysIDKeyShare2Path: getEnv("VDC_SYSID_SHARE2_PATH", ""),
		SysIDPublicKeyPath: getEnv("VDC_SYSID_PUBLIC_KEY_PATH", ""),
		SysIDKEMSeedPath:   getEnv("VDC_SYSID_KEM_SEED_PATH", ""),
		SysIDKeyVersion:    getEnv("VDC_SYSID_KEY_VERSION", "v1"),

		ChallengeSkew: getEnvDuration("VDC_CHALLENGE_SKEW", 5*time.Minute),
		SessionTTL:    getEnvDuration("VDC_SESSION_TTL", 24*time.Hour),

		MineInterval: getEnvDuration("VDC_MINE_INTERVAL", 15*time.Second),

		StoragePolicyFile: getEnv("VDC_STORAGE_POLICY_FILE", ""),

		LogLevel: getEnv("VDC_LOG_LEVEL", "info"),
	}
	return cfg, nil
}

// Validate checks that the configuration needed to reconstruct the system
// identity is present. It does not validate the storage backends, which are
// individually optional (a deployment may run object-tier-only, or local-KV
// only).
func (c *Config) Validate() error {
	var errs []string
	if c.SysIDKeyShare1Path == "" || c.SysIDKeyShare2Path == "" {
		errs = append(errs, "VDC_SYSID_SHARE1_PATH and VDC_SYSID_SHARE2_PATH are both required: the system signing secret is split across two independent inputs")
	}
	if c.SysIDPublicKeyPath == "" {
		errs = append(errs, "VDC_SYSID_PUBLIC_KEY_PATH is required")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: invalid configuration:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
