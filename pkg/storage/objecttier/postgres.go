// Copyright 2025 Veritas Documents
//
// Object Tier - a Postgres-backed implementation of storage.ObjectTier: the
// durable, versioned, strongly-consistent-per-key tier of record. Every
// record class writes here; the custom_metadata column carries
// encryption provenance so VerifyEncryption never needs to decrypt.
package objecttier

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"log"
	"sort"
	"strings"
	"time"

	_ "github.com/lib/pq"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Config configures the Postgres connection pool.
type Config struct {
	DatabaseURL     string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdleTime time.Duration
	ConnMaxLifetime time.Duration
	Logger          *log.Logger
}

// Store implements storage.ObjectTier over a single "objects" table.
type Store struct {
	db     *sql.DB
	logger *log.Logger
}

// Open connects to Postgres and verifies the connection with a ping.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("objecttier: database url required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.New(log.Writer(), "[objecttier] ", log.LstdFlags)
	}

	db, err := sql.Open("postgres", cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("objecttier: open: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxIdleTime > 0 {
		db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("objecttier: ping: %w", err)
	}

	return &Store{db: db, logger: logger}, nil
}

// Close closes the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// Health reports whether the connection pool can reach Postgres.
func (s *Store) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// MigrateUp applies every embedded migration not yet recorded in
// schema_migrations, in filename order.
func (s *Store) MigrateUp(ctx context.Context) error {
	entries, err := fs.ReadDir(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("objecttier: read migrations: %w", err)
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if strings.HasSuffix(e.Name(), ".sql") {
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	for _, name := range names {
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + name)
		if err != nil {
			return fmt.Errorf("objecttier: read %s: %w", name, err)
		}
		version := strings.TrimSuffix(name, ".sql")

		var already bool
		err = s.db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)`, version).Scan(&already)
		if err != nil && !strings.Contains(err.Error(), "does not exist") {
			return fmt.Errorf("objecttier: check migration status: %w", err)
		}
		if already {
			continue
		}

		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("objecttier: begin migration tx: %w", err)
		}
		if _, err := tx.ExecContext(ctx, string(sqlBytes)); err != nil {
			tx.Rollback()
			return fmt.Errorf("objecttier: apply %s: %w", name, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("objecttier: commit %s: %w", name, err)
		}
		s.logger.Printf("applied migration %s", version)
	}
	return nil
}

// Put upserts value under key with a version bump, matching the tier's
// strongly-consistent-per-key contract.
func (s *Store) Put(ctx context.Context, key string, value []byte, contentType string, metadata map[string]string) error {
	metaJSON, err := json.Marshal(metadata)
	if err != nil {
		return fmt.Errorf("objecttier: marshal metadata: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO objects (key, value, content_type, custom_metadata, version, updated_at)
		VALUES ($1, $2, $3, $4, 1, now())
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			content_type = EXCLUDED.content_type,
			custom_metadata = EXCLUDED.custom_metadata,
			version = objects.version + 1,
			updated_at = now()
	`, key, value, contentType, metaJSON)
	if err != nil {
		return fmt.Errorf("objecttier: put: %w", err)
	}
	return nil
}

// Delete removes the object stored under key. Deleting an absent key is
// not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM objects WHERE key = $1`, key); err != nil {
		return fmt.Errorf("objecttier: delete: %w", err)
	}
	return nil
}

// Get returns the stored value and its custom metadata. A missing key
// returns (nil, nil, nil), matching storage.Fabric's tier-miss contract.
func (s *Store) Get(ctx context.Context, key string) ([]byte, map[string]string, error) {
	var (
		value    []byte
		metaJSON []byte
	)
	err := s.db.QueryRowContext(ctx, `SELECT value, custom_metadata FROM objects WHERE key = $1`, key).Scan(&value, &metaJSON)
	if err == sql.ErrNoRows {
		return nil, nil, nil
	}
	if err != nil {
		return nil, nil, fmt.Errorf("objecttier: get: %w", err)
	}

	metadata := map[string]string{}
	if len(metaJSON) > 0 {
		if err := json.Unmarshal(metaJSON, &metadata); err != nil {
			return nil, nil, fmt.Errorf("objecttier: decode metadata: %w", err)
		}
	}
	return value, metadata, nil
}
