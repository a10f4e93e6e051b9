// Copyright 2025 Veritas Documents
//
// Local KV Tier - a cometbft-db backed implementation of storage.KVTier for
// single-node deployments and tests where a full Firestore project is not
// available. Every write goes through SetSync so a crash after Put never
// loses a confirmed write.
package localkv

import (
	"context"
	"fmt"

	dbm "github.com/cometbft/cometbft-db"
)

// Store wraps a cometbft-db database and implements storage.KVTier.
type Store struct {
	db dbm.DB
}

// Open opens (creating if needed) a goleveldb-backed store at dir/name.
func Open(name, dir string) (*Store, error) {
	db, err := dbm.NewDB(name, dbm.GoLevelDBBackend, dir)
	if err != nil {
		return nil, fmt.Errorf("localkv: open: %w", err)
	}
	return &Store{db: db}, nil
}

// NewMemory wraps an in-memory cometbft-db database, for tests.
func NewMemory() *Store {
	return &Store{db: dbm.NewMemDB()}
}

func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if err := s.db.SetSync([]byte(key), value); err != nil {
		return fmt.Errorf("localkv: set: %w", err)
	}
	return nil
}

func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	v, err := s.db.Get([]byte(key))
	if err != nil {
		return nil, fmt.Errorf("localkv: get: %w", err)
	}
	return v, nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.db.DeleteSync([]byte(key)); err != nil {
		return fmt.Errorf("localkv: delete: %w", err)
	}
	return nil
}

// Health verifies the underlying database handle still answers a read.
func (s *Store) Health(ctx context.Context) error {
	_, err := s.db.Get([]byte("__health_check__"))
	if err != nil {
		return fmt.Errorf("localkv: health check: %w", err)
	}
	return nil
}

// Close releases the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}
