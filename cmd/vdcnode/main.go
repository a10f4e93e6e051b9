// Copyright 2025 Veritas Documents
//
// vdcnode wires together one VDC node: the system identity, the three
// storage tiers, the ledger engine and its mining scheduler, and the
// identity/session service. It carries no HTTP surface of its own - this
// binary wires components rather than implementing any.
package main

import (
	"context"
	"encoding/hex"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/veritas/vdc/pkg/config"
	"github.com/veritas/vdc/pkg/crypto/pqc"
	"github.com/veritas/vdc/pkg/identity"
	"github.com/veritas/vdc/pkg/ledger"
	"github.com/veritas/vdc/pkg/metrics"
	"github.com/veritas/vdc/pkg/storage"
	"github.com/veritas/vdc/pkg/storage/contentaddr"
	"github.com/veritas/vdc/pkg/storage/kvtier"
	"github.com/veritas/vdc/pkg/storage/localkv"
	"github.com/veritas/vdc/pkg/storage/objecttier"
	"github.com/veritas/vdc/pkg/sysid"
)

func main() {
	log.SetOutput(os.Stdout)
	log.SetFlags(log.LstdFlags | log.Lmicroseconds)
	log.Println("starting vdcnode")

	mineInterval := flag.Duration("mine-interval", 0, "override the mining cadence (0 uses config)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	if err := cfg.Validate(); err != nil {
		log.Fatalf("invalid config: %v", err)
	}
	if *mineInterval > 0 {
		cfg.MineInterval = *mineInterval
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sysIdentity, sysRegistry, err := loadSystemIdentity(cfg)
	if err != nil {
		log.Fatalf("load system identity: %v", err)
	}

	kv, closeKV, err := buildKVTier(ctx, cfg)
	if err != nil {
		log.Fatalf("build kv tier: %v", err)
	}
	defer closeKV()

	var objectTier storage.ObjectTier
	if cfg.DatabaseURL != "" {
		store, err := objecttier.Open(ctx, objecttier.Config{
			DatabaseURL:     cfg.DatabaseURL,
			MaxOpenConns:    cfg.DBMaxOpenConns,
			MaxIdleConns:    cfg.DBMaxIdleConns,
			ConnMaxLifetime: cfg.DBConnMaxLifetime,
		})
		if err != nil {
			log.Fatalf("open object tier: %v", err)
		}
		if err := store.MigrateUp(ctx); err != nil {
			log.Fatalf("migrate object tier: %v", err)
		}
		defer store.Close()
		objectTier = store
		log.Println("object tier: postgres (connected)")
	} else {
		log.Println("object tier: disabled - classes that require it will fail to store")
	}

	policies, err := config.LoadStoragePolicies(cfg.StoragePolicyFile)
	if err != nil {
		log.Fatalf("load storage policies: %v", err)
	}

	metricsReg := metrics.NewRegistry(prometheus.NewRegistry())

	fabric := storage.New(kv, objectTier, contentaddr.New()).WithPolicies(policies).WithMetrics(metricsReg)

	engine := ledger.NewEngine(sysIdentity, fabric, kv).WithMetrics(metricsReg)
	registry := engine.Registry()

	if restored, err := engine.RecoverPending(ctx); err != nil {
		log.Fatalf("recover pending transactions: %v", err)
	} else if restored > 0 {
		log.Printf("restored %d pending transactions from the mirror", restored)
	}

	identitySvc := identity.NewService(fabric, kv, sysIdentity, engine, registry,
		identity.WithChallengeSkew(cfg.ChallengeSkew),
		identity.WithSessionTTL(cfg.SessionTTL),
	)
	_ = identitySvc // exercised by whatever transport a deployment puts in front of it

	scheduler := ledger.NewScheduler(engine, &ledger.SchedulerConfig{
		Interval: cfg.MineInterval,
		Logger:   log.New(os.Stdout, "[ledger-scheduler] ", log.LstdFlags),
		Callback: func(_ context.Context, block *ledger.Block) {
			metricsReg.BlocksMined.Inc()
			metricsReg.PendingPoolSize.Set(float64(engine.PendingCount()))
		},
	})
	scheduler.Start(ctx)
	log.Printf("mining scheduler started: interval=%s", cfg.MineInterval)

	_ = sysRegistry // kept alive for the lifetime of the process; looked up through sysIdentity.VerifySystem

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("shutdown signal received, stopping")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	done := make(chan struct{})
	go func() {
		scheduler.Stop()
		close(done)
	}()

	select {
	case <-done:
		log.Println("scheduler stopped cleanly")
	case <-shutdownCtx.Done():
		log.Println("shutdown timed out waiting for scheduler")
	}

	log.Println("vdcnode stopped")
}

// loadSystemIdentity reads the two signing-key shares, the system public
// key, and (if configured) the KEM seed from the files config.Config names,
// and assembles the sysid.Identity the whole node signs and seals through.
func loadSystemIdentity(cfg *config.Config) (*sysid.Identity, *sysid.Registry, error) {
	part1, err := readHexFile(cfg.SysIDKeyShare1Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read key share 1: %w", err)
	}
	part2, err := readHexFile(cfg.SysIDKeyShare2Path)
	if err != nil {
		return nil, nil, fmt.Errorf("read key share 2: %w", err)
	}
	pubBytes, err := readHexFile(cfg.SysIDPublicKeyPath)
	if err != nil {
		return nil, nil, fmt.Errorf("read public key: %w", err)
	}

	sysRegistry := sysid.NewRegistry()
	id := sysid.New(part1, part2, pqc.SigPublicKey(pubBytes), cfg.SysIDKeyVersion, sysRegistry)

	if cfg.SysIDKEMSeedPath != "" {
		seed, err := readHexFile(cfg.SysIDKEMSeedPath)
		if err != nil {
			return nil, nil, fmt.Errorf("read kem seed: %w", err)
		}
		kemPriv, err := pqc.KEMPrivateKeyFromBytes(seed)
		if err != nil {
			return nil, nil, fmt.Errorf("parse kem seed: %w", err)
		}
		id = id.WithKEM(kemPriv.PublicKey(), kemPriv)
	} else {
		log.Println("no KEM seed configured - system-encrypted classes (activation tokens, pending transactions) are unavailable")
	}

	return id, sysRegistry, nil
}

// readHexFile reads a file containing a single hex-encoded value, as
// produced by the node's key-generation tooling.
func readHexFile(path string) ([]byte, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return hex.DecodeString(strings.TrimSpace(string(raw)))
}

// buildKVTier assembles the KV tier: Firestore when enabled, with a local
// cometbft-db store standing in when it is not.
func buildKVTier(ctx context.Context, cfg *config.Config) (storage.KVTier, func(), error) {
	if cfg.FirestoreEnabled {
		store, err := kvtier.New(ctx, &kvtier.Config{
			ProjectID:       cfg.FirebaseProjectID,
			CredentialsFile: cfg.FirebaseCredentialsFile,
			Collection:      "vdc_kv",
			Enabled:         true,
		})
		if err != nil {
			return nil, nil, err
		}
		log.Println("kv tier: firestore (connected)")
		return store, func() { store.Close() }, nil
	}

	store, err := localkv.Open("vdc", cfg.LocalKVDir)
	if err != nil {
		return nil, nil, err
	}
	log.Printf("kv tier: local (%s)", cfg.LocalKVDir)
	return store, func() { store.Close() }, nil
}
