// Copyright 2025 Veritas Documents
package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/veritas/vdc/pkg/crypto/canonical"
	"github.com/veritas/vdc/pkg/envelope"
	"github.com/veritas/vdc/pkg/metrics"
)

// Fabric routes record-class writes and reads across the KV, object and
// content-addressed tiers according to a StoragePolicy table. A nil tier
// is valid: policies that never name it are never asked to use it, and
// attempting to use a nil tier is a programming error the caller will see
// immediately as a panic rather than a silently dropped write.
type Fabric struct {
	policies map[RecordClass]StoragePolicy
	kv       KVTier
	object   ObjectTier
	content  ContentTier
	metrics  *metrics.Registry
}

// New builds a Fabric over the given tiers with the default policy table.
func New(kv KVTier, object ObjectTier, content ContentTier) *Fabric {
	return &Fabric{policies: DefaultPolicies(), kv: kv, object: object, content: content}
}

// WithPolicies overrides the policy table (used by tests and by deployments
// that tune tier assignment per environment).
func (f *Fabric) WithPolicies(policies map[RecordClass]StoragePolicy) *Fabric {
	f.policies = policies
	return f
}

// WithMetrics attaches a metrics registry so Put/Get observe per-tier
// latency. A Fabric with no registry attached (the zero value left by New)
// skips observation entirely - tests that build a bare Fabric never need to
// thread one through.
func (f *Fabric) WithMetrics(m *metrics.Registry) *Fabric {
	f.metrics = m
	return f
}

// observeTier records how long a tier operation took, when a metrics
// registry is attached.
func (f *Fabric) observeTier(tier, op string, start time.Time) {
	if f.metrics == nil {
		return
	}
	f.metrics.ObserveTierLatency(tier, op, start)
}

// Put canonicalizes value, envelopes it when the class's policy requires
// encryption at rest, and writes it to every tier the policy names. A
// failure on any required tier aborts the whole put; Put never reports
// partial success.
func (f *Fabric) Put(ctx context.Context, class RecordClass, key string, value any, opts PutOptions) (*StoredRef, error) {
	policy, ok := f.policies[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	fullBytes, err := canonical.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("storage: canonicalize: %w", err)
	}

	tierBytes := fullBytes
	meta := EncryptionMeta{}
	if policy.EncryptAtRest {
		tierBytes, meta, err = f.sealForRest(fullBytes, opts)
		if err != nil {
			return nil, err
		}
	}

	ref := &StoredRef{Class: class, Key: key, Encryption: meta, StoredAt: timeNow()}

	var assetRecord *AssetMetadataRecord
	if policy.PublicProjection {
		rec, ok := value.(*AssetMetadataRecord)
		if !ok {
			return nil, fmt.Errorf("%w: %s requires *storage.AssetMetadataRecord", ErrWrongRecordType, class)
		}
		assetRecord = rec
	}

	for _, tier := range policy.Tiers {
		start := timeNow()
		switch tier {
		case TierKV:
			if err := f.kv.Put(ctx, key, tierBytes); err != nil {
				return nil, tierFailure("kv", err)
			}
			f.observeTier("kv", "put", start)
		case TierObject:
			metadata := map[string]string{}
			if meta.Encrypted {
				metadata["encryption_algorithm"] = meta.Algorithm
				metadata["encryption_version"] = meta.Version
				metadata["encryption_source"] = string(meta.Source)
				metadata["encryption_owner"] = meta.Owner
			}
			if opts.ContentType != "" {
				metadata["contentType"] = opts.ContentType
			}
			if err := f.object.Put(ctx, key, tierBytes, opts.ContentType, metadata); err != nil {
				return nil, tierFailure("object", err)
			}
			f.observeTier("object", "put", start)
		case TierContent:
			payload := tierBytes
			if assetRecord != nil {
				projected, err := canonical.Marshal(PublicProjection(assetRecord))
				if err != nil {
					return nil, fmt.Errorf("storage: canonicalize projection: %w", err)
				}
				payload = projected
			}
			digest, err := f.content.Put(ctx, payload)
			if err != nil {
				return nil, tierFailure("content", err)
			}
			ref.ContentDigest = digest
			f.observeTier("content", "put", start)
		}
	}

	return ref, nil
}

// sealForRest produces the bytes that will be written to every tier for a
// policy that requires encryption at rest, and the EncryptionMeta
// describing how it was protected.
func (f *Fabric) sealForRest(fullBytes []byte, opts PutOptions) ([]byte, EncryptionMeta, error) {
	if opts.PreSealed != nil {
		sealedBytes, err := canonical.Marshal(opts.PreSealed)
		if err != nil {
			return nil, EncryptionMeta{}, fmt.Errorf("storage: canonicalize pre-sealed envelope: %w", err)
		}
		return sealedBytes, EncryptionMeta{
			Encrypted: true,
			Algorithm: opts.PreSealed.Algorithm,
			Version:   opts.PreSealed.Version,
			Source:    opts.EncryptionSource,
			Owner:     opts.EncryptionOwner,
		}, nil
	}

	if opts.EncryptionRecipient == nil {
		return nil, EncryptionMeta{}, ErrEncryptionRequired
	}

	env, err := envelope.Seal(opts.EncryptionRecipient, opts.AAD, fullBytes)
	if err != nil {
		return nil, EncryptionMeta{}, fmt.Errorf("storage: seal: %w", err)
	}
	sealedBytes, err := canonical.Marshal(env)
	if err != nil {
		return nil, EncryptionMeta{}, fmt.Errorf("storage: canonicalize envelope: %w", err)
	}
	return sealedBytes, EncryptionMeta{
		Encrypted: true,
		Algorithm: env.Algorithm,
		Version:   env.Version,
		Source:    opts.EncryptionSource,
		Owner:     opts.EncryptionOwner,
	}, nil
}

// Get reads a record back, trying tiers in the order the policy declares
// them and returning the first hit. If the class is encrypted at rest, the
// caller must supply a decryption key; Get opens the envelope before
// returning.
func (f *Fabric) Get(ctx context.Context, class RecordClass, key string, opts GetOptions) ([]byte, error) {
	policy, ok := f.policies[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}

	var tierBytes []byte
	found := false
	for _, tier := range policy.Tiers {
		var (
			b   []byte
			err error
		)
		start := timeNow()
		var tierName string
		switch tier {
		case TierKV:
			tierName = "kv"
			b, err = f.kv.Get(ctx, key)
		case TierObject:
			tierName = "object"
			b, _, err = f.object.Get(ctx, key)
		default:
			continue // content tier is addressed by digest, not by key
		}
		f.observeTier(tierName, "get", start)
		if err == nil && b != nil {
			tierBytes, found = b, true
			break
		}
	}
	if !found {
		return nil, ErrNotFound
	}

	if !policy.EncryptAtRest {
		return tierBytes, nil
	}

	var env envelope.Envelope
	if err := canonical.Unmarshal(tierBytes, &env); err != nil {
		return nil, fmt.Errorf("storage: decode envelope: %w", err)
	}
	if opts.DecryptionKey == nil {
		return nil, ErrDecryptionKeyRequired
	}
	return envelope.Open(opts.DecryptionKey, opts.AAD, &env)
}

// Delete removes a record from the KV and object tiers its class's policy
// names. The content-addressed tier is immutable by construction and is
// never asked to delete.
func (f *Fabric) Delete(ctx context.Context, class RecordClass, key string) error {
	policy, ok := f.policies[class]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	for _, tier := range policy.Tiers {
		switch tier {
		case TierKV:
			if err := f.kv.Delete(ctx, key); err != nil {
				return tierFailure("kv", err)
			}
		case TierObject:
			if err := f.object.Delete(ctx, key); err != nil {
				return tierFailure("object", err)
			}
		}
	}
	return nil
}

// tierFailure wraps a tier error, surfacing deadline expiry as ErrTimeout
// so callers can tell a slow backend from a rejecting one.
func tierFailure(tier string, err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %s: %v", ErrTimeout, tier, err)
	}
	return fmt.Errorf("%w: %s: %v", ErrTierWriteFailed, tier, err)
}

// HasTier reports whether a backend is configured for tier, so callers
// with an optional feature (like the pending-transaction mirror) can skip
// it on deployments that never wired the tier in.
func (f *Fabric) HasTier(tier Tier) bool {
	switch tier {
	case TierKV:
		return f.kv != nil
	case TierObject:
		return f.object != nil
	case TierContent:
		return f.content != nil
	}
	return false
}

// VerifyEncryption reports how a stored record is protected at rest
// without decrypting it, by reading the object tier's side-car metadata.
func (f *Fabric) VerifyEncryption(ctx context.Context, class RecordClass, key string) (*EncryptionMeta, error) {
	policy, ok := f.policies[class]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownClass, class)
	}
	if !policy.EncryptAtRest {
		return &EncryptionMeta{Encrypted: false}, nil
	}

	_, metadata, err := f.object.Get(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("storage: verify encryption: %w", err)
	}
	return &EncryptionMeta{
		Encrypted: true,
		Algorithm: metadata["encryption_algorithm"],
		Version:   metadata["encryption_version"],
		Source:    EncryptionSource(metadata["encryption_source"]),
		Owner:     metadata["encryption_owner"],
	}, nil
}

// timeNow is a seam so tests can freeze StoredAt by wrapping a Fabric that
// doesn't care about the exact value.
var timeNow = time.Now

// healthChecker is implemented by tier backends that can report their own
// reachability (kvtier.Store, localkv.Store, objecttier.Store,
// contentaddr.Store). A tier that doesn't implement it is skipped rather
// than failing the aggregate check.
type healthChecker interface {
	Health(ctx context.Context) error
}

// Health probes every configured tier in turn and reports the first
// failure it finds, or Healthy=true if all of them answer. It never
// itself returns an error; a failed probe is recorded on the returned
// HealthStatus instead.
func (f *Fabric) Health(ctx context.Context) (*HealthStatus, error) {
	status := &HealthStatus{CheckedAt: timeNow()}

	tiers := []struct {
		name string
		tier any
	}{
		{"kv", f.kv},
		{"object", f.object},
		{"content", f.content},
	}
	for _, t := range tiers {
		hc, ok := t.tier.(healthChecker)
		if !ok {
			continue
		}
		if err := hc.Health(ctx); err != nil {
			status.Error = fmt.Sprintf("%s: %v", t.name, err)
			return status, nil
		}
	}

	status.Healthy = true
	return status, nil
}
