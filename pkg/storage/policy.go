// Copyright 2025 Veritas Documents
package storage

// DefaultPolicies returns the storage policy table. Tiers are listed
// fastest-first; Get tries them in this order and returns the first hit.
func DefaultPolicies() map[RecordClass]StoragePolicy {
	return map[RecordClass]StoragePolicy{
		ChainBlock: {
			Tiers:         []Tier{TierKV, TierObject, TierContent},
			EncryptAtRest: false,
		},
		PendingTransaction: {
			Tiers:         []Tier{TierObject},
			EncryptAtRest: true,
		},
		Document: {
			Tiers:         []Tier{TierObject, TierContent},
			EncryptAtRest: true,
		},
		ActivationToken: {
			Tiers:         []Tier{TierObject},
			EncryptAtRest: true,
		},
		UserMetadata: {
			Tiers:         []Tier{TierKV, TierObject},
			EncryptAtRest: true,
		},
		AssetMetadata: {
			Tiers:            []Tier{TierKV, TierObject, TierContent},
			EncryptAtRest:    false,
			PublicProjection: true,
		},
	}
}
