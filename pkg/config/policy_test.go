// Copyright 2025 Veritas Documents
//
// Storage Policy File Tests

package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/veritas/vdc/pkg/storage"
)

func TestLoadStoragePoliciesEmptyPathReturnsDefault(t *testing.T) {
	policies, err := LoadStoragePolicies("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	defaults := storage.DefaultPolicies()
	if len(policies) != len(defaults) {
		t.Fatalf("expected default policy table, got %d classes", len(policies))
	}
}

func TestLoadStoragePoliciesParsesYAMLWithEnvSubstitution(t *testing.T) {
	t.Setenv("VDC_DOC_ENCRYPT", "true")

	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
policies:
  Document:
    tiers: [object, content]
    encryptAtRest: ${VDC_DOC_ENCRYPT}
  AssetMetadata:
    tiers: [kv, object, content]
    encryptAtRest: false
    publicProjection: ${VDC_UNSET_VAR:-true}
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	policies, err := LoadStoragePolicies(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	doc, ok := policies[storage.Document]
	if !ok {
		t.Fatalf("expected Document policy to be present")
	}
	if !doc.EncryptAtRest {
		t.Fatalf("expected Document.EncryptAtRest to be substituted to true")
	}
	if len(doc.Tiers) != 2 || doc.Tiers[0] != storage.TierObject || doc.Tiers[1] != storage.TierContent {
		t.Fatalf("unexpected tiers: %v", doc.Tiers)
	}

	asset, ok := policies[storage.AssetMetadata]
	if !ok {
		t.Fatalf("expected AssetMetadata policy to be present")
	}
	if !asset.PublicProjection {
		t.Fatalf("expected AssetMetadata.PublicProjection to fall back to the ${VAR:-default} value")
	}
}

func TestLoadStoragePoliciesRejectsUnknownTier(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "policy.yaml")
	content := `
policies:
  Document:
    tiers: [object, blockchain]
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	if _, err := LoadStoragePolicies(path); err == nil {
		t.Fatalf("expected error on unknown tier name")
	}
}
