// Copyright 2025 Veritas Documents
//
// Storage policy file - a YAML declaration of the StoragePolicy table
// (tiers and at-rest encryption per record class), so an operator can
// retune tier assignment without a rebuild. Supports ${VAR_NAME} and
// ${VAR_NAME:-default} substitution before parsing, and falls back to the
// built-in table when no file is supplied.
package config

import (
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"

	"github.com/veritas/vdc/pkg/storage"
)

// policyFile is the YAML document shape. Record class and tier names are
// strings on the wire; they are validated against storage's own constants
// when converted to a StoragePolicy table.
type policyFile struct {
	Policies map[string]struct {
		Tiers            []string `yaml:"tiers"`
		EncryptAtRest    bool     `yaml:"encryptAtRest"`
		PublicProjection bool     `yaml:"publicProjection"`
	} `yaml:"policies"`
}

var envVarPattern = regexp.MustCompile(`\$\{([^}:]+)(:-([^}]*))?\}`)

// substituteEnvVars replaces ${VAR_NAME} and ${VAR_NAME:-default} with
// their environment values before the YAML is parsed.
func substituteEnvVars(content string) string {
	return envVarPattern.ReplaceAllStringFunc(content, func(match string) string {
		groups := envVarPattern.FindStringSubmatch(match)
		if len(groups) < 2 {
			return match
		}
		varName := groups[1]
		defaultValue := ""
		if len(groups) >= 4 {
			defaultValue = groups[3]
		}
		if value := os.Getenv(varName); value != "" {
			return value
		}
		return defaultValue
	})
}

// LoadStoragePolicies reads a storage-policy YAML file at path, substituting
// ${VAR}-style environment references before parsing. An empty path is not
// an error: it returns storage.DefaultPolicies().
func LoadStoragePolicies(path string) (map[storage.RecordClass]storage.StoragePolicy, error) {
	if path == "" {
		return storage.DefaultPolicies(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read storage policy file %s: %w", path, err)
	}

	expanded := substituteEnvVars(string(data))

	var file policyFile
	if err := yaml.Unmarshal([]byte(expanded), &file); err != nil {
		return nil, fmt.Errorf("config: parse storage policy file %s: %w", path, err)
	}

	policies := make(map[storage.RecordClass]storage.StoragePolicy, len(file.Policies))
	for class, p := range file.Policies {
		tiers := make([]storage.Tier, 0, len(p.Tiers))
		for _, t := range p.Tiers {
			tier := storage.Tier(t)
			switch tier {
			case storage.TierKV, storage.TierObject, storage.TierContent:
				tiers = append(tiers, tier)
			default:
				return nil, fmt.Errorf("config: storage policy file %s: class %s names unknown tier %q", path, class, t)
			}
		}
		policies[storage.RecordClass(class)] = storage.StoragePolicy{
			Tiers:            tiers,
			EncryptAtRest:    p.EncryptAtRest,
			PublicProjection: p.PublicProjection,
		}
	}
	return policies, nil
}
