// Copyright 2025 Veritas Documents
//
// Canonical Encoding - deterministic JSON used wherever bytes are signed or
// hashed. Field order, whitespace, and integer representation are fixed so
// that two independent implementations produce byte-identical output.
//
// Numbers decode through json.Number instead of float64 so integers above
// 2^53 survive the round trip without precision loss.
package canonical

import (
	"bytes"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Bytes is a byte string that always marshals as unpadded base64url, per the
// wire format's "byte strings as base64url without padding" rule.
type Bytes []byte

func (b Bytes) MarshalJSON() ([]byte, error) {
	return json.Marshal(base64.RawURLEncoding.EncodeToString(b))
}

func (b *Bytes) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*b = nil
		return nil
	}
	decoded, err := base64.RawURLEncoding.DecodeString(s)
	if err != nil {
		return fmt.Errorf("canonical: invalid base64url: %w", err)
	}
	*b = decoded
	return nil
}

// Digest returns hex encoding convenience omitted deliberately: callers that
// need hex should use encoding/hex directly; the wire format only ever uses
// base64url for byte fields.

// Marshal encodes value as canonical bytes: UTF-8 JSON, lexicographically
// sorted object keys, no insignificant whitespace, integers as decimal
// without leading zeros. Two calls on equal values always return identical
// bytes, across processes and releases.
func Marshal(value any) ([]byte, error) {
	raw, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("canonical: marshal: %w", err)
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var generic any
	if err := dec.Decode(&generic); err != nil {
		return nil, fmt.Errorf("canonical: decode: %w", err)
	}

	// encoding/json sorts map[string]any keys lexicographically by
	// construction; json.Number marshals back as the literal digit
	// sequence it was decoded from, so integers never gain a decimal
	// point or lose precision.
	out, err := json.Marshal(generic)
	if err != nil {
		return nil, fmt.Errorf("canonical: re-marshal: %w", err)
	}
	return out, nil
}

// Unmarshal decodes canonical bytes into v, exactly like json.Unmarshal.
// It exists alongside Marshal so callers never need to import
// encoding/json directly just to round-trip a canonical value.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("canonical: unmarshal: %w", err)
	}
	return nil
}

// ContentHash is the collision-resistant digest used for block hashes and
// content-addressed object identifiers.
func ContentHash(data []byte) [32]byte {
	return sha256.Sum256(data)
}

// MarshalAndHash canonicalizes value and returns its content hash in one step.
func MarshalAndHash(value any) ([32]byte, error) {
	b, err := Marshal(value)
	if err != nil {
		return [32]byte{}, err
	}
	return ContentHash(b), nil
}
