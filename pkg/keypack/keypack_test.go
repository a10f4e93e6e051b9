// Copyright 2025 Veritas Documents
package keypack

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	bip39 "github.com/tyler-smith/go-bip39"

	"github.com/veritas/vdc/pkg/crypto/pqc"
)

func testBundle(t *testing.T) *Bundle {
	t.Helper()

	kemPub, kemPriv, err := pqc.KEMKeygen()
	if err != nil {
		t.Fatalf("kem keygen: %v", err)
	}
	sigPub, sigPriv, err := pqc.SigKeygen()
	if err != nil {
		t.Fatalf("sig keygen: %v", err)
	}

	return &Bundle{
		Version:   Version,
		Email:     "u@x.test",
		Timestamp: 1_700_000_000_000,
		KeyType:   DefaultKeyType,
		Keys: Keys{
			KEM: KeyPair{Public: kemPub.Bytes(), Private: kemPriv.Bytes()},
			Sig: KeyPair{Public: []byte(sigPub), Private: []byte(sigPriv)},
		},
	}
}

func TestNewPassphraseIsAValidTwelveWordMnemonic(t *testing.T) {
	words, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	if len(words) != 12 {
		t.Fatalf("expected 12 words, got %d", len(words))
	}
	if !bip39.IsMnemonicValid(strings.Join(words, " ")) {
		t.Fatalf("expected a valid BIP39 mnemonic, got %q", words)
	}

	vocabulary := make(map[string]bool, 2048)
	for _, w := range bip39.GetWordList() {
		vocabulary[w] = true
	}
	for _, w := range words {
		if !vocabulary[w] {
			t.Fatalf("word %q not in the BIP39 word list", w)
		}
	}
}

func TestWrapUnwrapRoundTrip(t *testing.T) {
	passphrase, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	bundle := testBundle(t)

	file, err := Wrap(bundle, passphrase)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	if file.Format != Format {
		t.Fatalf("file format = %q, want %q", file.Format, Format)
	}
	if len(file.Encrypted.Salt) != saltSize {
		t.Fatalf("salt length = %d, want %d", len(file.Encrypted.Salt), saltSize)
	}

	got, err := Unwrap(file, passphrase)
	if err != nil {
		t.Fatalf("unwrap: %v", err)
	}
	if got.Email != bundle.Email || got.Timestamp != bundle.Timestamp || got.KeyType != bundle.KeyType {
		t.Fatalf("bundle metadata mismatch: got %+v", got)
	}
	if !bytes.Equal(got.Keys.KEM.Private, bundle.Keys.KEM.Private) {
		t.Fatalf("kem private key did not round trip")
	}
	if !bytes.Equal(got.Keys.Sig.Private, bundle.Keys.Sig.Private) {
		t.Fatalf("sig private key did not round trip")
	}
}

func TestFileSerializesToTheDocumentedContainer(t *testing.T) {
	passphrase, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	file, err := Wrap(testBundle(t), passphrase)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	raw, err := json.Marshal(file)
	if err != nil {
		t.Fatalf("marshal file: %v", err)
	}
	s := string(raw)
	if !strings.Contains(s, `"format":"veritas-keypack-v1"`) {
		t.Fatalf("expected format field in container, got %s", s)
	}
	for _, field := range []string{`"salt":`, `"iv":`, `"ct":`} {
		if !strings.Contains(s, field) {
			t.Fatalf("expected %s in container, got %s", field, s)
		}
	}
	if strings.Contains(s, "=") {
		t.Fatalf("expected unpadded base64url byte fields, got %s", s)
	}

	var decoded File
	if err := json.Unmarshal(raw, &decoded); err != nil {
		t.Fatalf("unmarshal file: %v", err)
	}
	if _, err := Unwrap(&decoded, passphrase); err != nil {
		t.Fatalf("unwrap after file round trip: %v", err)
	}
}

func TestUnwrapWrongPassphraseAndTamperAreIndistinguishable(t *testing.T) {
	passphrase, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	wrong, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}

	file, err := Wrap(testBundle(t), passphrase)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}

	_, wrongErr := Unwrap(file, wrong)
	if !errors.Is(wrongErr, ErrWrongPassphraseOrCorrupt) {
		t.Fatalf("expected ErrWrongPassphraseOrCorrupt for wrong passphrase, got %v", wrongErr)
	}

	tampered := *file
	tampered.Encrypted.CT = append([]byte(nil), file.Encrypted.CT...)
	tampered.Encrypted.CT[0] ^= 0x01
	_, tamperErr := Unwrap(&tampered, passphrase)
	if !errors.Is(tamperErr, ErrWrongPassphraseOrCorrupt) {
		t.Fatalf("expected ErrWrongPassphraseOrCorrupt for tampered ciphertext, got %v", tamperErr)
	}

	if wrongErr.Error() != tamperErr.Error() {
		t.Fatalf("wrong-passphrase and tamper errors must be indistinguishable: %q vs %q", wrongErr, tamperErr)
	}
}

func TestUnwrapRejectsUnknownFormat(t *testing.T) {
	passphrase, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	file, err := Wrap(testBundle(t), passphrase)
	if err != nil {
		t.Fatalf("wrap: %v", err)
	}
	file.Format = "veritas-keypack-v2"
	if _, err := Unwrap(file, passphrase); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestWrapRejectsBundleWithWrongVersion(t *testing.T) {
	passphrase, err := NewPassphrase()
	if err != nil {
		t.Fatalf("new passphrase: %v", err)
	}
	bundle := testBundle(t)
	bundle.Version = "0.9"
	if _, err := Wrap(bundle, passphrase); !errors.Is(err, ErrUnsupportedVersion) {
		t.Fatalf("expected ErrUnsupportedVersion, got %v", err)
	}
}
