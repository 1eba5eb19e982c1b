package vaultcontainer_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/arca-vault/arca/vaultcontainer"
	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaulterrors"
)

func deriveKey(t *testing.T, password string, salt []byte) []byte {
	t.Helper()

	return vaultcrypto.NewArgon2idKDF().Derive([]byte(password), salt)
}

func newHeader(t *testing.T) (vaultcontainer.Header, []byte) {
	t.Helper()

	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		t.Fatal(err)
	}

	return vaultcontainer.Header{
		Version:   vaultcontainer.Version,
		Salt:      salt,
		CreatedAt: time.Now().UTC(),
	}, salt
}

func TestContainer_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.vlt")

	header, salt := newHeader(t)
	key := deriveKey(t, "correct horse battery staple", salt)

	secrets := []vaultmodel.SecretEntry{
		{ID: uuid.New(), Key: "db", Value: "s3cret", Description: "prod DB", CreatedAt: time.Now().UTC()},
		{ID: uuid.New(), Key: "api-token", Value: "", CreatedAt: time.Now().UTC()},
	}

	if err := vaultcontainer.Create(path, key, header); err != nil {
		t.Fatal(err)
	}

	if err := vaultcontainer.Save(path, key, header, secrets); err != nil {
		t.Fatal(err)
	}

	_, got, err := vaultcontainer.Open(path, key)
	if err != nil {
		t.Fatal(err)
	}

	if diff := cmp.Diff(secrets, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestContainer_WrongPassword(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.vlt")

	header, salt := newHeader(t)
	key := deriveKey(t, "correct horse battery staple", salt)

	if err := vaultcontainer.Create(path, key, header); err != nil {
		t.Fatal(err)
	}

	wrongKey := deriveKey(t, "wrong", salt)

	_, _, err := vaultcontainer.Open(path, wrongKey)
	if !vaulterrors.Is(err, vaulterrors.KindInvalidPassword) {
		t.Errorf("got %v, want KindInvalidPassword", err)
	}
}

func TestContainer_MagicEnforcement(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.vlt")

	header, salt := newHeader(t)
	key := deriveKey(t, "pw", salt)

	if err := vaultcontainer.Create(path, key, header); err != nil {
		t.Fatal(err)
	}

	for i := range 4 {
		raw, err := os.ReadFile(path)
		if err != nil {
			t.Fatal(err)
		}

		mutated := append([]byte(nil), raw...)
		mutated[i] ^= 0xFF

		if err := os.WriteFile(path, mutated, 0o600); err != nil {
			t.Fatal(err)
		}

		if _, _, err := vaultcontainer.Open(path, key); !vaulterrors.Is(err, vaulterrors.KindNotAVault) {
			t.Errorf("byte %d: got %v, want KindNotAVault", i, err)
		}

		if err := os.WriteFile(path, raw, 0o600); err != nil {
			t.Fatal(err)
		}
	}
}

func TestContainer_AlreadyExists(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vault.vlt")

	header, salt := newHeader(t)
	key := deriveKey(t, "pw", salt)

	if err := vaultcontainer.Create(path, key, header); err != nil {
		t.Fatal(err)
	}

	if err := vaultcontainer.Create(path, key, header); err == nil {
		t.Error("expected error creating over an existing vault file")
	}
}

