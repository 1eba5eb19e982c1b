package apikeystore_test

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"

	"github.com/arca-vault/arca/apikeystore"
	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
)

func TestKeystore_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := apikeystore.KeysPath(filepath.Join(dir, "vault.vlt"))

	key, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatal(err)
	}

	entries := []vaultmodel.ApiKeyEntry{
		{
			ID:        uuid.New(),
			Name:      "ci-bot",
			KeyHash:   "deadbeef",
			CreatedAt: time.Now().UTC(),
			IsActive:  true,
			Permissions: vaultmodel.ApiKeyPermissions{
				Level:           vaultmodel.Restricted,
				AllowedPrefixes: []string{"ci-"},
				CanList:         true,
			},
		},
	}

	if err := apikeystore.Save(path, key, entries); err != nil {
		t.Fatal(err)
	}

	got := apikeystore.Load(path, key)
	if diff := cmp.Diff(entries, got); diff != "" {
		t.Errorf("round-trip mismatch (-want +got):\n%s", diff)
	}
}

func TestKeystore_MissingFileYieldsEmptySet(t *testing.T) {
	dir := t.TempDir()
	path := apikeystore.KeysPath(filepath.Join(dir, "vault.vlt"))

	key, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)

	got := apikeystore.Load(path, key)
	if len(got) != 0 {
		t.Errorf("expected empty set for missing file, got %v", got)
	}
}

func TestKeystore_CorruptFileYieldsEmptySet(t *testing.T) {
	dir := t.TempDir()
	path := apikeystore.KeysPath(filepath.Join(dir, "vault.vlt"))

	key, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)

	if err := apikeystore.Save(path, key, []vaultmodel.ApiKeyEntry{{Name: "x"}}); err != nil {
		t.Fatal(err)
	}

	wrongKey, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)

	got := apikeystore.Load(path, wrongKey)
	if len(got) != 0 {
		t.Errorf("expected empty set for undecryptable file, got %v", got)
	}
}
