package vaultcrypto_test

import (
	"bytes"
	"testing"
	"time"

	"github.com/arca-vault/arca/vaultcrypto"
)

func TestAESGCM_SealOpenRoundTrip(t *testing.T) {
	key, err := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	if err != nil {
		t.Fatal(err)
	}

	g, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		t.Fatal(err)
	}

	plaintext := []byte(`["secret payload"]`)

	blob, err := g.SealBlob(plaintext)
	if err != nil {
		t.Fatal(err)
	}

	if len(blob) != vaultcrypto.NonceSize+vaultcrypto.TagSize+len(plaintext) {
		t.Fatalf("unexpected blob length: got %d", len(blob))
	}

	got, err := g.OpenBlob(blob)
	if err != nil {
		t.Fatal(err)
	}

	if !bytes.Equal(got, plaintext) {
		t.Errorf("got = %q, want %q", got, plaintext)
	}
}

func TestAESGCM_WrongKeyFailsAuthentication(t *testing.T) {
	key1, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	key2, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)

	g1, _ := vaultcrypto.NewAESGCM(key1)
	g2, _ := vaultcrypto.NewAESGCM(key2)

	blob, err := g1.SealBlob([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	if _, err := g2.OpenBlob(blob); err != vaultcrypto.ErrAuthentication {
		t.Errorf("got %v, want ErrAuthentication", err)
	}
}

func TestAESGCM_TamperedBlobFailsAuthentication(t *testing.T) {
	key, _ := vaultcrypto.RandBytes(vaultcrypto.KeySize)
	g, _ := vaultcrypto.NewAESGCM(key)

	blob, err := g.SealBlob([]byte("hello"))
	if err != nil {
		t.Fatal(err)
	}

	blob[len(blob)-1] ^= 0xFF

	if _, err := g.OpenBlob(blob); err != vaultcrypto.ErrAuthentication {
		t.Errorf("got %v, want ErrAuthentication", err)
	}
}

func TestNewAESGCM_InvalidKeyLength(t *testing.T) {
	if _, err := vaultcrypto.NewAESGCM([]byte("too short")); err != vaultcrypto.ErrInvalidKeyLength {
		t.Errorf("got %v, want ErrInvalidKeyLength", err)
	}
}

func TestArgon2idKDF_Deterministic(t *testing.T) {
	salt, _ := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	kdf := vaultcrypto.NewArgon2idKDF()

	k1 := kdf.Derive([]byte("correct horse battery staple"), salt)
	k2 := kdf.Derive([]byte("correct horse battery staple"), salt)

	if !bytes.Equal(k1, k2) {
		t.Error("Derive is not deterministic for the same password and salt")
	}

	k3 := kdf.Derive([]byte("wrong"), salt)
	if bytes.Equal(k1, k3) {
		t.Error("different passwords produced the same derived key")
	}

	if len(k1) != vaultcrypto.KeySize {
		t.Errorf("derived key length = %d, want %d", len(k1), vaultcrypto.KeySize)
	}
}

func TestTimestampRoundTrip(t *testing.T) {
	now := time.Now().UTC()

	buf := vaultcrypto.EncodeTimestamp(now)

	got, err := vaultcrypto.DecodeTimestamp(buf)
	if err != nil {
		t.Fatal(err)
	}

	if !got.Equal(now) {
		t.Errorf("got = %v, want %v", got, now)
	}
}

func TestDecodeTimestamp_WrongLength(t *testing.T) {
	if _, err := vaultcrypto.DecodeTimestamp([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short buffer")
	}
}
