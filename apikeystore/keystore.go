// Package apikeystore implements the companion `<vault>.keys` file that
// holds the authorized API keys and their permissions (spec §4.3). It
// reuses the vault's derived key; unlike the vault container it carries
// no magic header, so a missing or corrupt file is treated as an empty
// key set rather than an error.
package apikeystore

import (
	"encoding/binary"
	"encoding/json"
	"os"

	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaulterrors"
)

// Load reads and decrypts the API-key store at path.
//
// A missing file, a truncated file, or an authentication failure all
// yield an empty slice rather than an error: opening a freshly created
// vault with no keys file must not fail, and a corrupt keys file should
// not block access to the vault itself.
func Load(path string, key []byte) []vaultmodel.ApiKeyEntry {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil
	}

	if len(raw) < 4 {
		return nil
	}

	payloadLen := int32(binary.LittleEndian.Uint32(raw[0:4]))
	if payloadLen < 0 || int(4+payloadLen) != len(raw) {
		return nil
	}

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return nil
	}

	plaintext, err := aead.OpenBlob(raw[4:])
	if err != nil {
		return nil
	}

	var entries []vaultmodel.ApiKeyEntry
	if err := json.Unmarshal(plaintext, &entries); err != nil {
		return nil
	}

	return entries
}

// Save encrypts and atomically rewrites the API-key store at path.
func Save(path string, key []byte, entries []vaultmodel.ApiKeyEntry) error {
	if entries == nil {
		entries = []vaultmodel.ApiKeyEntry{}
	}

	plaintext, err := json.Marshal(entries)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return err
	}

	payload, err := aead.SealBlob(plaintext)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	buf := make([]byte, 0, 4+len(payload))

	var lenBuf [4]byte
	binary.LittleEndian.PutUint32(lenBuf[:], uint32(len(payload)))
	buf = append(buf, lenBuf[:]...)
	buf = append(buf, payload...)

	return atomicWrite(path, buf)
}

func atomicWrite(path string, data []byte) error {
	tmp := path + ".tmp"

	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	return nil
}

// KeysPath returns the default sibling `.keys` path for a given vault path.
func KeysPath(vaultPath string) string {
	return vaultPath + ".keys"
}
