// Package backup implements the self-contained encrypted export/import
// archive format (spec §4.4). Unlike the vault container, an archive is
// password-protected independently of the vault's own master password,
// so it can be moved to another host and re-imported there.
package backup

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"strings"
	"time"

	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaulterrors"
)

// Magic is the 10-byte ASCII identifier at the start of every archive.
var Magic = [10]byte{'A', 'R', 'C', 'A', 'E', 'X', 'P', 'O', 'R', 'T'}

const (
	// VersionLegacyPBKDF2 is the read-only legacy format using
	// PBKDF2-HMAC-SHA256 key derivation.
	VersionLegacyPBKDF2 uint32 = 1

	// VersionArgon2id is the current format. New exports MUST use this
	// version.
	VersionArgon2id uint32 = 2
)

const headerLen = 10 + 4 + 16 + 12 + 16 + 4 // magic+version+salt+nonce+tag+cipherLen

// ExportedSecret is one secret's public fields, stripped of nothing
// since secret values are, by design, exactly what an export is for.
type ExportedSecret struct {
	Key         string    `json:"key"`
	Value       string    `json:"value"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ExportedApiKey is an API key's shareable metadata. The hash and ID are
// deliberately omitted: a restored key is a permission template, not a
// credential.
type ExportedApiKey struct {
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
	AccessLevel     string    `json:"access_level"`
	AllowedSecrets  []string  `json:"allowed_secrets,omitempty"`
	AllowedPrefixes []string  `json:"allowed_prefixes,omitempty"`
	CanList         bool      `json:"can_list"`
}

// Payload is the plaintext JSON document sealed inside an archive.
type Payload struct {
	Version      int              `json:"version"`
	ExportedAt   time.Time        `json:"exported_at"`
	ExportedFrom string           `json:"exported_from"`
	Secrets      []ExportedSecret `json:"secrets"`
	ApiKeys      []ExportedApiKey `json:"api_keys"`
}

// BuildPayload assembles an export payload from live vault state.
func BuildPayload(secrets []vaultmodel.SecretEntry, keys []vaultmodel.ApiKeyEntry, exportedFrom string, now time.Time) Payload {
	exportedSecrets := make([]ExportedSecret, 0, len(secrets))
	for _, s := range secrets {
		exportedSecrets = append(exportedSecrets, ExportedSecret{
			Key:         s.Key,
			Value:       s.Value,
			Description: s.Description,
			CreatedAt:   s.CreatedAt,
		})
	}

	exportedKeys := make([]ExportedApiKey, 0, len(keys))
	for _, k := range keys {
		exportedKeys = append(exportedKeys, ExportedApiKey{
			Name:            k.Name,
			Description:     k.Description,
			CreatedAt:       k.CreatedAt,
			AccessLevel:     k.Permissions.Level.String(),
			AllowedSecrets:  k.Permissions.AllowedSecrets,
			AllowedPrefixes: k.Permissions.AllowedPrefixes,
			CanList:         k.Permissions.CanList,
		})
	}

	return Payload{
		Version:      int(VersionArgon2id),
		ExportedAt:   now,
		ExportedFrom: exportedFrom,
		Secrets:      exportedSecrets,
		ApiKeys:      exportedKeys,
	}
}

// Export seals payload into a v2 archive written to path. A fresh salt
// is generated here and recorded in the header, and the key is derived
// from password and that salt via Argon2id.
func Export(path string, password []byte, payload Payload) error {
	salt, err := vaultcrypto.RandBytes(vaultcrypto.SaltSize)
	if err != nil {
		return err
	}

	key := vaultcrypto.NewArgon2idKDF().Derive(password, salt)

	plaintext, err := json.Marshal(payload)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	compressed, err := gzipCompress(plaintext)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return err
	}

	sealed, err := aead.SealBlob(compressed)
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	// sealed is nonce∥tag∥cipher; split it back out for the archive's
	// own header layout, which keeps cipher_len explicit for forward
	// readability independent of the AEAD's internal framing.
	nonce := sealed[:vaultcrypto.NonceSize]
	tag := sealed[vaultcrypto.NonceSize : vaultcrypto.NonceSize+vaultcrypto.TagSize]
	cipher := sealed[vaultcrypto.NonceSize+vaultcrypto.TagSize:]

	buf := make([]byte, 0, headerLen+len(cipher))
	buf = append(buf, Magic[:]...)

	var versionBuf [4]byte
	binary.LittleEndian.PutUint32(versionBuf[:], VersionArgon2id)
	buf = append(buf, versionBuf[:]...)

	buf = append(buf, salt...)
	buf = append(buf, nonce...)
	buf = append(buf, tag...)

	var cipherLenBuf [4]byte
	binary.LittleEndian.PutUint32(cipherLenBuf[:], uint32(len(cipher)))
	buf = append(buf, cipherLenBuf[:]...)
	buf = append(buf, cipher...)

	if err := os.WriteFile(path, buf, 0o600); err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	return nil
}

// Import opens and decrypts the archive at path with password, deriving
// the key with Argon2id for v2 archives or PBKDF2-HMAC-SHA256 for
// read-only v1 archives.
func Import(path string, password []byte) (Payload, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Payload{}, vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if len(raw) < headerLen || !bytes.Equal(raw[0:10], Magic[:]) {
		return Payload{}, vaulterrors.Newf(vaulterrors.KindNotAVault, "backup: bad magic")
	}

	version := binary.LittleEndian.Uint32(raw[10:14])

	salt := raw[14:30]
	nonce := raw[30:42]
	tag := raw[42:58]
	cipherLen := int32(binary.LittleEndian.Uint32(raw[58:62]))

	if cipherLen < 0 || headerLen+int(cipherLen) != len(raw) {
		return Payload{}, vaulterrors.Newf(vaulterrors.KindCorrupt, "backup: cipher length mismatch")
	}

	cipher := raw[headerLen:]

	var key []byte

	switch version {
	case VersionArgon2id:
		key = vaultcrypto.NewArgon2idKDF().Derive(password, salt)
	case VersionLegacyPBKDF2:
		key = vaultcrypto.DeriveLegacyPBKDF2Key(password, salt)
	default:
		return Payload{}, vaulterrors.Newf(vaulterrors.KindUnsupportedVersion, "backup: unsupported version %d", version)
	}

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return Payload{}, err
	}

	sealed := make([]byte, 0, len(nonce)+len(tag)+len(cipher))
	sealed = append(sealed, nonce...)
	sealed = append(sealed, tag...)
	sealed = append(sealed, cipher...)

	compressed, err := aead.OpenBlob(sealed)
	if err != nil {
		return Payload{}, vaulterrors.New(vaulterrors.KindInvalidPassword, err)
	}

	plaintext, err := gzipDecompress(compressed)
	if err != nil {
		return Payload{}, vaulterrors.New(vaulterrors.KindCorrupt, err)
	}

	var payload Payload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return Payload{}, vaulterrors.New(vaulterrors.KindCorrupt, err)
	}

	return payload, nil
}

func gzipCompress(data []byte) ([]byte, error) {
	var buf bytes.Buffer

	w := gzip.NewWriter(&buf)
	if _, err := w.Write(data); err != nil {
		return nil, err
	}

	if err := w.Close(); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}

func gzipDecompress(data []byte) ([]byte, error) {
	r, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	defer r.Close()

	return io.ReadAll(r)
}

// ImportResult summarizes how an import payload was merged into a live
// vault's secrets and API keys.
type ImportResult struct {
	SecretsImported    int
	SecretsOverwritten int
	SecretsSkipped     int
	KeysImported       int
	KeysSkipped        int
}

// MergeSecrets applies payload secrets onto the existing slice, honoring
// overwriteExisting, and returns the merged slice plus counters.
func MergeSecrets(existing []vaultmodel.SecretEntry, imported []ExportedSecret, overwriteExisting bool, newID func() string) ([]vaultmodel.SecretEntry, ImportResult) {
	var result ImportResult

	index := make(map[string]int, len(existing))
	for i, s := range existing {
		index[vaultmodel.NormalizedKey(s.Key)] = i
	}

	merged := append([]vaultmodel.SecretEntry(nil), existing...)

	for _, imp := range imported {
		norm := vaultmodel.NormalizedKey(imp.Key)

		if i, ok := index[norm]; ok {
			if !overwriteExisting {
				result.SecretsSkipped++
				continue
			}

			merged[i].Value = imp.Value
			merged[i].Description = imp.Description
			result.SecretsOverwritten++

			continue
		}

		merged = append(merged, vaultmodel.SecretEntry{
			Key:         imp.Key,
			Value:       imp.Value,
			Description: imp.Description,
			CreatedAt:   imp.CreatedAt,
		})
		index[norm] = len(merged) - 1
		result.SecretsImported++
	}

	return merged, result
}

// MergeApiKeys appends payload API keys as inactive, hashless stubs,
// skipping any whose name collides (case-insensitively) with an
// existing key.
func MergeApiKeys(existing []vaultmodel.ApiKeyEntry, imported []ExportedApiKey) ([]vaultmodel.ApiKeyEntry, ImportResult) {
	var result ImportResult

	names := make(map[string]struct{}, len(existing))
	for _, k := range existing {
		names[strings.ToLower(k.Name)] = struct{}{}
	}

	merged := append([]vaultmodel.ApiKeyEntry(nil), existing...)

	for _, imp := range imported {
		lower := strings.ToLower(imp.Name)
		if _, ok := names[lower]; ok {
			result.KeysSkipped++
			continue
		}

		level, ok := vaultmodel.ParseAccessLevel(imp.AccessLevel)
		if !ok {
			level = vaultmodel.Restricted
		}

		merged = append(merged, vaultmodel.ApiKeyEntry{
			Name:        imp.Name,
			Description: imp.Description,
			CreatedAt:   imp.CreatedAt,
			IsActive:    false,
			KeyHash:     "",
			Permissions: vaultmodel.ApiKeyPermissions{
				Level:           level,
				AllowedSecrets:  imp.AllowedSecrets,
				AllowedPrefixes: imp.AllowedPrefixes,
				CanList:         imp.CanList,
			},
		})
		names[lower] = struct{}{}
		result.KeysImported++
	}

	return merged, result
}
