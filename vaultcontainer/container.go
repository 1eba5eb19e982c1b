// Package vaultcontainer implements the bit-exact binary container format
// used to persist the encrypted vault to disk (spec §4.2): a fixed
// header followed by an AES-256-GCM sealed JSON payload.
//
// The format mirrors the layout the teacher's vaultcontainer package
// gives to its SQL-backed CipherData row, but here the header and
// payload are serialized directly to bytes rather than to a database.
package vaultcontainer

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/arca-vault/arca/vaultcrypto"
	"github.com/arca-vault/arca/vaultmodel"
	"github.com/arca-vault/arca/vaulterrors"
)

// Magic is the 4-byte ASCII identifier at the start of every vault file.
var Magic = [4]byte{'A', 'R', 'C', 'A'}

// Version is the container format version written by this build.
const Version uint32 = 1

// MaxSupportedVersion is the highest container version this build can read.
const MaxSupportedVersion uint32 = 1

// headerLen is the fixed-size portion of the file preceding the payload:
// magic(4) + version(4) + salt(16) + created_at(8) + payload_len(4).
const headerLen = 4 + 4 + 16 + 8 + 4

// Header holds the fixed-size metadata preceding the encrypted payload.
type Header struct {
	Version   uint32
	Salt      []byte // 16 bytes
	CreatedAt time.Time
}

// ReadHeader reads and validates only the fixed-size header of the vault
// file at path, without touching or decrypting the payload. This lets the
// controller derive the KDF key from the salt before committing to a full
// decrypt.
func ReadHeader(path string) (Header, error) {
	f, err := os.Open(path)
	if err != nil {
		return Header{}, vaulterrors.New(vaulterrors.KindIoError, err)
	}
	defer f.Close()

	buf := make([]byte, headerLen)
	if _, err := readFull(f, buf); err != nil {
		return Header{}, vaulterrors.New(vaulterrors.KindNotAVault, err)
	}

	return parseHeader(buf)
}

func parseHeader(buf []byte) (Header, error) {
	if len(buf) < headerLen {
		return Header{}, vaulterrors.Newf(vaulterrors.KindNotAVault, "container: header too short: %d bytes", len(buf))
	}

	if !bytes.Equal(buf[0:4], Magic[:]) {
		return Header{}, vaulterrors.Newf(vaulterrors.KindNotAVault, "container: bad magic %q", buf[0:4])
	}

	version := binary.LittleEndian.Uint32(buf[4:8])
	if version > MaxSupportedVersion {
		return Header{}, vaulterrors.Newf(vaulterrors.KindUnsupportedVersion, "container: version %d exceeds max supported %d", version, MaxSupportedVersion)
	}

	salt := append([]byte(nil), buf[8:24]...)

	createdAt, err := vaultcrypto.DecodeTimestamp(buf[24:32])
	if err != nil {
		return Header{}, err
	}

	return Header{Version: version, Salt: salt, CreatedAt: createdAt}, nil
}

// Open reads the full container at path, decrypts its payload with key
// (already derived from the caller's password and the header's salt),
// and parses the plaintext JSON array of secrets.
//
// An authentication-tag mismatch is surfaced as KindInvalidPassword, not
// KindCorrupt, so the session can distinguish "wrong password" from
// "file damaged after a correct password".
func Open(path string, key []byte) (Header, []vaultmodel.SecretEntry, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Header{}, nil, vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if len(raw) < headerLen {
		return Header{}, nil, vaulterrors.Newf(vaulterrors.KindNotAVault, "container: file too short: %d bytes", len(raw))
	}

	header, err := parseHeader(raw[:headerLen])
	if err != nil {
		return Header{}, nil, err
	}

	payloadLen := int32(binary.LittleEndian.Uint32(raw[headerLen-4 : headerLen]))
	if payloadLen < 0 || headerLen+int(payloadLen) != len(raw) {
		return Header{}, nil, vaulterrors.Newf(vaulterrors.KindCorrupt, "container: payload length mismatch: header says %d, have %d", payloadLen, len(raw)-headerLen)
	}

	payload := raw[headerLen:]

	aead, err := vaultcrypto.NewAESGCM(key)
	if err != nil {
		return Header{}, nil, err
	}

	plaintext, err := aead.OpenBlob(payload)
	if err != nil {
		return Header{}, nil, vaulterrors.New(vaulterrors.KindInvalidPassword, err)
	}

	var secrets []vaultmodel.SecretEntry
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return Header{}, nil, vaulterrors.New(vaulterrors.KindCorrupt, err)
	}

	return header, secrets, nil
}

// Create writes a brand-new container at path: the given header plus an
// encryption of an empty secrets array. It fails if a file already
// exists at path.
func Create(path string, key []byte, header Header) error {
	if _, err := os.Stat(path); err == nil {
		return vaulterrors.New(vaulterrors.KindIoError, vaulterrors.ErrVaultFileExists)
	}

	return Save(path, key, header, nil)
}

// Save rewrites the container at path in full: header plus a fresh
// AES-GCM seal (new random nonce) of the JSON-encoded secrets. The write
// is atomic at the file level — the new content is written to a temp
// file in the same directory, fsynced, then renamed over the target.
func Save(path string, key []byte, header Header, secrets []vaultmodel.SecretEntry) error {
	if secrets == nil {
		secrets = []vaultmodel.SecretEntry{}
	}

	plaintext, err := json.Marshal(secrets)
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

	buf := make([]byte, 0, headerLen+len(payload))
	buf = append(buf, Magic[:]...)

	var versionBuf [4]byte
	binary.LittleEndian.PutUint32(versionBuf[:], header.Version)
	buf = append(buf, versionBuf[:]...)

	if len(header.Salt) != vaultcrypto.SaltSize {
		return vaulterrors.Newf(vaulterrors.KindIoError, "container: salt must be %d bytes, got %d", vaultcrypto.SaltSize, len(header.Salt))
	}

	buf = append(buf, header.Salt...)
	buf = append(buf, vaultcrypto.EncodeTimestamp(header.CreatedAt)...)

	var payloadLenBuf [4]byte
	binary.LittleEndian.PutUint32(payloadLenBuf[:], uint32(len(payload)))
	buf = append(buf, payloadLenBuf[:]...)
	buf = append(buf, payload...)

	return atomicWrite(path, buf)
}

// atomicWrite writes data to a temp file in dir's directory, syncs it,
// and renames it over path so readers never observe a partial write.
func atomicWrite(path string, data []byte) error {
	dir := filepath.Dir(path)

	tmp, err := os.CreateTemp(dir, ".arca-tmp-*")
	if err != nil {
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	tmpPath := tmp.Name()

	cleanup := func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}

	if _, err := tmp.Write(data); err != nil {
		cleanup()
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if err := tmp.Sync(); err != nil {
		cleanup()
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return vaulterrors.New(vaulterrors.KindIoError, err)
	}

	return nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	n := 0
	for n < len(buf) {
		m, err := f.Read(buf[n:])
		n += m

		if err != nil {
			return n, fmt.Errorf("container: read header: %w", err)
		}
	}

	return n, nil
}
