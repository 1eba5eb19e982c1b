package vaultcrypto

import (
	"crypto/sha256"

	"golang.org/x/crypto/pbkdf2"
)

// LegacyPBKDF2Iterations is the iteration count used by v1 backup
// archives. It is read-only legacy: new exports must use [Argon2idKDF].
const LegacyPBKDF2Iterations = 100_000

// DeriveLegacyPBKDF2Key derives a 32-byte key using PBKDF2-HMAC-SHA256,
// matching the KDF used by v1 backup archives (§4.4).
func DeriveLegacyPBKDF2Key(password, salt []byte) []byte {
	return pbkdf2.Key(password, salt, LegacyPBKDF2Iterations, KeySize, sha256.New)
}
