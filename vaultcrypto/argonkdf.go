package vaultcrypto

import (
	"golang.org/x/crypto/argon2"
)

// SaltSize is the length, in bytes, of a freshly generated KDF salt.
const SaltSize = 16

// Argon2Params represents the tunable cost parameters for the Argon2id KDF.
type Argon2Params struct {
	Memory      uint32 // Memory cost in KiB
	Time        uint32 // Time cost (iterations)
	Parallelism uint8  // Parallelism factor (number of threads)
}

// DefaultArgon2Params are the v1 container KDF parameters. They are fixed
// to preserve backward compatibility with existing vaults and must never
// change without a container version bump.
var DefaultArgon2Params = Argon2Params{
	Memory:      64 * 1024, // 64 MiB
	Time:        3,
	Parallelism: 4,
}

// Argon2idKDF derives a symmetric key from a password and salt using
// Argon2id.
type Argon2idKDF struct {
	params Argon2Params
	keyLen uint32
}

type Argon2idKDFOpt func(*Argon2idKDF)

// NewArgon2idKDF creates a new [Argon2idKDF] using [DefaultArgon2Params]
// and a 32-byte output, overridable via the supplied options.
func NewArgon2idKDF(opts ...Argon2idKDFOpt) *Argon2idKDF {
	kdf := &Argon2idKDF{
		params: DefaultArgon2Params,
		keyLen: KeySize,
	}

	for _, opt := range opts {
		opt(kdf)
	}

	return kdf
}

// WithParams overrides the Argon2id cost parameters.
func WithParams(params Argon2Params) Argon2idKDFOpt {
	return func(kdf *Argon2idKDF) {
		kdf.params = params
	}
}

// WithKeyLen overrides the derived key length in bytes.
func WithKeyLen(n uint32) Argon2idKDFOpt {
	return func(kdf *Argon2idKDF) {
		kdf.keyLen = n
	}
}

// Derive runs Argon2id over password and salt, returning a key of
// a.keyLen bytes.
func (a *Argon2idKDF) Derive(password, salt []byte) []byte {
	return argon2.IDKey(password, salt, a.params.Time, a.params.Memory, a.params.Parallelism, a.keyLen)
}

// Params returns the cost parameters in effect.
func (a *Argon2idKDF) Params() Argon2Params {
	return a.params
}
