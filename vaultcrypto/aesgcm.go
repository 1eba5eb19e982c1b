package vaultcrypto

import (
	"crypto/aes"
	"crypto/cipher"
	"errors"
)

const (
	// KeySize is the required AES-256 key length in bytes.
	KeySize = 32

	// NonceSize is the GCM nonce length in bytes.
	NonceSize = 12

	// TagSize is the GCM authentication tag length in bytes.
	TagSize = 16
)

var (
	// ErrNilAESGCM is returned when a method is called on a nil *AESGCM.
	ErrNilAESGCM = errors.New("AESGCM is nil")

	// ErrInvalidKeyLength is returned when the supplied key is not [KeySize] bytes.
	ErrInvalidKeyLength = errors.New("aesgcm: invalid key length, want 32 bytes")

	// ErrAuthentication is returned when a sealed blob fails authentication,
	// signaling either a wrong password or tampered ciphertext.
	ErrAuthentication = errors.New("aesgcm: message authentication failed")

	// ErrBlobTooShort is returned when a blob is too short to contain a
	// nonce and a tag.
	ErrBlobTooShort = errors.New("aesgcm: blob shorter than nonce+tag")
)

// AESGCM wraps an [cipher.AEAD] using AES-256 in GCM mode.
type AESGCM struct {
	aead cipher.AEAD
}

// NewAESGCM creates a new AES-256-GCM cipher using the provided key.
// The key must be exactly [KeySize] bytes.
func NewAESGCM(key []byte) (*AESGCM, error) {
	if len(key) != KeySize {
		return nil, ErrInvalidKeyLength
	}

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}

	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, err
	}

	return &AESGCM{aesgcm}, nil
}

// SealBlob encrypts plaintext with a freshly generated random nonce and
// returns the on-the-wire blob layout: nonce ∥ tag ∥ ciphertext.
func (g *AESGCM) SealBlob(plaintext []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	nonce, err := RandBytes(NonceSize)
	if err != nil {
		return nil, err
	}

	// cipher.AEAD.Seal appends the tag to the end of the ciphertext;
	// reslice it out to produce the spec's nonce ∥ tag ∥ ciphertext layout.
	sealed := g.aead.Seal(nil, nonce, plaintext, nil)

	ct := sealed[:len(sealed)-TagSize]
	tag := sealed[len(sealed)-TagSize:]

	blob := make([]byte, 0, NonceSize+TagSize+len(ct))
	blob = append(blob, nonce...)
	blob = append(blob, tag...)
	blob = append(blob, ct...)

	return blob, nil
}

// OpenBlob decrypts a blob produced by [AESGCM.SealBlob]. It returns
// [ErrAuthentication] if the tag does not verify.
func (g *AESGCM) OpenBlob(blob []byte) ([]byte, error) {
	if g == nil {
		return nil, ErrNilAESGCM
	}

	if len(blob) < NonceSize+TagSize {
		return nil, ErrBlobTooShort
	}

	nonce := blob[:NonceSize]
	tag := blob[NonceSize : NonceSize+TagSize]
	ct := blob[NonceSize+TagSize:]

	sealed := make([]byte, 0, len(ct)+TagSize)
	sealed = append(sealed, ct...)
	sealed = append(sealed, tag...)

	plaintext, err := g.aead.Open(nil, nonce, sealed, nil)
	if err != nil {
		return nil, ErrAuthentication
	}

	return plaintext, nil
}

// AEAD returns the underlying cipher.AEAD instance.
func (g *AESGCM) AEAD() cipher.AEAD {
	return g.aead
}
