// Package vaulterrors defines the error taxonomy shared by the vault
// container, the IPC server, and the session controller.
package vaulterrors

import (
	"errors"
	"fmt"
)

// Kind classifies a [VaultError] so that callers can branch on the
// failure category without string matching.
type Kind int

const (
	// KindUnknown is the zero value and should not be produced directly.
	KindUnknown Kind = iota

	// KindNotAVault indicates a magic-number mismatch or a header too
	// short to be a valid container.
	KindNotAVault

	// KindUnsupportedVersion indicates a container or datetime encoding
	// newer than this build knows how to read.
	KindUnsupportedVersion

	// KindInvalidPassword indicates AEAD authentication failed while
	// opening a container; the most likely cause is a wrong password.
	KindInvalidPassword

	// KindCorrupt indicates the auth tag checked out but the plaintext
	// could not be decoded (e.g. malformed JSON).
	KindCorrupt

	// KindIoError indicates a file or IPC I/O failure.
	KindIoError

	// KindProtocolError indicates a malformed IPC request.
	KindProtocolError

	// KindAuthenticationRequired indicates a request arrived without an
	// API key while the server requires one.
	KindAuthenticationRequired

	// KindInvalidApiKey indicates the presented API key does not match
	// any active key in the store.
	KindInvalidApiKey

	// KindAccessDenied indicates the authorization evaluator refused the
	// requested action for the presented key.
	KindAccessDenied

	// KindNotFound indicates the requested secret key does not exist.
	KindNotFound

	// KindDuplicate indicates an attempt to add a secret whose key
	// already exists (case-insensitive).
	KindDuplicate
)

func (k Kind) String() string {
	switch k {
	case KindNotAVault:
		return "NotAVault"
	case KindUnsupportedVersion:
		return "UnsupportedVersion"
	case KindInvalidPassword:
		return "InvalidPassword"
	case KindCorrupt:
		return "Corrupt"
	case KindIoError:
		return "IoError"
	case KindProtocolError:
		return "ProtocolError"
	case KindAuthenticationRequired:
		return "AuthenticationRequired"
	case KindInvalidApiKey:
		return "InvalidApiKey"
	case KindAccessDenied:
		return "AccessDenied"
	case KindNotFound:
		return "NotFound"
	case KindDuplicate:
		return "Duplicate"
	default:
		return "Unknown"
	}
}

// VaultError wraps an underlying cause with a [Kind] the caller can
// switch on programmatically, in the idiom of the teacher's sentinel
// errors but for conditions that the IPC layer and controller must
// branch on rather than merely print.
type VaultError struct {
	Kind Kind
	Err  error
}

func (e *VaultError) Error() string {
	if e.Err == nil {
		return e.Kind.String()
	}

	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *VaultError) Unwrap() error {
	return e.Err
}

// New returns a [*VaultError] of the given kind wrapping err.
func New(kind Kind, err error) *VaultError {
	return &VaultError{Kind: kind, Err: err}
}

// Newf returns a [*VaultError] of the given kind with a formatted message.
func Newf(kind Kind, format string, a ...any) *VaultError {
	return &VaultError{Kind: kind, Err: fmt.Errorf(format, a...)}
}

// Is reports whether err is a [*VaultError] of the given kind.
func Is(err error, kind Kind) bool {
	var ve *VaultError
	if errors.As(err, &ve) {
		return ve.Kind == kind
	}

	return false
}

// User-facing sentinel errors, in the teacher's vaulterrors idiom, for
// conditions raised directly by the CLI harness rather than the core.
var (
	ErrVaultFileExists           = errors.New("vault file already exists")
	ErrVaultFileNotFound         = errors.New("vault file does not exist")
	ErrEmptyPassword             = errors.New("empty vault password")
	ErrNonInteractiveUnsupported = errors.New("non-interactive input not supported")
	ErrEmptySecret               = errors.New("secret cannot be empty")
	ErrEmptySecretKey            = errors.New("secret key cannot be empty")
	ErrLocked                    = errors.New("vault is locked")
	ErrAlreadyUnlocked           = errors.New("vault is already unlocked")
)
