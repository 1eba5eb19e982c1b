package vaultcrypto

import (
	"encoding/binary"
	"time"

	"github.com/arca-vault/arca/vaulterrors"
)

// EncodeTimestamp returns the portable 8-byte little-endian encoding of t
// as UTC nanoseconds since the Unix epoch, used for the created_at field
// of the vault container header. Timestamps inside the JSON payloads are
// encoded by encoding/json instead.
func EncodeTimestamp(t time.Time) []byte {
	buf := make([]byte, 8)
	binary.LittleEndian.PutUint64(buf, uint64(t.UTC().UnixNano()))

	return buf
}

// DecodeTimestamp parses the 8-byte encoding produced by [EncodeTimestamp].
// A negative nanosecond value (pre-1970, never produced by this
// implementation) is rejected as [vaulterrors.KindUnsupportedVersion]
// rather than silently accepted, since it cannot have been written by
// this format.
func DecodeTimestamp(buf []byte) (time.Time, error) {
	if len(buf) != 8 {
		return time.Time{}, vaulterrors.Newf(vaulterrors.KindUnsupportedVersion, "timestamp: expected 8 bytes, got %d", len(buf))
	}

	nanos := int64(binary.LittleEndian.Uint64(buf))
	if nanos < 0 {
		return time.Time{}, vaulterrors.Newf(vaulterrors.KindUnsupportedVersion, "timestamp: negative nanosecond value %d", nanos)
	}

	return time.Unix(0, nanos).UTC(), nil
}
