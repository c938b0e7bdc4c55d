// Package name implements the bounded-length identity shared by queues
// and queue-groups (spec §3's Name entity).
package name

import "fmt"

// MaxLength is the longest a Name may be, in bytes. The corosync
// SaNameT carries a 256-byte fixed buffer; we keep the same bound.
const MaxLength = 256

// Name is a bounded sequence of bytes with an explicit length. Two names
// are equal iff their lengths match and their bytes match.
type Name struct {
	value string
}

// New builds a Name from raw bytes, truncating to MaxLength. Truncation
// is the conservative choice over rejecting: the wire format always
// carries a length-prefixed buffer no longer than MaxLength, so only
// locally-constructed names can ever be oversized.
func New(raw []byte) Name {
	if len(raw) > MaxLength {
		raw = raw[:MaxLength]
	}
	buf := make([]byte, len(raw))
	copy(buf, raw)
	return Name{value: string(buf)}
}

// Of is a convenience constructor from a Go string.
func Of(s string) Name {
	return New([]byte(s))
}

// Bytes returns the underlying byte sequence.
func (n Name) Bytes() []byte {
	return []byte(n.value)
}

// Len reports the length in bytes.
func (n Name) Len() int {
	return len(n.value)
}

// String implements fmt.Stringer.
func (n Name) String() string {
	return n.value
}

// Equal reports whether two names have the same length and bytes.
func (n Name) Equal(other Name) bool {
	return n.value == other.value
}

// IsZero reports whether the name carries no bytes.
func (n Name) IsZero() bool {
	return n.value == ""
}

// Validate rejects names whose length exceeds MaxLength. Callers that
// construct a Name from wire input should validate explicitly instead of
// relying on New's silent truncation.
func Validate(raw []byte) error {
	if len(raw) > MaxLength {
		return fmt.Errorf("name exceeds maximum length of %d bytes: got %d", MaxLength, len(raw))
	}
	return nil
}
