// Package digest computes hex-encoded SHA-256 fingerprints over a
// deterministic binary serialisation of entity fields. Digests are compared
// across runs (and across processes) to decide whether an entity changed, so
// the encoding is a contract: strings are length-prefixed UTF-8, sequences
// are count-prefixed, optional values carry a one-byte discriminator, and
// all integers are little-endian.
package digest

import (
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
)

// Encoder accumulates the binary serialisation of an entity's fields in
// declaration order. The zero value is ready to use.
type Encoder struct {
	buf []byte
}

// String appends a string as a u64 little-endian byte length followed by the
// raw UTF-8 bytes.
func (e *Encoder) String(s string) {
	e.Len(len(s))
	e.buf = append(e.buf, s...)
}

// Strings appends a sequence of strings as a u64 little-endian count
// followed by each element.
func (e *Encoder) Strings(ss []string) {
	e.Len(len(ss))
	for _, s := range ss {
		e.String(s)
	}
}

// Bool appends a bool as a single byte (0x00 or 0x01).
func (e *Encoder) Bool(b bool) {
	if b {
		e.buf = append(e.buf, 1)
	} else {
		e.buf = append(e.buf, 0)
	}
}

// Int32 appends a 32-bit integer in little-endian order.
func (e *Encoder) Int32(v int32) {
	e.buf = binary.LittleEndian.AppendUint32(e.buf, uint32(v))
}

// Len appends a sequence length or byte count as a u64 little-endian value.
func (e *Encoder) Len(n int) {
	e.buf = binary.LittleEndian.AppendUint64(e.buf, uint64(n))
}

// Some appends the discriminator byte marking an optional value as present.
// The value itself must be appended right after. Used on its own (without a
// matching None) for fields whose serialised form omits absent values
// entirely.
func (e *Encoder) Some() {
	e.buf = append(e.buf, 1)
}

// None appends the discriminator byte marking an optional value as absent.
func (e *Encoder) None() {
	e.buf = append(e.buf, 0)
}

// OptionalString appends a discriminator byte followed, when s is non-nil,
// by the string value.
func (e *Encoder) OptionalString(s *string) {
	if s == nil {
		e.None()
		return
	}
	e.Some()
	e.String(*s)
}

// OptionalStrings appends a discriminator byte followed, when ss is non-nil,
// by the sequence. A non-nil empty slice is a present, empty sequence; only
// nil encodes as absent.
func (e *Encoder) OptionalStrings(ss []string) {
	if ss == nil {
		e.None()
		return
	}
	e.Some()
	e.Strings(ss)
}

// OptionalInt32 appends a discriminator byte followed, when v is non-nil, by
// the integer value.
func (e *Encoder) OptionalInt32(v *int32) {
	if v == nil {
		e.None()
		return
	}
	e.Some()
	e.Int32(*v)
}

// OptionalBool appends a discriminator byte followed, when b is non-nil, by
// the bool value.
func (e *Encoder) OptionalBool(b *bool) {
	if b == nil {
		e.None()
		return
	}
	e.Some()
	e.Bool(*b)
}

// Sum returns the hex-encoded SHA-256 of everything appended so far.
func (e *Encoder) Sum() string {
	sum := sha256.Sum256(e.buf)
	return hex.EncodeToString(sum[:])
}
