// Package nibble implements the wire-level nibble (4-bit) cursor used to
// (de)serialize xpi events: a Reader/Writer pair addressing a byte slice at
// nibble granularity, vlu4 variable-length integers, byte-aligned slice
// access, and a bit-level escape hatch for the packed 32-bit event header.
package nibble

import "errors"

// ErrOutOfBounds is returned when a read or write would cross the end of
// the underlying buffer.
var ErrOutOfBounds = errors.New("nibble: out of bounds")

// ErrMalformedVlu is returned when a vlu4 integer does not terminate within
// the maximum 11 nibbles (32 bits of payload plus continuation bits).
var ErrMalformedVlu = errors.New("nibble: malformed vlu4 (no terminator within 11 nibbles)")

// ErrUnalignedAccess is returned by byte-granular operations (GetSlice,
// PutAlignedWith) when the cursor is not sitting on a byte boundary and the
// caller did not request padding.
var ErrUnalignedAccess = errors.New("nibble: access requires byte alignment")

// ErrVluOverflow is returned when a vlu4 integer decodes to more than 32
// bits of payload.
var ErrVluOverflow = errors.New("nibble: vlu4 value overflows 32 bits")
