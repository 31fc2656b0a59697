// Package hasher computes the two-directional murmur3 path hash used
// to look up entries by name: the archive stores no plaintext paths,
// only the 64-bit mixed hash of each file's original path, so resolving
// a name requires reproducing this exact hash.
package hasher

import (
	"io"
	"unicode/utf16"

	"github.com/spaolacci/murmur3"
)

// seed is the fixed murmur3 seed the container format hashes every
// path under, both case variants.
const seed uint32 = 0xFFFFFFFF

// caseMode selects which ASCII case a utf16CaseReader folds code units
// into; everything outside 'A'-'Z'/'a'-'z' passes through unchanged,
// including non-ASCII code units.
type caseMode int

const (
	toLower caseMode = iota
	toUpper
)

// utf16CaseReader streams the little-endian UTF-16 bytes of a code
// unit slice, ASCII case-folded, without materializing the folded
// slice. It carries one pending low-endian high byte across Read calls
// so callers can feed it into a hash.Hash a few bytes at a time.
type utf16CaseReader struct {
	units       []uint16
	pos         int
	mode        caseMode
	pendingHigh byte
	hasPending  bool
}

func newUtf16CaseReader(units []uint16, mode caseMode) *utf16CaseReader {
	return &utf16CaseReader{units: units, mode: mode}
}

func (r *utf16CaseReader) foldUnit(u uint16) uint16 {
	if u > 127 {
		return u
	}
	switch r.mode {
	case toUpper:
		if u >= 97 && u <= 122 {
			return u - 32
		}
	case toLower:
		if u >= 65 && u <= 90 {
			return u + 32
		}
	}
	return u
}

func (r *utf16CaseReader) Read(buf []byte) (int, error) {
	n := 0

	if r.hasPending {
		if n < len(buf) {
			buf[n] = r.pendingHigh
			n++
			r.hasPending = false
		} else {
			return 0, nil
		}
	}

	for r.pos < len(r.units) {
		folded := r.foldUnit(r.units[r.pos])
		r.pos++
		low := byte(folded)
		high := byte(folded >> 8)

		if n < len(buf) {
			buf[n] = low
			n++
		} else {
			r.pos--
			break
		}

		if n < len(buf) {
			buf[n] = high
			n++
		} else {
			r.pendingHigh = high
			r.hasPending = true
			break
		}
	}

	if n == 0 && r.pos >= len(r.units) && !r.hasPending {
		return 0, io.EOF
	}
	return n, nil
}

func hashReader(units []uint16, mode caseMode) uint32 {
	h := murmur3.New32WithSeed(seed)
	r := newUtf16CaseReader(units, mode)
	buf := make([]byte, 256)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			h.Write(buf[:n])
		}
		if err != nil {
			break
		}
	}
	return h.Sum32()
}

// HashLower returns the murmur3 hash of name's UTF-16LE encoding with
// every ASCII uppercase code unit folded to lowercase.
func HashLower(name string) uint32 {
	return hashReader(utf16.Encode([]rune(name)), toLower)
}

// HashUpper returns the murmur3 hash of name's UTF-16LE encoding with
// every ASCII lowercase code unit folded to uppercase.
func HashUpper(name string) uint32 {
	return hashReader(utf16.Encode([]rune(name)), toUpper)
}

// HashMixed returns the 64-bit key stored in a container entry: the
// upper-case hash in the high 32 bits, the lower-case hash in the low
// 32 bits.
func HashMixed(name string) uint64 {
	units := utf16.Encode([]rune(name))
	upper := uint64(hashReader(units, toUpper))
	lower := uint64(hashReader(units, toLower))
	return (upper << 32) | lower
}

// SplitHash decomposes a mixed 64-bit hash back into its upper-case
// and lower-case 32-bit halves, as stored in an entry's HashHigh and
// HashLow fields respectively.
func SplitHash(mixed uint64) (lower, upper uint32) {
	return uint32(mixed), uint32(mixed >> 32)
}
