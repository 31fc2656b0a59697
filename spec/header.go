// Package spec holds the fixed-layout byte structures of the KPKA
// container format: the header, both entry record shapes and the chunk
// table. Everything here is pure (de)serialization with no I/O beyond
// reading/writing a stream of bytes.
package spec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// Magic is the fixed 4-byte prefix of every KPKA container.
var Magic = [4]byte{'K', 'P', 'K', 'A'}

// Feature bits recognized by this implementation. Any other set bit in
// the header is a hard rejection.
const (
	FeatureEntryEncryption uint16 = 1 << 3
	FeatureExtraU32        uint16 = 1 << 4
	FeatureChunkTable      uint16 = 1 << 5

	supportedFeatureMask = FeatureEntryEncryption | FeatureExtraU32 | FeatureChunkTable
)

// HeaderSize is the on-disk size of Header, in bytes.
const HeaderSize = 16

// Header is the fixed 16-byte prefix of a KPKA container.
type Header struct {
	Magic        [4]byte
	MajorVersion uint8
	MinorVersion uint8
	Feature      uint16
	TotalFiles   uint32
	Hash         uint32
}

// EntrySize returns the on-disk size of one entry record for this
// header's version: 24 bytes for v2.0, 48 bytes otherwise.
func (h Header) EntrySize() int {
	if h.MajorVersion == 2 && h.MinorVersion == 0 {
		return EntryV1Size
	}
	return EntryV2Size
}

// IsV1 reports whether entries for this header use the legacy 24-byte
// layout (major=2, minor=0).
func (h Header) IsV1() bool {
	return h.MajorVersion == 2 && h.MinorVersion == 0
}

// HasFeature reports whether the given feature bit is set.
func (h Header) HasFeature(bit uint16) bool {
	return h.Feature&bit != 0
}

// ReadHeader parses a 16-byte header from r and validates magic,
// version and feature bits.
func ReadHeader(r io.Reader) (Header, error) {
	var buf [HeaderSize]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return Header{}, fmt.Errorf("read header: %w", err)
	}
	return decodeHeader(buf)
}

func decodeHeader(buf [HeaderSize]byte) (Header, error) {
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.MajorVersion = buf[4]
	h.MinorVersion = buf[5]
	h.Feature = binary.LittleEndian.Uint16(buf[6:8])
	h.TotalFiles = binary.LittleEndian.Uint32(buf[8:12])
	h.Hash = binary.LittleEndian.Uint32(buf[12:16])

	if h.Magic != Magic {
		return Header{}, &InvalidMagicError{Expected: Magic, Found: h.Magic}
	}
	if !(h.MajorVersion == 2 || h.MajorVersion == 4) || !(h.MinorVersion == 0 || h.MinorVersion == 1) {
		return Header{}, &UnsupportedVersionError{Major: h.MajorVersion, Minor: h.MinorVersion}
	}
	if h.Feature&^supportedFeatureMask != 0 {
		return Header{}, &UnsupportedFeatureError{Flags: h.Feature}
	}
	return h, nil
}

// MarshalBinary serializes the header to its 16-byte wire form. It does
// not re-validate feature bits so that round-tripping an already
// validated header (including any unknown-but-accepted bits, which
// cannot occur post-ReadHeader but may be constructed directly by a
// writer) is lossless.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	buf[4] = h.MajorVersion
	buf[5] = h.MinorVersion
	binary.LittleEndian.PutUint16(buf[6:8], h.Feature)
	binary.LittleEndian.PutUint32(buf[8:12], h.TotalFiles)
	binary.LittleEndian.PutUint32(buf[12:16], h.Hash)
	return buf, nil
}

// WriteHeader writes the header's 16-byte wire form to w.
func WriteHeader(w io.Writer, h Header) error {
	b, _ := h.MarshalBinary()
	_, err := w.Write(b)
	return err
}

// InvalidMagicError reports a container whose first 4 bytes aren't "KPKA".
type InvalidMagicError struct {
	Expected [4]byte
	Found    [4]byte
}

func (e *InvalidMagicError) Error() string {
	return fmt.Sprintf("invalid pak magic: expected %q, found %q", e.Expected[:], e.Found[:])
}

// UnsupportedVersionError reports a (major, minor) pair outside {2,4}x{0,1}.
type UnsupportedVersionError struct {
	Major, Minor uint8
}

func (e *UnsupportedVersionError) Error() string {
	return fmt.Sprintf("unsupported pak version %d.%d", e.Major, e.Minor)
}

// UnsupportedFeatureError reports a feature bit outside the supported set.
type UnsupportedFeatureError struct {
	Flags uint16
}

func (e *UnsupportedFeatureError) Error() string {
	return fmt.Sprintf("unsupported feature flags: 0x%04x", e.Flags)
}
