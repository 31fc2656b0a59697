package spec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// EntryV1Size is the on-disk size of a v2.0 entry record.
const EntryV1Size = 24

// EntryV2Size is the on-disk size of a v4.x (or non-2.0) entry record.
const EntryV2Size = 48

// EntryV1 is the legacy 24-byte entry layout used only by major=2,
// minor=0 containers. It carries no compression, encryption or
// checksum information.
type EntryV1 struct {
	Offset           uint64
	UncompressedSize uint64
	HashLow          uint32
	HashHigh         uint32
}

// ReadEntryV1 parses one 24-byte v1 entry record from r.
func ReadEntryV1(r io.Reader) (EntryV1, error) {
	var buf [EntryV1Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return EntryV1{}, err
	}
	return EntryV1{
		Offset:           binary.LittleEndian.Uint64(buf[0:8]),
		UncompressedSize: binary.LittleEndian.Uint64(buf[8:16]),
		HashLow:          binary.LittleEndian.Uint32(buf[16:20]),
		HashHigh:         binary.LittleEndian.Uint32(buf[20:24]),
	}, nil
}

// MarshalBinary serializes the entry to its 24-byte wire form.
func (e EntryV1) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EntryV1Size)
	binary.LittleEndian.PutUint64(buf[0:8], e.Offset)
	binary.LittleEndian.PutUint64(buf[8:16], e.UncompressedSize)
	binary.LittleEndian.PutUint32(buf[16:20], e.HashLow)
	binary.LittleEndian.PutUint32(buf[20:24], e.HashHigh)
	return buf, nil
}

// Hash returns the mixed 64-bit key for this entry.
func (e EntryV1) Hash() uint64 {
	return (uint64(e.HashHigh) << 32) | uint64(e.HashLow)
}

// EntryV2 is the 48-byte entry layout used by every container except
// v2.0. The Attributes word is a bitfield decoded by Attributes (see
// DecodeAttributes below); it is preserved verbatim here for round-trip
// fidelity of unknown bits.
type EntryV2 struct {
	HashLow          uint32
	HashHigh         uint32
	Offset           uint64
	CompressedSize   uint64
	UncompressedSize uint64
	Attributes       uint64
	Checksum         uint64
}

// ReadEntryV2 parses one 48-byte v2 entry record from r.
func ReadEntryV2(r io.Reader) (EntryV2, error) {
	var buf [EntryV2Size]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return EntryV2{}, err
	}
	return EntryV2{
		HashLow:          binary.LittleEndian.Uint32(buf[0:4]),
		HashHigh:         binary.LittleEndian.Uint32(buf[4:8]),
		Offset:           binary.LittleEndian.Uint64(buf[8:16]),
		CompressedSize:   binary.LittleEndian.Uint64(buf[16:24]),
		UncompressedSize: binary.LittleEndian.Uint64(buf[24:32]),
		Attributes:       binary.LittleEndian.Uint64(buf[32:40]),
		Checksum:         binary.LittleEndian.Uint64(buf[40:48]),
	}, nil
}

// MarshalBinary serializes the entry to its 48-byte wire form.
func (e EntryV2) MarshalBinary() ([]byte, error) {
	buf := make([]byte, EntryV2Size)
	binary.LittleEndian.PutUint32(buf[0:4], e.HashLow)
	binary.LittleEndian.PutUint32(buf[4:8], e.HashHigh)
	binary.LittleEndian.PutUint64(buf[8:16], e.Offset)
	binary.LittleEndian.PutUint64(buf[16:24], e.CompressedSize)
	binary.LittleEndian.PutUint64(buf[24:32], e.UncompressedSize)
	binary.LittleEndian.PutUint64(buf[32:40], e.Attributes)
	binary.LittleEndian.PutUint64(buf[40:48], e.Checksum)
	return buf, nil
}

// Hash returns the mixed 64-bit key for this entry.
func (e EntryV2) Hash() uint64 {
	return (uint64(e.HashHigh) << 32) | uint64(e.HashLow)
}

// Attribute sub-field masks within EntryV2.Attributes.
const (
	attrCompressionMask = 0xF
	attrEncryptionShift = 16
	attrEncryptionMask  = 0xFF << attrEncryptionShift
	attrChunkIndexBit   = 1 << 24

	// knownAttributeMask covers every bit this implementation assigns a
	// meaning to; everything outside it is preserved verbatim and never
	// interpreted.
	knownAttributeMask = attrCompressionMask | attrEncryptionMask | attrChunkIndexBit
)

// CompressionKind identifies how an entry's payload is compressed.
type CompressionKind uint8

const (
	CompressionStore   CompressionKind = 0
	CompressionDeflate CompressionKind = 1
	CompressionZstd    CompressionKind = 2
)

func (c CompressionKind) String() string {
	switch c {
	case CompressionStore:
		return "store"
	case CompressionDeflate:
		return "deflate"
	case CompressionZstd:
		return "zstd"
	default:
		return fmt.Sprintf("unknown(%d)", uint8(c))
	}
}

// EncryptionKind identifies which RSA-style key variant, if any,
// protects an entry's payload. Values 1..4 share one on-wire codec;
// anything outside 0..4 is EncryptionInvalid, which is treated as
// "decrypt nothing, pass through".
type EncryptionKind uint8

const (
	EncryptionNone    EncryptionKind = 0
	EncryptionType1   EncryptionKind = 1
	EncryptionType2   EncryptionKind = 2
	EncryptionType3   EncryptionKind = 3
	EncryptionType4   EncryptionKind = 4
	EncryptionInvalid EncryptionKind = 5
)

// Attributes is the decoded view of EntryV2.Attributes: the known
// sub-fields plus the untouched raw word, so that re-encoding can zero
// exactly the known masks and OR back in both the typed fields and the
// preserved unknown bits.
type Attributes struct {
	Compression        CompressionKind
	Encryption         EncryptionKind
	OffsetIsChunkIndex bool
	raw                uint64
}

// DecodeAttributes splits a raw attributes word into its known
// sub-fields, keeping the original word for round-trip fidelity.
func DecodeAttributes(raw uint64) Attributes {
	enc := EncryptionKind((raw & attrEncryptionMask) >> attrEncryptionShift)
	if enc > EncryptionType4 {
		enc = EncryptionInvalid
	}
	return Attributes{
		Compression:        CompressionKind(raw & attrCompressionMask),
		Encryption:         enc,
		OffsetIsChunkIndex: raw&attrChunkIndexBit != 0,
		raw:                raw,
	}
}

// Encode recombines the typed fields with the preserved unknown bits of
// the original raw word into a new raw attributes word.
func (a Attributes) Encode() uint64 {
	preserved := a.raw &^ uint64(knownAttributeMask)
	out := preserved | uint64(a.Compression)&attrCompressionMask
	out |= (uint64(a.Encryption) << attrEncryptionShift) & attrEncryptionMask
	if a.OffsetIsChunkIndex {
		out |= attrChunkIndexBit
	}
	return out
}

// Raw returns the original, unmodified 64-bit attributes word.
func (a Attributes) Raw() uint64 {
	return a.raw
}
