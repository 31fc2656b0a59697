// Package archive parses the container's table of contents: the
// header, the (possibly encrypted) entry table, the optional extra
// sidecar word, and the optional chunk table. It does not read entry
// payloads; that is entryreader's job once a caller has a backing
// store to open an entry against (pakhandle).
package archive

import (
	"bytes"
	"fmt"
	"io"

	"github.com/rpcpool/go-pak/cipher"
	"github.com/rpcpool/go-pak/spec"
)

// Entry is a version-agnostic view over one archive entry: the fields
// every version carries, plus the attribute bitfield (zero-valued,
// with Compression=store and Encryption=none, for V1 entries, which
// predate attributes entirely).
type Entry struct {
	HashLow          uint32
	HashHigh         uint32
	Offset           uint64
	CompressedSize   uint64
	UncompressedSize uint64
	Attributes       spec.Attributes
	Checksum         uint64
}

// Hash returns the entry's mixed 64-bit lookup key.
func (e Entry) Hash() uint64 {
	return (uint64(e.HashHigh) << 32) | uint64(e.HashLow)
}

func entryFromV1(e spec.EntryV1) Entry {
	return Entry{
		HashLow:          e.HashLow,
		HashHigh:         e.HashHigh,
		Offset:           e.Offset,
		CompressedSize:   e.UncompressedSize,
		UncompressedSize: e.UncompressedSize,
		Attributes:       spec.DecodeAttributes(0),
	}
}

func entryFromV2(e spec.EntryV2) Entry {
	return Entry{
		HashLow:          e.HashLow,
		HashHigh:         e.HashHigh,
		Offset:           e.Offset,
		CompressedSize:   e.CompressedSize,
		UncompressedSize: e.UncompressedSize,
		Attributes:       spec.DecodeAttributes(e.Attributes),
		Checksum:         e.Checksum,
	}
}

// Archive is the immutable, fully parsed table of contents of a KPKA
// container: header, entries in on-disk order, the opaque extra-u32
// trailer if present, and the chunk table if present.
type Archive struct {
	Header      spec.Header
	Entries     []Entry
	ExtraU32    uint32
	HasExtraU32 bool

	ChunkTableHeader spec.ChunkTableHeader
	ChunkDescs       []spec.ChunkDesc
	HasChunkTable    bool
}

// entryTableKeySize is the on-disk size of the wrapped entry-table
// encryption key, distinct from cipher.UnwrapEntryTableKey's padded
// 129-byte working size.
const entryTableKeySize = 128

// Read parses a full archive table of contents from r: header, raw
// entry table bytes, optional extra u32, optional encryption key
// (decrypting the entry table in place), entries, optional chunk
// table.
func Read(r io.Reader) (*Archive, error) {
	hdr, err := spec.ReadHeader(r)
	if err != nil {
		return nil, err
	}

	entrySize := hdr.EntrySize()
	entryTableBytes := make([]byte, int(hdr.TotalFiles)*entrySize)
	if _, err := io.ReadFull(r, entryTableBytes); err != nil {
		return nil, fmt.Errorf("read entry table: %w", err)
	}

	a := &Archive{Header: hdr}

	if hdr.HasFeature(spec.FeatureExtraU32) {
		var buf [4]byte
		if _, err := io.ReadFull(r, buf[:]); err != nil {
			return nil, fmt.Errorf("read extra u32: %w", err)
		}
		a.ExtraU32 = uint32(buf[0]) | uint32(buf[1])<<8 | uint32(buf[2])<<16 | uint32(buf[3])<<24
		a.HasExtraU32 = true
	}

	if hdr.HasFeature(spec.FeatureEntryEncryption) {
		var encKey [entryTableKeySize]byte
		if _, err := io.ReadFull(r, encKey[:]); err != nil {
			return nil, fmt.Errorf("read entry table key: %w", err)
		}
		entryTableBytes = cipher.DecryptEntryTable(entryTableBytes, encKey[:])
	}

	entries, err := readEntries(bytes.NewReader(entryTableBytes), hdr)
	if err != nil {
		return nil, err
	}
	a.Entries = entries

	if hdr.HasFeature(spec.FeatureChunkTable) {
		cth, descs, err := spec.ReadChunkTable(r)
		if err != nil {
			return nil, err
		}
		if cth.BlockSize == 0 {
			return nil, &InvalidChunkTableError{Reason: "block size is zero"}
		}
		a.ChunkTableHeader = cth
		a.ChunkDescs = descs
		a.HasChunkTable = true
	}

	return a, nil
}

func readEntries(r io.Reader, hdr spec.Header) ([]Entry, error) {
	entries := make([]Entry, 0, hdr.TotalFiles)
	if hdr.IsV1() {
		for i := uint32(0); i < hdr.TotalFiles; i++ {
			e, err := spec.ReadEntryV1(r)
			if err != nil {
				return nil, fmt.Errorf("read v1 entry %d: %w", i, err)
			}
			entries = append(entries, entryFromV1(e))
		}
		return entries, nil
	}
	for i := uint32(0); i < hdr.TotalFiles; i++ {
		e, err := spec.ReadEntryV2(r)
		if err != nil {
			return nil, fmt.Errorf("read v2 entry %d: %w", i, err)
		}
		entries = append(entries, entryFromV2(e))
	}
	return entries, nil
}

// FindByHash locates the entry whose mixed hash equals hash, if any.
// Archives are typically small enough (thousands to low millions of
// entries) that a linear scan here is acceptable; callers extracting
// many entries should instead build their own index once over
// a.Entries.
func (a *Archive) FindByHash(hash uint64) (Entry, bool) {
	for _, e := range a.Entries {
		if e.Hash() == hash {
			return e, true
		}
	}
	return Entry{}, false
}

// InvalidChunkTableError reports a structurally invalid chunk table.
type InvalidChunkTableError struct {
	Reason string
}

func (e *InvalidChunkTableError) Error() string {
	return fmt.Sprintf("invalid chunk table: %s", e.Reason)
}
