package spec

import (
	"encoding/binary"
	"fmt"
	"io"
)

// ChunkRawMeta is the sentinel meta value marking a chunk as stored
// uncompressed at exactly BlockSize bytes.
const ChunkRawMeta uint32 = 0x2000_0000

// ChunkTableHeader precedes the per-chunk descriptors: the fixed
// decompressed size of every block, and the chunk count.
type ChunkTableHeader struct {
	BlockSize uint32
	Count     uint32
}

// ChunkDesc is one reconstructed chunk-table entry: its absolute
// starting offset in the container (64 bits, rebuilt from the on-disk
// 32-bit low word per ReadChunkTable) and the raw on-disk meta word.
type ChunkDesc struct {
	Start uint64
	Meta  uint32
}

// IsRaw reports whether this chunk is stored uncompressed.
func (c ChunkDesc) IsRaw() bool {
	return c.Meta == ChunkRawMeta
}

// CompressedLen returns the number of on-disk bytes occupied by this
// chunk: exactly blockSize when raw, otherwise the top 22 bits of Meta.
func (c ChunkDesc) CompressedLen(blockSize uint32) uint64 {
	if c.IsRaw() {
		return uint64(blockSize)
	}
	return uint64(c.Meta >> 10)
}

// ReadChunkTable parses a chunk table: a ChunkTableHeader followed by
// Count (start_low, meta) pairs. The on-disk start values are only the
// low 32 bits of each chunk's offset; this reconstructs the full
// 64-bit offsets by tracking wraps, since start_low is monotone modulo
// 2^32 across the table.
func ReadChunkTable(r io.Reader) (ChunkTableHeader, []ChunkDesc, error) {
	var hbuf [8]byte
	if _, err := io.ReadFull(r, hbuf[:]); err != nil {
		return ChunkTableHeader{}, nil, fmt.Errorf("read chunk table header: %w", err)
	}
	hdr := ChunkTableHeader{
		BlockSize: binary.LittleEndian.Uint32(hbuf[0:4]),
		Count:     binary.LittleEndian.Uint32(hbuf[4:8]),
	}

	descs := make([]ChunkDesc, hdr.Count)
	var high uint64
	var prev uint32
	var entry [8]byte
	for i := uint32(0); i < hdr.Count; i++ {
		if _, err := io.ReadFull(r, entry[:]); err != nil {
			return ChunkTableHeader{}, nil, fmt.Errorf("read chunk descriptor %d: %w", i, err)
		}
		startLow := binary.LittleEndian.Uint32(entry[0:4])
		meta := binary.LittleEndian.Uint32(entry[4:8])

		if i > 0 && startLow < prev {
			high += 1 << 32
		}
		descs[i] = ChunkDesc{Start: high | uint64(startLow), Meta: meta}
		prev = startLow
	}
	return hdr, descs, nil
}

// WriteChunkTable serializes a chunk table header and descriptors back
// to their on-disk form, truncating each Start to its low 32 bits.
func WriteChunkTable(w io.Writer, hdr ChunkTableHeader, descs []ChunkDesc) error {
	var hbuf [8]byte
	binary.LittleEndian.PutUint32(hbuf[0:4], hdr.BlockSize)
	binary.LittleEndian.PutUint32(hbuf[4:8], hdr.Count)
	if _, err := w.Write(hbuf[:]); err != nil {
		return err
	}

	var entry [8]byte
	for _, d := range descs {
		binary.LittleEndian.PutUint32(entry[0:4], uint32(d.Start))
		binary.LittleEndian.PutUint32(entry[4:8], d.Meta)
		if _, err := w.Write(entry[:]); err != nil {
			return err
		}
	}
	return nil
}
