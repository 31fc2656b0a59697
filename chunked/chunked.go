// Package chunked reassembles an entry whose offset is a chunk-table
// index (rather than a byte offset) into a flat byte stream: chunks
// are decoded on demand, in ascending order, each expanding to exactly
// the table's block size.
package chunked

import (
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/rpcpool/go-pak/spec"
)

// Source is the minimal backing-store contract a Reader needs: random
// access to the container's raw bytes, as satisfied by both an mmap
// handle and an *os.File.
type Source interface {
	ReadAt(p []byte, off int64) (int, error)
}

// InvalidChunkIndexError reports a chunked entry whose start index and
// length run past the end of the chunk table.
type InvalidChunkIndexError struct {
	StartIndex  int
	NeededCount int
	ChunkCount  int
}

func (e *InvalidChunkIndexError) Error() string {
	return fmt.Sprintf("chunk index out of range: start=%d needs %d chunks, table has %d",
		e.StartIndex, e.NeededCount, e.ChunkCount)
}

// Reader sequentially decodes blocks starting at a fixed chunk index
// until exactly Length bytes have been produced.
type Reader struct {
	source    Source
	descs     []spec.ChunkDesc
	blockSize uint32

	nextChunk int
	remaining uint64

	block    []byte
	blockPos int
}

// NewReader constructs a chunk-backed reader for length bytes starting
// at chunk startIndex. It bounds-checks eagerly: startIndex plus the
// number of chunks length requires must not exceed len(descs).
func NewReader(source Source, descs []spec.ChunkDesc, blockSize uint32, startIndex int, length uint64) (*Reader, error) {
	if length > 0 {
		needed := int((length + uint64(blockSize) - 1) / uint64(blockSize))
		if startIndex < 0 || startIndex+needed > len(descs) {
			return nil, &InvalidChunkIndexError{StartIndex: startIndex, NeededCount: needed, ChunkCount: len(descs)}
		}
	}
	return &Reader{
		source:    source,
		descs:     descs,
		blockSize: blockSize,
		nextChunk: startIndex,
		remaining: length,
	}, nil
}

// Read implements io.Reader, decoding chunks as needed and copying at
// most min(len(p), bytes left in the current block, remaining output)
// per call.
func (r *Reader) Read(p []byte) (int, error) {
	if r.remaining == 0 {
		return 0, io.EOF
	}

	if r.blockPos >= len(r.block) {
		block, err := r.decodeChunk(r.nextChunk)
		if err != nil {
			return 0, err
		}
		r.block = block
		r.blockPos = 0
		r.nextChunk++
	}

	n := len(p)
	if avail := len(r.block) - r.blockPos; avail < n {
		n = avail
	}
	if uint64(n) > r.remaining {
		n = int(r.remaining)
	}
	copy(p[:n], r.block[r.blockPos:r.blockPos+n])
	r.blockPos += n
	r.remaining -= uint64(n)
	return n, nil
}

func (r *Reader) decodeChunk(idx int) ([]byte, error) {
	desc := r.descs[idx]
	onDisk := make([]byte, desc.CompressedLen(r.blockSize))
	if _, err := r.source.ReadAt(onDisk, int64(desc.Start)); err != nil {
		return nil, fmt.Errorf("read chunk %d at offset %d: %w", idx, desc.Start, err)
	}

	if desc.IsRaw() {
		if uint32(len(onDisk)) != r.blockSize {
			return nil, &ShortBlockError{ChunkIndex: idx, Want: r.blockSize, Got: uint32(len(onDisk))}
		}
		return onDisk, nil
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("open zstd decoder for chunk %d: %w", idx, err)
	}
	defer dec.Close()
	decoded, err := dec.DecodeAll(onDisk, make([]byte, 0, r.blockSize))
	if err != nil {
		return nil, fmt.Errorf("decode chunk %d: %w", idx, err)
	}
	if uint32(len(decoded)) != r.blockSize {
		return nil, &ShortBlockError{ChunkIndex: idx, Want: r.blockSize, Got: uint32(len(decoded))}
	}
	return decoded, nil
}

// ShortBlockError reports a decoded chunk whose length doesn't exactly
// match the chunk table's declared block size.
type ShortBlockError struct {
	ChunkIndex int
	Want, Got  uint32
}

func (e *ShortBlockError) Error() string {
	return fmt.Sprintf("chunk %d decoded to %d bytes, want exactly %d", e.ChunkIndex, e.Got, e.Want)
}
