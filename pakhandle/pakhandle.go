// Package pakhandle owns the backing store for one opened container:
// it parses the table of contents once at open time and knows how to
// turn an archive.Entry into a fully decoded entryreader.Reader,
// whether the entry's payload sits at a plain byte offset or is spread
// across the chunk table.
package pakhandle

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/exp/mmap"

	"github.com/rpcpool/go-pak/archive"
	"github.com/rpcpool/go-pak/chunked"
	"github.com/rpcpool/go-pak/entryreader"
)

// backend is the minimal surface a Handle needs from its backing
// store: random-access reads, and a way to release the underlying
// descriptor or mapping.
type backend interface {
	io.ReaderAt
	io.Closer
}

// Handle is an opened container: the backing store plus its fully
// parsed table of contents. A Handle is safe for concurrent use by
// multiple goroutines calling OpenEntry, since ReadAt on both mmap and
// *os.File backends is itself concurrency-safe.
type Handle struct {
	backend backend
	archive *archive.Archive
}

// Open opens path and parses its table of contents. When useMmap is
// true the file is memory-mapped via golang.org/x/exp/mmap; otherwise
// it is opened as a plain *os.File and read with pread(2)-style
// ReadAt calls. Mmap trades a larger address-space reservation for
// avoiding a read() syscall per access, and is the better default for
// archives that will see many small random entry reads.
func Open(path string, useMmap bool) (*Handle, error) {
	b, err := openBackend(path, useMmap)
	if err != nil {
		return nil, err
	}

	a, err := archive.Read(io.NewSectionReader(b, 0, tocProbeSize))
	if err != nil {
		b.Close()
		return nil, fmt.Errorf("parse table of contents: %w", err)
	}

	return &Handle{backend: b, archive: a}, nil
}

// tocProbeSize bounds how far archive.Read is allowed to look for the
// header, entry table, and chunk table. It is generous enough for any
// container this format actually produces; a real table of contents
// that runs past it is itself a sign of corruption.
const tocProbeSize = 1 << 30

func openBackend(path string, useMmap bool) (backend, error) {
	if useMmap {
		f, err := mmap.Open(path)
		if err != nil {
			return nil, fmt.Errorf("mmap open %s: %w", path, err)
		}
		return f, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return f, nil
}

// Archive returns the handle's parsed table of contents.
func (h *Handle) Archive() *archive.Archive {
	return h.archive
}

// Close releases the backing mapping or file descriptor. Every
// entryreader.Reader already returned by OpenEntry reads through this
// same backend (a bounded view over it, or for chunked entries the
// backend passed to chunked.NewReader), so such readers can no longer
// read once Close has been called.
func (h *Handle) Close() error {
	return h.backend.Close()
}

// OpenEntry returns a reader over entry's fully decoded payload:
// encryption and decompression applied, ready for the caller to read
// the plaintext bytes straight through. The caller owns the returned
// reader and must Close it to release its decompression stage.
func (h *Handle) OpenEntry(entry archive.Entry) (*entryreader.Reader, error) {
	raw, err := h.openRaw(entry)
	if err != nil {
		return nil, err
	}
	return entryreader.New(raw, entry.Attributes)
}

// openRaw returns the on-disk (still encrypted/compressed) bytes of
// entry, dispatching on whether its offset is a byte offset into the
// container or an index into the chunk table.
func (h *Handle) openRaw(entry archive.Entry) (io.Reader, error) {
	if !entry.Attributes.OffsetIsChunkIndex {
		return io.NewSectionReader(h.backend, int64(entry.Offset), int64(entry.CompressedSize)), nil
	}

	if !h.archive.HasChunkTable {
		return nil, &NoChunkTableError{}
	}

	length := entry.UncompressedSize
	if length == 0 {
		length = entry.CompressedSize
	}

	return chunked.NewReader(
		h.backend,
		h.archive.ChunkDescs,
		h.archive.ChunkTableHeader.BlockSize,
		int(entry.Offset),
		length,
	)
}

// NoChunkTableError reports a chunk-indexed entry in an archive that
// carries no chunk table.
type NoChunkTableError struct{}

func (e *NoChunkTableError) Error() string {
	return "entry is chunk-indexed but archive has no chunk table"
}

var _ chunked.Source = (*os.File)(nil)
var _ chunked.Source = (*mmap.ReaderAt)(nil)
