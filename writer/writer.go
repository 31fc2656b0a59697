// Package writer builds a PAK v4.0 container with a pre-allocated
// table of contents: the caller declares how many entries it intends
// to write, the writer reserves that much space up front, and streams
// each file's bytes directly to the sink as it goes.
package writer

import (
	"fmt"
	"io"

	"k8s.io/klog/v2"

	"github.com/rpcpool/go-pak/spec"
)

// Writer streams a new v4.0 container to w. It never compresses or
// encrypts on write: every entry is stored with compression=store,
// and every other attribute bit the caller passes through StartFile is
// carried verbatim into the entry table.
type Writer struct {
	w            io.WriteSeeker
	preallocated int

	entries []spec.EntryV2
	current *openFile

	closed bool
}

type openFile struct {
	hashLow, hashHigh uint32
	attrs             spec.Attributes
	offset            int64
	written           uint64
}

// New constructs a Writer targeting w, reserving room in the stream
// for exactly preallocateEntryCount 48-byte entry records. w must
// support seeking, since the header and entry table are backfilled
// once every file has been written.
func New(w io.WriteSeeker, preallocateEntryCount int) (*Writer, error) {
	tocEnd := int64(spec.HeaderSize + preallocateEntryCount*spec.EntryV2Size)
	if _, err := w.Seek(tocEnd, io.SeekStart); err != nil {
		return nil, fmt.Errorf("reserve table of contents: %w", err)
	}
	return &Writer{w: w, preallocated: preallocateEntryCount}, nil
}

// EntryCountExceededError reports an attempt to start more files than
// the writer was constructed to pre-allocate room for.
type EntryCountExceededError struct {
	Preallocated int
}

func (e *EntryCountExceededError) Error() string {
	return fmt.Sprintf("entry count exceeds pre-allocated table of contents size (%d)", e.Preallocated)
}

// StartFile closes any file currently open (backfilling its sizes)
// and begins a new entry at the stream's current position. hash is
// the path's mixed 64-bit hash; attrs carries encryption/chunk-index
// and unknown bits through verbatim, while its Compression is always
// replaced with store.
func (w *Writer) StartFile(hash uint64, attrs spec.Attributes) error {
	if w.closed {
		return fmt.Errorf("writer is finished")
	}

	if w.current != nil {
		w.closeCurrent()
	}

	if len(w.entries) >= w.preallocated {
		return &EntryCountExceededError{Preallocated: w.preallocated}
	}

	offset, err := w.w.Seek(0, io.SeekCurrent)
	if err != nil {
		return fmt.Errorf("query stream position: %w", err)
	}

	attrs.Compression = spec.CompressionStore
	w.current = &openFile{
		hashLow:  uint32(hash),
		hashHigh: uint32(hash >> 32),
		attrs:    attrs,
		offset:   offset,
	}
	return nil
}

// Write streams p directly into the output, unmodified, and tallies
// it toward the currently open file's size. It is an error to call
// Write with no file open.
func (w *Writer) Write(p []byte) (int, error) {
	if w.current == nil {
		return 0, fmt.Errorf("no file open: call StartFile first")
	}
	n, err := w.w.Write(p)
	w.current.written += uint64(n)
	if err != nil {
		return n, fmt.Errorf("write entry bytes: %w", err)
	}
	return n, nil
}

func (w *Writer) closeCurrent() {
	cur := w.current
	w.entries = append(w.entries, spec.EntryV2{
		HashLow:          cur.hashLow,
		HashHigh:         cur.hashHigh,
		Offset:           uint64(cur.offset),
		CompressedSize:   cur.written,
		UncompressedSize: cur.written,
		Attributes:       cur.attrs.Encode(),
	})
	w.current = nil
}

// Finish closes the last open file (if any), then backfills the
// header and the packed entry table at the start of the stream in
// insertion order. If fewer entries were written than pre-allocated,
// the unused table-of-contents space is left as wasted slack and a
// warning is logged; the resulting file is still valid.
func (w *Writer) Finish() error {
	if w.closed {
		return fmt.Errorf("writer already finished")
	}
	if w.current != nil {
		w.closeCurrent()
	}
	w.closed = true

	if len(w.entries) < w.preallocated {
		wasted := (w.preallocated - len(w.entries)) * spec.EntryV2Size
		klog.Warningf("pak writer: pre-allocated %d entries, wrote %d; %d bytes of table-of-contents space left unused",
			w.preallocated, len(w.entries), wasted)
	}

	if _, err := w.w.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("seek to start for header: %w", err)
	}

	hdr := spec.Header{
		Magic:        spec.Magic,
		MajorVersion: 4,
		MinorVersion: 0,
		TotalFiles:   uint32(len(w.entries)),
	}
	if err := spec.WriteHeader(w.w, hdr); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for i, e := range w.entries {
		b, _ := e.MarshalBinary()
		if _, err := w.w.Write(b); err != nil {
			return fmt.Errorf("write entry %d: %w", i, err)
		}
	}

	return nil
}

// Close asserts that the writer was finished cleanly. A Writer that
// goes out of scope with a file still open has no recorded size for
// that file, which would silently corrupt the table of contents; that
// is a programmer error, not a recoverable one, so Close panics rather
// than returning an error a caller might ignore.
func (w *Writer) Close() {
	if !w.closed {
		panic("writer: closed without calling Finish")
	}
}
