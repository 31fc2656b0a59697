// Package entryreader builds the layered decode pipeline for a single
// archive entry: a bounded range over the backing store, an optional
// decrypt-on-first-read stage, a compression-specific decoder, and a
// magic sniffer that can guess the decoded stream's file extension
// without disturbing the byte stream it reads from.
package entryreader

import (
	"bytes"
	"compress/flate"
	"fmt"
	"io"

	"github.com/klauspost/compress/zstd"

	"github.com/rpcpool/go-pak/cipher"
	"github.com/rpcpool/go-pak/spec"
)

// Reader is the full per-entry pipeline: encryption, decompression,
// and extension sniffing composed over a raw range reader. Callers
// must Close it when done reading; the streaming zstd decoder holds
// goroutines and buffers until released.
type Reader struct {
	sniffer *extensionSniffer
	closer  io.Closer
}

// New wraps raw, a bounded reader over exactly one entry's on-disk
// bytes, with the encryption and decompression stages selected by
// attrs, and an extension sniffer over the resulting plaintext stream.
func New(raw io.Reader, attrs spec.Attributes) (*Reader, error) {
	decrypted := newEncryptionLayer(raw, attrs.Encryption)

	decompressed, closer, err := newDecompressionLayer(decrypted, attrs.Compression)
	if err != nil {
		return nil, err
	}

	return &Reader{sniffer: newExtensionSniffer(decompressed), closer: closer}, nil
}

// Read implements io.Reader over the fully decoded entry payload.
func (r *Reader) Read(p []byte) (int, error) {
	return r.sniffer.Read(p)
}

// Close releases the decompression stage, if the selected compression
// kind holds resources. Store entries have nothing to release.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// DetermineExtension returns the guessed file extension (without a
// leading dot) for the bytes read so far, or ok=false if fewer than 8
// bytes have flowed through the sniffer yet.
func (r *Reader) DetermineExtension() (string, bool) {
	return r.sniffer.determineExtension()
}

// encryptionLayer decrypts its underlying reader's entire payload on
// first read: the resource cipher is not a streaming cipher, it
// consumes the whole ciphertext up front.
type encryptionLayer struct {
	underlying io.Reader
	encryption spec.EncryptionKind
	decrypted  bytes.Reader
	ready      bool
}

func newEncryptionLayer(r io.Reader, kind spec.EncryptionKind) io.Reader {
	if kind == spec.EncryptionNone || kind == spec.EncryptionInvalid {
		return r
	}
	return &encryptionLayer{underlying: r, encryption: kind}
}

func (e *encryptionLayer) Read(p []byte) (int, error) {
	if !e.ready {
		plain, err := cipher.DecryptResourcePayload(e.underlying)
		if err != nil {
			return 0, err
		}
		e.decrypted = *bytes.NewReader(plain)
		e.ready = true
	}
	return e.decrypted.Read(p)
}

// newDecompressionLayer selects store/deflate/zstd decoding. Deflate
// is raw, with no zlib wrapper. The returned closer, when non-nil,
// releases the decoder's resources and is owned by the caller.
func newDecompressionLayer(r io.Reader, kind spec.CompressionKind) (io.Reader, io.Closer, error) {
	switch kind {
	case spec.CompressionStore:
		return r, nil, nil
	case spec.CompressionDeflate:
		fr := flate.NewReader(r)
		return fr, fr, nil
	case spec.CompressionZstd:
		dec, err := zstd.NewReader(r)
		if err != nil {
			return nil, nil, fmt.Errorf("open zstd stream: %w", err)
		}
		rc := dec.IOReadCloser()
		return rc, rc, nil
	default:
		return nil, nil, &UnsupportedCompressionError{Kind: kind}
	}
}

// UnsupportedCompressionError reports a compression kind outside
// store/deflate/zstd.
type UnsupportedCompressionError struct {
	Kind spec.CompressionKind
}

func (e *UnsupportedCompressionError) Error() string {
	return fmt.Sprintf("unsupported compression kind: %s", e.Kind)
}

// extensionSniffer captures the first 8 decoded bytes without
// reordering or discarding them, splicing them back into the reads
// that deliver them, so determineExtension can be queried at any later
// point in the stream's lifetime.
type extensionSniffer struct {
	underlying io.Reader
	magic      [8]byte
	magicLen   int // bytes captured into magic
	served     int // bytes of magic already handed back to the caller
}

func newExtensionSniffer(r io.Reader) *extensionSniffer {
	return &extensionSniffer{underlying: r}
}

func (s *extensionSniffer) Read(buf []byte) (int, error) {
	if len(buf) == 0 {
		return 0, nil
	}
	if s.served < s.magicLen {
		n := copy(buf, s.magic[s.served:s.magicLen])
		s.served += n
		return n, nil
	}
	if s.magicLen < 8 {
		n, err := s.underlying.Read(s.magic[s.magicLen:])
		s.magicLen += n
		served := copy(buf, s.magic[s.served:s.magicLen])
		s.served += served
		if s.served < s.magicLen {
			// undelivered sniffed bytes remain; the caller sees the
			// error once they've all been handed out.
			return served, nil
		}
		return served, err
	}
	return s.underlying.Read(buf)
}

func (s *extensionSniffer) determineExtension() (string, bool) {
	if s.magicLen < 8 {
		return "", false
	}
	return determineExtension(s.magic)
}
