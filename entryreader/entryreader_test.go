package entryreader

import (
	"bytes"
	"compress/flate"
	"io"
	"testing"
	"testing/iotest"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/rpcpool/go-pak/spec"
)

func attrsFor(compression spec.CompressionKind, encryption spec.EncryptionKind) spec.Attributes {
	raw := uint64(compression) | uint64(encryption)<<16
	return spec.DecodeAttributes(raw)
}

func TestReader_storePassthrough(t *testing.T) {
	payload := []byte("hello world, this is a store entry")

	r, err := New(bytes.NewReader(payload), attrsFor(spec.CompressionStore, spec.EncryptionNone))
	require.NoError(t, err)
	defer r.Close()

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)
}

func TestReader_deflateRaw(t *testing.T) {
	payload := []byte("deflate me please, a reasonably long test payload for compression")

	var buf bytes.Buffer
	w, err := flate.NewWriter(&buf, flate.DefaultCompression)
	require.NoError(t, err)
	_, err = w.Write(payload)
	require.NoError(t, err)
	require.NoError(t, w.Close())

	r, err := New(&buf, attrsFor(spec.CompressionDeflate, spec.EncryptionNone))
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)
	require.NoError(t, r.Close())
}

func TestReader_zstd(t *testing.T) {
	payload := []byte("zstd compressed payload for the entry reader pipeline test")

	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(payload, nil)
	require.NoError(t, enc.Close())

	r, err := New(bytes.NewReader(compressed), attrsFor(spec.CompressionZstd, spec.EncryptionNone))
	require.NoError(t, err)

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)
	require.NoError(t, r.Close())
}

func TestReader_sniffsExtensionWithoutAlteringStream(t *testing.T) {
	// 0x584554 little-endian as the first 4 bytes -> "tex" per the
	// magic_lower table.
	payload := append([]byte{0x54, 0x45, 0x58, 0x00, 0xAA, 0xBB, 0xCC, 0xDD}, []byte("...tail bytes")...)

	r, err := New(bytes.NewReader(payload), attrsFor(spec.CompressionStore, spec.EncryptionNone))
	require.NoError(t, err)
	defer r.Close()

	_, ok := r.DetermineExtension()
	require.False(t, ok, "must return false before 8 bytes have flowed through")

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	require.Equal(t, payload, out)

	ext, ok := r.DetermineExtension()
	require.True(t, ok)
	require.Equal(t, "tex", ext)
}

func TestReader_smallBufferReadsLoseNothing(t *testing.T) {
	payload := append([]byte{0x54, 0x45, 0x58, 0x00, 0xAA, 0xBB, 0xCC, 0xDD}, []byte("tail after the magic window")...)

	r, err := New(bytes.NewReader(payload), attrsFor(spec.CompressionStore, spec.EncryptionNone))
	require.NoError(t, err)
	defer r.Close()

	var out []byte
	buf := make([]byte, 3)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, payload, out)

	ext, ok := r.DetermineExtension()
	require.True(t, ok)
	require.Equal(t, "tex", ext)
}

func TestReader_shortPayloadSmallBuffers(t *testing.T) {
	// Fewer than 8 bytes total, delivered by a reader that returns EOF
	// together with the final data: nothing may be lost, and no
	// extension is ever guessed.
	payload := []byte{1, 2, 3, 4, 5}

	r, err := New(iotest.DataErrReader(bytes.NewReader(payload)), attrsFor(spec.CompressionStore, spec.EncryptionNone))
	require.NoError(t, err)
	defer r.Close()

	var out []byte
	buf := make([]byte, 2)
	for {
		n, err := r.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
	}
	require.Equal(t, payload, out)

	_, ok := r.DetermineExtension()
	require.False(t, ok)
}

func TestReader_unsupportedCompressionKind(t *testing.T) {
	_, err := New(bytes.NewReader(nil), attrsFor(spec.CompressionKind(0xF), spec.EncryptionNone))
	require.Error(t, err)
	var compErr *UnsupportedCompressionError
	require.ErrorAs(t, err, &compErr)
}
