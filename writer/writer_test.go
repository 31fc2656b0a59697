package writer

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/rpcpool/go-pak/archive"
	"github.com/rpcpool/go-pak/hasher"
	"github.com/rpcpool/go-pak/spec"
)

// seekBuffer adapts a bytes.Buffer-backed slice into an io.WriteSeeker
// for tests, since bytes.Buffer itself doesn't support seeking.
type seekBuffer struct {
	buf []byte
	pos int64
}

func (s *seekBuffer) Write(p []byte) (int, error) {
	end := s.pos + int64(len(p))
	if end > int64(len(s.buf)) {
		grown := make([]byte, end)
		copy(grown, s.buf)
		s.buf = grown
	}
	n := copy(s.buf[s.pos:end], p)
	s.pos = end
	return n, nil
}

func (s *seekBuffer) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
		s.pos = offset
	case io.SeekCurrent:
		s.pos += offset
	case io.SeekEnd:
		s.pos = int64(len(s.buf)) + offset
	}
	return s.pos, nil
}

func TestWriter_roundTripsThroughArchiveRead(t *testing.T) {
	sb := &seekBuffer{}
	w, err := New(sb, 3)
	require.NoError(t, err)

	write := func(name string, payload []byte) {
		require.NoError(t, w.StartFile(hasher.HashMixed(name), spec.Attributes{}))
		_, err := w.Write(payload)
		require.NoError(t, err)
	}

	write("a.txt", []byte("alpha"))
	write("b.txt", []byte("beta beta"))

	require.NoError(t, w.Finish())
	w.Close()

	a, err := archive.Read(bytes.NewReader(sb.buf))
	require.NoError(t, err)
	require.Len(t, a.Entries, 2)
	require.EqualValues(t, 4, a.Header.MajorVersion)
	require.EqualValues(t, 0, a.Header.MinorVersion)

	entryA, ok := a.FindByHash(hasher.HashMixed("a.txt"))
	require.True(t, ok)
	require.EqualValues(t, 5, entryA.UncompressedSize)
	require.EqualValues(t, 5, entryA.CompressedSize)

	entryB, ok := a.FindByHash(hasher.HashMixed("b.txt"))
	require.True(t, ok)
	require.EqualValues(t, 9, entryB.UncompressedSize)
}

func TestWriter_exceedingPreallocationFails(t *testing.T) {
	sb := &seekBuffer{}
	w, err := New(sb, 1)
	require.NoError(t, err)

	require.NoError(t, w.StartFile(1, spec.Attributes{}))
	_, err = w.Write([]byte("x"))
	require.NoError(t, err)

	err = w.StartFile(2, spec.Attributes{})
	require.Error(t, err)
	var exceeded *EntryCountExceededError
	require.ErrorAs(t, err, &exceeded)
}

func TestWriter_wastedSlackStillValid(t *testing.T) {
	sb := &seekBuffer{}
	w, err := New(sb, 5)
	require.NoError(t, err)

	require.NoError(t, w.StartFile(1, spec.Attributes{}))
	_, err = w.Write([]byte("only one file"))
	require.NoError(t, err)

	require.NoError(t, w.Finish())
	w.Close()

	a, err := archive.Read(bytes.NewReader(sb.buf))
	require.NoError(t, err)
	require.Len(t, a.Entries, 1)
}

func TestWriter_closeWithoutFinishPanics(t *testing.T) {
	sb := &seekBuffer{}
	w, err := New(sb, 1)
	require.NoError(t, err)
	require.NoError(t, w.StartFile(1, spec.Attributes{}))

	require.Panics(t, func() { w.Close() })
}
