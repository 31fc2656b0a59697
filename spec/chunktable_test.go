package spec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func le32(v uint32) []byte {
	return []byte{byte(v), byte(v >> 8), byte(v >> 16), byte(v >> 24)}
}

func TestReadChunkTable_reconstructsWrappedOffsets(t *testing.T) {
	var buf bytes.Buffer
	buf.Write(le32(1 << 20)) // block size
	buf.Write(le32(3))       // count

	// starts, expressed as low 32 bits only: the third wraps past 4GiB.
	starts := []uint64{0, (1 << 32) - (1 << 20), (1 << 32) + (2 << 20)}
	metas := []uint32{ChunkRawMeta, 4096 << 10, ChunkRawMeta}
	for i := range starts {
		buf.Write(le32(uint32(starts[i])))
		buf.Write(le32(metas[i]))
	}

	hdr, descs, err := ReadChunkTable(&buf)
	require.NoError(t, err)
	require.EqualValues(t, 1<<20, hdr.BlockSize)
	require.EqualValues(t, 3, hdr.Count)
	require.Len(t, descs, 3)

	for i, want := range starts {
		require.Equalf(t, want, descs[i].Start, "descriptor %d", i)
	}

	require.True(t, descs[0].IsRaw())
	require.False(t, descs[1].IsRaw())
	require.EqualValues(t, hdr.BlockSize, descs[0].CompressedLen(hdr.BlockSize))
	require.EqualValues(t, 4096, descs[1].CompressedLen(hdr.BlockSize))
	require.True(t, descs[2].IsRaw())
}

func TestWriteChunkTable_roundtripsLowWord(t *testing.T) {
	hdr := ChunkTableHeader{BlockSize: 65536, Count: 2}
	descs := []ChunkDesc{
		{Start: 0, Meta: ChunkRawMeta},
		{Start: 65536, Meta: 1000 << 10},
	}

	var buf bytes.Buffer
	require.NoError(t, WriteChunkTable(&buf, hdr, descs))

	gotHdr, gotDescs, err := ReadChunkTable(&buf)
	require.NoError(t, err)
	require.Equal(t, hdr, gotHdr)
	require.Equal(t, descs, gotDescs)
}
