package filenametable

import (
	"bytes"
	"context"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/require"

	"github.com/rpcpool/go-pak/hasher"
)

func TestLoad_plainText(t *testing.T) {
	raw := []byte("# comment\n\nnatives/stm/a.mesh\r\nnatives\\stm\\b.tex\n")

	tbl, err := Load(context.Background(), raw)
	require.NoError(t, err)
	require.Equal(t, 2, tbl.Len())

	name, ok := tbl.Lookup(hasher.HashMixed("natives/stm/a.mesh"))
	require.True(t, ok)
	require.Equal(t, "natives/stm/a.mesh", name)

	name, ok = tbl.Lookup(hasher.HashMixed("natives/stm/b.tex"))
	require.True(t, ok)
	require.Equal(t, "natives/stm/b.tex", name)
}

func TestLoad_zstdCompressed(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll([]byte("a/b/c.txt\n"), nil)
	require.NoError(t, enc.Close())
	require.True(t, bytes.HasPrefix(compressed, zstdMagic[:]))

	tbl, err := Load(context.Background(), compressed)
	require.NoError(t, err)
	require.Equal(t, 1, tbl.Len())

	_, ok := tbl.Lookup(hasher.HashMixed("a/b/c.txt"))
	require.True(t, ok)
}

func TestLoad_invalidUtf8(t *testing.T) {
	_, err := Load(context.Background(), []byte{0xff, 0xfe, 0xfd})
	require.Error(t, err)
	var encErr *InvalidEncodingError
	require.ErrorAs(t, err, &encErr)
}

func TestLoad_lastWriteWinsOnCollision(t *testing.T) {
	tbl := newTable()
	// ASCII case variants hash identically, so these two distinct names
	// collide on one key.
	tbl.Insert("SAME")
	tbl.Insert("same")
	require.Equal(t, 1, tbl.Len())

	name, ok := tbl.Lookup(hasher.HashMixed("same"))
	require.True(t, ok)
	require.Equal(t, "same", name)
}
