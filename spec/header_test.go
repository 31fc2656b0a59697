package spec

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadHeader_golden(t *testing.T) {
	raw := []byte{
		0x4B, 0x50, 0x4B, 0x41,
		0x04, 0x00,
		0x08, 0x00,
		0x2D, 0x9C, 0x00, 0x00,
		0x95, 0x41, 0x39, 0x9F,
	}

	h, err := ReadHeader(bytes.NewReader(raw))
	require.NoError(t, err)
	require.Equal(t, Magic, h.Magic)
	require.EqualValues(t, 4, h.MajorVersion)
	require.EqualValues(t, 0, h.MinorVersion)
	require.EqualValues(t, FeatureEntryEncryption, h.Feature)
	require.EqualValues(t, 0x00009C2D, h.TotalFiles)
	require.EqualValues(t, 0x9F394195, h.Hash)
	require.Equal(t, EntryV2Size, h.EntrySize())
	require.False(t, h.IsV1())
	require.True(t, h.HasFeature(FeatureEntryEncryption))
	require.False(t, h.HasFeature(FeatureChunkTable))

	out, err := h.MarshalBinary()
	require.NoError(t, err)
	require.Equal(t, raw, out)
}

func TestReadHeader_invalidMagic(t *testing.T) {
	raw := []byte{'X', 'X', 'X', 'X', 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := ReadHeader(bytes.NewReader(raw))
	require.Error(t, err)
	var magicErr *InvalidMagicError
	require.ErrorAs(t, err, &magicErr)
}

func TestReadHeader_unsupportedVersion(t *testing.T) {
	raw := []byte{'K', 'P', 'K', 'A', 3, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := ReadHeader(bytes.NewReader(raw))
	require.Error(t, err)
	var verErr *UnsupportedVersionError
	require.ErrorAs(t, err, &verErr)
}

func TestReadHeader_unsupportedFeature(t *testing.T) {
	raw := []byte{'K', 'P', 'K', 'A', 4, 0, 0x01, 0x00, 0, 0, 0, 0, 0, 0, 0, 0}
	_, err := ReadHeader(bytes.NewReader(raw))
	require.Error(t, err)
	var featErr *UnsupportedFeatureError
	require.ErrorAs(t, err, &featErr)
}

func TestHeader_v1EntrySize(t *testing.T) {
	h := Header{MajorVersion: 2, MinorVersion: 0}
	require.Equal(t, EntryV1Size, h.EntrySize())
	require.True(t, h.IsV1())
}
