package cipher

import (
	"bytes"
	"encoding/binary"
	"math/big"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecryptEntryTable_isSelfInverse(t *testing.T) {
	encKey := []byte{0x01, 0x02, 0x03, 0x04, 0x05}
	plain := []byte("the quick brown fox jumps over the lazy dog, an entry table fixture")

	key := UnwrapEntryTableKey(encKey)
	require.NotEmpty(t, key)
	require.GreaterOrEqual(t, len(key), 32)

	scrambled := DecryptEntryTable(plain, encKey)
	require.NotEqual(t, plain, scrambled)

	restored := DecryptEntryTable(scrambled, encKey)
	require.Equal(t, plain, restored)
}

func TestUnwrapEntryTableKey_isDeterministic(t *testing.T) {
	encKey := []byte{0xAA, 0xBB, 0xCC}
	k1 := UnwrapEntryTableKey(encKey)
	k2 := UnwrapEntryTableKey(encKey)
	require.Equal(t, k1, k2)
}

func TestDecryptResourcePayload_tripsOnShortBlockAndTrimsZeros(t *testing.T) {
	// Craft one block whose key raised to the fixed exponent mod the
	// fixed modulus divides the data term exactly, then verify the
	// quotient's low 64 bits come back out and trailing zero bytes are
	// trimmed off the result.
	keyInt := big.NewInt(7)
	mod := new(big.Int).Exp(keyInt, resourceExponent, resourceModulus)
	require.NotZero(t, mod.Sign())

	want := uint64(123456789)
	data := new(big.Int).Mul(mod, new(big.Int).SetUint64(want))

	var buf bytes.Buffer
	var sizeHint [8]byte
	binary.LittleEndian.PutUint64(sizeHint[:], 8)
	buf.Write(sizeHint[:])

	block := make([]byte, 128)
	copy(block[0:64], leBytesPadded(keyInt, 64))
	copy(block[64:128], leBytesPadded(data, 64))
	buf.Write(block)

	// short trailing bytes: end the stream mid-block, which must be
	// treated as a clean end rather than an error.
	buf.Write([]byte{0x01, 0x02, 0x03})

	out, err := DecryptResourcePayload(&buf)
	require.NoError(t, err)

	var wantBytes [8]byte
	binary.LittleEndian.PutUint64(wantBytes[:], want)
	trimmed := bytes.TrimRight(wantBytes[:], "\x00")
	require.Equal(t, trimmed, out)
}

func leBytesPadded(n *big.Int, size int) []byte {
	be := n.Bytes()
	out := make([]byte, size)
	for i, v := range be {
		out[len(be)-1-i] = v
	}
	return out
}
