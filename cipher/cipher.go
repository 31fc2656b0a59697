// Package cipher implements the two RSA-like codecs a KPKA container
// can apply: one unwraps the encrypted entry table, the other decrypts
// a resource payload in 128-byte blocks. Both use fixed modulus/exponent pairs
// baked into the format itself rather than a per-archive key.
package cipher

import (
	"encoding/binary"
	"io"
	"math/big"
)

// entryTableModulus and entryTableExponent are the fixed RSA-like
// parameters used to unwrap the encrypted entry table's obfuscation
// key.
var (
	entryTableModulus  = leBigInt([]byte{
		0x7D, 0x0B, 0xF8, 0xC1, 0x7C, 0x23, 0xFD, 0x3B, 0xD4, 0x75, 0x16, 0xD2, 0x33, 0x21, 0xD8, 0x10,
		0x71, 0xF9, 0x7C, 0xD1, 0x34, 0x93, 0xBA, 0x77, 0x26, 0xFC, 0xAB, 0x2C, 0xEE, 0xDA, 0xD9, 0x1C,
		0x89, 0xE7, 0x29, 0x7B, 0xDD, 0x8A, 0xAE, 0x50, 0x39, 0xB6, 0x01, 0x6D, 0x21, 0x89, 0x5D, 0xA5,
		0xA1, 0x3E, 0xA2, 0xC0, 0x8C, 0x93, 0x13, 0x36, 0x65, 0xEB, 0xE8, 0xDF, 0x06, 0x17, 0x67, 0x96,
		0x06, 0x2B, 0xAC, 0x23, 0xED, 0x8C, 0xB7, 0x8B, 0x90, 0xAD, 0xEA, 0x71, 0xC4, 0x40, 0x44, 0x9D,
		0x1C, 0x7B, 0xBA, 0xC4, 0xB6, 0x2D, 0xD6, 0xD2, 0x4B, 0x62, 0xD6, 0x26, 0xFC, 0x74, 0x20, 0x07,
		0xEC, 0xE3, 0x59, 0x9A, 0xE6, 0xAF, 0xB9, 0xA8, 0x35, 0x8B, 0xE0, 0xE8, 0xD3, 0xCD, 0x45, 0x65,
		0xB0, 0x91, 0xC4, 0x95, 0x1B, 0xF3, 0x23, 0x1E, 0xC6, 0x71, 0xCF, 0x3E, 0x35, 0x2D, 0x6B, 0xE3,
		0x00,
	})
	entryTableExponent = leBigInt([]byte{0x01, 0x00, 0x01, 0x00})
)

// resourceModulus and resourceExponent are the fixed RSA-like
// parameters used to decrypt an individual resource payload.
var (
	resourceModulus = leBigInt([]byte{
		0x13, 0xD7, 0x9C, 0x89, 0x88, 0x91, 0x48, 0x10, 0xD7, 0xAA, 0x78, 0xAE, 0xF8, 0x59, 0xDF, 0x7D,
		0x3C, 0x43, 0xA0, 0xD0, 0xBB, 0x36, 0x77, 0xB5, 0xF0, 0x5C, 0x02, 0xAF, 0x65, 0xD8, 0x77, 0x03,
		0x00,
	})
	resourceExponent = leBigInt([]byte{
		0xC0, 0xC2, 0x77, 0x1F, 0x5B, 0x34, 0x6A, 0x01, 0xC7, 0xD4, 0xD7, 0x85, 0x2E, 0x42, 0x2B, 0x3B,
		0x16, 0x3A, 0x17, 0x13, 0x16, 0xEA, 0x83, 0x30, 0x30, 0xDF, 0x3F, 0xF4, 0x25, 0x93, 0x20, 0x01,
		0x00,
	})
)

const entryTableKeySize = 129

// leBigInt interprets b as the little-endian bytes of an unsigned
// integer; math/big only natively parses big-endian, so reverse first.
func leBigInt(b []byte) *big.Int {
	rev := make([]byte, len(b))
	for i, v := range b {
		rev[len(b)-1-i] = v
	}
	return new(big.Int).SetBytes(rev)
}

// toLEBytes serializes n to little-endian bytes with no padding,
// mirroring num::BigUint::to_bytes_le's minimal-length output.
func toLEBytes(n *big.Int) []byte {
	be := n.Bytes()
	out := make([]byte, len(be))
	for i, v := range be {
		out[len(be)-1-i] = v
	}
	return out
}

// UnwrapEntryTableKey derives the XOR key used to decrypt an encrypted
// entry table from its on-disk obfuscated form: encKey is resized to
// 129 bytes (zero-padded), modexp'd against the fixed entry-table
// modulus/exponent, and the result serialized back to little-endian
// bytes.
func UnwrapEntryTableKey(encKey []byte) []byte {
	padded := make([]byte, entryTableKeySize)
	copy(padded, encKey)

	encKeyInt := leBigInt(padded)
	result := new(big.Int).Exp(encKeyInt, entryTableExponent, entryTableModulus)
	return toLEBytes(result)
}

// DecryptEntryTable reverses the entry table's byte-wise XOR
// obfuscation: UnwrapEntryTableKey(encKey) supplies the running key,
// and byte i of data is XORed with (i + key[i%32]*key[i%29]) mod 256.
func DecryptEntryTable(data, encKey []byte) []byte {
	key := UnwrapEntryTableKey(encKey)
	out := make([]byte, len(data))
	for i, b := range data {
		mix := i + int(key[i%32])*int(key[i%29])
		out[i] = b ^ byte(mix)
	}
	return out
}

// DecryptResourcePayload decrypts an encrypted resource payload from
// r. The first 8 bytes are a little-endian size hint used only to
// pre-size the output buffer; the remainder is consumed in 128-byte
// blocks, each split into a 64-byte key and 64-byte ciphertext
// bigint, decrypted by dividing the ciphertext by key^exponent mod
// modulus, keeping only the low 64 bits of the quotient per block. A
// short final read (fewer than 128 bytes remaining) ends the stream
// cleanly; trailing zero bytes left over from block padding are
// trimmed from the result.
func DecryptResourcePayload(r io.Reader) ([]byte, error) {
	var sizeBuf [8]byte
	if _, err := io.ReadFull(r, sizeBuf[:]); err != nil {
		return nil, err
	}
	sizeHint := binary.LittleEndian.Uint64(sizeBuf[:])

	out := make([]byte, 0, sizeHint+1)
	var block [128]byte
	for {
		if _, err := io.ReadFull(r, block[:]); err != nil {
			if err == io.ErrUnexpectedEOF || err == io.EOF {
				break
			}
			return nil, err
		}

		key := leBigInt(block[0:64])
		data := leBigInt(block[64:128])

		mod := new(big.Int).Exp(key, resourceExponent, resourceModulus)
		if mod.Sign() == 0 {
			continue
		}
		result := new(big.Int).Quo(data, mod)
		if result.Sign() == 0 {
			continue
		}

		low64 := new(big.Int).And(result, maxUint64)
		var digit [8]byte
		binary.LittleEndian.PutUint64(digit[:], low64.Uint64())
		out = append(out, digit[:]...)
	}

	for len(out) > 0 && out[len(out)-1] == 0 {
		out = out[:len(out)-1]
	}
	return out, nil
}

var maxUint64 = new(big.Int).SetUint64(^uint64(0))
