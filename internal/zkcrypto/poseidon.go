// Package zkcrypto holds the zkLogin field arithmetic shared by nonce, address seed and
// address derivation.
package zkcrypto

import (
	"fmt"
	"math/big"

	"github.com/iden3/go-iden3-crypto/poseidon"
)

const (
	// packWidth is the number of bits packed into one field element
	packWidth = 248

	MaxKeyClaimNameLength  = 32
	MaxKeyClaimValueLength = 115
	MaxAudValueLength      = 145
)

// PoseidonHash hashes up to 32 field elements the way the zkLogin circuits do
func PoseidonHash(inputs []*big.Int) (*big.Int, error) {
	switch {
	case len(inputs) == 0:
		return nil, fmt.Errorf("poseidon: no inputs")
	case len(inputs) <= 16:
		return poseidon.Hash(inputs)
	case len(inputs) <= 32:
		h1, err := poseidon.Hash(inputs[:16])
		if err != nil {
			return nil, err
		}
		h2, err := poseidon.Hash(inputs[16:])
		if err != nil {
			return nil, err
		}
		return poseidon.Hash([]*big.Int{h1, h2})
	default:
		return nil, fmt.Errorf("poseidon: %d inputs exceeds 32", len(inputs))
	}
}

// HashASCIIStrToField pads str with zero bytes to maxSize, packs it into 31-byte big-endian
// chunks and hashes the chunks. Chunks are aligned to the end of the padded string, so only
// the first chunk may be short.
func HashASCIIStrToField(str string, maxSize int) (*big.Int, error) {
	if len(str) > maxSize {
		return nil, fmt.Errorf("string %q is longer than %d chars", str, maxSize)
	}
	padded := make([]byte, maxSize)
	copy(padded, str)

	chunkSize := packWidth / 8
	first := len(padded) % chunkSize
	if first == 0 {
		first = chunkSize
	}
	var packed []*big.Int
	for start, end := 0, first; start < len(padded); start, end = end, end+chunkSize {
		packed = append(packed, new(big.Int).SetBytes(padded[start:end]))
	}
	return PoseidonHash(packed)
}

// ParseField parses a decimal field element such as a salt or randomness value
func ParseField(s string) (*big.Int, error) {
	v, ok := new(big.Int).SetString(s, 10)
	if !ok || v.Sign() < 0 {
		return nil, fmt.Errorf("invalid decimal field element %q", s)
	}
	return v, nil
}

// toPaddedBigEndian returns the last width bytes of v, left padded with zeros
func toPaddedBigEndian(v *big.Int, width int) []byte {
	b := v.Bytes()
	if len(b) >= width {
		return b[len(b)-width:]
	}
	out := make([]byte, width)
	copy(out[width-len(b):], b)
	return out
}
