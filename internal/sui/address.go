// Package sui builds, signs and serializes Sui programmable transactions.
package sui

import (
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/mr-tron/base58"
)

const (
	AddressLength = 32
	DigestLength  = 32
)

// Address is a 32 byte account or object id
type Address [AddressLength]byte

// ParseAddress accepts a 0x-prefixed hex address, left padding short forms such as 0x2
func ParseAddress(s string) (Address, error) {
	var a Address
	h := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(s)), "0x")
	if h == "" || len(h) > 2*AddressLength {
		return a, fmt.Errorf("invalid sui address %q", s)
	}
	h = strings.Repeat("0", 2*AddressLength-len(h)) + h
	b, err := hex.DecodeString(h)
	if err != nil {
		return a, fmt.Errorf("invalid sui address %q: %w", s, err)
	}
	copy(a[:], b)
	return a, nil
}

// MustParseAddress panics on invalid input; meant for constants
func MustParseAddress(s string) Address {
	a, err := ParseAddress(s)
	if err != nil {
		panic(err)
	}
	return a
}

// NormalizeAddress returns the full 64 hex digit form of s
func NormalizeAddress(s string) (string, error) {
	a, err := ParseAddress(s)
	if err != nil {
		return "", err
	}
	return a.String(), nil
}

// String returns the 0x-prefixed hex form
func (a Address) String() string {
	return "0x" + hex.EncodeToString(a[:])
}

// ParseDigest decodes a base58 object or transaction digest
func ParseDigest(s string) ([]byte, error) {
	b, err := base58.Decode(s)
	if err != nil {
		return nil, fmt.Errorf("invalid digest %q: %w", s, err)
	}
	if len(b) != DigestLength {
		return nil, fmt.Errorf("invalid digest %q: got %d bytes", s, len(b))
	}
	return b, nil
}
