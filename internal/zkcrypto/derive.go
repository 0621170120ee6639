package zkcrypto

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"golang.org/x/crypto/blake2b"
)

const (
	// Ed25519Flag prefixes an ed25519 public key or signature
	Ed25519Flag byte = 0x00
	// ZkLoginFlag prefixes a zkLogin address preimage or signature
	ZkLoginFlag byte = 0x05

	// NonceLength is the length of an encoded nonce
	NonceLength = 27

	randomnessBytes = 16
	googleIssuer    = "accounts.google.com"
)

// GenerateRandomness returns 16 random bytes as a decimal string
func GenerateRandomness() (string, error) {
	b := make([]byte, randomnessBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate randomness: %w", err)
	}
	return new(big.Int).SetBytes(b).String(), nil
}

// SuiPublicKeyBytes returns flag || public key
func SuiPublicKeyBytes(pk ed25519.PublicKey) []byte {
	out := make([]byte, 0, 1+len(pk))
	out = append(out, Ed25519Flag)
	return append(out, pk...)
}

// ExtendedPublicKey encodes the public key as the proving service expects it
func ExtendedPublicKey(pk ed25519.PublicKey) string {
	return new(big.Int).SetBytes(SuiPublicKeyBytes(pk)).String()
}

// Nonce binds the ephemeral public key, max epoch and randomness into the OAuth nonce
func Nonce(pk ed25519.PublicKey, maxEpoch uint64, randomness string) (string, error) {
	r, err := ParseField(randomness)
	if err != nil {
		return "", err
	}
	pkInt := new(big.Int).SetBytes(SuiPublicKeyBytes(pk))
	shift := new(big.Int).Lsh(big.NewInt(1), 128)
	hi := new(big.Int).Div(pkInt, shift)
	lo := new(big.Int).Mod(pkInt, shift)

	h, err := PoseidonHash([]*big.Int{hi, lo, new(big.Int).SetUint64(maxEpoch), r})
	if err != nil {
		return "", fmt.Errorf("failed to hash nonce inputs: %w", err)
	}
	nonce := base64.RawURLEncoding.EncodeToString(toPaddedBigEndian(h, 20))
	if len(nonce) != NonceLength {
		return "", fmt.Errorf("nonce has length %d, want %d", len(nonce), NonceLength)
	}
	return nonce, nil
}

// AddressSeed binds the salt to the key claim and audience
func AddressSeed(salt, claimName, claimValue, aud string) (*big.Int, error) {
	s, err := ParseField(salt)
	if err != nil {
		return nil, err
	}
	name, err := HashASCIIStrToField(claimName, MaxKeyClaimNameLength)
	if err != nil {
		return nil, err
	}
	value, err := HashASCIIStrToField(claimValue, MaxKeyClaimValueLength)
	if err != nil {
		return nil, err
	}
	audience, err := HashASCIIStrToField(aud, MaxAudValueLength)
	if err != nil {
		return nil, err
	}
	saltHash, err := PoseidonHash([]*big.Int{s})
	if err != nil {
		return nil, err
	}
	return PoseidonHash([]*big.Int{name, value, audience, saltHash})
}

// AddressFromSeed derives the on-chain address for an address seed and issuer
func AddressFromSeed(seed *big.Int, iss string) (string, error) {
	if iss == googleIssuer {
		iss = "https://" + googleIssuer
	}
	if len(iss) > 255 {
		return "", fmt.Errorf("issuer longer than 255 bytes")
	}
	buf := make([]byte, 0, 2+len(iss)+32)
	buf = append(buf, ZkLoginFlag, byte(len(iss)))
	buf = append(buf, iss...)
	buf = append(buf, toPaddedBigEndian(seed, 32)...)

	sum := blake2b.Sum256(buf)
	return hexutil.Encode(sum[:]), nil
}

// Address derives the on-chain address from the identity claims and salt using "sub" as key
// claim. It shares AddressSeed with transaction signing so both always agree.
func Address(iss, sub, aud, salt string) (string, error) {
	seed, err := AddressSeed(salt, "sub", sub, aud)
	if err != nil {
		return "", fmt.Errorf("failed to derive address seed: %w", err)
	}
	return AddressFromSeed(seed, iss)
}
