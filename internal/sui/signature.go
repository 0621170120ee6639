package sui

import (
	"crypto/ed25519"
	"encoding/base64"
	"fmt"
	"math/big"

	"github.com/mr-tron/base58"
	"golang.org/x/crypto/blake2b"

	"github.com/layer-3/zklogin/core"
	"github.com/layer-3/zklogin/internal/bcs"
	"github.com/layer-3/zklogin/internal/zkcrypto"
)

// transactionIntent is the intent prefix for transaction data: scope 0, version 0, app id 0
var transactionIntent = []byte{0, 0, 0}

// IntentDigest is the message an account signs for txBytes
func IntentDigest(txBytes []byte) [32]byte {
	msg := make([]byte, 0, len(transactionIntent)+len(txBytes))
	msg = append(msg, transactionIntent...)
	msg = append(msg, txBytes...)
	return blake2b.Sum256(msg)
}

// TransactionDigest is the base58 id the chain assigns to txBytes
func TransactionDigest(txBytes []byte) string {
	msg := append([]byte("TransactionData::"), txBytes...)
	sum := blake2b.Sum256(msg)
	return base58.Encode(sum[:])
}

// SignTransaction returns the serialized ephemeral signature flag || sig || pk, base64 encoded
func SignTransaction(kp core.EphemeralKeyPair, txBytes []byte) (string, error) {
	if len(kp.PrivateKey) != ed25519.PrivateKeySize {
		return "", fmt.Errorf("invalid ephemeral private key")
	}
	digest := IntentDigest(txBytes)
	sig := ed25519.Sign(kp.PrivateKey, digest[:])

	out := make([]byte, 0, 1+len(sig)+len(kp.PublicKey))
	out = append(out, zkcrypto.Ed25519Flag)
	out = append(out, sig...)
	out = append(out, kp.PublicKey...)
	return base64.StdEncoding.EncodeToString(out), nil
}

// ZkLoginSignature is the authorization submitted alongside a transaction
type ZkLoginSignature struct {
	Proof         core.ZKProof
	AddressSeed   *big.Int
	MaxEpoch      uint64
	UserSignature []byte
}

// MarshalBCS encodes the zkLogin inputs, max epoch and user signature
func (z ZkLoginSignature) MarshalBCS(e *bcs.Encoder) {
	p := z.Proof.ProofPoints
	e.StringVector(p.A)
	e.ULEB128(uint64(len(p.B)))
	for _, row := range p.B {
		e.StringVector(row)
	}
	e.StringVector(p.C)

	e.String(z.Proof.IssBase64Details.Value)
	e.U8(z.Proof.IssBase64Details.IndexMod4)
	e.String(z.Proof.HeaderBase64)
	e.String(z.AddressSeed.String())

	e.U64(z.MaxEpoch)
	e.ByteVector(z.UserSignature)
}

// Serialize returns the flagged base64 form accepted by the chain
func (z ZkLoginSignature) Serialize() string {
	body := bcs.Marshal(z)
	out := make([]byte, 0, 1+len(body))
	out = append(out, zkcrypto.ZkLoginFlag)
	out = append(out, body...)
	return base64.StdEncoding.EncodeToString(out)
}

// NewZkLoginSignature combines a proof and the base64 ephemeral signature
func NewZkLoginSignature(proof core.ZKProof, seed *big.Int, maxEpoch uint64, userSignature string) (ZkLoginSignature, error) {
	raw, err := base64.StdEncoding.DecodeString(userSignature)
	if err != nil {
		return ZkLoginSignature{}, fmt.Errorf("failed to decode user signature: %w", err)
	}
	if len(raw) != 1+ed25519.SignatureSize+ed25519.PublicKeySize || raw[0] != zkcrypto.Ed25519Flag {
		return ZkLoginSignature{}, fmt.Errorf("user signature is not a serialized ed25519 signature")
	}
	if seed == nil {
		return ZkLoginSignature{}, fmt.Errorf("missing address seed")
	}
	return ZkLoginSignature{
		Proof:         proof,
		AddressSeed:   seed,
		MaxEpoch:      maxEpoch,
		UserSignature: raw,
	}, nil
}
