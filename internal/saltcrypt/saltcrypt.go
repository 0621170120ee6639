// Package saltcrypt encrypts the user salt with a passphrase.
//
// A bundle is four base64 fields joined by '.': PBKDF2 salt, GCM IV, ciphertext and
// authentication tag.
package saltcrypt

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

const (
	Iterations = 100000
	KeyLength  = 32
	SaltLength = 16
	IVLength   = 12
	TagLength  = 16

	separator = "."
)

var (
	// ErrDecrypt is returned for a wrong passphrase or a tampered bundle
	ErrDecrypt = errors.New("salt decryption failed")

	// ErrMalformedBundle is returned when a bundle does not have four decodable parts
	ErrMalformedBundle = fmt.Errorf("%w: malformed bundle", ErrDecrypt)
)

// Encrypt seals plaintext under a key derived from passphrase.
// Every call draws a fresh PBKDF2 salt and IV.
func Encrypt(plaintext, passphrase string) (string, error) {
	salt, err := randomBytes(SaltLength)
	if err != nil {
		return "", err
	}
	iv, err := randomBytes(IVLength)
	if err != nil {
		return "", err
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	sealed := gcm.Seal(nil, iv, []byte(plaintext), nil)
	ciphertext, tag := sealed[:len(sealed)-TagLength], sealed[len(sealed)-TagLength:]

	return strings.Join([]string{
		encode(salt),
		encode(iv),
		encode(ciphertext),
		encode(tag),
	}, separator), nil
}

// Decrypt opens a bundle produced by Encrypt. It never returns partial plaintext.
func Decrypt(bundle, passphrase string) (string, error) {
	parts := strings.Split(bundle, separator)
	if len(parts) != 4 {
		return "", ErrMalformedBundle
	}
	decoded := make([][]byte, len(parts))
	for i, p := range parts {
		b, err := base64.StdEncoding.DecodeString(p)
		if err != nil {
			return "", ErrMalformedBundle
		}
		decoded[i] = b
	}
	salt, iv, ciphertext, tag := decoded[0], decoded[1], decoded[2], decoded[3]
	if len(salt) != SaltLength || len(iv) != IVLength || len(tag) != TagLength {
		return "", ErrMalformedBundle
	}

	gcm, err := newGCM(passphrase, salt)
	if err != nil {
		return "", err
	}
	sealed := make([]byte, 0, len(ciphertext)+len(tag))
	sealed = append(sealed, ciphertext...)
	sealed = append(sealed, tag...)

	plain, err := gcm.Open(nil, iv, sealed, nil)
	if err != nil {
		return "", ErrDecrypt
	}
	return string(plain), nil
}

func newGCM(passphrase string, salt []byte) (cipher.AEAD, error) {
	key := pbkdf2.Key([]byte(passphrase), salt, Iterations, KeyLength, sha256.New)
	defer zeroBytes(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("error creating new cipher block: %w", err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("error wrapping cipher block in GCM: %w", err)
	}
	return gcm, nil
}

func randomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to read random bytes: %w", err)
	}
	return b, nil
}

func encode(b []byte) string {
	return base64.StdEncoding.EncodeToString(b)
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
