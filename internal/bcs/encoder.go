// Package bcs implements the subset of Binary Canonical Serialization needed to build
// Sui transaction data and zkLogin signatures.
package bcs

import (
	"bytes"
	"encoding/binary"
)

// Marshaler is implemented by values that know their BCS layout
type Marshaler interface {
	MarshalBCS(e *Encoder)
}

// Encoder accumulates BCS encoded bytes
type Encoder struct {
	buf bytes.Buffer
}

// NewEncoder returns an empty encoder
func NewEncoder() *Encoder {
	return &Encoder{}
}

// Marshal encodes v into a fresh byte slice
func Marshal(v Marshaler) []byte {
	e := NewEncoder()
	v.MarshalBCS(e)
	return e.Bytes()
}

// Bytes returns the encoded bytes
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// ULEB128 writes a length or enum tag
func (e *Encoder) ULEB128(v uint64) {
	for {
		b := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			b |= 0x80
		}
		e.buf.WriteByte(b)
		if v == 0 {
			return
		}
	}
}

// U8 writes v as one byte
func (e *Encoder) U8(v uint8) {
	e.buf.WriteByte(v)
}

// U16 writes v little-endian
func (e *Encoder) U16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

// U64 writes v little-endian
func (e *Encoder) U64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

// Bool writes 0x01 or 0x00
func (e *Encoder) Bool(v bool) {
	if v {
		e.U8(1)
		return
	}
	e.U8(0)
}

// Fixed writes b without a length prefix
func (e *Encoder) Fixed(b []byte) {
	e.buf.Write(b)
}

// ByteVector writes a length prefixed byte vector
func (e *Encoder) ByteVector(b []byte) {
	e.ULEB128(uint64(len(b)))
	e.buf.Write(b)
}

// String writes s as a length-prefixed byte vector
func (e *Encoder) String(s string) {
	e.ByteVector([]byte(s))
}

// StringVector writes a length-prefixed vector of strings
func (e *Encoder) StringVector(v []string) {
	e.ULEB128(uint64(len(v)))
	for _, s := range v {
		e.String(s)
	}
}

// Vector writes a length prefixed sequence of marshalers
func Vector[T Marshaler](e *Encoder, items []T) {
	e.ULEB128(uint64(len(items)))
	for _, item := range items {
		item.MarshalBCS(e)
	}
}
