package sui

import (
	"bytes"
	"encoding/binary"
)

// Encoder writes values in Binary Canonical Serialization.
type Encoder struct {
	buf bytes.Buffer
}

// Bytes returns the encoded bytes.
func (e *Encoder) Bytes() []byte {
	return e.buf.Bytes()
}

// WriteULEB128 writes an unsigned LEB128 integer, used for lengths and enum
// variant indices.
func (e *Encoder) WriteULEB128(v uint64) {
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

func (e *Encoder) WriteU8(v uint8) {
	e.buf.WriteByte(v)
}

func (e *Encoder) WriteU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	e.buf.Write(b[:])
}

func (e *Encoder) WriteBool(v bool) {
	if v {
		e.buf.WriteByte(1)
		return
	}
	e.buf.WriteByte(0)
}

// WriteBytes writes a length-prefixed byte vector.
func (e *Encoder) WriteBytes(b []byte) {
	e.WriteULEB128(uint64(len(b)))
	e.buf.Write(b)
}

// WriteString writes a length-prefixed UTF-8 string.
func (e *Encoder) WriteString(s string) {
	e.WriteULEB128(uint64(len(s)))
	e.buf.WriteString(s)
}

// WriteAddress writes a fixed 32-byte address with no length prefix.
func (e *Encoder) WriteAddress(a Address) {
	e.buf.Write(a[:])
}

// EncodeU64 returns the BCS encoding of a single u64.
func EncodeU64(v uint64) []byte {
	var e Encoder
	e.WriteU64(v)
	return e.Bytes()
}

// DecodeU64 reads a little-endian u64 as returned by dev-inspect.
func DecodeU64(b []byte) (uint64, bool) {
	if len(b) != 8 {
		return 0, false
	}
	return binary.LittleEndian.Uint64(b), true
}
