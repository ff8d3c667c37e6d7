package wire

import (
	"encoding/binary"
	"io"

	"golang.org/x/text/encoding/unicode"
)

// utf16le is the shared codec for the protocol's string fields: UTF-16
// little-endian with no byte order mark.
var utf16le = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

func encodeUTF16LE(s string) ([]byte, error) {
	return utf16le.NewEncoder().Bytes([]byte(s))
}

func decodeUTF16LE(b []byte) (string, error) {
	out, err := utf16le.NewDecoder().Bytes(b)
	if err != nil {
		return "", err
	}
	return string(out), nil
}

// A Builder accumulates a frame into a byte buffer. The zero value is ready
// for use as an empty builder. All multi-byte integers are little-endian.
type Builder struct {
	buf []byte
}

// Byte appends a single byte to b.
func (b *Builder) Byte(v byte) { b.buf = append(b.buf, v) }

// Uint16 appends v to b in little-endian order.
func (b *Builder) Uint16(v uint16) { b.buf = binary.LittleEndian.AppendUint16(b.buf, v) }

// Uint32 appends v to b in little-endian order.
func (b *Builder) Uint32(v uint32) { b.buf = binary.LittleEndian.AppendUint32(b.buf, v) }

// Uint64 appends v to b in little-endian order.
func (b *Builder) Uint64(v uint64) { b.buf = binary.LittleEndian.AppendUint64(b.buf, v) }

// Raw appends the given bytes to b verbatim.
func (b *Builder) Raw(p []byte) { b.buf = append(b.buf, p...) }

// Bytes reports the accumulated frame. The builder retains ownership of the
// returned slice; callers that need to retain it should copy it.
func (b *Builder) Bytes() []byte { return b.buf }

// A Scanner reads fixed-width fields from the front of a byte slice. All
// multi-byte integers are little-endian.
type Scanner struct {
	rest []byte
}

// NewScanner constructs a Scanner over buf. It does not copy buf.
func NewScanner(buf []byte) *Scanner { return &Scanner{rest: buf} }

// Len reports the number of unconsumed bytes.
func (s *Scanner) Len() int { return len(s.rest) }

// Byte consumes and returns a single byte.
func (s *Scanner) Byte() (byte, error) {
	if len(s.rest) < 1 {
		return 0, io.ErrUnexpectedEOF
	}
	v := s.rest[0]
	s.rest = s.rest[1:]
	return v, nil
}

// Uint16 consumes a little-endian uint16.
func (s *Scanner) Uint16() (uint16, error) {
	if len(s.rest) < 2 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint16(s.rest)
	s.rest = s.rest[2:]
	return v, nil
}

// Uint32 consumes a little-endian uint32.
func (s *Scanner) Uint32() (uint32, error) {
	if len(s.rest) < 4 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint32(s.rest)
	s.rest = s.rest[4:]
	return v, nil
}

// Uint64 consumes a little-endian uint64.
func (s *Scanner) Uint64() (uint64, error) {
	if len(s.rest) < 8 {
		return 0, io.ErrUnexpectedEOF
	}
	v := binary.LittleEndian.Uint64(s.rest)
	s.rest = s.rest[8:]
	return v, nil
}

// Take consumes and returns the next n bytes.
func (s *Scanner) Take(n int) ([]byte, error) {
	if len(s.rest) < n {
		return nil, io.ErrUnexpectedEOF
	}
	v := s.rest[:n]
	s.rest = s.rest[n:]
	return v, nil
}
