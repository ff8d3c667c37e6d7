package wire

import (
	"fmt"
	"io"
	"strings"

	"lanchat/chaterr"
)

// ValidateMessage trims surrounding whitespace from raw and checks it
// against the SAY/SAY_DISPATCH length cap. It returns the trimmed text.
func ValidateMessage(raw string) (string, error) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return "", fmt.Errorf("%w: message is empty", chaterr.ErrInvalidArgument)
	}
	enc, err := encodeUTF16LE(text)
	if err != nil {
		return "", fmt.Errorf("%w: %v", chaterr.ErrInvalidArgument, err)
	}
	if len(enc) > MaxMessageBytes {
		return "", fmt.Errorf("%w: message exceeds %d encoded bytes", chaterr.ErrInvalidArgument, MaxMessageBytes)
	}
	return text, nil
}

// ValidateName trims surrounding whitespace from raw and checks it against
// the SET_NAME length cap. It returns the trimmed name.
func ValidateName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	if name == "" {
		return "", fmt.Errorf("%w: name is empty", chaterr.ErrInvalidArgument)
	}
	enc, err := encodeUTF16LE(name)
	if err != nil {
		return "", fmt.Errorf("%w: %v", chaterr.ErrInvalidArgument, err)
	}
	if len(enc) > MaxNameBytes {
		return "", fmt.Errorf("%w: name exceeds %d encoded bytes", chaterr.ErrInvalidArgument, MaxNameBytes)
	}
	return name, nil
}

// EncodeSay builds a SAY frame (opcode + u16 length + UTF-16LE text). msg
// must already be validated by ValidateMessage.
func EncodeSay(msg string) ([]byte, error) {
	enc, err := encodeUTF16LE(msg)
	if err != nil {
		return nil, err
	}
	var b Builder
	b.Byte(byte(OpSay))
	b.Uint16(uint16(len(enc)))
	b.Raw(enc)
	return b.Bytes(), nil
}

// EncodeSetName builds a SET_NAME frame (opcode + u8 length + UTF-16LE
// text). name must already be validated by ValidateName.
func EncodeSetName(name string) ([]byte, error) {
	enc, err := encodeUTF16LE(name)
	if err != nil {
		return nil, err
	}
	var b Builder
	b.Byte(byte(OpSetName))
	b.Byte(byte(len(enc)))
	b.Raw(enc)
	return b.Bytes(), nil
}

// EncodeSayDispatch builds a SAY_DISPATCH frame (opcode + u8 name length +
// UTF-16LE name + u16 message length + UTF-16LE message).
func EncodeSayDispatch(name, msg string) ([]byte, error) {
	encName, err := encodeUTF16LE(name)
	if err != nil {
		return nil, err
	}
	if len(encName) > MaxNameBytes {
		return nil, fmt.Errorf("%w: name exceeds %d encoded bytes", chaterr.ErrInvalidArgument, MaxNameBytes)
	}
	encMsg, err := encodeUTF16LE(msg)
	if err != nil {
		return nil, err
	}
	if len(encMsg) > MaxMessageBytes {
		return nil, fmt.Errorf("%w: message exceeds %d encoded bytes", chaterr.ErrInvalidArgument, MaxMessageBytes)
	}

	var b Builder
	b.Byte(byte(OpSayDispatch))
	b.Byte(byte(len(encName)))
	b.Raw(encName)
	b.Uint16(uint16(len(encMsg)))
	b.Raw(encMsg)
	return b.Bytes(), nil
}

// ReadOpcode reads a single opcode byte from r.
func ReadOpcode(r io.Reader) (Opcode, error) {
	var buf [1]byte
	if _, err := io.ReadFull(r, buf[:]); err != nil {
		return 0, err
	}
	return Opcode(buf[0]), nil
}

// ReadSay reads a SAY payload (u16 length + UTF-16LE text) from r. The
// opcode byte must already have been consumed by the caller.
func ReadSay(r io.Reader) (string, error) {
	var lenBuf [2]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	n := int(lenBuf[0]) | int(lenBuf[1])<<8
	payload := make([]byte, n)
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}
	return decodeUTF16LE(payload)
}

// ReadSetName reads a SET_NAME payload (u8 length + UTF-16LE text) from r.
// The opcode byte must already have been consumed by the caller.
func ReadSetName(r io.Reader) (string, error) {
	var lenBuf [1]byte
	if _, err := io.ReadFull(r, lenBuf[:]); err != nil {
		return "", err
	}
	payload := make([]byte, lenBuf[0])
	if _, err := io.ReadFull(r, payload); err != nil {
		return "", err
	}
	return decodeUTF16LE(payload)
}

// ReadSayDispatch reads a SAY_DISPATCH payload (u8 name length + UTF-16LE
// name + u16 message length + UTF-16LE message) from r. The opcode byte
// must already have been consumed by the caller.
func ReadSayDispatch(r io.Reader) (name, msg string, err error) {
	var nameLenBuf [1]byte
	if _, err = io.ReadFull(r, nameLenBuf[:]); err != nil {
		return "", "", err
	}
	namePayload := make([]byte, nameLenBuf[0])
	if _, err = io.ReadFull(r, namePayload); err != nil {
		return "", "", err
	}
	name, err = decodeUTF16LE(namePayload)
	if err != nil {
		return "", "", err
	}

	var msgLenBuf [2]byte
	if _, err = io.ReadFull(r, msgLenBuf[:]); err != nil {
		return "", "", err
	}
	n := int(msgLenBuf[0]) | int(msgLenBuf[1])<<8
	msgPayload := make([]byte, n)
	if _, err = io.ReadFull(r, msgPayload); err != nil {
		return "", "", err
	}
	msg, err = decodeUTF16LE(msgPayload)
	if err != nil {
		return "", "", err
	}
	return name, msg, nil
}
