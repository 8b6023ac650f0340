package slotvm

import (
	"encoding/binary"
	"errors"
)

var (
	ErrInvalidValueFormat  = errors.New("invalid slot value format")
	ErrInvalidUint64Format = errors.New("invalid uint64 encoding")
)

// SlotKey returns the database key for [slot]: 8 bytes, big-endian, so the
// natural slot order and the key iteration order agree.
func SlotKey(slot uint64) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, slot)
	return key
}

// PackUint64 returns the big-endian byte representation of [v].
func PackUint64(v uint64) []byte {
	raw := make([]byte, 8)
	binary.BigEndian.PutUint64(raw, v)
	return raw
}

// UnpackUint64 parses an 8 byte big-endian value.
func UnpackUint64(raw []byte) (uint64, error) {
	if len(raw) != 8 {
		return 0, ErrInvalidUint64Format
	}
	return binary.BigEndian.Uint64(raw), nil
}

// UnmarshalValue parses a stored slot value.
func UnmarshalValue(raw []byte) ([ValueLen]byte, error) {
	var value [ValueLen]byte
	if len(raw) != ValueLen {
		return value, ErrInvalidValueFormat
	}
	copy(value[:], raw)
	return value, nil
}
