package wire

import (
	"io"

	"google.golang.org/protobuf/encoding/protowire"
)

// MaxVarintLen is the longest encoding of a 64-bit varint.
const MaxVarintLen = 10

// ReadVarint decodes one unsigned LEB128 varint from r.
//
// It returns io.EOF if r is exhausted before the first byte and ErrTruncated
// if r ends while the continuation bit is still set. Encodings longer than
// ten bytes, or whose tenth byte carries bits past bit 63, are rejected with
// ErrVarintOverflow.
func ReadVarint(r io.ByteReader) (uint64, error) {
	v, _, err := readVarint(r)
	return v, err
}

// readVarint is ReadVarint that also reports how many bytes it consumed.
func readVarint(r io.ByteReader) (uint64, int, error) {
	var result uint64

	for i := 0; i < MaxVarintLen; i++ {
		b, err := r.ReadByte()
		if err != nil {
			if err == io.EOF {
				if i == 0 {
					return 0, 0, io.EOF
				}
				return 0, i, ErrTruncated
			}
			return 0, i, err
		}

		// The tenth byte may only contribute bit 63.
		if i == MaxVarintLen-1 && b > 1 {
			return 0, i + 1, ErrVarintOverflow
		}

		result |= uint64(b&0x7F) << (7 * uint(i))

		// If MSB is not set, we're done
		if b&0x80 == 0 {
			return result, i + 1, nil
		}
	}

	return 0, MaxVarintLen, ErrVarintOverflow
}

// AppendVarint appends the LEB128 encoding of v to b.
func AppendVarint(b []byte, v uint64) []byte {
	return protowire.AppendVarint(b, v)
}

// VarintSize returns the number of bytes needed to encode the given varint
func VarintSize(v uint64) int {
	return protowire.SizeVarint(v)
}

// TagSize returns the encoded size of a field header for num.
func TagSize(num FieldNumber) int {
	return VarintSize(uint64(MakeTag(num, WireVarint)))
}

// BytesSize returns the size of a length-delimited payload of n bytes,
// including its length prefix.
func BytesSize(n int) int {
	return VarintSize(uint64(n)) + n
}

// DecodeZigZag32 decodes a zigzag-encoded 32-bit integer
func DecodeZigZag32(encoded uint64) int32 {
	return int32(protowire.DecodeZigZag(encoded & 0xFFFFFFFF))
}

// DecodeZigZag64 decodes a zigzag-encoded 64-bit integer
func DecodeZigZag64(encoded uint64) int64 {
	return protowire.DecodeZigZag(encoded)
}

// EncodeZigZag32 encodes a signed 32-bit integer using zigzag encoding
func EncodeZigZag32(v int32) uint64 {
	return uint64((uint32(v) << 1) ^ uint32(v>>31))
}

// EncodeZigZag64 encodes a signed 64-bit integer using zigzag encoding
func EncodeZigZag64(v int64) uint64 {
	return protowire.EncodeZigZag(v)
}
