package wire

import (
	"encoding/binary"

	"google.golang.org/protobuf/encoding/protowire"
)

// Fixed-width payload sizes in bytes.
const (
	Fixed32Size = 4
	Fixed64Size = 8
)

// AppendFixed32 appends v in little-endian order.
func AppendFixed32(b []byte, v uint32) []byte {
	return protowire.AppendFixed32(b, v)
}

// AppendFixed64 appends v in little-endian order.
func AppendFixed64(b []byte, v uint64) []byte {
	return protowire.AppendFixed64(b, v)
}

// readFixed32 decodes a 32-bit fixed-width value from the decoder's stream
func (d *Decoder) readFixed32() (uint32, error) {
	var buf [Fixed32Size]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(buf[:]), nil
}

// readFixed64 decodes a 64-bit fixed-width value from the decoder's stream
func (d *Decoder) readFixed64() (uint64, error) {
	var buf [Fixed64Size]byte
	if err := d.readFull(buf[:]); err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint64(buf[:]), nil
}
