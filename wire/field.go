package wire

import (
	"bytes"
	"fmt"
	"math"
	"unicode/utf8"
)

// Field is a handle to one field of a decoding session. It is valid until one
// accessor (a Read method or Skip) has been called on it; any later call fails
// with ErrFieldConsumed without touching the stream.
//
// An accessor that does not match the field's wire type fails with
// ErrUnexpectedFieldType and leaves both the field and the stream untouched,
// so the caller may still Skip it.
type Field struct {
	d        *Decoder
	num      FieldNumber
	wireType WireType
	consumed bool
}

// Number returns the field's tag.
func (f *Field) Number() FieldNumber { return f.num }

// WireType returns the wire type declared in the field's header.
func (f *Field) WireType() WireType { return f.wireType }

// Consumed reports whether an accessor has already been called.
func (f *Field) Consumed() bool { return f.consumed }

func (f *Field) String() string {
	return fmt.Sprintf("Field(tag=%d; wire-type=%s)", f.num, f.wireType)
}

// take claims the field for an accessor expecting wireType.
func (f *Field) take(want WireType) error {
	if f.consumed {
		return fmt.Errorf("field %d: %w", f.num, ErrFieldConsumed)
	}
	if f.wireType != want {
		return fmt.Errorf("field %d: %w: want %s, got %s", f.num, ErrUnexpectedFieldType, want, f.wireType)
	}
	f.consumed = true
	return nil
}

// VARINT ACCESSORS

// ReadVarint reads the field's payload as an unsigned varint.
func (f *Field) ReadVarint() (uint64, error) {
	if err := f.take(WireVarint); err != nil {
		return 0, err
	}
	v, err := f.d.readVarintValue()
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", f.num, err)
	}
	return v, nil
}

// ReadInt64 reads a varint as a two's complement int64
func (f *Field) ReadInt64() (int64, error) {
	v, err := f.ReadVarint()
	return int64(v), err
}

// ReadInt32 reads a varint as int32
func (f *Field) ReadInt32() (int32, error) {
	v, err := f.ReadVarint()
	return int32(v), err
}

// ReadUint32 reads a varint as uint32
func (f *Field) ReadUint32() (uint32, error) {
	v, err := f.ReadVarint()
	return uint32(v), err
}

// ReadSint64 reads a zigzag-encoded signed varint
func (f *Field) ReadSint64() (int64, error) {
	v, err := f.ReadVarint()
	return DecodeZigZag64(v), err
}

// ReadSint32 reads a zigzag-encoded signed varint as int32
func (f *Field) ReadSint32() (int32, error) {
	v, err := f.ReadVarint()
	return DecodeZigZag32(v), err
}

// ReadBool reads a varint as bool
func (f *Field) ReadBool() (bool, error) {
	v, err := f.ReadVarint()
	return v != 0, err
}

// FIXED ACCESSORS

// ReadFixed32 reads a little-endian 32-bit payload.
func (f *Field) ReadFixed32() (uint32, error) {
	if err := f.take(WireFixed32); err != nil {
		return 0, err
	}
	v, err := f.d.readFixed32()
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", f.num, err)
	}
	return v, nil
}

// ReadFixed64 reads a little-endian 64-bit payload.
func (f *Field) ReadFixed64() (uint64, error) {
	if err := f.take(WireFixed64); err != nil {
		return 0, err
	}
	v, err := f.d.readFixed64()
	if err != nil {
		return 0, fmt.Errorf("field %d: %w", f.num, err)
	}
	return v, nil
}

// ReadFloat32 reads a 32-bit float from fixed32 data
func (f *Field) ReadFloat32() (float32, error) {
	v, err := f.ReadFixed32()
	return math.Float32frombits(v), err
}

// ReadFloat64 reads a 64-bit float from fixed64 data
func (f *Field) ReadFloat64() (float64, error) {
	v, err := f.ReadFixed64()
	return math.Float64frombits(v), err
}

// LENGTH-DELIMITED ACCESSORS

// ReadBytes reads the field's length-delimited payload.
func (f *Field) ReadBytes() ([]byte, error) {
	if err := f.take(WireBytes); err != nil {
		return nil, err
	}

	length, err := f.d.readLength()
	if err != nil {
		return nil, fmt.Errorf("field %d: %w", f.num, err)
	}

	data, err := f.d.readBytes(length)
	if err != nil {
		return nil, fmt.Errorf("field %d: bytes truncated: %w", f.num, err)
	}
	return data, nil
}

// ReadString reads the field's length-delimited payload as UTF-8 text.
func (f *Field) ReadString() (string, error) {
	data, err := f.ReadBytes()
	if err != nil {
		return "", err
	}
	if !utf8.Valid(data) {
		return "", fmt.Errorf("field %d: %w", f.num, ErrInvalidUTF8)
	}
	return string(data), nil
}

// ReadMessage reads the field's payload and loads msg from it. The nested
// decoder inherits this decoder's configuration.
func (f *Field) ReadMessage(msg LoadableMessage) error {
	data, err := f.ReadBytes()
	if err != nil {
		return err
	}
	nested := NewDecoderWithConfig(bytes.NewReader(data), f.d.cfg)
	if err := msg.UnmarshalWire(nested); err != nil {
		return fmt.Errorf("field %d: failed to decode nested message: %w", f.num, err)
	}
	return nil
}

// Skip discards the field's payload, leaving the stream at the next header.
func (f *Field) Skip() error {
	if f.consumed {
		return fmt.Errorf("field %d: %w", f.num, ErrFieldConsumed)
	}
	f.consumed = true

	if err := f.d.skipValue(f.num, f.wireType, 0); err != nil {
		return fmt.Errorf("field %d: skip %s: %w", f.num, f.wireType, err)
	}
	return nil
}
