package wire

import (
	"math"
)

// Backend is the narrow capability a sink must provide. Everything else an
// Encoder offers is built from these two methods.
//
// WriteMessage is the one field operation the size pass and the write pass
// implement differently: it receives the Encoder driving the pass so the
// nested record can write through it.
type Backend interface {
	WriteRaw(p []byte) error
	WriteMessage(e *Encoder, num FieldNumber, msg Message) error
}

// Encoder is the field-writing surface handed to Message.MarshalWire. It is
// derived from any Backend and is not safe for concurrent use.
type Encoder struct {
	b       Backend
	scratch [MaxVarintLen]byte
}

// NewEncoder creates an encoder writing through b.
func NewEncoder(b Backend) *Encoder {
	return &Encoder{b: b}
}

// RAW WRITES

// WriteByte writes a single byte.
func (e *Encoder) WriteByte(c byte) error {
	e.scratch[0] = c
	return e.b.WriteRaw(e.scratch[:1])
}

// WriteRaw writes p unchanged.
func (e *Encoder) WriteRaw(p []byte) error {
	return e.b.WriteRaw(p)
}

// WriteVarint writes v as an unsigned varint.
func (e *Encoder) WriteVarint(v uint64) error {
	return e.b.WriteRaw(AppendVarint(e.scratch[:0], v))
}

// WriteTag writes a field header.
func (e *Encoder) WriteTag(num FieldNumber, wireType WireType) error {
	return e.WriteVarint(uint64(MakeTag(num, wireType)))
}

// WriteFixed32 writes v as 4 little-endian bytes.
func (e *Encoder) WriteFixed32(v uint32) error {
	return e.b.WriteRaw(AppendFixed32(e.scratch[:0], v))
}

// WriteFixed64 writes v as 8 little-endian bytes.
func (e *Encoder) WriteFixed64(v uint64) error {
	return e.b.WriteRaw(AppendFixed64(e.scratch[:0], v))
}

// SCALAR FIELDS

// WriteVarintField writes a varint field.
func (e *Encoder) WriteVarintField(num FieldNumber, v uint64) error {
	if err := e.WriteTag(num, WireVarint); err != nil {
		return err
	}
	return e.WriteVarint(v)
}

// WriteInt64Field writes v as a two's complement varint.
func (e *Encoder) WriteInt64Field(num FieldNumber, v int64) error {
	return e.WriteVarintField(num, uint64(v))
}

// WriteInt32Field writes v sign-extended to 64 bits, so negative values take
// ten bytes.
func (e *Encoder) WriteInt32Field(num FieldNumber, v int32) error {
	return e.WriteVarintField(num, uint64(int64(v)))
}

// WriteSint64Field writes v zigzag-encoded.
func (e *Encoder) WriteSint64Field(num FieldNumber, v int64) error {
	return e.WriteVarintField(num, EncodeZigZag64(v))
}

// WriteSint32Field writes v zigzag-encoded.
func (e *Encoder) WriteSint32Field(num FieldNumber, v int32) error {
	return e.WriteVarintField(num, EncodeZigZag32(v))
}

// WriteBoolField writes v as varint 0 or 1.
func (e *Encoder) WriteBoolField(num FieldNumber, v bool) error {
	var x uint64
	if v {
		x = 1
	}
	return e.WriteVarintField(num, x)
}

// WriteFixed32Field writes a fixed32 field.
func (e *Encoder) WriteFixed32Field(num FieldNumber, v uint32) error {
	if err := e.WriteTag(num, WireFixed32); err != nil {
		return err
	}
	return e.WriteFixed32(v)
}

// WriteFixed64Field writes a fixed64 field.
func (e *Encoder) WriteFixed64Field(num FieldNumber, v uint64) error {
	if err := e.WriteTag(num, WireFixed64); err != nil {
		return err
	}
	return e.WriteFixed64(v)
}

// WriteFloatField writes v as a fixed32 field.
func (e *Encoder) WriteFloatField(num FieldNumber, v float32) error {
	return e.WriteFixed32Field(num, math.Float32bits(v))
}

// WriteDoubleField writes v as a fixed64 field.
func (e *Encoder) WriteDoubleField(num FieldNumber, v float64) error {
	return e.WriteFixed64Field(num, math.Float64bits(v))
}

// LENGTH-DELIMITED FIELDS

// WriteBytesField writes header, length and payload.
func (e *Encoder) WriteBytesField(num FieldNumber, v []byte) error {
	if err := e.WriteTag(num, WireBytes); err != nil {
		return err
	}
	if err := e.WriteVarint(uint64(len(v))); err != nil {
		return err
	}
	return e.b.WriteRaw(v)
}

// WriteStringField writes header, length and the string's bytes.
func (e *Encoder) WriteStringField(num FieldNumber, v string) error {
	return e.WriteBytesField(num, []byte(v))
}

// WritePackedVarintField writes vs as one length-delimited field of
// concatenated varints. An empty slice writes nothing.
func (e *Encoder) WritePackedVarintField(num FieldNumber, vs []uint64) error {
	if len(vs) == 0 {
		return nil
	}
	n := 0
	for _, v := range vs {
		n += VarintSize(v)
	}
	if err := e.WriteTag(num, WireBytes); err != nil {
		return err
	}
	if err := e.WriteVarint(uint64(n)); err != nil {
		return err
	}
	for _, v := range vs {
		if err := e.WriteVarint(v); err != nil {
			return err
		}
	}
	return nil
}

// OPTIONAL FIELDS
// A nil value means absent and writes nothing.

// WriteOptionalVarintField writes *v as a varint field when v is set.
func (e *Encoder) WriteOptionalVarintField(num FieldNumber, v *uint64) error {
	if v == nil {
		return nil
	}
	return e.WriteVarintField(num, *v)
}

// WriteOptionalInt64Field writes *v as an int64 field when v is set.
func (e *Encoder) WriteOptionalInt64Field(num FieldNumber, v *int64) error {
	if v == nil {
		return nil
	}
	return e.WriteInt64Field(num, *v)
}

// WriteOptionalBoolField writes *v as a bool field when v is set.
func (e *Encoder) WriteOptionalBoolField(num FieldNumber, v *bool) error {
	if v == nil {
		return nil
	}
	return e.WriteBoolField(num, *v)
}

// WriteOptionalStringField writes *v as a string field when v is set.
func (e *Encoder) WriteOptionalStringField(num FieldNumber, v *string) error {
	if v == nil {
		return nil
	}
	return e.WriteStringField(num, *v)
}

// WriteOptionalBytesField treats a nil slice as absent; an empty non-nil
// slice is written as a zero-length field.
func (e *Encoder) WriteOptionalBytesField(num FieldNumber, v []byte) error {
	if v == nil {
		return nil
	}
	return e.WriteBytesField(num, v)
}

// REPEATED FIELDS
// One field per element, in slice order.

// WriteRepeatedVarintField writes each element of vs as a varint field.
func (e *Encoder) WriteRepeatedVarintField(num FieldNumber, vs []uint64) error {
	for _, v := range vs {
		if err := e.WriteVarintField(num, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteRepeatedInt64Field writes each element of vs as an int64 field.
func (e *Encoder) WriteRepeatedInt64Field(num FieldNumber, vs []int64) error {
	for _, v := range vs {
		if err := e.WriteInt64Field(num, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteRepeatedStringField writes each element of vs as a string field.
func (e *Encoder) WriteRepeatedStringField(num FieldNumber, vs []string) error {
	for _, v := range vs {
		if err := e.WriteStringField(num, v); err != nil {
			return err
		}
	}
	return nil
}

// WriteRepeatedBytesField writes each element of vs as a bytes field.
func (e *Encoder) WriteRepeatedBytesField(num FieldNumber, vs [][]byte) error {
	for _, v := range vs {
		if err := e.WriteBytesField(num, v); err != nil {
			return err
		}
	}
	return nil
}

// MESSAGE FIELDS

// WriteMessageField writes msg as a nested, length-prefixed field. A nested
// message that serializes to zero bytes is omitted entirely.
func (e *Encoder) WriteMessageField(num FieldNumber, msg Message) error {
	return e.b.WriteMessage(e, num, msg)
}

// WriteRepeatedMessageField writes one nested field per element of msgs.
func WriteRepeatedMessageField[M Message](e *Encoder, num FieldNumber, msgs []M) error {
	for _, m := range msgs {
		if err := e.WriteMessageField(num, m); err != nil {
			return err
		}
	}
	return nil
}
