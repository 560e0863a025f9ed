package dynamic

import (
	"errors"
	"fmt"
	"io"
	"math"

	"go.uber.org/zap"
	"google.golang.org/protobuf/encoding/protowire"

	"github.com/anirudhraja/protostream/schema"
	"github.com/anirudhraja/protostream/wire"
)

// ErrUnknownField is returned for tags the schema does not define when the
// decoder's configuration rejects unknown fields.
var ErrUnknownField = errors.New("unknown field")

// UnmarshalWire reads fields until the end of input. A singular field seen
// more than once keeps its last value; repeated fields accept both packed and
// unpacked encodings.
func (m *Message) UnmarshalWire(d *wire.Decoder) error {
	if m.Values == nil {
		m.Values = make(map[string]any)
	}

	for {
		f, err := d.ReadField()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		field := m.desc.FieldByNumber(int32(f.Number()))
		if field == nil {
			if d.Config().RejectUnknownFields {
				return fmt.Errorf("message %s field %d: %w", m.name(), f.Number(), ErrUnknownField)
			}
			Logger().Debug("skipping unknown field",
				zap.String("message", m.name()),
				zap.Uint32("field", uint32(f.Number())),
				zap.Stringer("wire_type", f.WireType()))
			if err := f.Skip(); err != nil {
				return err
			}
			continue
		}

		if err := m.decodeField(f, field); err != nil {
			return wire.WrapField(err, field.Name)
		}
	}
}

func (m *Message) decodeField(f *wire.Field, field *schema.Field) error {
	ft := &field.Type

	switch {
	case ft.Kind == schema.KindMap:
		entry := &mapEntry{parent: m, keyType: ft.MapKey, valueType: ft.MapValue}
		if err := f.ReadMessage(entry); err != nil {
			return err
		}
		entries, _ := m.Values[field.Name].(map[any]any)
		if entries == nil {
			entries = make(map[any]any)
		}
		entries[entry.key] = entry.value
		m.Values[field.Name] = entries
		return nil

	case field.IsRepeated():
		values, _ := m.Values[field.Name].([]any)
		if ft.Kind != schema.KindMessage && f.WireType() == wire.WireBytes && packable(ft) {
			data, err := f.ReadBytes()
			if err != nil {
				return err
			}
			packed, err := m.decodePacked(data, ft)
			if err != nil {
				return err
			}
			m.Values[field.Name] = append(values, packed...)
			return nil
		}
		v, err := m.decodeValue(f, ft)
		if err != nil {
			return err
		}
		m.Values[field.Name] = append(values, v)
		return nil

	default:
		v, err := m.decodeValue(f, ft)
		if err != nil {
			return err
		}
		m.clearOneof(field)
		m.Values[field.Name] = v
		return nil
	}
}

func packable(ft *schema.FieldType) bool {
	return ft.Kind == schema.KindEnum || (ft.Kind == schema.KindPrimitive && schema.IsPackedType(ft.PrimitiveType))
}

func (m *Message) decodeValue(f *wire.Field, ft *schema.FieldType) (any, error) {
	switch ft.Kind {
	case schema.KindPrimitive:
		return decodeScalar(f, ft.PrimitiveType)
	case schema.KindEnum:
		n, err := f.ReadInt32()
		if err != nil {
			return nil, err
		}
		return m.enumValue(ft.EnumType, n)
	case schema.KindMessage:
		desc, err := m.lookupMessage(ft.MessageType)
		if err != nil {
			return nil, err
		}
		nested := New(desc, m.reg)
		if err := f.ReadMessage(nested); err != nil {
			return nil, err
		}
		return nested.Values, nil
	default:
		return nil, fmt.Errorf("cannot decode %s value in this position", ft.Kind)
	}
}

func decodeScalar(f *wire.Field, pt schema.PrimitiveType) (any, error) {
	switch pt {
	case schema.TypeDouble:
		return f.ReadFloat64()
	case schema.TypeFloat:
		return f.ReadFloat32()
	case schema.TypeInt64:
		return f.ReadInt64()
	case schema.TypeUint64:
		return f.ReadVarint()
	case schema.TypeInt32:
		return f.ReadInt32()
	case schema.TypeFixed64:
		return f.ReadFixed64()
	case schema.TypeFixed32:
		return f.ReadFixed32()
	case schema.TypeBool:
		return f.ReadBool()
	case schema.TypeString:
		return f.ReadString()
	case schema.TypeBytes:
		return f.ReadBytes()
	case schema.TypeUint32:
		return f.ReadUint32()
	case schema.TypeSfixed32:
		v, err := f.ReadFixed32()
		return int32(v), err
	case schema.TypeSfixed64:
		v, err := f.ReadFixed64()
		return int64(v), err
	case schema.TypeSint32:
		return f.ReadSint32()
	case schema.TypeSint64:
		return f.ReadSint64()
	default:
		return nil, fmt.Errorf("unsupported primitive type: %s", pt)
	}
}

// decodePacked splits the payload of a packed repeated field.
func (m *Message) decodePacked(data []byte, ft *schema.FieldType) ([]any, error) {
	var values []any
	for len(data) > 0 {
		var (
			v   any
			n   int
			err error
		)
		switch {
		case ft.Kind == schema.KindEnum:
			var x uint64
			x, n = protowire.ConsumeVarint(data)
			if n >= 0 {
				v, err = m.enumValue(ft.EnumType, int32(x))
			}
		default:
			v, n = consumePackedScalar(data, ft.PrimitiveType)
		}
		if n < 0 {
			return nil, fmt.Errorf("packed element %d: %w", len(values), packedError(n))
		}
		if err != nil {
			return nil, err
		}
		values = append(values, v)
		data = data[n:]
	}
	return values, nil
}

func consumePackedScalar(data []byte, pt schema.PrimitiveType) (any, int) {
	switch pt {
	case schema.TypeDouble:
		x, n := protowire.ConsumeFixed64(data)
		return math.Float64frombits(x), n
	case schema.TypeFloat:
		x, n := protowire.ConsumeFixed32(data)
		return math.Float32frombits(x), n
	case schema.TypeFixed64:
		return protowire.ConsumeFixed64(data)
	case schema.TypeSfixed64:
		x, n := protowire.ConsumeFixed64(data)
		return int64(x), n
	case schema.TypeFixed32:
		return protowire.ConsumeFixed32(data)
	case schema.TypeSfixed32:
		x, n := protowire.ConsumeFixed32(data)
		return int32(x), n
	}

	x, n := protowire.ConsumeVarint(data)
	switch pt {
	case schema.TypeInt64:
		return int64(x), n
	case schema.TypeInt32:
		return int32(x), n
	case schema.TypeUint32:
		return uint32(x), n
	case schema.TypeBool:
		return x != 0, n
	case schema.TypeSint32:
		return int32(protowire.DecodeZigZag(x & math.MaxUint32)), n
	case schema.TypeSint64:
		return protowire.DecodeZigZag(x), n
	default:
		return x, n
	}
}

func packedError(n int) error {
	err := protowire.ParseError(n)
	if errors.Is(err, io.ErrUnexpectedEOF) {
		return wire.ErrTruncated
	}
	return err
}

// enumValue names n when the enum defines it; unknown numbers are kept as
// int32 so they survive a round trip.
func (m *Message) enumValue(enumType string, n int32) (any, error) {
	enum, err := m.lookupEnum(enumType)
	if err != nil {
		return nil, err
	}
	if value := enum.ValueByNumber(n); value != nil {
		return value.Name, nil
	}
	return n, nil
}

// UnmarshalWire decodes one map entry. A missing key or value takes the
// zero value of its type.
func (me *mapEntry) UnmarshalWire(d *wire.Decoder) error {
	for {
		f, err := d.ReadField()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}

		switch f.Number() {
		case 1:
			if me.key, err = me.parent.decodeValue(f, me.keyType); err != nil {
				return wire.WrapField(err, "key")
			}
		case 2:
			if me.value, err = me.parent.decodeValue(f, me.valueType); err != nil {
				return wire.WrapField(err, "value")
			}
		default:
			if err := f.Skip(); err != nil {
				return err
			}
		}
	}

	if me.key == nil {
		me.key = zeroScalar(me.keyType.PrimitiveType)
	}
	if me.value == nil {
		v, err := me.parent.zeroValue(me.valueType)
		if err != nil {
			return wire.WrapField(err, "value")
		}
		me.value = v
	}
	return nil
}

func (m *Message) zeroValue(ft *schema.FieldType) (any, error) {
	switch ft.Kind {
	case schema.KindMessage:
		return map[string]any{}, nil
	case schema.KindEnum:
		return m.enumValue(ft.EnumType, 0)
	default:
		return zeroScalar(ft.PrimitiveType), nil
	}
}

func zeroScalar(pt schema.PrimitiveType) any {
	switch pt {
	case schema.TypeDouble:
		return float64(0)
	case schema.TypeFloat:
		return float32(0)
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		return int64(0)
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		return int32(0)
	case schema.TypeUint64, schema.TypeFixed64:
		return uint64(0)
	case schema.TypeUint32, schema.TypeFixed32:
		return uint32(0)
	case schema.TypeBool:
		return false
	case schema.TypeString:
		return ""
	case schema.TypeBytes:
		return []byte{}
	}
	return nil
}
