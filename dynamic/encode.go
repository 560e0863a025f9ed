package dynamic

import (
	"cmp"
	"fmt"
	"reflect"
	"sort"
	"unicode/utf8"

	"github.com/anirudhraja/protostream/schema"
	"github.com/anirudhraja/protostream/wire"
)

// MarshalWire writes the set fields in ascending field-number order. Nil
// values are treated as absent. Repeated scalars are written one field per
// element; map entries are written in ascending key order.
func (m *Message) MarshalWire(e *wire.Encoder) error {
	if err := m.checkNames(); err != nil {
		return err
	}

	for _, field := range m.desc.AllFields() {
		v, ok := m.Values[field.Name]
		if !ok || v == nil {
			continue
		}
		if err := m.encodeField(e, field, v); err != nil {
			return wire.WrapField(err, field.Name)
		}
	}
	return nil
}

// checkNames rejects values for names the schema does not define, and a
// oneof with more than one member set.
func (m *Message) checkNames() error {
	names := make([]string, 0, len(m.Values))
	for name := range m.Values {
		names = append(names, name)
	}
	sort.Strings(names)

	set := make(map[int32]string)
	for _, name := range names {
		field := m.desc.FieldByName(name)
		if field == nil {
			return fmt.Errorf("message %s has no field %q", m.name(), name)
		}
		if field.OneofIndex < 0 || m.Values[name] == nil {
			continue
		}
		if other, ok := set[field.OneofIndex]; ok {
			return fmt.Errorf("message %s: oneof fields %q and %q are both set", m.name(), other, name)
		}
		set[field.OneofIndex] = name
	}
	return nil
}

func (m *Message) encodeField(e *wire.Encoder, field *schema.Field, v any) error {
	num := wire.FieldNumber(field.Number)

	if field.Type.Kind == schema.KindMap {
		return m.encodeMap(e, num, &field.Type, v)
	}
	if !field.IsRepeated() {
		return m.encodeValue(e, num, &field.Type, v)
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return fmt.Errorf("repeated field expects a slice, got %T", v)
	}
	for i := 0; i < rv.Len(); i++ {
		elem := rv.Index(i).Interface()
		if elem == nil {
			return fmt.Errorf("element %d is nil", i)
		}
		if err := m.encodeValue(e, num, &field.Type, elem); err != nil {
			return fmt.Errorf("element %d: %w", i, err)
		}
	}
	return nil
}

func (m *Message) encodeValue(e *wire.Encoder, num wire.FieldNumber, ft *schema.FieldType, v any) error {
	switch ft.Kind {
	case schema.KindPrimitive:
		return encodeScalar(e, num, ft.PrimitiveType, v)
	case schema.KindEnum:
		n, err := m.enumNumber(ft.EnumType, v)
		if err != nil {
			return err
		}
		return e.WriteInt32Field(num, n)
	case schema.KindMessage:
		msg, err := m.nestedMessage(ft.MessageType, v)
		if err != nil {
			return err
		}
		return e.WriteMessageField(num, msg)
	default:
		return fmt.Errorf("cannot encode %s value in this position", ft.Kind)
	}
}

func encodeScalar(e *wire.Encoder, num wire.FieldNumber, pt schema.PrimitiveType, v any) error {
	switch pt {
	case schema.TypeDouble:
		f, err := coerceToFloat64(v)
		if err != nil {
			return err
		}
		return e.WriteDoubleField(num, f)
	case schema.TypeFloat:
		f, err := coerceToFloat64(v)
		if err != nil {
			return err
		}
		return e.WriteFloatField(num, float32(f))
	case schema.TypeInt64:
		i, err := coerceToInt64(v)
		if err != nil {
			return err
		}
		return e.WriteInt64Field(num, i)
	case schema.TypeUint64:
		u, err := coerceToUint64(v)
		if err != nil {
			return err
		}
		return e.WriteVarintField(num, u)
	case schema.TypeInt32:
		i, err := coerceToInt32(v)
		if err != nil {
			return err
		}
		return e.WriteInt32Field(num, i)
	case schema.TypeFixed64:
		u, err := coerceToUint64(v)
		if err != nil {
			return err
		}
		return e.WriteFixed64Field(num, u)
	case schema.TypeFixed32:
		u, err := coerceToUint32(v)
		if err != nil {
			return err
		}
		return e.WriteFixed32Field(num, u)
	case schema.TypeBool:
		b, err := coerceToBool(v)
		if err != nil {
			return err
		}
		return e.WriteBoolField(num, b)
	case schema.TypeString:
		s, err := coerceToString(v)
		if err != nil {
			return err
		}
		if !utf8.ValidString(s) {
			return wire.ErrInvalidUTF8
		}
		return e.WriteStringField(num, s)
	case schema.TypeBytes:
		b, err := coerceToBytes(v)
		if err != nil {
			return err
		}
		return e.WriteBytesField(num, b)
	case schema.TypeUint32:
		u, err := coerceToUint32(v)
		if err != nil {
			return err
		}
		return e.WriteVarintField(num, uint64(u))
	case schema.TypeSfixed32:
		i, err := coerceToInt32(v)
		if err != nil {
			return err
		}
		return e.WriteFixed32Field(num, uint32(i))
	case schema.TypeSfixed64:
		i, err := coerceToInt64(v)
		if err != nil {
			return err
		}
		return e.WriteFixed64Field(num, uint64(i))
	case schema.TypeSint32:
		i, err := coerceToInt32(v)
		if err != nil {
			return err
		}
		return e.WriteSint32Field(num, i)
	case schema.TypeSint64:
		i, err := coerceToInt64(v)
		if err != nil {
			return err
		}
		return e.WriteSint64Field(num, i)
	default:
		return fmt.Errorf("unsupported primitive type: %s", pt)
	}
}

func (m *Message) enumNumber(enumType string, v any) (int32, error) {
	enum, err := m.lookupEnum(enumType)
	if err != nil {
		return 0, err
	}
	if name, ok := v.(string); ok {
		if value := enum.ValueByName(name); value != nil {
			return value.Number, nil
		}
		// numeric strings fall through to the integer path
		if _, err := coerceToInt64(name); err != nil {
			return 0, fmt.Errorf("unknown value %q for enum %s", name, enum.FullName)
		}
	}
	return coerceToInt32(v)
}

// nestedMessage adapts v to a wire.Message of messageType.
func (m *Message) nestedMessage(messageType string, v any) (wire.Message, error) {
	switch t := v.(type) {
	case *Message:
		return t, nil
	case map[string]any:
		desc, err := m.lookupMessage(messageType)
		if err != nil {
			return nil, err
		}
		return &Message{desc: desc, reg: m.reg, Values: t}, nil
	case wire.Message:
		return t, nil
	default:
		return nil, fmt.Errorf("message field expects map[string]any or wire.Message, got %T", v)
	}
}

// mapEntry is the synthetic two-field message (key = 1, value = 2) a map
// field is encoded as.
type mapEntry struct {
	parent    *Message
	keyType   *schema.FieldType
	valueType *schema.FieldType
	key       any
	value     any
}

func (me *mapEntry) MarshalWire(e *wire.Encoder) error {
	if err := me.parent.encodeValue(e, 1, me.keyType, me.key); err != nil {
		return wire.WrapField(err, "key")
	}
	if err := me.parent.encodeValue(e, 2, me.valueType, me.value); err != nil {
		return wire.WrapField(err, "value")
	}
	return nil
}

func (m *Message) encodeMap(e *wire.Encoder, num wire.FieldNumber, ft *schema.FieldType, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map {
		return fmt.Errorf("map field expects a map, got %T", v)
	}

	entries := make([]*mapEntry, 0, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		key, err := coerceMapKey(ft.MapKey.PrimitiveType, iter.Key().Interface())
		if err != nil {
			return fmt.Errorf("map key %v: %w", iter.Key().Interface(), err)
		}
		value := iter.Value().Interface()
		if value == nil {
			return fmt.Errorf("map key %v: nil value", key)
		}
		entries = append(entries, &mapEntry{
			parent:    m,
			keyType:   ft.MapKey,
			valueType: ft.MapValue,
			key:       key,
			value:     value,
		})
	}

	// Map iteration order is random; both encoding passes must agree.
	sort.Slice(entries, func(i, j int) bool {
		return compareKeys(entries[i].key, entries[j].key) < 0
	})
	for i := 1; i < len(entries); i++ {
		if compareKeys(entries[i-1].key, entries[i].key) == 0 {
			return fmt.Errorf("duplicate map key %v", entries[i].key)
		}
	}

	for _, entry := range entries {
		if err := e.WriteMessageField(num, entry); err != nil {
			return fmt.Errorf("map key %v: %w", entry.key, err)
		}
	}
	return nil
}

// coerceMapKey normalizes a key to string, bool, int64 or uint64 so keys of
// different Go types compare and deduplicate by their wire value.
func coerceMapKey(pt schema.PrimitiveType, k any) (any, error) {
	switch pt {
	case schema.TypeString:
		s, err := coerceToString(k)
		if err != nil {
			return nil, err
		}
		return s, nil
	case schema.TypeBool:
		b, err := coerceToBool(k)
		if err != nil {
			return nil, err
		}
		return b, nil
	case schema.TypeUint32, schema.TypeFixed32:
		u, err := coerceToUint32(k)
		if err != nil {
			return nil, err
		}
		return uint64(u), nil
	case schema.TypeUint64, schema.TypeFixed64:
		u, err := coerceToUint64(k)
		if err != nil {
			return nil, err
		}
		return u, nil
	case schema.TypeInt32, schema.TypeSint32, schema.TypeSfixed32:
		i, err := coerceToInt32(k)
		if err != nil {
			return nil, err
		}
		return int64(i), nil
	case schema.TypeInt64, schema.TypeSint64, schema.TypeSfixed64:
		i, err := coerceToInt64(k)
		if err != nil {
			return nil, err
		}
		return i, nil
	default:
		return nil, fmt.Errorf("invalid map key type %s", pt)
	}
}

func compareKeys(a, b any) int {
	switch x := a.(type) {
	case string:
		return cmp.Compare(x, b.(string))
	case int64:
		return cmp.Compare(x, b.(int64))
	case uint64:
		return cmp.Compare(x, b.(uint64))
	case bool:
		y := b.(bool)
		switch {
		case x == y:
			return 0
		case !x:
			return -1
		}
		return 1
	}
	return 0
}
