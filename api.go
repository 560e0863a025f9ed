// Package protostream encodes and decodes protobuf wire data against .proto
// schemas loaded at runtime, without generated code.
package protostream

import (
	"fmt"
	"io"
	"reflect"
	"strings"
	"unicode"

	"github.com/anirudhraja/protostream/dynamic"
	"github.com/anirudhraja/protostream/registry"
	"github.com/anirudhraja/protostream/wire"
)

// Protostream provides schema-aware protobuf operations without generated code
type Protostream interface {
	// LoadSchemaFromFile loads a .proto file, or every .proto file under a
	// directory, into the registry.
	LoadSchemaFromFile(path string) error

	// LoadFile loads protoFile and everything it imports, searching the
	// proto directories given to New.
	LoadFile(protoFile string) error

	// Marshal encodes data as the named message type.
	Marshal(data map[string]any, messageType string) ([]byte, error)

	// Parse decodes data as the named message type.
	Parse(data []byte, messageType string) (map[string]any, error)

	// ParseRaw decodes data without a schema. Each field is reported as
	// "field_N": {"type": <wire type>, "value": <raw value>}; repeated tags
	// collect their values in a slice.
	ParseRaw(data []byte) (map[string]any, error)

	// Unmarshal decodes data as the named message type into the struct v
	// points to.
	Unmarshal(data []byte, messageType string, v any) error

	// Write streams the encoding of data to w.
	Write(w io.Writer, data map[string]any, messageType string) error

	// Read decodes a message of the named type from r, read up to EOF.
	Read(r io.Reader, messageType string) (map[string]any, error)

	Registry() *registry.Registry
	ListMessages() []string
	ListEnums() []string
}

type protostream struct {
	registry *registry.Registry
}

// New creates a Protostream whose imports resolve against protoDirs.
func New(protoDirs ...string) Protostream {
	return &protostream{
		registry: registry.NewRegistry(protoDirs...),
	}
}

// ===== SCHEMA LOADING =====

func (p *protostream) LoadSchemaFromFile(path string) error {
	return p.registry.LoadSchema(path)
}

func (p *protostream) LoadFile(protoFile string) error {
	return p.registry.LoadFile(protoFile)
}

// ===== SCHEMA-AWARE API =====

func (p *protostream) message(messageType string) (*dynamic.Message, error) {
	msg, err := dynamic.NewFromRegistry(p.registry, messageType)
	if err != nil {
		return nil, fmt.Errorf("message type not found: %s: %w", messageType, err)
	}
	return msg, nil
}

func (p *protostream) Marshal(data map[string]any, messageType string) ([]byte, error) {
	msg, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	msg.Values = data
	return msg.Marshal()
}

func (p *protostream) Parse(data []byte, messageType string) (map[string]any, error) {
	msg, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	if err := msg.Unmarshal(data); err != nil {
		return nil, err
	}
	return msg.Values, nil
}

func (p *protostream) Write(w io.Writer, data map[string]any, messageType string) error {
	msg, err := p.message(messageType)
	if err != nil {
		return err
	}
	msg.Values = data
	return msg.Encode(w)
}

func (p *protostream) Read(r io.Reader, messageType string) (map[string]any, error) {
	msg, err := p.message(messageType)
	if err != nil {
		return nil, err
	}
	if err := msg.Decode(r); err != nil {
		return nil, err
	}
	return msg.Values, nil
}

func (p *protostream) Unmarshal(data []byte, messageType string, v any) error {
	result, err := p.Parse(data, messageType)
	if err != nil {
		return err
	}
	return p.mapToStruct(result, v)
}

// ===== SCHEMA-LESS API =====

func (p *protostream) ParseRaw(data []byte) (map[string]any, error) {
	result := make(map[string]any)
	d := wire.NewDecoderBytes(data)

	for {
		f, err := d.ReadField()
		if err == io.EOF {
			return result, nil
		}
		if err != nil {
			return nil, err
		}

		var value any
		switch f.WireType() {
		case wire.WireVarint:
			value, err = f.ReadVarint()
		case wire.WireFixed64:
			value, err = f.ReadFixed64()
		case wire.WireBytes:
			value, err = f.ReadBytes()
		case wire.WireFixed32:
			value, err = f.ReadFixed32()
		default:
			err = f.Skip()
		}
		if err != nil {
			return nil, err
		}

		key := fmt.Sprintf("field_%d", f.Number())
		entry, ok := result[key].(map[string]any)
		if !ok {
			result[key] = map[string]any{
				"type":  f.WireType().String(),
				"value": value,
			}
			continue
		}
		if values, ok := entry["value"].([]any); ok {
			entry["value"] = append(values, value)
		} else {
			entry["value"] = []any{entry["value"], value}
		}
	}
}

// ===== STRUCT MAPPING =====

// mapToStruct copies data into the struct v points to. A struct field takes
// the value keyed by its json tag name, its snake_case name, or its Go name,
// in that order.
func (p *protostream) mapToStruct(data map[string]any, v any) error {
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Ptr || rv.IsNil() || rv.Elem().Kind() != reflect.Struct {
		return fmt.Errorf("unmarshal target must be a pointer to struct")
	}
	return p.fillStruct(data, rv.Elem())
}

func (p *protostream) fillStruct(data map[string]any, rv reflect.Value) error {
	rt := rv.Type()
	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		fieldValue := rv.Field(i)

		if !fieldValue.CanSet() {
			continue
		}

		value, ok := lookupField(data, field)
		if !ok {
			continue
		}
		if err := p.setFieldValue(fieldValue, value); err != nil {
			return fmt.Errorf("failed to set field %s: %w", field.Name, err)
		}
	}
	return nil
}

func lookupField(data map[string]any, field reflect.StructField) (any, bool) {
	if tag := field.Tag.Get("json"); tag != "" {
		name, _, _ := strings.Cut(tag, ",")
		if name == "-" {
			return nil, false
		}
		if v, ok := data[name]; ok && name != "" {
			return v, true
		}
	}
	if v, ok := data[toSnakeCase(field.Name)]; ok {
		return v, true
	}
	v, ok := data[field.Name]
	return v, ok
}

// setFieldValue sets a struct field with type conversion
func (p *protostream) setFieldValue(fieldValue reflect.Value, value any) error {
	if value == nil {
		return nil
	}

	sourceValue := reflect.ValueOf(value)
	targetType := fieldValue.Type()

	if sourceValue.Type().AssignableTo(targetType) {
		fieldValue.Set(sourceValue)
		return nil
	}

	switch targetType.Kind() {
	case reflect.Ptr:
		elem := reflect.New(targetType.Elem())
		if err := p.setFieldValue(elem.Elem(), value); err != nil {
			return err
		}
		fieldValue.Set(elem)
		return nil

	case reflect.Struct:
		nested, ok := value.(map[string]any)
		if !ok {
			break
		}
		return p.fillStruct(nested, fieldValue)

	case reflect.Slice:
		if sourceValue.Kind() != reflect.Slice {
			break
		}
		out := reflect.MakeSlice(targetType, sourceValue.Len(), sourceValue.Len())
		for i := 0; i < sourceValue.Len(); i++ {
			if err := p.setFieldValue(out.Index(i), sourceValue.Index(i).Interface()); err != nil {
				return fmt.Errorf("element %d: %w", i, err)
			}
		}
		fieldValue.Set(out)
		return nil

	case reflect.Map:
		if sourceValue.Kind() != reflect.Map {
			break
		}
		out := reflect.MakeMapWithSize(targetType, sourceValue.Len())
		iter := sourceValue.MapRange()
		for iter.Next() {
			k := reflect.New(targetType.Key()).Elem()
			if err := p.setFieldValue(k, iter.Key().Interface()); err != nil {
				return fmt.Errorf("map key %v: %w", iter.Key().Interface(), err)
			}
			v := reflect.New(targetType.Elem()).Elem()
			if err := p.setFieldValue(v, iter.Value().Interface()); err != nil {
				return fmt.Errorf("map key %v: %w", iter.Key().Interface(), err)
			}
			out.SetMapIndex(k, v)
		}
		fieldValue.Set(out)
		return nil
	}

	if convertible(sourceValue.Kind(), targetType.Kind()) && sourceValue.Type().ConvertibleTo(targetType) {
		fieldValue.Set(sourceValue.Convert(targetType))
		return nil
	}

	return fmt.Errorf("cannot convert %T to %s", value, targetType)
}

// convertible limits reflect conversion to number to number and string to
// string, so an integer never silently becomes a one-rune string.
func convertible(from, to reflect.Kind) bool {
	return (isNumber(from) && isNumber(to)) || (from == reflect.String && to == reflect.String)
}

func isNumber(k reflect.Kind) bool {
	switch k {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

// toSnakeCase converts a Go field name to snake_case: UserID -> user_id.
func toSnakeCase(s string) string {
	runes := []rune(s)
	var b strings.Builder
	for i, r := range runes {
		if unicode.IsUpper(r) {
			prevLower := i > 0 && !unicode.IsUpper(runes[i-1])
			nextLower := i > 0 && i+1 < len(runes) && unicode.IsLower(runes[i+1])
			if prevLower || (nextLower && unicode.IsUpper(runes[i-1])) {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// ===== REGISTRY ACCESS =====

func (p *protostream) Registry() *registry.Registry { return p.registry }
func (p *protostream) ListMessages() []string       { return p.registry.ListMessages() }
func (p *protostream) ListEnums() []string          { return p.registry.ListEnums() }
