package schema

import "sort"

// ProtoRepo represents a collection of .proto files and their definitions.
type ProtoRepo struct {
	ProtoFiles map[string]*ProtoFile `json:"proto_files"`
}

// ProtoFile represents a single .proto file
type ProtoFile struct {
	Name     string     `json:"name"`     // file.proto
	Package  string     `json:"package"`  // package name
	Syntax   string     `json:"syntax"`   // proto2 or proto3
	Imports  []*Import  `json:"imports"`  // imported files
	Messages []*Message `json:"messages"` // message definitions
	Enums    []*Enum    `json:"enums"`    // enum definitions
}

// Import represents an import statement
type Import struct {
	Path   string `json:"path"`   // "common/address.proto"
	Public bool   `json:"public"` // public import
	Weak   bool   `json:"weak"`   // weak import
}

// Message represents a protobuf message definition
type Message struct {
	Name        string     `json:"name"`         // "User"
	FullName    string     `json:"full_name"`    // "acme.v1.User", set by the registry
	Fields      []*Field   `json:"fields"`       // message fields
	NestedTypes []*Message `json:"nested_types"` // nested messages
	NestedEnums []*Enum    `json:"nested_enums"` // nested enums
	OneofGroups []*Oneof   `json:"oneof_groups"` // oneof groups
}

// AllFields returns the message's fields, oneof members included, ordered by
// field number.
func (m *Message) AllFields() []*Field {
	fields := make([]*Field, 0, len(m.Fields))
	fields = append(fields, m.Fields...)
	for _, oneof := range m.OneofGroups {
		fields = append(fields, oneof.Fields...)
	}
	sort.SliceStable(fields, func(i, j int) bool {
		return fields[i].Number < fields[j].Number
	})
	return fields
}

// FieldByName finds a field, including oneof members, by its declared name.
func (m *Message) FieldByName(name string) *Field {
	for _, field := range m.Fields {
		if field.Name == name {
			return field
		}
	}
	for _, oneof := range m.OneofGroups {
		for _, field := range oneof.Fields {
			if field.Name == name {
				return field
			}
		}
	}
	return nil
}

// FieldByNumber finds a field, including oneof members, by its tag.
func (m *Message) FieldByNumber(number int32) *Field {
	for _, field := range m.Fields {
		if field.Number == number {
			return field
		}
	}
	for _, oneof := range m.OneofGroups {
		for _, field := range oneof.Fields {
			if field.Number == number {
				return field
			}
		}
	}
	return nil
}

// Field represents a message field
type Field struct {
	Name       string     `json:"name"`        // "user_name"
	Number     int32      `json:"number"`      // 1
	Label      FieldLabel `json:"label"`       // optional, required, repeated
	Type       FieldType  `json:"type"`        // field type information
	OneofIndex int32      `json:"oneof_index"` // oneof group index (-1 if not in oneof)
}

// IsRepeated reports whether the field carries a list of values.
func (f *Field) IsRepeated() bool {
	return f.Label == LabelRepeated
}

// Oneof represents a oneof group
type Oneof struct {
	Name   string   `json:"name"`   // "user_info"
	Fields []*Field `json:"fields"` // fields in this oneof
}

// FieldLabel represents field labels
type FieldLabel string

const (
	LabelOptional FieldLabel = "optional"
	LabelRequired FieldLabel = "required"
	LabelRepeated FieldLabel = "repeated"
)

// FieldType represents field type information
type FieldType struct {
	Kind          TypeKind      `json:"kind"`                     // primitive, message, enum, map
	PrimitiveType PrimitiveType `json:"primitive_type,omitempty"` // for primitive types
	MessageType   string        `json:"message_type,omitempty"`   // for message types: "User", "acme.v1.User"
	EnumType      string        `json:"enum_type,omitempty"`      // for enum types
	MapKey        *FieldType    `json:"map_key,omitempty"`        // for map key type
	MapValue      *FieldType    `json:"map_value,omitempty"`      // for map value type
}

// TypeKind represents the kind of field type
type TypeKind string

const (
	KindPrimitive TypeKind = "primitive"
	KindMessage   TypeKind = "message"
	KindEnum      TypeKind = "enum"
	KindMap       TypeKind = "map"
)

// PrimitiveType represents protobuf primitive types
type PrimitiveType string

const (
	TypeDouble   PrimitiveType = "double"
	TypeFloat    PrimitiveType = "float"
	TypeInt64    PrimitiveType = "int64"
	TypeUint64   PrimitiveType = "uint64"
	TypeInt32    PrimitiveType = "int32"
	TypeFixed64  PrimitiveType = "fixed64"
	TypeFixed32  PrimitiveType = "fixed32"
	TypeBool     PrimitiveType = "bool"
	TypeString   PrimitiveType = "string"
	TypeBytes    PrimitiveType = "bytes"
	TypeUint32   PrimitiveType = "uint32"
	TypeSfixed32 PrimitiveType = "sfixed32"
	TypeSfixed64 PrimitiveType = "sfixed64"
	TypeSint32   PrimitiveType = "sint32"
	TypeSint64   PrimitiveType = "sint64"
)

var primitiveTypes = map[string]PrimitiveType{
	"double":   TypeDouble,
	"float":    TypeFloat,
	"int64":    TypeInt64,
	"uint64":   TypeUint64,
	"int32":    TypeInt32,
	"fixed64":  TypeFixed64,
	"fixed32":  TypeFixed32,
	"bool":     TypeBool,
	"string":   TypeString,
	"bytes":    TypeBytes,
	"uint32":   TypeUint32,
	"sfixed32": TypeSfixed32,
	"sfixed64": TypeSfixed64,
	"sint32":   TypeSint32,
	"sint64":   TypeSint64,
}

// ParsePrimitiveType maps a scalar type keyword to its PrimitiveType.
func ParsePrimitiveType(name string) (PrimitiveType, bool) {
	t, ok := primitiveTypes[name]
	return t, ok
}

var packedEligible = map[PrimitiveType]struct{}{
	TypeDouble:   {},
	TypeFloat:    {},
	TypeInt64:    {},
	TypeUint64:   {},
	TypeInt32:    {},
	TypeFixed64:  {},
	TypeFixed32:  {},
	TypeBool:     {},
	TypeUint32:   {},
	TypeSfixed32: {},
	TypeSfixed64: {},
	TypeSint32:   {},
	TypeSint64:   {},
}

// IsPackedType checks and returns if the Primitive type is packed for repeated label
func IsPackedType(t PrimitiveType) bool {
	_, ok := packedEligible[t]
	return ok
}

// Enum represents an enum definition
type Enum struct {
	Name       string       `json:"name"`        // "Status"
	FullName   string       `json:"full_name"`   // "acme.v1.Status", set by the registry
	Values     []*EnumValue `json:"values"`      // enum values
	AllowAlias bool         `json:"allow_alias"` // allow_alias option
}

// ValueByNumber returns the first value declared with number.
func (e *Enum) ValueByNumber(number int32) *EnumValue {
	for _, v := range e.Values {
		if v.Number == number {
			return v
		}
	}
	return nil
}

// ValueByName returns the value declared as name.
func (e *Enum) ValueByName(name string) *EnumValue {
	for _, v := range e.Values {
		if v.Name == name {
			return v
		}
	}
	return nil
}

// EnumValue represents an enum value
type EnumValue struct {
	Name   string `json:"name"`   // "ACTIVE"
	Number int32  `json:"number"` // 1
}
