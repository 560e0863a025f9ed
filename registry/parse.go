package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	protoparser "github.com/yoheimuta/go-protoparser/v4"
	protoparserparser "github.com/yoheimuta/go-protoparser/v4/parser"

	"github.com/anirudhraja/protostream/schema"
)

// parseProtoFile reads one .proto file and converts it into a schema.ProtoFile.
// Named field types are left unresolved (Kind message, raw name) until the
// registry builds its symbol table.
func parseProtoFile(filePath string) (*schema.ProtoFile, error) {
	f, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file: %w", err)
	}
	defer f.Close()

	parsed, err := protoparser.Parse(f, protoparser.WithFilename(filepath.Base(filePath)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", filePath, err)
	}

	protoFile := &schema.ProtoFile{
		Name:     filepath.Base(filePath),
		Syntax:   "proto2", // files without a syntax statement are proto2
		Imports:  []*schema.Import{},
		Messages: []*schema.Message{},
		Enums:    []*schema.Enum{},
	}
	if parsed.Syntax != nil {
		protoFile.Syntax = parsed.Syntax.ProtobufVersion
	}

	for _, body := range parsed.ProtoBody {
		switch b := body.(type) {
		case *protoparserparser.Package:
			protoFile.Package = b.Name
		case *protoparserparser.Import:
			protoFile.Imports = append(protoFile.Imports, &schema.Import{
				Path:   unquote(b.Location),
				Public: b.Modifier == protoparserparser.ImportModifierPublic,
				Weak:   b.Modifier == protoparserparser.ImportModifierWeak,
			})
		case *protoparserparser.Message:
			msg, err := convertMessage(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			protoFile.Messages = append(protoFile.Messages, msg)
		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", filePath, err)
			}
			protoFile.Enums = append(protoFile.Enums, enum)
		}
	}

	return protoFile, nil
}

func convertMessage(m *protoparserparser.Message) (*schema.Message, error) {
	msg := &schema.Message{
		Name:        m.MessageName,
		Fields:      []*schema.Field{},
		NestedTypes: []*schema.Message{},
		NestedEnums: []*schema.Enum{},
		OneofGroups: []*schema.Oneof{},
	}

	for _, body := range m.MessageBody {
		switch b := body.(type) {
		case *protoparserparser.Field:
			number, err := parseNumber(b.FieldNumber)
			if err != nil {
				return nil, fmt.Errorf("message %s field %s: %w", m.MessageName, b.FieldName, err)
			}
			label := schema.LabelOptional
			switch {
			case b.IsRepeated:
				label = schema.LabelRepeated
			case b.IsRequired:
				label = schema.LabelRequired
			}
			msg.Fields = append(msg.Fields, &schema.Field{
				Name:       b.FieldName,
				Number:     number,
				Label:      label,
				Type:       convertType(b.Type),
				OneofIndex: -1,
			})

		case *protoparserparser.MapField:
			number, err := parseNumber(b.FieldNumber)
			if err != nil {
				return nil, fmt.Errorf("message %s map %s: %w", m.MessageName, b.MapName, err)
			}
			key := convertType(b.KeyType)
			if !validMapKey(key) {
				return nil, fmt.Errorf("message %s map %s: invalid map key type %s", m.MessageName, b.MapName, b.KeyType)
			}
			value := convertType(b.Type)
			msg.Fields = append(msg.Fields, &schema.Field{
				Name:   b.MapName,
				Number: number,
				Label:  schema.LabelRepeated,
				Type: schema.FieldType{
					Kind:     schema.KindMap,
					MapKey:   &key,
					MapValue: &value,
				},
				OneofIndex: -1,
			})

		case *protoparserparser.Oneof:
			index := int32(len(msg.OneofGroups))
			oneof := &schema.Oneof{Name: b.OneofName, Fields: []*schema.Field{}}
			for _, of := range b.OneofFields {
				number, err := parseNumber(of.FieldNumber)
				if err != nil {
					return nil, fmt.Errorf("message %s oneof %s field %s: %w", m.MessageName, b.OneofName, of.FieldName, err)
				}
				oneof.Fields = append(oneof.Fields, &schema.Field{
					Name:       of.FieldName,
					Number:     number,
					Label:      schema.LabelOptional,
					Type:       convertType(of.Type),
					OneofIndex: index,
				})
			}
			msg.OneofGroups = append(msg.OneofGroups, oneof)

		case *protoparserparser.Message:
			nested, err := convertMessage(b)
			if err != nil {
				return nil, err
			}
			msg.NestedTypes = append(msg.NestedTypes, nested)

		case *protoparserparser.Enum:
			enum, err := convertEnum(b)
			if err != nil {
				return nil, err
			}
			msg.NestedEnums = append(msg.NestedEnums, enum)
		}
	}

	return msg, nil
}

func convertEnum(e *protoparserparser.Enum) (*schema.Enum, error) {
	enum := &schema.Enum{Name: e.EnumName, Values: []*schema.EnumValue{}}
	for _, body := range e.EnumBody {
		switch b := body.(type) {
		case *protoparserparser.EnumField:
			number, err := parseNumber(b.Number)
			if err != nil {
				return nil, fmt.Errorf("enum %s value %s: %w", e.EnumName, b.Ident, err)
			}
			enum.Values = append(enum.Values, &schema.EnumValue{Name: b.Ident, Number: number})
		case *protoparserparser.Option:
			if b.OptionName == "allow_alias" && b.Constant == "true" {
				enum.AllowAlias = true
			}
		}
	}
	return enum, nil
}

// convertType maps a scalar keyword to a primitive type; anything else is a
// named reference resolved later.
func convertType(typeName string) schema.FieldType {
	if pt, ok := schema.ParsePrimitiveType(typeName); ok {
		return schema.FieldType{Kind: schema.KindPrimitive, PrimitiveType: pt}
	}
	return schema.FieldType{Kind: schema.KindMessage, MessageType: typeName}
}

func validMapKey(t schema.FieldType) bool {
	if t.Kind != schema.KindPrimitive {
		return false
	}
	switch t.PrimitiveType {
	case schema.TypeDouble, schema.TypeFloat, schema.TypeBytes:
		return false
	}
	return true
}

// parseNumber accepts decimal, hex and octal literals as .proto does.
func parseNumber(s string) (int32, error) {
	n, err := strconv.ParseInt(strings.TrimSpace(s), 0, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid number %q: %w", s, err)
	}
	return int32(n), nil
}

func unquote(s string) string {
	return strings.Trim(s, `"'`)
}
