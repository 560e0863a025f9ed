// Package dynamic encodes and decodes messages described by a schema at
// runtime, without generated code. A Message plugs into the wire package's
// two-pass encoder and streaming decoder like any hand-written record.
package dynamic

import (
	"fmt"
	"io"

	"github.com/anirudhraja/protostream/registry"
	"github.com/anirudhraja/protostream/schema"
	"github.com/anirudhraja/protostream/wire"
)

// Message is a record whose layout is taken from a schema.Message. Values are
// keyed by field name.
//
// Accepted value shapes when encoding:
//   - scalars: any Go number, json.Number, numeric strings, bool, string, []byte
//   - enums: the value name or its number
//   - messages: map[string]any, *Message or any wire.Message
//   - repeated fields: any slice
//   - map fields: any Go map with keys coercible to the key type
//
// Decoding produces int32, int64, uint32, uint64, float32, float64, bool,
// string and []byte scalars, enum names (or int32 for numbers the enum does
// not define), map[string]any for messages, []any for repeated fields and
// map[any]any for map fields.
type Message struct {
	desc *schema.Message
	reg  *registry.Registry

	Values map[string]any
}

var (
	_ wire.Message         = (*Message)(nil)
	_ wire.LoadableMessage = (*Message)(nil)
)

// New creates an empty message for desc. reg resolves the message and enum
// types desc's fields refer to; it may be nil when desc only has scalar fields.
func New(desc *schema.Message, reg *registry.Registry) *Message {
	return &Message{desc: desc, reg: reg, Values: make(map[string]any)}
}

// NewFromRegistry creates an empty message for the named type.
func NewFromRegistry(reg *registry.Registry, messageType string) (*Message, error) {
	desc, err := reg.GetMessage(messageType)
	if err != nil {
		return nil, err
	}
	return New(desc, reg), nil
}

// Descriptor returns the message's schema.
func (m *Message) Descriptor() *schema.Message { return m.desc }

// Get returns the value of the named field.
func (m *Message) Get(name string) (any, bool) {
	v, ok := m.Values[name]
	return v, ok
}

// Set assigns a field. Setting a oneof member clears the other members of its
// group.
func (m *Message) Set(name string, v any) error {
	field := m.desc.FieldByName(name)
	if field == nil {
		return fmt.Errorf("message %s has no field %q", m.name(), name)
	}
	if m.Values == nil {
		m.Values = make(map[string]any)
	}
	m.clearOneof(field)
	m.Values[name] = v
	return nil
}

// Clear removes a field.
func (m *Message) Clear(name string) {
	delete(m.Values, name)
}

func (m *Message) clearOneof(field *schema.Field) {
	if field.OneofIndex < 0 || int(field.OneofIndex) >= len(m.desc.OneofGroups) {
		return
	}
	for _, member := range m.desc.OneofGroups[field.OneofIndex].Fields {
		if member.Name != field.Name {
			delete(m.Values, member.Name)
		}
	}
}

func (m *Message) name() string {
	if m.desc.FullName != "" {
		return m.desc.FullName
	}
	return m.desc.Name
}

// Marshal encodes the message.
func (m *Message) Marshal() ([]byte, error) {
	return wire.Marshal(m)
}

// Unmarshal replaces the message's values with those decoded from data.
func (m *Message) Unmarshal(data []byte) error {
	m.Values = make(map[string]any)
	return wire.Unmarshal(data, m)
}

// Encode streams the encoded message to w.
func (m *Message) Encode(w io.Writer) error {
	s, err := wire.SerializerFor(m)
	if err != nil {
		return err
	}
	return s.Serialize(m, w)
}

// Decode replaces the message's values with those decoded from r, read up
// to EOF.
func (m *Message) Decode(r io.Reader) error {
	m.Values = make(map[string]any)
	return wire.Load(r, m)
}

func (m *Message) lookupMessage(name string) (*schema.Message, error) {
	if m.reg == nil {
		return nil, fmt.Errorf("no registry to resolve message type %s", name)
	}
	return m.reg.GetMessage(name)
}

func (m *Message) lookupEnum(name string) (*schema.Enum, error) {
	if m.reg == nil {
		return nil, fmt.Errorf("no registry to resolve enum type %s", name)
	}
	return m.reg.GetEnum(name)
}
