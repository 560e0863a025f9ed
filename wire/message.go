package wire

import (
	"bytes"
	"fmt"
	"io"
)

// Message is a record that can write itself as a sequence of fields.
//
// MarshalWire is invoked twice per serialization, once by the size pass and
// once by the write pass. It must issue the exact same sequence of field
// writes both times for the same value: iterate maps in a fixed order and do
// not mutate the value in between.
type Message interface {
	MarshalWire(e *Encoder) error
}

// LoadableMessage is a record that can build itself from a decoding session.
// UnmarshalWire pulls fields with ReadField until io.EOF and maps tags to its
// own fields; unknown tags may be skipped or rejected.
type LoadableMessage interface {
	UnmarshalWire(d *Decoder) error
}

// Marshal runs both passes and returns msg's encoding.
func Marshal(msg Message) ([]byte, error) {
	s, err := SerializerFor(msg)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, s.Size())
	n, err := s.SerializeInto(msg, buf)
	if err != nil {
		return nil, err
	}
	return buf[:n], nil
}

// Load reads fields from r into msg until the stream ends.
func Load(r io.Reader, msg LoadableMessage) error {
	if err := msg.UnmarshalWire(NewDecoder(r)); err != nil {
		return fmt.Errorf("failed to load message: %w", err)
	}
	return nil
}

// Unmarshal loads msg from an in-memory encoding.
func Unmarshal(data []byte, msg LoadableMessage) error {
	return Load(bytes.NewReader(data), msg)
}
