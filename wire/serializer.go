package wire

import "fmt"

// Serializer is the size-computing pass. As a Backend it counts bytes instead
// of writing them and records the size of every nested message in the order
// the nested fields are entered.
//
// A computed Serializer describes one message value; Serialize and
// SerializeInto replay that value's MarshalWire against a real sink using the
// recorded sizes. Reusing it for a different value, or for a value that
// changed since Compute, fails with ErrSerializerMismatch.
type Serializer struct {
	size   int
	nested []int
}

// SerializerFor runs the size pass over msg.
func SerializerFor(msg Message) (*Serializer, error) {
	s := &Serializer{}
	if err := s.Compute(msg); err != nil {
		return nil, err
	}
	return s, nil
}

// Compute resets s and runs the size pass over msg.
func (s *Serializer) Compute(msg Message) error {
	s.Reset()
	if err := msg.MarshalWire(NewEncoder(s)); err != nil {
		return fmt.Errorf("failed to compute message size: %w", err)
	}
	return nil
}

// Reset clears the computed layout, keeping allocated capacity.
func (s *Serializer) Reset() {
	s.size = 0
	s.nested = s.nested[:0]
}

// Size returns the exact encoded length of the message last computed.
func (s *Serializer) Size() int {
	return s.size
}

// NestedSizes returns a copy of the recorded nested-message sizes in
// depth-first pre-order.
func (s *Serializer) NestedSizes() []int {
	out := make([]int, len(s.nested))
	copy(out, s.nested)
	return out
}

// WriteRaw counts p.
func (s *Serializer) WriteRaw(p []byte) error {
	s.size += len(p)
	return nil
}

// WriteMessage pushes a placeholder, walks msg, then patches the placeholder
// with the nested size. An empty nested message adds nothing; any placeholders
// its descendants pushed are dropped so the write pass, which does not recurse
// into a zero-size field, stays aligned with the list.
func (s *Serializer) WriteMessage(e *Encoder, num FieldNumber, msg Message) error {
	pos := len(s.nested)
	s.nested = append(s.nested, 0)

	before := s.size
	if err := msg.MarshalWire(e); err != nil {
		return fmt.Errorf("field %d: %w", num, err)
	}

	n := s.size - before
	if n == 0 {
		s.nested = s.nested[:pos+1]
		return nil
	}

	s.nested[pos] = n
	s.size += TagSize(num) + VarintSize(uint64(n))
	return nil
}
