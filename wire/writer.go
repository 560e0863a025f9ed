package wire

import (
	"bufio"
	"fmt"
	"io"

	"go.uber.org/zap"
)

// outputWriter is the byte-writing pass. It replays a message against a sink,
// taking nested sizes from the list a Serializer recorded.
type outputWriter struct {
	w       io.Writer
	nested  []int
	cur     int
	written int
}

func (o *outputWriter) WriteRaw(p []byte) error {
	n, err := o.w.Write(p)
	o.written += n
	return err
}

func (o *outputWriter) WriteMessage(e *Encoder, num FieldNumber, msg Message) error {
	if o.cur >= len(o.nested) {
		return fmt.Errorf("field %d: %w: more nested messages than recorded (%d)", num, ErrSerializerMismatch, len(o.nested))
	}
	size := o.nested[o.cur]
	o.cur++
	if size == 0 {
		return nil
	}

	if err := e.WriteTag(num, WireBytes); err != nil {
		return err
	}
	if err := e.WriteVarint(uint64(size)); err != nil {
		return err
	}

	start := o.written
	if err := msg.MarshalWire(e); err != nil {
		return fmt.Errorf("field %d: %w", num, err)
	}
	if got := o.written - start; got != size {
		return fmt.Errorf("field %d: %w: nested message wrote %d bytes, recorded %d", num, ErrSerializerMismatch, got, size)
	}
	return nil
}

// run drives msg through the write pass and checks the result against the
// recorded layout.
func (s *Serializer) run(msg Message, w io.Writer) error {
	o := &outputWriter{w: w, nested: s.nested}
	err := msg.MarshalWire(NewEncoder(o))
	if err == nil && (o.written != s.size || o.cur != len(s.nested)) {
		err = fmt.Errorf("%w: wrote %d bytes and %d nested messages, recorded %d and %d",
			ErrSerializerMismatch, o.written, o.cur, s.size, len(s.nested))
	}
	if err != nil {
		Logger().Warn("write pass failed",
			zap.Int("size", s.size),
			zap.Int("written", o.written),
			zap.Int("nested_consumed", o.cur),
			zap.Int("nested_recorded", len(s.nested)),
			zap.Error(err))
		return err
	}
	return nil
}

// Serialize writes msg to w using the layout computed for it. Writers that do
// not buffer on their own are wrapped in a bufio.Writer for the duration of
// the call.
func (s *Serializer) Serialize(msg Message, w io.Writer) error {
	if _, ok := w.(io.ByteWriter); ok {
		return s.run(msg, w)
	}

	bw := bufio.NewWriter(w)
	if err := s.run(msg, bw); err != nil {
		return err
	}
	return bw.Flush()
}

// SerializeInto writes msg into the front of dst and returns the number of
// bytes written. It fails with ErrBufferTooSmall, writing nothing, when dst is
// shorter than Size.
func (s *Serializer) SerializeInto(msg Message, dst []byte) (int, error) {
	if len(dst) < s.size {
		return 0, fmt.Errorf("%w: need %d bytes, have %d", ErrBufferTooSmall, s.size, len(dst))
	}
	buf := &fixedBuffer{buf: dst}
	if err := s.run(msg, buf); err != nil {
		return buf.n, err
	}
	return buf.n, nil
}

// fixedBuffer is an io.Writer over a caller-owned slice that never grows.
type fixedBuffer struct {
	buf []byte
	n   int
}

func (b *fixedBuffer) Write(p []byte) (int, error) {
	n := copy(b.buf[b.n:], p)
	b.n += n
	if n < len(p) {
		return n, io.ErrShortBuffer
	}
	return n, nil
}
