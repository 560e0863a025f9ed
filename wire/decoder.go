package wire

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"math"
)

// readChunk is the largest payload allocated in one piece before reading.
const readChunk = 64 << 10

// byteReader is the source a Decoder pulls from.
type byteReader interface {
	io.Reader
	io.ByteReader
}

// Decoder turns a byte stream into a sequence of fields. Each field returned
// by ReadField must be consumed by exactly one accessor before the next one
// can be read.
//
// A Decoder is not safe for concurrent use.
type Decoder struct {
	r       *countingReader
	cfg     Config
	pending *Field
}

// NewDecoder creates a decoder reading from r using the package Config.
// If r does not implement io.ByteReader it is wrapped in a bufio.Reader,
// which may read ahead of the last field consumed.
func NewDecoder(r io.Reader) *Decoder {
	return NewDecoderWithConfig(r, config)
}

// NewDecoderWithConfig creates a decoder reading from r with an explicit
// configuration. Zero limits fall back to DefaultConfig.
func NewDecoderWithConfig(r io.Reader, cfg Config) *Decoder {
	def := DefaultConfig()
	if cfg.MaxBytesLength <= 0 {
		cfg.MaxBytesLength = def.MaxBytesLength
	}
	if cfg.MaxGroupDepth <= 0 {
		cfg.MaxGroupDepth = def.MaxGroupDepth
	}

	br, ok := r.(byteReader)
	if !ok {
		br = bufio.NewReader(r)
	}
	return &Decoder{r: &countingReader{r: br}, cfg: cfg}
}

// NewDecoderBytes creates a decoder over an in-memory buffer.
func NewDecoderBytes(data []byte) *Decoder {
	return NewDecoder(bytes.NewReader(data))
}

// Config returns the configuration the decoder was created with.
func (d *Decoder) Config() Config {
	return d.cfg
}

// Offset returns the number of bytes consumed from the source so far.
func (d *Decoder) Offset() int64 {
	return d.r.n
}

// ReadField reads the next field header.
//
// It returns (nil, io.EOF) when the stream ends cleanly at a field boundary.
// Input ending inside the header yields ErrTruncated and an unknown wire type
// yields ErrInvalidWireType. ReadField fails with ErrFieldPending while the
// previously returned field has not been consumed.
func (d *Decoder) ReadField() (*Field, error) {
	if d.pending != nil && !d.pending.consumed {
		return nil, fmt.Errorf("reading field at offset %d: %w (%v)", d.r.n, ErrFieldPending, d.pending)
	}
	d.pending = nil

	start := d.r.n
	header, err := d.readVarint()
	if err == io.EOF {
		return nil, io.EOF
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode field header at offset %d: %w", start, err)
	}

	num, wireType, err := parseHeader(header)
	if err != nil {
		return nil, fmt.Errorf("failed to decode field header at offset %d: %w", start, err)
	}

	d.pending = &Field{
		d:        d,
		num:      num,
		wireType: wireType,
	}
	return d.pending, nil
}

// parseHeader splits a header varint, rejecting wire types outside the
// defined set and field numbers wider than 32 bits.
func parseHeader(header uint64) (FieldNumber, WireType, error) {
	num, wireType := ParseTag(Tag(header))
	if !wireType.IsValid() {
		return 0, 0, fmt.Errorf("%w: %d", ErrInvalidWireType, uint8(wireType))
	}
	if header>>3 > math.MaxUint32 {
		return 0, 0, ErrFieldNumberOverflow
	}
	return num, wireType, nil
}

// STREAM PRIMITIVES

// countingReader tracks how many bytes have been pulled from the source.
type countingReader struct {
	r byteReader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func (c *countingReader) ReadByte() (byte, error) {
	b, err := c.r.ReadByte()
	if err == nil {
		c.n++
	}
	return b, err
}

func (d *Decoder) readVarint() (uint64, error) {
	v, _, err := readVarint(d.r)
	return v, err
}

// readVarintValue reads a varint that must be present: a clean EOF here is
// still a truncated field.
func (d *Decoder) readVarintValue() (uint64, error) {
	v, err := d.readVarint()
	if err == io.EOF {
		return 0, ErrTruncated
	}
	return v, err
}

// readLength reads a length prefix and checks it against the configured cap.
func (d *Decoder) readLength() (int, error) {
	length, err := d.readVarintValue()
	if err != nil {
		return 0, fmt.Errorf("failed to decode length prefix: %w", err)
	}
	if length > uint64(d.cfg.MaxBytesLength) || length > math.MaxInt32 {
		return 0, fmt.Errorf("%w: %d bytes declared, limit %d", ErrLengthTooLarge, length, d.cfg.MaxBytesLength)
	}
	return int(length), nil
}

// readFull reads exactly len(buf) bytes; a short read is ErrTruncated.
func (d *Decoder) readFull(buf []byte) error {
	n, err := io.ReadFull(d.r, buf)
	if err == io.EOF || err == io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, len(buf), n)
	}
	return err
}

// readBytes reads exactly n bytes. Payloads above readChunk grow with the
// data actually read, so a large declared length on a short stream does not
// allocate the full length up front.
func (d *Decoder) readBytes(n int) ([]byte, error) {
	if n <= readChunk {
		buf := make([]byte, n)
		if err := d.readFull(buf); err != nil {
			return nil, err
		}
		return buf, nil
	}

	var buf bytes.Buffer
	read, err := io.CopyN(&buf, d.r, int64(n))
	if err == io.EOF {
		return nil, fmt.Errorf("%w: need %d bytes, have %d", ErrTruncated, n, read)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// discard drops exactly n bytes from the stream.
func (d *Decoder) discard(n int) error {
	skipped, err := io.CopyN(io.Discard, d.r, int64(n))
	if err == io.EOF {
		return fmt.Errorf("%w: cannot skip %d bytes: only %d available", ErrTruncated, n, skipped)
	}
	return err
}

// skipValue discards the payload of a field with the given wire type.
// Groups are skipped through their matching end marker.
func (d *Decoder) skipValue(num FieldNumber, wireType WireType, depth int) error {
	switch wireType {
	case WireVarint:
		_, err := d.readVarintValue()
		return err
	case WireFixed64:
		return d.discard(Fixed64Size)
	case WireFixed32:
		return d.discard(Fixed32Size)
	case WireBytes:
		length, err := d.readLength()
		if err != nil {
			return err
		}
		return d.discard(length)
	case WireStartGroup:
		return d.skipGroup(num, depth+1)
	case WireEndGroup:
		return fmt.Errorf("%w: field %d", ErrUnexpectedEndGroup, num)
	default:
		return fmt.Errorf("%w: %d", ErrInvalidWireType, uint8(wireType))
	}
}

// skipGroup consumes fields until the end marker for group num.
func (d *Decoder) skipGroup(num FieldNumber, depth int) error {
	if depth > d.cfg.MaxGroupDepth {
		return fmt.Errorf("%w: limit %d", ErrGroupTooDeep, d.cfg.MaxGroupDepth)
	}

	for {
		header, err := d.readVarintValue()
		if err != nil {
			return fmt.Errorf("skipping group %d: %w", num, err)
		}
		innerNum, innerType, err := parseHeader(header)
		if err != nil {
			return fmt.Errorf("skipping group %d: %w", num, err)
		}

		if innerType == WireEndGroup {
			if innerNum != num {
				return fmt.Errorf("%w: group %d closed by %d", ErrUnexpectedEndGroup, num, innerNum)
			}
			return nil
		}

		if err := d.skipValue(innerNum, innerType, depth); err != nil {
			return err
		}
	}
}
