package wire

import (
	"bytes"
	"errors"
	"io"
	"testing"
)

// FuzzDecoderSkip walks arbitrary input field by field. Decoding may fail but
// must not panic, and every successful skip must leave the decoder at a
// header boundary.
func FuzzDecoderSkip(f *testing.F) {
	f.Add([]byte{0x00, 0x08, 0x0A, 0x04, 'z', 'o', 'm', 'g', 0x12, 0x03, 'l', 'o', 'l'})
	f.Add([]byte{0x0B, 0x10, 0x01, 0x0C})
	f.Add([]byte{0x0D, 0x01, 0x02, 0x03, 0x04, 0x09, 1, 2, 3, 4, 5, 6, 7, 8})
	f.Add([]byte{})
	f.Add([]byte{0xFF, 0xFE, 0x00, 0x01, 0x02, 0x03, 0x04, 0x05})

	f.Fuzz(func(t *testing.T, data []byte) {
		d := NewDecoderWithConfig(bytes.NewReader(data), Config{MaxBytesLength: 1 << 16, MaxGroupDepth: 16})
		for {
			field, err := d.ReadField()
			if err == io.EOF {
				if d.Offset() != int64(len(data)) {
					t.Fatalf("clean EOF at offset %d of %d", d.Offset(), len(data))
				}
				return
			}
			if err != nil {
				return
			}
			if err := field.Skip(); err != nil {
				return
			}
			if err := field.Skip(); !errors.Is(err, ErrFieldConsumed) {
				t.Fatalf("second Skip = %v", err)
			}
		}
	})
}

// FuzzPersonRoundtrip decodes arbitrary input as a person. When that works,
// encode -> decode -> encode must be idempotent.
func FuzzPersonRoundtrip(f *testing.F) {
	seed, _ := Marshal(&person{
		ID:      3,
		Name:    "seed",
		Tags:    []string{"a"},
		Address: &address{Street: "s", Zip: 9},
		Friends: []*person{{Name: "f"}},
	})
	f.Add(seed)
	f.Add([]byte{})

	f.Fuzz(func(t *testing.T, data []byte) {
		decoded := &person{}
		if err := Unmarshal(data, decoded); err != nil {
			return
		}

		first, err := Marshal(decoded)
		if err != nil {
			t.Fatalf("Marshal after successful decode: %v", err)
		}

		again := &person{}
		if err := Unmarshal(first, again); err != nil {
			t.Fatalf("re-decode failed: %v", err)
		}
		second, err := Marshal(again)
		if err != nil {
			t.Fatalf("second Marshal: %v", err)
		}
		if !bytes.Equal(first, second) {
			t.Errorf("encode is not idempotent:\n  first:  %x\n  second: %x", first, second)
		}
	})
}

func FuzzVarint(f *testing.F) {
	f.Add(uint64(0))
	f.Add(uint64(1554))
	f.Add(^uint64(0))

	f.Fuzz(func(t *testing.T, v uint64) {
		b := AppendVarint(nil, v)
		if len(b) != VarintSize(v) {
			t.Fatalf("VarintSize(%d) = %d, encoded %d", v, VarintSize(v), len(b))
		}
		got, err := ReadVarint(bytes.NewReader(b))
		if err != nil || got != v {
			t.Fatalf("ReadVarint(% x) = %d, %v", b, got, err)
		}
	})
}
