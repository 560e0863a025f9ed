package wire

import (
	"bytes"
	"math/rand"
	"testing"
)

func benchPerson() *person {
	friends := make([]*person, 16)
	for i := range friends {
		friends[i] = &person{
			ID:      int64(i + 1),
			Name:    "friend",
			Tags:    []string{"x", "y"},
			Address: &address{Street: "Main St", Zip: uint32(10000 + i)},
		}
	}
	return &person{
		ID:      1,
		Name:    "benchmark subject",
		Email:   strPtr("bench@example.com"),
		Tags:    []string{"alpha", "beta", "gamma"},
		Address: &address{Street: "1 Infinite Loop", Zip: 95014},
		Friends: friends,
		Score:   0.75,
		Delta:   -42,
	}
}

// BenchmarkSerializerFor measures the size pass alone.
func BenchmarkSerializerFor(b *testing.B) {
	msg := benchPerson()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := SerializerFor(msg); err != nil {
			b.Fatal(err)
		}
	}
}

// BenchmarkSerializeInto measures the write pass into a reused buffer.
func BenchmarkSerializeInto(b *testing.B) {
	msg := benchPerson()
	s, err := SerializerFor(msg)
	if err != nil {
		b.Fatal(err)
	}
	dst := make([]byte, s.Size())

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := s.SerializeInto(msg, dst); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(s.Size()))
}

func BenchmarkMarshal(b *testing.B) {
	msg := benchPerson()

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := Marshal(msg); err != nil {
			b.Fatal(err)
		}
	}
}

func BenchmarkUnmarshal(b *testing.B) {
	data, err := Marshal(benchPerson())
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		var p person
		if err := Unmarshal(data, &p); err != nil {
			b.Fatal(err)
		}
	}
	b.SetBytes(int64(len(data)))
}

// BenchmarkSkip measures walking a large payload without decoding it.
func BenchmarkSkip(b *testing.B) {
	payload := make([]byte, 1<<20)
	rand.New(rand.NewSource(42)).Read(payload)
	data, err := Marshal(&person{Avatar: payload, Name: "n"})
	if err != nil {
		b.Fatal(err)
	}

	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		d := NewDecoder(bytes.NewReader(data))
		for {
			f, err := d.ReadField()
			if err != nil {
				break
			}
			if err := f.Skip(); err != nil {
				b.Fatal(err)
			}
		}
	}
	b.SetBytes(int64(len(data)))
}

func BenchmarkReadVarint(b *testing.B) {
	data := AppendVarint(nil, 1<<62)

	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if _, err := ReadVarint(bytes.NewReader(data)); err != nil {
			b.Fatal(err)
		}
	}
}
