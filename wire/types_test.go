package wire

import (
	"bytes"
	"testing"

	"google.golang.org/protobuf/encoding/protowire"
)

func TestHeaderExact(t *testing.T) {
	tests := []struct {
		name     string
		num      FieldNumber
		wireType WireType
		want     []byte
	}{
		{"tag0_varint", 0, WireVarint, []byte{0x00}},
		{"tag1_varint", 1, WireVarint, []byte{0x08}},
		{"tag1_bytes", 1, WireBytes, []byte{0x0A}},
		{"tag2_bytes", 2, WireBytes, []byte{0x12}},
		{"tag18_bytes", 18, WireBytes, []byte{0x92, 0x01}},
		{"tag1_fixed32", 1, WireFixed32, []byte{0x0D}},
		{"tag1_fixed64", 1, WireFixed64, []byte{0x09}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AppendVarint(nil, uint64(MakeTag(tt.num, tt.wireType)))
			if !bytes.Equal(got, tt.want) {
				t.Errorf("header = % x, want % x", got, tt.want)
			}

			num, wt := ParseTag(MakeTag(tt.num, tt.wireType))
			if num != tt.num || wt != tt.wireType {
				t.Errorf("ParseTag = (%d, %s), want (%d, %s)", num, wt, tt.num, tt.wireType)
			}
		})
	}
}

func TestHeaderMatchesProtowire(t *testing.T) {
	types := map[WireType]protowire.Type{
		WireVarint:     protowire.VarintType,
		WireFixed64:    protowire.Fixed64Type,
		WireBytes:      protowire.BytesType,
		WireStartGroup: protowire.StartGroupType,
		WireEndGroup:   protowire.EndGroupType,
		WireFixed32:    protowire.Fixed32Type,
	}
	for _, num := range []FieldNumber{1, 15, 16, 2047, 2048, 1<<29 - 1} {
		for wt, pt := range types {
			want := protowire.AppendTag(nil, protowire.Number(num), pt)
			got := AppendVarint(nil, uint64(MakeTag(num, wt)))
			if !bytes.Equal(got, want) {
				t.Errorf("tag(%d, %s) = % x, protowire % x", num, wt, got, want)
			}
			if TagSize(num) != protowire.SizeTag(protowire.Number(num)) {
				t.Errorf("TagSize(%d) = %d, protowire %d", num, TagSize(num), protowire.SizeTag(protowire.Number(num)))
			}
		}
	}
}

func TestWireTypeString(t *testing.T) {
	tests := []struct {
		wt    WireType
		want  string
		valid bool
	}{
		{WireVarint, "varint", true},
		{WireFixed64, "fixed64", true},
		{WireBytes, "length-delimited", true},
		{WireStartGroup, "start-group", true},
		{WireEndGroup, "end-group", true},
		{WireFixed32, "fixed32", true},
		{6, "unknown(6)", false},
		{7, "unknown(7)", false},
	}
	for _, tt := range tests {
		if got := tt.wt.String(); got != tt.want {
			t.Errorf("String() = %q, want %q", got, tt.want)
		}
		if tt.wt.IsValid() != tt.valid {
			t.Errorf("%s.IsValid() = %v", tt.want, !tt.valid)
		}
	}
}
