package wire

import "fmt"

// ===== WIRE FORMAT TYPES =====

// WireType represents the 3-bit encoding code carried in every field header
type WireType uint8

const (
	WireVarint     WireType = 0 // int32, int64, uint32, uint64, sint32, sint64, bool, enum
	WireFixed64    WireType = 1 // fixed64, sfixed64, double
	WireBytes      WireType = 2 // string, bytes, embedded messages, packed repeated fields
	WireStartGroup WireType = 3 // deprecated group start; skip only
	WireEndGroup   WireType = 4 // deprecated group end; skip only
	WireFixed32    WireType = 5 // fixed32, sfixed32, float
)

var wireTypeNames = [...]string{
	WireVarint:     "varint",
	WireFixed64:    "fixed64",
	WireBytes:      "length-delimited",
	WireStartGroup: "start-group",
	WireEndGroup:   "end-group",
	WireFixed32:    "fixed32",
}

// IsValid reports whether wt is one of the six defined wire types.
func (wt WireType) IsValid() bool {
	return wt <= WireFixed32
}

// String returns a readable name for the wire type.
func (wt WireType) String() string {
	if wt.IsValid() {
		return wireTypeNames[wt]
	}
	return fmt.Sprintf("unknown(%d)", uint8(wt))
}

// FieldNumber is the tag a record assigns to one of its fields.
type FieldNumber uint32

// Tag represents a packed field header (field number + wire type)
type Tag uint64

// MakeTag creates a tag from field number and wire type
func MakeTag(fieldNumber FieldNumber, wireType WireType) Tag {
	return Tag(uint64(fieldNumber)<<3 | uint64(wireType&0x7))
}

// ParseTag parses a tag into field number and wire type. It does not check
// either half; the Decoder rejects unknown wire types and oversized numbers.
func ParseTag(tag Tag) (FieldNumber, WireType) {
	return FieldNumber(tag >> 3), WireType(tag & 0x7)
}
