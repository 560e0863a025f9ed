package dynamic

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/anirudhraja/protostream/schema"
)

func TestCoerceToInt64(t *testing.T) {
	tests := []struct {
		in      any
		want    int64
		wantErr bool
	}{
		{int(5), 5, false},
		{int8(-5), -5, false},
		{uint16(9), 9, false},
		{json.Number("7"), 7, false},
		{json.Number("8.0"), 8, false},
		{json.Number("8.5"), 0, true},
		{float64(9), 9, false},
		{float64(9.5), 0, true},
		{"10", 10, false},
		{"1e2", 100, false},
		{"abc", 0, true},
		{uint64(math.MaxUint64), 0, true},
		{math.Inf(1), 0, true},
		{true, 0, true},
	}

	for _, tt := range tests {
		got, err := coerceToInt64(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("coerceToInt64(%#v) = %d, %v; want %d, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestCoerceToUint64(t *testing.T) {
	tests := []struct {
		in      any
		want    uint64
		wantErr bool
	}{
		{uint64(math.MaxUint64), math.MaxUint64, false},
		{int(3), 3, false},
		{int(-3), 0, true},
		{float64(-1), 0, true},
		{json.Number("18446744073709551615"), math.MaxUint64, false},
		{"42", 42, false},
		{"-1", 0, true},
		{[]byte("1"), 0, true},
	}

	for _, tt := range tests {
		got, err := coerceToUint64(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("coerceToUint64(%#v) = %d, %v; want %d, err=%v", tt.in, got, err, tt.want, tt.wantErr)
		}
	}
}

func TestCoerceRanges(t *testing.T) {
	if _, err := coerceToInt32(int64(math.MaxInt32) + 1); err == nil {
		t.Error("int32 overflow accepted")
	}
	if v, err := coerceToInt32(int64(math.MinInt32)); err != nil || v != math.MinInt32 {
		t.Errorf("coerceToInt32(MinInt32) = %d, %v", v, err)
	}
	if _, err := coerceToUint32(uint64(math.MaxUint32) + 1); err == nil {
		t.Error("uint32 overflow accepted")
	}
	if f, err := coerceToFloat64(json.Number("2.5")); err != nil || f != 2.5 {
		t.Errorf("coerceToFloat64 = %v, %v", f, err)
	}
	if f, err := coerceToFloat64(uint8(3)); err != nil || f != 3 {
		t.Errorf("coerceToFloat64(uint8) = %v, %v", f, err)
	}
	if b, err := coerceToBool("true"); err != nil || !b {
		t.Errorf("coerceToBool = %v, %v", b, err)
	}
	if _, err := coerceToBool(1); err == nil {
		t.Error("int accepted as bool")
	}
}

func TestCoerceMapKey(t *testing.T) {
	tests := []struct {
		pt   schema.PrimitiveType
		in   any
		want any
	}{
		{schema.TypeString, "k", "k"},
		{schema.TypeBool, "false", false},
		{schema.TypeInt32, int8(-1), int64(-1)},
		{schema.TypeSfixed64, "9", int64(9)},
		{schema.TypeFixed32, 4, uint64(4)},
		{schema.TypeUint64, json.Number("5"), uint64(5)},
	}
	for _, tt := range tests {
		got, err := coerceMapKey(tt.pt, tt.in)
		if err != nil || got != tt.want {
			t.Errorf("coerceMapKey(%s, %#v) = %#v, %v; want %#v", tt.pt, tt.in, got, err, tt.want)
		}
	}

	if _, err := coerceMapKey(schema.TypeDouble, 1.0); err == nil {
		t.Error("double key accepted")
	}
}

func TestCompareKeys(t *testing.T) {
	if compareKeys("a", "b") >= 0 || compareKeys(int64(-1), int64(0)) >= 0 || compareKeys(uint64(2), uint64(1)) <= 0 {
		t.Error("ordering wrong")
	}
	if compareKeys(false, true) >= 0 || compareKeys(true, true) != 0 {
		t.Error("bool ordering wrong")
	}
}
