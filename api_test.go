package protostream

import (
	"bytes"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/anirudhraja/protostream/wire"
)

const orderProto = `syntax = "proto3";
package shop.v1;

import "shop/v1/common.proto";

message Order {
  int64 id = 1;
  string customer = 2;
  repeated Item items = 3;
  State state = 4;
  map<string, string> labels = 5;
  Money total = 6;

  message Item {
    string sku = 1;
    uint32 quantity = 2;
  }
}

enum State {
  STATE_UNSPECIFIED = 0;
  STATE_PAID = 1;
}
`

const commonProto = `syntax = "proto3";
package shop.v1;

message Money {
  string currency = 1;
  sint64 units = 2;
}
`

func newShop(t *testing.T) Protostream {
	t.Helper()
	dir := t.TempDir()
	for name, content := range map[string]string{
		"shop/v1/order.proto":  orderProto,
		"shop/v1/common.proto": commonProto,
	} {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}

	proto := New(dir)
	if err := proto.LoadFile("shop/v1/order.proto"); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	return proto
}

func sampleOrder() map[string]any {
	return map[string]any{
		"id":       int64(1001),
		"customer": "ada",
		"items": []any{
			map[string]any{"sku": "A-1", "quantity": uint32(2)},
			map[string]any{"sku": "B-2", "quantity": uint32(1)},
		},
		"state":  "STATE_PAID",
		"labels": map[any]any{"gift": "yes"},
		"total":  map[string]any{"currency": "EUR", "units": int64(-5)},
	}
}

func TestProtostream_MarshalParse(t *testing.T) {
	proto := newShop(t)

	data, err := proto.Marshal(sampleOrder(), "shop.v1.Order")
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	result, err := proto.Parse(data, "Order")
	if err != nil {
		t.Fatalf("Parse failed: %v", err)
	}
	if !reflect.DeepEqual(result, sampleOrder()) {
		t.Errorf("Expected %v, got %v", sampleOrder(), result)
	}
}

func TestProtostream_WriteRead(t *testing.T) {
	proto := newShop(t)

	var buf bytes.Buffer
	if err := proto.Write(&buf, sampleOrder(), "shop.v1.Order"); err != nil {
		t.Fatalf("Write failed: %v", err)
	}
	marshaled, err := proto.Marshal(sampleOrder(), "shop.v1.Order")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(buf.Bytes(), marshaled) {
		t.Errorf("Write and Marshal disagree:\n% x\n% x", buf.Bytes(), marshaled)
	}

	result, err := proto.Read(&buf, "shop.v1.Order")
	if err != nil {
		t.Fatalf("Read failed: %v", err)
	}
	if !reflect.DeepEqual(result, sampleOrder()) {
		t.Errorf("Expected %v, got %v", sampleOrder(), result)
	}
}

func TestProtostream_UnknownMessageType(t *testing.T) {
	proto := newShop(t)

	if _, err := proto.Marshal(map[string]any{}, "Missing"); err == nil || !strings.Contains(err.Error(), "message type not found") {
		t.Errorf("Expected message type error, got %v", err)
	}
	if _, err := proto.Parse(nil, "Missing"); err == nil {
		t.Error("Parse of unknown type succeeded")
	}
}

func TestProtostream_Unmarshal(t *testing.T) {
	proto := newShop(t)

	type Item struct {
		SKU      string `json:"sku"`
		Quantity int
	}
	type Money struct {
		Currency string
		Units    int64
	}
	type Order struct {
		ID       int64 `json:"id"`
		Customer string
		Items    []Item
		State    string
		Labels   map[string]string
		Total    *Money
		Ignored  string `json:"-"`
		internal string
	}

	data, err := proto.Marshal(sampleOrder(), "shop.v1.Order")
	if err != nil {
		t.Fatal(err)
	}

	var order Order
	if err := proto.Unmarshal(data, "shop.v1.Order", &order); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := Order{
		ID:       1001,
		Customer: "ada",
		Items:    []Item{{SKU: "A-1", Quantity: 2}, {SKU: "B-2", Quantity: 1}},
		State:    "STATE_PAID",
		Labels:   map[string]string{"gift": "yes"},
		Total:    &Money{Currency: "EUR", Units: -5},
	}
	if !reflect.DeepEqual(order, want) {
		t.Errorf("Expected %+v, got %+v", want, order)
	}

	if err := proto.Unmarshal(data, "shop.v1.Order", order); err == nil {
		t.Error("Expected error for non-pointer target")
	}
}

func TestProtostream_ParseRaw(t *testing.T) {
	proto := New()

	t.Run("empty_data", func(t *testing.T) {
		result, err := proto.ParseRaw([]byte{})
		if err != nil {
			t.Fatalf("ParseRaw failed: %v", err)
		}
		if len(result) != 0 {
			t.Errorf("Expected empty result, got %v", result)
		}
	})

	t.Run("mixed_fields", func(t *testing.T) {
		var data []byte
		data = wire.AppendVarint(data, uint64(wire.MakeTag(1, wire.WireVarint)))
		data = wire.AppendVarint(data, 42)
		data = wire.AppendVarint(data, uint64(wire.MakeTag(2, wire.WireBytes)))
		data = wire.AppendVarint(data, 5)
		data = append(data, "hello"...)
		data = wire.AppendVarint(data, uint64(wire.MakeTag(3, wire.WireFixed32)))
		data = wire.AppendFixed32(data, 7)
		data = wire.AppendVarint(data, uint64(wire.MakeTag(1, wire.WireVarint)))
		data = wire.AppendVarint(data, 43)

		result, err := proto.ParseRaw(data)
		if err != nil {
			t.Fatalf("ParseRaw failed: %v", err)
		}

		expected := map[string]any{
			"field_1": map[string]any{"type": "varint", "value": []any{uint64(42), uint64(43)}},
			"field_2": map[string]any{"type": "length-delimited", "value": []byte("hello")},
			"field_3": map[string]any{"type": "fixed32", "value": uint32(7)},
		}
		if !reflect.DeepEqual(result, expected) {
			t.Errorf("Expected %v, got %v", expected, result)
		}
	})

	t.Run("truncated", func(t *testing.T) {
		if _, err := proto.ParseRaw([]byte{0x0a, 0x05, 'h'}); err == nil {
			t.Error("Expected error for truncated input")
		}
	})
}

func TestProtostream_SchemaRequired(t *testing.T) {
	proto := New()

	err := proto.LoadSchemaFromFile("/nonexistent/path.proto")
	if err == nil {
		t.Fatal("Expected error for non-existent file")
	}
	if !strings.Contains(err.Error(), "path does not exist") {
		t.Errorf("Expected path error, got: %v", err)
	}
}

func TestProtostream_ListDefinitions(t *testing.T) {
	proto := newShop(t)

	if got, want := proto.ListMessages(), []string{"shop.v1.Money", "shop.v1.Order", "shop.v1.Order.Item"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListMessages = %v, want %v", got, want)
	}
	if got, want := proto.ListEnums(), []string{"shop.v1.State"}; !reflect.DeepEqual(got, want) {
		t.Errorf("ListEnums = %v, want %v", got, want)
	}
	if proto.Registry() == nil {
		t.Error("Registry() returned nil")
	}
}

func TestToSnakeCase(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"", ""},
		{"ID", "id"},
		{"UserID", "user_id"},
		{"UserName", "user_name"},
		{"XMLParser", "xml_parser"},
		{"HTTPSConnection", "https_connection"},
		{"SimpleField", "simple_field"},
		{"alreadySnake", "already_snake"},
	}

	for _, test := range tests {
		result := toSnakeCase(test.input)
		if result != test.expected {
			t.Errorf("toSnakeCase(%q) = %q, expected %q", test.input, result, test.expected)
		}
	}
}

func TestSetFieldValue(t *testing.T) {
	p := &protostream{}

	type target struct {
		Name  string
		Count int32
		Ratio float64
		Any   any
	}
	var s target
	rv := reflect.ValueOf(&s).Elem()

	tests := []struct {
		field   int
		value   any
		wantErr bool
	}{
		{0, "test value", false},
		{1, int64(123), false},
		{2, float32(0.5), false},
		{3, []any{1}, false},
		{0, 65, true},
		{1, "12", true},
	}
	for _, tt := range tests {
		err := p.setFieldValue(rv.Field(tt.field), tt.value)
		if (err != nil) != tt.wantErr {
			t.Errorf("setFieldValue(%d, %#v) error = %v, wantErr %v", tt.field, tt.value, err, tt.wantErr)
		}
	}

	want := target{Name: "test value", Count: 123, Ratio: 0.5, Any: []any{1}}
	if !reflect.DeepEqual(s, want) {
		t.Errorf("got %+v, want %+v", s, want)
	}
}
