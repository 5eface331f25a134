package value

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/artpar/confchan/domain/property"
)

func TestJSONRoundTrip(t *testing.T) {
	cases := []Value{
		Unset,
		Bool(true),
		Uint8(200),
		Int16(-1234),
		Uint16(40000),
		Int32(-70000),
		Uint32(3_000_000_000),
		Int64(-1 << 40),
		Uint64(1 << 60),
		Float32(1.5),
		Float64(2.75),
		String("Thunar"),
		StringList([]string{"a", "b"}),
		StringList(nil),
		Array([]Value{Int32(1), String("x"), Array([]Value{Bool(false)})}),
	}
	for _, want := range cases {
		t.Run(want.Tag().String(), func(t *testing.T) {
			data, err := json.Marshal(want)
			if err != nil {
				t.Fatalf("marshal: %v", err)
			}
			var got Value
			if err := json.Unmarshal(data, &got); err != nil {
				t.Fatalf("unmarshal %s: %v", data, err)
			}
			if !got.Equal(want) {
				t.Errorf("round trip: got %v, want %v", got, want)
			}
		})
	}
}

func TestJSONWireShape(t *testing.T) {
	data, err := json.Marshal(Int32(42))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"int32","value":42}`
	if string(data) != want {
		t.Errorf("wire shape = %s, want %s", data, want)
	}

	data, err = json.Marshal(Unset)
	if err != nil {
		t.Fatalf("marshal unset: %v", err)
	}
	if string(data) != `{"type":"unset"}` {
		t.Errorf("unset wire shape = %s", data)
	}
}

func TestJSONUnmarshalOverflow(t *testing.T) {
	cases := []string{
		`{"type":"uint8","value":300}`,
		`{"type":"int16","value":40000}`,
		`{"type":"uint16","value":70000}`,
		`{"type":"int32","value":3000000000}`,
		`{"type":"uint32","value":5000000000}`,
	}
	for _, raw := range cases {
		var v Value
		if err := json.Unmarshal([]byte(raw), &v); !errors.Is(err, property.ErrInvalidArgument) {
			t.Errorf("%s: err = %v, want ErrInvalidArgument", raw, err)
		}
	}
}

func TestJSONUnmarshalUnknownTag(t *testing.T) {
	var v Value
	err := json.Unmarshal([]byte(`{"type":"complex128","value":1}`), &v)
	if !errors.Is(err, property.ErrUnsupportedTag) {
		t.Errorf("err = %v, want ErrUnsupportedTag", err)
	}
}
