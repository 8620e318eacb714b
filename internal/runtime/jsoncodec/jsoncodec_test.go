package jsoncodec

import (
	"bytes"
	"encoding/json"
	"testing"
)

type testPayload struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

func TestMarshalAndUnmarshal(t *testing.T) {
	in := testPayload{ID: 42, Name: "ingress"}
	data, err := Marshal(in)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}

	var out testPayload
	if err := Unmarshal(data, &out); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if out != in {
		t.Fatalf("expected round trip to match, got %#v", out)
	}
}

func TestUnmarshalObject(t *testing.T) {
	obj, err := UnmarshalObject([]byte(`{"orderId":77,"nested":{"ok":true}}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj["orderId"] != json.Number("77") {
		t.Fatalf("expected numbers to decode as json.Number, got %#v", obj["orderId"])
	}
	nested, ok := obj["nested"].(map[string]any)
	if !ok || nested["ok"] != true {
		t.Fatalf("expected nested object, got %#v", obj["nested"])
	}

	empty, err := UnmarshalObject([]byte(`null`))
	if err != nil {
		t.Fatalf("unexpected error for null: %v", err)
	}
	if empty == nil || len(empty) != 0 {
		t.Fatalf("expected empty map for null, got %#v", empty)
	}

	if _, err := UnmarshalObject([]byte(`[1,2]`)); err == nil {
		t.Fatal("expected error for array input")
	}
}

func TestMarshalString(t *testing.T) {
	if got := MarshalString(map[string]int{"a": 1}); got != `{"a":1}` {
		t.Fatalf("unexpected output %q", got)
	}
	if got := MarshalString(make(chan int)); got != "" {
		t.Fatalf("expected empty string for unsupported value, got %q", got)
	}
}

func TestEncodeAndDecode(t *testing.T) {
	buf := &bytes.Buffer{}
	payload := testPayload{ID: 7, Name: "stream"}

	if err := Encode(buf, payload); err != nil {
		t.Fatalf("encode failed: %v", err)
	}

	var decoded testPayload
	if err := Decode(buf, &decoded); err != nil {
		t.Fatalf("decode failed: %v", err)
	}
	if decoded != payload {
		t.Fatalf("expected decoded payload to match, got %#v", decoded)
	}
}

func TestUnmarshalObjectKeepsLargeIntegers(t *testing.T) {
	obj, err := UnmarshalObject([]byte(`{"id":9007199254740993}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if obj["id"] != json.Number("9007199254740993") {
		t.Fatalf("expected exact integer, got %#v", obj["id"])
	}
	if got := MarshalString(obj); got != `{"id":9007199254740993}` {
		t.Fatalf("expected numbers to re-encode verbatim, got %s", got)
	}
}
