package hydrate

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	ierrors "github.com/drblury/ingressflow/internal/runtime/errors"
	"github.com/drblury/ingressflow/internal/runtime/jsoncodec"
)

func payload(t *testing.T, raw string) map[string]any {
	t.Helper()
	m, err := jsoncodec.UnmarshalObject([]byte(raw))
	require.NoError(t, err)
	return m
}

func TestHydrateOrder(t *testing.T) {
	event, err := As[orderPlaced](orderPlacedType, payload(t, `{
		"specversion": "1.0",
		"id": "evt-1",
		"data": {
			"order_id": "77",
			"amount": 1599,
			"status": "placed",
			"priority": 2,
			"placed_at": "2024-03-01T10:00:00Z",
			"customer": {"id": "c-1", "Name": "Ada"},
			"items": [{"sku": "A", "quantity": 2}, {"sku": "B"}, "opaque"]
		}
	}`))
	require.NoError(t, err)

	assert.Equal(t, 77, event.OrderID)
	assert.Equal(t, 1599, event.Amount)
	assert.Equal(t, "USD", event.Currency)
	assert.Equal(t, statusPlaced, event.Status)
	assert.Equal(t, priorityHigh, event.Priority)
	assert.True(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC).Equal(event.PlacedAt))
	assert.Equal(t, customer{ID: "c-1", Name: "Ada"}, event.Customer)
	assert.Equal(t, []lineItem{{SKU: "A", Quantity: 2}, {SKU: "B", Quantity: 1}}, event.Items)
	assert.Nil(t, event.Note)
}

func TestHydrateNameVariants(t *testing.T) {
	orderID := singleField("orderId", Int())
	customerName := singleField("customer_name", String())

	tests := []struct {
		name string
		typ  *Type
		raw  string
		want any
	}{
		{"as declared", orderID, `{"orderId": 77}`, 77},
		{"snake case", orderID, `{"order_id": 77}`, 77},
		{"studly case", orderID, `{"OrderId": 77}`, 77},
		{"nested snake case", orderID, `{"order": {"order_id": 77}}`, 77},
		{"deeply nested studly", orderID, `{"a": {"b": [{"OrderId": 77}]}}`, 77},
		{"camel case of snake field", customerName, `{"customerName": "Ada"}`, "Ada"},
		{"studly of snake field", customerName, `{"CustomerName": "Ada"}`, "Ada"},
		{"nested camel of snake field", customerName, `{"meta": {"customerName": "Ada"}}`, "Ada"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hydrate(tt.typ, payload(t, tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHydrateDottedPathLookup(t *testing.T) {
	typ := singleField("customer.id", String())
	got, err := Hydrate(typ, payload(t, `{"customer": {"id": "c-9"}, "id": "other"}`))
	require.NoError(t, err)
	assert.Equal(t, "c-9", got)
}

func TestHydrateFlattenedLookupIsShallowestFirst(t *testing.T) {
	typ := singleField("id", String())
	got, err := Hydrate(typ, payload(t, `{"b": {"id": "1"}, "a": {"deep": {"id": "3"}}, "c": {"id": "2"}}`))
	require.NoError(t, err)
	assert.Equal(t, "1", got)
}

func TestHydrateNullCountsAsMissing(t *testing.T) {
	typ := singleField("orderId", Int())
	got, err := Hydrate(typ, payload(t, `{"orderId": null, "nested": {"order_id": 5}}`))
	require.NoError(t, err)
	assert.Equal(t, 5, got)
}

func TestHydrateMissingRequiredField(t *testing.T) {
	_, err := Hydrate(orderPlacedType, payload(t, `{"amount": 1}`))
	require.Error(t, err)

	assert.True(t, errors.Is(err, ierrors.ErrHydration))
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "missing required field orderId")

	var he *HydrationError
	require.ErrorAs(t, err, &he)
	assert.Equal(t, "OrderPlaced", he.Type)
	assert.Equal(t, "orderId", he.Field)
}

func TestHydrateDefaultsAndNullable(t *testing.T) {
	withDefault := MustType("WithDefault", func(a Args) (any, error) {
		return a.Values(), nil
	}, NewField("count", Int()).WithDefault(3), NewField("label", String().Nullable()))

	got, err := Hydrate(withDefault, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, []any{3, nil}, got)

	got, err = Hydrate(withDefault, map[string]any{"count": "9", "label": 4.0})
	require.NoError(t, err)
	assert.Equal(t, []any{9, "4"}, got)
}

func TestHydrateNestedMissingField(t *testing.T) {
	_, err := Hydrate(orderPlacedType, payload(t, `{"orderId": 1, "amount": 1, "status": "placed",
		"placedAt": "2024-01-01", "customer": {"id": "c-1"}}`))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrMissingField))
	assert.Contains(t, err.Error(), "OrderPlaced.customer")
	assert.Contains(t, err.Error(), "Customer.name")
}

func TestHydrateEnumMismatch(t *testing.T) {
	_, err := Hydrate(singleField("status", EnumOf(orderStatusEnum)), map[string]any{"status": "lost"})
	assert.True(t, errors.Is(err, ErrEnumValue))
	assert.True(t, errors.Is(err, ierrors.ErrHydration))

	_, err = Hydrate(singleField("priority", EnumOf(priorityEnum)), map[string]any{"priority": 1.5})
	assert.True(t, errors.Is(err, ErrEnumValue))
}

func TestHydrateInvalidDateTime(t *testing.T) {
	_, err := Hydrate(singleField("at", DateTime()), map[string]any{"at": "soon"})
	assert.True(t, errors.Is(err, ierrors.ErrHydration))

	got, err := Hydrate(singleField("at", DateTime()), map[string]any{"at": float64(1700000000)})
	require.NoError(t, err)
	assert.Equal(t, time.Unix(1700000000, 0).UTC(), got)
}

func TestHydrateScalarCoercion(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		raw  any
		want any
	}{
		{"int from string", Int(), "42", 42},
		{"int from decimal string", Int(), "12.5", 12},
		{"int from garbage", Int(), "abc", 0},
		{"int from zero padded string", Int(), "012", 12},
		{"int ignores hex prefix", Int(), "0x1F", 0},
		{"int from padded whitespace", Int(), " 7 ", 7},
		{"int from json number", Int(), json.Number("41"), 41},
		{"int from fractional json number", Int(), json.Number("41.9"), 41},
		{"int64 from large json number", Int64(), json.Number("9007199254740993"), int64(9007199254740993)},
		{"float from json number", Float(), json.Number("2.5"), 2.5},
		{"string from json number", String(), json.Number("9007199254740993"), "9007199254740993"},
		{"int64 from float", Int64(), 1599.0, int64(1599)},
		{"float from string", Float(), "2.5", 2.5},
		{"string from number", String(), 15.0, "15"},
		{"bool from string", Bool(), "true", true},
		{"bool from garbage", Bool(), "maybe", false},
		{"mapping for scalar passes through", Int(), map[string]any{"a": 1.0}, map[string]any{"a": 1.0}},
		{"object expected, scalar given", ObjectOf(customerType), "c-1", "c-1"},
		{"raw array passes through", RawArray(), []any{1.0, "x"}, []any{1.0, "x"}},
		{"any passes through", Any(), map[string]any{"k": "v"}, map[string]any{"k": "v"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hydrate(singleField("value", tt.desc), map[string]any{"value": tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHydrateKeepsLargeIntegersFromJSON(t *testing.T) {
	raw := payload(t, `{"id": 9007199254740993}`)

	got, err := Hydrate(singleField("id", Int64()), raw)
	require.NoError(t, err)
	assert.Equal(t, int64(9007199254740993), got)

	type snowflake struct{ ID int64 }
	snowflakeType := MustType("Snowflake",
		func(a Args) (any, error) { return snowflake{ID: a.Int64("id")}, nil },
		FieldOf("id", Int64(), func(s snowflake) int64 { return s.ID }),
	)
	instance, err := Hydrate(snowflakeType, raw)
	require.NoError(t, err)
	assert.Equal(t, snowflake{ID: 9007199254740993}, instance)

	out, err := Serialize(snowflakeType, instance)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"id": int64(9007199254740993)}, out)
}

func TestHydrateIntegerOutOfRange(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		raw  any
	}{
		{"float above int64", Int64(), 1e19},
		{"float below int64", Int(), -1e19},
		{"json number above int64", Int64(), json.Number("9223372036854775808")},
		{"string above int64", Int(), "99999999999999999999"},
		{"exponent overflow", Int64(), "1e400"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Hydrate(singleField("value", tt.desc), map[string]any{"value": tt.raw})
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrIntRange)
			assert.ErrorIs(t, err, ierrors.ErrHydration)
		})
	}
}

func TestHydrateArrayOfScalars(t *testing.T) {
	got, err := Hydrate(singleField("ids", ArrayOf(Int())), map[string]any{"ids": []any{"1", 2.0}})
	require.NoError(t, err)
	assert.Equal(t, []any{1, 2}, got)
}

type lineItems struct{ all []any }

func (l lineItems) Items() []any { return l.all }

func TestHydrateCollection(t *testing.T) {
	desc := CollectionOf(ObjectOf(lineItemType), func(items []any) any { return lineItems{all: items} })
	got, err := Hydrate(singleField("items", desc), payload(t, `{"items": [{"sku": "A"}]}`))
	require.NoError(t, err)
	assert.Equal(t, lineItems{all: []any{lineItem{SKU: "A", Quantity: 1}}}, got)
}

func TestHydrateUnion(t *testing.T) {
	tests := []struct {
		name string
		desc Descriptor
		raw  any
		want any
	}{
		{"raw already matches a candidate", Union(Int(), String()), "x", "x"},
		{"first changing candidate wins", Union(Int(), String()), 5.0, 5},
		{"decoded number takes the int candidate", Union(Int(), String()), json.Number("5"), 5},
		{"numeric string stays a string", Union(Int(), String()), "5", "5"},
		{"object candidate hydrates mappings", Union(String(), ObjectOf(customerType)),
			map[string]any{"id": "c-1", "name": "Ada"}, customer{ID: "c-1", Name: "Ada"}},
		{"failing candidate is skipped", Union(ObjectOf(lineItemType), ObjectOf(customerType)),
			map[string]any{"id": "c-1", "name": "Ada"}, customer{ID: "c-1", Name: "Ada"}},
		{"raw bool matches bool candidate", Union(Bool(), Int()), true, true},
		{"falls back to first candidate", Union(String(), RawArray()),
			map[string]any{"a": 1.0}, map[string]any{"a": 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Hydrate(singleField("value", tt.desc), map[string]any{"value": tt.raw})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestHydrateProto(t *testing.T) {
	typ := singleField("shipping", Proto(func() proto.Message { return &structpb.Struct{} }))
	got, err := Hydrate(typ, payload(t, `{"shipping": {"carrier": "dhl", "express": true}}`))
	require.NoError(t, err)

	msg, ok := got.(*structpb.Struct)
	require.True(t, ok)
	assert.Equal(t, "dhl", msg.GetFields()["carrier"].GetStringValue())
	assert.True(t, msg.GetFields()["express"].GetBoolValue())
}

func TestHydrateFromPayload(t *testing.T) {
	called := false
	typ := Custom("Custom", func(p map[string]any) (any, error) {
		called = true
		return p["specversion"], nil
	})

	got, err := Hydrate(typ, map[string]any{"specversion": "1.0", "data": map[string]any{}})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, "1.0", got, "the factory receives the payload untouched")

	failing := Custom("Failing", func(map[string]any) (any, error) { return nil, errors.New("nope") })
	_, err = Hydrate(failing, nil)
	assert.True(t, errors.Is(err, ierrors.ErrHydration))
}

func TestHydrateNotInstantiable(t *testing.T) {
	_, err := Hydrate(&Type{Name: "Abstract"}, map[string]any{})
	assert.True(t, errors.Is(err, ErrNotInstantiable))
	assert.True(t, errors.Is(err, ierrors.ErrHydration))

	_, err = Hydrate(nil, map[string]any{})
	assert.True(t, errors.Is(err, ierrors.ErrEventTypeRequired))
}

func TestHydrateDoesNotUnwrapNestedCloudEvents(t *testing.T) {
	wrapper := MustType("Wrapper", func(a Args) (any, error) {
		return a.Value("inner"), nil
	}, NewField("inner", ObjectOf(singleField("specversion", String()))))

	got, err := Hydrate(wrapper, payload(t, `{"inner": {"specversion": "1.0", "data": {"specversion": "2.0"}}}`))
	require.NoError(t, err)
	assert.Equal(t, "1.0", got)
}

func TestNewTypeValidation(t *testing.T) {
	_, err := NewType("Broken", nil, Field{Name: "missing"})
	assert.ErrorContains(t, err, "no valid descriptor")

	_, err = NewType("Broken", nil, NewField("items", ArrayOf(Descriptor{})))
	assert.ErrorContains(t, err, "no valid descriptor")

	_, err = NewType("Broken", nil, NewField("a", Int()), NewField("a", String()))
	assert.ErrorContains(t, err, "duplicate field a")

	_, err = NewType("", nil)
	assert.ErrorIs(t, err, ierrors.ErrEventTypeRequired)

	assert.Panics(t, func() { MustType("Broken", nil, NewField("", Int())) })
}

func TestNameVariants(t *testing.T) {
	assert.Equal(t, []string{"orderId", "order_id", "OrderId"}, nameVariants("orderId"))
	assert.Equal(t, []string{"customer_name", "customerName", "CustomerName"}, nameVariants("customer_name"))
}
