package hydrate

import "time"

type orderStatus string

const (
	statusPlaced  orderStatus = "placed"
	statusShipped orderStatus = "shipped"
)

var orderStatusEnum = StringEnum("OrderStatus", statusPlaced, statusShipped)

type priority int

const (
	priorityLow  priority = 1
	priorityHigh priority = 2
)

var priorityEnum = IntEnum("Priority", priorityLow, priorityHigh)

type customer struct {
	ID   string
	Name string
}

var customerType = MustType("Customer",
	func(a Args) (any, error) {
		return customer{ID: a.String("id"), Name: a.String("name")}, nil
	},
	FieldOf("id", String(), func(c customer) string { return c.ID }),
	FieldOf("name", String(), func(c customer) string { return c.Name }),
)

type lineItem struct {
	SKU      string
	Quantity int
}

var lineItemType = MustType("LineItem",
	func(a Args) (any, error) {
		return lineItem{SKU: a.String("sku"), Quantity: a.Int("quantity")}, nil
	},
	FieldOf("sku", String(), func(l lineItem) string { return l.SKU }),
	FieldOf("quantity", Int(), func(l lineItem) int { return l.Quantity }).WithDefault(1),
)

type orderPlaced struct {
	OrderID  int
	Amount   int
	Currency string
	Status   orderStatus
	Priority priority
	PlacedAt time.Time
	Customer customer
	Items    []lineItem
	Note     any
}

var orderPlacedType = MustType("OrderPlaced",
	func(a Args) (any, error) {
		return orderPlaced{
			OrderID:  a.Int("orderId"),
			Amount:   a.Int("amount"),
			Currency: a.String("currency"),
			Status:   ArgAs[orderStatus](a, "status"),
			Priority: ArgAs[priority](a, "priority"),
			PlacedAt: a.Time("placedAt"),
			Customer: ArgAs[customer](a, "customer"),
			Items:    SliceAs[lineItem](a, "items"),
			Note:     a.Value("note"),
		}, nil
	},
	FieldOf("orderId", Int(), func(o orderPlaced) int { return o.OrderID }),
	FieldOf("amount", Int(), func(o orderPlaced) int { return o.Amount }),
	FieldOf("currency", String(), func(o orderPlaced) string { return o.Currency }).WithDefault("USD"),
	FieldOf("status", EnumOf(orderStatusEnum), func(o orderPlaced) orderStatus { return o.Status }),
	FieldOf("priority", EnumOf(priorityEnum), func(o orderPlaced) priority { return o.Priority }).WithDefault(priorityLow),
	FieldOf("placedAt", DateTime(), func(o orderPlaced) time.Time { return o.PlacedAt }),
	FieldOf("customer", ObjectOf(customerType), func(o orderPlaced) customer { return o.Customer }),
	FieldOf("items", ArrayOf(ObjectOf(lineItemType)), func(o orderPlaced) []lineItem { return o.Items }).WithDefault([]any{}),
	FieldOf("note", String().Nullable(), func(o orderPlaced) any { return o.Note }),
)

// singleField builds a one-field type whose instance is the resolved value.
func singleField(name string, desc Descriptor) *Type {
	return MustType("Single", func(a Args) (any, error) {
		return a.Value(name), nil
	}, NewField(name, desc))
}
