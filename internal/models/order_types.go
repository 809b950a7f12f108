package models

import (
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
)

// OrderStatus is the lifecycle state of an order.
type OrderStatus string

const (
	StatusPending    OrderStatus = "pending"
	StatusProcessing OrderStatus = "processing"
	StatusShipped    OrderStatus = "shipped"
	StatusDelivered  OrderStatus = "delivered"
	StatusCancelled  OrderStatus = "cancelled"
)

// OrderStatuses lists every accepted status, in lifecycle order.
var OrderStatuses = []OrderStatus{
	StatusPending,
	StatusProcessing,
	StatusShipped,
	StatusDelivered,
	StatusCancelled,
}

func (s OrderStatus) Valid() bool {
	for _, known := range OrderStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// LineItem is one product entry embedded in an order. Price and Subtotal
// are snapshots taken at creation time and are never recomputed.
type LineItem struct {
	ProductID       string           `json:"product_id"`
	Quantity        int              `json:"quantity"`
	Price           decimal.Decimal  `json:"price"`
	PriceAdjustment *decimal.Decimal `json:"price_adjustment,omitempty"`
	Subtotal        decimal.Decimal  `json:"subtotal"`
}

// UnitPrice is the product price plus any per-unit adjustment.
func (li LineItem) UnitPrice() decimal.Decimal {
	if li.PriceAdjustment == nil {
		return li.Price
	}
	return li.Price.Add(*li.PriceAdjustment)
}

// Order is the document stored in the 'orders' collection.
type Order struct {
	OrderID             string           `json:"order_id"`
	UserID              string           `json:"user_id"`
	Items               []LineItem       `json:"items"`
	ShippingAddress     Address          `json:"shipping_address"`
	TotalAmount         decimal.Decimal  `json:"total_amount"`
	CustomizationAmount *decimal.Decimal `json:"customization_amount,omitempty"`
	TaxAmount           *decimal.Decimal `json:"tax_amount,omitempty"`
	Status              OrderStatus      `json:"status"`
	CreatedAt           time.Time        `json:"created_at"`
	Assets              Assets           `json:"-"`
}

type orderFields Order

type orderDocument struct {
	orderFields
	CustomModelURL string   `json:"custom_model_url,omitempty"`
	CustomModels   []string `json:"custom_models,omitempty"`
}

// MarshalJSON flattens Assets into the custom_model_url / custom_models fields.
func (o Order) MarshalJSON() ([]byte, error) {
	doc := orderDocument{orderFields: orderFields(o)}
	doc.CustomModelURL, doc.CustomModels = o.Assets.fields()
	return json.Marshal(doc)
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var doc orderDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	*o = Order(doc.orderFields)
	o.Assets = assetsFromFields(doc.CustomModelURL, doc.CustomModels)
	return nil
}
