package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is the document stored in the 'products' collection.
// Price is a pointer so a record written without a price can be told apart
// from a free product.
type Product struct {
	ProductID   string           `json:"product_id"`
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Price       *decimal.Decimal `json:"price,omitempty"`
	Quantity    int              `json:"quantity"`
	ModelURL    string           `json:"model_url,omitempty"`
	Category    string           `json:"category"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// DisplayName is the name used in user-facing messages, falling back to the id.
func (p *Product) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.ProductID
}
