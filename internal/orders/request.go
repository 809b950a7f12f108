package orders

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/01moynul/modelshop/internal/models"
)

// CreateRequest is the input of order creation. Items stays raw so that
// structurally broken entries can be reported one by one instead of
// failing the whole decode.
type CreateRequest struct {
	UserID          string          `json:"user_id"`
	Items           json.RawMessage `json:"items"`
	ShippingAddress *models.Address `json:"shipping_address,omitempty" binding:"-"`
	IncludeTax      bool            `json:"include_tax"`
	CustomModel     *AssetInput     `json:"custom_model,omitempty"`
	CustomModels    []AssetInput    `json:"custom_models,omitempty"`
	CustomModelURL  string          `json:"custom_model_url,omitempty"`
}

// AssetInput is either an upload (Data, base64 in JSON) or an external
// reference (URL) attached as is.
type AssetInput struct {
	FileName string `json:"file_name,omitempty"`
	Data     []byte `json:"data,omitempty"`
	URL      string `json:"url,omitempty"`
}

// ItemInput is the well-formed shape of one requested line item.
type ItemInput struct {
	ProductID       string `json:"product_id"`
	Quantity        int    `json:"quantity"`
	PriceAdjustment string `json:"price_adjustment,omitempty"`
}

// EncodeItems builds CreateRequest.Items from typed inputs.
func EncodeItems(items ...ItemInput) json.RawMessage {
	raw, _ := json.Marshal(items)
	return raw
}

// requestedItem is a line item that passed structural validation.
type requestedItem struct {
	ProductID string
	Quantity  int
	// Adjustment is the raw price_adjustment, "" when absent. It is
	// parsed during pricing.
	Adjustment string
	// adjustmentInvalid marks a value of a type that can never be a price.
	adjustmentInvalid bool
}

// assets returns every asset input in attachment order.
func (r *CreateRequest) assets() []AssetInput {
	var out []AssetInput
	if r.CustomModel != nil {
		out = append(out, *r.CustomModel)
	}
	out = append(out, r.CustomModels...)
	if r.CustomModelURL != "" {
		out = append(out, AssetInput{URL: r.CustomModelURL})
	}
	return out
}

// validate is stage 1. It reports every structural problem at once.
func (r *CreateRequest) validate() ([]requestedItem, *ValidationError) {
	var errs []string
	if strings.TrimSpace(r.UserID) == "" {
		errs = append(errs, "Missing required field: user_id")
	}

	items, itemErrs := parseItems(r.Items)
	errs = append(errs, itemErrs...)

	if a := r.ShippingAddress; a != nil {
		required := []struct{ name, value string }{
			{"line1", a.Line1},
			{"city", a.City},
			{"postal_code", a.PostalCode},
			{"country", a.Country},
		}
		for _, f := range required {
			if strings.TrimSpace(f.value) == "" {
				errs = append(errs, fmt.Sprintf("Shipping address missing %s", f.name))
			}
		}
	}

	for i, a := range r.assets() {
		if len(a.Data) == 0 && strings.TrimSpace(a.URL) == "" {
			errs = append(errs, fmt.Sprintf("Custom model at index %d needs data or url", i))
		}
	}

	if len(errs) > 0 {
		return nil, failed(StageValidation, errs...)
	}
	return items, nil
}

func parseItems(raw json.RawMessage) ([]requestedItem, []string) {
	if len(bytes.TrimSpace(raw)) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return nil, []string{"Missing required field: items"}
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, []string{"Items must be a list"}
	}
	list, ok := v.([]any)
	if !ok {
		return nil, []string{"Items must be a list"}
	}
	if len(list) == 0 {
		return nil, []string{"Items must contain at least one item"}
	}

	var errs []string
	items := make([]requestedItem, 0, len(list))
	for i, entry := range list {
		obj, ok := entry.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("Item at index %d must be an object", i))
			continue
		}
		id, _ := obj["product_id"].(string)
		if strings.TrimSpace(id) == "" {
			errs = append(errs, fmt.Sprintf("Item at index %d missing product_id", i))
			continue
		}
		rawQty, present := obj["quantity"]
		if !present {
			errs = append(errs, fmt.Sprintf("Item at index %d missing quantity", i))
			continue
		}
		qty, ok := positiveInt(rawQty)
		if !ok {
			errs = append(errs, fmt.Sprintf("Item at index %d has invalid quantity", i))
			continue
		}
		item := requestedItem{ProductID: id, Quantity: qty}
		switch adj := obj["price_adjustment"].(type) {
		case nil:
		case string:
			item.Adjustment = strings.TrimSpace(adj)
		case json.Number:
			item.Adjustment = adj.String()
		default:
			item.adjustmentInvalid = true
		}
		items = append(items, item)
	}
	return items, errs
}

// positiveInt accepts whole numbers above zero, including 2.0.
func positiveInt(v any) (int, bool) {
	n, ok := v.(json.Number)
	if !ok {
		return 0, false
	}
	if i, err := n.Int64(); err == nil {
		return int(i), i > 0
	}
	f, err := n.Float64()
	if err != nil || f <= 0 || f != float64(int64(f)) {
		return 0, false
	}
	return int(f), true
}
