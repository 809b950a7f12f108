package models

import "github.com/shopspring/decimal"

func init() {
	// Persisted documents and API responses carry money as JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// ParseMoney parses an exact decimal amount from user input.
func ParseMoney(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(s)
}

// MoneyPtr returns a pointer to a copy of d.
func MoneyPtr(d decimal.Decimal) *decimal.Decimal {
	return &d
}
