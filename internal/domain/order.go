package domain

import (
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Order is one sales order line. The descriptive fields mirror Product;
// quantity and prices stay strings in the persisted layout and are coerced
// on aggregation.
type Order struct {
	ID        string    `json:"id"`
	Customer  string    `json:"customer"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Supplier  string    `json:"supplier"`
	Cost      string    `json:"cost"`
	Price     string    `json:"price"`
	Size      string    `json:"size"`
	Quantity  string    `json:"quantity"`
	Remark    string    `json:"remark"`
	Timestamp time.Time `json:"timestamp"`

	// IsNewImport marks rows from a bulk import. Cosmetic only.
	IsNewImport bool `json:"isNewImport,omitempty"`
}

// SearchString is the haystack for case-insensitive substring filtering.
func (o Order) SearchString() string {
	return strings.ToLower(o.Customer + " " + o.Code + " " + o.Name + " " + o.Supplier)
}

// QuantityInt returns the order quantity as an integer, zero when unparseable.
func (o Order) QuantityInt() int {
	return cast.ToInt(strings.TrimSpace(o.Quantity))
}

// Amount is quantity * unit price.
func (o Order) Amount() float64 {
	return float64(o.QuantityInt()) * cast.ToFloat64(strings.TrimSpace(o.Price))
}

// CostAmount is quantity * unit cost.
func (o Order) CostAmount() float64 {
	return float64(o.QuantityInt()) * cast.ToFloat64(strings.TrimSpace(o.Cost))
}

// Validate checks the fields required before an order may be stored.
func (o Order) Validate() error {
	if strings.TrimSpace(o.Customer) == "" {
		return ValidationErrorf("customer is required")
	}
	if strings.TrimSpace(o.Size) == "" {
		return ValidationErrorf("size is required")
	}
	q := strings.TrimSpace(o.Quantity)
	if q == "" {
		return ValidationErrorf("quantity is required")
	}
	if n, err := cast.ToIntE(q); err != nil || n <= 0 {
		return ValidationErrorf("quantity must be a positive integer: %q", o.Quantity)
	}
	return nil
}
