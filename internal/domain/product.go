package domain

import (
	"strings"
	"time"
)

// UnclassifiedSupplier is the grid group for images whose composite key has
// no matching product record.
const UnclassifiedSupplier = "unclassified"

// CompositeKey joins product code and supplier into the shared identity used
// by both stores. Supplier may be empty.
func CompositeKey(code, supplier string) string {
	return code + "_" + supplier
}

// SplitCompositeKey is the inverse of CompositeKey. Codes never contain the
// separator, so the first underscore splits the pair.
func SplitCompositeKey(id string) (code, supplier string) {
	if i := strings.Index(id, "_"); i >= 0 {
		return id[:i], id[i+1:]
	}
	return id, ""
}

// Product is the metadata record for one catalog item. Descriptive fields
// stay strings, matching the persisted slot layout.
type Product struct {
	ID        string    `json:"id"`
	Code      string    `json:"code"`
	Name      string    `json:"name"`
	Supplier  string    `json:"supplier"`
	Cost      string    `json:"cost"`
	Price     string    `json:"price"`
	Size      string    `json:"size"`
	Remark    string    `json:"remark"`
	Timestamp time.Time `json:"timestamp"`
}

// Key returns the product's composite identity.
func (p Product) Key() string {
	return CompositeKey(p.Code, p.Supplier)
}

// SearchString is the haystack for case-insensitive substring filtering.
func (p Product) SearchString() string {
	return strings.ToLower(p.Code + " " + p.Name + " " + p.Supplier)
}
