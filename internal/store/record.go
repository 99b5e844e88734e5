package store

import (
	"sort"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/domain"
)

// ProductFilter selects products from a full listing. Zero-value fields
// match everything.
type ProductFilter struct {
	// Search is matched case-insensitively against code+name+supplier.
	Search string
	// Day restricts to records stamped between local midnight of that day
	// and the next.
	Day time.Time
	// Code and Supplier require exact matches.
	Code     string
	Supplier string
}

func (f ProductFilter) match(p domain.Product) bool {
	if f.Search != "" && !strings.Contains(p.SearchString(), strings.ToLower(f.Search)) {
		return false
	}
	if f.Code != "" && p.Code != f.Code {
		return false
	}
	if f.Supplier != "" && p.Supplier != f.Supplier {
		return false
	}
	return matchDay(f.Day, p.Timestamp)
}

// OrderFilter selects orders from a full listing.
type OrderFilter struct {
	// Search is matched case-insensitively against customer+code+name+supplier.
	Search string
	// Day restricts to orders stamped within that local calendar day.
	Day time.Time
}

func (f OrderFilter) match(o domain.Order) bool {
	if f.Search != "" && !strings.Contains(o.SearchString(), strings.ToLower(f.Search)) {
		return false
	}
	return matchDay(f.Day, o.Timestamp)
}

func matchDay(day, ts time.Time) bool {
	if day.IsZero() {
		return true
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.Local)
	end := start.AddDate(0, 0, 1)
	local := ts.Local()
	return !local.Before(start) && local.Before(end)
}

// RecordStore owns the product and order mappings plus auxiliary settings.
// It is the only component allowed to touch those slots.
type RecordStore struct {
	slots *SlotStore
	node  *snowflake.Node
}

func NewRecordStore(dir string) (*RecordStore, error) {
	node, err := snowflake.NewNode(1)
	if err != nil {
		return nil, domain.StorageErrorf(err, "init order id generator")
	}
	return &RecordStore{slots: NewSlotStore(dir), node: node}, nil
}

// NewOrderID mints an opaque unique order id.
func (s *RecordStore) NewOrderID() string {
	return "order_" + s.node.Generate().String()
}

// UpsertProduct writes p under its composite key, overwriting any existing
// entry there.
func (s *RecordStore) UpsertProduct(p *domain.Product) error {
	if strings.TrimSpace(p.Code) == "" {
		return domain.ValidationErrorf("product code is required")
	}
	p.ID = p.Key()
	if p.Timestamp.IsZero() {
		p.Timestamp = time.Now()
	}

	products := map[string]domain.Product{}
	return s.slots.Update(SlotProducts, &products, func() error {
		products[p.ID] = *p
		return nil
	})
}

// GetProduct is a point lookup; a missing key returns (nil, nil).
func (s *RecordStore) GetProduct(id string) (*domain.Product, error) {
	products := map[string]domain.Product{}
	if err := s.slots.Load(SlotProducts, &products); err != nil {
		return nil, err
	}
	if p, ok := products[id]; ok {
		return &p, nil
	}
	return nil, nil
}

// DeleteProduct removes the entry at id. Idempotent.
func (s *RecordStore) DeleteProduct(id string) error {
	products := map[string]domain.Product{}
	return s.slots.Update(SlotProducts, &products, func() error {
		delete(products, id)
		return nil
	})
}

// ListProducts returns matching products ordered by composite key.
func (s *RecordStore) ListProducts(filter ProductFilter) ([]domain.Product, error) {
	products := map[string]domain.Product{}
	if err := s.slots.Load(SlotProducts, &products); err != nil {
		return nil, err
	}
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if filter.match(p) {
			out = append(out, p)
		}
	}
	sortProducts(out)
	return out, nil
}

// ClearProducts wipes the product mapping. Orders are untouched.
func (s *RecordStore) ClearProducts() error {
	return s.slots.Remove(SlotProducts)
}

// UpsertOrder validates and writes o, minting an id when absent.
func (s *RecordStore) UpsertOrder(o *domain.Order) error {
	if err := o.Validate(); err != nil {
		return err
	}
	if o.ID == "" {
		o.ID = s.NewOrderID()
	}
	if o.Timestamp.IsZero() {
		o.Timestamp = time.Now()
	}

	orders := map[string]domain.Order{}
	return s.slots.Update(SlotOrders, &orders, func() error {
		orders[o.ID] = *o
		return nil
	})
}

// GetOrder is a point lookup; a missing id returns (nil, nil).
func (s *RecordStore) GetOrder(id string) (*domain.Order, error) {
	orders := map[string]domain.Order{}
	if err := s.slots.Load(SlotOrders, &orders); err != nil {
		return nil, err
	}
	if o, ok := orders[id]; ok {
		return &o, nil
	}
	return nil, nil
}

// DeleteOrder removes the order at id. Idempotent.
func (s *RecordStore) DeleteOrder(id string) error {
	orders := map[string]domain.Order{}
	return s.slots.Update(SlotOrders, &orders, func() error {
		delete(orders, id)
		return nil
	})
}

// UpdateOrderField applies one inline edit to a stored order. The edited
// value is validated together with the rest of the record before the
// mapping is written back.
func (s *RecordStore) UpdateOrderField(id, field, value string) error {
	orders := map[string]domain.Order{}
	return s.slots.Update(SlotOrders, &orders, func() error {
		o, ok := orders[id]
		if !ok {
			return domain.ValidationErrorf("order %s not found", id)
		}
		switch field {
		case "customer":
			o.Customer = value
		case "code":
			o.Code = value
		case "name":
			o.Name = value
		case "supplier":
			o.Supplier = value
		case "cost":
			o.Cost = value
		case "price":
			o.Price = value
		case "size":
			o.Size = value
		case "quantity":
			o.Quantity = value
		case "remark":
			o.Remark = value
		default:
			return domain.ValidationErrorf("unknown order field %q", field)
		}
		if err := o.Validate(); err != nil {
			return err
		}
		orders[id] = o
		return nil
	})
}

// ListOrders returns matching orders, newest first.
func (s *RecordStore) ListOrders(filter OrderFilter) ([]domain.Order, error) {
	orders := map[string]domain.Order{}
	if err := s.slots.Load(SlotOrders, &orders); err != nil {
		return nil, err
	}
	out := make([]domain.Order, 0, len(orders))
	for _, o := range orders {
		if filter.match(o) {
			out = append(out, o)
		}
	}
	sortOrders(out)
	return out, nil
}

// DeleteOrders removes the given ids one by one, logging and continuing on
// per-item failures.
func (s *RecordStore) DeleteOrders(ids []string) *domain.BatchResult {
	result := domain.NewBatchResult()
	for _, id := range ids {
		if err := s.DeleteOrder(id); err != nil {
			zap.L().Error("batch order delete failed", zap.String("order_id", id), zap.Error(err))
			result.Fail(id, err)
			continue
		}
		result.Ok()
	}
	return result
}

func sortProducts(items []domain.Product) {
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })
}

func sortOrders(items []domain.Order) {
	sort.Slice(items, func(i, j int) bool { return items[i].Timestamp.After(items[j].Timestamp) })
}
