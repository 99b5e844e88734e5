package report

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/spf13/cast"

	"github.com/warepix/warepix/internal/store"
)

// UnknownSupplier groups orders whose supplier field is empty in the daily
// statistics. It sorts after every named supplier.
const UnknownSupplier = "unknown"

// SupplierStat aggregates one supplier's orders of a day.
type SupplierStat struct {
	Supplier      string
	TotalCost     float64
	TotalQuantity int
	TotalAmount   float64
	OrderCount    int
	Orders        []OrderLine
}

// OrderLine is one order row in a statistics detail sheet.
type OrderLine struct {
	Timestamp time.Time
	Code      string
	Name      string
	Customer  string
	Quantity  int
	Price     string
	Amount    float64
	Cost      string
	Remark    string
}

// GrossProfit is total amount minus total cost.
func (s SupplierStat) GrossProfit() float64 {
	return s.TotalAmount - s.TotalCost
}

// ProfitRate is the gross profit share of the total amount, in percent.
func (s SupplierStat) ProfitRate() float64 {
	if s.TotalAmount == 0 {
		return 0
	}
	return s.GrossProfit() / s.TotalAmount * 100
}

// SupplierStats aggregates the orders of one local calendar day per
// supplier: cost, quantity and amount totals plus the detail rows.
func (b *Builder) SupplierStats(ctx context.Context, day time.Time) ([]SupplierStat, error) {
	orders, err := b.records.ListOrders(store.OrderFilter{Day: day})
	if err != nil {
		return nil, err
	}

	stats := map[string]*SupplierStat{}
	for _, o := range orders {
		supplier := o.Supplier
		if supplier == "" {
			supplier = UnknownSupplier
		}
		stat, ok := stats[supplier]
		if !ok {
			stat = &SupplierStat{Supplier: supplier}
			stats[supplier] = stat
		}

		qty := o.QuantityInt()
		stat.TotalCost += o.CostAmount()
		stat.TotalQuantity += qty
		stat.TotalAmount += o.Amount()
		stat.OrderCount++
		stat.Orders = append(stat.Orders, OrderLine{
			Timestamp: o.Timestamp,
			Code:      o.Code,
			Name:      o.Name,
			Customer:  o.Customer,
			Quantity:  qty,
			Price:     o.Price,
			Amount:    o.Amount(),
			Cost:      o.Cost,
			Remark:    o.Remark,
		})
	}

	out := make([]SupplierStat, 0, len(stats))
	for _, stat := range stats {
		stat.TotalCost = math.Round(stat.TotalCost*100) / 100
		stat.TotalAmount = math.Round(stat.TotalAmount*100) / 100
		out = append(out, *stat)
	}
	sort.Slice(out, func(i, j int) bool {
		a, z := out[i].Supplier, out[j].Supplier
		if a == UnknownSupplier {
			return false
		}
		if z == UnknownSupplier {
			return true
		}
		return b.coll.CompareString(a, z) < 0
	})
	return out, nil
}

// SizeQty is the ordered quantity of one size.
type SizeQty struct {
	Size string
	Qty  int
}

// SheetProduct is one product row on the supplier order sheet: per-size
// quantities and the row total, with the stored image.
type SheetProduct struct {
	Code  string
	Name  string
	Sizes []SizeQty
	Total int
	Image string
}

// SupplierSheet is one supplier section of the printable order sheet.
type SupplierSheet struct {
	Supplier string
	Total    int
	Products []SheetProduct
}

// NoSize labels order lines without a size on the sheet.
const NoSize = "unsized"

// SupplierOrderSheet builds the printable daily order sheet: orders grouped
// by supplier, then product code, then size, with summed quantities. Orders
// without a supplier are skipped. The second return is the grand total.
func (b *Builder) SupplierOrderSheet(ctx context.Context, day time.Time) ([]SupplierSheet, int, error) {
	orders, err := b.records.ListOrders(store.OrderFilter{Day: day})
	if err != nil {
		return nil, 0, err
	}

	type productAgg struct {
		code  string
		name  string
		sizes map[string]int
		total int
	}
	bySupplier := map[string]map[string]*productAgg{}
	grandTotal := 0

	for _, o := range orders {
		if o.Supplier == "" {
			continue
		}
		products, ok := bySupplier[o.Supplier]
		if !ok {
			products = map[string]*productAgg{}
			bySupplier[o.Supplier] = products
		}
		agg, ok := products[o.Code]
		if !ok {
			agg = &productAgg{code: o.Code, name: o.Name, sizes: map[string]int{}}
			products[o.Code] = agg
		}
		size := o.Size
		if size == "" {
			size = NoSize
		}
		qty := o.QuantityInt()
		agg.sizes[size] += qty
		agg.total += qty
		grandTotal += qty
	}

	sheets := make([]SupplierSheet, 0, len(bySupplier))
	for supplier, products := range bySupplier {
		sheet := SupplierSheet{Supplier: supplier}
		for _, agg := range products {
			row := SheetProduct{Code: agg.code, Name: agg.name, Total: agg.total}
			for size, qty := range agg.sizes {
				row.Sizes = append(row.Sizes, SizeQty{Size: size, Qty: qty})
			}
			sortSizes(row.Sizes)
			if img, err := b.images.Get(ctx, agg.code, supplier); err == nil && img != nil {
				row.Image = img.File
			}
			sheet.Products = append(sheet.Products, row)
			sheet.Total += agg.total
		}
		sort.Slice(sheet.Products, func(i, j int) bool { return sheet.Products[i].Code < sheet.Products[j].Code })
		sheets = append(sheets, sheet)
	}
	sort.Slice(sheets, func(i, j int) bool { return b.coll.CompareString(sheets[i].Supplier, sheets[j].Supplier) < 0 })
	return sheets, grandTotal, nil
}

// sortSizes orders numerically when sizes parse as numbers, keeping
// non-numeric sizes in front the way the source data writes them.
func sortSizes(sizes []SizeQty) {
	sort.SliceStable(sizes, func(i, j int) bool {
		return cast.ToInt(sizes[i].Size) < cast.ToInt(sizes[j].Size)
	})
}
