package report

import (
	"context"
	"sort"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/warepix/warepix/internal/domain"
	"github.com/warepix/warepix/internal/store"
)

// ImageSource is the blob-store surface reports read from.
type ImageSource interface {
	GetAll(ctx context.Context) ([]domain.ImageRecord, error)
	Get(ctx context.Context, code, supplier string) (*domain.ImageRecord, error)
}

// RecordSource is the record-store surface reports read from.
type RecordSource interface {
	ListProducts(filter store.ProductFilter) ([]domain.Product, error)
	ListOrders(filter store.OrderFilter) ([]domain.Order, error)
	LoadSettings() (store.Settings, error)
}

// Builder joins both stores at read time by the shared composite key.
type Builder struct {
	images  ImageSource
	records RecordSource
	coll    *collate.Collator
}

func NewBuilder(images ImageSource, records RecordSource) *Builder {
	return &Builder{
		images:  images,
		records: records,
		coll:    collate.New(language.Chinese),
	}
}

// GridItem is one image merged with the product stored at the same composite
// key. Product fields win; a missing product leaves them empty.
type GridItem struct {
	ID        string
	Code      string
	Supplier  string
	Name      string
	Cost      string
	Price     string
	Size      string
	Remark    string
	Image     string
	Timestamp time.Time
}

// SupplierGroup is one grid section.
type SupplierGroup struct {
	Supplier string
	Items    []GridItem
}

// BuildGrid scans the image store and groups items by the matching product's
// supplier. Images without a product land in the unclassified group with
// defaulted fields rather than failing the join.
func (b *Builder) BuildGrid(ctx context.Context) ([]SupplierGroup, error) {
	images, err := b.images.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	products, err := b.records.ListProducts(store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	byKey := make(map[string]domain.Product, len(products))
	for _, p := range products {
		byKey[p.Key()] = p
	}

	groups := map[string][]GridItem{}
	for _, img := range images {
		item := GridItem{
			ID:        img.ID,
			Code:      img.Code,
			Supplier:  img.Supplier,
			Image:     img.File,
			Timestamp: img.Timestamp,
		}
		group := domain.UnclassifiedSupplier
		if p, ok := byKey[img.ID]; ok {
			item.Code = p.Code
			item.Supplier = p.Supplier
			item.Name = p.Name
			item.Cost = p.Cost
			item.Price = p.Price
			item.Size = p.Size
			item.Remark = p.Remark
			if p.Supplier != "" {
				group = p.Supplier
			}
		}
		groups[group] = append(groups[group], item)
	}

	out := make([]SupplierGroup, 0, len(groups))
	for supplier, items := range groups {
		out = append(out, SupplierGroup{Supplier: supplier, Items: items})
	}
	b.sortSuppliers(out)
	return out, nil
}

// Suppliers lists the distinct supplier names known to the product mapping,
// collated, for the grid navigation bar.
func (b *Builder) Suppliers(ctx context.Context) ([]string, error) {
	products, err := b.records.ListProducts(store.ProductFilter{})
	if err != nil {
		return nil, err
	}
	seen := map[string]bool{}
	var names []string
	for _, p := range products {
		name := p.Supplier
		if name == "" {
			name = domain.UnclassifiedSupplier
		}
		if !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	sort.Slice(names, func(i, j int) bool { return b.coll.CompareString(names[i], names[j]) < 0 })
	return names, nil
}

// sortSuppliers orders groups by collated name with the unclassified group
// last.
func (b *Builder) sortSuppliers(groups []SupplierGroup) {
	sort.Slice(groups, func(i, j int) bool {
		a, z := groups[i].Supplier, groups[j].Supplier
		if a == domain.UnclassifiedSupplier {
			return false
		}
		if z == domain.UnclassifiedSupplier {
			return true
		}
		return b.coll.CompareString(a, z) < 0
	})
}
