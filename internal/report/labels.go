package report

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/warepix/warepix/internal/store"
)

// Label is one printable order label. An order of quantity N expands to N
// labels. Customers on the hide-price list get labels without a price.
type Label struct {
	Customer  string
	Code      string
	Name      string
	Size      string
	Price     string
	ShowPrice bool
	Image     string
}

// Labels expands the orders of one local calendar day into per-unit labels,
// joining in the stored image for each composite key.
func (b *Builder) Labels(ctx context.Context, day time.Time) ([]Label, error) {
	orders, err := b.records.ListOrders(store.OrderFilter{Day: day})
	if err != nil {
		return nil, err
	}
	settings, err := b.records.LoadSettings()
	if err != nil {
		return nil, err
	}

	var labels []Label
	for _, o := range orders {
		image := ""
		if img, err := b.images.Get(ctx, o.Code, o.Supplier); err == nil && img != nil {
			image = img.File
		} else if err != nil {
			zap.L().Warn("label image lookup failed",
				zap.String("code", o.Code),
				zap.String("supplier", o.Supplier),
				zap.Error(err))
		}

		label := Label{
			Customer:  o.Customer,
			Code:      o.Code,
			Name:      o.Name,
			Size:      o.Size,
			Price:     o.Price,
			ShowPrice: !settings.HidePriceFor(o.Customer),
			Image:     image,
		}
		for i := 0; i < o.QuantityInt(); i++ {
			labels = append(labels, label)
		}
	}
	return labels, nil
}
